package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

func (a *app) jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Drive booking deadlines and notifications",
	}

	expire := &cobra.Command{
		Use:   "expire",
		Short: "Time out a job whose acceptance deadline has passed",
		Args:  cobra.NoArgs,
		RunE: a.withBookings(func(cmd *cobra.Command, b Bookings) error {
			jobID, err := jobFlag(cmd)
			if err != nil {
				return err
			}
			res, err := b.ExpireJob(cmd.Context(), jobID)
			return a.report(cmd, res, err)
		}),
	}
	expire.Flags().Int64P(flagJobID, "j", 0, "Job ID")
	_ = expire.MarkFlagRequired(flagJobID)

	start := &cobra.Command{
		Use:   "start",
		Short: "Mark an assigned job as started",
		Args:  cobra.NoArgs,
		RunE: a.withBookings(func(cmd *cobra.Command, b Bookings) error {
			jobID, err := jobFlag(cmd)
			if err != nil {
				return err
			}
			res, err := b.StartJob(cmd.Context(), jobID)
			return a.report(cmd, res, err)
		}),
	}
	start.Flags().Int64P(flagJobID, "j", 0, "Job ID")
	_ = start.MarkFlagRequired(flagJobID)

	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Expire every overdue pending job and start every due session",
		Args:  cobra.NoArgs,
		RunE: a.withBookings(func(cmd *cobra.Command, b Bookings) error {
			expired, err := b.ExpirePending(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to expire pending jobs: %w", err)
			}
			started, err := b.StartDue(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to start due jobs: %w", err)
			}
			return printJSON(cmd, map[string]int{"expired": expired, "started": started})
		}),
	}

	resend := &cobra.Command{
		Use:   "resend",
		Short: "Send the new-job notifications for a pending job again",
		Args:  cobra.NoArgs,
		RunE: a.withBookings(func(cmd *cobra.Command, b Bookings) error {
			jobID, err := jobFlag(cmd)
			if err != nil {
				return err
			}
			actorID, err := cmd.Flags().GetInt64(flagActor)
			if err != nil {
				return fmt.Errorf("error getting actor flag: %w", err)
			}
			sms, _ := cmd.Flags().GetBool(flagSMS)

			var res domain.Result
			if sms {
				res, err = b.ResendSMSNotifications(cmd.Context(), actorID, jobID)
			} else {
				res, err = b.ResendNotifications(cmd.Context(), actorID, jobID)
			}
			return a.report(cmd, res, err)
		}),
	}
	resend.Flags().Int64P(flagJobID, "j", 0, "Job ID")
	resend.Flags().Int64P(flagActor, "a", 0, "Admin user ID the resend is performed as")
	resend.Flags().Bool(flagSMS, false, "Resend the SMS notifications instead of push")
	_ = resend.MarkFlagRequired(flagJobID)
	_ = resend.MarkFlagRequired(flagActor)

	cmd.AddCommand(expire, start, sweep, resend)
	return cmd
}

// withBookings opens the booking service for the duration of one command.
func (a *app) withBookings(fn func(*cobra.Command, Bookings) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		b, cleanup, err := openBookings(cmd.Context(), a.cfg, a.logger.Logger)
		if err != nil {
			return err
		}
		defer cleanup()

		return fn(cmd, b)
	}
}

func jobFlag(cmd *cobra.Command) (int64, error) {
	jobID, err := cmd.Flags().GetInt64(flagJobID)
	if err != nil {
		return 0, fmt.Errorf("error getting job flag: %w", err)
	}
	if jobID <= 0 {
		return 0, errors.New("job must be a positive id")
	}
	return jobID, nil
}

// report prints res and turns a failed result into a non-zero exit.
func (a *app) report(cmd *cobra.Command, res domain.Result, err error) error {
	if err != nil {
		return err
	}
	if perr := printJSON(cmd, res); perr != nil {
		return perr
	}
	if !res.OK() {
		return errors.New(res.Message)
	}
	if res.Degraded() {
		a.logger.Warn("Notification delivery degraded", slog.Any("warnings", res.Warnings))
	}
	return nil
}
