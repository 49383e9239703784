package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/interpreter-booking/internal/bootstrap"
	"github.com/cuongbtq/interpreter-booking/migrations"
	"github.com/cuongbtq/interpreter-booking/shared/postgresql"
)

func (a *app) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the booking database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDatabase(cmd, func(client *postgresql.Client) error {
				if err := migrations.Up(cmd.Context(), client.GetDB().DB); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDatabase(cmd, func(client *postgresql.Client) error {
				if err := migrations.Down(cmd.Context(), client.GetDB().DB); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migration rolled back")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDatabase(cmd, func(client *postgresql.Client) error {
				statuses, err := migrations.Status(cmd.Context(), client.GetDB().DB)
				if err != nil {
					return fmt.Errorf("failed to read migration status: %w", err)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tSOURCE")
				for _, s := range statuses {
					applied := "-"
					if !s.AppliedAt.IsZero() {
						applied = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
				}
				return w.Flush()
			})
		},
	})

	return cmd
}

func (a *app) withDatabase(cmd *cobra.Command, fn func(*postgresql.Client) error) error {
	client, err := postgresql.NewClient(cmd.Context(), bootstrap.PostgresConfig(&a.cfg.Database), a.logger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer client.Close()

	return fn(client)
}
