// Package commands implements bookingctl, the operator tool for schema
// migrations and for driving booking deadlines by hand.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/queue"
	"github.com/cuongbtq/interpreter-booking/internal/bootstrap"
	"github.com/cuongbtq/interpreter-booking/internal/config"
	"github.com/cuongbtq/interpreter-booking/shared/logger"
	"github.com/cuongbtq/interpreter-booking/shared/rabbitmq"
)

// flag names
const (
	flagConfig = "config"
	flagJobID  = "job"
	flagActor  = "actor"
	flagSMS    = "sms"
)

const envConfigPath = "BOOKINGCTL_CONFIG_PATH"

// Bookings is the part of the booking service the job commands drive.
type Bookings interface {
	ExpireJob(ctx context.Context, jobID int64) (domain.Result, error)
	StartJob(ctx context.Context, jobID int64) (domain.Result, error)
	ExpirePending(ctx context.Context) (int, error)
	StartDue(ctx context.Context) (int, error)
	ResendNotifications(ctx context.Context, actorID, jobID int64) (domain.Result, error)
	ResendSMSNotifications(ctx context.Context, actorID, jobID int64) (domain.Result, error)
}

// openBookings connects the store and the broker. Tests replace it.
var openBookings = func(ctx context.Context, cfg *config.Config, log *slog.Logger) (Bookings, func(), error) {
	if cfg.RabbitMQ.Host == "" {
		return nil, nil, fmt.Errorf("rabbitmq host is required to send notifications")
	}

	store, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	rabbitClient, err := rabbitmq.NewClient(bootstrap.RabbitMQConfig(&cfg.RabbitMQ, false), log)
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	cleanup := func() {
		_ = rabbitClient.Close()
		_ = store.Close()
	}

	svc, err := bootstrap.BookingService(cfg, store,
		queue.NewTransport(rabbitClient, log),
		queue.NewEventPublisher(rabbitClient),
		log,
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}

// app is the state PersistentPreRunE prepares for every subcommand.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *logger.Logger
}

// NewRootCmd builds the bookingctl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "bookingctl",
		Short:         "bookingctl - operate the interpreter booking service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A missing .env file is fine.
			_ = godotenv.Load()

			if !cmd.Flags().Changed(flagConfig) {
				if p := os.Getenv(envConfigPath); p != "" {
					a.configPath = p
				}
			}

			cfg, err := config.Load(a.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.ValidateCLIConfig(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			a.cfg = cfg

			a.logger, err = bootstrap.Logger(&cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Close()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, flagConfig, "c", "configs/worker-service/config.yaml",
		"Path to configuration file (env: "+envConfigPath+")")

	root.AddCommand(a.migrateCmd())
	root.AddCommand(a.jobsCmd())
	return root
}

// Execute runs bookingctl with the process arguments.
func Execute() error {
	return NewRootCmd().Execute()
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
