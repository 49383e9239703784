// Package bootstrap builds the booking components the service binaries
// share from the loaded configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/events"
	"github.com/cuongbtq/interpreter-booking/internal/booking/lifecycle"
	"github.com/cuongbtq/interpreter-booking/internal/booking/notify"
	"github.com/cuongbtq/interpreter-booking/internal/booking/queue"
	"github.com/cuongbtq/interpreter-booking/internal/booking/service"
	"github.com/cuongbtq/interpreter-booking/internal/config"
	"github.com/cuongbtq/interpreter-booking/internal/storage/memory"
	"github.com/cuongbtq/interpreter-booking/internal/storage/postgres"
	"github.com/cuongbtq/interpreter-booking/shared/logger"
	"github.com/cuongbtq/interpreter-booking/shared/postgresql"
	"github.com/cuongbtq/interpreter-booking/shared/rabbitmq"
)

// Logger initializes and configures the application logger
func Logger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// PostgresConfig maps the database section onto the client settings.
func PostgresConfig(cfg *config.DatabaseConfig) *postgresql.Config {
	return &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
}

// RabbitMQConfig maps the rabbitmq section onto the client settings. Only a
// consuming client declares the delivery queue, binds it to every
// notification routing key and dead-letters rejected deliveries.
func RabbitMQConfig(cfg *config.RabbitMQConfig, consume bool) *rabbitmq.Config {
	rc := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}
	if consume {
		rc.QueueName = cfg.Queue.Name
		rc.QueueDurable = cfg.Queue.Durable
		rc.QueueAutoDelete = cfg.Queue.AutoDelete
		rc.QueueExclusive = cfg.Queue.Exclusive
		rc.BindingKeys = append([]string(nil), queue.RoutingKeys...)
		rc.DeadLetterExchange = cfg.DeadLetterExchange
		rc.PrefetchCount = cfg.Consumer.PrefetchCount
	}
	return rc
}

// Store is the configured booking store plus whatever must be closed with it.
type Store struct {
	lifecycle.Store
	// DB is set for the postgres driver.
	DB *postgresql.Client
}

// Close releases the database connection, if any.
func (s *Store) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// OpenStore connects the store selected by storage.driver.
func OpenStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Store, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		mem := memory.New()
		if cfg.Storage.SeedPath != "" {
			if err := mem.LoadSeed(cfg.Storage.SeedPath); err != nil {
				return nil, err
			}
		}
		log.Info("Using in-memory booking store", slog.String("seed", cfg.Storage.SeedPath))
		return &Store{Store: mem}, nil

	case config.StoragePostgres, "":
		client, err := postgresql.NewClient(ctx, PostgresConfig(&cfg.Database), log)
		if err != nil {
			return nil, err
		}
		query, err := postgres.OpenJobQuery(client.GetDB().DB)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return &Store{Store: postgres.New(client, query, log), DB: client}, nil
	}
	return nil, fmt.Errorf("unknown storage driver: %q", cfg.Storage.Driver)
}

// BookingService wires the state machine, the notification dispatcher and
// the orchestrator on top of store.
func BookingService(cfg *config.Config, store lifecycle.Store, transport notify.Transport, publisher events.Publisher, log *slog.Logger) (*service.BookingService, error) {
	loc, err := cfg.Booking.Location()
	if err != nil {
		return nil, err
	}

	catalog, err := notify.LoadCatalog(cfg.Notifications.TemplatesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load message catalog: %w", err)
	}

	hours := notify.BusinessHours{
		Location:   loc,
		NightStart: cfg.Booking.NightStart,
		NightEnd:   cfg.Booking.NightEnd,
	}
	dispatcher := notify.NewDispatcher(transport, catalog, hours, log, notify.WithLocation(loc))

	machine := lifecycle.NewMachine(lifecycle.Config{
		Expiry:       cfg.Booking.Expiry,
		CancelWindow: cfg.Booking.CancelWindow,
		Location:     loc,
	}, log)

	return service.New(service.Config{
		ImmediateLead: cfg.Booking.ImmediateLead,
		PageSize:      cfg.Booking.PageSize,
		Location:      loc,
	}, store, machine, dispatcher, publisher, log), nil
}
