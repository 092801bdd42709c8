package backend

import (
	"context"
	"fmt"
	"log/slog"

	"ventas/internal/events"
	"ventas/internal/store/memory"
	"ventas/internal/store/sqlite"
)

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(_ context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := sqlite.NewRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sqlite repository: %w", err)
	}

	publisher, closePublisher := f.createPublisher(config)

	f.logger.Info("Initialized sqlite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", publisher != nil)

	return &Result{
		Store:     repo,
		Publisher: publisher,
		Cleanup: func() error {
			if closePublisher != nil {
				closePublisher()
			}
			return repo.Close()
		},
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	publisher, closePublisher := f.createPublisher(config)

	f.logger.Info("Initialized memory backend", "amqp_enabled", publisher != nil)

	return &Result{
		Store:     memory.New(),
		Publisher: publisher,
		Cleanup: func() error {
			if closePublisher != nil {
				closePublisher()
			}
			return nil
		},
	}, nil
}

// createPublisher wires the AMQP event publisher when configured. A
// broker outage downgrades to no events rather than failing startup.
func (f *DefaultFactory) createPublisher(config Config) (events.Publisher, func() error) {
	if config.AMQPURL == "" {
		return nil, nil
	}
	client, err := events.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return nil, nil
	}
	f.logger.Info("Initialized AMQP event publisher",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client, client.Close
}
