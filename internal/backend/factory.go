package backend

import (
	"context"
	"errors"
	"fmt"

	"peatracker/internal/amqp"
	"peatracker/internal/config"
	"peatracker/internal/log"
	"peatracker/internal/remote/postgres"
	"peatracker/internal/remote/sheets"
	"peatracker/internal/services"
	"peatracker/internal/store"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentRemote),
	}
}

// CreateRemote implements Factory.CreateRemote
func (f *DefaultFactory) CreateRemote(ctx context.Context, cfg *config.Config) (*RemoteResult, error) {
	switch cfg.RemoteBackend {
	case config.BackendPostgres:
		return f.createPostgresRemote(cfg)
	case config.BackendSheets:
		return f.createSheetsRemote(ctx, cfg)
	case config.BackendNone, "":
		return &RemoteResult{}, nil
	default:
		return nil, fmt.Errorf("unknown remote backend %q", cfg.RemoteBackend)
	}
}

func (f *DefaultFactory) createPostgresRemote(cfg *config.Config) (*RemoteResult, error) {
	db, err := postgres.NewDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}

	f.logger.Info("Initialized Postgres remote")

	return &RemoteResult{
		Remote:  postgres.NewRemote(db),
		Cleanup: db.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsRemote(ctx context.Context, cfg *config.Config) (*RemoteResult, error) {
	creds, err := cfg.ServiceAccountJSON()
	if err != nil {
		return nil, err
	}
	remote, err := sheets.New(ctx, sheets.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsJSON: creds,
	})
	if err != nil {
		return nil, fmt.Errorf("connect google sheets: %w", err)
	}

	f.logger.Info("Initialized Google Sheets remote", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	return &RemoteResult{Remote: remote}, nil
}

// CreateReplicator implements Factory.CreateReplicator. Direct replication
// needs a remote; the returned replicator is not started.
func (f *DefaultFactory) CreateReplicator(ctx context.Context, cfg *config.Config, remote store.Remote) (*ReplicatorResult, error) {
	switch cfg.ReplicationMode {
	case config.ReplicationDirect:
		if remote == nil {
			return nil, errors.New("direct replication requires a remote backend")
		}
		rc := services.DefaultDirectReplicatorConfig()
		rc.Timeout = cfg.ReplicationTimeout
		return &ReplicatorResult{Replicator: services.NewDirectReplicator(remote, rc)}, nil

	case config.ReplicationAMQP:
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return nil, fmt.Errorf("connect amqp: %w", err)
		}
		f.logger.Info("Initialized AMQP client",
			"exchange", cfg.AMQPExchange,
			"queue", cfg.AMQPQueue)
		return &ReplicatorResult{
			Replicator: services.NewAMQPReplicator(client),
			Cleanup:    client.Close,
		}, nil

	case config.ReplicationNone, "":
		return &ReplicatorResult{Replicator: services.NoopReplicator{}}, nil
	}
	return nil, fmt.Errorf("unknown replication mode %q", cfg.ReplicationMode)
}
