package main

import (
	"context"
	"errors"
	"os"
	"time"
	_ "time/tzdata"

	"peatracker/internal/amqp"
	"peatracker/internal/backend"
	"peatracker/internal/cli"
	"peatracker/internal/config"
	"peatracker/internal/log"
	"peatracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stdout).WithComponent(log.ComponentWorker)
	logger.Info("Starting peatracker-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, os.Stdout).WithComponent(log.ComponentWorker)
	if cfg.RemoteBackend == config.BackendNone {
		logger.Error("The worker needs a remote backend", "remote_backend", cfg.RemoteBackend)
		os.Exit(1)
	}

	local := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer local.Close()

	remoteRes, err := backend.NewFactory(logger).CreateRemote(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to open remote store", log.FieldError, err)
		os.Exit(1)
	}
	if remoteRes.Cleanup != nil {
		defer remoteRes.Cleanup()
	}

	syncWorker := worker.NewSyncWorker(local, remoteRes.Remote)

	var scheduler *worker.Scheduler
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if scheduler != nil {
			scheduler.Stop()
		}
	})

	// Push anything the queue may have lost while the worker was down.
	if err := syncWorker.FullResync(ctx, cfg.UserID); err != nil {
		logger.Error("Startup resync failed", log.FieldError, err)
	}

	scheduler = worker.NewScheduler(ctx, syncWorker, cfg.UserID, cfg.Location())
	if err := scheduler.RegisterAll(cfg.ResyncCron, cfg.DCAReminderCron); err != nil {
		logger.Error("Failed to register scheduled jobs", log.FieldError, err)
		os.Exit(1)
	}
	scheduler.Start()

	if cfg.ReplicationMode == config.ReplicationAMQP {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()

		go func() {
			if err := client.ConsumeReplication(ctx, syncWorker.HandleReplication); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
		logger.Info("Consuming replication messages", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Replication mode is not amqp, running scheduled jobs only", "replication_mode", cfg.ReplicationMode)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
