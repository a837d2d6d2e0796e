package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"cert-chain/credential-portal/credential-portal-backend/internal/config"
	"cert-chain/credential-portal/credential-portal-backend/internal/database"
	"cert-chain/credential-portal/credential-portal-backend/internal/logging"
	"cert-chain/credential-portal/credential-portal-backend/internal/users"
	"cert-chain/credential-portal/credential-portal-backend/pkg/chain"
)

// RegistrationSyncer updates organization registration flags from the registry.
type RegistrationSyncer interface {
	SyncRegistration(ctx context.Context, registry chain.RegistryReader) (int, error)
}

// RegistrationWorker mirrors on-chain organization registration into the user store.
type RegistrationWorker struct {
	syncer   RegistrationSyncer
	registry chain.RegistryReader
	logger   *zap.Logger
	config   RegistrationWorkerConfig
}

// RegistrationWorkerConfig configuration for the registration worker
type RegistrationWorkerConfig struct {
	Schedule   string
	RunTimeout time.Duration
}

// DefaultRegistrationWorkerConfig returns default configuration
func DefaultRegistrationWorkerConfig() RegistrationWorkerConfig {
	return RegistrationWorkerConfig{
		Schedule:   "@every 5m",
		RunTimeout: 2 * time.Minute,
	}
}

func NewRegistrationWorker(syncer RegistrationSyncer, registry chain.RegistryReader, logger *zap.Logger, config RegistrationWorkerConfig) *RegistrationWorker {
	return &RegistrationWorker{
		syncer:   syncer,
		registry: registry,
		logger:   logger,
		config:   config,
	}
}

// Start runs one sync immediately, then on the configured schedule until ctx is done.
func (w *RegistrationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting registration worker", zap.String("schedule", w.config.Schedule))

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{w.logger})))
	if _, err := c.AddFunc(w.config.Schedule, func() { w.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", w.config.Schedule, err)
	}

	w.RunOnce(ctx)
	c.Start()

	<-ctx.Done()
	w.logger.Info("Registration worker shutting down")
	<-c.Stop().Done()
	return nil
}

// RunOnce performs a single sync pass.
func (w *RegistrationWorker) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, w.config.RunTimeout)
	defer cancel()

	start := time.Now()
	changed, err := w.syncer.SyncRegistration(ctx, w.registry)
	if err != nil {
		w.logger.Error("Registration sync failed", zap.Error(err), zap.Int("changed", changed))
		return
	}
	w.logger.Info("Registration sync completed",
		zap.Int("changed", changed),
		zap.Duration("duration", time.Since(start)))
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

func main() {
	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Chain.RPCURL == "" || cfg.Chain.ContractAddress == "" {
		logger.Fatal("chain.rpc_url and chain.contract_address are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := database.Connect(ctx, cfg.Mongo)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer client.Disconnect(context.Background())
	logger.Info("Connected to database")

	registry, err := chain.Dial(ctx, chain.Config{
		RPCURL:          cfg.Chain.RPCURL,
		ContractAddress: cfg.Chain.ContractAddress,
		ChainID:         cfg.Chain.ChainID,
		CallTimeout:     cfg.Chain.CallTimeout,
	})
	if err != nil {
		logger.Fatal("Failed to connect to chain", zap.Error(err))
	}
	defer registry.Close()

	service := users.NewService(users.NewRepository(client.Database(cfg.Mongo.Database)), logger)

	workerConfig := DefaultRegistrationWorkerConfig()
	if cfg.Workers.RegistrationSyncSchedule != "" {
		workerConfig.Schedule = cfg.Workers.RegistrationSyncSchedule
	}
	worker := NewRegistrationWorker(service, registry, logger, workerConfig)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	if err := worker.Start(ctx); err != nil {
		logger.Error("Worker error", zap.Error(err))
	}
	logger.Info("Registration worker stopped")
}
