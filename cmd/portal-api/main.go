package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cert-chain/credential-portal/credential-portal-backend/internal/auth"
	"cert-chain/credential-portal/credential-portal-backend/internal/certificates"
	"cert-chain/credential-portal/credential-portal-backend/internal/config"
	"cert-chain/credential-portal/credential-portal-backend/internal/database"
	"cert-chain/credential-portal/credential-portal-backend/internal/logging"
	"cert-chain/credential-portal/credential-portal-backend/internal/requests"
	"cert-chain/credential-portal/credential-portal-backend/internal/server"
	"cert-chain/credential-portal/credential-portal-backend/internal/users"
	"cert-chain/credential-portal/credential-portal-backend/pkg/chain"
	"cert-chain/credential-portal/credential-portal-backend/pkg/pdf"
	"cert-chain/credential-portal/credential-portal-backend/pkg/storage"
)

func main() {
	cfg, err := config.LoadConfig(envOr("CONFIG_PATH", "config.json"))
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx := context.Background()

	client, err := database.Connect(ctx, cfg.Mongo)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}()

	db := client.Database(cfg.Mongo.Database)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		logger.Fatal("Failed to create indexes", zap.Error(err))
	}
	logger.Info("Connected to database", zap.String("database", cfg.Mongo.Database))

	// Certificate storage
	ipfs := storage.NewIPFSClient(storage.IPFSConfig{
		APIURL:     cfg.Storage.IPFSAPIURL,
		GatewayURL: cfg.Storage.IPFSGatewayURL,
		AuthToken:  cfg.Storage.IPFSAuthToken,
	})
	var s3 storage.S3Client
	if cfg.Storage.S3Bucket != "" {
		s3, err = storage.NewS3Client(ctx, storage.S3Config{
			Region:    cfg.Storage.S3Region,
			Endpoint:  cfg.Storage.S3Endpoint,
			AccessKey: cfg.Storage.S3AccessKey,
			SecretKey: cfg.Storage.S3SecretKey,
		})
		if err != nil {
			logger.Fatal("Failed to initialize S3 client", zap.Error(err))
		}
	}
	certService := certificates.NewService(
		certificates.NewStorageProvider(s3, ipfs, cfg.Storage.S3Bucket),
		certificates.NewPDFService(pdf.NewGenerator("Credential Portal")),
		logger,
	)

	deps := server.Deps{
		Users:        users.NewRepository(db),
		Requests:     requests.NewRepository(db),
		Tokens:       auth.NewTokenManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL),
		BcryptCost:   cfg.Security.BcryptCost,
		Publisher:    certService,
		Certificates: certService,
		CORSOrigin:   cfg.Server.CORSOrigin,
		Logger:       logger,
	}

	if cfg.Chain.VerifyPayments {
		evm, err := chain.Dial(ctx, chain.Config{
			RPCURL:          cfg.Chain.RPCURL,
			ContractAddress: cfg.Chain.ContractAddress,
			ChainID:         cfg.Chain.ChainID,
			CallTimeout:     cfg.Chain.CallTimeout,
		})
		if err != nil {
			logger.Fatal("Failed to connect to chain", zap.Error(err))
		}
		defer evm.Close()
		deps.Payments = evm
		logger.Info("On-chain payment verification enabled", zap.String("rpc", cfg.Chain.RPCURL))
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(deps)

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", srv.Addr))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
