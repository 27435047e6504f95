package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/buildhook/webhook-dispatcher/pkg/build"
	"github.com/buildhook/webhook-dispatcher/pkg/callback"
	"github.com/buildhook/webhook-dispatcher/pkg/config"
	"github.com/buildhook/webhook-dispatcher/pkg/logging"
	"github.com/buildhook/webhook-dispatcher/pkg/secrets"
	"github.com/buildhook/webhook-dispatcher/pkg/shutdown"
	"github.com/buildhook/webhook-dispatcher/pkg/webhook"
	"github.com/sirupsen/logrus"
)

var version = "dev"

func main() {
	// Settings come first so the logger can honour LOGGING_LEVEL
	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load settings: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.ParseLevel(settings.LogLevel))
	logging.LogStartup(logger, version, "server")

	serverEnv, err := config.LoadServerEnv()
	if err != nil {
		logger.WithError(err).Fatal("Failed to read server environment")
	}

	cfg, err := config.LoadOrDefault(serverEnv.ConfigFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.ApplyEnv(serverEnv); err != nil {
		logger.WithError(err).Fatal("Failed to apply environment overrides")
	}

	logger.WithFields(logrus.Fields{
		"config_file":      serverEnv.ConfigFile,
		"port":             cfg.Server.Port,
		"webhook_path":     cfg.Server.WebhookPath,
		"secrets_provider": cfg.Secrets.Provider,
		"project":          settings.ProjectName,
		"event_type":       settings.EventType,
		"callback":         settings.CallbackConfigured(),
	}).Info("Configuration loaded")

	// Missing settings are answered per request, but flag them early
	if err := settings.Validate(); err != nil {
		logger.WithError(err).Warn("Mandatory settings missing, webhooks will be rejected")
	}

	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load AWS configuration")
	}

	store, err := newSecretStore(cfg, awsCfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create secret store")
	}

	orchestrator := webhook.NewOrchestrator(
		settings,
		build.NewCodeBuildTriggerFromConfig(awsCfg, logger),
		store,
		callback.NewDispatcher(settings.CallbackURI, settings.CallbackPayload, nil, logger),
		logger,
	)

	server := webhook.NewServer(cfg, orchestrator, logger)

	shutdownTimeout, _ := cfg.ParseDuration(cfg.Server.ShutdownTimeout)
	shutdownManager := shutdown.NewManager(shutdownTimeout, logger)
	shutdownManager.RegisterHandler("readiness", func(ctx context.Context) error {
		server.SetReady(false)
		return nil
	})
	shutdownManager.RegisterHandler("webhook-server", server.Shutdown)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			serverErr <- err
			shutdownManager.Trigger()
		}
	}()

	err = shutdownManager.WaitForShutdown()

	select {
	case startErr := <-serverErr:
		logger.WithError(startErr).Error("Server error occurred")
		os.Exit(1)
	default:
	}

	if err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
		os.Exit(1)
	}

	logger.Info("Webhook dispatcher stopped")
}

// newSecretStore selects the store that resolves the *_SM_ARN references
func newSecretStore(cfg *config.Config, awsCfg aws.Config, logger *logrus.Logger) (secrets.Store, error) {
	switch cfg.Secrets.Provider {
	case config.SecretsProviderFile:
		logger.WithField("dir", cfg.Secrets.Dir).Info("Using file secret store")
		return secrets.NewFileStore(cfg.Secrets.Dir)
	default:
		return secrets.NewSecretsManagerStoreFromConfig(awsCfg), nil
	}
}
