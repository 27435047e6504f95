package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/buildhook/webhook-dispatcher/pkg/build"
	"github.com/buildhook/webhook-dispatcher/pkg/callback"
	"github.com/buildhook/webhook-dispatcher/pkg/config"
	"github.com/buildhook/webhook-dispatcher/pkg/logging"
	"github.com/buildhook/webhook-dispatcher/pkg/secrets"
	"github.com/buildhook/webhook-dispatcher/pkg/webhook"
)

var version = "dev"

func main() {
	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load settings: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.ParseLevel(settings.LogLevel))
	logging.LogStartup(logger, version, "lambda")

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.WithError(err).Fatal("Failed to load AWS configuration")
	}

	orchestrator := webhook.NewOrchestrator(
		settings,
		build.NewCodeBuildTriggerFromConfig(awsCfg, logger),
		secrets.NewSecretsManagerStoreFromConfig(awsCfg),
		callback.NewDispatcher(settings.CallbackURI, settings.CallbackPayload, nil, logger),
		logger,
	)

	lambda.Start(webhook.NewLambdaHandler(orchestrator, logger).Handle)
}
