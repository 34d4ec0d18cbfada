package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/gasgate/gasgate/internal/appconfig"
	"github.com/gasgate/gasgate/pkg/feemarket"
	"github.com/gasgate/gasgate/pkg/logging"
	"github.com/gasgate/gasgate/pkg/pricing"
	"github.com/gasgate/gasgate/pkg/submitter"
	"github.com/gasgate/gasgate/pkg/wallet"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Only log warning since .env is optional
		logrus.WithError(err).Warn("Error loading .env file")
	}

	// Initialize logger
	log := logrus.New()
	if os.Getenv("LOG_FORMAT") == "text" {
		log.SetFormatter(logging.NewColoredJSONFormatter())
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	// Get log level from environment
	logLevel := os.Getenv("LOG_LEVEL")
	if level, err := logrus.ParseLevel(logLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(logrus.InfoLevel)
		if logLevel != "" {
			log.WithFields(logrus.Fields{
				"attempted_level": logLevel,
				"default_level":   "INFO",
			}).Warn("Invalid log level specified, defaulting to INFO")
		}
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info("Received shutdown signal")
		cancel()
	}()

	config, err := appconfig.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	intent, err := wallet.NewTransactionIntent(config.Recipient, nil)
	if err != nil {
		log.WithError(err).Fatal("Invalid recipient address")
	}

	clientConfig := wallet.DefaultClientConfig(config.RPCURL)
	clientConfig.CallTimeout = config.CallTimeout
	clientConfig.ReceiptTimeout = config.ReceiptTimeout

	client, err := wallet.Dial(ctx, log, clientConfig, config.PrivateKey)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to chain provider")
	}
	defer client.Close()

	client.LogBalance(ctx)

	var converter submitter.FiatConverter
	var estimatorConverter feemarket.FiatConverter
	if config.FiatEnabled() {
		priceClient, err := pricing.NewClient(pricing.Config{
			BaseURL:      config.PriceAPIURL,
			APIKey:       config.PriceAPIKey,
			AssetID:      config.AssetID,
			FiatCurrency: config.FiatCurrency,
			Timeout:      config.CallTimeout,
			Logger:       log,
		})
		if err != nil {
			log.WithError(err).Fatal("Failed to create price client")
		}
		converter = priceClient
		estimatorConverter = priceClient
	}

	estimator := feemarket.NewEstimator(client.Backend(), client.Address(), config.CallTimeout, estimatorConverter, log)

	sub := submitter.New(estimator, client, converter, submitter.Config{
		FeeThresholdWei: config.FeeThresholdWei,
		MaxAttempts:     config.MaxAttempts,
		PollInterval:    config.PollInterval,
	}, log)

	outcome, err := sub.Run(ctx, intent)
	if err != nil {
		log.WithError(err).Fatal("Run aborted")
	}

	if outcome.Status == submitter.StatusExhausted {
		os.Exit(1)
	}
}
