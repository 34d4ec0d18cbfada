// Package appconfig builds the process configuration once at startup from
// environment variables. Business logic receives the resulting struct and
// performs no ambient lookups of its own.
package appconfig

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/gasgate/gasgate/pkg/wallet"
)

const (
	defaultRPCURL       = "https://sepolia.infura.io"
	defaultPriceAPIURL  = "https://api.coingecko.com/api"
	defaultAssetID      = "ethereum"
	defaultFiatCurrency = "usd"

	// defaultFeeThresholdWei is 0.01 ether.
	defaultFeeThresholdWei = "10000000000000000"

	defaultMaxAttempts    = 5
	defaultPollInterval   = 12 * time.Second
	defaultCallTimeout    = 10 * time.Second
	defaultReceiptTimeout = 5 * time.Minute
)

// Config is the full process configuration for one run.
type Config struct {
	// PrivateKey is the hex-encoded signing key. Required.
	PrivateKey string

	// RPCURL is the chain RPC endpoint.
	RPCURL string

	// Recipient is the transaction recipient address. Required.
	Recipient string

	// FeeThresholdWei is the maximum tolerated effective fee, in wei.
	FeeThresholdWei *big.Int

	// MaxAttempts is the total number of estimation attempts per run.
	MaxAttempts int

	// PollInterval is the delay between estimation attempts.
	PollInterval time.Duration

	// CallTimeout bounds each provider and price-source call.
	CallTimeout time.Duration

	// ReceiptTimeout bounds the overall wait for the transaction receipt.
	ReceiptTimeout time.Duration

	// PriceAPIURL is the price source root URL.
	PriceAPIURL string

	// PriceAPIKey enables fiat conversion when set.
	PriceAPIKey string

	// AssetID is the price source's identifier for the native asset.
	AssetID string

	// FiatCurrency is the target currency code for fiat reporting.
	FiatCurrency string
}

// FiatEnabled reports whether fiat conversion is configured.
func (c *Config) FiatEnabled() bool {
	return c.PriceAPIKey != ""
}

// LoadConfig reads the configuration from the environment, applies defaults
// and validates it. Missing or malformed required values are startup-fatal.
func LoadConfig() (*Config, error) {
	config := &Config{
		PrivateKey:     os.Getenv("FROM_ADDRESS_PRIVATE_KEY"),
		RPCURL:         getEnvDefault("RPC_URL", defaultRPCURL),
		Recipient:      os.Getenv("TO_ADDRESS"),
		MaxAttempts:    defaultMaxAttempts,
		PollInterval:   defaultPollInterval,
		CallTimeout:    defaultCallTimeout,
		ReceiptTimeout: defaultReceiptTimeout,
		PriceAPIURL:    getEnvDefault("COINGECKO_URL", defaultPriceAPIURL),
		PriceAPIKey:    os.Getenv("COINGECKO_API_KEY"),
		AssetID:        getEnvDefault("ASSET_ID", defaultAssetID),
		FiatCurrency:   getEnvDefault("FIAT_CURRENCY", defaultFiatCurrency),
	}

	threshold := getEnvDefault("MAX_GAS_FEE_THRESHOLD_WEI", defaultFeeThresholdWei)
	feeThreshold, ok := new(big.Int).SetString(threshold, 10)
	if !ok || feeThreshold.Sign() < 0 {
		return nil, wallet.NewWalletError(wallet.ErrCodeInvalidConfig,
			fmt.Sprintf("MAX_GAS_FEE_THRESHOLD_WEI is not a non-negative integer: %q", threshold), nil)
	}
	config.FeeThresholdWei = feeThreshold

	if raw := os.Getenv("MAX_ATTEMPTS"); raw != "" {
		attempts, err := strconv.Atoi(raw)
		if err != nil || attempts < 1 {
			return nil, wallet.NewWalletError(wallet.ErrCodeInvalidConfig,
				fmt.Sprintf("MAX_ATTEMPTS is not a positive integer: %q", raw), nil)
		}
		config.MaxAttempts = attempts
	}

	for _, d := range []struct {
		env    string
		target *time.Duration
	}{
		{"POLL_INTERVAL", &config.PollInterval},
		{"CALL_TIMEOUT", &config.CallTimeout},
		{"RECEIPT_TIMEOUT", &config.ReceiptTimeout},
	} {
		if raw := os.Getenv(d.env); raw != "" {
			parsed, err := time.ParseDuration(raw)
			if err != nil || parsed <= 0 {
				return nil, wallet.NewWalletError(wallet.ErrCodeInvalidConfig,
					fmt.Sprintf("%s is not a positive duration: %q", d.env, raw), err)
			}
			*d.target = parsed
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the required fields.
func (c *Config) Validate() error {
	if c.PrivateKey == "" {
		return wallet.NewWalletError(wallet.ErrCodeInvalidConfig, "FROM_ADDRESS_PRIVATE_KEY is required", nil)
	}
	if c.Recipient == "" {
		return wallet.NewWalletError(wallet.ErrCodeInvalidConfig, "TO_ADDRESS is required", nil)
	}
	if _, err := wallet.ValidateAddress(c.Recipient); err != nil {
		return err
	}
	return nil
}

func getEnvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
