// Package pricing converts native-unit fees into fiat values using a
// CoinGecko-style simple-price API.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/gasgate/gasgate/pkg/feemarket"
)

const (
	defaultBaseURL = "https://api.coingecko.com/api"
	defaultTimeout = 10 * time.Second

	// requestsPerMinute paces calls under the public API tier limit. The
	// outer retry loop already bounds call frequency; the limiter guards
	// against misconfiguration, not normal operation.
	requestsPerMinute = 30
)

// RateUnavailableError indicates the exchange rate could not be obtained:
// the price source was unreachable, returned malformed data, or the
// requested asset/currency pair was absent from the response.
type RateUnavailableError struct {
	AssetID string
	Fiat    string
	Reason  string
	Err     error
}

// Error implements the error interface for RateUnavailableError.
func (e *RateUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[RATE_UNAVAILABLE] %s/%s: %s: %v", e.AssetID, e.Fiat, e.Reason, e.Err)
	}
	return fmt.Sprintf("[RATE_UNAVAILABLE] %s/%s: %s", e.AssetID, e.Fiat, e.Reason)
}

// Unwrap returns the underlying error.
func (e *RateUnavailableError) Unwrap() error {
	return e.Err
}

// Config holds the price source parameters.
type Config struct {
	// BaseURL is the price API root, without the /v3 path segment
	BaseURL string

	// APIKey is the price API key, passed as the x_cg_api_key query param
	APIKey string

	// AssetID is the asset identifier the source keys prices by (e.g. "ethereum")
	AssetID string

	// FiatCurrency is the target currency code (e.g. "usd")
	FiatCurrency string

	// Timeout bounds each price lookup
	Timeout time.Duration

	// Logger is the logger used for request-level records
	Logger *logrus.Logger
}

// Validate checks required fields and applies defaults.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("price API key is required")
	}
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.AssetID == "" {
		c.AssetID = "ethereum"
	}
	if c.FiatCurrency == "" {
		c.FiatCurrency = "usd"
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	return nil
}

// Client fetches exchange rates from the price API. Rates are fetched fresh
// on every call and never cached, so repeated calls may observe different
// rates.
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logrus.Logger
}

// NewClient creates a price API client from the given config.
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/requestsPerMinute), 1),
		log:        config.Logger,
	}, nil
}

// FetchRate fetches the current native-to-fiat exchange rate for the
// configured asset/currency pair. Response body shape:
//
//	{ "<assetId>": { "<fiatCurrency>": <float> } }
func (c *Client) FetchRate(ctx context.Context) (float64, error) {
	assetID, fiat := c.config.AssetID, c.config.FiatCurrency

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, &RateUnavailableError{AssetID: assetID, Fiat: fiat, Reason: "rate limiter wait cancelled", Err: err}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v3/simple/price?ids=%s&vs_currencies=%s&x_cg_api_key=%s",
		c.config.BaseURL, url.QueryEscape(assetID), url.QueryEscape(fiat), url.QueryEscape(c.config.APIKey))

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, &RateUnavailableError{AssetID: assetID, Fiat: fiat, Reason: "failed to build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &RateUnavailableError{AssetID: assetID, Fiat: fiat, Reason: "price source unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, &RateUnavailableError{
			AssetID: assetID,
			Fiat:    fiat,
			Reason:  fmt.Sprintf("price source returned status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var prices map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&prices); err != nil {
		return 0, &RateUnavailableError{AssetID: assetID, Fiat: fiat, Reason: "malformed price response", Err: err}
	}

	asset, ok := prices[assetID]
	if !ok {
		return 0, &RateUnavailableError{AssetID: assetID, Fiat: fiat, Reason: "asset missing from price response"}
	}
	rateValue, ok := asset[fiat]
	if !ok {
		return 0, &RateUnavailableError{AssetID: assetID, Fiat: fiat, Reason: "currency missing from price response"}
	}

	c.log.WithFields(logrus.Fields{
		"asset_id": assetID,
		"fiat":     fiat,
		"rate":     rateValue,
	}).Debug("Fetched exchange rate")

	return rateValue, nil
}

// Convert converts a wei amount to the configured fiat currency at a freshly
// fetched rate. Convert(0) is 0 for any rate.
func (c *Client) Convert(ctx context.Context, weiAmount *big.Int) (float64, error) {
	rateValue, err := c.FetchRate(ctx)
	if err != nil {
		return 0, err
	}
	return ConvertAtRate(weiAmount, rateValue), nil
}

// ConvertAtRate is the pure conversion: wei scaled to ether, multiplied by
// the native-to-fiat rate.
func ConvertAtRate(weiAmount *big.Int, rateValue float64) float64 {
	return feemarket.WeiToEther(weiAmount) * rateValue
}
