// Package wallet provides the Ethereum signing key, chain client, and
// transaction broadcast/receipt functionality used by the submission loop.
package wallet

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// ChainBackend is the subset of the Ethereum client surface this system
// consumes. *ethclient.Client satisfies it; tests substitute fakes.
type ChainBackend interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// ClientConfig holds connection and timing parameters for the chain client.
type ClientConfig struct {
	// RPCURL is the HTTP(S) endpoint for connecting to the network
	RPCURL string

	// DialRetries is how many times to retry the initial connection
	DialRetries int

	// DialRetryDelay is the duration to wait between connection attempts
	DialRetryDelay time.Duration

	// CallTimeout bounds each individual RPC call
	CallTimeout time.Duration

	// ReceiptTimeout bounds the overall wait for a transaction receipt
	ReceiptTimeout time.Duration

	// ReceiptPollInterval is how often to check for the receipt
	ReceiptPollInterval time.Duration

	// MinConfirmations is how many blocks must follow the inclusion block
	// before the receipt is accepted
	MinConfirmations uint64
}

// DefaultClientConfig returns conservative connection settings.
func DefaultClientConfig(rpcURL string) ClientConfig {
	return ClientConfig{
		RPCURL:              rpcURL,
		DialRetries:         3,
		DialRetryDelay:      time.Second,
		CallTimeout:         10 * time.Second,
		ReceiptTimeout:      5 * time.Minute,
		ReceiptPollInterval: 5 * time.Second,
		MinConfirmations:    1,
	}
}

// Client wraps a single-network chain backend together with the signing key.
// It handles transaction signing, nonce retrieval, broadcast and receipt
// retrieval for one account on one chain.
type Client struct {
	backend    ChainBackend
	config     ClientConfig
	keyManager *KeyManager
	chainID    *big.Int
	signer     types.Signer
	log        *logrus.Logger
}

// Dial connects to the configured RPC endpoint with bounded retry, resolves
// the chain ID, and returns an initialized client.
//
// Example:
//
//	client, err := wallet.Dial(ctx, logger, wallet.DefaultClientConfig(rpcURL), privateKey)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
func Dial(ctx context.Context, log *logrus.Logger, config ClientConfig, privateKey string) (*Client, error) {
	keyManager, err := NewKeyManager(privateKey)
	if err != nil {
		return nil, err
	}

	var ethClient *ethclient.Client
	for i := 0; i <= config.DialRetries; i++ {
		ethClient, err = ethclient.DialContext(ctx, config.RPCURL)
		if err == nil {
			break
		}
		if i < config.DialRetries {
			log.WithFields(logrus.Fields{
				"attempt": i + 1,
				"error":   err,
			}).Debug("Retrying network connection")
			time.Sleep(config.DialRetryDelay)
		}
	}
	if err != nil {
		return nil, NewWalletError(ErrCodeRPCError,
			fmt.Sprintf("failed to connect after %d attempts", config.DialRetries+1), err)
	}

	client, err := NewClient(ctx, log, config, ethClient, keyManager)
	if err != nil {
		ethClient.Close()
		return nil, err
	}
	return client, nil
}

// NewClient builds a client on an already-connected backend. The chain ID is
// resolved once here and reused for signing.
func NewClient(ctx context.Context, log *logrus.Logger, config ClientConfig, backend ChainBackend, keyManager *KeyManager) (*Client, error) {
	callCtx, cancel := context.WithTimeout(ctx, config.CallTimeout)
	defer cancel()

	chainID, err := backend.ChainID(callCtx)
	if err != nil {
		return nil, NewWalletError(ErrCodeRPCError, "failed to get chain ID", err)
	}

	return &Client{
		backend:    backend,
		config:     config,
		keyManager: keyManager,
		chainID:    chainID,
		signer:     types.LatestSignerForChainID(chainID),
		log:        log,
	}, nil
}

// Address returns the sending account's address.
func (c *Client) Address() common.Address {
	return c.keyManager.Address()
}

// ChainID returns the connected chain's ID.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Backend exposes the underlying chain backend for read-only queries.
func (c *Client) Backend() ChainBackend {
	return c.backend
}

// LogBalance fetches and logs the sender's current balance. Informational
// only; a failed lookup never fails the run.
func (c *Client) LogBalance(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()

	balance, err := c.backend.BalanceAt(callCtx, c.keyManager.Address(), nil)
	if err != nil {
		c.log.WithError(err).Debug("Failed to fetch sender balance")
		return
	}

	c.log.WithFields(logrus.Fields{
		"address":     c.keyManager.Address().Hex(),
		"balance_wei": balance.String(),
	}).Info("Sender balance")
}

// Close closes the underlying connection when the backend supports it.
func (c *Client) Close() {
	if closer, ok := c.backend.(interface{ Close() }); ok {
		closer.Close()
		c.log.Debug("Closed network connection")
	}
}
