package wallet

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// TransactionState represents the possible states of a transaction
type TransactionState int

const (
	// TxStatePending indicates transaction is waiting to be mined
	TxStatePending TransactionState = iota

	// TxStateConfirmed indicates transaction was successfully mined
	TxStateConfirmed

	// TxStateFailed indicates transaction failed during execution
	TxStateFailed
)

// TransactionStatus records what the chain reported about a broadcast
// transaction: its hash, inclusion details, and the gas actually consumed
// and paid for.
type TransactionStatus struct {
	// Hash is the unique transaction identifier
	Hash common.Hash

	// Status indicates transaction success (1) or failure (0)
	Status uint64

	// BlockNumber is the block height where transaction was mined
	BlockNumber *big.Int

	// GasUsed is the actual amount of gas consumed
	GasUsed uint64

	// EffectiveGasPrice is the actual gas price paid, in wei
	EffectiveGasPrice *big.Int

	// Confirmations is the number of block confirmations
	Confirmations uint64

	// State tracks the current transaction state
	State TransactionState

	// Timestamp when the status was last updated
	Timestamp time.Time
}

// RealizedFee returns the total fee paid: GasUsed × EffectiveGasPrice, in wei.
// Integer arithmetic throughout; no rounding.
func (ts *TransactionStatus) RealizedFee() *big.Int {
	if ts.EffectiveGasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(ts.GasUsed), ts.EffectiveGasPrice)
}

// Send signs and broadcasts an EIP-1559 transaction for the given intent
// using the supplied gas parameters, returning its hash. The nonce is taken
// from the pending state of the sending account at broadcast time.
func (c *Client) Send(ctx context.Context, intent *TransactionIntent, gasLimit uint64, gasTipCap, gasFeeCap *big.Int) (common.Hash, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()

	nonce, err := c.backend.PendingNonceAt(callCtx, c.keyManager.Address())
	if err != nil {
		return common.Hash{}, NewWalletError(ErrCodeRPCError, "failed to get nonce", err)
	}

	to := intent.To
	signedTx, err := types.SignNewTx(c.keyManager.PrivateKey(), c.signer, &types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Gas:       gasLimit,
		To:        &to,
		Value:     intent.Value,
	})
	if err != nil {
		return common.Hash{}, NewWalletError(ErrCodeTransactionFailed, "failed to sign transaction", err)
	}

	sendCtx, cancelSend := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancelSend()

	if err := c.backend.SendTransaction(sendCtx, signedTx); err != nil {
		return common.Hash{}, NewWalletError(ErrCodeTransactionFailed, "failed to send transaction", err)
	}

	c.log.WithFields(logrus.Fields{
		"tx_hash": signedTx.Hash().Hex(),
		"nonce":   nonce,
	}).Info("Transaction broadcast")

	return signedTx.Hash(), nil
}

// WaitForReceipt polls the network until the transaction is mined and has
// reached the configured number of confirmations, or the receipt timeout
// elapses.
//
// Example:
//
//	status, err := client.WaitForReceipt(ctx, txHash)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Transaction confirmed in block %s\n", status.BlockNumber)
func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash) (*TransactionStatus, error) {
	ticker := time.NewTicker(c.config.ReceiptPollInterval)
	defer ticker.Stop()

	timeout := time.After(c.config.ReceiptTimeout)

	for {
		select {
		case <-ctx.Done():
			return nil, NewWalletError(ErrCodeTimeout, "context cancelled while waiting for receipt", ctx.Err())
		case <-timeout:
			return nil, NewWalletError(ErrCodeReceiptNotFound, "timeout waiting for receipt", nil)
		case <-ticker.C:
			callCtx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
			receipt, err := c.backend.TransactionReceipt(callCtx, hash)
			cancel()
			if err != nil {
				continue // Receipt not found yet
			}

			callCtx, cancel = context.WithTimeout(ctx, c.config.CallTimeout)
			currentBlock, err := c.backend.BlockNumber(callCtx)
			cancel()
			if err != nil {
				return nil, NewWalletError(ErrCodeRPCError, "failed to get current block number", err)
			}

			confirmations := currentBlock - receipt.BlockNumber.Uint64()
			if confirmations < c.config.MinConfirmations {
				continue // Wait for minimum confirmations
			}

			state := TxStateConfirmed
			if receipt.Status != types.ReceiptStatusSuccessful {
				state = TxStateFailed
			}

			return &TransactionStatus{
				Hash:              hash,
				Status:            receipt.Status,
				BlockNumber:       receipt.BlockNumber,
				GasUsed:           receipt.GasUsed,
				EffectiveGasPrice: receipt.EffectiveGasPrice,
				Confirmations:     confirmations,
				State:             state,
				Timestamp:         time.Now(),
			}, nil
		}
	}
}
