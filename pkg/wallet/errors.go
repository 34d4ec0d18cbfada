// Package wallet provides the Ethereum signing key, chain client, and
// transaction broadcast/receipt functionality used by the submission loop.
package wallet

import (
	"errors"
	"fmt"
)

// Error codes for wallet and provider operations
const (
	// ErrCodeInvalidPrivateKey indicates an invalid or malformed private key
	ErrCodeInvalidPrivateKey = "INVALID_PRIVATE_KEY"
	// ErrCodeInvalidAddress indicates an invalid recipient address format
	ErrCodeInvalidAddress = "INVALID_ADDRESS"
	// ErrCodeInvalidConfig indicates missing or malformed configuration
	ErrCodeInvalidConfig = "INVALID_CONFIG"
	// ErrCodeRPCError indicates an RPC connection or call failed
	ErrCodeRPCError = "RPC_ERROR"
	// ErrCodeGasEstimationFailed indicates the gas-usage estimate failed
	ErrCodeGasEstimationFailed = "GAS_ESTIMATION_FAILED"
	// ErrCodeFeeDataFailed indicates the fee-market query failed
	ErrCodeFeeDataFailed = "FEE_DATA_FAILED"
	// ErrCodeTransactionFailed indicates a transaction failed to broadcast
	ErrCodeTransactionFailed = "TRANSACTION_FAILED"
	// ErrCodeTimeout indicates an operation timed out
	ErrCodeTimeout = "TIMEOUT"
	// ErrCodeReceiptNotFound indicates the transaction receipt never arrived
	ErrCodeReceiptNotFound = "RECEIPT_NOT_FOUND"
)

// WalletError represents a wallet-specific error with a machine-readable
// code, a human readable message, and the underlying cause.
type WalletError struct {
	Code    string // Error code identifying the type of error
	Message string // Human readable error message
	Err     error  // Underlying error if any
}

// Error implements the error interface for WalletError.
func (e *WalletError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *WalletError) Unwrap() error {
	return e.Err
}

// NewWalletError creates a new WalletError with the given code, message and cause.
func NewWalletError(code string, message string, err error) *WalletError {
	return &WalletError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsWalletError reports whether err is (or wraps) a WalletError with the given code.
func IsWalletError(err error, code string) bool {
	var we *WalletError
	if errors.As(err, &we) {
		return we.Code == code
	}
	return false
}

// providerErrorCodes classify faults of the chain endpoint itself, as opposed
// to bad local configuration.
var providerErrorCodes = map[string]struct{}{
	ErrCodeRPCError:            {},
	ErrCodeGasEstimationFailed: {},
	ErrCodeFeeDataFailed:       {},
	ErrCodeTransactionFailed:   {},
	ErrCodeTimeout:             {},
	ErrCodeReceiptNotFound:     {},
}

// IsProviderError reports whether err is a provider fault. Provider faults are
// fatal for a run and are never absorbed by the fee-threshold retry loop.
func IsProviderError(err error) bool {
	var we *WalletError
	if errors.As(err, &we) {
		_, ok := providerErrorCodes[we.Code]
		return ok
	}
	return false
}
