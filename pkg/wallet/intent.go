package wallet

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TransactionIntent describes the single transfer a run wants to submit.
// It is immutable once constructed; the submission loop owns it for the
// lifetime of one run.
type TransactionIntent struct {
	// To is the recipient address
	To common.Address

	// Value is the amount of native currency to send, in wei. May be zero.
	Value *big.Int
}

// NewTransactionIntent builds an intent from a recipient address string,
// validating the address format. A nil value is treated as zero.
func NewTransactionIntent(to string, value *big.Int) (*TransactionIntent, error) {
	addr, err := ValidateAddress(to)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = new(big.Int)
	}
	if value.Sign() < 0 {
		return nil, NewWalletError(ErrCodeInvalidConfig, "transaction value cannot be negative", nil)
	}
	return &TransactionIntent{To: addr, Value: value}, nil
}
