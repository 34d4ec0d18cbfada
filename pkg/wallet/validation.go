package wallet

import (
	"regexp"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// addressRegex validates the basic format of Ethereum-style addresses:
	// a "0x" prefix followed by exactly 40 hexadecimal characters.
	addressRegex = regexp.MustCompile("^0x[0-9a-fA-F]{40}$")
)

// ValidateAddress validates a recipient address string and returns it parsed.
// It checks the basic hex format before parsing so that silently truncated or
// padded inputs are rejected rather than coerced.
func ValidateAddress(address string) (common.Address, error) {
	if address == "" {
		return common.Address{}, NewWalletError(ErrCodeInvalidAddress, "address cannot be empty", nil)
	}
	if !addressRegex.MatchString(address) {
		return common.Address{}, NewWalletError(ErrCodeInvalidAddress, "address is not a 0x-prefixed 20-byte hex string", nil)
	}
	return common.HexToAddress(address), nil
}
