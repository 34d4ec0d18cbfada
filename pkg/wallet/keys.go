// Package wallet provides the Ethereum signing key, chain client, and
// transaction broadcast/receipt functionality used by the submission loop.
package wallet

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeyManager holds the signing private key and its derived address.
type KeyManager struct {
	privateKey *ecdsa.PrivateKey // The wallet's private key
	address    common.Address    // The derived Ethereum address
}

// NewKeyManager creates a new key manager from a hex-encoded private key
// string (with or without 0x prefix).
//
// Example:
//
//	km, err := NewKeyManager("0x1234...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	address := km.Address()
func NewKeyManager(privateKeyHex string) (*KeyManager, error) {
	if privateKeyHex == "" {
		return nil, NewWalletError(ErrCodeInvalidPrivateKey, "private key cannot be empty", nil)
	}

	// Remove "0x" prefix if present
	if len(privateKeyHex) > 2 && privateKeyHex[:2] == "0x" {
		privateKeyHex = privateKeyHex[2:]
	}

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, NewWalletError(ErrCodeInvalidPrivateKey, "invalid private key", err)
	}

	publicKey := privateKey.Public()
	publicKeyECDSA, ok := publicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("error casting public key to ECDSA")
	}

	return &KeyManager{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(*publicKeyECDSA),
	}, nil
}

// Address returns the Ethereum address associated with this key manager.
func (km *KeyManager) Address() common.Address {
	return km.address
}

// PrivateKey returns the underlying ECDSA private key for transaction signing.
func (km *KeyManager) PrivateKey() *ecdsa.PrivateKey {
	return km.privateKey
}
