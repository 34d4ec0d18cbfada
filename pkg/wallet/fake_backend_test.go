package wallet_test

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// fakeBackend is an in-memory wallet.ChainBackend with scriptable responses.
type fakeBackend struct {
	mu sync.Mutex

	chainID      *big.Int
	chainIDErr   error
	nonce        uint64
	nonceErr     error
	sendErr      error
	sentTxs      []*types.Transaction
	receipt      *types.Receipt
	receiptErr   error
	receiptPolls int
	// receiptAfter holds back the receipt for the first n polls
	receiptAfter int
	blockNumber  uint64
	blockErr     error
	balance      *big.Int
	gas          uint64
	gasErr       error
	tipCap       *big.Int
	tipErr       error
	header       *types.Header
	headerErr    error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chainID: big.NewInt(11155111),
		balance: big.NewInt(0),
	}
}

func (f *fakeBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return f.gas, f.gasErr
}

func (f *fakeBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return f.tipCap, f.tipErr
}

func (f *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return f.header, f.headerErr
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return f.nonce, f.nonceErr
}

func (f *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return f.chainID, f.chainIDErr
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sentTxs = append(f.sentTxs, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiptPolls++
	if f.receiptPolls <= f.receiptAfter {
		return nil, errors.New("not found")
	}
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	if f.receipt == nil {
		return nil, errors.New("not found")
	}
	return f.receipt, nil
}

func (f *fakeBackend) BlockNumber(ctx context.Context) (uint64, error) {
	return f.blockNumber, f.blockErr
}

func (f *fakeBackend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return f.balance, nil
}

func (f *fakeBackend) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sentTxs)
}

func (f *fakeBackend) lastSent() *types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sentTxs) == 0 {
		return nil
	}
	return f.sentTxs[len(f.sentTxs)-1]
}
