package feemarket_test

import (
	"context"
	"errors"
	"io"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/gasgate/gasgate/pkg/feemarket"
	"github.com/gasgate/gasgate/pkg/wallet"
)

type fakeBackend struct {
	gas       uint64
	gasErr    error
	gasCalls  int
	tipCap    *big.Int
	tipErr    error
	tipCalls  int
	baseFee   *big.Int // nil simulates a pre-London chain
	headerErr error
}

func (f *fakeBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.gasCalls++
	return f.gas, f.gasErr
}

func (f *fakeBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	f.tipCalls++
	return f.tipCap, f.tipErr
}

func (f *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if f.headerErr != nil {
		return nil, f.headerErr
	}
	return &types.Header{BaseFee: f.baseFee}, nil
}

type fakeConverter struct {
	fiat float64
	err  error
}

func (f *fakeConverter) Convert(ctx context.Context, weiAmount *big.Int) (float64, error) {
	return f.fiat, f.err
}

var _ = Describe("Estimator", func() {
	var (
		backend *fakeBackend
		intent  *wallet.TransactionIntent
		log     *logrus.Logger
		from    common.Address
	)

	newEstimator := func(converter feemarket.FiatConverter) *feemarket.Estimator {
		return feemarket.NewEstimator(backend, from, time.Second, converter, log)
	}

	BeforeEach(func() {
		backend = &fakeBackend{
			gas:     21000,
			tipCap:  big.NewInt(2_000_000_000),  // 2 gwei
			baseFee: big.NewInt(10_000_000_000), // 10 gwei
		}
		from = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

		var err error
		intent, err = wallet.NewTransactionIntent("0x70997970C51812dc3A010C7d01b50e0d17dc79C8", nil)
		Expect(err).NotTo(HaveOccurred())

		log = logrus.New()
		log.SetOutput(io.Discard)
	})

	It("combines the gas estimate with the fee-market rate", func() {
		estimate, err := newEstimator(nil).Estimate(context.Background(), intent)
		Expect(err).NotTo(HaveOccurred())

		Expect(estimate.GasUnits).To(Equal(uint64(21000)))
		// fee cap = 2×baseFee + tip = 22 gwei
		Expect(estimate.MaxFeePerGas).To(Equal(big.NewInt(22_000_000_000)))
		Expect(estimate.GasTipCap).To(Equal(big.NewInt(2_000_000_000)))
		// effective fee = 21000 × 22 gwei
		Expect(estimate.EffectiveFee().String()).To(Equal("462000000000000"))
	})

	It("falls back to the tip alone when the chain reports no base fee", func() {
		backend.baseFee = nil

		estimate, err := newEstimator(nil).Estimate(context.Background(), intent)
		Expect(err).NotTo(HaveOccurred())
		Expect(estimate.MaxFeePerGas).To(Equal(big.NewInt(2_000_000_000)))
	})

	It("queries the chain fresh on every call", func() {
		estimator := newEstimator(nil)

		_, err := estimator.Estimate(context.Background(), intent)
		Expect(err).NotTo(HaveOccurred())
		_, err = estimator.Estimate(context.Background(), intent)
		Expect(err).NotTo(HaveOccurred())

		Expect(backend.gasCalls).To(Equal(2))
		Expect(backend.tipCalls).To(Equal(2))
	})

	It("reports a gas estimation failure as a provider fault", func() {
		backend.gasErr = errors.New("execution reverted")

		_, err := newEstimator(nil).Estimate(context.Background(), intent)
		Expect(wallet.IsWalletError(err, wallet.ErrCodeGasEstimationFailed)).To(BeTrue())
		Expect(wallet.IsProviderError(err)).To(BeTrue())
	})

	It("reports a tip cap failure as a fee data fault", func() {
		backend.tipErr = errors.New("rpc down")

		_, err := newEstimator(nil).Estimate(context.Background(), intent)
		Expect(wallet.IsWalletError(err, wallet.ErrCodeFeeDataFailed)).To(BeTrue())
	})

	It("reports a header failure as a fee data fault", func() {
		backend.headerErr = errors.New("rpc down")

		_, err := newEstimator(nil).Estimate(context.Background(), intent)
		Expect(wallet.IsWalletError(err, wallet.ErrCodeFeeDataFailed)).To(BeTrue())
	})

	It("still estimates when the fiat converter is unavailable", func() {
		estimate, err := newEstimator(&fakeConverter{err: errors.New("price source down")}).
			Estimate(context.Background(), intent)
		Expect(err).NotTo(HaveOccurred())
		Expect(estimate.EffectiveFee().Sign()).To(BeNumerically(">", 0))
	})
})

var _ = Describe("WeiToEther", func() {
	It("scales wei to ether", func() {
		oneEther := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
		Expect(feemarket.WeiToEther(oneEther)).To(BeNumerically("==", 1.0))
		Expect(feemarket.WeiToEther(big.NewInt(0))).To(BeNumerically("==", 0.0))
		Expect(feemarket.WeiToEther(big.NewInt(500_000_000_000_000_000))).To(BeNumerically("~", 0.5, 1e-12))
	})
})
