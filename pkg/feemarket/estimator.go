// Package feemarket estimates the effective fee of a candidate transaction
// from the current gas-usage estimate and the network's EIP-1559 fee market.
package feemarket

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/sirupsen/logrus"

	"github.com/gasgate/gasgate/pkg/wallet"
)

// Backend is the read-only chain surface the estimator needs.
type Backend interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// FiatConverter converts a wei amount into a fiat value using a fresh
// exchange rate. Optional; used only to enrich the per-estimate log record.
type FiatConverter interface {
	Convert(ctx context.Context, weiAmount *big.Int) (float64, error)
}

// FeeEstimate is one fresh snapshot of what the candidate transaction would
// cost: the gas it needs and the fee-market price per gas unit.
type FeeEstimate struct {
	// GasUnits is the estimated computational work, in gas
	GasUnits uint64

	// GasTipCap is the suggested priority fee per gas, in wei
	GasTipCap *big.Int

	// MaxFeePerGas is the fee cap per gas, in wei: 2×baseFee + tip
	MaxFeePerGas *big.Int
}

// EffectiveFee returns GasUnits × MaxFeePerGas in wei. Always non-negative;
// integer arithmetic throughout.
func (fe *FeeEstimate) EffectiveFee() *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(fe.GasUnits), fe.MaxFeePerGas)
}

// Estimator produces fee estimates for transaction intents sent from a fixed
// account. Estimates are computed fresh on every call; nothing is cached.
type Estimator struct {
	backend     Backend
	from        common.Address
	callTimeout time.Duration
	converter   FiatConverter // optional
	log         *logrus.Logger
}

// NewEstimator creates an estimator bound to a backend and sending address.
// The converter may be nil; it only feeds the fiat field of the estimate log.
func NewEstimator(backend Backend, from common.Address, callTimeout time.Duration, converter FiatConverter, log *logrus.Logger) *Estimator {
	return &Estimator{
		backend:     backend,
		from:        from,
		callTimeout: callTimeout,
		converter:   converter,
		log:         log,
	}
}

// Estimate queries the gas required for the intent and the current fee-market
// recommendation, and combines them into a FeeEstimate. Either query failing
// is a provider fault for this attempt; the estimator never retries.
func (e *Estimator) Estimate(ctx context.Context, intent *wallet.TransactionIntent) (*FeeEstimate, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	to := intent.To
	gasUnits, err := e.backend.EstimateGas(callCtx, ethereum.CallMsg{
		From:  e.from,
		To:    &to,
		Value: intent.Value,
	})
	if err != nil {
		return nil, wallet.NewWalletError(wallet.ErrCodeGasEstimationFailed, "failed to estimate gas", err)
	}

	tipCap, feeCap, err := e.suggestFeeCaps(ctx)
	if err != nil {
		return nil, err
	}

	estimate := &FeeEstimate{
		GasUnits:     gasUnits,
		GasTipCap:    tipCap,
		MaxFeePerGas: feeCap,
	}

	e.logEstimate(ctx, estimate)
	return estimate, nil
}

// suggestFeeCaps queries the fee market: suggested tip plus the latest base
// fee, capped at 2×baseFee + tip so the transaction survives near-term base
// fee growth. Pre-London chains report no base fee; the tip alone is used.
func (e *Estimator) suggestFeeCaps(ctx context.Context) (tipCap, feeCap *big.Int, err error) {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	tipCap, err = e.backend.SuggestGasTipCap(callCtx)
	if err != nil {
		return nil, nil, wallet.NewWalletError(wallet.ErrCodeFeeDataFailed, "failed to get suggested gas tip cap", err)
	}

	headerCtx, cancelHeader := context.WithTimeout(ctx, e.callTimeout)
	defer cancelHeader()

	header, err := e.backend.HeaderByNumber(headerCtx, nil)
	if err != nil {
		return nil, nil, wallet.NewWalletError(wallet.ErrCodeFeeDataFailed, "failed to get latest header", err)
	}

	if header.BaseFee == nil {
		return tipCap, new(big.Int).Set(tipCap), nil
	}

	feeCap = new(big.Int).Mul(header.BaseFee, big.NewInt(2))
	feeCap.Add(feeCap, tipCap)
	return tipCap, feeCap, nil
}

// logEstimate emits the per-attempt observability record. Fiat enrichment is
// best effort; a rate failure downgrades to a debug line and never affects
// the estimate.
func (e *Estimator) logEstimate(ctx context.Context, estimate *FeeEstimate) {
	effectiveFee := estimate.EffectiveFee()

	fields := logrus.Fields{
		"gas_estimate":      estimate.GasUnits,
		"max_fee_per_gas":   estimate.MaxFeePerGas.String(),
		"gas_tip_cap":       estimate.GasTipCap.String(),
		"effective_fee_wei": effectiveFee.String(),
		"effective_fee_eth": WeiToEther(effectiveFee),
	}

	if e.converter != nil {
		if fiat, err := e.converter.Convert(ctx, effectiveFee); err != nil {
			e.log.WithError(err).Debug("Fiat estimate unavailable")
		} else {
			fields["fiat_estimate"] = fiat
		}
	}

	e.log.WithFields(fields).Info("Gas estimate")
}

// WeiToEther scales a wei amount to ether as a float. Display only; the loop
// compares integer wei and never this value.
func WeiToEther(wei *big.Int) float64 {
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(wei),
		new(big.Float).SetInt(big.NewInt(params.Ether)),
	).Float64()
	return f
}
