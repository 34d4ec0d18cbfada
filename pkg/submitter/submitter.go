// Package submitter implements the fee-gated submission loop: it repeatedly
// estimates the effective fee of one transaction intent against a configured
// threshold, waits between attempts, submits once the threshold is met, and
// reports the realized fee from the receipt.
package submitter

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gasgate/gasgate/pkg/feemarket"
	"github.com/gasgate/gasgate/pkg/wallet"
)

// FeeEstimator produces a fresh fee estimate for an intent.
type FeeEstimator interface {
	Estimate(ctx context.Context, intent *wallet.TransactionIntent) (*feemarket.FeeEstimate, error)
}

// Broadcaster signs, broadcasts and confirms transactions.
type Broadcaster interface {
	Send(ctx context.Context, intent *wallet.TransactionIntent, gasLimit uint64, gasTipCap, gasFeeCap *big.Int) (common.Hash, error)
	WaitForReceipt(ctx context.Context, hash common.Hash) (*wallet.TransactionStatus, error)
}

// FiatConverter converts a wei amount into a fiat value. Optional.
type FiatConverter interface {
	Convert(ctx context.Context, weiAmount *big.Int) (float64, error)
}

// Status is the terminal state of one run.
type Status string

const (
	// StatusSubmitted means the transaction was broadcast and confirmed
	StatusSubmitted Status = "SUBMITTED"

	// StatusExhausted means the fee never met the threshold within the
	// attempt budget; no transaction was sent
	StatusExhausted Status = "EXHAUSTED"
)

// Outcome is the terminal report of one run. Exhaustion is an explicit
// outcome, distinguishable from a successful submission.
type Outcome struct {
	// RunID identifies the run in log records
	RunID uuid.UUID

	// Status is the terminal state
	Status Status

	// Attempts is how many estimation attempts were made
	Attempts int

	// LastEstimateWei is the effective fee of the final estimation attempt
	LastEstimateWei *big.Int

	// TxHash, GasUsed, EffectiveGasPrice and RealizedFeeWei are set only
	// when Status is StatusSubmitted
	TxHash            common.Hash
	GasUsed           uint64
	EffectiveGasPrice *big.Int
	RealizedFeeWei    *big.Int

	// FiatValue is the realized fee in fiat, when conversion succeeded
	FiatValue *float64
}

// Config holds the loop parameters for one run.
type Config struct {
	// FeeThresholdWei is the maximum effective fee tolerated, in wei
	FeeThresholdWei *big.Int

	// MaxAttempts is the total number of estimation attempts
	MaxAttempts int

	// PollInterval is the delay between estimation attempts
	PollInterval time.Duration
}

// Submitter runs the fee-gated submission loop for single transaction
// intents. One Submitter handles one run at a time; it keeps no state
// between runs.
type Submitter struct {
	estimator   FeeEstimator
	broadcaster Broadcaster
	converter   FiatConverter // optional
	config      Config
	log         *logrus.Logger
}

// New creates a submitter. The converter may be nil, in which case outcomes
// carry the native-unit fee only.
func New(estimator FeeEstimator, broadcaster Broadcaster, converter FiatConverter, config Config, log *logrus.Logger) *Submitter {
	return &Submitter{
		estimator:   estimator,
		broadcaster: broadcaster,
		converter:   converter,
		config:      config,
		log:         log,
	}
}

// Run processes one intent end to end. It estimates the effective fee, and
// while the fee exceeds the threshold and attempts remain, waits one poll
// interval and re-estimates. Once the threshold is met the transaction is
// submitted exactly once and the confirmed receipt is reported.
//
// Estimation failures are provider faults and abort the run immediately;
// only a genuine above-threshold fee consumes an attempt. When the budget
// runs out the returned outcome has StatusExhausted and no transaction has
// been sent.
//
// The fee is not re-checked between the passing estimate and the broadcast;
// that staleness window is accepted for low-value transfers.
func (s *Submitter) Run(ctx context.Context, intent *wallet.TransactionIntent) (*Outcome, error) {
	runID := uuid.New()
	log := s.log.WithFields(logrus.Fields{
		"run_id":    runID.String(),
		"recipient": intent.To.Hex(),
	})

	var estimate *feemarket.FeeEstimate
	attempt := 0
	for {
		attempt++

		var err error
		estimate, err = s.estimator.Estimate(ctx, intent)
		if err != nil {
			return nil, err
		}

		effectiveFee := estimate.EffectiveFee()
		if effectiveFee.Cmp(s.config.FeeThresholdWei) <= 0 {
			break
		}

		log.WithFields(logrus.Fields{
			"attempt":           attempt,
			"effective_fee_wei": effectiveFee.String(),
			"threshold_wei":     s.config.FeeThresholdWei.String(),
		}).Info("Gas fee too high")

		if attempt >= s.config.MaxAttempts {
			outcome := &Outcome{
				RunID:           runID,
				Status:          StatusExhausted,
				Attempts:        attempt,
				LastEstimateWei: effectiveFee,
			}
			log.WithFields(logrus.Fields{
				"attempts":          attempt,
				"last_estimate_wei": effectiveFee.String(),
			}).Warn("Retry budget exhausted, no transaction sent")
			return outcome, nil
		}

		if err := s.wait(ctx); err != nil {
			return nil, err
		}
	}

	hash, err := s.broadcaster.Send(ctx, intent, estimate.GasUnits, estimate.GasTipCap, estimate.MaxFeePerGas)
	if err != nil {
		return nil, err
	}

	status, err := s.broadcaster.WaitForReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		RunID:             runID,
		Status:            StatusSubmitted,
		Attempts:          attempt,
		LastEstimateWei:   estimate.EffectiveFee(),
		TxHash:            status.Hash,
		GasUsed:           status.GasUsed,
		EffectiveGasPrice: status.EffectiveGasPrice,
		RealizedFeeWei:    status.RealizedFee(),
	}

	fields := logrus.Fields{
		"tx_hash":             outcome.TxHash.Hex(),
		"gas_used":            outcome.GasUsed,
		"effective_gas_price": outcome.EffectiveGasPrice.String(),
		"realized_fee_wei":    outcome.RealizedFeeWei.String(),
		"realized_fee_eth":    feemarket.WeiToEther(outcome.RealizedFeeWei),
		"attempts":            attempt,
	}

	if s.converter != nil {
		if fiat, err := s.converter.Convert(ctx, outcome.RealizedFeeWei); err != nil {
			// Fiat reporting is not essential to the transaction's success;
			// the outcome still carries the native-unit fee.
			log.WithError(err).Warn("Fiat conversion unavailable, reporting native fee only")
		} else {
			outcome.FiatValue = &fiat
			fields["fiat_fee"] = fiat
		}
	}

	log.WithFields(fields).Info("Transaction gas fee used")
	return outcome, nil
}

// wait suspends for one poll interval, yielding early if the context ends.
func (s *Submitter) wait(ctx context.Context) error {
	timer := time.NewTimer(s.config.PollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return wallet.NewWalletError(wallet.ErrCodeTimeout, "cancelled while waiting for lower fees", ctx.Err())
	case <-timer.C:
		return nil
	}
}
