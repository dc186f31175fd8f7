package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrReceiptTimeout means the transaction was not mined within the poll budget.
	ErrReceiptTimeout = errors.New("transaction receipt not found before poll limit")
	// ErrTransactionReverted means the transaction was mined with a failed status.
	ErrTransactionReverted = errors.New("transaction reverted")
)

// ReceiptSource looks up transaction receipts.
type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// PollPolicy bounds receipt polling with exponential backoff.
type PollPolicy struct {
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64
	MaxAttempts int
}

// DefaultPollPolicy polls for roughly three minutes on mainnet block times.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{Initial: time.Second, Max: 15 * time.Second, Multiplier: 2, MaxAttempts: 20}
}

func (p PollPolicy) normalized() PollPolicy {
	defaults := DefaultPollPolicy()
	if p.Initial <= 0 {
		p.Initial = defaults.Initial
	}
	if p.Max < p.Initial {
		p.Max = p.Initial
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaults.MaxAttempts
	}
	return p
}

// next returns the delay following the given one.
func (p PollPolicy) next(delay time.Duration) time.Duration {
	grown := time.Duration(float64(delay) * p.Multiplier)
	if grown > p.Max {
		return p.Max
	}
	return grown
}

// WaitForReceipt polls until the transaction is mined, the attempts run out,
// or ctx is done. ethereum.NotFound counts as "not mined yet".
// A reverted receipt is returned together with ErrTransactionReverted.
func WaitForReceipt(ctx context.Context, source ReceiptSource, hash common.Hash, policy PollPolicy) (*types.Receipt, error) {
	policy = policy.normalized()
	delay := policy.Initial
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for attempt := 1; ; attempt++ {
		receipt, err := source.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fmt.Errorf("%w: %s in block %s", ErrTransactionReverted, hash.Hex(), receipt.BlockNumber)
			}
			return receipt, nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			return nil, fmt.Errorf("fetch receipt %s: %w", hash.Hex(), err)
		}
		if attempt >= policy.MaxAttempts {
			return nil, fmt.Errorf("%w: %s after %d attempts", ErrReceiptTimeout, hash.Hex(), attempt)
		}

		timer.Reset(delay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay = policy.next(delay)
	}
}
