package call

import (
	"context"
	"errors"
	"fmt"
	"time"

	"compasseval/internal/agent"
)

// budget tracks one call against its RunLimits.
type budget struct {
	start   time.Time
	limits  RunLimits
	counter agent.TokenCounter
}

func newBudget(limits RunLimits, counter agent.TokenCounter) budget {
	return budget{start: time.Now(), limits: limits, counter: counter}
}

// check returns an ErrBudgetExceeded wrap naming the first limit reached.
func (b budget) check(history []agent.HistoryItem, steps int) error {
	if b.limits.MaxSeconds > 0 && b.elapsed() > b.limits.MaxSeconds {
		return fmt.Errorf("%w: ran longer than %s", ErrBudgetExceeded, b.limits.MaxSeconds)
	}
	if b.limits.MaxSteps > 0 && steps >= b.limits.MaxSteps {
		return fmt.Errorf("%w: %d model steps", ErrBudgetExceeded, steps)
	}
	if b.limits.MaxTokens > 0 && b.counter != nil {
		if tokens := b.counter(history); tokens > b.limits.MaxTokens {
			return fmt.Errorf("%w: about %d tokens of history", ErrBudgetExceeded, tokens)
		}
	}
	return nil
}

func (b budget) elapsed() time.Duration {
	return time.Since(b.start)
}

func (b budget) tokens(history []agent.HistoryItem) int {
	if b.counter == nil {
		return 0
	}
	return b.counter(history)
}

func reasonFor(err error) FailureReason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrBudgetExceeded):
		return ReasonBudget
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	default:
		return ReasonRuntime
	}
}

// lastAnswer is the most recent assistant text in history.
func lastAnswer(history []agent.HistoryItem) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != "assistant" {
			continue
		}
		if text, ok := history[i].Content.(agent.HistoryText); ok {
			return text.Text
		}
	}
	return ""
}
