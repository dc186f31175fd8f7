package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"compasseval/internal/runner"
)

// plainObserver prints one line per finished case.
type plainObserver struct {
	mu    sync.Mutex
	out   io.Writer
	total int
}

func newPlainObserver(out io.Writer) *plainObserver {
	return &plainObserver{out: out}
}

func (o *plainObserver) OnRunStart(info runner.RunInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.total = len(info.Cases)
	fmt.Fprintf(o.out, "Run %s: %d cases with %s\n", info.RunID, o.total, info.Model)
}

func (o *plainObserver) OnCaseEvent(event runner.CaseEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch event.Type {
	case runner.CaseScored:
		fmt.Fprintf(o.out, "[%d/%d] score %.2f (%s)\n", event.Index+1, o.total, event.Score, event.WallTime.Round(time.Millisecond))
	case runner.CaseFailed:
		fmt.Fprintf(o.out, "[%d/%d] failed: %s\n", event.Index+1, o.total, event.Error)
	}
}

func (o *plainObserver) OnRunEnd(runner.Results) {}
