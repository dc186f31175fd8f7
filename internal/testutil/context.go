package testutil

import (
	"context"
	"testing"
	"time"
)

// Context derives from t.Context, so it is cancelled when the test ends, and
// adds a deadline of timeout. The deadline is clipped to leave a second
// before the go test -timeout fires so failures report the hung test.
func Context(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	if deadline, ok := t.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline)-time.Second)
	}
	ctx, cancel := context.WithTimeout(t.Context(), max(timeout, time.Millisecond))
	t.Cleanup(cancel)
	return ctx
}
