package runner

import (
	"io"
	"sync"
)

// sharedLockWriter serializes writes through a mutex shared with its sibling,
// so a console block and its log mirror from one worker are never split.
type sharedLockWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (s sharedLockWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Fd lets terminal detection see through the wrapper.
func (s sharedLockWriter) Fd() uintptr {
	if f, ok := s.w.(interface{ Fd() uintptr }); ok {
		return f.Fd()
	}
	return ^uintptr(0)
}

// WrapVerboseWriters guards the verbose console and log writers when more
// than one case runs at once. Nil writers stay nil.
func WrapVerboseWriters(workers int, console, logFile io.Writer) (io.Writer, io.Writer) {
	if workers <= 1 {
		return console, logFile
	}
	mu := &sync.Mutex{}
	wrap := func(w io.Writer) io.Writer {
		if w == nil {
			return nil
		}
		return sharedLockWriter{mu: mu, w: w}
	}
	return wrap(console), wrap(logFile)
}
