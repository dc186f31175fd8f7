package live

import (
	"io"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"compasseval/internal/runner"
)

// Controller owns the Bubble Tea program and implements runner.RunObserver.
// Messages are delivered in order; after Close they are dropped.
type Controller struct {
	program *tea.Program
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

// Start runs the live UI on stdout in the alternate screen.
func Start(stdout io.Writer, opts Options) *Controller {
	if stdout == nil {
		stdout = os.Stdout
	}
	c := &Controller{
		program: tea.NewProgram(NewModel(opts), tea.WithOutput(stdout), tea.WithAltScreen()),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(c.done)
		_, _ = c.program.Run()
	}()
	return c
}

func (c *Controller) OnRunStart(info runner.RunInfo) { c.send(runStartedMsg(info)) }

func (c *Controller) OnCaseEvent(event runner.CaseEvent) { c.send(caseMsg(event)) }

// OnRunEnd shows the verdict and stops the program.
func (c *Controller) OnRunEnd(results runner.Results) {
	c.send(runEndedMsg(results.Report))
	c.Close()
}

// Close asks the program to quit. Safe to call more than once.
func (c *Controller) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.program != nil {
		c.program.Quit()
	}
}

// Wait blocks until the program has restored the terminal.
func (c *Controller) Wait() {
	if c == nil || c.done == nil {
		return
	}
	<-c.done
}

// send holds the lock so no message races with Quit.
func (c *Controller) send(msg tea.Msg) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.program == nil {
		return
	}
	c.program.Send(msg)
}
