//go:build cucumber

package cucumber

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/cucumber/godog"

	"compasseval/internal/testutil"
)

// featureState holds scenario state for cucumber CLI tests.
type featureState struct {
	t           testing.TB
	workDir     string
	previousWD  string
	previousEnv map[string]*string
	compass     *testutil.CompassServer
	chat        *testutil.ChatServer
	scripts     map[string]testutil.ChatScript
	lastCommand string
	stdout      bytes.Buffer
	stderr      bytes.Buffer
	exitCode    int
}

// InitializeScenario wires cucumber steps to the feature state.
func InitializeScenario(ctx *godog.ScenarioContext, t testing.TB) {
	state := &featureState{t: t}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		state.reset()
		return ctx, nil
	})

	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		state.cleanup()
		return ctx, nil
	})

	ctx.Step(`^a workspace with the sample dataset$`, state.aWorkspaceWithTheSampleDataset)
	ctx.Step(`^a fake Compass API$`, state.aFakeCompassAPI)
	ctx.Step(`^model and Compass credentials are available in the environment$`, state.credentialsAreAvailable)
	ctx.Step(`^the model calls these tools:$`, state.theModelCallsTheseTools)
	ctx.Step(`^I run "([^"]+)"$`, state.iRunCommand)
	ctx.Step(`^the exit code is (\d+)$`, state.theExitCodeIs)
	ctx.Step(`^the output lists these commands:$`, state.theOutputListsCommands)
	ctx.Step(`^stdout contains "(.*)"$`, state.stdoutContains)
	ctx.Step(`^stderr contains "(.*)"$`, state.stderrContains)
	ctx.Step(`^the run results file lists (\d+) cases$`, state.theRunResultsFileListsCases)
}

// reset clears buffers and resets state before each scenario.
func (s *featureState) reset() {
	s.stdout.Reset()
	s.stderr.Reset()
	s.exitCode = 0
	s.lastCommand = ""
	s.previousEnv = map[string]*string{}
	s.compass = nil
	s.chat = nil
	s.scripts = map[string]testutil.ChatScript{}
}

// cleanup restores environment and removes temporary files.
func (s *featureState) cleanup() {
	if s.previousWD != "" {
		_ = os.Chdir(s.previousWD)
		s.previousWD = ""
	}
	for key, value := range s.previousEnv {
		if value == nil {
			_ = os.Unsetenv(key)
			continue
		}
		_ = os.Setenv(key, *value)
	}
	if s.workDir != "" {
		_ = os.RemoveAll(s.workDir)
		s.workDir = ""
	}
}

// setEnv records and sets an environment variable for the scenario.
func (s *featureState) setEnv(key, value string) error {
	if _, exists := s.previousEnv[key]; !exists {
		if current, ok := os.LookupEnv(key); ok {
			copy := current
			s.previousEnv[key] = &copy
		} else {
			s.previousEnv[key] = nil
		}
	}
	if err := os.Setenv(key, value); err != nil {
		return fmt.Errorf("set env %s: %w", key, err)
	}
	return nil
}
