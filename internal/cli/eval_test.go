package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"compasseval/internal/config"
	"compasseval/internal/runner"
	"compasseval/internal/store"
)

const twoCaseDataset = `tests:
  - question: "What is the price of WETH?"
    answer: "WETH trades at 3000 USD."
    trajectory: ["get_token_price"]
  - question: "How much USDC does my wallet hold?"
    answer: "You hold 100 USDC."
    trajectory: ["get_token_balance"]
`

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// stubAgent replaces agent construction with a scripted trajectory per question.
func stubAgent(t *testing.T, trajectories map[string][]string) *string {
	t.Helper()
	var gotModel string
	original := buildAgent
	buildAgent = func(_ config.Config, model string, _ verboseOptions) (runner.Agent, error) {
		gotModel = model
		return runner.AgentFunc(func(_ context.Context, question, _ string) (runner.Invocation, error) {
			steps, ok := trajectories[question]
			if !ok {
				return runner.Invocation{}, errors.New("model unavailable")
			}
			return runner.Invocation{Answer: "ok", Trajectory: steps}, nil
		}), nil
	}
	t.Cleanup(func() { buildAgent = original })
	return &gotModel
}

func evalWorkspace(t *testing.T) (dir, datasetPath, configPath string) {
	t.Helper()
	dir = t.TempDir()
	datasetPath = writeFile(t, dir, "dataset.yml", twoCaseDataset)
	configPath = writeFile(t, dir, config.ConfigFileName, "version: 1\neval:\n  output_dir: "+filepath.Join(dir, "out")+"\n")
	return dir, datasetPath, configPath
}

func TestEvalPassesWhenTrajectoriesMatch(t *testing.T) {
	_, datasetPath, configPath := evalWorkspace(t)
	gotModel := stubAgent(t, map[string][]string{
		"What is the price of WETH?":         {"get_token_price"},
		"How much USDC does my wallet hold?": {"get_token_balance"},
	})

	var out, errOut bytes.Buffer
	code := Run([]string{"eval", datasetPath, "--config", configPath, "--ui", "plain", "--model", "gpt-4o"}, &out, &errOut)
	if code != ExitOK {
		t.Fatalf("expected exit %d, got %d (stderr %q)", ExitOK, code, errOut.String())
	}
	if *gotModel != "gpt-4o" {
		t.Fatalf("expected model flag to reach the agent, got %q", *gotModel)
	}
	output := out.String()
	if !strings.Contains(output, "more than 90.00% of the trajectory tests passed: grade = 100.00%") {
		t.Fatalf("expected passing verdict, got %q", output)
	}
	if strings.Contains(output, "trajectories don't match") {
		t.Fatalf("expected no failure blocks, got %q", output)
	}
	if !strings.Contains(output, "Results: ") || !strings.Contains(output, "Report: ") {
		t.Fatalf("expected artifact paths, got %q", output)
	}
}

func TestEvalFailsBelowThreshold(t *testing.T) {
	_, datasetPath, configPath := evalWorkspace(t)
	stubAgent(t, map[string][]string{
		"What is the price of WETH?":         {"get_token_price"},
		"How much USDC does my wallet hold?": {"get_token_price"},
	})

	var out, errOut bytes.Buffer
	code := Run([]string{"eval", datasetPath, "--config", configPath, "--ui", "plain"}, &out, &errOut)
	if code != ExitError {
		t.Fatalf("expected exit %d, got %d", ExitError, code)
	}
	output := out.String()
	if !strings.Contains(output, "-> trajectories don't match!") {
		t.Fatalf("expected failure diagnostics, got %q", output)
	}
	if !strings.Contains(output, `reference.trajectory: ["get_token_balance"]`) {
		t.Fatalf("expected reference trajectory, got %q", output)
	}
	if !strings.Contains(output, "less than 90.00% of the trajectory tests passed: grade = 50.00%") {
		t.Fatalf("expected failing verdict, got %q", output)
	}
}

func TestEvalThresholdFlagOverridesConfig(t *testing.T) {
	_, datasetPath, configPath := evalWorkspace(t)
	stubAgent(t, map[string][]string{
		"What is the price of WETH?": {"get_token_price"},
	})

	var out, errOut bytes.Buffer
	code := Run([]string{"eval", datasetPath, "--config", configPath, "--ui", "plain", "--threshold", "0.5"}, &out, &errOut)
	if code != ExitOK {
		t.Fatalf("expected exit %d, got %d (stdout %q)", ExitOK, code, out.String())
	}
	output := out.String()
	if !strings.Contains(output, "agent invocation failed: ") {
		t.Fatalf("expected failed invocation comment, got %q", output)
	}
	if !strings.Contains(output, "more than 50.00% of the trajectory tests passed: grade = 50.00%") {
		t.Fatalf("expected verdict at the flag threshold, got %q", output)
	}
}

func TestEvalUsageErrors(t *testing.T) {
	_, datasetPath, configPath := evalWorkspace(t)
	stubAgent(t, nil)

	cases := []struct {
		name string
		args []string
	}{
		{name: "missing dataset", args: []string{"eval", "--config", configPath}},
		{name: "threshold above one", args: []string{"eval", datasetPath, "--config", configPath, "--threshold", "1.5"}},
		{name: "negative threshold", args: []string{"eval", datasetPath, "--config", configPath, "--threshold", "-0.1"}},
		{name: "NaN threshold", args: []string{"eval", datasetPath, "--config", configPath, "--threshold", "NaN"}},
		{name: "unknown model", args: []string{"eval", datasetPath, "--config", configPath, "--model", "gpt-2"}},
		{name: "bad ui mode", args: []string{"eval", datasetPath, "--config", configPath, "--ui", "fancy"}},
		{name: "zero concurrency", args: []string{"eval", datasetPath, "--config", configPath, "--concurrency", "0"}},
		{name: "upload without provider", args: []string{"eval", datasetPath, "--config", configPath, "--upload"}},
		{name: "unknown flag", args: []string{"eval", datasetPath, "--bogus"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			if code := Run(tc.args, &out, &errOut); code != ExitUsage {
				t.Fatalf("expected exit %d, got %d (stderr %q)", ExitUsage, code, errOut.String())
			}
		})
	}
}

func TestEvalRejectsNaNThresholdBeforeRunning(t *testing.T) {
	dir, datasetPath, configPath := evalWorkspace(t)
	stubAgent(t, map[string][]string{
		"What is the price of WETH?":         {"get_token_price"},
		"How much USDC does my wallet hold?": {"get_token_balance"},
	})

	var out, errOut bytes.Buffer
	code := Run([]string{"eval", datasetPath, "--config", configPath, "--ui", "plain", "--threshold", "NaN"}, &out, &errOut)
	if code != ExitUsage {
		t.Fatalf("expected exit %d, got %d (stderr %q)", ExitUsage, code, errOut.String())
	}
	if !strings.Contains(errOut.String(), "Invalid threshold") {
		t.Fatalf("expected threshold error, got %q", errOut.String())
	}
	if strings.Contains(out.String(), "score") {
		t.Fatalf("expected no cases to run, got %q", out.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "out")); !os.IsNotExist(err) {
		t.Fatalf("expected no output directory, got %v", err)
	}
}

func TestEvalRejectsInvalidDataset(t *testing.T) {
	dir, _, configPath := evalWorkspace(t)
	bad := writeFile(t, dir, "bad.yml", "tests:\n  - question: \"\"\n    answer: x\n")
	stubAgent(t, nil)

	var out, errOut bytes.Buffer
	code := Run([]string{"eval", bad, "--config", configPath, "--ui", "plain"}, &out, &errOut)
	if code != ExitError {
		t.Fatalf("expected exit %d, got %d", ExitError, code)
	}
	if !strings.Contains(errOut.String(), "Failed to load dataset") {
		t.Fatalf("expected dataset error, got %q", errOut.String())
	}
}

func TestEvalRecordsRunInStore(t *testing.T) {
	dir, datasetPath, configPath := evalWorkspace(t)
	stubAgent(t, map[string][]string{
		"What is the price of WETH?":         {"get_token_price"},
		"How much USDC does my wallet hold?": {"get_token_balance"},
	})
	storeFile := filepath.Join(dir, "results.duckdb")

	var out, errOut bytes.Buffer
	code := Run([]string{"eval", datasetPath, "--config", configPath, "--ui", "plain", "--store", storeFile}, &out, &errOut)
	if code != ExitOK {
		t.Fatalf("expected exit %d, got %d (stderr %q)", ExitOK, code, errOut.String())
	}

	ctx := context.Background()
	db, err := store.Open(ctx, storeFile)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()
	records, err := store.RunHistoryForSource(ctx, db, datasetPath, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one recorded run, got %d", len(records))
	}
	if !records[0].Pass || records[0].Cases != 2 {
		t.Fatalf("unexpected record: %+v", records[0])
	}
}

func TestEvalUsesLiveUIWhenTerminal(t *testing.T) {
	_, datasetPath, configPath := evalWorkspace(t)
	stubAgent(t, map[string][]string{
		"What is the price of WETH?":         {"get_token_price"},
		"How much USDC does my wallet hold?": {"get_token_balance"},
	})
	originalTerminal := isTerminal
	isTerminal = func(_ io.Writer) bool { return true }
	t.Cleanup(func() { isTerminal = originalTerminal })

	fake := &fakeLive{}
	originalLive := startLiveUI
	startLiveUI = func(_ io.Writer, _ bool, interrupt func()) liveController {
		if interrupt == nil {
			t.Errorf("expected an interrupt hook")
		}
		return fake
	}
	t.Cleanup(func() { startLiveUI = originalLive })

	var out, errOut bytes.Buffer
	if code := Run([]string{"eval", datasetPath, "--config", configPath}, &out, &errOut); code != ExitOK {
		t.Fatalf("expected exit %d, got %d (stderr %q)", ExitOK, code, errOut.String())
	}
	if !fake.started || !fake.ended || !fake.closed || !fake.waited {
		t.Fatalf("expected full live lifecycle, got %+v", fake)
	}
	if strings.Contains(out.String(), "[1/2]") {
		t.Fatalf("plain progress should be off in live mode: %q", out.String())
	}
}

type fakeLive struct {
	mu      sync.Mutex
	started bool
	events  int
	ended   bool
	closed  bool
	waited  bool
}

func (f *fakeLive) OnRunStart(runner.RunInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
}

func (f *fakeLive) OnCaseEvent(runner.CaseEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events++
}

func (f *fakeLive) OnRunEnd(runner.Results) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = true
}

func (f *fakeLive) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeLive) Wait() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waited = true
}
