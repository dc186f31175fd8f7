package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"compasseval/internal/compass"
	"compasseval/internal/config"
	"compasseval/internal/gasreport"
	"compasseval/internal/testutil"
)

const txTestKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

type fakeBackend struct {
	mu           sync.Mutex
	sent         []*types.Transaction
	status       uint64
	revertNonces map[uint64]bool
	estimatedFor []common.Address
	closed       bool
	chainID      *big.Int
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	return f.chainID, nil
}

func (f *fakeBackend) Send(_ context.Context, tx *types.Transaction) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return tx.Hash(), nil
}

func (f *fakeBackend) EstimateGas(_ context.Context, from common.Address, _ compass.UnsignedTx) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.estimatedFor = append(f.estimatedFor, from)
	return 25000, nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status := f.status
	for _, tx := range f.sent {
		if tx.Hash() == hash && f.revertNonces[tx.Nonce()] {
			status = types.ReceiptStatusFailed
		}
	}
	return &types.Receipt{
		TxHash:            hash,
		Status:            status,
		GasUsed:           21000,
		EffectiveGasPrice: big.NewInt(2_000_000_000),
		BlockNumber:       big.NewInt(10),
	}, nil
}

func (f *fakeBackend) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func txWorkspace(t *testing.T, backend *fakeBackend) (configPath, bodyPath string, server *testutil.CompassServer) {
	t.Helper()
	server = testutil.NewCompassServer(t, map[string]any{
		"/v1/aave/supply": map[string]any{
			"transaction": map[string]any{
				"chainId":              "0x1",
				"to":                   "0x00000000000000000000000000000000000000aa",
				"data":                 "0x0102",
				"value":                "0",
				"nonce":                "0x7",
				"gas":                  "0x5208",
				"maxFeePerGas":         "30000000000",
				"maxPriorityFeePerGas": "1000000000",
			},
		},
		"/v1/aave/withdraw": map[string]any{
			"chainId":              "0x1",
			"to":                   "0x00000000000000000000000000000000000000aa",
			"data":                 "0x0304",
			"nonce":                "8",
			"gas":                  "0x5208",
			"maxFeePerGas":         "30000000000",
			"maxPriorityFeePerGas": "1000000000",
		},
	})
	dir := t.TempDir()
	configPath = writeFile(t, dir, config.ConfigFileName, "version: 1\ncompass:\n  base_url: "+server.URL+
		"\nchain:\n  chain_id: 1\n  poll_initial_ms: 1\n  poll_max_ms: 2\n")
	bodyPath = writeFile(t, dir, "body.json", `{"token": "USDC", "amount": "1"}`)

	t.Setenv("COMPASS_API_KEY", "compass-key")
	t.Setenv("COMPASS_BASE_URL", "")
	t.Setenv("PRIVATE_KEY", txTestKey)
	original := dialChain
	dialChain = func(context.Context) (txBackend, error) { return backend, nil }
	t.Cleanup(func() { dialChain = original })
	return configPath, bodyPath, server
}

func TestTxSignsBroadcastsAndWaits(t *testing.T) {
	backend := &fakeBackend{status: types.ReceiptStatusSuccessful}
	configPath, bodyPath, server := txWorkspace(t, backend)

	var out, errOut bytes.Buffer
	code := Run([]string{"tx", "--path", "/v1/aave/supply", "--body", bodyPath, "--config", configPath}, &out, &errOut)
	if code != ExitOK {
		t.Fatalf("expected exit %d, got %d (stderr %q)", ExitOK, code, errOut.String())
	}
	if len(backend.sent) != 1 {
		t.Fatalf("expected one broadcast, got %d", len(backend.sent))
	}
	if backend.sent[0].Nonce() != 7 || backend.sent[0].Type() != types.DynamicFeeTxType {
		t.Fatalf("unexpected signed tx: nonce=%d type=%d", backend.sent[0].Nonce(), backend.sent[0].Type())
	}
	if !backend.closed {
		t.Fatalf("expected backend to be closed")
	}

	requests := server.Requests()
	if len(requests) != 1 || requests[0].Method != "POST" || requests[0].APIKey != "compass-key" {
		t.Fatalf("unexpected compass requests: %+v", requests)
	}
	var sentBody map[string]string
	if err := json.Unmarshal([]byte(requests[0].Body), &sentBody); err != nil || sentBody["token"] != "USDC" {
		t.Fatalf("expected body forwarded, got %q", requests[0].Body)
	}

	output := out.String()
	for _, want := range []string{"Transaction: " + backend.sent[0].Hash().Hex(), "Gas used: 21000", "Fee: 0.000042 ETH", "Status: success"} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected %q in output, got %q", want, output)
		}
	}
}

func TestTxNoWaitSkipsReceipt(t *testing.T) {
	backend := &fakeBackend{status: types.ReceiptStatusSuccessful}
	configPath, bodyPath, _ := txWorkspace(t, backend)

	var out, errOut bytes.Buffer
	code := Run([]string{"tx", "--path", "/v1/aave/supply", "--body", bodyPath, "--config", configPath, "--no-wait"}, &out, &errOut)
	if code != ExitOK {
		t.Fatalf("expected exit %d, got %d (stderr %q)", ExitOK, code, errOut.String())
	}
	if strings.Contains(out.String(), "Status:") {
		t.Fatalf("expected no receipt status, got %q", out.String())
	}
}

func TestTxReportsRevert(t *testing.T) {
	backend := &fakeBackend{status: types.ReceiptStatusFailed}
	configPath, bodyPath, _ := txWorkspace(t, backend)

	var out, errOut bytes.Buffer
	code := Run([]string{"tx", "--path", "/v1/aave/supply", "--body", bodyPath, "--config", configPath}, &out, &errOut)
	if code != ExitError {
		t.Fatalf("expected exit %d, got %d", ExitError, code)
	}
	if !strings.Contains(out.String(), "Status: reverted") {
		t.Fatalf("expected revert status, got %q", out.String())
	}
	if !strings.Contains(errOut.String(), "transaction reverted") {
		t.Fatalf("expected revert error, got %q", errOut.String())
	}
}

func TestTxCompassErrorStopsBeforeSigning(t *testing.T) {
	backend := &fakeBackend{status: types.ReceiptStatusSuccessful}
	configPath, bodyPath, _ := txWorkspace(t, backend)

	var out, errOut bytes.Buffer
	code := Run([]string{"tx", "--path", "/v1/unknown", "--body", bodyPath, "--config", configPath}, &out, &errOut)
	if code != ExitError {
		t.Fatalf("expected exit %d, got %d", ExitError, code)
	}
	if len(backend.sent) != 0 {
		t.Fatalf("expected nothing broadcast")
	}
	if !strings.Contains(errOut.String(), "build transaction") {
		t.Fatalf("expected build error, got %q", errOut.String())
	}
}

func TestTxRequiresPathAndBody(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := Run([]string{"tx", "--path", "/v1/aave/supply"}, &out, &errOut); code != ExitUsage {
		t.Fatalf("expected exit %d, got %d", ExitUsage, code)
	}
}

func TestResolveChainIDFallsBackToNode(t *testing.T) {
	backend := &fakeBackend{chainID: big.NewInt(8453)}
	chainID, err := resolveChainID(context.Background(), config.ChainConfig{}, backend)
	if err != nil {
		t.Fatalf("resolve chain id: %v", err)
	}
	if chainID.Int64() != 8453 {
		t.Fatalf("expected node chain id, got %s", chainID)
	}
}

const twoStepPlan = `steps:
  - name: supply_usdc
    path: /v1/aave/supply
    body:
      token: USDC
      amount: "2"
  - name: withdraw_usdc
    path: /v1/aave/withdraw
    body:
      token: USDC
      amount: "2"
`

func readGasReport(t *testing.T, path string) gasreport.Report {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read gas report: %v", err)
	}
	var report gasreport.Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode gas report: %v", err)
	}
	return report
}

func runPlanCommand(t *testing.T, backend *fakeBackend, plan string) (code int, report string, out, errOut *bytes.Buffer) {
	t.Helper()
	configPath, _, _ := txWorkspace(t, backend)
	dir := filepath.Dir(configPath)
	planPath := writeFile(t, dir, "plan.yml", plan)
	report = filepath.Join(dir, "reports", "gas.json")
	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}
	code = Run([]string{"tx", "--plan", planPath, "--report", report, "--config", configPath}, out, errOut)
	return code, report, out, errOut
}

func TestTxPlanSendsStepsInOrderAndWritesReport(t *testing.T) {
	backend := &fakeBackend{status: types.ReceiptStatusSuccessful}
	code, reportPath, out, errOut := runPlanCommand(t, backend, twoStepPlan)
	if code != ExitOK {
		t.Fatalf("expected exit %d, got %d (stderr %q)", ExitOK, code, errOut.String())
	}
	if len(backend.sent) != 2 || backend.sent[0].Nonce() != 7 || backend.sent[1].Nonce() != 8 {
		t.Fatalf("expected both steps broadcast in order, got %d", len(backend.sent))
	}
	if len(backend.estimatedFor) != 2 {
		t.Fatalf("expected a gas estimate per step, got %d", len(backend.estimatedFor))
	}

	report := readGasReport(t, reportPath)
	if len(report.Steps) != 2 || report.Steps[0].Name != "supply_usdc" || report.Steps[1].Step != 2 {
		t.Fatalf("unexpected steps %+v", report.Steps)
	}
	if report.Steps[1].TxHash != backend.sent[1].Hash().Hex() {
		t.Fatalf("expected step hash %s, got %s", backend.sent[1].Hash().Hex(), report.Steps[1].TxHash)
	}
	totals := report.Totals
	if totals.TotalUsedGas != 42000 || totals.TotalEstimatedGas != 50000 || totals.TotalFeeETH != "0.000084" || !totals.AllSucceeded {
		t.Fatalf("unexpected totals %+v", totals)
	}
	if report.ChainID != "1" || report.Error != "" {
		t.Fatalf("unexpected report header %+v", report)
	}

	output := out.String()
	for _, want := range []string{"[1/2] supply_usdc", "[2/2] withdraw_usdc", "Total gas used: 42000 (estimated 50000)", "Total fee: 0.000084 ETH", "Report: " + reportPath} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected %q in output, got %q", want, output)
		}
	}
}

func TestTxPlanRecordsRevertAndContinues(t *testing.T) {
	backend := &fakeBackend{status: types.ReceiptStatusSuccessful, revertNonces: map[uint64]bool{7: true}}
	code, reportPath, out, errOut := runPlanCommand(t, backend, twoStepPlan)
	if code != ExitError {
		t.Fatalf("expected exit %d, got %d", ExitError, code)
	}
	if len(backend.sent) != 2 {
		t.Fatalf("expected the plan to continue past a revert, got %d broadcasts", len(backend.sent))
	}
	report := readGasReport(t, reportPath)
	if report.Steps[0].Status != types.ReceiptStatusFailed || report.Totals.AllSucceeded {
		t.Fatalf("expected first step reverted, got %+v", report)
	}
	if !strings.Contains(out.String(), "fee 0.000042 ETH, reverted") {
		t.Fatalf("expected reverted step line, got %q", out.String())
	}
	if !strings.Contains(errOut.String(), "reverted transactions") {
		t.Fatalf("expected revert summary, got %q", errOut.String())
	}
}

func TestTxPlanStopsOnBuildFailureAndKeepsConfirmedSteps(t *testing.T) {
	backend := &fakeBackend{status: types.ReceiptStatusSuccessful}
	plan := strings.Replace(twoStepPlan, "/v1/aave/withdraw", "/v1/unknown", 1)
	code, reportPath, _, errOut := runPlanCommand(t, backend, plan)
	if code != ExitError {
		t.Fatalf("expected exit %d, got %d", ExitError, code)
	}
	if len(backend.sent) != 1 {
		t.Fatalf("expected only the first step broadcast, got %d", len(backend.sent))
	}
	report := readGasReport(t, reportPath)
	if len(report.Steps) != 1 || !strings.Contains(report.Error, "step 2 (withdraw_usdc)") {
		t.Fatalf("expected partial report with step error, got %+v", report)
	}
	if !strings.Contains(errOut.String(), "Plan stopped") {
		t.Fatalf("expected stop message, got %q", errOut.String())
	}
}

func TestTxPlanRejectsMalformedPlan(t *testing.T) {
	backend := &fakeBackend{status: types.ReceiptStatusSuccessful}
	code, _, _, errOut := runPlanCommand(t, backend, "steps:\n  - name: missing path\n")
	if code != ExitError {
		t.Fatalf("expected exit %d, got %d", ExitError, code)
	}
	if !strings.Contains(errOut.String(), "steps[0].path: is required") {
		t.Fatalf("expected plan issue, got %q", errOut.String())
	}
	if len(backend.sent) != 0 {
		t.Fatalf("expected nothing broadcast")
	}
}

func TestTxPlanUsageErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{name: "plan with path", args: []string{"tx", "--plan", "plan.yml", "--path", "/v1/aave/supply"}},
		{name: "plan with no-wait", args: []string{"tx", "--plan", "plan.yml", "--no-wait"}},
		{name: "report without plan", args: []string{"tx", "--path", "/v1/aave/supply", "--body", "b.json", "--report", "gas.json"}},
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
