package gasreport

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"compasseval/internal/chain"
)

// StepResult records one confirmed transaction of a plan.
type StepResult struct {
	Step         int       `json:"step"`
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Timestamp    time.Time `json:"time_stamp"`
	TxHash       string    `json:"tx_hash"`
	EstimatedGas uint64    `json:"estimated_gas"`
	UsedGas      uint64    `json:"used_gas"`
	FeeWei       *big.Int  `json:"fee_wei"`
	FeeETH       string    `json:"fee_eth"`
	Status       uint64    `json:"tx_receipt_status"`
}

// Succeeded reports whether the receipt status was successful.
func (r StepResult) Succeeded() bool {
	return r.Status == types.ReceiptStatusSuccessful
}

// NewStepResult fills gas and fee fields from a receipt.
func NewStepResult(step int, name, path string, at time.Time, estimated uint64, receipt *types.Receipt) StepResult {
	result := StepResult{
		Step:         step,
		Name:         name,
		Path:         path,
		Timestamp:    at.UTC(),
		TxHash:       receipt.TxHash.Hex(),
		EstimatedGas: estimated,
		UsedGas:      receipt.GasUsed,
		FeeWei:       chain.GasCostWei(receipt),
		Status:       receipt.Status,
	}
	result.FeeETH = chain.FormatEther(result.FeeWei)
	return result
}

// Totals sums a plan's gas usage.
type Totals struct {
	Steps             int      `json:"steps"`
	TotalEstimatedGas uint64   `json:"total_estimated_gas"`
	TotalUsedGas      uint64   `json:"total_used_gas"`
	TotalFeeWei       *big.Int `json:"total_fee_wei"`
	TotalFeeETH       string   `json:"total_fee_eth"`
	AllSucceeded      bool     `json:"all_succeeded"`
}

// Summarize totals the steps. An empty plan never counts as succeeded.
func Summarize(steps []StepResult) Totals {
	totals := Totals{Steps: len(steps), TotalFeeWei: big.NewInt(0), AllSucceeded: len(steps) > 0}
	for _, step := range steps {
		totals.TotalEstimatedGas += step.EstimatedGas
		totals.TotalUsedGas += step.UsedGas
		if step.FeeWei != nil {
			totals.TotalFeeWei.Add(totals.TotalFeeWei, step.FeeWei)
		}
		if !step.Succeeded() {
			totals.AllSucceeded = false
		}
	}
	totals.TotalFeeETH = chain.FormatEther(totals.TotalFeeWei)
	return totals
}

// Report is the JSON document written after a plan runs.
type Report struct {
	Plan        string       `json:"plan"`
	ChainID     string       `json:"chain_id"`
	Sender      string       `json:"sender"`
	GeneratedAt time.Time    `json:"generated_at"`
	Steps       []StepResult `json:"sequential_requests"`
	Totals      Totals       `json:"sequential_gas_totals"`
	Error       string       `json:"error,omitempty"`
}

// Write stores the report as indented JSON, creating parent directories.
func Write(path string, report Report) error {
	if report.Steps == nil {
		report.Steps = []StepResult{}
	}
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal gas report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, append(payload, '\n'), 0o644); err != nil {
		return fmt.Errorf("write gas report: %w", err)
	}
	return nil
}
