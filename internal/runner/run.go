package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"compasseval/internal/dataset"
)

// Results is the persisted record of one evaluation run.
type Results struct {
	RunID       string    `json:"run_id"`
	Dataset     string    `json:"dataset"`
	DatasetName string    `json:"dataset_name"`
	Model       string    `json:"model"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Report      Report    `json:"report"`
}

// RunParams configures Run.
type RunParams struct {
	DatasetPath string
	Cases       []dataset.Case
	Model       string
	Agent       Agent
	Eval        EvalOptions
	OutputDir   string
	RunID       func() (string, error)
	Now         func() time.Time
}

// Run evaluates a dataset and wraps the report with run metadata.
// On cancellation the partial results are returned together with the error.
func Run(ctx context.Context, params RunParams) (Results, error) {
	if params.Agent == nil {
		return Results{}, errors.New("agent is required")
	}
	runID, err := ensureRunID(params.RunID)
	if err != nil {
		return Results{}, fmt.Errorf("run id: %w", err)
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	startedAt := now().UTC()

	results := Results{
		RunID:       runID,
		Dataset:     params.DatasetPath,
		DatasetName: dataset.DatasetName(params.DatasetPath, startedAt),
		Model:       params.Model,
		StartedAt:   startedAt,
	}

	observer := params.Eval.Observer
	if observer != nil {
		questions := make([]string, 0, len(params.Cases))
		for _, item := range params.Cases {
			questions = append(questions, item.Question)
		}
		observer.OnRunStart(RunInfo{
			RunID:     runID,
			Dataset:   params.DatasetPath,
			Model:     params.Model,
			Cases:     questions,
			Threshold: params.Eval.Threshold,
		})
	}

	report, evalErr := Evaluate(ctx, params.Cases, params.Agent, params.Eval)
	results.Report = report
	results.FinishedAt = now().UTC()
	if observer != nil {
		observer.OnRunEnd(results)
	}
	return results, evalErr
}

// RunAndWrite runs the evaluation and writes its artifacts under OutputDir.
// Artifacts are written for interrupted runs too.
func RunAndWrite(ctx context.Context, params RunParams) (Results, OutputPaths, error) {
	results, runErr := Run(ctx, params)
	if results.RunID == "" {
		return results, OutputPaths{}, runErr
	}
	paths, err := WriteRunOutputs(context.WithoutCancel(ctx), results, params.OutputDir)
	if err != nil {
		return results, OutputPaths{}, errors.Join(runErr, err)
	}
	return results, paths, runErr
}

func ensureRunID(generator func() (string, error)) (string, error) {
	if generator != nil {
		return generator()
	}
	return NewRunID()
}
