package runner

import (
	"fmt"
	"io"
	"strings"

	"compasseval/internal/dataset"
	"compasseval/internal/trajectory"
)

// RunResult is what the agent produced for one case.
type RunResult struct {
	Case            dataset.Case `json:"case"`
	Answer          string       `json:"answer"`
	Trajectory      []string     `json:"trajectory"`
	ThreadID        string       `json:"thread_id"`
	WallTimeSeconds float64      `json:"wall_time_seconds"`
	Steps           int          `json:"steps"`
	Tokens          int          `json:"tokens"`
	Error           string       `json:"error,omitempty"`
}

// ScoredResult is a RunResult with its trajectory score.
type ScoredResult struct {
	// Index is the case position in the dataset.
	Index   int       `json:"index"`
	Run     RunResult `json:"run"`
	Key     string    `json:"key"`
	Score   float64   `json:"score"`
	Comment string    `json:"comment,omitempty"`
}

// Failing reports whether the case fell short of a perfect score.
func (s ScoredResult) Failing() bool {
	return !trajectory.Score{Value: s.Score}.Perfect()
}

// Report aggregates the scored cases of one run.
type Report struct {
	Threshold    float64        `json:"threshold"`
	MeanScore    float64        `json:"mean_score"`
	Results      []ScoredResult `json:"results"`
	FailingCases []ScoredResult `json:"failing_cases"`
	Pass         bool           `json:"pass"`
}

// NewReport aggregates results, which must be in dataset order.
func NewReport(results []ScoredResult, threshold float64) Report {
	report := Report{
		Threshold:    threshold,
		Results:      results,
		FailingCases: []ScoredResult{},
	}
	if report.Results == nil {
		report.Results = []ScoredResult{}
	}
	total := 0.0
	for _, result := range results {
		total += result.Score
		if result.Failing() {
			report.FailingCases = append(report.FailingCases, result)
		}
	}
	if len(results) > 0 {
		report.MeanScore = total / float64(len(results))
	}
	report.Pass = report.MeanScore >= threshold
	return report
}

// Err returns a ThresholdNotMetError when the run did not pass.
func (r Report) Err() error {
	if r.Pass {
		return nil
	}
	failing := make([]string, 0, len(r.FailingCases))
	for _, result := range r.FailingCases {
		failing = append(failing, result.Run.Case.Question)
	}
	return &ThresholdNotMetError{MeanScore: r.MeanScore, Threshold: r.Threshold, Failing: failing}
}

// ThresholdNotMetError reports a mean score below the pass threshold.
type ThresholdNotMetError struct {
	MeanScore float64
	Threshold float64
	Failing   []string
}

func (err *ThresholdNotMetError) Error() string {
	return fmt.Sprintf("less than %s of the trajectory tests passed: grade = %s", formatPercent(err.Threshold), formatPercent(err.MeanScore))
}

const failureRule = "----------------------"

// WriteFailures prints a diagnostic block per failing case.
func WriteFailures(w io.Writer, report Report) error {
	var builder strings.Builder
	for _, result := range report.FailingCases {
		fmt.Fprintln(&builder, failureRule)
		fmt.Fprintln(&builder, "-> trajectories don't match!")
		fmt.Fprintf(&builder, "question:          %s\n", result.Run.Case.Question)
		fmt.Fprintf(&builder, "answer:            %s\n", result.Run.Answer)
		fmt.Fprintf(&builder, "reference-answer:  %s\n", result.Run.Case.Answer)
		fmt.Fprintf(&builder, "trajectory:           %s\n", formatTrajectory(result.Run.Trajectory))
		fmt.Fprintf(&builder, "reference.trajectory: %s\n", formatTrajectory(result.Run.Case.Trajectory))
		fmt.Fprintf(&builder, "score:             %.3f\n", result.Score)
		if result.Comment != "" {
			fmt.Fprintf(&builder, "comment:           %s\n", result.Comment)
		}
		fmt.Fprintln(&builder, failureRule)
	}
	_, err := io.WriteString(w, builder.String())
	return err
}

// WriteVerdict prints the grade line.
func WriteVerdict(w io.Writer, report Report) error {
	if err := report.Err(); err != nil {
		_, writeErr := fmt.Fprintln(w, err.Error())
		return writeErr
	}
	_, err := fmt.Fprintf(w, "more than %s of the trajectory tests passed: grade = %s\n", formatPercent(report.Threshold), formatPercent(report.MeanScore))
	return err
}

func formatPercent(value float64) string {
	return fmt.Sprintf("%.2f%%", value*100)
}

func formatTrajectory(steps []string) string {
	quoted := make([]string, 0, len(steps))
	for _, step := range steps {
		quoted = append(quoted, fmt.Sprintf("%q", step))
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
