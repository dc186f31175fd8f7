package runner

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/a-h/templ"
)

const (
	resultsFileName = "results.json"
	reportFileName  = "report.html"
)

//go:embed report.html.tmpl
var reportTemplateText string

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"percent":    formatPercent,
	"trajectory": func(steps []string) string { return strings.Join(steps, " → ") },
}).Parse(reportTemplateText))

// ReportPage renders the HTML report of a run.
func ReportPage(results Results) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return reportTemplate.Execute(w, results)
	})
}

// OutputPaths locates the artifacts of one run under <root>/<run id>.
type OutputPaths struct {
	Root  string
	RunID string
}

// NewOutputPaths rejects an empty root or run id.
func NewOutputPaths(root, runID string) (OutputPaths, error) {
	switch {
	case strings.TrimSpace(root) == "":
		return OutputPaths{}, fmt.Errorf("output root is empty")
	case strings.TrimSpace(runID) == "":
		return OutputPaths{}, fmt.Errorf("run ID is empty")
	}
	return OutputPaths{Root: root, RunID: runID}, nil
}

// RunDir returns the directory holding the artifacts of the run.
func (o OutputPaths) RunDir() string {
	return filepath.Join(o.Root, o.RunID)
}

// ResultsPath returns the path of results.json for the run.
func (o OutputPaths) ResultsPath() string {
	return filepath.Join(o.RunDir(), resultsFileName)
}

// ReportPath returns the path of report.html for the run.
func (o OutputPaths) ReportPath() string {
	return filepath.Join(o.RunDir(), reportFileName)
}

// Artifacts lists the files WriteRunOutputs produces, results first.
func (o OutputPaths) Artifacts() []string {
	return []string{o.ResultsPath(), o.ReportPath()}
}

// WriteRunOutputs writes results.json and report.html for a run.
// Each file is renamed into place so readers never see a partial write.
func WriteRunOutputs(ctx context.Context, results Results, outputDir string) (OutputPaths, error) {
	if outputDir == "" {
		return OutputPaths{}, fmt.Errorf("output directory is required")
	}
	paths, err := NewOutputPaths(outputDir, results.RunID)
	if err != nil {
		return OutputPaths{}, err
	}
	if err := os.MkdirAll(paths.RunDir(), 0o755); err != nil {
		return OutputPaths{}, fmt.Errorf("create output dir: %w", err)
	}

	payload, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return OutputPaths{}, fmt.Errorf("marshal results: %w", err)
	}
	if err := replaceFile(paths.ResultsPath(), payload); err != nil {
		return OutputPaths{}, err
	}

	var page bytes.Buffer
	if err := ReportPage(results).Render(ctx, &page); err != nil {
		return OutputPaths{}, fmt.Errorf("render report: %w", err)
	}
	if err := replaceFile(paths.ReportPath(), page.Bytes()); err != nil {
		return OutputPaths{}, err
	}
	return paths, nil
}

// ReadResults loads a results.json written by WriteRunOutputs.
func ReadResults(path string) (Results, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Results{}, fmt.Errorf("read results: %w", err)
	}
	var results Results
	if err := json.Unmarshal(data, &results); err != nil {
		return Results{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return results, nil
}

func replaceFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
