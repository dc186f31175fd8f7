//go:build cucumber

package cucumber

import (
	"fmt"
	"path/filepath"
	"strings"

	"compasseval/internal/config"
	"compasseval/internal/runner"
)

func (s *featureState) stdoutContains(text string) error {
	if !strings.Contains(s.stdout.String(), text) {
		return fmt.Errorf("expected stdout to contain %q, got %q", text, s.stdout.String())
	}
	return nil
}

func (s *featureState) stderrContains(text string) error {
	if !strings.Contains(s.stderr.String(), text) {
		return fmt.Errorf("expected stderr to contain %q, got %q", text, s.stderr.String())
	}
	return nil
}

// theRunResultsFileListsCases reads the single results.json under the output dir.
func (s *featureState) theRunResultsFileListsCases(count int) error {
	matches, err := filepath.Glob(filepath.Join(s.workDir, config.DefaultOutputDir, "*", "results.json"))
	if err != nil {
		return err
	}
	if len(matches) != 1 {
		return fmt.Errorf("expected one results file, found %d", len(matches))
	}
	results, err := runner.ReadResults(matches[0])
	if err != nil {
		return err
	}
	if len(results.Report.Results) != count {
		return fmt.Errorf("expected %d cases, got %d", count, len(results.Report.Results))
	}
	return nil
}
