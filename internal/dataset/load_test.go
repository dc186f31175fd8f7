package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFixture(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func requireFormatError(t *testing.T, err error) *FormatError {
	t.Helper()
	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	return formatErr
}

func hasIssue(issues []Issue, field, fragment string) bool {
	for _, issue := range issues {
		if issue.Field == field && strings.Contains(issue.Message, fragment) {
			return true
		}
	}
	return false
}

func TestLoadFileYAML(t *testing.T) {
	path := writeFixture(t, "tests.yml", `tests:
  - question: What is the price of WETH?
    answer: About 3000 USDC.
    trajectory: [get_token_price]
  - question: "  Show my portfolio  "
    answer: ""
    trajectory:
      - get_portfolio
      - get_token_price
`)

	cases, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []Case{
		{Question: "What is the price of WETH?", Answer: "About 3000 USDC.", Trajectory: []string{"get_token_price"}},
		{Question: "Show my portfolio", Answer: "", Trajectory: []string{"get_portfolio", "get_token_price"}},
	}
	if diff := cmp.Diff(want, cases); diff != "" {
		t.Fatalf("cases mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFileJSON(t *testing.T) {
	path := writeFixture(t, "tests.json", `{"tests":[{"question":"q","answer":"a","trajectory":[]}]}`)

	cases, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cases) != 1 || cases[0].Question != "q" || len(cases[0].Trajectory) != 0 {
		t.Fatalf("unexpected cases: %+v", cases)
	}
}

func TestLoadFileMissingAnswer(t *testing.T) {
	path := writeFixture(t, "tests.yml", `tests:
  - question: q
    trajectory: [a]
`)

	_, err := LoadFile(path)
	formatErr := requireFormatError(t, err)
	if !hasIssue(formatErr.Issues, "tests[0]", "answer") {
		t.Fatalf("expected missing answer issue, got %+v", formatErr.Issues)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("expected path in error, got %q", err.Error())
	}
}

func TestLoadFileCollectsEveryIssue(t *testing.T) {
	path := writeFixture(t, "tests.yml", `tests:
  - answer: a
    trajectory: [a]
  - question: q
    answer: a
`)

	_, err := LoadFile(path)
	formatErr := requireFormatError(t, err)
	if !hasIssue(formatErr.Issues, "tests[0]", "question") {
		t.Fatalf("expected missing question issue, got %+v", formatErr.Issues)
	}
	if !hasIssue(formatErr.Issues, "tests[1]", "trajectory") {
		t.Fatalf("expected missing trajectory issue, got %+v", formatErr.Issues)
	}
}

func TestLoadFileRejectsBlankQuestion(t *testing.T) {
	path := writeFixture(t, "tests.yml", `tests:
  - question: "   "
    answer: a
    trajectory: [" "]
`)

	_, err := LoadFile(path)
	formatErr := requireFormatError(t, err)
	if !hasIssue(formatErr.Issues, "tests[0].question", "is required") {
		t.Fatalf("expected blank question issue, got %+v", formatErr.Issues)
	}
	if !hasIssue(formatErr.Issues, "tests[0].trajectory[0]", "is required") {
		t.Fatalf("expected blank trajectory step issue, got %+v", formatErr.Issues)
	}
}

func TestLoadFileRejectsUnknownFields(t *testing.T) {
	path := writeFixture(t, "tests.yml", `tests:
  - question: q
    answer: a
    trajectory: [a]
    notes: extra
`)

	_, err := LoadFile(path)
	requireFormatError(t, err)
}

func TestLoadFileRejectsEmptyTests(t *testing.T) {
	path := writeFixture(t, "tests.yml", "tests: []\n")

	_, err := LoadFile(path)
	formatErr := requireFormatError(t, err)
	if len(formatErr.Issues) == 0 {
		t.Fatalf("expected issues")
	}
}

func TestLoadFileRejectsEmptyFile(t *testing.T) {
	path := writeFixture(t, "tests.yml", "")

	_, err := LoadFile(path)
	formatErr := requireFormatError(t, err)
	if !strings.Contains(formatErr.Error(), "empty") {
		t.Fatalf("expected empty file message, got %q", formatErr.Error())
	}
}

func TestLoadFileRejectsMultipleDocuments(t *testing.T) {
	path := writeFixture(t, "tests.yml", `tests:
  - question: q
    answer: a
    trajectory: [a]
---
tests: []
`)

	_, err := LoadFile(path)
	requireFormatError(t, err)
}

func TestLoadFileMissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yml"))
	if err == nil {
		t.Fatalf("expected error")
	}
	var formatErr *FormatError
	if errors.As(err, &formatErr) {
		t.Fatalf("missing file should not be a format error")
	}
}

func TestDatasetName(t *testing.T) {
	date := time.Date(2025, 3, 7, 15, 0, 0, 0, time.UTC)
	if got := DatasetName("tests.yaml", date); got != "Eval:tests.yaml:2025-03-07" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestFieldPath(t *testing.T) {
	cases := map[string]string{
		"(root)":              "",
		"tests":               "tests",
		"tests.0":             "tests[0]",
		"tests.12.trajectory": "tests[12].trajectory",
	}
	for input, want := range cases {
		if got := fieldPath(input); got != want {
			t.Fatalf("fieldPath(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestWriteExampleIsLoadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.yml")
	if err := WriteExample(path); err != nil {
		t.Fatalf("write example: %v", err)
	}
	cases, err := LoadFile(path)
	if err != nil {
		t.Fatalf("example should load: %v", err)
	}
	if len(cases) != 4 || cases[2].Trajectory[1] != "get_token_price" {
		t.Fatalf("unexpected example cases %+v", cases)
	}
	if err := WriteExample(path); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
}
