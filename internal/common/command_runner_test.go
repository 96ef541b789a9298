package common

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	jobtailorErrors "jobtailor/internal/errors"
	"jobtailor/internal/pipeline"
	"jobtailor/internal/scraper"
)

func testLogger() *jobtailorErrors.Logger {
	return jobtailorErrors.NewLoggerWithWriter(io.Discard, slog.LevelDebug)
}

var sampleJob = scraper.JobRecord{
	SourceURL:   "https://jobs.example.com/1",
	Title:       "QA Engineer",
	Company:     "Vandelay",
	Description: "Test things",
}

func TestRunCommandWritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "job.md")

	err := RunCommand(context.Background(), testLogger(), CommandConfig{OutputFile: out, OutputFormat: "markdown"}, "extract",
		func(context.Context) (scraper.JobRecord, error) { return sampleJob, nil })
	if err != nil {
		t.Fatalf("RunCommand failed: %v", err)
	}

	content, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if !strings.Contains(string(content), "# QA Engineer") {
		t.Errorf("unexpected output:\n%s", content)
	}
}

func TestRunCommandPropagatesError(t *testing.T) {
	failure := errors.New("pipeline failed")

	err := RunCommand(context.Background(), testLogger(), CommandConfig{OutputFormat: "text"}, "tailor",
		func(context.Context) (scraper.JobRecord, error) { return scraper.JobRecord{}, failure })
	if !errors.Is(err, failure) {
		t.Fatalf("expected the operation error, got %v", err)
	}
}

func TestHandleOutputStdout(t *testing.T) {
	var buf bytes.Buffer
	handler := NewOutputHandler(testLogger())
	handler.stdout = &buf

	if err := handler.HandleOutput(sampleJob, CommandConfig{OutputFormat: "json"}); err != nil {
		t.Fatalf("HandleOutput failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"company": "Vandelay"`) {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestHandleOutputDegradedJob(t *testing.T) {
	tests := []struct {
		name string
		data any
		want bool
	}{
		{"extracted job", sampleJob, false},
		{"degraded job", scraper.DegradedRecord("https://jobs.example.com/gone", errors.New("timeout")), true},
		{"degraded result pointer", &pipeline.Result{ExtractionFailed: true}, true},
		{"nil result pointer", (*pipeline.Result)(nil), false},
		{"other value", "text", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := degraded(tt.data); got != tt.want {
				t.Errorf("degraded = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandleOutputUnknownFormat(t *testing.T) {
	handler := NewOutputHandler(testLogger())
	handler.stdout = io.Discard

	err := handler.HandleOutput(sampleJob, CommandConfig{OutputFormat: "xml"})
	if !jobtailorErrors.IsType(err, jobtailorErrors.ErrorTypeValidation) {
		t.Fatalf("expected a validation error, got %v", err)
	}
}

func TestValidateAndReadFiles(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "posting.html")
	if err := os.WriteFile(page, []byte("<html><h1>Job</h1></html>"), 0600); err != nil {
		t.Fatal(err)
	}

	fp := NewFileProcessor(testLogger())

	contents, err := fp.ValidateAndReadFiles(page)
	if err != nil {
		t.Fatalf("ValidateAndReadFiles failed: %v", err)
	}
	if contents[0] != "<html><h1>Job</h1></html>" {
		t.Errorf("unexpected content: %q", contents[0])
	}

	_, err = fp.ValidateAndReadFiles(filepath.Join(dir, "missing.html"))
	if !jobtailorErrors.IsType(err, jobtailorErrors.ErrorTypeValidation) {
		t.Errorf("expected a validation error for a missing file, got %v", err)
	}

	_, err = fp.ValidateAndReadFiles(dir)
	if err == nil {
		t.Error("expected an error for a directory")
	}
}

func TestValidateAndReadFilesSizeLimit(t *testing.T) {
	page := filepath.Join(t.TempDir(), "posting.html")
	if err := os.WriteFile(page, []byte(strings.Repeat("a", 100)), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := NewFileProcessor(testLogger()).WithMaxFileSize(99).ValidateAndReadFiles(page)
	var appErr *jobtailorErrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != "INPUT_FILE_TOO_LARGE" {
		t.Errorf("expected INPUT_FILE_TOO_LARGE for a file over the limit, got %v", err)
	}
	if _, err := NewFileProcessor(testLogger()).WithMaxFileSize(100).ValidateAndReadFiles(page); err != nil {
		t.Errorf("file at the limit should be accepted: %v", err)
	}
}
