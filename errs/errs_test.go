package errs

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorFormattingIncludesSymbolAndMetadata(t *testing.T) {
	err := New(
		"AAPL:1m",
		CodeReaderFault,
		WithSymbol("AAPL"),
		WithResolution("1m"),
		WithMessage("unexpected EOF mid-record"),
		WithRemediation("check source file for truncation"),
		WithMetadata(map[string]string{
			"path": "/data/AAPL/2024-01-02.csv",
			"line": "418",
		}),
		WithCause(errors.New("csv: unexpected EOF")),
	)

	out := err.Error()
	if !strings.Contains(out, "stream=AAPL:1m") {
		t.Fatalf("expected stream marker in error string: %s", out)
	}
	if !strings.Contains(out, "code=reader_fault") {
		t.Fatalf("expected code marker in error string: %s", out)
	}
	if !strings.Contains(out, "symbol=AAPL") {
		t.Fatalf("expected symbol marker in error string: %s", out)
	}
	if !strings.Contains(out, "resolution=1m") {
		t.Fatalf("expected resolution marker in error string: %s", out)
	}
	expectedMetadata := "metadata=line=\"418\",path=\"/data/AAPL/2024-01-02.csv\""
	if !strings.Contains(out, expectedMetadata) {
		t.Fatalf("expected metadata %q in error string: %s", expectedMetadata, out)
	}
	if !strings.Contains(out, "remediation=\"check source file for truncation\"") {
		t.Fatalf("expected remediation guidance in error string: %s", out)
	}
	if !strings.Contains(out, "cause=\"csv: unexpected EOF\"") {
		t.Fatalf("expected wrapped cause in error string: %s", out)
	}
}

func TestWithMetadataMerge(t *testing.T) {
	err := New(
		"AAPL:1m",
		CodeSourceMissing,
		WithMetadata(map[string]string{"date": "2024-01-02"}),
		WithMetadata(map[string]string{"date": "2024-01-03", "dir": "/data/AAPL"}),
	)

	if got := err.Metadata["date"]; got != "2024-01-03" {
		t.Fatalf("expected latest metadata to win, got %q", got)
	}
	if got := err.Metadata["dir"]; got != "/data/AAPL" {
		t.Fatalf("expected dir metadata to be present, got %q", got)
	}
}

func TestIsFatalOnlyForConfigInvalid(t *testing.T) {
	cases := []struct {
		code  Code
		fatal bool
	}{
		{CodeSourceMissing, false},
		{CodeReaderFault, false},
		{CodeCancelled, false},
		{CodeConfigInvalid, true},
	}
	for _, tc := range cases {
		err := New("engine", tc.code)
		if got := err.IsFatal(); got != tc.fatal {
			t.Fatalf("code %q: expected IsFatal=%v, got %v", tc.code, tc.fatal, got)
		}
	}
}

func TestConfigInvalidHelper(t *testing.T) {
	err := ConfigInvalid("no subscriptions configured")
	if err.Code != CodeConfigInvalid {
		t.Fatalf("expected CodeConfigInvalid, got %q", err.Code)
	}
	if !err.IsFatal() {
		t.Fatalf("expected ConfigInvalid to be fatal")
	}
	if !strings.Contains(err.Error(), "message=\"no subscriptions configured\"") {
		t.Fatalf("expected message in error string: %s", err.Error())
	}
}

func TestNilErrorString(t *testing.T) {
	var e *E
	if got := e.Error(); got != "<nil>" {
		t.Fatalf("expected <nil> string for nil error, got %q", got)
	}
	if e.IsFatal() {
		t.Fatalf("expected nil error to be non-fatal")
	}
}
