package main

import (
	"bytes"
	"strings"
	"testing"
)

// captureFeedback redirects the feedback writer for the test's duration.
func captureFeedback(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := feedback
	feedback = &buf
	t.Cleanup(func() { feedback = prev })
	return &buf
}

func TestColorize_RespectsNoColor(t *testing.T) {
	prev := noColor
	t.Cleanup(func() { noColor = prev })

	noColor = false
	if got := colorize(ansiGreen, "ok"); got != ansiGreen+"ok"+ansiReset {
		t.Errorf("colorized = %q, want escape-wrapped text", got)
	}

	noColor = true
	if got := colorize(ansiGreen, "ok"); got != "ok" {
		t.Errorf("with --no-color got %q, want bare text", got)
	}
}

func TestFeedbackLines_SymbolPrefixes(t *testing.T) {
	prev := noColor
	noColor = true
	t.Cleanup(func() { noColor = prev })

	cases := []struct {
		print  func(format string, args ...any)
		symbol string
	}{
		{printSuccess, "✓"},
		{printError, "✗"},
		{printWarning, "⚠"},
		{printStep, "→"},
	}
	for _, tc := range cases {
		buf := captureFeedback(t)
		tc.print("cached %d answers", 3)
		want := tc.symbol + " cached 3 answers\n"
		if buf.String() != want {
			t.Errorf("got %q, want %q", buf.String(), want)
		}
	}
}

func TestPrintStatus_LabelAndValue(t *testing.T) {
	prev := noColor
	noColor = true
	t.Cleanup(func() { noColor = prev })

	buf := captureFeedback(t)
	printStatus("Server", "running on port %d", 8643)
	if got := buf.String(); got != "  Server: running on port 8643\n" {
		t.Errorf("got %q", got)
	}
	if strings.Contains(buf.String(), ansiReset) {
		t.Error("status line must carry no escape codes under --no-color")
	}
}
