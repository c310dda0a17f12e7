package main

import (
	"fmt"
	"io"
	"os"
)

// User-facing feedback goes to stderr so command output (answers, config
// values, cache listings) stays pipeable on stdout. Tests swap the writer.
var feedback io.Writer = os.Stderr

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiBold   = "\033[1m"
)

func colorize(code, text string) string {
	if noColor {
		return text
	}
	return code + text + ansiReset
}

// note writes one symbol-prefixed feedback line.
func note(code, symbol, format string, args ...any) {
	fmt.Fprintln(feedback, colorize(code, symbol+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { note(ansiGreen, "✓", format, args...) }
func printError(format string, args ...any)   { note(ansiRed, "✗", format, args...) }
func printWarning(format string, args ...any) { note(ansiYellow, "⚠", format, args...) }
func printStep(format string, args ...any)    { note(ansiCyan, "→", format, args...) }

// printStatus renders one "label: value" line of `askd status`.
func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(feedback, "  %s %s\n", colorize(ansiBold, label+":"), fmt.Sprintf(format, args...))
}
