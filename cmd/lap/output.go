package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kantharos-net/LinkedinAutoPost/internal/jobs"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func colorizeStatus(status jobs.Status) string {
	text := string(status)
	switch status {
	case jobs.StatusPublished:
		return colorize(colorGreen, text)
	case jobs.StatusFailed:
		return colorize(colorRed, text)
	case jobs.StatusPublishing, jobs.StatusQueued:
		return colorize(colorYellow, text)
	case jobs.StatusScheduled:
		return colorize(colorCyan, text)
	default:
		return text
	}
}

func printLogEntry(e jobs.LogEntry) {
	level := string(e.Level)
	switch e.Level {
	case jobs.LevelError:
		level = colorize(colorRed, level)
	case jobs.LevelWarn:
		level = colorize(colorYellow, level)
	}
	fmt.Printf("%s  %-5s  %s  %s\n",
		e.Timestamp.Format(time.RFC3339),
		level,
		colorize(colorCyan, shortID(e.JobID)),
		e.Message,
	)
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+msg))
}
