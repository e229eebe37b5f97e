package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"concierge/internal/api"
	"concierge/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 16
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	body := "[" + statusKindLabel(kind) + "]"
	if message != "" {
		body += " " + message
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", body)
	if !colorize {
		return line
	}
	if color := statusKindColor(kind); color != "" {
		return color + line + ansiReset
	}
	return line
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		return []string{ansiBlue + line + ansiReset, ansiBlue + rule + ansiReset}
	}
	return []string{line, rule}
}

// daemonLines renders a running daemon's status.
func daemonLines(status api.DaemonStatus, colorize bool) []string {
	lines := renderSectionHeader("Daemon", colorize)
	lines = append(lines, renderStatusLine("Concierge", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))

	if status.Dispatching {
		lines = append(lines, renderStatusLine("Dispatch", statusOK, "Accepting interactions", colorize))
	} else {
		lines = append(lines, renderStatusLine("Dispatch", statusWarn, "Held until reconcile completes", colorize))
	}
	if status.StartedAt != "" {
		lines = append(lines, renderStatusLine("Started", statusInfo, status.StartedAt, colorize))
	}
	lines = append(lines, renderStatusLine("Store", statusInfo, fmt.Sprintf("%s (%s)", status.StoreBackend, status.StorePath), colorize))
	lines = append(lines, renderStatusLine("Lock file", statusInfo, status.LockFilePath, colorize))

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Records", colorize)...)
	lines = append(lines, renderStatusLine("Tickets", statusInfo, fmt.Sprintf("%d open", status.Tickets), colorize))
	lines = append(lines, renderStatusLine("Tasks", statusInfo, fmt.Sprintf("%d total, %d open", status.Tasks, status.OpenTasks), colorize))
	lastRun := status.LastOverdueRun
	if lastRun == "" {
		lastRun = "not yet run"
	}
	lines = append(lines, renderStatusLine("Overdue check", statusInfo, lastRun, colorize))
	return lines
}

// offlineLines renders the not-running state followed by preflight results.
func offlineLines(results []preflight.Result, colorize bool) []string {
	lines := renderSectionHeader("Daemon", colorize)
	lines = append(lines, renderStatusLine("Concierge", statusError, "Not running", colorize))
	if len(results) == 0 {
		return lines
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Preflight", colorize)...)
	for _, r := range results {
		kind := statusOK
		detail := r.Detail
		switch {
		case !r.Passed && r.Required:
			kind = statusError
		case !r.Passed:
			kind = statusWarn
		}
		if detail == "" {
			detail = "Ready"
		}
		lines = append(lines, renderStatusLine(r.Name, kind, detail, colorize))
	}
	return lines
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
