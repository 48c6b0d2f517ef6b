package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/jdh4601/ClosetBot/internal/analysis"
	"github.com/jdh4601/ClosetBot/internal/jobs"
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
	statusLabelWidth = 12
	statusIndent     = "  "
	queuedHint       = "jobs are processed one by one to respect Instagram API rate limits"
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
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

func sectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

// ShouldColorize reports whether writer is an interactive terminal.
func ShouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// StatusLine describes one job snapshot.
func StatusLine(st *analysis.JobStatus, colorize bool) string {
	if st == nil {
		return renderStatusLine("job", statusInfo, "no status yet", colorize)
	}

	parts := []string{st.Status.Label()}
	if p := st.Progress(); p >= 0 {
		parts = append(parts, fmt.Sprintf("%d%%", p))
	}

	kind := statusInfo
	switch st.Status {
	case analysis.StateQueued:
		parts = append(parts, "("+queuedHint+")")
	case analysis.StateRunning:
		if st.EstimatedCompletionMinutes != nil && *st.EstimatedCompletionMinutes > 0 {
			parts = append(parts, fmt.Sprintf("about %d min left", *st.EstimatedCompletionMinutes))
		}
	case analysis.StateDone:
		kind = statusOK
	case analysis.StateFailed:
		kind = statusError
		if st.ErrorMessage != "" {
			parts = append(parts, "- "+st.ErrorMessage)
		}
	default:
		kind = statusWarn
	}

	return renderStatusLine(st.JobID, kind, strings.Join(parts, " "), colorize)
}

// UpdateLine describes one poller update.
func UpdateLine(u jobs.Update, colorize bool) string {
	switch {
	case u.Err != nil:
		return renderStatusLine(u.JobID, statusError, "polling stopped: "+u.Err.Error(), colorize)
	case u.State == jobs.PollCancelled:
		return renderStatusLine(u.JobID, statusWarn, "polling cancelled", colorize)
	default:
		return StatusLine(u.Status, colorize)
	}
}

// ViewLine describes a results view that has no table to show.
func ViewLine(v jobs.View, colorize bool) string {
	label := v.JobID
	if label == "" {
		label = "results"
	}

	switch v.State {
	case jobs.ViewReady:
		return renderStatusLine(label, statusOK, fmt.Sprintf("%d results", v.Results.Len()), colorize)
	case jobs.ViewNotReady:
		return renderStatusLine(label, statusWarn, v.Message, colorize)
	case jobs.ViewFailed:
		return renderStatusLine(label, statusError, v.Message, colorize)
	case jobs.ViewLoading:
		return renderStatusLine(label, statusInfo, "loading results", colorize)
	default:
		return renderStatusLine(label, statusInfo, "no results requested", colorize)
	}
}
