package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/fanout/internal/ui/benchmarks"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

// sf wraps a lipgloss.Style into a styleFunc.
func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

// maxErrorWidth caps the error column so a long message does not wrap.
const maxErrorWidth = 60

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)
	renderProgressBar(&b, m)
	renderItems(&b, m)
	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	b.WriteString(titleStyle.Render(fmt.Sprintf("fanout: %s", m.BatchName)))
	if m.BatchID != "" {
		b.WriteString(subtitleStyle.Render(fmt.Sprintf(" (%s)", shortID(m.BatchID))))
	}

	counts := m.Counts()
	status := " "
	switch {
	case m.Err != nil:
		status += failedStyle.Render(fmt.Sprintf("Error: %v", m.Err))
	case m.Done && counts[StateFailed] > 0:
		status += failedStyle.Render("Failed")
	case m.Done && counts[StateNotCompleted] > 0:
		status += warningStyle.Render("Interrupted")
	case m.Done:
		status += readyStyle.Render("Complete")
	case m.Cancelling:
		status += warningStyle.Render("Cancelling...")
	default:
		status += activeStyle.Render(currentSpinner(m.SpinnerFrame) + " Running")
	}
	b.WriteString(status)
	b.WriteString("\n")
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := benchmarks.Progress(m.finished(), len(m.Items))
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = m.Width - 30
		if barWidth < 10 {
			barWidth = 10
		}
	}
	filled := int(float64(barWidth) * progress)
	if filled > barWidth {
		filled = barWidth
	}

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))

	eta := ""
	if m.EstimatedRemaining > 0 && !m.Done {
		eta = fmt.Sprintf(" ETA %s", formatDuration(m.EstimatedRemaining))
	}

	fmt.Fprintf(b, "  %s %d/%d%s\n", bar, m.finished(), len(m.Items), eta)
}

func renderItems(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Items"))
	b.WriteString("\n")

	if len(m.Items) == 0 {
		fmt.Fprintf(b, "    %s\n", dimStyle.Render("nothing to run"))
		return
	}

	width := 0
	for _, item := range m.Items {
		width = max(width, len(item.Name))
	}

	now := time.Now()
	for _, item := range m.Items {
		icon, style := stateIcon(item.State, m.SpinnerFrame)

		var detail string
		switch item.State {
		case StateRunning:
			detail = dimStyle.Render(formatDuration(now.Sub(item.StartedAt)))
		case StateSucceeded:
			detail = dimStyle.Render(formatDuration(item.Duration))
		case StateFailed, StateNotCompleted:
			if item.Err != nil {
				detail = style(truncate(item.Err.Error(), maxErrorWidth))
			}
		}

		kind := ""
		if item.Kind != "" {
			kind = dimStyle.Render(fmt.Sprintf("%-6s", item.Kind)) + " "
		}
		fmt.Fprintf(b, "    %s %s%-*s %s\n", style(icon), kind, width, item.Name, detail)
	}
}

func renderFooter(b *strings.Builder, m Model) {
	counts := m.Counts()
	parts := []string{
		fmt.Sprintf("elapsed: %s", formatDuration(time.Since(m.StartTime))),
		fmt.Sprintf("%d running", counts[StateRunning]),
		fmt.Sprintf("%d ok", counts[StateSucceeded]),
		fmt.Sprintf("%d failed", counts[StateFailed]),
	}
	if n := counts[StateNotCompleted]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d not completed", n))
	}

	hint := "q: cancel"
	if m.Done || m.Cancelling {
		hint = "q: quit"
	}
	b.WriteString(footerStyle.Render(fmt.Sprintf("  %s  |  %s", strings.Join(parts, "  |  "), hint)))
	b.WriteString("\n")
}

// Helper functions

func stateIcon(s ItemState, frame int) (string, styleFunc) {
	switch s {
	case StateRunning:
		return currentSpinner(frame), sf(activeStyle)
	case StateSucceeded:
		return checkMark, sf(readyStyle)
	case StateFailed:
		return crossMark, sf(failedStyle)
	case StateNotCompleted:
		return warnMark, sf(warningStyle)
	default:
		return pending, sf(dimStyle)
	}
}

func currentSpinner(frame int) string {
	if len(spinnerFrames) == 0 {
		return spinner
	}
	if frame < 0 {
		frame = -frame
	}
	return spinnerFrames[frame%len(spinnerFrames)]
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
