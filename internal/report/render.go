package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"sigs.k8s.io/yaml"

	"github.com/imamik/fanout/internal/batch"
)

// ContentType returns the MIME type of the rendered format.
func ContentType(format batch.Format) string {
	switch format {
	case batch.FormatJSON:
		return "application/json"
	case batch.FormatYAML:
		return "application/yaml"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Write renders r to w. Styled tables use colour and borders and are meant
// for terminals.
func (r *Report) Write(w io.Writer, format batch.Format, styled bool) error {
	switch format {
	case batch.FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case batch.FormatYAML:
		data, err := yaml.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		_, err = w.Write(data)
		return err
	case batch.FormatTable, "":
		if styled {
			return r.writeStyled(w)
		}
		return r.writePlain(w)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// Bytes renders r into memory.
func (r *Report) Bytes(format batch.Format) ([]byte, error) {
	var sb strings.Builder
	if err := r.Write(&sb, format, false); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func (r *Report) writePlain(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tSTATUS\tATTEMPTS\tDURATION\tDETAIL")
	for _, item := range r.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			item.Name, dash(item.Kind), item.Status, item.Attempts, dash(item.Duration), detail(item))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, r.summaryLine())
	return err
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle      = lipgloss.NewStyle().Padding(0, 1)
	succeededStyle = cellStyle.Foreground(lipgloss.Color("#22c55e"))
	failedStyle    = cellStyle.Foreground(lipgloss.Color("#ef4444"))
	skippedStyle   = cellStyle.Foreground(lipgloss.Color("#eab308"))
	borderStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	titleStyle     = lipgloss.NewStyle().Bold(true)
)

func (r *Report) writeStyled(w io.Writer) error {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("NAME", "KIND", "STATUS", "ATTEMPTS", "DURATION", "DETAIL").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 2 && row >= 0 && row < len(r.Items) {
				switch r.Items[row].Status {
				case "succeeded":
					return succeededStyle
				case "failed":
					return failedStyle
				default:
					return skippedStyle
				}
			}
			return cellStyle
		})

	for _, item := range r.Items {
		t.Row(item.Name, dash(item.Kind), item.Status, fmt.Sprint(item.Attempts), dash(item.Duration), truncate(detail(item), 80))
	}

	_, err := fmt.Fprintf(w, "%s\n%s\n%s\n",
		titleStyle.Render(fmt.Sprintf("Batch %s (%s)", r.Batch, r.BatchID)),
		t.Render(),
		r.summaryLine())
	return err
}

func (r *Report) summaryLine() string {
	line := fmt.Sprintf("%d items: %d succeeded, %d failed, %d not completed in %s",
		r.Summary.Total, r.Summary.Succeeded, r.Summary.Failed, r.Summary.NotCompleted, r.Duration)
	if r.Interrupted != "" {
		line += " (interrupted: " + r.Interrupted + ")"
	}
	return line
}

// detail is the single-line error or output shown in tables.
func detail(item Item) string {
	s := item.Error
	if s == "" {
		s = item.Output
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " ..."
	}
	return dash(s)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
