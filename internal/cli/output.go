package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// styles are bound to one writer so color is only emitted to terminals
type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	dim     lipgloss.Style
}

var (
	brandPrimary = lipgloss.Color("#7C3AED") // Violet
	brandAccent  = lipgloss.Color("#10B981") // Emerald
	brandWarning = lipgloss.Color("#F59E0B") // Amber
	brandError   = lipgloss.Color("#EF4444") // Red
	textMuted    = lipgloss.Color("#6B7280") // Gray
)

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Foreground(brandPrimary).Bold(true),
		label:   r.NewStyle().Width(24),
		value:   r.NewStyle().Bold(true),
		success: r.NewStyle().Foreground(brandAccent).Bold(true),
		warning: r.NewStyle().Foreground(brandWarning).Bold(true),
		failure: r.NewStyle().Foreground(brandError).Bold(true),
		dim:     r.NewStyle().Foreground(textMuted),
	}
}

// report builds a titled block of label/value rows
type report struct {
	st styles
	b  strings.Builder
}

func newReport(w io.Writer, title string) *report {
	r := &report{st: newStyles(w)}
	r.b.WriteString(r.st.title.Render(title))
	r.b.WriteString("\n")
	return r
}

func (r *report) row(label, value string) {
	r.b.WriteString("  ")
	r.b.WriteString(r.st.label.Render(label + ":"))
	r.b.WriteString(r.st.value.Render(value))
	r.b.WriteString("\n")
}

func (r *report) count(label string, n int) {
	r.row(label, humanize.Comma(int64(n)))
}

func (r *report) line(text string) {
	r.b.WriteString("  ")
	r.b.WriteString(text)
	r.b.WriteString("\n")
}

func (r *report) blank() {
	r.b.WriteString("\n")
}

func (r *report) writeTo(w io.Writer) error {
	_, err := io.WriteString(w, r.b.String())
	return err
}

func percent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
