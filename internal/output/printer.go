// Package output renders build progress to the terminal.
//
// [Printer] writes headers, step progress, tool checks, command lines and a
// final summary with lipgloss styles. Styles are bound to the printer's own
// writer, so output sent to a file or buffer is plain text while output to a
// color terminal is styled.
//
// Key types:
//   - [Printer] is the styled line writer
//   - [SummaryRow] is one line of the end-of-run summary
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Printer writes styled build output.
//
// Create with [NewPrinter] for stdout or [NewPrinterWithWriter] for tests.
type Printer struct {
	w io.Writer
	r *lipgloss.Renderer

	header  lipgloss.Style
	step    lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	info    lipgloss.Style
	command lipgloss.Style
	label   lipgloss.Style
}

// NewPrinter creates a [Printer] writing to stdout.
func NewPrinter() *Printer {
	return NewPrinterWithWriter(os.Stdout)
}

// NewPrinterWithWriter creates a [Printer] writing to w. The color profile
// is detected from w; non-terminal writers get plain text.
func NewPrinterWithWriter(w io.Writer) *Printer {
	p := &Printer{w: w, r: lipgloss.NewRenderer(w)}
	p.initStyles()
	return p
}

// DisableColor forces plain-text output.
func (p *Printer) DisableColor() {
	p.r.SetColorProfile(termenv.Ascii)
	p.initStyles()
}

func (p *Printer) initStyles() {
	p.header = p.r.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	p.step = p.r.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	p.success = p.r.NewStyle().Foreground(lipgloss.Color("2"))
	p.warning = p.r.NewStyle().Foreground(lipgloss.Color("3"))
	p.failure = p.r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	p.info = p.r.NewStyle().Foreground(lipgloss.Color("6"))
	p.command = p.r.NewStyle().Foreground(lipgloss.Color("4"))
	p.label = p.r.NewStyle().Foreground(lipgloss.Color("8"))
}

// Writer returns the underlying writer, for streaming child process output
// in line with printed messages.
func (p *Printer) Writer() io.Writer {
	return p.w
}

// Header prints a section header.
func (p *Printer) Header(title string) {
	fmt.Fprintln(p.w, p.header.Render("=== "+title+" ==="))
}

// StepStart prints the progress line shown before a step runs.
func (p *Printer) StepStart(index, total int, id, description string) {
	fmt.Fprintf(p.w, "%s %s\n", p.step.Render(fmt.Sprintf("[%d/%d] %s", index, total, id)), description)
}

// Success prints a success line.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.w, p.success.Render("+ "+fmt.Sprintf(format, args...)))
}

// Warning prints a warning line.
func (p *Printer) Warning(format string, args ...any) {
	fmt.Fprintln(p.w, p.warning.Render("! "+fmt.Sprintf(format, args...)))
}

// Error prints an error line.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.w, p.failure.Render("X "+fmt.Sprintf(format, args...)))
}

// Info prints an informational line.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintln(p.w, p.info.Render(fmt.Sprintf(format, args...)))
}

// Command prints a command line about to run.
func (p *Printer) Command(line string) {
	fmt.Fprintln(p.w, p.command.Render("$ "+line))
}

// KeyValue prints an aligned "key: value" line.
func (p *Printer) KeyValue(key, value string) {
	fmt.Fprintf(p.w, "%s %s\n", p.label.Render(fmt.Sprintf("%-14s", key+":")), value)
}

// ToolCheck prints the preflight result for one tool.
func (p *Printer) ToolCheck(name string, available bool) {
	if available {
		p.Success("%s is available", name)
		return
	}
	p.Error("%s not found", name)
}

// SummaryRow is one line of the end-of-run summary.
type SummaryRow struct {
	ID       string
	Outcome  string
	Duration time.Duration
	Detail   string
}

// Summary prints a per-step table followed by the total duration.
func (p *Printer) Summary(rows []SummaryRow, total time.Duration) {
	p.Header("Summary")
	width := 0
	for _, r := range rows {
		width = max(width, len(r.ID))
	}
	for _, r := range rows {
		line := fmt.Sprintf("%-*s  %-9s", width, r.ID, r.Outcome)
		if r.Duration > 0 {
			line += "  " + r.Duration.Round(time.Millisecond).String()
		}
		if r.Detail != "" {
			line += "  " + r.Detail
		}
		fmt.Fprintln(p.w, p.outcomeStyle(r.Outcome).Render(strings.TrimRight(line, " ")))
	}
	fmt.Fprintf(p.w, "%s %s\n", p.label.Render("Total:"), total.Round(time.Millisecond))
}

func (p *Printer) outcomeStyle(outcome string) lipgloss.Style {
	switch outcome {
	case "succeeded":
		return p.success
	case "warned":
		return p.warning
	case "failed":
		return p.failure
	default:
		return p.label
	}
}
