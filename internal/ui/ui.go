// Package ui renders CLI output: status lines, results, and errors, styled
// with lipgloss when the output is a terminal.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Styles holds the lipgloss styles used by the writer.
type Styles struct {
	Title   lipgloss.Style
	Path    lipgloss.Style
	Rank    lipgloss.Style
	Snippet lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}

// defaultStyles returns the color styles for terminal output.
func defaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true),
		Path:    lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		Rank:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Snippet: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// plainStyles returns unstyled rendering for pipes and CI.
func plainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{Title: s, Path: s, Rank: s, Snippet: s, Error: s, Muted: s}
}

// Writer renders program output.
type Writer struct {
	out    io.Writer
	styles Styles
}

// New creates a writer for out, choosing styled or plain rendering by
// whether out is a terminal.
func New(out io.Writer) *Writer {
	styles := plainStyles()
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		styles = defaultStyles()
	}
	return &Writer{out: out, styles: styles}
}

// Statusf prints a formatted status line.
func (w *Writer) Statusf(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, format+"\n", args...)
}

// Title prints a bold line.
func (w *Writer) Title(text string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Title.Render(text))
}

// Result prints one search result: location, rank, and snippet text.
func (w *Writer) Result(ord int, path string, rank float64, text string) {
	_, _ = fmt.Fprintf(w.out, "%d. %s %s\n",
		ord,
		w.styles.Path.Render(path),
		w.styles.Rank.Render(fmt.Sprintf("(rank: %.3f)", rank)))
	if text != "" {
		_, _ = fmt.Fprintf(w.out, "   %s\n", w.styles.Snippet.Render(text))
	}
}

// Breadcrumb prints a muted context line under a result.
func (w *Writer) Breadcrumb(text string) {
	if text != "" {
		_, _ = fmt.Fprintf(w.out, "   %s\n", w.styles.Muted.Render(text))
	}
}

// Errorf prints a formatted error line.
func (w *Writer) Errorf(format string, args ...any) {
	_, _ = fmt.Fprintln(w.out, w.styles.Error.Render(fmt.Sprintf(format, args...)))
}

// Newline prints a blank line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}
