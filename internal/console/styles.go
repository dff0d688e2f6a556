// Package console renders sessions for people watching them in a terminal.
package console

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

const defaultWidth = 78

type styles struct {
	header  lipgloss.Style
	title   lipgloss.Style
	subtle  lipgloss.Style
	user    lipgloss.Style
	agent   lipgloss.Style
	ok      lipgloss.Style
	warning lipgloss.Style
	error   lipgloss.Style
	rule    lipgloss.Style
}

// newStyles binds the styles to w so color is only emitted when w is a
// terminal that supports it.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		header:  r.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 2),
		title:   r.NewStyle().Bold(true),
		subtle:  r.NewStyle().Foreground(lipgloss.Color("245")),
		user:    r.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		agent:   r.NewStyle().Foreground(lipgloss.Color("170")).Bold(true),
		ok:      r.NewStyle().Foreground(lipgloss.Color("42")),
		warning: r.NewStyle().Foreground(lipgloss.Color("214")),
		error:   r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		rule:    r.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// wrap word-wraps text to width and indents every line but the first by
// hang columns.
func wrap(text string, width, hang int) string {
	if width <= hang+10 {
		return text
	}
	wrapped := wordwrap.String(text, width-hang)
	first, rest, found := strings.Cut(wrapped, "\n")
	if !found {
		return first
	}
	return first + "\n" + indent.String(rest, uint(hang))
}

func rule(char string, width int) string {
	return strings.Repeat(char, width)
}
