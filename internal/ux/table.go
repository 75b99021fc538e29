package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Table is tabular text output. JSON and YAML output render Items instead.
type Table struct {
	Headers []string
	Rows    [][]string
	// Footer is printed below the table, e.g. a pagination summary
	Footer string
	// Empty is printed instead of an empty table
	Empty string
	Items any
}

// Data returns the structured value behind the table
func (t *Table) Data() any {
	return t.Items
}

// RenderText implements TextRenderer
func (t *Table) RenderText(w io.Writer, noColor bool) error {
	if len(t.Rows) == 0 && t.Empty != "" {
		_, err := fmt.Fprintln(w, t.Empty)
		return err
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderColumn(false).
		BorderLeft(false).
		BorderRight(false).
		BorderTop(false).
		BorderBottom(false).
		Headers(t.Headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if noColor {
				return cellStyle
			}
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	if _, err := fmt.Fprintln(w, tbl.Render()); err != nil {
		return err
	}
	if t.Footer != "" {
		footer := t.Footer
		if !noColor {
			footer = mutedStyle.Render(footer)
		}
		if _, err := fmt.Fprintln(w, footer); err != nil {
			return err
		}
	}
	return nil
}

// Field is one labelled value of a Details block
type Field struct {
	Label string
	Value string
}

// Details renders a single record as aligned label/value lines
type Details struct {
	Title  string
	Fields []Field
	// Body is free text printed after the fields, e.g. an email body
	Body string
	Item any
}

// Data returns the structured record
func (d *Details) Data() any {
	return d.Item
}

// RenderText implements TextRenderer
func (d *Details) RenderText(w io.Writer, noColor bool) error {
	var b strings.Builder
	if d.Title != "" {
		title := d.Title
		if !noColor {
			title = headerStyle.UnsetPadding().Render(title)
		}
		b.WriteString(title)
		b.WriteString("\n\n")
	}

	width := 0
	for _, f := range d.Fields {
		width = max(width, len(f.Label))
	}
	for _, f := range d.Fields {
		label := fmt.Sprintf("%-*s", width+1, f.Label+":")
		if !noColor {
			label = labelStyle.Render(label)
		}
		fmt.Fprintf(&b, "%s %s\n", label, Optional(f.Value))
	}

	if d.Body != "" {
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(d.Body, "\n"))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

var (
	_ TextRenderer = (*Table)(nil)
	_ TextRenderer = (*Details)(nil)
)
