package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// DropdownSelectedMsg is sent when an option is picked. It is only sent
// when the selection actually changed.
type DropdownSelectedMsg struct {
	ID    string
	Value string
}

// Dropdown is a single-choice menu. Closed, it renders the current choice;
// open, it lists every option with a cursor.
type Dropdown struct {
	ID      string
	Label   string
	options []string

	selected int
	cursor   int
	open     bool
}

// NewDropdown creates a closed dropdown with the first option selected
func NewDropdown(id, label string, options []string) Dropdown {
	return Dropdown{ID: id, Label: label, options: options}
}

// Value returns the selected option
func (d Dropdown) Value() string {
	if len(d.options) == 0 {
		return ""
	}
	return d.options[d.selected]
}

// IsOpen reports whether the menu is showing
func (d Dropdown) IsOpen() bool {
	return d.open
}

// Open shows the menu with the cursor on the current choice
func (d *Dropdown) Open() {
	d.open = true
	d.cursor = d.selected
}

// Close hides the menu without changing the selection
func (d *Dropdown) Close() {
	d.open = false
}

// Select moves the selection to value without emitting a message. Unknown
// values are ignored.
func (d *Dropdown) Select(value string) {
	for i, o := range d.options {
		if o == value {
			d.selected = i
			return
		}
	}
}

// Update handles keys while the menu is open
func (d Dropdown) Update(msg tea.Msg) (Dropdown, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || !d.open {
		return d, nil
	}

	switch key.String() {
	case "up", "k":
		if d.cursor > 0 {
			d.cursor--
		}
	case "down", "j":
		if d.cursor < len(d.options)-1 {
			d.cursor++
		}
	case "esc":
		d.open = false
	case "enter":
		d.open = false
		if d.cursor == d.selected {
			return d, nil
		}
		d.selected = d.cursor
		sel := DropdownSelectedMsg{ID: d.ID, Value: d.Value()}
		return d, func() tea.Msg { return sel }
	}
	return d, nil
}

// View renders the dropdown
func (d Dropdown) View(s Styles) string {
	head := s.Muted.Render(d.Label+": ") + d.Value() + s.Muted.Render(" ▾")
	if !d.open {
		return head
	}

	var b strings.Builder
	b.WriteString(head)
	for i, o := range d.options {
		b.WriteString("\n")
		if i == d.cursor {
			b.WriteString(s.Highlighted.Render("› " + o))
		} else {
			b.WriteString("  " + o)
		}
	}
	return s.Border.Render(b.String())
}
