package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/richmansdream/crmdesk/internal/query"
)

// fetchedMsg reports that a read of the named list finished. The view
// re-reads the controller; the message carries no data.
type fetchedMsg struct {
	list string
}

// column describes one table column of a list view
type column[T any] struct {
	title string
	width int
	value func(item T, now time.Time) string
}

// listView is the searchable, filterable, paginated table shared by the
// leads and emails views. All query state lives in the controller.
type listView[T any] struct {
	ctx     context.Context
	name    string
	ctrl    *query.Controller[T]
	columns []column[T]
	detail  func(item T, now time.Time) []field
	styles  Styles
	now     func() time.Time

	search     textinput.Model
	searching  bool
	status     Dropdown
	table      table.Model
	pager      paginator.Model
	spinner    spinner.Model
	inflight   int
	showDetail bool
	snap       query.Snapshot[T]
}

// field is one label/value line of a detail pane
type field struct {
	label string
	value string
}

func newListView[T any](ctx context.Context, ctrl *query.Controller[T], columns []column[T], statuses []string, styles Styles, now func() time.Time) *listView[T] {
	cfg := ctrl.Config()

	search := textinput.New()
	search.Placeholder = "Search " + cfg.Name + "..."
	search.Prompt = "/ "
	search.CharLimit = 100
	search.Width = 30

	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{Title: c.title, Width: c.width}
	}
	tbl := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(cfg.PageSize+1),
	)

	pager := paginator.New()
	pager.Type = paginator.Dots
	pager.ActiveDot = styles.Key.Render("•")
	pager.InactiveDot = styles.Muted.Render("•")

	return &listView[T]{
		ctx:     ctx,
		name:    cfg.Name,
		ctrl:    ctrl,
		columns: columns,
		styles:  styles,
		now:     now,
		search:  search,
		status:  NewDropdown(cfg.Name+"-status", "Status", append([]string{query.AllFilter}, statuses...)),
		table:   tbl,
		pager:   pager,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Key)),
		snap:    ctrl.Snapshot(),
	}
}

// run executes a controller operation off the update loop
func (v *listView[T]) run(op func(context.Context) query.Snapshot[T]) tea.Cmd {
	v.inflight++
	ctx, name := v.ctx, v.name
	return tea.Batch(v.spinner.Tick, func() tea.Msg {
		op(ctx)
		return fetchedMsg{list: name}
	})
}

// Init loads the first page
func (v *listView[T]) Init() tea.Cmd {
	return v.run(v.ctrl.FetchPage)
}

// loading reports whether a read issued by this view is outstanding
func (v *listView[T]) loading() bool {
	return v.inflight > 0
}

// capturing reports whether keys belong to the search box or the menu
func (v *listView[T]) capturing() bool {
	return v.searching || v.status.IsOpen()
}

// refresh copies the controller state into the widgets
func (v *listView[T]) refresh() {
	v.snap = v.ctrl.Snapshot()

	now := v.now()
	rows := make([]table.Row, len(v.snap.Items))
	for i, item := range v.snap.Items {
		row := make(table.Row, len(v.columns))
		for j, c := range v.columns {
			row[j] = c.value(item, now)
		}
		rows[i] = row
	}
	v.table.SetRows(rows)
	if v.table.Cursor() >= len(rows) {
		v.table.SetCursor(max(len(rows)-1, 0))
	}

	v.pager.TotalPages = max(v.snap.PageCount, 1)
	v.pager.Page = min(max(v.snap.Page-1, 0), v.pager.TotalPages-1)
}

// selected returns the item under the table cursor
func (v *listView[T]) selected() (T, bool) {
	var zero T
	i := v.table.Cursor()
	if i < 0 || i >= len(v.snap.Items) {
		return zero, false
	}
	return v.snap.Items[i], true
}

func (v *listView[T]) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case fetchedMsg:
		if msg.list != v.name {
			return nil
		}
		v.inflight = max(v.inflight-1, 0)
		v.refresh()
		return nil

	case spinner.TickMsg:
		if !v.loading() {
			return nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return cmd

	case DropdownSelectedMsg:
		if msg.ID != v.status.ID {
			return nil
		}
		value := msg.Value
		return v.run(func(ctx context.Context) query.Snapshot[T] {
			v.ctrl.SetFilter(ctx, "status", value)
			return v.ctrl.Snapshot()
		})

	case tea.KeyMsg:
		return v.handleKey(msg)
	}
	return nil
}

func (v *listView[T]) handleKey(msg tea.KeyMsg) tea.Cmd {
	if v.status.IsOpen() {
		var cmd tea.Cmd
		v.status, cmd = v.status.Update(msg)
		return cmd
	}

	if v.searching {
		switch msg.String() {
		case "enter":
			v.searching = false
			v.search.Blur()
			v.ctrl.SetSearchTerm(v.search.Value())
			return v.run(v.ctrl.Search)
		case "esc":
			v.searching = false
			v.search.Blur()
			return nil
		}
		var cmd tea.Cmd
		v.search, cmd = v.search.Update(msg)
		v.ctrl.SetSearchTerm(v.search.Value())
		return cmd
	}

	switch msg.String() {
	case "/":
		v.searching = true
		return v.search.Focus()
	case "f":
		v.status.Open()
		return nil
	case "[":
		snap := v.ctrl.Snapshot()
		if !snap.HasPrev() {
			return nil
		}
		page := snap.Page - 1
		return v.run(func(ctx context.Context) query.Snapshot[T] { return v.ctrl.GoToPage(ctx, page) })
	case "]":
		snap := v.ctrl.Snapshot()
		if !snap.HasNext() {
			return nil
		}
		page := snap.Page + 1
		return v.run(func(ctx context.Context) query.Snapshot[T] { return v.ctrl.GoToPage(ctx, page) })
	case "r":
		return v.run(v.ctrl.FetchPage)
	case "enter":
		v.showDetail = !v.showDetail
		return nil
	case "esc":
		v.showDetail = false
		return nil
	}

	var cmd tea.Cmd
	v.table, cmd = v.table.Update(msg)
	return cmd
}

func (v *listView[T]) View() string {
	s := v.styles
	var b strings.Builder

	controls := lipgloss.JoinHorizontal(lipgloss.Top, v.search.View(), "   ", v.status.View(s))
	b.WriteString(controls)
	b.WriteString("\n\n")

	switch {
	case v.loading() && len(v.snap.Items) == 0:
		b.WriteString(v.spinner.View() + " Loading " + v.name + "...")
	case len(v.snap.Items) == 0:
		b.WriteString(s.Muted.Render("No " + v.name + " found"))
	default:
		b.WriteString(v.table.View())
	}
	b.WriteString("\n")

	footer := s.Muted.Render(v.snap.Summary())
	if v.snap.PageCount > 1 {
		footer += "  " + v.pager.View()
	}
	if v.loading() && len(v.snap.Items) > 0 {
		footer += "  " + v.spinner.View()
	}
	b.WriteString(footer)

	if v.showDetail {
		if item, ok := v.selected(); ok && v.detail != nil {
			b.WriteString("\n")
			b.WriteString(v.renderDetail(v.detail(item, v.now())))
		}
	}
	return b.String()
}

func (v *listView[T]) renderDetail(fields []field) string {
	width := 0
	for _, f := range fields {
		width = max(width, len(f.label))
	}
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		label := v.styles.Key.Render(fmt.Sprintf("%-*s", width+1, f.label+":"))
		lines = append(lines, label+" "+f.value)
	}
	return v.styles.Border.Render(strings.Join(lines, "\n"))
}

func (v *listView[T]) helpLine() string {
	return v.styles.keyHelp(
		"/", "search",
		"f", "status",
		"[ ]", "page",
		"enter", "details",
		"r", "reload",
	)
}
