package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/richmansdream/crmdesk/internal/log"
	"github.com/richmansdream/crmdesk/internal/model"
	"github.com/richmansdream/crmdesk/internal/query"
	"github.com/richmansdream/crmdesk/internal/session"
)

// ViewType represents the current view being displayed
type ViewType int

// View type constants
const (
	ViewDashboard ViewType = iota
	ViewLeads
	ViewEmails
	ViewHelp
)

var viewNames = []string{"Dashboard", "Leads", "Emails"}

type screen int

const (
	screenStarting screen = iota
	screenLogin
	screenMain
)

// SessionExpiredMessage is shown on the login form after a 401
const SessionExpiredMessage = "Your session has expired. Please sign in again."

// Session is the part of *session.Manager the console drives
type Session interface {
	Initialize(ctx context.Context) session.Snapshot
	Login(ctx context.Context, email, password string) session.Result
	Logout(ctx context.Context) error
	Snapshot() session.Snapshot
	OnChange(o session.Observer)
}

// Deps are the collaborators of the console
type Deps struct {
	Session   Session
	Leads     *query.Controller[model.Lead]
	Emails    *query.Controller[model.Email]
	Dashboard DashboardLoader
	Templates TemplateLoader
	// Toaster must be the notifier the controllers were built with
	Toaster   *Toaster
	Logger    *log.Logger
	Now       func() time.Time
}

// sessionMsg carries a session snapshot into the update loop
type sessionMsg struct {
	snapshot session.Snapshot
}

type logoutDoneMsg struct {
	err error
}

// Model represents the console state
type Model struct {
	ctx    context.Context
	deps   Deps
	styles Styles
	logger *log.Logger

	screen      screen
	currentView ViewType
	lastView    ViewType
	user        *model.User
	loggingOut  bool
	width       int
	height      int
	quitting    bool

	login     *loginView
	dashboard *dashboardView
	leads     *listView[model.Lead]
	emails    *emailsView
	toasts    *toastStack
}

// NewModel creates the console model
func NewModel(ctx context.Context, deps Deps) Model {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}
	if deps.Toaster == nil {
		deps.Toaster = &Toaster{}
	}
	styles := DefaultStyles()
	return Model{
		ctx:       ctx,
		deps:      deps,
		styles:    styles,
		logger:    deps.Logger,
		screen:    screenStarting,
		login:     newLoginView(styles),
		dashboard: newDashboardView(ctx, deps.Dashboard, styles, deps.Now),
		leads:     newLeadsView(ctx, deps.Leads, styles, deps.Now),
		emails:    newEmailsView(ctx, deps.Emails, deps.Templates, styles, deps.Now),
		toasts:    &toastStack{},
	}
}

// Init validates any stored token (required by Bubble Tea)
func (m Model) Init() tea.Cmd {
	ctx, sess := m.ctx, m.deps.Session
	return func() tea.Msg {
		return sessionMsg{snapshot: sess.Initialize(ctx)}
	}
}

// Update handles messages and updates the model state (required by Bubble Tea)
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.screen == screenLogin {
			return m, m.login.Update(msg)
		}
		return m, nil

	case sessionMsg:
		return m.applySession(msg.snapshot)

	case loginSubmitMsg:
		email, password := m.login.credentials()
		m.login.submitting = true
		m.login.message = ""
		ctx, sess := m.ctx, m.deps.Session
		return m, func() tea.Msg {
			return loginResultMsg{result: sess.Login(ctx, email, password)}
		}

	case loginResultMsg:
		if !msg.result.Success {
			m.login.reset()
			m.login.message = msg.result.Error
			return m, m.login.Init()
		}
		return m.applySession(m.deps.Session.Snapshot())

	case logoutDoneMsg:
		if msg.err != nil {
			m.logger.WithError(msg.err).Warn("logout request failed")
		}
		next, cmd := m.applySession(m.deps.Session.Snapshot())
		out := next.(Model)
		out.loggingOut = false
		return out, cmd

	case toastExpiredMsg:
		m.toasts.expire(msg.id)
		return m, nil

	case fetchedMsg, dashboardMsg:
		cmds := []tea.Cmd{m.toasts.push(m.deps.Toaster.Drain())}
		cmds = append(cmds, m.leads.Update(msg), m.emails.Update(msg), m.dashboard.Update(msg))
		next, cmd := m.applySession(m.deps.Session.Snapshot())
		return next, tea.Batch(append(cmds, cmd)...)

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	switch m.screen {
	case screenLogin:
		return m, m.login.Update(msg)
	case screenMain:
		return m, tea.Batch(m.leads.Update(msg), m.emails.Update(msg), m.dashboard.Update(msg))
	}
	return m, nil
}

// applySession moves between the login prompt and the main screen
func (m Model) applySession(snap session.Snapshot) (tea.Model, tea.Cmd) {
	if snap.State == session.StateUninitialized || snap.State == session.StateValidating {
		return m, nil
	}

	if snap.Authenticated() {
		m.user = snap.User
		if m.screen == screenMain {
			return m, nil
		}
		m.screen = screenMain
		m.currentView = ViewDashboard
		m.logger.Info("signed in", "user_id", snap.User.ID, "role", string(snap.User.Role))
		return m, tea.Batch(m.dashboard.Init(), m.leads.Init(), m.emails.Init())
	}

	if m.screen == screenLogin {
		return m, nil
	}
	expired := m.screen == screenMain && !m.loggingOut
	m.screen = screenLogin
	m.user = nil
	m.login.reset()
	m.login.message = ""
	if expired {
		m.logger.Info("session ended by server")
		m.login.message = SessionExpiredMessage
	}
	return m, m.login.Init()
}

// handleKeyPress handles keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.screen {
	case screenStarting:
		if msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	case screenLogin:
		return m, m.login.Update(msg)
	}

	if m.capturing() {
		return m, m.activeUpdate(msg)
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "?":
		if m.currentView == ViewHelp {
			m.currentView = m.lastView
		} else {
			m.lastView = m.currentView
			m.currentView = ViewHelp
		}
		return m, nil
	case "tab":
		m.currentView = (m.baseView() + 1) % ViewHelp
		return m, nil
	case "shift+tab":
		m.currentView = (m.baseView() + ViewHelp - 1) % ViewHelp
		return m, nil
	case "1":
		m.currentView = ViewDashboard
		return m, nil
	case "2":
		m.currentView = ViewLeads
		return m, nil
	case "3":
		m.currentView = ViewEmails
		return m, nil
	case "L":
		if m.loggingOut {
			return m, nil
		}
		m.loggingOut = true
		ctx, sess := m.ctx, m.deps.Session
		return m, func() tea.Msg { return logoutDoneMsg{err: sess.Logout(ctx)} }
	case "esc":
		if m.currentView == ViewHelp {
			m.currentView = m.lastView
			return m, nil
		}
	}

	return m, m.activeUpdate(msg)
}

// baseView is the current view, or the one help was opened from
func (m Model) baseView() ViewType {
	if m.currentView == ViewHelp {
		return m.lastView
	}
	return m.currentView
}

func (m Model) capturing() bool {
	switch m.currentView {
	case ViewLeads:
		return m.leads.capturing()
	case ViewEmails:
		return m.emails.capturing()
	}
	return false
}

func (m Model) activeUpdate(msg tea.Msg) tea.Cmd {
	switch m.currentView {
	case ViewDashboard:
		return m.dashboard.Update(msg)
	case ViewLeads:
		return m.leads.Update(msg)
	case ViewEmails:
		return m.emails.Update(msg)
	}
	return nil
}

// View renders the console (required by Bubble Tea)
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	switch m.screen {
	case screenStarting:
		return m.styles.Muted.Render("Checking session...")
	case screenLogin:
		return m.login.View() + m.toastLine()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	switch m.currentView {
	case ViewDashboard:
		b.WriteString(m.dashboard.View())
		b.WriteString("\n")
		b.WriteString(m.styles.keyHelp("r", "reload", "tab", "switch view", "?", "help", "q", "quit"))
	case ViewLeads:
		b.WriteString(m.leads.View())
		b.WriteString("\n")
		b.WriteString(m.leads.helpLine())
	case ViewEmails:
		b.WriteString(m.emails.View())
		b.WriteString("\n")
		b.WriteString(m.emails.helpLine())
	case ViewHelp:
		b.WriteString(m.renderHelp())
	}
	b.WriteString(m.toastLine())
	return b.String()
}

func (m Model) toastLine() string {
	if len(m.toasts.items) == 0 {
		return ""
	}
	return "\n" + m.toasts.view(m.styles)
}

func (m Model) renderHeader() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(s.Title.UnsetMarginBottom().Render("RichMansDream CRM"))
	b.WriteString("  ")
	active := m.baseView()
	for i, name := range viewNames {
		label := string(rune('1'+i)) + " " + name
		if ViewType(i) == active && m.currentView != ViewHelp {
			b.WriteString(s.ActiveTab.Render(label))
		} else {
			b.WriteString(s.Tab.Render(label))
		}
	}
	if m.user != nil {
		b.WriteString("  ")
		b.WriteString(s.Muted.Render(m.user.Initials() + " · " + m.user.Name + " (" + string(m.user.Role) + ")"))
	}
	return b.String()
}

func (m Model) renderHelp() string {
	s := m.styles
	rows := [][2]string{
		{"tab / shift+tab", "next / previous view"},
		{"1 2 3", "dashboard, leads, emails"},
		{"/", "search; enter runs it, esc leaves it"},
		{"f", "status filter; arrows move, enter picks, esc closes"},
		{"[ ]", "previous / next page"},
		{"enter", "show details of the selected row"},
		{"t", "cycle inbox, sent, all (emails)"},
		{"p", "toggle templates panel (emails)"},
		{"r", "reload"},
		{"L", "sign out"},
		{"?", "toggle help"},
		{"q / ctrl+c", "quit"},
	}
	var b strings.Builder
	b.WriteString(s.Key.Render("Keyboard shortcuts"))
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString("\n")
		b.WriteString(s.Key.Render(padRight(r[0], 18)))
		b.WriteString(s.KeyDesc.Render(r[1]))
	}
	return s.Border.Render(b.String())
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s + " "
	}
	return s + strings.Repeat(" ", n-len(s))
}
