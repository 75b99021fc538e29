package tui

import (
	"context"
	stderrors "errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/richmansdream/crmdesk/internal/session"
)

// Adapter bridges the session manager and the Bubble Tea program
type Adapter struct {
	program *tea.Program
}

// NewAdapter creates a console for deps
func NewAdapter(ctx context.Context, deps Deps, opts ...tea.ProgramOption) *Adapter {
	m := NewModel(ctx, deps)
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	a := &Adapter{program: tea.NewProgram(m, opts...)}
	deps.Session.OnChange(a.NotifySession)
	return a
}

// NotifySession forwards a session change to the running program. A 401
// seen by any request arrives here and returns the console to the login
// prompt.
func (a *Adapter) NotifySession(snap session.Snapshot) {
	if a.program != nil {
		a.program.Send(sessionMsg{snapshot: snap})
	}
}

// Run blocks until the user quits or ctx is cancelled
func (a *Adapter) Run() error {
	_, err := a.program.Run()
	if stderrors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("console failed: %w", err)
	}
	return nil
}

// Stop quits the program
func (a *Adapter) Stop() {
	if a.program != nil {
		a.program.Quit()
	}
}

// Run starts the console on the terminal and blocks until it exits
func Run(ctx context.Context, deps Deps) error {
	return NewAdapter(ctx, deps).Run()
}
