package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/richmansdream/crmdesk/internal/session"
	"github.com/richmansdream/crmdesk/internal/ux"
)

type loginSubmitMsg struct{}

type loginResultMsg struct {
	result session.Result
}

// loginView hosts the credentials form. The form only submits once both
// fields pass validation.
type loginView struct {
	styles   Styles
	email    string
	password string
	form     *huh.Form

	submitting bool
	// message is the last failure or an expiry notice
	message string
}

func newLoginView(styles Styles) *loginView {
	v := &loginView{styles: styles}
	v.reset()
	return v
}

// reset rebuilds the form, keeping the email and clearing the password
func (v *loginView) reset() {
	v.password = ""
	v.submitting = false
	v.form = ux.CredentialsForm(&v.email, &v.password).WithShowHelp(true)
	v.form.SubmitCmd = func() tea.Msg { return loginSubmitMsg{} }
	v.form.CancelCmd = tea.Quit
}

func (v *loginView) Init() tea.Cmd {
	return v.form.Init()
}

// credentials returns the submitted email and password
func (v *loginView) credentials() (string, string) {
	return strings.TrimSpace(v.email), v.password
}

func (v *loginView) Update(msg tea.Msg) tea.Cmd {
	if v.submitting {
		return nil
	}
	model, cmd := v.form.Update(msg)
	if f, ok := model.(*huh.Form); ok {
		v.form = f
	}
	return cmd
}

func (v *loginView) View() string {
	s := v.styles
	var b strings.Builder
	b.WriteString(s.Title.Render("RichMansDream CRM"))
	b.WriteString("\n")
	if v.submitting {
		b.WriteString(s.Muted.Render("Signing in as " + strings.TrimSpace(v.email) + "..."))
		return b.String()
	}
	b.WriteString(v.form.View())
	if v.message != "" {
		b.WriteString("\n")
		b.WriteString(s.Error.Render(v.message))
	}
	return b.String()
}
