package tui

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/richmansdream/crmdesk/internal/query"
)

const (
	toastTTL  = 5 * time.Second
	maxToasts = 3
)

// Toast is one transient notification line
type Toast struct {
	ID      int
	Title   string
	Message string
}

// Toaster collects notifications raised by list controllers. Controllers
// call Notify from fetch goroutines; the console drains the queue when the
// fetch result arrives.
type Toaster struct {
	mu      sync.Mutex
	nextID  int
	pending []Toast
}

// Notify implements query.Notifier
func (t *Toaster) Notify(n query.Notification) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	t.pending = append(t.pending, Toast{ID: t.nextID, Title: n.Title, Message: n.Message})
}

// Drain returns and clears the queued toasts
func (t *Toaster) Drain() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.pending
	t.pending = nil
	return out
}

type toastExpiredMsg struct {
	id int
}

// toastStack holds the toasts on screen
type toastStack struct {
	items []Toast
}

// push adds toasts and schedules their expiry
func (s *toastStack) push(toasts []Toast) tea.Cmd {
	if len(toasts) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(toasts))
	for _, t := range toasts {
		s.items = append(s.items, t)
		id := t.ID
		cmds = append(cmds, tea.Tick(toastTTL, func(time.Time) tea.Msg {
			return toastExpiredMsg{id: id}
		}))
	}
	if len(s.items) > maxToasts {
		s.items = s.items[len(s.items)-maxToasts:]
	}
	return tea.Batch(cmds...)
}

func (s *toastStack) expire(id int) {
	for i, t := range s.items {
		if t.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

func (s toastStack) view(st Styles) string {
	lines := make([]string, 0, len(s.items))
	for _, t := range s.items {
		lines = append(lines, st.Toast.Render("✗ "+t.Title+": "+t.Message))
	}
	return strings.Join(lines, "\n")
}

var _ query.Notifier = (*Toaster)(nil)
