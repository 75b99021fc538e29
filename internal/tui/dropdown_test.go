package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/richmansdream/crmdesk/internal/query"
)

func TestDropdown_SelectEmitsOnChange(t *testing.T) {
	d := NewDropdown("status", "Status", []string{"all", "hot", "warm", "cold"})
	if d.Value() != "all" {
		t.Fatalf("Expected first option selected, got %q", d.Value())
	}

	// keys are ignored while closed
	d, cmd := d.Update(keyMsg("down"))
	if cmd != nil || d.Value() != "all" {
		t.Fatal("Expected closed dropdown to ignore keys")
	}

	d.Open()
	d, _ = d.Update(keyMsg("down"))
	d, _ = d.Update(keyMsg("down"))
	d, cmd = d.Update(keyMsg("enter"))

	if d.IsOpen() {
		t.Error("Expected enter to close the menu")
	}
	if d.Value() != "warm" {
		t.Errorf("Expected warm, got %q", d.Value())
	}
	if cmd == nil {
		t.Fatal("Expected a selection message")
	}
	msg, ok := cmd().(DropdownSelectedMsg)
	if !ok || msg.ID != "status" || msg.Value != "warm" {
		t.Errorf("Unexpected message %+v", msg)
	}
}

func TestDropdown_ReselectingIsSilent(t *testing.T) {
	d := NewDropdown("status", "Status", []string{"all", "hot"})
	d.Open()
	d, cmd := d.Update(keyMsg("enter"))
	if cmd != nil {
		t.Error("Expected no message when the selection did not change")
	}
	if d.IsOpen() {
		t.Error("Expected menu to close")
	}
}

func TestDropdown_EscKeepsSelection(t *testing.T) {
	d := NewDropdown("status", "Status", []string{"all", "hot"})
	d.Select("hot")
	d.Open()
	d, _ = d.Update(keyMsg("up"))
	d, cmd := d.Update(keyMsg("esc"))

	if cmd != nil || d.IsOpen() {
		t.Error("Expected esc to close silently")
	}
	if d.Value() != "hot" {
		t.Errorf("Expected selection kept, got %q", d.Value())
	}
}

func TestDropdown_CursorStaysInRange(t *testing.T) {
	d := NewDropdown("status", "Status", []string{"all", "hot"})
	d.Open()
	for i := 0; i < 5; i++ {
		d, _ = d.Update(keyMsg("down"))
	}
	d, _ = d.Update(keyMsg("enter"))
	if d.Value() != "hot" {
		t.Errorf("Expected last option, got %q", d.Value())
	}

	d.Open()
	for i := 0; i < 5; i++ {
		d, _ = d.Update(tea.KeyMsg{Type: tea.KeyUp})
	}
	d, _ = d.Update(keyMsg("enter"))
	if d.Value() != "all" {
		t.Errorf("Expected first option, got %q", d.Value())
	}
}

func TestDropdown_View(t *testing.T) {
	s := DefaultStyles()
	d := NewDropdown("status", "Status", []string{"all", "hot"})

	closed := d.View(s)
	if !strings.Contains(closed, "Status:") || strings.Contains(closed, "hot") {
		t.Errorf("Expected closed view to show only the selection, got %q", closed)
	}

	d.Open()
	if !strings.Contains(d.View(s), "hot") {
		t.Error("Expected open view to list options")
	}
}

func TestToaster_Drain(t *testing.T) {
	var toaster Toaster
	toaster.Notify(query.Notification{Title: "Error", Message: "Failed to load leads. Please try again."})
	toaster.Notify(query.Notification{Title: "Error", Message: "Failed to load emails. Please try again."})

	got := toaster.Drain()
	if len(got) != 2 {
		t.Fatalf("Expected 2 toasts, got %d", len(got))
	}
	if got[0].ID == got[1].ID {
		t.Error("Expected distinct toast ids")
	}
	if len(toaster.Drain()) != 0 {
		t.Error("Expected drain to clear the queue")
	}
}

func TestToastStack_KeepsNewest(t *testing.T) {
	stack := &toastStack{}
	for i := 1; i <= 5; i++ {
		stack.push([]Toast{{ID: i, Title: "Error", Message: "boom"}})
	}
	if len(stack.items) != maxToasts {
		t.Fatalf("Expected %d toasts, got %d", maxToasts, len(stack.items))
	}
	if stack.items[0].ID != 3 {
		t.Errorf("Expected oldest toasts dropped, first is %d", stack.items[0].ID)
	}

	stack.expire(4)
	if len(stack.items) != 2 {
		t.Errorf("Expected expire to remove one toast, got %d", len(stack.items))
	}
	stack.expire(99)
	if len(stack.items) != 2 {
		t.Error("Expected unknown ids to be ignored")
	}
}
