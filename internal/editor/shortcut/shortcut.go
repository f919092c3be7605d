// Package shortcut maps key-down events onto composer actions.
package shortcut

import (
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// KeyEvent is a key-down as the browser reports it.
type KeyEvent struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrlKey"`
	Meta  bool   `json:"metaKey"`
	Shift bool   `json:"shiftKey"`
	Alt   bool   `json:"altKey"`
}

// String normalizes the event to the form used in bindings:
// "ctrl+meta+alt+shift+<key>", modifiers in that order, key lowercased.
func (e KeyEvent) String() string {
	var sb strings.Builder
	if e.Ctrl {
		sb.WriteString("ctrl+")
	}
	if e.Meta {
		sb.WriteString("meta+")
	}
	if e.Alt {
		sb.WriteString("alt+")
	}
	if e.Shift {
		sb.WriteString("shift+")
	}
	k := strings.ToLower(e.Key)
	if k == " " {
		k = "space"
	}
	sb.WriteString(k)
	return sb.String()
}

type Shortcut struct {
	Binding key.Binding
	Action  func()
}

// Dispatcher scans its table in order and runs the first match. Duplicate
// bindings are not detected; the earlier one wins.
type Dispatcher struct {
	table []Shortcut
}

func NewDispatcher(table ...Shortcut) *Dispatcher {
	return &Dispatcher{table: table}
}

// Dispatch runs the first enabled shortcut bound to ev and reports whether
// one ran. A handled event should not reach the default behaviour.
func (d *Dispatcher) Dispatch(ev KeyEvent) bool {
	combo := ev.String()
	for _, s := range d.table {
		if !s.Binding.Enabled() || !slices.Contains(s.Binding.Keys(), combo) {
			continue
		}
		if s.Action != nil {
			s.Action()
		}
		return true
	}
	return false
}

// Help lists the enabled bindings' help entries in table order.
func (d *Dispatcher) Help() []key.Help {
	var out []key.Help
	for _, s := range d.table {
		if s.Binding.Enabled() {
			out = append(out, s.Binding.Help())
		}
	}
	return out
}
