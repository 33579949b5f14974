package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// keyMap holds the browser bindings. Printable keys are left to the
// query input, so every action sits on a control or navigation key.
type keyMap struct {
	Up            key.Binding
	Down          key.Binding
	CopyResume    key.Binding
	Edit          key.Binding
	CycleSource   key.Binding
	ToggleThink   key.Binding
	Reload        key.Binding
	Quit          key.Binding
	PreviewUp     key.Binding
	PreviewDown   key.Binding
	PreviewTop    key.Binding
	PreviewBottom key.Binding
}

var keys = keyMap{
	Up:          key.NewBinding(key.WithKeys("up", "ctrl+k", "ctrl+p"), key.WithHelp("↑", "prev")),
	Down:        key.NewBinding(key.WithKeys("down", "ctrl+j", "ctrl+n"), key.WithHelp("↓", "next")),
	CopyResume:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "copy resume")),
	Edit:        key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("C-o", "edit")),
	CycleSource: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "source")),
	ToggleThink: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("C-t", "thinking")),
	Reload:      key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("C-r", "reload")),
	Quit:        key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),

	PreviewUp:     key.NewBinding(key.WithKeys("ctrl+u", "pgup"), key.WithHelp("C-u/C-d", "scroll")),
	PreviewDown:   key.NewBinding(key.WithKeys("ctrl+d", "pgdown")),
	PreviewTop:    key.NewBinding(key.WithKeys("alt+up")),
	PreviewBottom: key.NewBinding(key.WithKeys("alt+down")),
}

// shortHelp is what the status bar advertises.
func (k keyMap) shortHelp() []key.Binding {
	return []key.Binding{k.CopyResume, k.Edit, k.CycleSource, k.ToggleThink, k.PreviewUp, k.Reload, k.Quit}
}

func helpLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		if h.Key == "" {
			continue
		}
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, "  ")
}

// sourceCycle is the order tab steps the source filter through.
var sourceCycle = []string{"", "claude", "codex"}

func nextSource(cur string) string {
	for i, s := range sourceCycle {
		if s == cur {
			return sourceCycle[(i+1)%len(sourceCycle)]
		}
	}
	return ""
}
