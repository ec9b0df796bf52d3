package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type HelpView struct {
	width  int
	height int
}

func NewHelpView() HelpView {
	return HelpView{}
}

func (h HelpView) Init() tea.Cmd {
	return nil
}

func (h HelpView) Update(msg tea.Msg) (HelpView, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		h.width = m.Width
		h.height = m.Height
	case tea.KeyMsg:
		if m.String() == "esc" || m.String() == "q" {
			return h, func() tea.Msg { return helpCancelledMsg{} }
		}
	}
	return h, nil
}

func (h HelpView) View() string {
	if h.width == 0 || h.height == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Commands (Ctrl+P)\n")
	for _, c := range paletteCommands {
		fmt.Fprintf(&b, "  /%-8s %s\n", c.name, c.Description())
	}
	b.WriteString("\nIn a thread\n")
	b.WriteString("  Enter    Send the message\n")
	b.WriteString("  Tab      Switch focus between transcript and composer\n")
	b.WriteString("\nThe composer is disabled while a reply is streaming.\n")
	b.WriteString(hintStyle.Render("Press Esc to close"))

	return panel(b.String(), 0)
}
