package tui

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// paletteCommands is the order the command menu and the help view list them.
var paletteCommands = []CommandItem{
	{name: "new", desc: "Start a new chat", key: "Ctrl+N"},
	{name: "threads", desc: "Browse your threads", key: "Ctrl+H"},
	{name: "help", desc: "Show keyboard shortcuts"},
	{name: "logout", desc: "Log out and forget the stored session"},
	{name: "exit", desc: "Exit the application", key: "Ctrl+C"},
}

type CommandItem struct {
	name string
	desc string
	key  string
}

func (i CommandItem) Title() string { return "/" + i.name }

func (i CommandItem) Description() string {
	if i.key == "" {
		return i.desc
	}
	return i.desc + " (" + i.key + ")"
}

func (i CommandItem) FilterValue() string { return i.name }

var (
	panelInner = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("6"))
	panelOuter = lipgloss.NewStyle().BorderStyle(lipgloss.ThickBorder()).BorderForeground(lipgloss.Color("4"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// panel wraps content in the double border shared by the overlay views.
func panel(content string, width int) string {
	inner := panelInner
	if width > 0 {
		inner = inner.Width(width)
	}
	return panelOuter.Render(inner.Render(content))
}

type CommandMenu struct {
	list   list.Model
	width  int
	height int
}

func NewCommandMenu() CommandMenu {
	items := make([]list.Item, 0, len(paletteCommands))
	for _, c := range paletteCommands {
		items = append(items, c)
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(lipgloss.Color("6")).Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(lipgloss.Color("7"))

	l := list.New(items, delegate, 80, 12)
	l.Title = "Commands"
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)

	return CommandMenu{list: l}
}

func (m CommandMenu) Init() tea.Cmd {
	return nil
}

func (m CommandMenu) Update(msg tea.Msg) (CommandMenu, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// list, hint line and two borders of two rows each
		m.list.SetSize(m.width-6, max(m.height-5, 6))
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "esc":
			return m, func() tea.Msg { return commandsCancelledMsg{} }
		case "enter":
			if selected, ok := m.list.SelectedItem().(CommandItem); ok {
				return m, func() tea.Msg { return executeCommandMsg{command: selected.name} }
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m CommandMenu) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	hint := hintStyle.Width(m.width - 6).Render("Type / to filter, arrows or j/k to move, Enter to run, Esc to close")
	return panel(m.list.View()+"\n"+hint, m.width-4)
}
