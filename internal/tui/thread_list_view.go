package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/drujensen/meowwchat/internal/domain/entities"
	"github.com/drujensen/meowwchat/internal/domain/services"
)

// threadItem is a thread shown under its age group.
type threadItem struct {
	thread *entities.Thread
	group  string
}

func (i threadItem) Title() string       { return i.thread.Title() }
func (i threadItem) FilterValue() string { return i.thread.FilterValue() }
func (i threadItem) Description() string {
	if age := i.thread.Description(); age != "" {
		return i.group + " · " + age
	}
	return i.group
}

type ThreadListView struct {
	ctx           context.Context
	threadService services.ThreadService
	list          list.Model
	loading       bool
	err           error
	width         int
	height        int
}

func NewThreadListView(ctx context.Context, threadService services.ThreadService) ThreadListView {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(lipgloss.Color("6")).Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(lipgloss.Color("7"))
	delegate.SetHeight(2)

	l := list.New([]list.Item{}, delegate, 100, 10)
	l.Title = "Threads"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowPagination(true)

	return ThreadListView{
		ctx:           ctx,
		threadService: threadService,
		list:          l,
	}
}

func (h ThreadListView) Init() tea.Cmd {
	return loadThreadsCmd(h.ctx, h.threadService)
}

// itemsFromGroups flattens the groups in display order.
func itemsFromGroups(groups []entities.ThreadGroup) []list.Item {
	var items []list.Item
	for _, group := range groups {
		for _, thread := range group.Threads {
			items = append(items, threadItem{thread: thread, group: group.Label})
		}
	}
	return items
}

func (h ThreadListView) Update(msg tea.Msg) (ThreadListView, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		h.width = m.Width
		h.height = m.Height
		h.list.SetSize(m.Width-4, m.Height-3)
		return h, nil

	case threadsLoadedMsg:
		h.loading = false
		h.err = nil
		items := itemsFromGroups(m.groups)
		h.list.SetShowPagination(len(items) > 10)
		return h, h.list.SetItems(items)

	case threadsChangedMsg:
		h.loading = true
		return h, loadThreadsCmd(h.ctx, h.threadService)

	case errMsg:
		h.loading = false
		h.err = m
		return h, nil

	case tea.KeyMsg:
		if h.list.FilterState() == list.Filtering {
			break
		}
		switch m.String() {
		case "esc":
			return h, func() tea.Msg { return threadsCancelledMsg{} }
		case "n", "ctrl+n":
			return h, func() tea.Msg { return startCreateChatMsg{} }
		case "r":
			h.loading = true
			return h, loadThreadsCmd(h.ctx, h.threadService)
		case "enter":
			if selected, ok := h.list.SelectedItem().(threadItem); ok {
				return h, func() tea.Msg { return threadSelectedMsg{threadID: selected.thread.ID} }
			}
		}
	}

	var cmd tea.Cmd
	h.list, cmd = h.list.Update(msg)
	return h, cmd
}

func (h ThreadListView) View() string {
	instructions := "Enter to open, n for a new chat, r to reload, / to filter, Esc to go back"
	if h.loading {
		instructions = "Loading threads..."
	}

	body := h.list.View()
	if len(h.list.Items()) == 0 && !h.loading {
		body = h.list.Styles.Title.Render(h.list.Title) + "\n\nNo threads yet. Press n to start one."
	}

	view := body + "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render(instructions)
	if h.err != nil {
		view += lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Render(fmt.Sprintf("\nError: %s", h.err.Error()))
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(view)
}

func loadThreadsCmd(ctx context.Context, ts services.ThreadService) tea.Cmd {
	return func() tea.Msg {
		groups, err := ts.GroupedThreads(ctx, time.Now())
		if err != nil {
			return errMsg(err)
		}
		return threadsLoadedMsg{groups: groups}
	}
}
