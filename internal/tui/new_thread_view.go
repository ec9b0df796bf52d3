package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/drujensen/meowwchat/internal/domain/services"
)

var ErrEmptyPrompt = errors.New("prompt cannot be empty")

type NewThreadView struct {
	ctx           context.Context
	threadService services.ThreadService
	prompt        textarea.Model
	busy          bool
	err           error
	width         int
	height        int
}

func NewNewThreadView(ctx context.Context, threadService services.ThreadService) NewThreadView {
	ta := textarea.New()
	ta.Placeholder = "What would you like to talk about?"
	ta.Focus()
	ta.Prompt = "┃ "
	ta.SetWidth(50)
	ta.SetHeight(5)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	return NewThreadView{
		ctx:           ctx,
		threadService: threadService,
		prompt:        ta,
	}
}

func (c *NewThreadView) Reset() {
	c.prompt.Reset()
	c.prompt.Focus()
	c.busy = false
	c.err = nil
}

func (c NewThreadView) Init() tea.Cmd {
	return textarea.Blink
}

func (c NewThreadView) Update(msg tea.Msg) (NewThreadView, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		c.width = m.Width
		c.height = m.Height
		c.prompt.SetWidth(m.Width - 6)
		return c, nil

	case errMsg:
		c.busy = false
		c.err = m
		return c, nil

	case tea.KeyMsg:
		if c.busy {
			return c, nil
		}
		switch m.String() {
		case "esc":
			return c, func() tea.Msg { return canceledCreateChatMsg{} }
		case "enter":
			prompt := strings.TrimSpace(c.prompt.Value())
			if prompt == "" {
				c.err = ErrEmptyPrompt
				return c, nil
			}
			c.err = nil
			c.busy = true
			return c, createThreadCmd(c.ctx, c.threadService, prompt)
		}
	}

	var cmd tea.Cmd
	c.prompt, cmd = c.prompt.Update(msg)
	return c, cmd
}

func (c NewThreadView) View() string {
	if c.width == 0 || c.height == 0 {
		return ""
	}

	outerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.ThickBorder()).
		BorderForeground(lipgloss.Color("4")).
		Width(c.width - 2).
		Height(c.height - 2).
		Padding(1)

	promptStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("6")).
		Width(c.width - 6)

	var sb strings.Builder
	sb.WriteString("New chat:\n")
	sb.WriteString(promptStyle.Render(c.prompt.View()) + "\n")

	instructions := "Press Enter to start the chat, Esc to cancel"
	if c.busy {
		instructions = "Creating thread..."
	}
	sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render(instructions))

	if c.err != nil {
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Render(fmt.Sprintf("\nError: %s", c.err.Error())))
	}

	return outerStyle.Render(sb.String())
}

func createThreadCmd(ctx context.Context, ts services.ThreadService, prompt string) tea.Cmd {
	return func() tea.Msg {
		created, err := ts.CreateThread(ctx, prompt)
		if err != nil {
			return errMsg(err)
		}
		return threadCreatedMsg(created)
	}
}
