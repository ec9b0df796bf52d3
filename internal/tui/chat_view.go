package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/drujensen/meowwchat/internal/domain/entities"
	"github.com/drujensen/meowwchat/internal/domain/errs"
	"github.com/drujensen/meowwchat/internal/domain/services"
)

type ChatView struct {
	ctx           context.Context
	threadService services.ThreadService
	session       *services.ThreadSession
	thread        *entities.Thread
	messages      []entities.Message
	running       bool
	loading       bool
	viewport      viewport.Model
	textarea      textarea.Model
	spinner       spinner.Model
	userStyle     lipgloss.Style
	asstStyle     lipgloss.Style
	systemStyle   lipgloss.Style
	err           error
	startTime     time.Time
	focused       string // "textarea" or "viewport"
	width         int
	height        int
}

func NewChatView(ctx context.Context, threadService services.ThreadService) ChatView {
	ta := textarea.New()
	ta.Placeholder = "Type your message..."
	ta.Focus()
	ta.Prompt = "┃ "
	ta.SetWidth(30)
	ta.SetHeight(3)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	vp := viewport.New(30, 5)

	us := lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	as := lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	ss := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return ChatView{
		ctx:           ctx,
		threadService: threadService,
		textarea:      ta,
		viewport:      vp,
		spinner:       s,
		userStyle:     us,
		asstStyle:     as,
		systemStyle:   ss,
		focused:       "textarea",
		width:         30,
		height:        5,
	}
}

// ThreadID returns the open thread, or "" when none is open.
func (c ChatView) ThreadID() string {
	if c.session == nil {
		return ""
	}
	return c.session.ThreadID()
}

// Open switches the view to threadID and starts loading it.
func (c *ChatView) Open(threadID string) tea.Cmd {
	c.session = nil
	c.thread = nil
	c.messages = nil
	c.running = false
	c.loading = true
	c.err = nil
	c.textarea.Reset()
	c.updateViewportContent()
	return openThreadCmd(c.ctx, c.threadService, threadID)
}

func (c *ChatView) setMessages(messages []entities.Message) {
	c.messages = messages
	c.updateViewportContent()
}

func (c *ChatView) setRunning(running bool) tea.Cmd {
	if running == c.running {
		return nil
	}
	c.running = running
	if running {
		c.startTime = time.Now()
		return c.spinner.Tick
	}
	return nil
}

func (c *ChatView) renderMessages() string {
	var sb strings.Builder
	for _, message := range c.messages {
		switch message.DisplayRole() {
		case entities.RoleUser:
			sb.WriteString(c.userStyle.Render("You: ") + message.Content + "\n")
		case entities.RoleAssistant:
			sb.WriteString(c.asstStyle.Render("Assistant: ") + message.Content + "\n")
		default:
			sb.WriteString(c.systemStyle.Render(message.Role+": ") + message.Content + "\n")
		}
	}
	return sb.String()
}

func (c *ChatView) updateViewportContent() {
	content := c.renderMessages()
	if len(c.messages) == 0 {
		content = "How can I help you today?"
		if c.loading {
			content = "Loading thread..."
		}
	}
	c.viewport.SetContent(lipgloss.NewStyle().Width(c.viewport.Width).Render(content))
	c.viewport.GotoBottom()
}

func (c ChatView) Init() tea.Cmd {
	c.textarea.Focus()
	c.focused = "textarea"
	return textarea.Blink
}

func (c ChatView) Update(msg tea.Msg) (ChatView, tea.Cmd) {
	var cmds []tea.Cmd

	switch m := msg.(type) {
	case tea.KeyMsg:
		switch m.String() {
		case "ctrl+c":
			return c, tea.Quit
		case "esc":
			return c, nil
		case "ctrl+p":
			if c.focused == "textarea" {
				return c, func() tea.Msg { return startCommandsMsg{} }
			}
		case "ctrl+h":
			return c, func() tea.Msg { return startThreadsMsg{} }
		case "ctrl+n":
			return c, func() tea.Msg { return startCreateChatMsg{} }
		case "enter":
			if c.focused == "textarea" {
				// The composer is disabled while a reply streams.
				if c.running {
					return c, nil
				}
				input := c.textarea.Value()
				if strings.TrimSpace(input) == "" {
					c.err = fmt.Errorf("message cannot be empty")
					return c, nil
				}
				if c.session == nil {
					c.err = fmt.Errorf("no thread open")
					return c, nil
				}
				c.textarea.Reset()
				c.err = nil
				return c, tea.Batch(submitCmd(c.ctx, c.session, input), c.setRunning(true))
			}
		case "tab", "shift+tab":
			if c.focused == "textarea" {
				c.focused = "viewport"
				c.textarea.Blur()
			} else {
				c.focused = "textarea"
				c.textarea.Focus()
				cmds = append(cmds, textarea.Blink)
			}
			return c, tea.Batch(cmds...)
		case "j", "down":
			if c.focused == "viewport" {
				c.viewport.ScrollDown(1)
			} else {
				var cmd tea.Cmd
				c.textarea, cmd = c.textarea.Update(m)
				cmds = append(cmds, cmd)
			}
		case "k", "up":
			if c.focused == "viewport" {
				c.viewport.ScrollUp(1)
			} else {
				var cmd tea.Cmd
				c.textarea, cmd = c.textarea.Update(m)
				cmds = append(cmds, cmd)
			}
		default:
			if c.focused == "textarea" {
				var cmd tea.Cmd
				c.textarea, cmd = c.textarea.Update(m)
				cmds = append(cmds, cmd)
			}
		}

	case spinner.TickMsg:
		if c.running {
			var cmd tea.Cmd
			c.spinner, cmd = c.spinner.Update(m)
			return c, cmd
		}

	case threadOpenedMsg:
		c.loading = false
		c.session = m.session
		c.thread = m.thread
		c.setMessages(m.session.Transcript())
		return c, tea.Batch(c.setRunning(m.session.Running()), autoStartCmd(c.ctx, m.session))

	case transcriptMsg:
		if m.ThreadID != c.ThreadID() {
			return c, nil
		}
		c.setMessages(m.Messages)
		return c, c.setRunning(m.Running)

	case sendFinishedMsg:
		if m.threadID != c.ThreadID() {
			return c, nil
		}
		c.setMessages(c.session.Transcript())
		c.setRunning(c.session.Running())
		c.err = describeSendError(m.err)
		return c, nil

	case errMsg:
		c.loading = false
		c.err = m
		c.updateViewportContent()
		return c, nil

	case tea.WindowSizeMsg:
		c.width = m.Width
		c.height = m.Height
		innerWidth := c.width - 4
		innerHeight := c.height - 4

		c.viewport.Width = innerWidth
		// Subtract title (1), textarea height (3), instructions (1), possible error (1), and adjust for borders
		c.viewport.Height = innerHeight - 1 - 3 - 1 - 1 - 2

		c.textarea.SetWidth(innerWidth)
		c.updateViewportContent()
		return c, nil

	case tea.MouseMsg:
		viewportYStart := 1
		viewportBlockHeight := c.viewport.Height + 2
		viewportYEnd := viewportYStart + viewportBlockHeight
		if m.Y >= viewportYStart && m.Y < viewportYEnd {
			switch m.Button {
			case tea.MouseButtonWheelUp:
				c.viewport.ScrollUp(3)
			case tea.MouseButtonWheelDown:
				c.viewport.ScrollDown(3)
			}
		}
		return c, nil
	}

	return c, tea.Batch(cmds...)
}

func (c ChatView) View() string {
	focusedBorder := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("6"))

	unfocusedBorder := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("8"))

	outerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.ThickBorder()).
		BorderForeground(lipgloss.Color("4")).
		Width(c.width - 2).
		Height(c.height - 2)

	var sb strings.Builder

	if c.thread != nil {
		sb.WriteString(lipgloss.NewStyle().Bold(true).Render(c.thread.Title()) + "\n")
	}

	vpStyle := unfocusedBorder.Width(c.width - 4).Height(c.viewport.Height)
	if c.focused == "viewport" {
		vpStyle = focusedBorder.Width(c.width - 4).Height(c.viewport.Height)
	}
	sb.WriteString(vpStyle.Render(c.viewport.View()))

	taStyle := unfocusedBorder.Width(c.width - 4).Height(c.textarea.Height())
	if c.focused == "textarea" {
		taStyle = focusedBorder.Width(c.width - 4).Height(c.textarea.Height())
	}
	sb.WriteString(taStyle.Render(c.textarea.View()))

	if c.running {
		elapsed := time.Since(c.startTime).Round(time.Second)
		sb.WriteString("\n" + c.spinner.View() + fmt.Sprintf(" Thinking... (%ds)", int(elapsed.Seconds())))
	} else {
		instructions := "Press Ctrl+P for menu, Ctrl+H for threads, Tab to switch focus, j/k to navigate, Ctrl+C to exit."
		sb.WriteString("\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render(instructions))
	}

	if c.err != nil {
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Render(fmt.Sprintf("\n%s", c.err.Error())))
	}

	return outerStyle.Render(sb.String())
}

// describeSendError turns a finished send's error into what the user sees.
func describeSendError(err error) error {
	if err == nil {
		return nil
	}
	var alreadyRunning *errs.AlreadyRunningError
	var refreshFailed *errs.RefreshFailedError
	var unauthorized *errs.UnauthorizedError
	switch {
	case errors.As(err, &alreadyRunning):
		return fmt.Errorf("a reply is still streaming, please wait")
	case errors.As(err, &refreshFailed):
		return fmt.Errorf("reply received but the thread could not be reloaded: %v", refreshFailed.Unwrap())
	case errors.As(err, &unauthorized):
		return unauthorized
	}
	return fmt.Errorf("failed to send message: %w", err)
}

func openThreadCmd(ctx context.Context, ts services.ThreadService, threadID string) tea.Cmd {
	return func() tea.Msg {
		session, err := ts.Session(threadID)
		if err != nil {
			return errMsg(err)
		}
		thread, err := session.Open(ctx)
		if err != nil {
			return errMsg(err)
		}
		return threadOpenedMsg{thread: thread, session: session}
	}
}

func autoStartCmd(ctx context.Context, session *services.ThreadSession) tea.Cmd {
	return func() tea.Msg {
		fired, err := session.AutoStart(ctx)
		if !fired {
			return nil
		}
		return sendFinishedMsg{threadID: session.ThreadID(), err: err}
	}
}

func submitCmd(ctx context.Context, session *services.ThreadSession, content string) tea.Cmd {
	return func() tea.Msg {
		err := session.Submit(ctx, content)
		return sendFinishedMsg{threadID: session.ThreadID(), err: err}
	}
}
