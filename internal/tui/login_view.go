package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/drujensen/meowwchat/internal/domain/services"
)

var ErrMissingCredentials = errors.New("email and password are required")

type LoginView struct {
	ctx         context.Context
	authService services.AuthService
	email       textinput.Model
	password    textinput.Model
	focused     string // "email" or "password"
	busy        bool
	err         error
	width       int
	height      int
}

func NewLoginView(ctx context.Context, authService services.AuthService) LoginView {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	email.Focus()
	email.CharLimit = 254
	email.Width = 50

	password := textinput.New()
	password.Placeholder = "password"
	password.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128
	password.Width = 50

	return LoginView{
		ctx:         ctx,
		authService: authService,
		email:       email,
		password:    password,
		focused:     "email",
	}
}

func (l LoginView) Init() tea.Cmd {
	return textinput.Blink
}

func (l *LoginView) focus(field string) {
	l.focused = field
	if field == "email" {
		l.email.Focus()
		l.password.Blur()
	} else {
		l.email.Blur()
		l.password.Focus()
	}
}

func (l LoginView) Update(msg tea.Msg) (LoginView, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		l.width = m.Width
		l.height = m.Height
		l.email.Width = m.Width - 8
		l.password.Width = m.Width - 8
		return l, nil

	case loggedInMsg:
		l.busy = false
		l.err = nil
		l.password.Reset()
		return l, nil

	case errMsg:
		l.busy = false
		l.err = m
		return l, nil

	case tea.KeyMsg:
		if l.busy {
			return l, nil
		}
		switch m.String() {
		case "ctrl+c", "esc":
			return l, tea.Quit
		case "tab", "shift+tab", "up", "down":
			if l.focused == "email" {
				l.focus("password")
			} else {
				l.focus("email")
			}
			return l, textinput.Blink
		case "enter":
			if l.focused == "email" && l.password.Value() == "" {
				l.focus("password")
				return l, textinput.Blink
			}
			email := strings.TrimSpace(l.email.Value())
			if email == "" || l.password.Value() == "" {
				l.err = ErrMissingCredentials
				return l, nil
			}
			l.err = nil
			l.busy = true
			return l, loginCmd(l.ctx, l.authService, email, l.password.Value())
		}
	}

	var cmd tea.Cmd
	if l.focused == "email" {
		l.email, cmd = l.email.Update(msg)
	} else {
		l.password, cmd = l.password.Update(msg)
	}
	return l, cmd
}

func (l LoginView) View() string {
	if l.width == 0 || l.height == 0 {
		return ""
	}

	focusedBorder := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("6"))

	unfocusedBorder := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("8"))

	outerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.ThickBorder()).
		BorderForeground(lipgloss.Color("4")).
		Width(l.width - 2).
		Height(l.height - 2).
		Padding(1)

	emailStyle := unfocusedBorder.Width(l.width - 6)
	passwordStyle := unfocusedBorder.Width(l.width - 6)
	if l.focused == "email" {
		emailStyle = focusedBorder.Width(l.width - 6)
	} else {
		passwordStyle = focusedBorder.Width(l.width - 6)
	}

	var sb strings.Builder
	sb.WriteString(lipgloss.NewStyle().Bold(true).Render("Log in to Meoww Chat") + "\n\n")
	sb.WriteString("Email:\n")
	sb.WriteString(emailStyle.Render(l.email.View()) + "\n")
	sb.WriteString("Password:\n")
	sb.WriteString(passwordStyle.Render(l.password.View()) + "\n\n")

	instructions := "Press Enter to log in, Tab to switch field, Esc to quit. New here? Run `meowwchat register`."
	if l.busy {
		instructions = "Logging in..."
	}
	sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render(instructions))

	if l.err != nil {
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Render(fmt.Sprintf("\n\nError: %s", l.err.Error())))
	}

	return outerStyle.Render(sb.String())
}

func loginCmd(ctx context.Context, as services.AuthService, email, password string) tea.Cmd {
	return func() tea.Msg {
		if _, err := as.Login(ctx, email, password); err != nil {
			return errMsg(err)
		}
		user, err := as.CurrentUser(ctx)
		if err != nil {
			return errMsg(err)
		}
		return loggedInMsg{user: user}
	}
}
