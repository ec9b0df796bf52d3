package tui

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/drujensen/meowwchat/internal/domain/entities"
	"github.com/drujensen/meowwchat/internal/domain/errs"
	"github.com/drujensen/meowwchat/internal/domain/events"
	"github.com/drujensen/meowwchat/internal/domain/services"
	"go.uber.org/zap"
)

// eventBridge forwards bus events into the Bubble Tea loop.
type eventBridge struct {
	ch          chan tea.Msg
	done        chan struct{}
	once        sync.Once
	unsubscribe []func()
}

func newEventBridge() *eventBridge {
	b := &eventBridge{
		ch:   make(chan tea.Msg, 64),
		done: make(chan struct{}),
	}
	b.unsubscribe = append(b.unsubscribe,
		events.SubscribeToTranscriptEvents(func(data events.TranscriptEventData) {
			b.forward(transcriptMsg(data))
		}),
		events.SubscribeToThreadsChangedEvents(func(data events.ThreadsChangedEventData) {
			b.forward(threadsChangedMsg(data))
		}),
	)
	return b
}

func (b *eventBridge) forward(msg tea.Msg) {
	select {
	case b.ch <- msg:
	case <-b.done:
	}
}

// listen waits for the next bus event. It is re-armed after every event.
func (b *eventBridge) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.ch:
			return msg
		case <-b.done:
			return nil
		}
	}
}

func (b *eventBridge) close() {
	b.once.Do(func() {
		for _, unsubscribe := range b.unsubscribe {
			unsubscribe()
		}
		close(b.done)
	})
}

type TUI struct {
	ctx           context.Context
	authService   services.AuthService
	threadService services.ThreadService
	logger        *zap.Logger
	bridge        *eventBridge
	user          *entities.User

	loginView     LoginView
	threadList    ThreadListView
	newThreadView NewThreadView
	chatView      ChatView
	helpView      HelpView
	commandMenu   CommandMenu

	state string
}

func NewTUI(ctx context.Context, authService services.AuthService, threadService services.ThreadService, logger *zap.Logger) TUI {
	initialState := "threads/list"
	if !authService.IsAuthenticated(ctx) {
		initialState = "auth/login"
	}

	return TUI{
		ctx:           ctx,
		authService:   authService,
		threadService: threadService,
		logger:        logger,
		bridge:        newEventBridge(),

		loginView:     NewLoginView(ctx, authService),
		threadList:    NewThreadListView(ctx, threadService),
		newThreadView: NewNewThreadView(ctx, threadService),
		chatView:      NewChatView(ctx, threadService),
		helpView:      NewHelpView(),
		commandMenu:   NewCommandMenu(),

		state: initialState,
	}
}

// Close stops forwarding bus events. Call it after the program exits.
func (t TUI) Close() {
	t.bridge.close()
}

func (t TUI) Init() tea.Cmd {
	cmds := []tea.Cmd{t.bridge.listen(), t.chatView.Init()}
	if t.state == "auth/login" {
		cmds = append(cmds, t.loginView.Init())
	} else {
		cmds = append(cmds, t.threadList.Init())
	}
	return tea.Batch(cmds...)
}

// backToChat returns to the open thread, or to the thread list when none is
// open.
func (t *TUI) backToChat() {
	if t.chatView.ThreadID() != "" {
		t.state = "chat/view"
	} else {
		t.state = "threads/list"
	}
}

func (t TUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	// Bus events
	case transcriptMsg:
		var cmd tea.Cmd
		t.chatView, cmd = t.chatView.Update(msg)
		return t, tea.Batch(cmd, t.bridge.listen())
	case threadsChangedMsg:
		var cmd tea.Cmd
		t.threadList, cmd = t.threadList.Update(msg)
		return t, tea.Batch(cmd, t.bridge.listen())

	// Auth
	case loggedInMsg:
		t.user = msg.user
		t.loginView, _ = t.loginView.Update(msg)
		t.state = "threads/list"
		t.logger.Debug("TUI logged in", zap.String("user_id", msg.user.ID))
		return t, t.threadList.Init()
	case loggedOutMsg, authRequiredMsg:
		t.user = nil
		t.state = "auth/login"
		return t, t.loginView.Init()

	// Threads
	case startThreadsMsg:
		t.state = "threads/list"
		return t, t.threadList.Init()
	case threadsCancelledMsg:
		t.backToChat()
		return t, nil
	case threadSelectedMsg:
		t.state = "chat/view"
		return t, tea.Batch(t.chatView.Open(msg.threadID), t.chatView.Init())

	// New chat
	case startCreateChatMsg:
		t.state = "chat/create"
		t.newThreadView.Reset()
		return t, t.newThreadView.Init()
	case canceledCreateChatMsg:
		t.backToChat()
		return t, nil
	case threadCreatedMsg:
		t.state = "chat/view"
		return t, tea.Batch(t.chatView.Open(msg.ThreadID), t.chatView.Init())

	// Sends
	case sendFinishedMsg:
		var cmd tea.Cmd
		t.chatView, cmd = t.chatView.Update(msg)
		if isUnauthorized(msg.err) {
			return t, tea.Batch(cmd, func() tea.Msg { return authRequiredMsg{} })
		}
		return t, cmd

	// Help
	case startHelpMsg:
		t.state = "chat/help"
		return t, t.helpView.Init()
	case helpCancelledMsg:
		t.backToChat()
		return t, nil

	// Command menu
	case startCommandsMsg:
		t.state = "chat/commands"
		t.commandMenu.list.ResetFilter()
		return t, t.commandMenu.Init()
	case commandsCancelledMsg:
		t.backToChat()
		return t, nil
	case executeCommandMsg:
		t.backToChat()
		switch msg.command {
		case "new":
			return t, func() tea.Msg { return startCreateChatMsg{} }
		case "threads":
			return t, func() tea.Msg { return startThreadsMsg{} }
		case "help":
			return t, func() tea.Msg { return startHelpMsg{} }
		case "logout":
			return t, logoutCmd(t.ctx, t.authService)
		case "exit":
			return t, tea.Quit
		}
		return t, nil

	case errMsg:
		if isUnauthorized(msg) && t.state != "auth/login" {
			t.state = "auth/login"
			t.loginView, _ = t.loginView.Update(msg)
			return t, t.loginView.Init()
		}

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return t, tea.Quit
		}

	case tea.WindowSizeMsg:
		var (
			cmd  tea.Cmd
			cmds []tea.Cmd
		)

		t.loginView, cmd = t.loginView.Update(msg)
		cmds = append(cmds, cmd)
		t.threadList, cmd = t.threadList.Update(msg)
		cmds = append(cmds, cmd)
		t.newThreadView, cmd = t.newThreadView.Update(msg)
		cmds = append(cmds, cmd)
		t.chatView, cmd = t.chatView.Update(msg)
		cmds = append(cmds, cmd)
		t.helpView, cmd = t.helpView.Update(msg)
		cmds = append(cmds, cmd)
		t.commandMenu, cmd = t.commandMenu.Update(msg)
		cmds = append(cmds, cmd)

		return t, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	switch t.state {
	case "auth/login":
		t.loginView, cmd = t.loginView.Update(msg)
	case "threads/list":
		t.threadList, cmd = t.threadList.Update(msg)
	case "chat/create":
		t.newThreadView, cmd = t.newThreadView.Update(msg)
	case "chat/view":
		t.chatView, cmd = t.chatView.Update(msg)
	case "chat/help":
		t.helpView, cmd = t.helpView.Update(msg)
	case "chat/commands":
		t.commandMenu, cmd = t.commandMenu.Update(msg)
	}
	return t, cmd
}

func (t TUI) View() string {
	switch t.state {
	case "auth/login":
		return t.loginView.View()
	case "threads/list":
		return t.threadList.View()
	case "chat/create":
		return t.newThreadView.View()
	case "chat/view":
		return t.chatView.View()
	case "chat/help":
		return t.helpView.View()
	case "chat/commands":
		return t.commandMenu.View()
	}

	return "Error: Invalid state"
}

func isUnauthorized(err error) bool {
	var unauthorized *errs.UnauthorizedError
	return errors.As(err, &unauthorized) || errs.HasStatus(err, 401)
}

func logoutCmd(ctx context.Context, as services.AuthService) tea.Cmd {
	return func() tea.Msg {
		if err := as.Logout(ctx); err != nil {
			return errMsg(err)
		}
		return loggedOutMsg{}
	}
}
