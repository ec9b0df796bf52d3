package tui

import (
	"github.com/drujensen/meowwchat/internal/domain/entities"
	"github.com/drujensen/meowwchat/internal/domain/events"
	"github.com/drujensen/meowwchat/internal/domain/services"
)

type (
	loggedInMsg     struct{ user *entities.User }
	loggedOutMsg    struct{}
	authRequiredMsg struct{}
)

type (
	startThreadsMsg     struct{}
	threadsLoadedMsg    struct{ groups []entities.ThreadGroup }
	threadSelectedMsg   struct{ threadID string }
	threadsCancelledMsg struct{}
)

type (
	startCreateChatMsg    struct{}
	canceledCreateChatMsg struct{}
	threadCreatedMsg      *entities.CreateThreadResponse
)

type (
	threadOpenedMsg struct {
		thread  *entities.Thread
		session *services.ThreadSession
	}
	transcriptMsg   events.TranscriptEventData
	sendFinishedMsg struct {
		threadID string
		err      error
	}
	threadsChangedMsg events.ThreadsChangedEventData
)

type (
	startHelpMsg     struct{}
	helpCancelledMsg struct{}
)

type (
	startCommandsMsg     struct{}
	executeCommandMsg    struct{ command string }
	commandsCancelledMsg struct{}
)

type errMsg error
