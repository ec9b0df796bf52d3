package events

import (
	"github.com/drujensen/meowwchat/internal/domain/entities"
	"github.com/kelindar/event"
)

// Event types
const (
	TranscriptEventType     uint32 = 1
	ThreadsChangedEventType uint32 = 2
)

// TranscriptEventData carries a thread's reconciled transcript after any
// change to its history, echo, streaming fragment or running flag.
type TranscriptEventData struct {
	ThreadID string             `json:"thread_id"`
	Messages []entities.Message `json:"messages"`
	Running  bool               `json:"running"`
}

// ThreadsChangedEventData signals that the thread list should be reloaded.
type ThreadsChangedEventData struct {
	ThreadID string `json:"thread_id"`
}

// Type implements the Event interface
func (t TranscriptEventData) Type() uint32 {
	return TranscriptEventType
}

// Type implements the Event interface
func (t ThreadsChangedEventData) Type() uint32 {
	return ThreadsChangedEventType
}

func PublishTranscriptEvent(threadID string, messages []entities.Message, running bool) {
	event.Emit(TranscriptEventData{ThreadID: threadID, Messages: messages, Running: running})
}

// SubscribeToTranscriptEvents returns a function that cancels the subscription.
func SubscribeToTranscriptEvents(handler func(data TranscriptEventData)) func() {
	return event.On(handler)
}

func PublishThreadsChangedEvent(threadID string) {
	event.Emit(ThreadsChangedEventData{ThreadID: threadID})
}

func SubscribeToThreadsChangedEvents(handler func(data ThreadsChangedEventData)) func() {
	return event.On(handler)
}
