package transcript

import "github.com/drujensen/meowwchat/internal/domain/entities"

// StreamingState holds the latest fragment of the reply being streamed.
// It is not safe for concurrent use; the owning session serializes access.
type StreamingState struct {
	current *entities.Message
}

// SetCurrent replaces the streaming message; nil clears it.
func (s *StreamingState) SetCurrent(msg *entities.Message) {
	if msg == nil {
		s.current = nil
		return
	}
	c := *msg
	s.current = &c
}

func (s *StreamingState) Current() *entities.Message {
	if s.current == nil {
		return nil
	}
	c := *s.current
	return &c
}

// OptimisticEcho holds the user's just-submitted prompt until the backend
// history includes it.
type OptimisticEcho struct {
	current *entities.Message
}

func (e *OptimisticEcho) Set(content string) {
	e.current = entities.NewEchoMessage(content)
}

func (e *OptimisticEcho) Clear() {
	e.current = nil
}

func (e *OptimisticEcho) Current() *entities.Message {
	if e.current == nil {
		return nil
	}
	c := *e.current
	return &c
}
