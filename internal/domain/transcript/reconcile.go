package transcript

import "github.com/drujensen/meowwchat/internal/domain/entities"

// Reconcile merges persisted history, the optimistic echo and the streaming
// fragment into the transcript to display.
//
// The walk order is persisted, then echo, then streaming. Entries are
// deduplicated by content: each distinct content keeps the position where
// it was first seen and the value of the last entry that had it.
func Reconcile(persisted []entities.Message, echo, streaming *entities.Message) []entities.Message {
	walk := make([]entities.Message, 0, len(persisted)+2)
	walk = append(walk, persisted...)
	if echo != nil {
		walk = append(walk, *echo)
	}
	if streaming != nil {
		walk = append(walk, *streaming)
	}

	out := make([]entities.Message, 0, len(walk))
	position := make(map[string]int, len(walk))
	for _, msg := range walk {
		if i, ok := position[msg.Content]; ok {
			out[i] = msg
			continue
		}
		position[msg.Content] = len(out)
		out = append(out, msg)
	}
	return out
}
