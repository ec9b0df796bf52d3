package transcript

import (
	"encoding/json"
	"strings"

	"github.com/drujensen/meowwchat/internal/domain/entities"
	"github.com/drujensen/meowwchat/internal/domain/errs"
)

// ParseFragment decodes one stream line into a message. Malformed, empty
// or non-object lines report false; they are never an error for the caller.
func ParseFragment(line string) (entities.Message, bool) {
	msg, err := parseFragment(line)
	return msg, err == nil
}

func parseFragment(line string) (entities.Message, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return entities.Message{}, errs.NewFragmentParseError(line, nil)
	}
	var msg entities.Message
	if err := json.Unmarshal([]byte(trimmed), &msg); err != nil {
		return entities.Message{}, errs.NewFragmentParseError(line, err)
	}
	return msg, nil
}

// ChunkResult is what one chunk's lines amount to.
type ChunkResult struct {
	// Fragment is the last line that parsed, or nil when none did.
	Fragment *entities.Message
	Parsed   int
	Dropped  []error
}

// ParseChunk parses every line and keeps only the freshest fragment. The
// server re-emits the whole reply on each line, so older lines in the same
// chunk carry nothing the last one lacks.
func ParseChunk(lines []string) ChunkResult {
	var result ChunkResult
	for _, line := range lines {
		msg, err := parseFragment(line)
		if err != nil {
			result.Dropped = append(result.Dropped, err)
			continue
		}
		result.Parsed++
		result.Fragment = &msg
	}
	return result
}
