package entities

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	// RoleModel is what some backends store for assistant turns.
	RoleModel = "model"

	ContentTypeText = "text"

	// EchoMessageID marks the locally synthesized copy of a message the user just sent.
	EchoMessageID = "temp"
)

// MessageID is a message identifier. The backend uses integer keys, so both
// JSON numbers and strings are accepted.
type MessageID string

func (id *MessageID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = MessageID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = MessageID(n.String())
	return nil
}

// Message is one entry of a thread transcript. Values are treated as
// immutable: a newer fragment replaces a message instead of editing it.
type Message struct {
	ID          MessageID  `json:"id,omitempty" bson:"id,omitempty"`
	Role        string     `json:"role" bson:"role"`
	Content     string     `json:"content" bson:"content"`
	ContentType string     `json:"content_type" bson:"content_type"`
	CreateTime  *Timestamp `json:"create_time,omitempty" bson:"create_time,omitempty"`
	UpdateTime  *Timestamp `json:"update_time,omitempty" bson:"update_time,omitempty"`
}

func NewMessage(role, content string) *Message {
	return &Message{
		Role:        role,
		Content:     content,
		ContentType: ContentTypeText,
	}
}

// NewEchoMessage builds the placeholder shown for a prompt before the
// backend has confirmed it.
func NewEchoMessage(content string) *Message {
	return &Message{
		ID:          EchoMessageID,
		Role:        RoleUser,
		Content:     content,
		ContentType: ContentTypeText,
	}
}

func (m *Message) IsEcho() bool {
	return m.ID == EchoMessageID
}

// DisplayRole maps backend role names onto the two roles a transcript shows.
func (m *Message) DisplayRole() string {
	switch strings.ToLower(m.Role) {
	case RoleModel, RoleAssistant:
		return RoleAssistant
	case RoleUser:
		return RoleUser
	default:
		return m.Role
	}
}

// CloneMessages returns a copy of messages that shares no backing array.
func CloneMessages(messages []Message) []Message {
	out := make([]Message, len(messages))
	copy(out, messages)
	return out
}
