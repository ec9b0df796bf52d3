package entities

import (
	"time"

	"github.com/dustin/go-humanize"
)

const UnknownThreadTitle = "Unknown title"

type Thread struct {
	ID         string     `json:"id" bson:"_id"`
	Name       string     `json:"title,omitempty" bson:"title,omitempty"`
	ModelCode  string     `json:"model_code,omitempty" bson:"model_code,omitempty"`
	CreateTime *Timestamp `json:"create_time,omitempty" bson:"create_time,omitempty"`
	UpdateTime *Timestamp `json:"update_time,omitempty" bson:"update_time,omitempty"`
}

// CreatedAt returns the creation time, or the zero time when unknown.
func (t *Thread) CreatedAt() time.Time {
	if t.CreateTime == nil {
		return time.Time{}
	}
	return t.CreateTime.Time
}

// Implement list.Item interface for Bubble Tea
func (t *Thread) FilterValue() string {
	return t.Title()
}

func (t *Thread) Title() string {
	if t.Name == "" {
		return UnknownThreadTitle
	}
	return t.Name
}

func (t *Thread) Description() string {
	created := t.CreatedAt()
	if created.IsZero() {
		return ""
	}
	return humanize.Time(created)
}

type CreateThreadResponse struct {
	ThreadID    string     `json:"thread_id"`
	CreateTime  *Timestamp `json:"create_time,omitempty"`
	ChatHistory []Message  `json:"chat_history"`
}
