package entities

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewMessage(t *testing.T) {
	role := "user"
	content := "Hello world"

	message := NewMessage(role, content)

	if message.Role != role {
		t.Errorf("Expected role %s, got %s", role, message.Role)
	}
	if message.Content != content {
		t.Errorf("Expected content %s, got %s", content, message.Content)
	}
	if message.ContentType != ContentTypeText {
		t.Errorf("Expected content type %s, got %s", ContentTypeText, message.ContentType)
	}
	if message.IsEcho() {
		t.Errorf("Expected regular message not to be an echo")
	}
}

func TestNewEchoMessage(t *testing.T) {
	message := NewEchoMessage("hi there")

	if message.ID != EchoMessageID {
		t.Errorf("Expected id %s, got %s", EchoMessageID, message.ID)
	}
	if message.Role != RoleUser {
		t.Errorf("Expected role user, got %s", message.Role)
	}
	if message.ContentType != ContentTypeText {
		t.Errorf("Expected content type text, got %s", message.ContentType)
	}
	if !message.IsEcho() {
		t.Errorf("Expected echo message to report IsEcho")
	}
}

func TestMessage_DisplayRole(t *testing.T) {
	cases := map[string]string{
		"model":     RoleAssistant,
		"assistant": RoleAssistant,
		"user":      RoleUser,
		"system":    "system",
	}
	for role, expected := range cases {
		message := &Message{Role: role}
		if got := message.DisplayRole(); got != expected {
			t.Errorf("Expected display role %s for %s, got %s", expected, role, got)
		}
	}
}

func TestMessage_UnmarshalNumericID(t *testing.T) {
	var message Message
	err := json.Unmarshal([]byte(`{"id": 42, "role": "assistant", "content": "ok", "content_type": "text"}`), &message)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if message.ID != "42" {
		t.Errorf("Expected id 42, got %s", message.ID)
	}

	err = json.Unmarshal([]byte(`{"id": "abc", "role": "user", "content": "ok"}`), &message)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if message.ID != "abc" {
		t.Errorf("Expected id abc, got %s", message.ID)
	}
}

func TestMessage_UnmarshalNaiveTimestamp(t *testing.T) {
	var message Message
	err := json.Unmarshal([]byte(`{"role": "user", "content": "ok", "create_time": "2025-03-12T10:15:30.123456"}`), &message)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if message.CreateTime == nil {
		t.Fatal("Expected create time to be set")
	}
	expected := time.Date(2025, 3, 12, 10, 15, 30, 123456000, time.UTC)
	if !message.CreateTime.Equal(expected) {
		t.Errorf("Expected create time %v, got %v", expected, message.CreateTime.Time)
	}
}

func TestParseTimestamp_Invalid(t *testing.T) {
	if _, err := ParseTimestamp("yesterday-ish"); err == nil {
		t.Errorf("Expected error for unrecognized timestamp")
	}
}

func TestCloneMessages(t *testing.T) {
	original := []Message{{Content: "a"}, {Content: "b"}}
	clone := CloneMessages(original)
	clone[0].Content = "changed"

	if original[0].Content != "a" {
		t.Errorf("Expected original to be untouched, got %s", original[0].Content)
	}
}

func TestThread_Title(t *testing.T) {
	thread := &Thread{Name: "Cats"}
	if thread.Title() != "Cats" {
		t.Errorf("Expected title 'Cats', got %s", thread.Title())
	}

	untitled := &Thread{}
	if untitled.Title() != UnknownThreadTitle {
		t.Errorf("Expected title %q, got %s", UnknownThreadTitle, untitled.Title())
	}
	if untitled.FilterValue() != UnknownThreadTitle {
		t.Errorf("Expected filter value %q, got %s", UnknownThreadTitle, untitled.FilterValue())
	}
}

func TestThread_Description(t *testing.T) {
	thread := &Thread{CreateTime: NewTimestamp(time.Now().Add(-72 * time.Hour))}

	expected := "3 days ago"
	if thread.Description() != expected {
		t.Errorf("Expected description %s, got %s", expected, thread.Description())
	}

	if (&Thread{}).Description() != "" {
		t.Errorf("Expected empty description for thread without create time")
	}
}

func TestGroupThreads(t *testing.T) {
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *Timestamp { return NewTimestamp(now.Add(-d)) }

	threads := []*Thread{
		{ID: "a", CreateTime: at(2 * time.Hour)},
		{ID: "b", CreateTime: at(30 * time.Hour)},
		{ID: "c", CreateTime: at(5 * 24 * time.Hour)},
		{ID: "d", CreateTime: at(7 * 24 * time.Hour)},
		{ID: "e", CreateTime: at(30 * 24 * time.Hour)},
		{ID: "f", CreateTime: at(23 * time.Hour)},
		{ID: "g"},
	}

	groups := GroupThreads(threads, now)

	if len(groups) != 4 {
		t.Fatalf("Expected 4 groups, got %d", len(groups))
	}
	expected := map[string][]string{
		ThreadGroupToday:     {"a", "f"},
		ThreadGroupYesterday: {"b"},
		ThreadGroupLastWeek:  {"c", "d"},
		ThreadGroupOlder:     {"e", "g"},
	}
	order := []string{ThreadGroupToday, ThreadGroupYesterday, ThreadGroupLastWeek, ThreadGroupOlder}
	for i, group := range groups {
		if group.Key != order[i] {
			t.Errorf("Expected group %d to be %s, got %s", i, order[i], group.Key)
		}
		ids := make([]string, len(group.Threads))
		for j, thread := range group.Threads {
			ids[j] = thread.ID
		}
		if len(ids) != len(expected[group.Key]) {
			t.Errorf("Expected %v in %s, got %v", expected[group.Key], group.Key, ids)
			continue
		}
		for j := range ids {
			if ids[j] != expected[group.Key][j] {
				t.Errorf("Expected %v in %s, got %v", expected[group.Key], group.Key, ids)
				break
			}
		}
	}
	if groups[2].Label != "Last 7 days" {
		t.Errorf("Expected label 'Last 7 days', got %s", groups[2].Label)
	}
}

func TestGroupThreads_EmptyGroupsPresent(t *testing.T) {
	groups := GroupThreads(nil, time.Now())
	for _, group := range groups {
		if group.Threads == nil {
			t.Errorf("Expected non-nil thread slice for %s", group.Key)
		}
	}
}

func TestSession_Expired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	if (&Session{}).Expired(now) {
		t.Errorf("Expected session without expiry to be valid")
	}
	if !(&Session{ExpiresAt: now.Unix() - 1}).Expired(now) {
		t.Errorf("Expected past expiry to be expired")
	}
	if (&Session{ExpiresAt: now.Unix() + 60}).Expired(now) {
		t.Errorf("Expected future expiry to be valid")
	}
}

func TestNewChatRequest(t *testing.T) {
	req := NewChatRequest("", true)

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	expected := `{"prompt":"","content_type":"text","is_new_chat":true}`
	if string(data) != expected {
		t.Errorf("Expected body %s, got %s", expected, string(data))
	}
}
