package entities

// ChatRequest is the body of a chat send.
type ChatRequest struct {
	Prompt      string `json:"prompt"`
	ContentType string `json:"content_type"`
	IsNewChat   bool   `json:"is_new_chat"`
}

func NewChatRequest(prompt string, isNewChat bool) *ChatRequest {
	return &ChatRequest{
		Prompt:      prompt,
		ContentType: ContentTypeText,
		IsNewChat:   isNewChat,
	}
}

type NewThreadRequest struct {
	Prompt      string `json:"prompt"`
	Attachments []any  `json:"attachments"`
}

type RegisterRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}
