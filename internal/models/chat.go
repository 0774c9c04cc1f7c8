package models

// ChatMessage lives only in memory; it is never persisted or delivered.
type ChatMessage struct {
	ID     string `json:"id"`
	ChatID string `json:"chat_id"`
	Sender Role   `json:"sender"`
	Text   string `json:"text"`
	Time   string `json:"time"`
}

// ChatSummary is one row of the conversation list.
type ChatSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	LastMessage string `json:"last_message"`
	Time        string `json:"time"`
	Unread      int    `json:"unread"`
}
