package dto

// ChatInputRequest replaces the composer text.
type ChatInputRequest struct {
	Text string `json:"text"`
}
