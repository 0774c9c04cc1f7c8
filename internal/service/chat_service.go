package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/sma-pickup/internal/models"
	appErrors "github.com/noah-isme/sma-pickup/pkg/errors"
)

const chatTimeLayout = "15:04"

// ChatService is an in-process message board. Messages are never sent
// anywhere: a message is only "received" by this same app instance.
type ChatService struct {
	contacts []string
	now      func() time.Time

	mu       sync.Mutex
	chats    []models.ChatSummary
	messages map[string][]models.ChatMessage
	activeID string
	input    string
}

// NewChatService seeds one conversation per contact name.
func NewChatService(contacts []string) *ChatService {
	svc := &ChatService{contacts: contacts, now: time.Now}
	svc.Reset()
	return svc
}

// Reset drops every message and re-seeds the contacts.
func (s *ChatService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = make([]models.ChatSummary, 0, len(s.contacts))
	for i, name := range s.contacts {
		s.chats = append(s.chats, models.ChatSummary{ID: fmt.Sprintf("chat-%d", i+1), Name: name})
	}
	s.messages = make(map[string][]models.ChatMessage)
	s.activeID = ""
	s.input = ""
}

// Chats returns the conversation list.
func (s *ChatService) Chats() []models.ChatSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatSummary, len(s.chats))
	copy(out, s.chats)
	return out
}

// Open makes chatID the active conversation.
func (s *ChatService) Open(chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(chatID) < 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "chat not found")
	}
	s.activeID = chatID
	return nil
}

// Close leaves the active conversation. The draft is kept.
func (s *ChatService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = ""
}

// ActiveID returns the open conversation or "".
func (s *ChatService) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// SetInput replaces the composer text.
func (s *ChatService) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

// Input returns the composer text.
func (s *ChatService) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// Send appends the composer text to the open conversation as sender and
// clears the composer. Blank input is ignored and returns nil.
func (s *ChatService) Send(sender models.Role) (*models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no chat is open")
	}
	text := strings.TrimSpace(s.input)
	if text == "" {
		return nil, nil
	}

	msg := models.ChatMessage{
		ID:     uuid.NewString(),
		ChatID: s.activeID,
		Sender: sender,
		Text:   text,
		Time:   s.now().Format(chatTimeLayout),
	}
	s.messages[s.activeID] = append(s.messages[s.activeID], msg)
	s.input = ""

	if idx := s.indexLocked(s.activeID); idx >= 0 {
		s.chats[idx].LastMessage = text
		s.chats[idx].Time = msg.Time
		s.chats[idx].Unread = 0
	}
	return &msg, nil
}

// Messages returns the messages of one conversation in send order.
func (s *ChatService) Messages(chatID string) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(chatID) < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "chat not found")
	}
	out := make([]models.ChatMessage, len(s.messages[chatID]))
	copy(out, s.messages[chatID])
	return out, nil
}

func (s *ChatService) indexLocked(chatID string) int {
	for i := range s.chats {
		if s.chats[i].ID == chatID {
			return i
		}
	}
	return -1
}
