package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-pickup/internal/dto"
	"github.com/noah-isme/sma-pickup/internal/models"
	appErrors "github.com/noah-isme/sma-pickup/pkg/errors"
	"github.com/noah-isme/sma-pickup/pkg/response"
)

type chatBox interface {
	Chats() []models.ChatSummary
	Open(chatID string) error
	Close()
	ActiveID() string
	SetInput(text string)
	Send(sender models.Role) (*models.ChatMessage, error)
	Messages(chatID string) ([]models.ChatMessage, error)
}

// ChatHandler exposes the in-memory chat of the session.
type ChatHandler struct {
	chat chatBox
}

// NewChatHandler constructs ChatHandler.
func NewChatHandler(chat chatBox) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// List godoc
// @Summary List conversations
// @Tags Chat
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /chats [get]
func (h *ChatHandler) List(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.chat.Chats(), map[string]interface{}{"active_chat_id": h.chat.ActiveID()})
}

// Open godoc
// @Summary Open a conversation
// @Tags Chat
// @Produce json
// @Param id path string true "Chat ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /chats/{id}/open [post]
func (h *ChatHandler) Open(c *gin.Context) {
	id := c.Param("id")
	if err := h.chat.Open(id); err != nil {
		response.Error(c, err)
		return
	}
	messages, err := h.chat.Messages(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages)
}

// Close godoc
// @Summary Return to the conversation list
// @Tags Chat
// @Success 204
// @Router /chats/close [post]
func (h *ChatHandler) Close(c *gin.Context) {
	h.chat.Close()
	response.NoContent(c)
}

// Input godoc
// @Summary Replace the composer text
// @Tags Chat
// @Accept json
// @Param payload body dto.ChatInputRequest true "Text"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /chats/input [put]
func (h *ChatHandler) Input(c *gin.Context) {
	var req dto.ChatInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid input payload"))
		return
	}
	h.chat.SetInput(req.Text)
	response.NoContent(c)
}

// Send godoc
// @Summary Send the composer text to the open conversation
// @Description Blank input sends nothing
// @Tags Chat
// @Produce json
// @Success 201 {object} response.Envelope
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /chats/send [post]
func (h *ChatHandler) Send(c *gin.Context) {
	message, err := h.chat.Send(sessionFromContext(c).Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	if message == nil {
		response.NoContent(c)
		return
	}
	response.Created(c, message)
}

// Messages godoc
// @Summary Messages of a conversation
// @Tags Chat
// @Produce json
// @Param id path string true "Chat ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /chats/{id}/messages [get]
func (h *ChatHandler) Messages(c *gin.Context) {
	messages, err := h.chat.Messages(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages)
}
