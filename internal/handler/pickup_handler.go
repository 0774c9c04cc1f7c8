package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-pickup/internal/models"
	"github.com/noah-isme/sma-pickup/pkg/response"
)

type pickupAlerts interface {
	Status() models.PickupStatus
	AnnounceEnRoute(ctx context.Context, session *models.Session) (models.PickupStatus, error)
	MarkStudentReady(ctx context.Context, session *models.Session, studentID string) (models.PickupStatus, error)
}

// PickupHandler raises the pickup alerts.
type PickupHandler struct {
	pickup pickupAlerts
}

// NewPickupHandler constructs PickupHandler.
func NewPickupHandler(pickup pickupAlerts) *PickupHandler {
	return &PickupHandler{pickup: pickup}
}

// Status godoc
// @Summary Pickup alert flags of the session
// @Tags Pickup
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pickup/status [get]
func (h *PickupHandler) Status(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.pickup.Status())
}

// EnRoute godoc
// @Summary Tell the school a parent is on the way
// @Tags Pickup
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /pickup/en-route [post]
func (h *PickupHandler) EnRoute(c *gin.Context) {
	status, err := h.pickup.AnnounceEnRoute(c.Request.Context(), sessionFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status)
}

// StudentReady godoc
// @Summary Mark a student ready for pickup
// @Tags Pickup
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/ready [post]
func (h *PickupHandler) StudentReady(c *gin.Context) {
	status, err := h.pickup.MarkStudentReady(c.Request.Context(), sessionFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status)
}
