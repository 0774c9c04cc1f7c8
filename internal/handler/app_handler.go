package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-pickup/internal/dto"
	"github.com/noah-isme/sma-pickup/internal/models"
	"github.com/noah-isme/sma-pickup/pkg/response"
)

type appStateSource interface {
	State(ctx context.Context) dto.AppState
}

type onboardingFlow interface {
	State() models.OnboardingState
	Next(ctx context.Context) models.OnboardingState
	Skip(ctx context.Context) models.OnboardingState
}

// AppHandler serves the composed app state and the onboarding carousel.
type AppHandler struct {
	app        appStateSource
	onboarding onboardingFlow
}

// NewAppHandler constructs AppHandler.
func NewAppHandler(app appStateSource, onboarding onboardingFlow) *AppHandler {
	return &AppHandler{app: app, onboarding: onboarding}
}

// State godoc
// @Summary Current app state
// @Description Gate, routed view and pending alert for the renderer
// @Tags App
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /app/state [get]
func (h *AppHandler) State(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.app.State(c.Request.Context()))
}

// Onboarding godoc
// @Summary Current onboarding slide
// @Tags Onboarding
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /onboarding [get]
func (h *AppHandler) Onboarding(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.onboarding.State())
}

// NextSlide godoc
// @Summary Advance the onboarding carousel
// @Description Advancing past the last slide finishes onboarding
// @Tags Onboarding
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /onboarding/next [post]
func (h *AppHandler) NextSlide(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.onboarding.Next(c.Request.Context()))
}

// SkipOnboarding godoc
// @Summary Skip onboarding
// @Tags Onboarding
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /onboarding/skip [post]
func (h *AppHandler) SkipOnboarding(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.onboarding.Skip(c.Request.Context()))
}
