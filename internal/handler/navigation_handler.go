package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-pickup/internal/dto"
	"github.com/noah-isme/sma-pickup/internal/models"
	appErrors "github.com/noah-isme/sma-pickup/pkg/errors"
	"github.com/noah-isme/sma-pickup/pkg/response"
)

type navigator interface {
	Tab() models.Tab
	View(role models.Role) models.View
	SelectTab(tab models.Tab) error
	Navigate(role models.Role, screen models.Screen) error
	Back() bool
}

// NavigationHandler moves the signed-in user around the role-gated screens.
type NavigationHandler struct {
	nav navigator
}

// NewNavigationHandler constructs NavigationHandler.
func NewNavigationHandler(nav navigator) *NavigationHandler {
	return &NavigationHandler{nav: nav}
}

type navigationPayload struct {
	Tab  models.Tab  `json:"tab"`
	View models.View `json:"view"`
}

// SelectTab godoc
// @Summary Switch the bottom-bar tab
// @Tags Navigation
// @Accept json
// @Produce json
// @Param payload body dto.SelectTabRequest true "Tab"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /navigation/tab [post]
func (h *NavigationHandler) SelectTab(c *gin.Context) {
	var req dto.SelectTabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid tab payload"))
		return
	}
	if err := h.nav.SelectTab(models.Tab(req.Tab)); err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c)
}

// Navigate godoc
// @Summary Open a screen from the main tab
// @Tags Navigation
// @Accept json
// @Produce json
// @Param payload body dto.NavigateRequest true "Screen"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /navigation/navigate [post]
func (h *NavigationHandler) Navigate(c *gin.Context) {
	var req dto.NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid navigation payload"))
		return
	}
	session := sessionFromContext(c)
	if err := h.nav.Navigate(session.Role, models.Screen(req.Screen)); err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c)
}

// Back godoc
// @Summary Pop the current screen
// @Tags Navigation
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /navigation/back [post]
func (h *NavigationHandler) Back(c *gin.Context) {
	popped := h.nav.Back()
	session := sessionFromContext(c)
	response.JSON(c, http.StatusOK, navigationPayload{Tab: h.nav.Tab(), View: h.nav.View(session.Role)}, map[string]interface{}{"popped": popped})
}

func (h *NavigationHandler) respond(c *gin.Context) {
	session := sessionFromContext(c)
	response.JSON(c, http.StatusOK, navigationPayload{Tab: h.nav.Tab(), View: h.nav.View(session.Role)})
}
