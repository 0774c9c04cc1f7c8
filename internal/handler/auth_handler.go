package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-pickup/internal/dto"
	"github.com/noah-isme/sma-pickup/internal/models"
	"github.com/noah-isme/sma-pickup/internal/service"
	appErrors "github.com/noah-isme/sma-pickup/pkg/errors"
	"github.com/noah-isme/sma-pickup/pkg/response"
	"github.com/noah-isme/sma-pickup/pkg/supabase"
)

type authFlow interface {
	SetMode(req dto.AuthModeRequest) error
	Screen() dto.AuthScreen
	SignUp(ctx context.Context, req dto.SignUpRequest) (*models.Session, error)
	SignIn(ctx context.Context, req dto.SignInRequest) (*models.Session, error)
	SendMagicLink(ctx context.Context, req dto.MagicLinkRequest) error
}

type sessionControl interface {
	Current() *models.Session
	SignOut(ctx context.Context) error
}

type callbackExchanger interface {
	ExchangeCallback(ctx context.Context, accessToken, refreshToken string) (*service.AuthSession, error)
	GetUser(ctx context.Context) (*supabase.User, error)
}

// AuthHandler wires the auth screen to the auth flow and session store.
type AuthHandler struct {
	flow     authFlow
	sessions sessionControl
	callback callbackExchanger
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(flow authFlow, sessions sessionControl, callback callbackExchanger) *AuthHandler {
	return &AuthHandler{flow: flow, sessions: sessions, callback: callback}
}

type sessionPayload struct {
	Session *models.Session `json:"session"`
	Screen  dto.AuthScreen  `json:"screen"`
}

// Session godoc
// @Summary Current session and auth form
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	response.JSON(c, http.StatusOK, sessionPayload{Session: h.sessions.Current(), Screen: h.flow.Screen()})
}

// SetMode godoc
// @Summary Switch between sign-in and sign-up
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.AuthModeRequest true "Mode"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/mode [post]
func (h *AuthHandler) SetMode(c *gin.Context) {
	var req dto.AuthModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mode payload"))
		return
	}
	if err := h.flow.SetMode(req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.flow.Screen())
}

// SignUp godoc
// @Summary Create an account with a role
// @Description Creates the account and its profile. Without a session the address must be confirmed first.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.SignUpRequest true "Sign-up form"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /auth/sign-up [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req dto.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sign-up payload"))
		return
	}

	session, err := h.flow.SignUp(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusCreated, session, service.SignUpMessage)
}

// SignIn godoc
// @Summary Sign in with e-mail and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.SignInRequest true "Sign-in form"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/sign-in [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req dto.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sign-in payload"))
		return
	}

	session, err := h.flow.SignIn(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session)
}

// MagicLink godoc
// @Summary Request a passwordless sign-in link
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.MagicLinkRequest true "E-mail"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /auth/magic-link [post]
func (h *AuthHandler) MagicLink(c *gin.Context) {
	var req dto.MagicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid magic link payload"))
		return
	}
	if err := h.flow.SendMagicLink(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusAccepted, h.flow.Screen(), service.LinkSentMessage)
}

// SignOut godoc
// @Summary Sign out
// @Tags Authentication
// @Success 204
// @Failure 503 {object} response.Envelope
// @Router /auth/sign-out [post]
func (h *AuthHandler) SignOut(c *gin.Context) {
	if err := h.sessions.SignOut(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// callbackPage moves the tokens the backend puts in the redirect fragment
// into a POST to the same path. Browsers never send the fragment to the server.
var callbackPage = []byte(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><meta name="referrer" content="no-referrer"><title>Signing in</title></head>
<body>
<p id="status">Signing in...</p>
<script>
(function () {
  var status = document.getElementById("status");
  var params = new URLSearchParams(window.location.hash.substring(1));
  history.replaceState(null, "", window.location.pathname);
  if (params.get("error")) {
    status.textContent = params.get("error_description") || params.get("error");
    return;
  }
  fetch(window.location.pathname, {
    method: "POST",
    headers: {"Content-Type": "application/json"},
    body: JSON.stringify({
      access_token: params.get("access_token") || "",
      refresh_token: params.get("refresh_token") || ""
    })
  }).then(function (res) {
    return res.json().then(function (body) {
      status.textContent = res.ok ? "Signed in. You can return to the app." : (body.error && body.error.message) || "Sign-in failed";
    });
  }).catch(function () {
    status.textContent = "Sign-in failed";
  });
})();
</script>
</body>
</html>
`)

// Callback godoc
// @Summary Passwordless sign-in landing page
// @Description Target of the sign-in link redirect. Without query tokens it serves a page that posts the fragment tokens back to this path.
// @Tags Authentication
// @Produce html,json
// @Param access_token query string false "Access token"
// @Param refresh_token query string false "Refresh token"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/callback [get]
func (h *AuthHandler) Callback(c *gin.Context) {
	var query dto.AuthCallbackQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid callback query"))
		return
	}
	if query.Error != "" {
		msg := query.ErrorDescription
		if msg == "" {
			msg = query.Error
		}
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, msg))
		return
	}

	if _, hasAccess := c.GetQuery("access_token"); !hasAccess {
		if _, hasRefresh := c.GetQuery("refresh_token"); !hasRefresh {
			c.Header("Cache-Control", "no-store")
			c.Header("Referrer-Policy", "no-referrer")
			c.Data(http.StatusOK, "text/html; charset=utf-8", callbackPage)
			return
		}
	}

	h.exchange(c, query.AccessToken, query.RefreshToken)
}

// CompleteCallback godoc
// @Summary Exchange passwordless sign-in tokens
// @Description Called by the callback page with the tokens from the redirect fragment
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.AuthCallbackRequest true "Redirect tokens"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/callback [post]
func (h *AuthHandler) CompleteCallback(c *gin.Context) {
	var req dto.AuthCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid callback payload"))
		return
	}
	h.exchange(c, req.AccessToken, req.RefreshToken)
}

func (h *AuthHandler) exchange(c *gin.Context, accessToken, refreshToken string) {
	accessToken = strings.TrimSpace(accessToken)
	refreshToken = strings.TrimSpace(refreshToken)
	if accessToken == "" || refreshToken == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "required: access_token, refresh_token"))
		return
	}

	if _, err := h.callback.ExchangeCallback(c.Request.Context(), accessToken, refreshToken); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.sessions.Current())
}

// User godoc
// @Summary Backend view of the signed-in user
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/user [get]
func (h *AuthHandler) User(c *gin.Context) {
	user, err := h.callback.GetUser(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user)
}
