package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-pickup/internal/dto"
	"github.com/noah-isme/sma-pickup/internal/models"
)

// PermissionDeniedAlert is raised when notifications may not be shown.
var PermissionDeniedAlert = dto.Alert{Title: "Notifications", Message: "notification permission denied"}

// AppDeps are the state holders the app is composed of.
type AppDeps struct {
	Auth          *AuthStateService
	Sessions      *SessionStore
	Onboarding    *OnboardingService
	AuthFlow      *AuthFlowService
	Navigator     *Navigator
	Students      *StudentService
	Pickup        *PickupService
	Chat          *ChatService
	Notifications *NotificationService
}

// AppService composes the app: it decides which gate is shown and clears
// per-session screen state whenever the signed-in user changes.
type AppService struct {
	deps   AppDeps
	logger *zap.Logger
}

// NewAppService wires the session-change reset and returns the app.
func NewAppService(deps AppDeps, logger *zap.Logger) *AppService {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &AppService{deps: deps, logger: logger}
	deps.Sessions.OnChange(app.resetSessionState)
	return app
}

// Boot restores the previous session and asks for notification permission.
func (a *AppService) Boot(ctx context.Context) {
	a.deps.Onboarding.Load(ctx)
	if _, err := a.deps.Auth.Restore(ctx); err != nil {
		a.logger.Warn("session restore failed, starting signed out", zap.Error(err))
	}
	a.deps.Sessions.Init(ctx)
	a.deps.Notifications.RequestPermission(ctx)
}

// State returns the renderable state of the whole app.
func (a *AppService) State(ctx context.Context) dto.AppState {
	state := dto.AppState{}
	if a.deps.Notifications.Permission() == models.PermissionDenied {
		alert := PermissionDeniedAlert
		state.Alert = &alert
	}

	if !a.deps.Onboarding.Done() {
		onboarding := a.deps.Onboarding.State()
		state.Gate = dto.GateOnboarding
		state.Onboarding = &onboarding
		return state
	}

	session := a.deps.Sessions.Current()
	if session == nil {
		screen := a.deps.AuthFlow.Screen()
		state.Gate = dto.GateAuth
		state.Auth = &screen
		return state
	}

	state.Gate = dto.GateMain
	state.Session = session
	state.Main = &dto.MainScreen{
		Tab:          a.deps.Navigator.Tab(),
		View:         a.deps.Navigator.View(session.Role),
		Students:     a.deps.Students.Students(),
		Loading:      a.deps.Students.Loading(),
		Pickup:       a.deps.Pickup.Status(),
		Chats:        a.deps.Chat.Chats(),
		ActiveChatID: a.deps.Chat.ActiveID(),
	}
	return state
}

func (a *AppService) resetSessionState(session *models.Session) {
	a.deps.Navigator.Reset()
	a.deps.Students.Reset()
	a.deps.Pickup.Reset()
	a.deps.Chat.Reset()
	if session != nil {
		a.logger.Info("session changed", zap.String("user_id", session.UserID), zap.String("role", string(session.Role)))
	} else {
		a.logger.Info("signed out")
	}
}
