package dto

import "github.com/noah-isme/sma-pickup/internal/models"

// Gate is the outermost screen selector.
type Gate string

const (
	GateOnboarding Gate = "onboarding"
	GateAuth       Gate = "auth"
	GateMain       Gate = "main"
)

// Alert is a blocking dialog the renderer should show.
type Alert struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// AuthScreen is the auth form view model.
type AuthScreen struct {
	Mode                 string `json:"mode"`
	LinkCooldownSeconds  int    `json:"link_cooldown_seconds"`
	RequiresName         bool   `json:"requires_name"`
	RequiresRoleSelector bool   `json:"requires_role_selector"`
}

// MainScreen is the routed, role-specific view model.
type MainScreen struct {
	Tab          models.Tab           `json:"tab"`
	View         models.View          `json:"view"`
	Students     []models.Student     `json:"students,omitempty"`
	Loading      bool                 `json:"loading"`
	Pickup       models.PickupStatus  `json:"pickup"`
	Chats        []models.ChatSummary `json:"chats,omitempty"`
	ActiveChatID string               `json:"active_chat_id,omitempty"`
}

// AppState is the whole renderable state of the app.
type AppState struct {
	Gate       Gate                    `json:"gate"`
	Onboarding *models.OnboardingState `json:"onboarding,omitempty"`
	Auth       *AuthScreen             `json:"auth,omitempty"`
	Session    *models.Session         `json:"session,omitempty"`
	Main       *MainScreen             `json:"main,omitempty"`
	Alert      *Alert                  `json:"alert,omitempty"`
}
