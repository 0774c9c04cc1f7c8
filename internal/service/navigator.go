package service

import (
	"fmt"
	"sync"

	"github.com/noah-isme/sma-pickup/internal/models"
	appErrors "github.com/noah-isme/sma-pickup/pkg/errors"
)

// Screen actions advertised to the renderer.
const (
	ActionAnnounceEnRoute = "announce_en_route"
	ActionListStudents    = "list_students"
	ActionAddStudent      = "add_student"
	ActionToggleStatus    = "toggle_status"
	ActionMarkReady       = "mark_ready"
	ActionManageStudents  = "open_student_management"
	ActionExportRoster    = "export_roster"
	ActionOpenChat        = "open_chat"
	ActionSendMessage     = "send_message"
	ActionSignOut         = "sign_out"
)

// pushable lists, per main-tab root, the screens that may be pushed on it.
var pushable = map[models.Screen][]models.Screen{
	models.ScreenTeacherDashboard: {models.ScreenStudentManagement},
}

// RootScreen returns the main-tab root for a role.
func RootScreen(role models.Role) (models.Screen, bool) {
	switch role {
	case models.RoleParent:
		return models.ScreenResponsibleHome, true
	case models.RoleTeacher:
		return models.ScreenTeacherDashboard, true
	default:
		return "", false
	}
}

// Route maps (role, tab, top of the main stack) to the screen to render. It
// has no side effects. An empty top means the tab root.
func Route(role models.Role, tab models.Tab, top models.Screen) models.View {
	switch tab {
	case models.TabChat:
		return models.View{Screen: models.ScreenChatList, Title: "Messages", Actions: []string{ActionOpenChat, ActionSendMessage}}
	case models.TabSettings:
		return models.View{Screen: models.ScreenSettings, Title: "Settings", Actions: []string{ActionSignOut}}
	}

	root, ok := RootScreen(role)
	if !ok {
		return models.View{Screen: models.ScreenUnknownRole, Title: fmt.Sprintf("Unknown role %q", role), Actions: []string{ActionSignOut}}
	}

	if top == "" || top == root || !canPush(root, top) {
		top = root
	}

	switch top {
	case models.ScreenResponsibleHome:
		return models.View{Screen: top, Title: "Home", Actions: []string{ActionAnnounceEnRoute, ActionListStudents, ActionAddStudent}}
	case models.ScreenStudentManagement:
		return models.View{Screen: top, Title: "Students", Actions: []string{ActionListStudents, ActionAddStudent, ActionToggleStatus, ActionMarkReady}, CanBack: true}
	default:
		return models.View{Screen: models.ScreenTeacherDashboard, Title: "Dashboard", Actions: []string{ActionManageStudents, ActionListStudents, ActionExportRoster}}
	}
}

func canPush(root, screen models.Screen) bool {
	for _, candidate := range pushable[root] {
		if candidate == screen {
			return true
		}
	}
	return false
}

// Navigator holds the selected tab and the stack of screens pushed on the
// main tab's root.
type Navigator struct {
	mu    sync.Mutex
	tab   models.Tab
	stack []models.Screen
}

// NewNavigator starts on the main tab root.
func NewNavigator() *Navigator {
	return &Navigator{tab: models.TabMain}
}

// Tab returns the selected tab.
func (n *Navigator) Tab() models.Tab {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tab
}

// View routes the current state for role.
func (n *Navigator) View(role models.Role) models.View {
	n.mu.Lock()
	tab := n.tab
	var top models.Screen
	if len(n.stack) > 0 {
		top = n.stack[len(n.stack)-1]
	}
	n.mu.Unlock()
	return Route(role, tab, top)
}

// SelectTab switches tabs. The main stack is kept.
func (n *Navigator) SelectTab(tab models.Tab) error {
	if !tab.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown tab %q", tab))
	}
	n.mu.Lock()
	n.tab = tab
	n.mu.Unlock()
	return nil
}

// Navigate pushes screen onto the main stack when the role's current screen
// links to it.
func (n *Navigator) Navigate(role models.Role, screen models.Screen) error {
	if !screen.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown screen %q", screen))
	}
	root, ok := RootScreen(role)
	if !ok {
		return appErrors.Clone(appErrors.ErrForbidden, "session has no role")
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	current := root
	if len(n.stack) > 0 {
		current = n.stack[len(n.stack)-1]
	}
	if n.tab != models.TabMain || !canPush(current, screen) {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("%s is not reachable from %s", screen, current))
	}
	n.stack = append(n.stack, screen)
	return nil
}

// Back pops the main stack. It reports false when already at the root.
func (n *Navigator) Back() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.stack) == 0 {
		return false
	}
	n.stack = n.stack[:len(n.stack)-1]
	return true
}

// Reset returns to the main tab root.
func (n *Navigator) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tab = models.TabMain
	n.stack = nil
}
