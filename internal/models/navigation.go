package models

// Tab is a bottom-bar tab of the main view.
type Tab string

const (
	TabMain     Tab = "main"
	TabChat     Tab = "chat"
	TabSettings Tab = "settings"
)

// Valid reports whether the tab is known.
func (t Tab) Valid() bool {
	return t == TabMain || t == TabChat || t == TabSettings
}

// Screen is the closed set of renderable screens.
type Screen string

const (
	ScreenResponsibleHome   Screen = "responsible_home"
	ScreenTeacherDashboard  Screen = "teacher_dashboard"
	ScreenStudentManagement Screen = "student_management"
	ScreenChatList          Screen = "chat_list"
	ScreenSettings          Screen = "settings"

	// ScreenUnknownRole is rendered when the session carries no usable role.
	ScreenUnknownRole Screen = "unknown_role"
)

// Valid reports whether the screen is known.
func (s Screen) Valid() bool {
	switch s {
	case ScreenResponsibleHome, ScreenTeacherDashboard, ScreenStudentManagement, ScreenChatList, ScreenSettings:
		return true
	default:
		return false
	}
}

// View is what the router decided to render.
type View struct {
	Screen  Screen   `json:"screen"`
	Title   string   `json:"title"`
	Actions []string `json:"actions"`
	CanBack bool     `json:"can_back"`
}
