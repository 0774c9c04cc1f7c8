package dto

// SelectTabRequest switches the bottom-bar tab.
type SelectTabRequest struct {
	Tab string `json:"tab" binding:"required"`
}

// NavigateRequest pushes a screen onto the main-tab stack.
type NavigateRequest struct {
	Screen string `json:"screen" binding:"required"`
}
