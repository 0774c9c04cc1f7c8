package models

// Slide is one informational onboarding page.
type Slide struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// OnboardingState is the position in the onboarding sequence.
type OnboardingState struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	Slide *Slide `json:"slide,omitempty"`
	Done  bool   `json:"done"`
}

// DefaultSlides returns the built-in onboarding sequence.
func DefaultSlides() []Slide {
	return []Slide{
		{Title: "Welcome", Description: "Coordinate school pickup between families and teachers."},
		{Title: "On my way", Description: "Parents let the school know they are heading over with one tap."},
		{Title: "Ready for pickup", Description: "Teachers mark students present and ready so nobody waits at the gate."},
	}
}
