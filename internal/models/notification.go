package models

import "time"

// PermissionStatus is the outcome of a notification permission request.
type PermissionStatus string

const (
	PermissionUndetermined PermissionStatus = "undetermined"
	PermissionGranted      PermissionStatus = "granted"
	PermissionDenied       PermissionStatus = "denied"
)

// Notification is an immediate local notification.
type Notification struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// PickupStatus tracks the one-shot pickup alerts of the current session.
type PickupStatus struct {
	EnRouteSent   bool              `json:"en_route_sent"`
	EnRouteTime   string            `json:"en_route_time,omitempty"`
	ReadyStudents map[string]string `json:"ready_students,omitempty"`
}
