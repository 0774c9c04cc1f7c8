package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/noah-isme/sma-pickup/internal/models"
	appErrors "github.com/noah-isme/sma-pickup/pkg/errors"
)

const pickupTimeLayout = "15:04:05"

type notificationScheduler interface {
	Schedule(title, body string) (models.Notification, bool)
}

type readyMarker interface {
	MarkReady(ctx context.Context, session *models.Session, id string) (*models.Student, error)
}

// PickupService raises the one-shot pickup alerts of a session: a parent
// saying they are on the way, and a teacher saying a student is ready.
type PickupService struct {
	students readyMarker
	notifier notificationScheduler
	now      func() time.Time

	mu      sync.Mutex
	status  models.PickupStatus
	pending map[string]bool
}

// NewPickupService constructs the pickup alert service.
func NewPickupService(students readyMarker, notifier notificationScheduler) *PickupService {
	svc := &PickupService{students: students, notifier: notifier, now: time.Now}
	svc.Reset()
	return svc
}

// Status returns a copy of the alert flags.
func (s *PickupService) Status() models.PickupStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.status
	out.ReadyStudents = make(map[string]string, len(s.status.ReadyStudents))
	for id, at := range s.status.ReadyStudents {
		out.ReadyStudents[id] = at
	}
	return out
}

// Reset clears the flags for a new session.
func (s *PickupService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = models.PickupStatus{ReadyStudents: make(map[string]string)}
	s.pending = make(map[string]bool)
}

// AnnounceEnRoute lets a parent tell the school they are on the way. It can
// be sent once per session.
func (s *PickupService) AnnounceEnRoute(ctx context.Context, session *models.Session) (models.PickupStatus, error) {
	if err := requireRole(session, models.RoleParent); err != nil {
		return models.PickupStatus{}, err
	}

	s.mu.Lock()
	if s.status.EnRouteSent {
		at := s.status.EnRouteTime
		s.mu.Unlock()
		return models.PickupStatus{}, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("arrival already announced at %s", at))
	}
	at := s.now().Format(pickupTimeLayout)
	s.status.EnRouteSent = true
	s.status.EnRouteTime = at
	s.mu.Unlock()

	s.notifier.Schedule("Arrival alert", fmt.Sprintf("Parent arriving at %s", at))
	return s.Status(), nil
}

// MarkStudentReady lets a teacher release a student, once per student per
// session.
func (s *PickupService) MarkStudentReady(ctx context.Context, session *models.Session, studentID string) (models.PickupStatus, error) {
	if err := requireRole(session, models.RoleTeacher); err != nil {
		return models.PickupStatus{}, err
	}

	s.mu.Lock()
	if at, done := s.status.ReadyStudents[studentID]; done {
		s.mu.Unlock()
		return models.PickupStatus{}, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("student already marked ready at %s", at))
	}
	if s.pending[studentID] {
		s.mu.Unlock()
		return models.PickupStatus{}, appErrors.Clone(appErrors.ErrConflict, "student is being marked ready")
	}
	s.pending[studentID] = true
	s.mu.Unlock()

	student, err := s.students.MarkReady(ctx, session, studentID)

	s.mu.Lock()
	delete(s.pending, studentID)
	if err != nil {
		s.mu.Unlock()
		return models.PickupStatus{}, err
	}
	at := s.now().Format(pickupTimeLayout)
	s.status.ReadyStudents[studentID] = at
	s.mu.Unlock()

	s.notifier.Schedule("Student ready", fmt.Sprintf("%s ready at %s", student.Name, at))
	return s.Status(), nil
}

func requireRole(session *models.Session, role models.Role) error {
	if session == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "not signed in")
	}
	if session.Role != role {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("only a %s can do this", role))
	}
	return nil
}
