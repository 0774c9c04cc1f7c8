package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-pickup/internal/dto"
	"github.com/noah-isme/sma-pickup/internal/models"
	"github.com/noah-isme/sma-pickup/internal/repository"
	appErrors "github.com/noah-isme/sma-pickup/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	UpdateStatus(ctx context.Context, id string, from, to models.StudentStatus) (bool, error)
	SetStatus(ctx context.Context, id string, to models.StudentStatus) (bool, error)
}

// StudentService keeps the local student list of the signed-in user in sync
// with the students table.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	statuses  []models.StudentStatus

	mu       sync.Mutex
	students []models.Student
	inFlight int
}

// NewStudentService constructs the service. statuses is the set accepted
// when adding a student; the first entry is the default.
func NewStudentService(repo studentRepository, statuses []string, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make([]models.StudentStatus, 0, len(statuses))
	for _, raw := range statuses {
		status := models.StudentStatus(strings.TrimSpace(raw))
		if !status.Valid() {
			logger.Warn("ignoring unknown student status", zap.String("status", raw))
			continue
		}
		allowed = append(allowed, status)
	}
	if len(allowed) == 0 {
		allowed = []models.StudentStatus{models.StudentStatusPresent, models.StudentStatusAbsent}
	}
	return &StudentService{
		repo:      repo,
		validator: newFormValidator(validate),
		metrics:   metrics,
		logger:    logger,
		statuses:  allowed,
	}
}

// Statuses returns the statuses accepted by Add.
func (s *StudentService) Statuses() []models.StudentStatus {
	out := make([]models.StudentStatus, len(s.statuses))
	copy(out, s.statuses)
	return out
}

// Students returns a copy of the local list.
func (s *StudentService) Students() []models.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Student, len(s.students))
	copy(out, s.students)
	return out
}

// Loading reports whether an operation is in flight.
func (s *StudentService) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight > 0
}

// Reset drops the local list.
func (s *StudentService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students = nil
}

// Find returns the local copy of a student.
func (s *StudentService) Find(id string) (models.Student, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return models.Student{}, false
	}
	return s.students[idx], true
}

// List fetches the students visible to the session ordered by name and
// replaces the local list. Parents see their own children only.
func (s *StudentService) List(ctx context.Context, session *models.Session) ([]models.Student, error) {
	defer s.begin()()

	filter, err := studentFilter(session)
	if err != nil {
		return nil, err
	}
	ctx = repository.WithSession(ctx, session)

	start := time.Now()
	students, err := s.repo.List(ctx, filter)
	s.metrics.ObserveBackendCall("students.list", backendOutcome(err), time.Since(start))
	if err != nil {
		return nil, backendError(err, appErrors.ErrBackend)
	}

	s.mu.Lock()
	s.students = students
	s.mu.Unlock()
	return s.Students(), nil
}

// Add inserts a student and appends the stored row to the local list.
func (s *StudentService) Add(ctx context.Context, session *models.Session, req dto.AddStudentRequest) (*models.Student, error) {
	defer s.begin()()

	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "not signed in")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Status = strings.TrimSpace(req.Status)
	req.BirthDate = strings.TrimSpace(req.BirthDate)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	status := s.statuses[0]
	if req.Status != "" {
		status = models.StudentStatus(req.Status)
		if !s.accepts(status) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid: status (allowed: %s)", joinStatuses(s.statuses)))
		}
	}

	student := &models.Student{Name: req.Name, Status: status}
	if session.Role == models.RoleParent {
		parentID := session.UserID
		student.ParentID = &parentID
	}
	if req.BirthDate != "" {
		birth, err := time.Parse("2006-01-02", req.BirthDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid: birth_date")
		}
		student.BirthDate = &birth
	}

	start := time.Now()
	err := s.repo.Create(repository.WithSession(ctx, session), student)
	s.metrics.ObserveBackendCall("students.insert", backendOutcome(err), time.Since(start))
	if err != nil {
		return nil, backendError(err, appErrors.ErrBackend)
	}

	s.mu.Lock()
	s.students = append(s.students, *student)
	s.mu.Unlock()
	return student, nil
}

// ToggleStatus flips Presente/Ausente. The write only lands if the row still
// holds the status we read; otherwise the local copy is refreshed and a
// conflict is reported.
func (s *StudentService) ToggleStatus(ctx context.Context, session *models.Session, id string) (*models.Student, error) {
	defer s.begin()()

	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "not signed in")
	}
	ctx = repository.WithSession(ctx, session)

	current, ok := s.Find(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	next := current.Status.Toggled()

	start := time.Now()
	changed, err := s.repo.UpdateStatus(ctx, id, current.Status, next)
	s.metrics.ObserveBackendCall("students.update", backendOutcome(err), time.Since(start))
	if err != nil {
		return nil, backendError(err, appErrors.ErrBackend)
	}

	if !changed {
		fresh, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				s.remove(id)
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student no longer exists")
			}
			return nil, backendError(err, appErrors.ErrBackend)
		}
		s.patch(*fresh)
		s.logger.Info("student status changed concurrently", zap.String("student_id", id), zap.String("status", string(fresh.Status)))
		return fresh, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("status was changed elsewhere to %s", fresh.Status))
	}

	current.Status = next
	s.patch(current)
	return &current, nil
}

// MarkReady records that the student has left with their parent.
func (s *StudentService) MarkReady(ctx context.Context, session *models.Session, id string) (*models.Student, error) {
	defer s.begin()()

	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "not signed in")
	}
	ctx = repository.WithSession(ctx, session)

	current, ok := s.Find(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	start := time.Now()
	changed, err := s.repo.SetStatus(ctx, id, models.StudentStatusPickupConfirmed)
	s.metrics.ObserveBackendCall("students.update", backendOutcome(err), time.Since(start))
	if err != nil {
		return nil, backendError(err, appErrors.ErrBackend)
	}
	if !changed {
		s.remove(id)
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student no longer exists")
	}

	current.Status = models.StudentStatusPickupConfirmed
	s.patch(current)
	return &current, nil
}

func (s *StudentService) begin() func() {
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}
}

func (s *StudentService) accepts(status models.StudentStatus) bool {
	for _, allowed := range s.statuses {
		if allowed == status {
			return true
		}
	}
	return false
}

func (s *StudentService) patch(student models.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(student.ID); idx >= 0 {
		s.students[idx] = student
	}
}

func (s *StudentService) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(id); idx >= 0 {
		s.students = append(s.students[:idx], s.students[idx+1:]...)
	}
}

func (s *StudentService) indexLocked(id string) int {
	for i := range s.students {
		if s.students[i].ID == id {
			return i
		}
	}
	return -1
}

func studentFilter(session *models.Session) (models.StudentFilter, error) {
	if session == nil {
		return models.StudentFilter{}, appErrors.Clone(appErrors.ErrUnauthorized, "not signed in")
	}
	switch session.Role {
	case models.RoleTeacher:
		return models.StudentFilter{}, nil
	case models.RoleParent:
		return models.StudentFilter{ParentID: session.UserID}, nil
	default:
		return models.StudentFilter{}, appErrors.Clone(appErrors.ErrForbidden, "session has no role")
	}
}

func joinStatuses(statuses []models.StudentStatus) string {
	parts := make([]string, len(statuses))
	for i, status := range statuses {
		parts[i] = string(status)
	}
	return strings.Join(parts, ", ")
}
