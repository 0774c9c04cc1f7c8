package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-pickup/internal/models"
	appErrors "github.com/noah-isme/sma-pickup/pkg/errors"
	"github.com/noah-isme/sma-pickup/pkg/export"
)

var rosterHeaders = []string{"Name", "Status", "Parent"}

type rosterSource interface {
	Students() []models.Student
}

// RosterFile is a rendered roster ready to download.
type RosterFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// RosterExportService renders the teacher's current student list.
type RosterExportService struct {
	students rosterSource
	logger   *zap.Logger
	now      func() time.Time
}

// NewRosterExportService constructs the export service.
func NewRosterExportService(students rosterSource, logger *zap.Logger) *RosterExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterExportService{students: students, logger: logger, now: time.Now}
}

// Export renders the roster as CSV (default) or PDF.
func (s *RosterExportService) Export(ctx context.Context, session *models.Session, rawFormat string) (*RosterFile, error) {
	if err := requireRole(session, models.RoleTeacher); err != nil {
		return nil, err
	}
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}

	students := s.students.Students()
	sort.SliceStable(students, func(i, j int) bool { return students[i].Name < students[j].Name })

	rows := make([]map[string]string, 0, len(students))
	for _, student := range students {
		parent := ""
		if student.ParentID != nil {
			parent = *student.ParentID
		}
		rows = append(rows, map[string]string{
			"Name":   student.Name,
			"Status": string(student.Status),
			"Parent": parent,
		})
	}

	date := s.now().Format("2006-01-02")
	payload, err := export.Render(format, export.Dataset{
		Title:   "Pickup roster " + date,
		Headers: rosterHeaders,
		Rows:    rows,
	})
	if err != nil {
		s.logger.Error("render roster", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	return &RosterFile{
		Filename:    fmt.Sprintf("roster-%s.%s", date, format),
		ContentType: format.ContentType(),
		Data:        payload,
	}, nil
}
