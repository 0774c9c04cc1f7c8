package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-pickup/internal/dto"
	"github.com/noah-isme/sma-pickup/internal/models"
	"github.com/noah-isme/sma-pickup/internal/service"
	appErrors "github.com/noah-isme/sma-pickup/pkg/errors"
	"github.com/noah-isme/sma-pickup/pkg/response"
)

type studentList interface {
	List(ctx context.Context, session *models.Session) ([]models.Student, error)
	Add(ctx context.Context, session *models.Session, req dto.AddStudentRequest) (*models.Student, error)
	ToggleStatus(ctx context.Context, session *models.Session, id string) (*models.Student, error)
	Statuses() []models.StudentStatus
}

type rosterExporter interface {
	Export(ctx context.Context, session *models.Session, rawFormat string) (*service.RosterFile, error)
}

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	students studentList
	roster   rosterExporter
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentList, roster rosterExporter) *StudentHandler {
	return &StudentHandler{students: students, roster: roster}
}

// List godoc
// @Summary List students
// @Description Teachers see every student, parents only their own
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	students, err := h.students.List(c.Request.Context(), sessionFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, map[string]interface{}{
		"total":    len(students),
		"statuses": h.students.Statuses(),
	})
}

// Add godoc
// @Summary Add a student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body dto.AddStudentRequest true "Student"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Add(c *gin.Context) {
	var req dto.AddStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}

	student, err := h.students.Add(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Toggle godoc
// @Summary Toggle a student's presence status
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/toggle [post]
func (h *StudentHandler) Toggle(c *gin.Context) {
	student, err := h.students.ToggleStatus(c.Request.Context(), sessionFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student)
}

// Export godoc
// @Summary Download the pickup roster
// @Tags Students
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /students/export [get]
func (h *StudentHandler) Export(c *gin.Context) {
	file, err := h.roster.Export(c.Request.Context(), sessionFromContext(c), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
