package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-pickup/internal/models"
	appErrors "github.com/noah-isme/sma-pickup/pkg/errors"
)

type recordingScheduler struct {
	scheduled []models.Notification
}

func (r *recordingScheduler) Schedule(title, body string) (models.Notification, bool) {
	n := models.Notification{Title: title, Body: body}
	r.scheduled = append(r.scheduled, n)
	return n, true
}

func newPickupFixture(t *testing.T) (*PickupService, *StudentService, *recordingScheduler) {
	t.Helper()
	repo := newMockStudentRepo(models.Student{ID: "s1", Name: "Ana", Status: models.StudentStatusPresent})
	students := NewStudentService(repo, nil, nil, nil, nil)
	_, err := students.List(context.Background(), teacherSession)
	require.NoError(t, err)

	scheduler := &recordingScheduler{}
	svc := NewPickupService(students, scheduler)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 16, 5, 9, 0, time.Local) }
	return svc, students, scheduler
}

func TestPickupAnnounceEnRouteOnce(t *testing.T) {
	svc, _, scheduler := newPickupFixture(t)

	status, err := svc.AnnounceEnRoute(context.Background(), parentSession)
	require.NoError(t, err)
	assert.True(t, status.EnRouteSent)
	assert.Equal(t, "16:05:09", status.EnRouteTime)
	require.Len(t, scheduler.scheduled, 1)
	assert.Equal(t, "Arrival alert", scheduler.scheduled[0].Title)
	assert.Equal(t, "Parent arriving at 16:05:09", scheduler.scheduled[0].Body)

	_, err = svc.AnnounceEnRoute(context.Background(), parentSession)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Len(t, scheduler.scheduled, 1)
}

func TestPickupRoleChecks(t *testing.T) {
	svc, _, scheduler := newPickupFixture(t)

	_, err := svc.AnnounceEnRoute(context.Background(), teacherSession)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	_, err = svc.MarkStudentReady(context.Background(), parentSession, "s1")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	_, err = svc.AnnounceEnRoute(context.Background(), nil)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
	assert.Empty(t, scheduler.scheduled)
}

func TestPickupMarkStudentReady(t *testing.T) {
	svc, students, scheduler := newPickupFixture(t)

	status, err := svc.MarkStudentReady(context.Background(), teacherSession, "s1")
	require.NoError(t, err)
	assert.Equal(t, "16:05:09", status.ReadyStudents["s1"])
	require.Len(t, scheduler.scheduled, 1)
	assert.Equal(t, "Student ready", scheduler.scheduled[0].Title)
	assert.Equal(t, "Ana ready at 16:05:09", scheduler.scheduled[0].Body)

	local, _ := students.Find("s1")
	assert.Equal(t, models.StudentStatusPickupConfirmed, local.Status)

	_, err = svc.MarkStudentReady(context.Background(), teacherSession, "s1")
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.MarkStudentReady(context.Background(), teacherSession, "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.NotContains(t, svc.Status().ReadyStudents, "missing")

	svc.Reset()
	assert.Empty(t, svc.Status().ReadyStudents)
	assert.False(t, svc.Status().EnRouteSent)
}
