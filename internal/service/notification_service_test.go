package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-pickup/internal/models"
)

type flakyNotifier struct {
	mu       sync.Mutex
	failures int
	calls    int
	got      []models.Notification
}

func (f *flakyNotifier) Notify(ctx context.Context, n models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("display unavailable")
	}
	f.got = append(f.got, n)
	return nil
}

func TestLogNotifierCapsInbox(t *testing.T) {
	notifier := NewLogNotifier(nil, 3)
	for i := 0; i < 5; i++ {
		require.NoError(t, notifier.Notify(context.Background(), models.Notification{ID: fmt.Sprint(i)}))
	}
	inbox := notifier.Inbox()
	require.Len(t, inbox, 3)
	assert.Equal(t, "2", inbox[0].ID)
	assert.Equal(t, "4", inbox[2].ID)
}

func TestNotificationServiceDelivers(t *testing.T) {
	notifier := NewLogNotifier(nil, 0)
	svc := NewNotificationService(notifier, NotificationConfig{Enabled: true, Workers: 2}, NewMetricsService(), nil)
	svc.Start(context.Background())

	assert.Equal(t, models.PermissionGranted, svc.RequestPermission(context.Background()))
	n, queued := svc.Schedule("Arrival alert", "Parent arriving at 08:00:00")
	assert.True(t, queued)
	assert.NotEmpty(t, n.ID)

	svc.Stop()
	inbox := svc.Inbox()
	require.Len(t, inbox, 1)
	assert.Equal(t, "Arrival alert", inbox[0].Title)
}

func TestNotificationServiceDeniedDrops(t *testing.T) {
	notifier := NewLogNotifier(nil, 0)
	svc := NewNotificationService(notifier, NotificationConfig{Enabled: false}, nil, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	assert.Equal(t, models.PermissionDenied, svc.RequestPermission(context.Background()))
	_, queued := svc.Schedule("Student ready", "Ana ready")
	assert.False(t, queued)
	assert.Empty(t, svc.Inbox())
}

func TestNotificationServiceBeforePermission(t *testing.T) {
	svc := NewNotificationService(NewLogNotifier(nil, 0), NotificationConfig{Enabled: true}, nil, nil)
	assert.Equal(t, models.PermissionUndetermined, svc.Permission())
	_, queued := svc.Schedule("t", "b")
	assert.False(t, queued)
}

func TestNotificationServiceFailedDeliveryIsNotRepeated(t *testing.T) {
	notifier := &flakyNotifier{failures: 5}
	metrics := NewMetricsService()
	svc := NewNotificationService(notifier, NotificationConfig{Enabled: true}, metrics, nil)
	svc.Start(context.Background())
	svc.RequestPermission(context.Background())

	_, queued := svc.Schedule("t", "b")
	require.True(t, queued)
	svc.Stop()

	notifier.mu.Lock()
	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, 4, notifier.failures)
	assert.Empty(t, notifier.got)
	notifier.mu.Unlock()

	assert.Equal(t, map[string]float64{"failed": 1}, notificationResults(t, metrics))
	assert.Empty(t, svc.Inbox(), "notifier without inbox")
}

func notificationResults(t *testing.T, metrics *MetricsService) map[string]float64 {
	t.Helper()
	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	results := map[string]float64{}
	for _, family := range families {
		if family.GetName() != "notifications_dispatched_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "result" {
					results[label.GetValue()] = m.GetCounter().GetValue()
				}
			}
		}
	}
	return results
}
