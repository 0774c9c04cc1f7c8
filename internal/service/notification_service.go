package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-pickup/internal/models"
	"github.com/noah-isme/sma-pickup/pkg/jobs"
)

const (
	notificationJobType = "local_notification"
	defaultInboxLimit   = 50
)

// Notifier displays a local notification.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// LogNotifier writes notifications to the log and keeps the most recent ones
// for the renderer to show.
type LogNotifier struct {
	logger *zap.Logger
	limit  int

	mu    sync.Mutex
	inbox []models.Notification
}

// NewLogNotifier constructs a LogNotifier keeping at most limit entries.
func NewLogNotifier(logger *zap.Logger, limit int) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	return &LogNotifier{logger: logger, limit: limit}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, notification models.Notification) error {
	n.logger.Info("local notification",
		zap.String("notification_id", notification.ID),
		zap.String("title", notification.Title),
		zap.String("body", notification.Body),
	)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.inbox = append(n.inbox, notification)
	if over := len(n.inbox) - n.limit; over > 0 {
		n.inbox = append([]models.Notification(nil), n.inbox[over:]...)
	}
	return nil
}

// Inbox returns delivered notifications, oldest first.
func (n *LogNotifier) Inbox() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.Notification, len(n.inbox))
	copy(out, n.inbox)
	return out
}

// NotificationConfig configures NotificationService.
type NotificationConfig struct {
	Enabled bool
	Workers int
}

// NotificationService schedules immediate local notifications. Scheduling
// never blocks and never reports delivery. A failed display is counted and
// not attempted again.
type NotificationService struct {
	notifier Notifier
	queue    *jobs.Queue
	metrics  *MetricsService
	logger   *zap.Logger
	enabled  bool
	now      func() time.Time

	mu         sync.Mutex
	permission models.PermissionStatus
}

// NewNotificationService wires the notifier behind a worker queue.
func NewNotificationService(notifier Notifier, cfg NotificationConfig, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{
		notifier:   notifier,
		metrics:    metrics,
		logger:     logger,
		enabled:    cfg.Enabled,
		now:        time.Now,
		permission: models.PermissionUndetermined,
	}
	svc.queue = jobs.NewQueue("notifications", svc.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: 0,
		Logger:     logger,
	})
	return svc
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop delivers what is queued and stops the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// RequestPermission asks for permission to show notifications.
func (s *NotificationService) RequestPermission(ctx context.Context) models.PermissionStatus {
	status := models.PermissionDenied
	if s.enabled {
		status = models.PermissionGranted
	}
	s.mu.Lock()
	s.permission = status
	s.mu.Unlock()
	if status == models.PermissionDenied {
		s.logger.Warn("notification permission denied")
	}
	return status
}

// Permission returns the last permission outcome.
func (s *NotificationService) Permission() models.PermissionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permission
}

// Schedule queues a notification for immediate display. It reports whether
// the notification was queued.
func (s *NotificationService) Schedule(title, body string) (models.Notification, bool) {
	notification := models.Notification{
		ID:          uuid.NewString(),
		Title:       title,
		Body:        body,
		ScheduledAt: s.now().UTC(),
	}

	if s.Permission() != models.PermissionGranted {
		s.logger.Warn("notification dropped, permission not granted", zap.String("title", title))
		s.metrics.RecordNotification("dropped")
		return notification, false
	}

	if _, err := s.queue.TryEnqueue(jobs.Job{ID: notification.ID, Type: notificationJobType, Payload: notification}); err != nil {
		s.logger.Warn("notification dropped", zap.String("title", title), zap.Error(err))
		s.metrics.RecordNotification("dropped")
		return notification, false
	}
	return notification, true
}

// Inbox lists delivered notifications when the notifier keeps them.
func (s *NotificationService) Inbox() []models.Notification {
	if inbox, ok := s.notifier.(interface{ Inbox() []models.Notification }); ok {
		return inbox.Inbox()
	}
	return []models.Notification{}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(models.Notification)
	if !ok {
		s.metrics.RecordNotification("failed")
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	if err := s.notifier.Notify(ctx, notification); err != nil {
		s.metrics.RecordNotification("failed")
		return err
	}
	s.metrics.RecordNotification("delivered")
	return nil
}
