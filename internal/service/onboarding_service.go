package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-pickup/internal/models"
	appErrors "github.com/noah-isme/sma-pickup/pkg/errors"
)

const onboardingShownKey = "onboarding-shown"

// OnboardingService walks the user through the intro slides once.
type OnboardingService struct {
	slides  []models.Slide
	storage sessionStorage
	persist bool
	metrics *MetricsService
	logger  *zap.Logger

	mu    sync.Mutex
	index int
	done  bool
}

// NewOnboardingService builds the onboarding flow. When persist is false the
// "shown" flag lives only as long as the process.
func NewOnboardingService(slides []models.Slide, storage sessionStorage, persist bool, metrics *MetricsService, logger *zap.Logger) *OnboardingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OnboardingService{
		slides:  slides,
		storage: storage,
		persist: persist && storage != nil,
		metrics: metrics,
		logger:  logger,
		done:    len(slides) == 0,
	}
}

// Load reads the persisted "shown" flag.
func (s *OnboardingService) Load(ctx context.Context) {
	if !s.persist {
		return
	}
	start := time.Now()
	_, err := s.storage.GetItem(ctx, onboardingShownKey)
	s.metrics.ObserveStorage("get", time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrStorageMiss) {
			s.logger.Warn("read onboarding flag", zap.Error(err))
		}
		return
	}

	s.mu.Lock()
	s.done = true
	s.mu.Unlock()
}

// State returns the current position.
func (s *OnboardingService) State() models.OnboardingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Done reports whether onboarding has finished.
func (s *OnboardingService) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Next advances one slide, finishing after the last.
func (s *OnboardingService) Next(ctx context.Context) models.OnboardingState {
	s.mu.Lock()
	finished := false
	if !s.done {
		if s.index < len(s.slides)-1 {
			s.index++
		} else {
			s.done = true
			finished = true
		}
	}
	state := s.stateLocked()
	s.mu.Unlock()

	if finished {
		s.markShown(ctx)
	}
	return state
}

// Skip finishes onboarding from any slide.
func (s *OnboardingService) Skip(ctx context.Context) models.OnboardingState {
	s.mu.Lock()
	finished := !s.done
	s.done = true
	state := s.stateLocked()
	s.mu.Unlock()

	if finished {
		s.markShown(ctx)
	}
	return state
}

func (s *OnboardingService) stateLocked() models.OnboardingState {
	state := models.OnboardingState{Index: s.index, Total: len(s.slides), Done: s.done}
	if !s.done && s.index < len(s.slides) {
		slide := s.slides[s.index]
		state.Slide = &slide
	}
	return state
}

func (s *OnboardingService) markShown(ctx context.Context) {
	if !s.persist {
		return
	}
	start := time.Now()
	err := s.storage.SetItem(ctx, onboardingShownKey, "true")
	s.metrics.ObserveStorage("set", time.Since(start))
	if err != nil {
		s.logger.Warn("persist onboarding flag", zap.Error(err))
	}
}
