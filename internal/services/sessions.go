package services

import (
	"log/slog"
	"sync"

	"github.com/mjpery-beep/mj-member-sub014/internal/domain"
)

// DashboardFactory builds the dashboard of one animator.
type DashboardFactory func(animatorID string) domain.DashboardService

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.DashboardService
	factory  DashboardFactory
	logger   *slog.Logger
}

// NewSessionStore returns a SessionStore that creates dashboards lazily.
func NewSessionStore(factory DashboardFactory, logger *slog.Logger) domain.SessionStore {
	return &sessionStore{
		sessions: make(map[string]domain.DashboardService),
		factory:  factory,
		logger:   logger,
	}
}

func (s *sessionStore) Get(animatorID string) domain.DashboardService {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.sessions[animatorID]; ok {
		return d
	}
	d := s.factory(animatorID)
	s.sessions[animatorID] = d
	s.logger.Info("dashboard session opened", "animator_id", animatorID)
	return d
}

func (s *sessionStore) Close(animatorID string) {
	s.mu.Lock()
	d, ok := s.sessions[animatorID]
	delete(s.sessions, animatorID)
	s.mu.Unlock()
	if !ok {
		return
	}
	d.Close()
	s.logger.Info("dashboard session closed", "animator_id", animatorID)
}
