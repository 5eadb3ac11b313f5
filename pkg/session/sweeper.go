package session

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	// DefaultIdleTTL is how long a session may sit untouched before the
	// sweeper evicts it.
	DefaultIdleTTL = 24 * time.Hour

	// DefaultSweepSchedule runs the sweep at the top of every hour.
	DefaultSweepSchedule = "0 * * * *"
)

// Sweeper evicts idle sessions on a cron schedule. Sessions live only in
// memory, so this is the sole bound on their lifetime.
type Sweeper struct {
	manager  *Manager
	idleTTL  time.Duration
	schedule string
	cron     *cron.Cron
	logger   zerolog.Logger
}

// NewSweeper creates a sweeper for the manager.
func NewSweeper(manager *Manager, idleTTL time.Duration, logger zerolog.Logger) *Sweeper {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}

	return &Sweeper{
		manager:  manager,
		idleTTL:  idleTTL,
		schedule: DefaultSweepSchedule,
		logger:   logger,
	}
}

// Start schedules the sweep job.
func (s *Sweeper) Start() error {
	if s.cron != nil {
		return fmt.Errorf("sweeper is already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, s.Sweep); err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}
	c.Start()
	s.cron = c

	s.logger.Info().
		Dur("idle_ttl", s.idleTTL).
		Str("schedule", s.schedule).
		Msg("Session sweeper started")

	return nil
}

// Stop halts the schedule. Running sweeps finish first.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.cron = nil

	s.logger.Info().Msg("Session sweeper stopped")
}

// Sweep evicts every session idle longer than the TTL.
func (s *Sweeper) Sweep() {
	cutoff := time.Now().Add(-s.idleTTL)
	evicted := 0

	for _, id := range s.manager.IdleSince(cutoff) {
		s.manager.Delete(id)
		evicted++
	}

	if evicted > 0 {
		s.logger.Info().Int("evicted", evicted).Msg("Idle sessions swept")
	}
}
