package memory

import (
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/agrovista/farmsight-go/pkg/logger"
)

// SweeperConfig contains configuration for creating a Sweeper.
type SweeperConfig struct {
	// Schedule is a cron expression controlling when sweeps run
	// (e.g. "0 * * * *" for hourly). Defaults to hourly.
	Schedule string

	// MaxAge is the retention window. Entries older than MaxAge at sweep
	// time are removed.
	MaxAge time.Duration

	// Logger is the logger for sweep diagnostics (optional).
	Logger *zerolog.Logger
}

// Sweeper periodically removes aged entries from a Store.
//
// Each sweep runs Clear with an OlderThan policy of now minus MaxAge, so
// the store never accumulates stale observations between page sessions.
type Sweeper struct {
	store    *Store
	maxAge   time.Duration
	schedule string
	cron     *cron.Cron
	log      zerolog.Logger

	// mu protects started and entryID.
	mu      sync.Mutex
	started bool
	entryID cron.EntryID
}

// NewSweeper creates a retention sweeper for the given store.
func NewSweeper(store *Store, cfg *SweeperConfig) *Sweeper {
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = "0 * * * *"
	}
	log := logger.With("memory-sweeper")
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	return &Sweeper{
		store:    store,
		maxAge:   cfg.MaxAge,
		schedule: schedule,
		cron:     cron.New(),
		log:      log,
	}
}

// Start begins scheduled sweeping. Calling Start on a running sweeper is
// an error; Stop it first.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("memory: sweeper already started")
	}
	id, err := s.cron.AddFunc(s.schedule, s.Sweep)
	if err != nil {
		return err
	}
	s.entryID = id
	s.started = true
	s.cron.Start()
	s.log.Debug().Str("schedule", s.schedule).Dur("max_age", s.maxAge).Msg("retention sweeper started")
	return nil
}

// Stop halts scheduled sweeping. A sweep already in progress completes.
// Stop on a stopped sweeper is a no-op.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.cron.Remove(s.entryID)
	s.cron.Stop()
	s.started = false
}

// Sweep removes entries older than the retention window immediately.
func (s *Sweeper) Sweep() {
	cutoff := time.Now().Add(-s.maxAge)
	removed := s.store.Clear(ClearPolicy{OlderThan: &cutoff})
	if removed > 0 {
		s.log.Debug().Int("removed", removed).Time("cutoff", cutoff).Msg("retention sweep completed")
	}
}
