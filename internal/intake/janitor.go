package intake

import (
	"os"
	"path/filepath"
	"time"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"

	"docsearch/internal/port"
)

// Janitor periodically removes abandoned scratch directories and expired
// session reports.
type Janitor struct {
	cron          *cron.Cron
	root          string
	scratchMaxAge time.Duration
	store         port.ReportStore
	sessionTTL    time.Duration
	now           func() time.Time
}

// NewJanitor creates a janitor for the scratch directories under root. store
// may be nil; a zero age or TTL disables that sweep.
func NewJanitor(root string, scratchMaxAge time.Duration, store port.ReportStore, sessionTTL time.Duration) *Janitor {
	return &Janitor{
		cron:          cron.New(),
		root:          root,
		scratchMaxAge: scratchMaxAge,
		store:         store,
		sessionTTL:    sessionTTL,
		now:           time.Now,
	}
}

// Start schedules the sweep. An empty schedule leaves the janitor idle.
func (j *Janitor) Start(schedule string) error {
	if schedule == "" {
		return nil
	}

	if _, err := j.cron.AddFunc(schedule, func() { j.RunOnce() }); err != nil {
		return err
	}

	j.cron.Start()
	log.Info().Str("schedule", schedule).Msg("Janitor started")
	return nil
}

// Stop stops the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// RunOnce performs one sweep and returns how many scratch directories and
// sessions were removed.
func (j *Janitor) RunOnce() (scratch, sessions int) {
	now := j.now()

	if j.scratchMaxAge > 0 {
		scratch = j.sweepScratch(now.Add(-j.scratchMaxAge))
	}

	if j.store != nil && j.sessionTTL > 0 {
		n, err := j.store.Sweep(now.Add(-j.sessionTTL))
		if err != nil {
			log.Error().Err(err).Msg("Session sweep failed")
		}
		sessions = n
	}

	if scratch > 0 || sessions > 0 {
		log.Info().Int("scratch_dirs", scratch).Int("sessions", sessions).Msg("Janitor sweep complete")
	}
	return scratch, sessions
}

// sweepScratch removes scratch directories created before cutoff. Entries not
// named like a scratch directory are left alone.
func (j *Janitor) sweepScratch(cutoff time.Time) int {
	entries, err := os.ReadDir(j.root)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("dir", j.root).Msg("Cannot list upload dir")
		}
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		created, ok := scratchCreated(entry.Name())
		if !ok || !created.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(j.root, entry.Name())); err != nil {
			log.Warn().Err(err).Str("dir", entry.Name()).Msg("Failed to remove scratch dir")
			continue
		}
		removed++
	}
	return removed
}
