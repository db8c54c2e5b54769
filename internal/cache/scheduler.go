package cache

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Maintenance runs periodic cache jobs (expiry sweep, warming) on a gocron scheduler.
type Maintenance struct {
	scheduler *gocron.Scheduler
	logger    *zap.Logger
	jobs      int
}

// NewMaintenance creates an idle scheduler. Jobs are added with ScheduleSweep and ScheduleWarm.
func NewMaintenance(logger *zap.Logger) *Maintenance {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Maintenance{
		scheduler: gocron.NewScheduler(time.UTC),
		logger:    logger,
	}
}

// ScheduleSweep removes expired entries from store every interval.
func (m *Maintenance) ScheduleSweep(store *Store, interval time.Duration) error {
	_, err := m.scheduler.Every(interval).Do(func() {
		if removed := store.Sweep(); removed > 0 {
			m.logger.Debug("cache sweep", zap.Int("removed", removed), zap.Int("remaining", store.Len()))
		}
	})
	if err != nil {
		return err
	}
	m.jobs++
	return nil
}

// ScheduleWarm warms locations immediately on start and then every interval.
// Each run is bounded by timeout.
func (m *Maintenance) ScheduleWarm(w *CacheWarmer, locations []string, interval, timeout time.Duration) error {
	if len(locations) == 0 {
		m.logger.Info("cache warming: no locations configured; nothing to schedule")
		return nil
	}
	_, err := m.scheduler.Every(interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := w.Warm(ctx, locations); err != nil {
			m.logger.Warn("cache warm failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	m.jobs++
	return nil
}

// Start runs the scheduler in the background. A scheduler without jobs is not started.
func (m *Maintenance) Start() {
	if m.jobs == 0 {
		return
	}
	m.scheduler.StartAsync()
}

// Stop stops the scheduler and cancels any future runs.
func (m *Maintenance) Stop() {
	if m.scheduler.IsRunning() {
		m.scheduler.Stop()
	}
}
