package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"helpdesk-bridge/internal/usecase"
)

// RetentionWorker periodically evicts terminal requests that outlived
// the retention window from the coordinator registry.
type RetentionWorker struct {
	interval  time.Duration
	retention time.Duration
	coord     *usecase.Coordinator
	log       *zerolog.Logger
}

func NewRetentionWorker(interval, retention time.Duration, coord *usecase.Coordinator, logger *zerolog.Logger) *RetentionWorker {
	retLog := logger.With().Str("component", "RetentionWorker").Logger()
	if interval <= 0 {
		interval = time.Minute
	}
	return &RetentionWorker{
		interval:  interval,
		retention: retention,
		coord:     coord,
		log:       &retLog,
	}
}

func (w *RetentionWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("retention", w.retention).Msg("Starting retention worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping retention worker")
			return ctx.Err()
		case <-ticker.C:
			n := w.coord.EvictTerminalBefore(time.Now().Add(-w.retention))
			if n > 0 {
				w.log.Info().Int("count", n).Msg("evicted terminal requests")
			}
		}
	}
}
