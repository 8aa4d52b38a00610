package ingest

import (
	"context"
	"log"
	"time"
)

// Scheduler runs the pipeline on a fixed interval in its own goroutine.
type Scheduler struct {
	pipeline *Pipeline
	interval time.Duration
}

func NewScheduler(pipeline *Pipeline, interval time.Duration) *Scheduler {
	return &Scheduler{pipeline: pipeline, interval: interval}
}

// Start launches the recurring ingestion loop. It runs one pass immediately,
// then again every interval until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		s.runOnce(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("ingestion scheduler stopped")
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.pipeline.Run(ctx); err != nil {
		log.Printf("scheduled ingestion failed: %v", err)
	}
}
