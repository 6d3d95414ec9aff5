package demo

import (
	"context"

	"github.com/nemanja-m/gomr/internal/shared/logging"
	"github.com/nemanja-m/gomr/internal/tracker/core"
)

// NoopShuffle stands in for the real Shuffle subsystem (spec §1 non-goal):
// Flush resolves immediately with no error, and JobFinished just logs.
type NoopShuffle struct {
	logger logging.Logger
}

func NewNoopShuffle(logger logging.Logger) *NoopShuffle {
	return &NoopShuffle{logger: logger}
}

func (s *NoopShuffle) Flush(ctx context.Context, job core.JobId) <-chan error {
	out := make(chan error, 1)
	out <- nil
	return out
}

func (s *NoopShuffle) JobFinished(job core.JobId) {
	s.logger.Debug("shuffle job finished", "job_id", job.String())
}
