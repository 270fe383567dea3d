package digest

import (
	"context"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/quantonganh/newsletter"
)

// Scheduler runs a digest on a cron schedule
type Scheduler struct {
	cron    *cron.Cron
	service newsletter.DigestService
	feedURL string
	logger  zerolog.Logger
}

// NewScheduler returns a scheduler that dispatches the digest of feedURL on spec
func NewScheduler(service newsletter.DigestService, feedURL, spec string, logger zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		service: service,
		feedURL: feedURL,
		logger:  logger,
	}

	if _, err := s.cron.AddFunc(spec, s.Run); err != nil {
		return nil, errors.Wrapf(err, "invalid cron spec %q", spec)
	}

	return s, nil
}

// Run dispatches one digest
func (s *Scheduler) Run() {
	logger := s.logger.With().Str("trigger", "cron").Logger()
	ctx := logger.WithContext(context.Background())

	result, err := s.service.Dispatch(ctx, s.feedURL)
	if err != nil {
		logger.Error().Err(err).Msg("scheduled digest failed")
		return
	}

	logger.Info().Str("status", string(result.Status)).Int("sent", result.SentCount).Msg("scheduled digest finished")
}

// Start starts the cron scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running digest to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
