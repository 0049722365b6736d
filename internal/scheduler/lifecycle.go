package scheduler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/lifecycle"
)

const (
	JobCompleteFinished   = "complete_finished_reservations"
	JobArchiveUnconfirmed = "archive_unconfirmed_reservations"
	JobSendReminders      = "send_reservation_reminders"
)

type LifecycleCrons struct {
	Completion string
	Archival   string
	Reminders  string
}

// RegisterLifecycleJobs schedules the three reservation sweeps.
func RegisterLifecycleJobs(s *Service, sweeper *lifecycle.Sweeper, crons LifecycleCrons) error {
	if sweeper == nil {
		return fmt.Errorf("lifecycle jobs require sweeper")
	}

	jobs := []struct {
		name  string
		cron  string
		sweep func(context.Context) (lifecycle.Result, error)
	}{
		{JobCompleteFinished, crons.Completion, sweeper.CompleteFinished},
		{JobArchiveUnconfirmed, crons.Archival, sweeper.ArchiveUnconfirmed},
		{JobSendReminders, crons.Reminders, sweeper.SendReminders},
	}
	for _, job := range jobs {
		sweep := job.sweep
		if _, err := s.AddJob(job.name, job.cron, func(ctx context.Context) error {
			res, err := sweep(ctx)
			if err != nil {
				return err
			}
			if res.Failed > 0 {
				return fmt.Errorf("%d reservations failed", res.Failed)
			}
			return nil
		}); err != nil {
			return fmt.Errorf("add %s job: %w", job.name, err)
		}
	}

	log.Info().Int("jobs", len(jobs)).Msg("Lifecycle jobs registered")
	return nil
}
