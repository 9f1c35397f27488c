// Package scheduler drives the durable delayed-job table backing round-start
// and round-end events. Job ids are deterministic so scheduling the same
// logical job twice is always an upsert, and worker concurrency across many
// processes relies on the durable store's claim-row locking rather than a
// singleton scheduler.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"auctionhouse/domain/entities"
	"auctionhouse/domain/interfaces"
)

// jobPayload is the JSON body stored on every round_start/round_end job.
type jobPayload struct {
	AuctionID  string `json:"auctionId"`
	RoundIndex int    `json:"roundIndex"`
}

// Scheduler implements interfaces.Scheduler against the durable job table.
type Scheduler struct {
	uowFactory interfaces.UnitOfWorkFactory
}

// New creates a new Scheduler bound to a unit-of-work factory.
func New(uowFactory interfaces.UnitOfWorkFactory) *Scheduler {
	return &Scheduler{uowFactory: uowFactory}
}

// ScheduleRoundStart enqueues the deterministic start-round job for a round.
func (s *Scheduler) ScheduleRoundStart(ctx context.Context, auctionID string, roundIndex int, runAt int64) error {
	return s.schedule(ctx, StartRoundJobID(auctionID, roundIndex), string(entities.JobTypeRoundStart), auctionID, roundIndex, runAt)
}

// ScheduleRoundEnd enqueues the deterministic end-round job for a round.
func (s *Scheduler) ScheduleRoundEnd(ctx context.Context, auctionID string, roundIndex int, runAt int64) error {
	return s.schedule(ctx, EndRoundJobID(auctionID, roundIndex), string(entities.JobTypeRoundEnd), auctionID, roundIndex, runAt)
}

func (s *Scheduler) schedule(ctx context.Context, jobID, jobType, auctionID string, roundIndex int, runAt int64) error {
	payload, err := json.Marshal(jobPayload{AuctionID: auctionID, RoundIndex: roundIndex})
	if err != nil {
		return fmt.Errorf("scheduler: failed to encode payload for %s: %w", jobID, err)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("scheduler: failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.ScheduledJobRepository().Schedule(ctx, jobID, jobType, string(payload), time.Unix(runAt, 0).UTC()); err != nil {
		return fmt.Errorf("scheduler: failed to schedule %s: %w", jobID, err)
	}

	return uow.Commit()
}

// Reschedule moves an existing job's fire time forward, used by anti-snipe
// extension.
func (s *Scheduler) Reschedule(ctx context.Context, jobID string, runAtUnix int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("scheduler: failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.ScheduledJobRepository().Reschedule(ctx, jobID, time.Unix(runAtUnix, 0).UTC()); err != nil {
		return fmt.Errorf("scheduler: failed to reschedule %s: %w", jobID, err)
	}

	return uow.Commit()
}

// GetJob returns a job's current durable state by id.
func (s *Scheduler) GetJob(ctx context.Context, jobID string) (*entities.ScheduledJob, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("scheduler: failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.ScheduledJobRepository().GetByID(ctx, jobID)
}

// StartRoundJobID returns the deterministic job id for a round's start job.
func StartRoundJobID(auctionID string, roundIndex int) string {
	return fmt.Sprintf("%s-round-%d", auctionID, roundIndex)
}

// EndRoundJobID returns the deterministic job id for a round's end job.
func EndRoundJobID(auctionID string, roundIndex int) string {
	return fmt.Sprintf("%s-round-%d-end", auctionID, roundIndex)
}
