package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"auctionhouse/domain/entities"
	"auctionhouse/domain/interfaces"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// defaultConcurrency bounds how many jobs a single worker pool runs at once,
// per the job-worker concurrency default.
const defaultConcurrency = 50

// pollInterval bounds how long the worker sleeps when it has no due job and
// no known next run time to wait for exactly.
const pollInterval = time.Minute

// claimBatchSize bounds how many jobs a single poll claims at once.
const claimBatchSize = 100

// Worker claims due jobs from the durable job table and dispatches them to
// the round processor, independently of any other worker process: claims
// rely on row-level locking in the store, not on a singleton in this process.
type Worker struct {
	uowFactory  interfaces.UnitOfWorkFactory
	processor   interfaces.RoundProcessor
	concurrency int
}

// NewWorker creates a new job worker pool bound to a round processor.
func NewWorker(uowFactory interfaces.UnitOfWorkFactory, processor interfaces.RoundProcessor) *Worker {
	return &Worker{
		uowFactory:  uowFactory,
		processor:   processor,
		concurrency: defaultConcurrency,
	}
}

// Start begins the worker loop and returns a cleanup function that stops it.
func (w *Worker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.Info("scheduler worker pool started")

		for {
			if err := w.claimAndProcess(ctx); err != nil {
				log.WithError(err).Error("error claiming due jobs")
			}

			wait := w.waitDuration(ctx)

			select {
			case <-ctx.Done():
				log.Info("scheduler worker pool shutting down (context cancelled)")
				return
			case <-stopChan:
				log.Info("scheduler worker pool shutting down (stop requested)")
				return
			case <-time.After(wait):
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// waitDuration picks how long to sleep before the next claim attempt, based
// on the next known due time, capped by pollInterval so a job scheduled
// while asleep is never missed by more than one poll.
func (w *Worker) waitDuration(ctx context.Context) time.Duration {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return pollInterval
	}
	defer uow.Rollback()

	next, err := uow.ScheduledJobRepository().GetNextRunAt(ctx)
	if err != nil || next == nil {
		return pollInterval
	}

	wait := time.Until(*next)
	if wait <= 0 {
		return 0
	}
	if wait > pollInterval {
		return pollInterval
	}
	return wait
}

func (w *Worker) claimAndProcess(ctx context.Context) error {
	jobs, err := w.claimDue(ctx)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}

	log.WithField("count", len(jobs)).Info("claimed due jobs")

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(w.concurrency)

	for _, job := range jobs {
		job := job
		group.Go(func() error {
			w.processJob(groupCtx, job)
			return nil
		})
	}

	return group.Wait()
}

func (w *Worker) claimDue(ctx context.Context) ([]*entities.ScheduledJob, error) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	jobs, err := uow.ScheduledJobRepository().ClaimDue(ctx, time.Now().UTC(), claimBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due jobs: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	return jobs, nil
}

func (w *Worker) processJob(ctx context.Context, job *entities.ScheduledJob) {
	var payload jobPayload
	if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
		w.markFailed(ctx, job.JobID, fmt.Sprintf("bad payload: %v", err))
		return
	}

	var err error
	switch job.JobType {
	case entities.JobTypeRoundStart:
		err = w.processor.StartRound(ctx, payload.AuctionID, payload.RoundIndex)
	case entities.JobTypeRoundEnd:
		_, err = w.processor.EndRound(ctx, payload.AuctionID, payload.RoundIndex)
	default:
		err = fmt.Errorf("unknown job type %q", job.JobType)
	}

	if err != nil {
		log.WithFields(log.Fields{
			"jobId":   job.JobID,
			"jobType": job.JobType,
			"error":   err,
		}).Error("job failed, will be retried")
		w.markFailed(ctx, job.JobID, err.Error())
		return
	}

	w.markCompleted(ctx, job.JobID)
}

func (w *Worker) markCompleted(ctx context.Context, jobID string) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		log.WithError(err).WithField("jobId", jobID).Error("failed to begin transaction marking job completed")
		return
	}
	defer uow.Rollback()

	if err := uow.ScheduledJobRepository().MarkCompleted(ctx, jobID); err != nil {
		log.WithError(err).WithField("jobId", jobID).Error("failed to mark job completed")
		return
	}
	if err := uow.Commit(); err != nil {
		log.WithError(err).WithField("jobId", jobID).Error("failed to commit job completion")
	}
}

func (w *Worker) markFailed(ctx context.Context, jobID, errMsg string) {
	// Use a fresh, un-cancellable-by-the-caller context: a job that failed
	// because the caller's context died must still record the failure so the
	// scheduler's retry machinery sees it.
	bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	uow := w.uowFactory.Create()
	if err := uow.Begin(bgCtx); err != nil {
		log.WithError(err).WithField("jobId", jobID).Error("failed to begin transaction marking job failed")
		return
	}
	defer uow.Rollback()

	if err := uow.ScheduledJobRepository().MarkFailed(bgCtx, jobID, errMsg); err != nil {
		log.WithError(err).WithField("jobId", jobID).Error("failed to mark job failed")
		return
	}
	if err := uow.Commit(); err != nil {
		log.WithError(err).WithField("jobId", jobID).Error("failed to commit job failure")
	}
}
