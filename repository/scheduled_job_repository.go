package repository

import (
	"context"
	"fmt"
	"time"

	"auctionhouse/domain/entities"

	"github.com/jackc/pgx/v5"
)

// ScheduledJobRepository implements interfaces.ScheduledJobRepository, a
// durable delayed-job table polled by the scheduler's worker loop. Jobs are
// claimed with SELECT ... FOR UPDATE SKIP LOCKED so multiple worker
// processes can race for work without double-processing a job.
type ScheduledJobRepository struct {
	q Queryable
}

// NewScheduledJobRepository creates a new scheduled job repository.
func NewScheduledJobRepository(q Queryable) *ScheduledJobRepository {
	return &ScheduledJobRepository{q: q}
}

// Schedule inserts a job, or refreshes run_at if one with the same id
// already exists. Job ids are deterministic per auction/round, so this call
// also serves as the scheduler's dedup mechanism.
func (r *ScheduledJobRepository) Schedule(ctx context.Context, jobID, jobType, payload string, runAt time.Time) error {
	query := `
		INSERT INTO scheduled_jobs (job_id, job_type, payload, run_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'pending', now(), now())
		ON CONFLICT (job_id) DO UPDATE SET run_at = EXCLUDED.run_at, status = 'pending', updated_at = now()
	`
	_, err := r.q.Exec(ctx, query, jobID, jobType, payload, runAt)
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", jobID, err)
	}
	return nil
}

// ClaimDue locks and returns up to limit due, pending jobs, marking them
// claimed so a concurrent worker does not also pick them up.
func (r *ScheduledJobRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*entities.ScheduledJob, error) {
	query := `
		UPDATE scheduled_jobs SET status = 'claimed', updated_at = now()
		WHERE job_id IN (
			SELECT job_id FROM scheduled_jobs
			WHERE status = 'pending' AND run_at <= $1
			ORDER BY run_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING job_id, job_type, payload, run_at, status, attempts, last_error, created_at, updated_at
	`
	rows, err := r.q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*entities.ScheduledJob
	for rows.Next() {
		var j entities.ScheduledJob
		if err := rows.Scan(&j.JobID, &j.JobType, &j.Payload, &j.RunAt, &j.Status, &j.Attempts, &j.LastError, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scheduled job: %w", err)
		}
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

// MarkCompleted marks a job as done so it is never claimed again.
func (r *ScheduledJobRepository) MarkCompleted(ctx context.Context, jobID string) error {
	_, err := r.q.Exec(ctx, `UPDATE scheduled_jobs SET status = 'completed', updated_at = now() WHERE job_id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("failed to mark job %s completed: %w", jobID, err)
	}
	return nil
}

// MarkFailed records a failed attempt and returns the job to pending so the
// worker loop retries it; the job body must be idempotent per spec.
func (r *ScheduledJobRepository) MarkFailed(ctx context.Context, jobID string, errMsg string) error {
	query := `
		UPDATE scheduled_jobs
		SET status = 'pending', attempts = attempts + 1, last_error = $2, updated_at = now()
		WHERE job_id = $1
	`
	_, err := r.q.Exec(ctx, query, jobID, errMsg)
	if err != nil {
		return fmt.Errorf("failed to mark job %s failed: %w", jobID, err)
	}
	return nil
}

// GetNextRunAt returns the earliest run_at among pending jobs, used by the
// worker loop to size its poll sleep instead of busy-waiting.
func (r *ScheduledJobRepository) GetNextRunAt(ctx context.Context) (*time.Time, error) {
	var runAt time.Time
	err := r.q.QueryRow(ctx, `SELECT run_at FROM scheduled_jobs WHERE status = 'pending' ORDER BY run_at LIMIT 1`).Scan(&runAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next run_at: %w", err)
	}
	return &runAt, nil
}

// GetByID retrieves a single job by id, used by anti-snipe to recompute the
// real remaining time from the pending end-round job's run_at.
func (r *ScheduledJobRepository) GetByID(ctx context.Context, jobID string) (*entities.ScheduledJob, error) {
	query := `
		SELECT job_id, job_type, payload, run_at, status, attempts, last_error, created_at, updated_at
		FROM scheduled_jobs WHERE job_id = $1
	`
	var j entities.ScheduledJob
	err := r.q.QueryRow(ctx, query, jobID).Scan(&j.JobID, &j.JobType, &j.Payload, &j.RunAt, &j.Status, &j.Attempts, &j.LastError, &j.CreatedAt, &j.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", jobID, err)
	}
	return &j, nil
}

// Reschedule moves a job's run_at forward, used by anti-snipe to push out
// the pending end-round job without creating a duplicate.
func (r *ScheduledJobRepository) Reschedule(ctx context.Context, jobID string, runAt time.Time) error {
	query := `UPDATE scheduled_jobs SET run_at = $2, status = 'pending', updated_at = now() WHERE job_id = $1`
	result, err := r.q.Exec(ctx, query, jobID, runAt)
	if err != nil {
		return fmt.Errorf("failed to reschedule job %s: %w", jobID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("job %s not found", jobID)
	}
	return nil
}
