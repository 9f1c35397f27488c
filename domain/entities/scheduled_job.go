package entities

import "time"

// JobType enumerates the kinds of durable work the scheduler drives.
type JobType string

const (
	JobTypeRoundStart JobType = "round_start"
	JobTypeRoundEnd   JobType = "round_end"
)

// JobStatus tracks a scheduled job's lifecycle.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusClaimed   JobStatus = "claimed"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ScheduledJob is a durable, idempotent unit of future work. JobID is
// deterministic (e.g. "{auctionId}-round-{round}-end") so re-scheduling the
// same logical job is always an upsert, never a duplicate.
type ScheduledJob struct {
	JobID      string    `db:"job_id"`
	JobType    JobType   `db:"job_type"`
	Payload    string    `db:"payload"`
	RunAt      time.Time `db:"run_at"`
	Status     JobStatus `db:"status"`
	Attempts   int       `db:"attempts"`
	LastError  *string   `db:"last_error"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// IsDue reports whether the job should be claimed at the given time.
func (j *ScheduledJob) IsDue(now time.Time) bool {
	return j.Status == JobStatusPending && !j.RunAt.After(now)
}
