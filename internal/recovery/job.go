package recovery

import (
	"context"
	"fmt"

	"github.com/daybreak-labs/daybreak-backend/internal/activitylog"
	pkgerrors "github.com/daybreak-labs/daybreak-backend/pkg/errors"
)

// Job adapts the orchestrator to the cron runner for periodic reconciliation.
type Job struct {
	orch *Orchestrator
}

// NewJob wraps the orchestrator as a cron job.
func NewJob(orch *Orchestrator) (*Job, error) {
	if orch == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orchestrator is required")
	}
	return &Job{orch: orch}, nil
}

func (j *Job) Name() string { return "recovery" }

// Run performs one periodic pass, then the zero-pending health check. The
// orchestrator folds its own failures into the result, so a failed pass
// surfaces as an error here for cron metrics without double-running.
func (j *Job) Run(ctx context.Context) error {
	result := j.orch.RunRecovery(ctx, Options{SourceFlow: "periodic"})
	if !result.Success {
		return fmt.Errorf("recovery pass failed: %s", result.Error)
	}
	if ran, health := j.orch.RunHealthCheckIfNeeded(ctx); ran && !health.Success {
		return fmt.Errorf("health-check recovery failed: %s", health.Error)
	}
	return nil
}

// CompactionJob periodically purges redundant scheduled entries from the
// activity log so the capped log holds history the user cares about.
type CompactionJob struct {
	log *activitylog.Store
}

// NewCompactionJob wraps log compaction as a cron job.
func NewCompactionJob(log *activitylog.Store) (*CompactionJob, error) {
	if log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "activity log is required")
	}
	return &CompactionJob{log: log}, nil
}

func (j *CompactionJob) Name() string { return "activity_log_compaction" }

func (j *CompactionJob) Run(ctx context.Context) error {
	_, err := j.log.CompactRedundantScheduledEntries(ctx)
	return err
}
