package cron

import "context"

// Job is one unit of recurring background work the worker owns: a recovery
// pass, an activity-log compaction. Run is invoked once per cycle while the
// worker holds the lease.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the worker's job set. Jobs run in registration order, so
// the recovery pass goes in ahead of anything that reads its output.
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry preloaded with the given jobs.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{}
	for _, job := range jobs {
		r.Register(job)
	}
	return r
}

// Register appends a job; nil jobs are dropped.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	r.jobs = append(r.jobs, job)
}

// Jobs returns a copy of the job list in registration order.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
