package cron

import "context"

// Job is one billing sweep executed by the cron worker. Run must be
// safe to repeat: every sweep re-derives its work set from current
// subscription state rather than carrying memory between cycles.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the sweeps a worker executes each cycle, in order.
// Expiry runs before trial warnings so a trial that lapsed this cycle
// is never also warned about.
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry from the given jobs, dropping nils.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register appends a job to the cycle.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	r.jobs = append(r.jobs, job)
}

// Jobs returns the registered jobs in registration order.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
