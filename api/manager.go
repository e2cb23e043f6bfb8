package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"articlecast/app"
	"articlecast/confirm"
	"articlecast/pipeline"
)

// JobStatus is the lifecycle of a managed job.
type JobStatus string

const (
	StatusRunning JobStatus = "running"
	StatusWaiting JobStatus = "waiting_confirm"
	StatusDone    JobStatus = "done"
	StatusAborted JobStatus = "aborted"
	StatusStopped JobStatus = "stopped"
	StatusFailed  JobStatus = "failed"
)

// Job is one pipeline run driven over HTTP. Confirmation gates park in
// the rendezvous until a client answers them.
type Job struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Focus string `json:"focus,omitempty"`

	mu         sync.Mutex
	status     JobStatus
	step       int
	stepDesc   string
	totalCost  float64
	err        error
	pipeline   *pipeline.Pipeline
	rendezvous *confirm.Rendezvous
	cancel     context.CancelFunc
	done       chan struct{}
}

// JobView is the status payload returned to clients.
type JobView struct {
	ID        string           `json:"id"`
	URL       string           `json:"url"`
	Focus     string           `json:"focus,omitempty"`
	Status    JobStatus        `json:"status"`
	Step      int              `json:"step"`
	TotalStep int              `json:"total_steps"`
	StepDesc  string           `json:"step_desc"`
	TotalCost float64          `json:"total_cost"`
	Error     string           `json:"error,omitempty"`
	Pending   *confirm.Request `json:"pending_confirm,omitempty"`
}

// Manager owns the running jobs. One job per URL at a time; a second
// request for the same URL returns the existing job.
type Manager struct {
	factory *app.Factory

	mu   sync.Mutex
	jobs map[string]*Job
}

func NewManager(factory *app.Factory) *Manager {
	return &Manager{factory: factory, jobs: map[string]*Job{}}
}

// Submit starts a job for a URL, or returns the already running one.
// With autoConfirm set, both gates approve without waiting.
func (m *Manager) Submit(ctx context.Context, url, focus string, autoConfirm bool) (*Job, error) {
	jobID := pipeline.JobID(url)

	m.mu.Lock()
	if existing, ok := m.jobs[jobID]; ok {
		if st := existing.Status(); st == StatusRunning || st == StatusWaiting {
			m.mu.Unlock()
			return existing, nil
		}
	}

	job := &Job{
		ID:         jobID,
		URL:        url,
		Focus:      focus,
		status:     StatusRunning,
		rendezvous: confirm.NewRendezvous(),
		done:       make(chan struct{}),
	}
	m.jobs[jobID] = job
	m.mu.Unlock()

	var confirmer pipeline.Confirmer = job.gate()
	if autoConfirm {
		confirmer = confirm.Auto{}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	job.cancel = cancel

	p, ledger, err := m.factory.NewPipeline(ctx, url, focus, app.JobOptions{
		Confirm: confirmer,
		Progress: func(step, total int, desc string, pct float64) {
			job.setProgress(step, desc)
		},
	})
	if err != nil {
		cancel()
		job.finish(StatusFailed, err)
		return job, err
	}
	job.pipeline = p
	ledger.SetNotify(func(total float64) { job.setCost(total) })

	go func() {
		defer cancel()
		err := p.Run(runCtx, 0)
		switch {
		case err == nil:
			job.finish(StatusDone, nil)
		case errors.Is(err, pipeline.ErrAborted):
			job.finish(StatusAborted, nil)
		case errors.Is(err, pipeline.ErrStopped):
			job.finish(StatusStopped, nil)
		default:
			log.Printf("Job %s failed: %v", jobID, err)
			job.finish(StatusFailed, err)
		}
	}()
	return job, nil
}

// Get returns a job by id.
func (m *Manager) Get(jobID string) (*Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	return job, ok
}

// List returns a snapshot of all jobs.
func (m *Manager) List() []JobView {
	m.mu.Lock()
	defer m.mu.Unlock()
	views := make([]JobView, 0, len(m.jobs))
	for _, job := range m.jobs {
		views = append(views, job.View())
	}
	return views
}

// Confirm answers a job's pending gate.
func (m *Manager) Confirm(jobID string, approve bool) error {
	job, ok := m.Get(jobID)
	if !ok {
		return fmt.Errorf("no such job: %s", jobID)
	}
	if !job.rendezvous.Answer(approve) {
		return fmt.Errorf("job %s has no pending confirmation", jobID)
	}
	return nil
}

// Stop requests a clean halt of a running job. The run ends before its
// next stage, and its confirmation gates decline from here on.
func (m *Manager) Stop(jobID string) error {
	job, ok := m.Get(jobID)
	if !ok {
		return fmt.Errorf("no such job: %s", jobID)
	}
	if job.pipeline != nil {
		job.pipeline.Stop()
	}
	// Unpark a gate that may be waiting; a declined gate aborts cleanly.
	job.rendezvous.Answer(false)
	return nil
}

// gate wraps the rendezvous so the job status flips to waiting while a
// gate is parked.
func (j *Job) gate() pipeline.Confirmer {
	return gateConfirmer{job: j}
}

type gateConfirmer struct{ job *Job }

func (g gateConfirmer) Confirm(ctx context.Context, message string, data map[string]any) (bool, error) {
	g.job.setStatus(StatusWaiting)
	defer g.job.setStatus(StatusRunning)
	return g.job.rendezvous.Confirm(ctx, message, data)
}

func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

func (j *Job) setStatus(s JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == StatusRunning || j.status == StatusWaiting {
		j.status = s
	}
}

func (j *Job) setProgress(step int, desc string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.step = step
	j.stepDesc = desc
}

func (j *Job) setCost(total float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.totalCost = total
}

func (j *Job) finish(s JobStatus, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = s
	j.err = err
	select {
	case <-j.done:
	default:
		close(j.done)
	}
}

// Wait blocks until the job reaches a terminal state and returns the
// error it finished with. Done, aborted and stopped runs return nil.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

func (j *Job) View() JobView {
	j.mu.Lock()
	defer j.mu.Unlock()

	view := JobView{
		ID:        j.ID,
		URL:       j.URL,
		Focus:     j.Focus,
		Status:    j.status,
		Step:      j.step,
		TotalStep: pipeline.TotalSteps,
		StepDesc:  j.stepDesc,
		TotalCost: j.totalCost,
	}
	if j.err != nil {
		view.Error = j.err.Error()
	}
	if req, ok := j.rendezvous.Pending(); ok {
		view.Pending = &req
	}
	return view
}
