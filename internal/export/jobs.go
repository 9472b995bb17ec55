package export

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

var (
	ErrJobNotFound = errors.New("export job not found")
	ErrJobNotReady = errors.New("export job not finished")
)

// Job is a snapshot of one export run.
type Job struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Kind        string    `json:"kind"`
	Status      Status    `json:"status"`
	Done        int       `json:"done"`
	Total       int       `json:"total"`
	Filename    string    `json:"filename,omitempty"`
	ContentType string    `json:"contentType,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	FinishedAt  time.Time `json:"finishedAt,omitzero"`
}

type jobEntry struct {
	Job
	result []byte
}

// RunFunc does the work of a job and reports progress through report.
type RunFunc func(ctx context.Context, report ProgressFunc) ([]byte, error)

// Jobs is an in-memory registry of export runs. Finished jobs are kept for
// TTL so the result can be downloaded.
type Jobs struct {
	TTL time.Duration
	// OnUpdate is called with a snapshot after every state or progress
	// change. It must not block.
	OnUpdate func(Job)

	mu   sync.Mutex
	jobs map[string]*jobEntry
	wg   sync.WaitGroup
	now  func() time.Time
}

func NewJobs(ttl time.Duration) *Jobs {
	return &Jobs{TTL: ttl, jobs: map[string]*jobEntry{}, now: time.Now}
}

// Start registers a job and runs it in its own goroutine.
func (j *Jobs) Start(ownerID, kind, filename, contentType string, total int, run RunFunc) Job {
	j.mu.Lock()
	j.pruneLocked()
	e := &jobEntry{Job: Job{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Kind:        kind,
		Status:      StatusPending,
		Total:       total,
		Filename:    filename,
		ContentType: contentType,
		CreatedAt:   j.now(),
	}}
	j.jobs[e.ID] = e
	snap := e.Job
	j.mu.Unlock()
	j.notify(snap)

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.update(e.ID, func(e *jobEntry) { e.Status = StatusRunning })
		out, err := run(context.Background(), func(done, total int) {
			j.update(e.ID, func(e *jobEntry) { e.Done, e.Total = done, total })
		})
		j.update(e.ID, func(e *jobEntry) {
			e.FinishedAt = j.now()
			if err != nil {
				e.Status, e.Error = StatusFailed, err.Error()
				return
			}
			e.Status, e.result = StatusDone, out
		})
	}()
	return snap
}

// Wait blocks until every started job has finished.
func (j *Jobs) Wait() { j.wg.Wait() }

func (j *Jobs) update(id string, fn func(*jobEntry)) {
	j.mu.Lock()
	e, ok := j.jobs[id]
	if !ok {
		j.mu.Unlock()
		return
	}
	fn(e)
	snap := e.Job
	j.mu.Unlock()
	j.notify(snap)
}

func (j *Jobs) notify(job Job) {
	if j.OnUpdate != nil {
		j.OnUpdate(job)
	}
}

// Get returns a job snapshot.
func (j *Jobs) Get(id string) (Job, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	e, ok := j.jobs[id]
	if !ok {
		return Job{}, false
	}
	return e.Job, true
}

// List returns the owner's jobs, newest first.
func (j *Jobs) List(ownerID string) []Job {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []Job
	for _, e := range j.jobs {
		if e.OwnerID == ownerID {
			out = append(out, e.Job)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out
}

// Result returns the output of a finished job.
func (j *Jobs) Result(id string) ([]byte, Job, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	e, ok := j.jobs[id]
	if !ok {
		return nil, Job{}, ErrJobNotFound
	}
	switch e.Status {
	case StatusDone:
		return e.result, e.Job, nil
	case StatusFailed:
		return nil, e.Job, errors.New(e.Error)
	}
	return nil, e.Job, ErrJobNotReady
}

func (j *Jobs) pruneLocked() {
	if j.TTL <= 0 {
		return
	}
	cutoff := j.now().Add(-j.TTL)
	for id, e := range j.jobs {
		if !e.FinishedAt.IsZero() && e.FinishedAt.Before(cutoff) {
			delete(j.jobs, id)
		}
	}
}
