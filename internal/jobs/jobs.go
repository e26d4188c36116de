// Package jobs runs processing requests one at a time and fans their progress
// out to subscribers.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forPelevin/tamilshorts/internal/types"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

func (s Status) Done() bool { return s == StatusSucceeded || s == StatusFailed }

const (
	maxLogLines     = 500
	subscriberQueue = 64
	keepFinished    = 50
)

var (
	ErrQueueFull = errors.New("job queue is full")
	ErrNotFound  = errors.New("job not found")
	ErrStopped   = errors.New("job runner is stopped")
)

// Result is what a successful run leaves behind.
type Result struct {
	RunDir       string         `json:"run_dir"`
	ManifestPath string         `json:"manifest_path"`
	Manifest     types.Manifest `json:"manifest"`
	Shorts       []types.Short  `json:"shorts"`
}

type Job struct {
	ID         uuid.UUID  `json:"id"`
	Source     string     `json:"source"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
	Log        []string   `json:"log"`
	Result     *Result    `json:"result,omitempty"`
}

type Event struct {
	JobID   uuid.UUID `json:"job_id"`
	Time    time.Time `json:"time"`
	Status  Status    `json:"status"`
	Message string    `json:"message,omitempty"`
}

// RunFunc processes one source. logf receives human readable progress lines.
type RunFunc func(ctx context.Context, source string, logf func(format string, args ...any)) (Result, error)

// Runner owns a bounded queue drained by a single worker, so runs never
// overlap.
type Runner struct {
	run    RunFunc
	logger *slog.Logger
	queue  chan uuid.UUID
	now    func() time.Time

	mu      sync.Mutex
	jobs    map[uuid.UUID]*Job
	subs    map[uuid.UUID]map[chan Event]struct{}
	latest  uuid.UUID
	stopped bool
}

func NewRunner(run RunFunc, queueSize int, logger *slog.Logger) *Runner {
	if queueSize <= 0 {
		queueSize = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		run:    run,
		logger: logger,
		queue:  make(chan uuid.UUID, queueSize),
		now:    time.Now,
		jobs:   make(map[uuid.UUID]*Job),
		subs:   make(map[uuid.UUID]map[chan Event]struct{}),
	}
}

// Start processes queued jobs until ctx is done. Queued jobs left behind are
// marked failed.
func (r *Runner) Start(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			r.stop()
			return
		}
		select {
		case <-ctx.Done():
			r.stop()
			return
		case id := <-r.queue:
			r.execute(ctx, id)
		}
	}
}

func (r *Runner) Submit(source string) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return Job{}, ErrStopped
	}
	j := &Job{ID: uuid.New(), Source: source, Status: StatusQueued, CreatedAt: r.now().UTC()}
	select {
	case r.queue <- j.ID:
	default:
		return Job{}, ErrQueueFull
	}
	r.jobs[j.ID] = j
	r.prune()
	r.logger.Info("job queued", "job", j.ID, "source", source)
	return snapshot(j), nil
}

func (r *Runner) Get(id uuid.UUID) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return snapshot(j), true
}

// List returns known jobs, newest first.
func (r *Runner) List() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, snapshot(j))
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out
}

// Latest returns the most recently succeeded job.
func (r *Runner) Latest() (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[r.latest]
	if !ok {
		return Job{}, false
	}
	return snapshot(j), true
}

// Subscribe streams events for a job. The channel is closed once the job
// finishes or cancel is called. Slow readers miss events rather than
// blocking the run.
func (r *Runner) Subscribe(id uuid.UUID) (<-chan Event, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	ch := make(chan Event, subscriberQueue)
	if j.Status.Done() {
		ch <- Event{JobID: id, Time: r.now().UTC(), Status: j.Status, Message: j.Error}
		close(ch)
		return ch, func() {}, nil
	}
	if r.subs[id] == nil {
		r.subs[id] = make(map[chan Event]struct{})
	}
	r.subs[id][ch] = struct{}{}
	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.subs[id][ch]; ok {
			delete(r.subs[id], ch)
			close(ch)
		}
	}
	return ch, cancel, nil
}

func (r *Runner) execute(ctx context.Context, id uuid.UUID) {
	r.mu.Lock()
	j, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	started := r.now().UTC()
	j.Status = StatusRunning
	j.StartedAt = &started
	source := j.Source
	r.publishLocked(j, "started")
	r.mu.Unlock()

	r.logger.Info("job started", "job", id, "source", source)
	res, err := r.safeRun(ctx, source, func(format string, args ...any) {
		r.progress(id, fmt.Sprintf(format, args...))
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	finished := r.now().UTC()
	j.FinishedAt = &finished
	if err != nil {
		j.Status = StatusFailed
		j.Error = err.Error()
		r.logger.Error("job failed", "job", id, "error", err, "duration", finished.Sub(started))
		r.publishLocked(j, j.Error)
	} else {
		j.Status = StatusSucceeded
		j.Result = &res
		r.latest = id
		r.logger.Info("job succeeded", "job", id, "clips", len(res.Manifest.Clips), "duration", finished.Sub(started))
		r.publishLocked(j, fmt.Sprintf("done: %d shorts", len(res.Manifest.Clips)))
	}
	r.closeSubsLocked(id)
}

func (r *Runner) safeRun(ctx context.Context, source string, logf func(string, ...any)) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("run panicked: %v", p)
		}
	}()
	return r.run(ctx, source, logf)
}

func (r *Runner) progress(id uuid.UUID, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return
	}
	j.Log = append(j.Log, msg)
	if len(j.Log) > maxLogLines {
		j.Log = j.Log[len(j.Log)-maxLogLines:]
	}
	r.publishLocked(j, msg)
}

func (r *Runner) publishLocked(j *Job, msg string) {
	ev := Event{JobID: j.ID, Time: r.now().UTC(), Status: j.Status, Message: msg}
	for ch := range r.subs[j.ID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (r *Runner) closeSubsLocked(id uuid.UUID) {
	for ch := range r.subs[id] {
		close(ch)
	}
	delete(r.subs, id)
}

func (r *Runner) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	now := r.now().UTC()
	for _, j := range r.jobs {
		if j.Status == StatusQueued {
			j.Status = StatusFailed
			j.Error = ErrStopped.Error()
			j.FinishedAt = &now
			r.publishLocked(j, j.Error)
			r.closeSubsLocked(j.ID)
		}
	}
}

// prune forgets the oldest finished jobs beyond keepFinished.
func (r *Runner) prune() {
	var done []*Job
	for _, j := range r.jobs {
		if j.Status.Done() && j.ID != r.latest {
			done = append(done, j)
		}
	}
	if len(done) <= keepFinished {
		return
	}
	sort.Slice(done, func(i, k int) bool { return done[i].CreatedAt.Before(done[k].CreatedAt) })
	for _, j := range done[:len(done)-keepFinished] {
		delete(r.jobs, j.ID)
	}
}

func snapshot(j *Job) Job {
	c := *j
	c.Log = append([]string(nil), j.Log...)
	if c.Log == nil {
		c.Log = []string{}
	}
	return c
}
