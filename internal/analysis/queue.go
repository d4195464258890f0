package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/hoa-scout/internal/hoa"
	"github.com/yourorg/hoa-scout/internal/metrics"
	"go.uber.org/zap"
)

var (
	ErrQueueFull = errors.New("analysis queue is full")
	ErrClosed    = errors.New("analysis queue is closed")
)

type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Task is a snapshot of one submitted analysis.
type Task struct {
	ID          string     `json:"id"`
	HOAID       string     `json:"hoaId"`
	State       State      `json:"state"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submittedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

type Config struct {
	Capacity int
	Workers  int
	Timeout  time.Duration
	// Retention bounds how many finished tasks stay queryable.
	Retention int
}

// Queue runs analyses on a fixed pool of workers. An HOA has at most one
// queued or running task at a time.
type Queue struct {
	ch       chan string
	analyzer Analyzer
	timeout  time.Duration
	keep     int
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	mu       sync.Mutex
	closed   bool
	tasks    map[string]*Task
	inFlight map[string]string // hoa id -> task id
	finished []string
	wg       sync.WaitGroup
}

func New(cfg Config, a Analyzer, log *zap.Logger, m *metrics.Metrics) *Queue {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 1024
	}
	if log == nil {
		log = zap.NewNop()
	}
	q := &Queue{
		ch:       make(chan string, cfg.Capacity),
		analyzer: a,
		timeout:  cfg.Timeout,
		keep:     cfg.Retention,
		log:      log,
		metrics:  m,
		now:      time.Now,
		tasks:    make(map[string]*Task),
		inFlight: make(map[string]string),
	}
	q.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go q.worker()
	}
	return q
}

// Submit queues an analysis for hoaID and returns immediately. Submitting an
// HOA that is already queued or running returns the existing task.
func (q *Queue) Submit(hoaID string) (Task, error) {
	hoaID = strings.TrimSpace(hoaID)
	if hoaID == "" {
		return Task{}, &hoa.ValidationError{Field: "id", Message: "hoa id is required"}
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return Task{}, ErrClosed
	}
	if id, ok := q.inFlight[hoaID]; ok {
		return *q.tasks[id], nil
	}
	t := &Task{ID: uuid.NewString(), HOAID: hoaID, State: StateQueued, SubmittedAt: q.now().UTC()}
	select {
	case q.ch <- t.ID:
	default:
		return Task{}, ErrQueueFull
	}
	q.tasks[t.ID] = t
	q.inFlight[hoaID] = t.ID
	if q.metrics != nil {
		q.metrics.AnalysisQueue.Inc()
	}
	return *t, nil
}

func (q *Queue) Task(id string) (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// Close stops accepting tasks and waits for queued ones to finish or ctx to end.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for id := range q.ch {
		q.run(id)
	}
}

func (q *Queue) run(id string) {
	q.mu.Lock()
	t := q.tasks[id]
	t.State = StateRunning
	hoaID := t.HOAID
	q.mu.Unlock()
	if q.metrics != nil {
		q.metrics.AnalysisQueue.Dec()
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	err := q.analyze(ctx, hoaID)
	cancel()

	state := StateSucceeded
	if err != nil {
		state = StateFailed
		q.log.Error("analysis failed", zap.String("task_id", id), zap.String("hoa_id", hoaID), zap.Error(err))
	} else {
		q.log.Info("analysis finished", zap.String("task_id", id), zap.String("hoa_id", hoaID))
	}
	if q.metrics != nil {
		q.metrics.AnalysisTasks.WithLabelValues(string(state)).Inc()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	at := q.now().UTC()
	t.State = state
	t.FinishedAt = &at
	if err != nil {
		t.Error = err.Error()
	}
	delete(q.inFlight, hoaID)
	q.finished = append(q.finished, id)
	for len(q.finished) > q.keep {
		delete(q.tasks, q.finished[0])
		q.finished = q.finished[1:]
	}
}

func (q *Queue) analyze(ctx context.Context, hoaID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analysis panicked: %v", r)
		}
	}()
	if q.analyzer == nil {
		return errors.New("no analyzer configured")
	}
	return q.analyzer.Analyze(ctx, hoaID)
}
