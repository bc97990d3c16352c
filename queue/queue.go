// Package queue implements the training task state machine:
// Pending -> Claimed -> Submitted, with lazy expiry and release. It is
// the only shared mutable state between concurrent workers.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/ccoin-network/pouw/gradient"
	"github.com/ccoin-network/pouw/pkg/errors"
	"github.com/ccoin-network/pouw/task"
)

// Queue owns the canonical Pending/Claimed/Submitted sets. Claim,
// Submit and Release are atomic per task id: exactly one caller wins a
// claim race and the losers observe ErrNotFound.
type Queue struct {
	mu sync.Mutex

	pending   map[string]task.Task
	claimed   map[string]task.Task
	submitted map[string]task.Task
	expired   uint64
}

func New() *Queue {
	return &Queue{
		pending:   make(map[string]task.Task),
		claimed:   make(map[string]task.Task),
		submitted: make(map[string]task.Task),
	}
}

// Add places a new task into the pending set.
func (q *Queue) Add(_ context.Context, t task.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.pending[t.ID]; ok {
		return errors.ErrEntityExists
	}
	if _, ok := q.claimed[t.ID]; ok {
		return errors.ErrEntityExists
	}
	if _, ok := q.submitted[t.ID]; ok {
		return errors.ErrEntityExists
	}

	t.State = task.Pending
	q.pending[t.ID] = t

	return nil
}

// FetchPending returns every pending task whose deadline has not
// passed. Expired tasks are evicted on the way.
func (q *Queue) FetchPending(_ context.Context) []task.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.evict(time.Now())

	tasks := make([]task.Task, 0, len(q.pending))
	for _, t := range q.pending {
		tasks = append(tasks, t)
	}

	return tasks
}

// Claim atomically moves a pending task to the claimed set. Unknown,
// already claimed and expired tasks are indistinguishable: all return
// ErrNotFound.
func (q *Queue) Claim(_ context.Context, taskID string) (task.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.evict(time.Now())

	t, ok := q.pending[taskID]
	if !ok {
		return task.Task{}, errors.ErrNotFound
	}

	delete(q.pending, taskID)
	t.State = task.Claimed
	t.UpdatedAt = time.Now()
	q.claimed[taskID] = t

	return t, nil
}

// Submit accepts a result for a currently claimed task and retires the
// task. Submitting without an active claim, or a second time, fails
// with ErrInvalidState.
func (q *Queue) Submit(_ context.Context, result gradient.ComputeResult) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.evict(time.Now())

	t, ok := q.claimed[result.TaskID]
	if !ok {
		return errors.ErrInvalidState
	}

	delete(q.claimed, result.TaskID)
	t.State = task.Submitted
	t.UpdatedAt = time.Now()
	q.submitted[result.TaskID] = t

	return nil
}

// Release returns a claimed task to the pending set, or drops it when
// the deadline has already passed.
func (q *Queue) Release(_ context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.claimed[taskID]
	if !ok {
		return errors.ErrNotFound
	}

	delete(q.claimed, taskID)
	if t.ExpiredAt(time.Now()) {
		q.expired++

		return nil
	}

	t.State = task.Pending
	t.UpdatedAt = time.Now()
	q.pending[taskID] = t

	return nil
}

// Get looks a task up in any live set, including submitted tasks, so
// results can be verified after submission.
func (q *Queue) Get(_ context.Context, taskID string) (task.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.evict(time.Now())

	if t, ok := q.pending[taskID]; ok {
		return t, nil
	}
	if t, ok := q.claimed[taskID]; ok {
		return t, nil
	}
	if t, ok := q.submitted[taskID]; ok {
		return t, nil
	}

	return task.Task{}, errors.ErrNotFound
}

// Stats is a snapshot of the queue counters.
type Stats struct {
	Pending   int    `json:"pending"`
	Claimed   int    `json:"claimed"`
	Submitted int    `json:"submitted"`
	Expired   uint64 `json:"expired"`
}

func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.evict(time.Now())

	return Stats{
		Pending:   len(q.pending),
		Claimed:   len(q.claimed),
		Submitted: len(q.submitted),
		Expired:   q.expired,
	}
}

// evict drops pending and claimed tasks past their deadline. Callers
// hold the mutex.
func (q *Queue) evict(now time.Time) {
	for id, t := range q.pending {
		if t.ExpiredAt(now) {
			delete(q.pending, id)
			q.expired++
		}
	}
	for id, t := range q.claimed {
		if t.ExpiredAt(now) {
			delete(q.claimed, id)
			q.expired++
		}
	}
}
