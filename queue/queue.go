package queue

import (
	"container/list"

	"github.com/xraph/bridge"
	"github.com/xraph/bridge/id"
	"github.com/xraph/bridge/job"
)

// Queue is a bounded FIFO of queued jobs with O(1) removal by ID.
type Queue struct {
	capacity int
	policy   bridge.OverflowPolicy
	items    *list.List
	index    map[id.JobID]*list.Element
}

// New creates a Queue. Capacity values below 1 are raised to 1.
func New(capacity int, policy bridge.OverflowPolicy) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		capacity: capacity,
		policy:   policy,
		items:    list.New(),
		index:    make(map[id.JobID]*list.Element, capacity),
	}
}

// Push appends j at the tail. When the queue is full it returns
// bridge.ErrQueueFull under the block and reject policies; under
// drop_oldest it evicts and returns the head job and then appends j.
func (q *Queue) Push(j *job.Job) (evicted *job.Job, err error) {
	if q.items.Len() >= q.capacity {
		if q.policy != bridge.OverflowDropOldest {
			return nil, bridge.ErrQueueFull
		}
		evicted = q.Pop()
	}
	q.index[j.ID] = q.items.PushBack(j)
	return evicted, nil
}

// Pop removes and returns the head job, or nil when the queue is empty.
func (q *Queue) Pop() *job.Job {
	front := q.items.Front()
	if front == nil {
		return nil
	}
	j := q.items.Remove(front).(*job.Job)
	delete(q.index, j.ID)
	return j
}

// Remove takes the job with the given ID out of the queue.
func (q *Queue) Remove(jobID id.JobID) (*job.Job, bool) {
	el, ok := q.index[jobID]
	if !ok {
		return nil, false
	}
	delete(q.index, jobID)
	return q.items.Remove(el).(*job.Job), true
}

// Contains reports whether a job with the given ID is queued.
func (q *Queue) Contains(jobID id.JobID) bool {
	_, ok := q.index[jobID]
	return ok
}

// Drain removes and returns every queued job in FIFO order.
func (q *Queue) Drain() []*job.Job {
	out := make([]*job.Job, 0, q.items.Len())
	for j := q.Pop(); j != nil; j = q.Pop() {
		out = append(out, j)
	}
	return out
}

// Len returns the number of queued jobs.
func (q *Queue) Len() int { return q.items.Len() }

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return q.capacity }

// Full reports whether the queue is at capacity.
func (q *Queue) Full() bool { return q.items.Len() >= q.capacity }

// Policy returns the overflow policy.
func (q *Queue) Policy() bridge.OverflowPolicy { return q.policy }
