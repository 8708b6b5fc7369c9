// Package queue serialises work per key. The router uses one lane per
// conversation so two messages from the same prospect never run at once.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrEmptyLaneID is returned when Do is called with an empty lane ID.
var ErrEmptyLaneID = errors.New("queue: lane ID must not be empty")

// workItem is a unit of work submitted to a lane.
type workItem struct {
	ctx  context.Context
	fn   func() error
	done chan error
}

// lane processes work items sequentially via a single goroutine. pending
// counts submitted items that have not finished and is guarded by the
// owning LaneQueue's mutex.
type lane struct {
	work    chan workItem
	pending int
}

// safeExec runs fn and recovers from panics, converting them to errors.
func safeExec(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("queue: panic: %v", r)
		}
	}()
	return fn()
}

// defaultLaneBufferSize is the capacity of each lane's work channel.
// Tests in this package may override it to exercise full-buffer paths.
var defaultLaneBufferSize = 64

// LaneQueue serializes work per lane. Different lanes execute concurrently,
// but work within the same lane is processed in FIFO order. A lane's worker
// goroutine exits once the lane has no pending work, so idle conversations
// hold no resources.
type LaneQueue struct {
	mu    sync.Mutex
	lanes map[string]*lane
}

// NewLaneQueue creates a new LaneQueue ready for use.
func NewLaneQueue() *LaneQueue {
	return &LaneQueue{
		lanes: make(map[string]*lane),
	}
}

// Do executes fn serially within the given lane. It blocks until the work
// completes or the context is cancelled. Returns the error from fn, or
// ctx.Err() if the context is cancelled while waiting.
func (q *LaneQueue) Do(ctx context.Context, laneID string, fn func() error) error {
	if laneID == "" {
		return ErrEmptyLaneID
	}

	l := q.acquire(laneID)
	item := workItem{
		ctx:  ctx,
		fn:   fn,
		done: make(chan error, 1),
	}

	select {
	case l.work <- item:
	case <-ctx.Done():
		q.abandon(laneID, l)
		return ctx.Err()
	}

	select {
	case err := <-item.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// acquire returns the lane for laneID with one more pending item, starting
// its worker if the lane is new.
func (q *LaneQueue) acquire(laneID string) *lane {
	q.mu.Lock()
	defer q.mu.Unlock()
	l, ok := q.lanes[laneID]
	if !ok {
		l = &lane{work: make(chan workItem, defaultLaneBufferSize)}
		q.lanes[laneID] = l
		go q.run(laneID, l)
	}
	l.pending++
	return l
}

// abandon drops a pending item that was never submitted. When it was the
// last one the idle worker is stopped.
func (q *LaneQueue) abandon(laneID string, l *lane) {
	q.mu.Lock()
	defer q.mu.Unlock()
	l.pending--
	if l.pending == 0 {
		delete(q.lanes, laneID)
		close(l.work)
	}
}

// run is the lane's worker loop. It processes items in FIFO order and exits
// when the lane drains.
func (q *LaneQueue) run(laneID string, l *lane) {
	for item := range l.work {
		if item.ctx.Err() != nil {
			item.done <- item.ctx.Err()
		} else {
			item.done <- safeExec(item.fn)
		}

		q.mu.Lock()
		l.pending--
		if l.pending == 0 {
			delete(q.lanes, laneID)
			q.mu.Unlock()
			return
		}
		q.mu.Unlock()
	}
}

// LaneCount returns the number of lanes with pending work.
func (q *LaneQueue) LaneCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lanes)
}
