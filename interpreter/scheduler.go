package interpreter

import (
	"context"
	"sync"
	"time"

	"github.com/emirpasic/gods/queues/priorityqueue"

	"github.com/example/protolink/common"
	"github.com/example/protolink/runtime"
)

// TimerID identifies a deferred invocation.
type TimerID uint64

// Outcome is what a deferred invocation produced when it ran.
type Outcome struct {
	ID    TimerID
	At    time.Duration
	Value *runtime.Value
	Err   error
}

type timer struct {
	id   TimerID
	due  time.Duration
	seq  uint64
	run  common.Executor
	into *Outcome
}

func byDueThenSeq(a, b interface{}) int {
	ta, tb := a.(*timer), b.(*timer)
	switch {
	case ta.due < tb.due:
		return -1
	case ta.due > tb.due:
		return 1
	case ta.seq < tb.seq:
		return -1
	case ta.seq > tb.seq:
		return 1
	}
	return 0
}

// Scheduler is a virtual-clock delay queue of deferred invocations. The
// context of each invocation is resolved when it is deferred, so a
// hard-bound function keeps its binding however the call site changes.
type Scheduler struct {
	interp *Interpreter

	mu        sync.Mutex
	queue     *priorityqueue.Queue
	now       time.Duration
	seq       uint64
	cancelled map[TimerID]bool
}

// NewScheduler returns an empty scheduler at time zero.
func NewScheduler(interp *Interpreter) *Scheduler {
	return &Scheduler{
		interp:    interp,
		queue:     priorityqueue.NewWith(byDueThenSeq),
		cancelled: make(map[TimerID]bool),
	}
}

// Now returns the scheduler's virtual time.
func (s *Scheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Pending returns the number of queued invocations that were not cancelled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Size() - len(s.cancelled)
}

// Defer resolves fn's context for site now and queues the invocation to
// run delay after the current virtual time.
func (s *Scheduler) Defer(fn *runtime.Function, site CallSite, delay time.Duration) (TimerID, error) {
	b, err := s.interp.Resolve(fn, site)
	if err != nil {
		return 0, err
	}
	args := site.Args
	out := &Outcome{}
	return s.enqueue(delay, out, func(ctx context.Context) error {
		v, err := s.interp.invoke(fn, b, args)
		out.Value = v
		return err
	}), nil
}

// Schedule queues an arbitrary thunk.
func (s *Scheduler) Schedule(run common.Executor, delay time.Duration) TimerID {
	return s.enqueue(delay, &Outcome{}, run)
}

func (s *Scheduler) enqueue(delay time.Duration, out *Outcome, run common.Executor) TimerID {
	if delay < 0 {
		delay = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &timer{
		id:   TimerID(s.seq),
		due:  s.now + delay,
		seq:  s.seq,
		run:  run,
		into: out,
	}
	s.queue.Enqueue(t)
	return t.id
}

// Cancel drops a pending invocation. It reports false if id already ran
// or was cancelled before.
func (s *Scheduler) Cancel(id TimerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled[id] {
		return false
	}
	for _, v := range s.queue.Values() {
		if v.(*timer).id == id {
			s.cancelled[id] = true
			return true
		}
	}
	return false
}

// Advance moves virtual time forward by d and runs everything that falls
// due, in due order. Thunks run without the scheduler lock held.
func (s *Scheduler) Advance(ctx context.Context, d time.Duration) ([]Outcome, error) {
	s.mu.Lock()
	until := s.now + d
	s.mu.Unlock()
	outcomes, err := s.runUntil(ctx, func(t *timer) bool { return t.due <= until })
	if err != nil {
		return outcomes, err
	}
	s.mu.Lock()
	if s.now < until {
		s.now = until
	}
	s.mu.Unlock()
	return outcomes, nil
}

// Drain runs every queued invocation, advancing time as needed.
func (s *Scheduler) Drain(ctx context.Context) ([]Outcome, error) {
	return s.runUntil(ctx, func(*timer) bool { return true })
}

func (s *Scheduler) runUntil(ctx context.Context, due func(*timer) bool) ([]Outcome, error) {
	logger := common.Logger(ctx)
	var outcomes []Outcome
	for {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		t, ok := s.next(due)
		if !ok {
			return outcomes, nil
		}
		t.into.ID = t.id
		t.into.At = t.due
		t.into.Err = t.run(ctx)
		if t.into.Err != nil {
			logger.WithField("timer", t.id).Debugf("deferred invocation failed: %v", t.into.Err)
		}
		outcomes = append(outcomes, *t.into)
	}
}

// next pops the earliest live timer accepted by due.
func (s *Scheduler) next(due func(*timer) bool) (*timer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		head, ok := s.queue.Peek()
		if !ok {
			return nil, false
		}
		t := head.(*timer)
		if !due(t) {
			return nil, false
		}
		s.queue.Dequeue()
		if s.cancelled[t.id] {
			delete(s.cancelled, t.id)
			continue
		}
		if t.due > s.now {
			s.now = t.due
		}
		return t, true
	}
}
