package mock

import (
	"sync"
	"time"

	"github.com/sasakulab/yure"
)

// Scheduler keeps scheduled calls until the test fires them.
type Scheduler struct {
	lock    sync.Mutex
	pending []*Timer
	// Scheduled receives the delay of every AfterFunc call
	Scheduled chan time.Duration
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		Scheduled: make(chan time.Duration, 100),
	}
}

type Timer struct {
	Delay time.Duration

	lock    sync.Mutex
	f       func()
	stopped bool
	fired   bool
}

func (t *Timer) Stop() bool {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (t *Timer) Stopped() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.stopped
}

func (s *Scheduler) AfterFunc(d time.Duration, f func()) yure.Timer {
	t := &Timer{Delay: d, f: f}

	s.lock.Lock()
	s.pending = append(s.pending, t)
	s.lock.Unlock()

	s.Scheduled <- d
	return t
}

// Fire runs every pending call which was not stopped and reports how
// many ran.
func (s *Scheduler) Fire() int {
	s.lock.Lock()
	pending := s.pending
	s.pending = nil
	s.lock.Unlock()

	fired := 0
	for _, t := range pending {
		t.lock.Lock()
		run := !t.stopped && !t.fired
		t.fired = true
		t.lock.Unlock()

		if run {
			t.f()
			fired++
		}
	}
	return fired
}

// Pending returns the calls not fired yet.
func (s *Scheduler) Pending() []*Timer {
	s.lock.Lock()
	defer s.lock.Unlock()

	out := make([]*Timer, len(s.pending))
	copy(out, s.pending)
	return out
}
