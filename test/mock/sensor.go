package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/sasakulab/yure"
)

type Sample struct {
	X, Y, Z float64
}

// Sensor emits whatever is written to SampleChan while it runs.
type Sensor struct {
	SampleChan chan Sample
	// Err makes Run fail right away, like an absent device
	Err error

	lock sync.Mutex
	runs int
	// StartedChan receives once per Run
	StartedChan chan struct{}
}

func NewSensor() *Sensor {
	return &Sensor{
		SampleChan:  make(chan Sample),
		StartedChan: make(chan struct{}, 10),
	}
}

var ErrSensorUnavailable = errors.New("mock sensor unavailable")

func (s *Sensor) Run(ctx context.Context, emit func(x, y, z float64)) error {
	s.lock.Lock()
	s.runs++
	s.lock.Unlock()
	s.StartedChan <- struct{}{}

	if s.Err != nil {
		return s.Err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case sample := <-s.SampleChan:
			emit(sample.X, sample.Y, sample.Z)
		}
	}
}

func (s *Sensor) Runs() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.runs
}

// Source is a yure.Source driven by the test through Emit.
type Source struct {
	lock        sync.Mutex
	handler     yure.ReadingHandler
	registers   int
	unregisters int
}

func (s *Source) Register(handler yure.ReadingHandler) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.handler = handler
	s.registers++
}

func (s *Source) Unregister() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.handler = nil
	s.unregisters++
}

// Emit delivers r to the registered handler and reports whether there
// was one.
func (s *Source) Emit(r yure.Reading) bool {
	s.lock.Lock()
	handler := s.handler
	s.lock.Unlock()

	if handler == nil {
		return false
	}
	handler(r)
	return true
}

func (s *Source) Registers() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.registers
}

func (s *Source) Unregisters() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.unregisters
}
