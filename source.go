package yure

import (
	"context"
	"sync"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// Sensor produces raw 3-axis samples. Run calls emit for every sample
// until ctx is cancelled. An error means the sensor is unavailable.
type Sensor interface {
	Run(ctx context.Context, emit func(x, y, z float64)) error
}

// ReadingHandler receives stamped readings. It runs on the sensor
// goroutine and must not block.
type ReadingHandler func(reading Reading)

// Source delivers readings to a single registered handler.
type Source interface {
	Register(handler ReadingHandler)
	Unregister()
}

// SourceAdapter stamps raw sensor samples with the arrival time and the
// device identifier. The sensor runs only while a handler is registered;
// samples arriving without a handler are dropped.
type SourceAdapter struct {
	sensor     Sensor
	identifier string
	now        func() time.Time
	logger     kitlog.Logger

	lock    sync.RWMutex
	handler ReadingHandler
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewSourceAdapter(sensor Sensor, identifier string, logger kitlog.Logger) *SourceAdapter {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &SourceAdapter{
		sensor:     sensor,
		identifier: identifier,
		now:        time.Now,
		logger:     logger,
	}
}

// Register replaces the handler and starts the sensor if it is not
// running yet.
func (a *SourceAdapter) Register(handler ReadingHandler) {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.handler = handler
	if a.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.run(ctx, a.done)
}

// Unregister removes the handler and stops the sensor. It waits for the
// sensor goroutine to return.
func (a *SourceAdapter) Unregister() {
	a.lock.Lock()
	a.handler = nil
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.lock.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Deliver stamps one raw sample and forwards it.
func (a *SourceAdapter) Deliver(x, y, z float64) {
	a.lock.RLock()
	handler := a.handler
	a.lock.RUnlock()

	if handler == nil {
		return
	}
	handler(Reading{
		YureID:    a.identifier,
		X:         x,
		Y:         y,
		Z:         z,
		Timestamp: a.now().UnixNano() / int64(time.Millisecond),
	})
}

func (a *SourceAdapter) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	err := a.sensor.Run(ctx, a.Deliver)
	if err != nil && ctx.Err() == nil {
		// stays registered but idle
		level.Warn(a.logger).Log("msg", "sensor unavailable", "err", err)
	}
}
