package yure

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/DE-labtory/iLogger"
)

const DefaultTraceSize = 64

// TransitionTracer remembers the most recent client state transitions.
// Its Observe method is a StateListener.
type TransitionTracer struct {
	lock      sync.RWMutex
	size      int
	now       func() time.Time
	traceList []string
}

func NewTransitionTracer(size int) *TransitionTracer {
	if size <= 0 {
		size = DefaultTraceSize
	}
	return &TransitionTracer{
		size:      size,
		now:       time.Now,
		traceList: make([]string, 0, size),
	}
}

// Log records one trace line built from key/value pairs.
func (t *TransitionTracer) Log(keyvals ...string) {
	if len(keyvals) == 0 {
		return
	}
	if len(keyvals)%2 == 1 {
		keyvals = append(keyvals, "")
	}

	kvs := make([]string, 0, len(keyvals)/2+1)
	kvs = append(kvs, fmt.Sprintf("ts=%s", t.now().UTC().Format(time.RFC3339Nano)))
	for i := 0; i < len(keyvals); i += 2 {
		kvs = append(kvs, fmt.Sprintf("%s=%s", keyvals[i], keyvals[i+1]))
	}
	trace := strings.Join(kvs, " ")

	t.lock.Lock()
	defer t.lock.Unlock()
	if len(t.traceList) == t.size {
		copy(t.traceList, t.traceList[1:])
		t.traceList = t.traceList[:t.size-1]
	}
	t.traceList = append(t.traceList, trace)
}

func (t *TransitionTracer) Observe(event StateEvent) {
	if event.Err != nil {
		t.Log("from", event.From.String(), "to", event.To.String(), "err", event.Err.Error())
		return
	}
	t.Log("from", event.From.String(), "to", event.To.String())
}

// Traces returns the recorded lines, oldest first.
func (t *TransitionTracer) Traces() []string {
	t.lock.RLock()
	defer t.lock.RUnlock()

	out := make([]string, len(t.traceList))
	copy(out, t.traceList)
	return out
}

// Trace writes every recorded line to the log.
func (t *TransitionTracer) Trace() {
	for _, trace := range t.Traces() {
		iLogger.Info(nil, trace)
	}
}
