package yure

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func fixedTracer(size int) *TransitionTracer {
	tracer := NewTransitionTracer(size)
	tracer.now = func() time.Time {
		return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	}
	return tracer
}

func TestTransitionTracer_Log(t *testing.T) {
	tracer := fixedTracer(4)
	tracer.Log("from", "connecting", "to")

	traces := tracer.Traces()
	if len(traces) != 1 {
		t.Fatalf("expected 1 trace, but got %d", len(traces))
	}
	expected := "ts=2024-01-02T03:04:05Z from=connecting to="
	if traces[0] != expected {
		t.Fatalf("expected %q, but got %q", expected, traces[0])
	}

	tracer.Log()
	if len(tracer.Traces()) != 1 {
		t.Fatalf("empty log must not be recorded")
	}
}

func TestTransitionTracer_Bounded(t *testing.T) {
	tracer := fixedTracer(3)
	for _, to := range []string{"a", "b", "c", "d", "e"} {
		tracer.Log("to", to)
	}

	traces := tracer.Traces()
	if len(traces) != 3 {
		t.Fatalf("expected 3 traces, but got %d", len(traces))
	}
	for i, to := range []string{"c", "d", "e"} {
		if !strings.HasSuffix(traces[i], "to="+to) {
			t.Fatalf("trace %d: expected to=%s, but got %q", i, to, traces[i])
		}
	}
}

func TestTransitionTracer_Observe(t *testing.T) {
	tracer := fixedTracer(4)
	tracer.Observe(StateEvent{From: Connecting, To: Reconnecting, Err: errors.New("refused")})
	tracer.Observe(StateEvent{From: Reconnecting, To: Stopped})

	traces := tracer.Traces()
	if !strings.HasSuffix(traces[0], "from=connecting to=reconnecting err=refused") {
		t.Fatalf("unexpected trace %q", traces[0])
	}
	if !strings.HasSuffix(traces[1], "from=reconnecting to=stopped") {
		t.Fatalf("unexpected trace %q", traces[1])
	}

	// never panics without output configured
	tracer.Trace()
}
