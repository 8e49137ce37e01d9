package yure_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sasakulab/yure"
	"github.com/sasakulab/yure/test/mock"
)

const testURL = "ws://localhost:8765/ws"

var errDialRefused = errors.New("connection refused")

type eventRecorder struct {
	lock   sync.Mutex
	events []yure.StateEvent
}

func (r *eventRecorder) listen(event yure.StateEvent) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) recorded() []yure.StateEvent {
	r.lock.Lock()
	defer r.lock.Unlock()
	out := make([]yure.StateEvent, len(r.events))
	copy(out, r.events)
	return out
}

type clientFixture struct {
	client    *yure.Client
	dialer    *mock.Dialer
	scheduler *mock.Scheduler
	recorder  *eventRecorder
}

func newClientFixture(opts ...yure.ClientOption) *clientFixture {
	f := &clientFixture{
		dialer:    mock.NewDialer(),
		scheduler: mock.NewScheduler(),
		recorder:  &eventRecorder{},
	}
	opts = append([]yure.ClientOption{
		yure.WithDialer(f.dialer),
		yure.WithScheduler(f.scheduler),
		yure.WithBackoff(yure.BackoffPolicy{Min: time.Second, Max: 4 * time.Second}),
		yure.WithStateListener(f.recorder.listen),
	}, opts...)
	f.client = yure.NewClient(testURL, opts...)
	return f
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitState(t *testing.T, c *yure.Client, state yure.ConnectionState) {
	t.Helper()
	waitFor(t, state.String(), func() bool { return c.State() == state })
}

func expectDial(t *testing.T, d *mock.Dialer) {
	t.Helper()
	select {
	case url := <-d.DialChan:
		if url != testURL {
			t.Fatalf("expected dial of %s, but got %s", testURL, url)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for dial")
	}
}

func expectScheduled(t *testing.T, s *mock.Scheduler, delay time.Duration) {
	t.Helper()
	select {
	case d := <-s.Scheduled:
		if d != delay {
			t.Fatalf("expected reconnect after %s, but got %s", delay, d)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for reconnect to be scheduled")
	}
}

func testBatch(timestamps ...int64) []yure.Reading {
	batch := make([]yure.Reading, len(timestamps))
	for i, ts := range timestamps {
		batch[i] = yure.Reading{YureID: "YUREyureYUR", X: 0.5, Y: -0.5, Z: 9.8, Timestamp: ts}
	}
	return batch
}

func (f *clientFixture) connect(t *testing.T) *mock.Socket {
	t.Helper()
	socket := mock.NewSocket()
	f.dialer.Succeed(socket)
	f.client.Start()
	expectDial(t, f.dialer)
	waitState(t, f.client, yure.Connected)
	return socket
}

func TestClient_SendWhileDisconnected(t *testing.T) {
	f := newClientFixture()

	if f.client.State() != yure.Disconnected {
		t.Fatalf("expected disconnected, but got %s", f.client.State())
	}
	if f.client.Send(testBatch(1)) {
		t.Fatalf("expected batch to be discarded")
	}
	if f.client.Dropped() != 1 {
		t.Fatalf("expected 1 dropped batch, but got %d", f.client.Dropped())
	}
	if f.client.State() != yure.Disconnected {
		t.Fatalf("send must not change the state, but got %s", f.client.State())
	}
}

func TestClient_ConnectAndSend(t *testing.T) {
	f := newClientFixture()
	socket := f.connect(t)

	if !f.client.Send(testBatch(3, 2, 1)) {
		t.Fatalf("expected batch to be accepted")
	}

	select {
	case data := <-socket.SentChan:
		batch, err := yure.DecodeBatch(data)
		if err != nil {
			t.Fatal(err)
		}
		if len(batch) != 3 || batch[0].Timestamp != 3 || batch[2].Timestamp != 1 {
			t.Fatalf("unexpected batch on the wire: %+v", batch)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for batch")
	}

	waitFor(t, "sent counter", func() bool { return f.client.Sent() == 1 })

	events := f.recorder.recorded()
	if len(events) != 2 {
		t.Fatalf("expected 2 transitions, but got %v", events)
	}
	if events[0].From != yure.Disconnected || events[0].To != yure.Connecting {
		t.Fatalf("unexpected first transition %s -> %s", events[0].From, events[0].To)
	}
	if events[1].From != yure.Connecting || events[1].To != yure.Connected {
		t.Fatalf("unexpected second transition %s -> %s", events[1].From, events[1].To)
	}
}

func TestClient_StartIsNoopUnlessDisconnected(t *testing.T) {
	f := newClientFixture()
	f.connect(t)

	f.client.Start()

	select {
	case <-f.dialer.DialChan:
		t.Fatalf("unexpected second dial")
	case <-time.After(20 * time.Millisecond):
	}
	if f.client.State() != yure.Connected {
		t.Fatalf("expected connected, but got %s", f.client.State())
	}
}

func TestClient_ReconnectBackoff(t *testing.T) {
	f := newClientFixture()

	f.dialer.Fail(errDialRefused)
	f.client.Start()
	expectDial(t, f.dialer)
	expectScheduled(t, f.scheduler, time.Second)
	waitState(t, f.client, yure.Reconnecting)

	for _, delay := range []time.Duration{2 * time.Second, 4 * time.Second, 4 * time.Second} {
		f.dialer.Fail(errDialRefused)
		if n := f.scheduler.Fire(); n != 1 {
			t.Fatalf("expected 1 reconnect to fire, but got %d", n)
		}
		expectDial(t, f.dialer)
		expectScheduled(t, f.scheduler, delay)
	}

	// a successful dial resets the delay
	socket := mock.NewSocket()
	f.dialer.Succeed(socket)
	f.scheduler.Fire()
	expectDial(t, f.dialer)
	waitState(t, f.client, yure.Connected)

	socket.Fail(errors.New("peer went away"))
	expectScheduled(t, f.scheduler, time.Second)
	waitState(t, f.client, yure.Reconnecting)

	for _, e := range f.recorder.recorded() {
		if !yure.CanTransition(e.From, e.To) {
			t.Fatalf("illegal transition recorded: %s -> %s", e.From, e.To)
		}
	}
}

func TestClient_DialFailureCarriesCause(t *testing.T) {
	f := newClientFixture()

	f.dialer.Fail(errDialRefused)
	f.client.Start()
	expectScheduled(t, f.scheduler, time.Second)

	events := f.recorder.recorded()
	last := events[len(events)-1]
	if last.To != yure.Reconnecting || last.Err != errDialRefused {
		t.Fatalf("expected reconnecting caused by %s, but got %+v", errDialRefused, last)
	}
}

func TestClient_StopCancelsInFlightDial(t *testing.T) {
	f := newClientFixture()

	// no dial result queued, so the attempt hangs until cancelled
	f.client.Start()
	expectDial(t, f.dialer)

	f.client.Stop()
	if f.client.State() != yure.Stopped {
		t.Fatalf("expected stopped, but got %s", f.client.State())
	}

	// the late result of the abandoned attempt is ignored
	time.Sleep(20 * time.Millisecond)
	if f.client.State() != yure.Stopped {
		t.Fatalf("expected stopped, but got %s", f.client.State())
	}
	if len(f.scheduler.Pending()) != 0 {
		t.Fatalf("no reconnect expected after stop")
	}
}

func TestClient_StopCancelsPendingReconnect(t *testing.T) {
	f := newClientFixture()

	f.dialer.Fail(errDialRefused)
	f.client.Start()
	expectScheduled(t, f.scheduler, time.Second)
	waitState(t, f.client, yure.Reconnecting)

	f.client.Stop()

	pending := f.scheduler.Pending()
	if len(pending) != 1 || !pending[0].Stopped() {
		t.Fatalf("expected the pending reconnect to be stopped")
	}
	if n := f.scheduler.Fire(); n != 0 {
		t.Fatalf("expected no reconnect to fire, but got %d", n)
	}

	select {
	case <-f.dialer.DialChan:
		t.Fatalf("unexpected dial after stop")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestClient_StopClosesSocket(t *testing.T) {
	f := newClientFixture()
	socket := f.connect(t)

	f.client.Stop()

	select {
	case <-socket.CloseChan:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for socket close")
	}
	if f.client.Send(testBatch(1)) {
		t.Fatalf("expected batch to be discarded after stop")
	}
}

func TestClient_StoppedIsTerminal(t *testing.T) {
	f := newClientFixture()
	f.client.Stop()
	f.client.Start()
	f.client.Stop()

	if f.client.State() != yure.Stopped {
		t.Fatalf("expected stopped, but got %s", f.client.State())
	}
	select {
	case <-f.dialer.DialChan:
		t.Fatalf("stopped client must not dial")
	case <-time.After(20 * time.Millisecond):
	}

	events := f.recorder.recorded()
	if len(events) != 1 || events[0].To != yure.Stopped {
		t.Fatalf("expected a single transition to stopped, but got %v", events)
	}
}

func TestClient_QueueFullDrops(t *testing.T) {
	entered := make(chan struct{}, 10)
	release := make(chan struct{})
	encoder := func(batch []yure.Reading) ([]byte, error) {
		entered <- struct{}{}
		<-release
		return yure.EncodeBatch(batch)
	}

	f := newClientFixture(yure.WithQueueSize(1), yure.WithEncoder(encoder))
	socket := f.connect(t)

	if !f.client.Send(testBatch(1)) {
		t.Fatalf("expected first batch to be accepted")
	}
	<-entered

	if !f.client.Send(testBatch(2)) {
		t.Fatalf("expected second batch to be queued")
	}
	if f.client.Send(testBatch(3)) {
		t.Fatalf("expected third batch to be dropped")
	}
	if f.client.Dropped() != 1 {
		t.Fatalf("expected 1 dropped batch, but got %d", f.client.Dropped())
	}

	close(release)
	for i := 0; i < 2; i++ {
		select {
		case <-socket.SentChan:
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for batch %d", i)
		}
	}
}

func TestClient_EncodeErrorKeepsConnection(t *testing.T) {
	encoder := func(batch []yure.Reading) ([]byte, error) {
		return nil, errors.New("cannot encode")
	}
	f := newClientFixture(yure.WithEncoder(encoder))
	f.connect(t)

	f.client.Send(testBatch(1))
	waitFor(t, "dropped counter", func() bool { return f.client.Dropped() == 1 })

	if f.client.State() != yure.Connected {
		t.Fatalf("expected connected, but got %s", f.client.State())
	}
}

func TestClient_SendErrorReconnects(t *testing.T) {
	f := newClientFixture()
	socket := mock.NewSocket()
	socket.SendErr = errors.New("broken pipe")
	f.dialer.Succeed(socket)
	f.client.Start()
	waitState(t, f.client, yure.Connected)

	f.client.Send(testBatch(1))

	expectScheduled(t, f.scheduler, time.Second)
	waitState(t, f.client, yure.Reconnecting)
	select {
	case <-socket.CloseChan:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for socket close")
	}
}
