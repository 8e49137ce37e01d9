package yure

import (
	"sync"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/google/uuid"
)

// Status is a read-only view of the streaming pipeline.
type Status struct {
	Sharing    bool
	SessionID  string
	State      ConnectionState
	ServerURL  string
	BufferSize int
	Buffered   int
	Sent       uint64
	Dropped    uint64
}

// ClientFactory builds the transport client of a new session.
type ClientFactory func(url string, listener StateListener) *Client

// StreamerOption configures a Streamer.
type StreamerOption func(s *Streamer)

func WithClientFactory(factory ClientFactory) StreamerOption {
	return func(s *Streamer) { s.newClient = factory }
}

func WithStreamerLogger(logger kitlog.Logger) StreamerOption {
	return func(s *Streamer) { s.logger = logger }
}

func WithTracer(tracer *TransitionTracer) StreamerOption {
	return func(s *Streamer) { s.tracer = tracer }
}

// Streamer wires a Source to a SampleBuffer and a transport Client.
// It keeps streaming until Stop is called, whoever is watching.
type Streamer struct {
	source    Source
	newClient ClientFactory
	logger    kitlog.Logger
	tracer    *TransitionTracer

	// serializes Start and Stop
	lifecycle sync.Mutex

	lock    sync.Mutex
	session *session
	// state of the last stopped session
	last Status

	listenLock sync.RWMutex
	listeners  []ReadingHandler
}

type session struct {
	id     string
	config Config
	buffer *SampleBuffer
	client *Client
	notify chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewStreamer(source Source, opts ...StreamerOption) *Streamer {
	s := &Streamer{
		source: source,
		logger: kitlog.NewNopLogger(),
		tracer: NewTransitionTracer(DefaultTraceSize),
		last:   Status{State: Disconnected},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newClient == nil {
		logger := s.logger
		s.newClient = func(url string, listener StateListener) *Client {
			return NewClient(url, WithClientLogger(logger), WithStateListener(listener))
		}
	}
	return s
}

// OnReading registers a listener for every reading delivered while
// streaming. Listeners run on the sensor goroutine and must not block.
func (s *Streamer) OnReading(listener ReadingHandler) {
	s.listenLock.Lock()
	defer s.listenLock.Unlock()
	s.listeners = append(s.listeners, listener)
}

// Start opens a new session. Starting a running Streamer is a no-op,
// whatever config is given; otherwise an invalid config is rejected.
func (s *Streamer) Start(config Config) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.Running() {
		return nil
	}
	if err := config.Validate(); err != nil {
		return err
	}

	sess := &session{
		id:     uuid.New().String(),
		config: config,
		buffer: NewSampleBuffer(config.BufferSize),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	sess.client = s.newClient(config.ServerURL, s.tracer.Observe)

	s.lock.Lock()
	s.session = sess
	s.lock.Unlock()

	sess.wg.Add(1)
	go s.sendRoutine(sess)

	s.source.Register(func(r Reading) {
		s.deliver(sess, r)
	})
	sess.client.Start()

	level.Info(s.logger).Log("msg", "streaming started", "session", sess.id, "url", config.ServerURL, "bufferSize", config.BufferSize)
	return nil
}

// Stop ends the session. Stopping a stopped Streamer is a no-op.
func (s *Streamer) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.lock.Lock()
	sess := s.session
	s.session = nil
	s.lock.Unlock()

	if sess == nil {
		return
	}

	s.source.Unregister()
	sess.client.Stop()
	close(sess.done)
	sess.wg.Wait()

	sess.buffer.Reset()

	s.lock.Lock()
	s.last = s.statusOf(sess, false)
	s.lock.Unlock()

	level.Info(s.logger).Log("msg", "streaming stopped", "session", sess.id, "sent", sess.client.Sent(), "dropped", sess.client.Dropped())
}

func (s *Streamer) Running() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.session != nil
}

func (s *Streamer) Status() Status {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.session == nil {
		return s.last
	}
	return s.statusOf(s.session, true)
}

// Snapshot returns the transmission buffer of the running session,
// newest-first; nil when stopped.
func (s *Streamer) Snapshot() []Reading {
	s.lock.Lock()
	sess := s.session
	s.lock.Unlock()

	if sess == nil {
		return nil
	}
	return sess.buffer.Snapshot()
}

// Transitions returns the recent connection-state transitions.
func (s *Streamer) Transitions() []string {
	return s.tracer.Traces()
}

func (s *Streamer) Tracer() *TransitionTracer {
	return s.tracer
}

func (s *Streamer) statusOf(sess *session, sharing bool) Status {
	return Status{
		Sharing:    sharing,
		SessionID:  sess.id,
		State:      sess.client.State(),
		ServerURL:  sess.config.ServerURL,
		BufferSize: sess.config.BufferSize,
		Buffered:   sess.buffer.Len(),
		Sent:       sess.client.Sent(),
		Dropped:    sess.client.Dropped(),
	}
}

// deliver runs on the sensor goroutine
func (s *Streamer) deliver(sess *session, r Reading) {
	sess.buffer.Push(r)

	s.listenLock.RLock()
	for _, listener := range s.listeners {
		listener(r)
	}
	s.listenLock.RUnlock()

	select {
	case sess.notify <- struct{}{}:
	default:
	}
}

// sendRoutine sends the buffer window once per update; updates arriving
// while a send is pending collapse into it
func (s *Streamer) sendRoutine(sess *session) {
	defer sess.wg.Done()

	for {
		select {
		case <-sess.done:
			return
		case <-sess.notify:
			sess.client.Send(sess.buffer.Snapshot())
		}
	}
}
