package yure

import (
	"context"
	"sync"
	"sync/atomic"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

const DefaultQueueSize = 4

// ClientOption configures a Client.
type ClientOption func(c *Client)

func WithDialer(dialer Dialer) ClientOption {
	return func(c *Client) { c.dialer = dialer }
}

func WithScheduler(scheduler Scheduler) ClientOption {
	return func(c *Client) { c.scheduler = scheduler }
}

func WithBackoff(policy BackoffPolicy) ClientOption {
	return func(c *Client) { c.backoff = NewBackoff(policy) }
}

func WithEncoder(encode Encoder) ClientOption {
	return func(c *Client) { c.encode = encode }
}

func WithClientLogger(logger kitlog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithQueueSize bounds the batches waiting for the socket writer.
func WithQueueSize(size int) ClientOption {
	return func(c *Client) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

func WithStateListener(listener StateListener) ClientOption {
	return func(c *Client) { c.listeners = append(c.listeners, listener) }
}

// Client keeps one socket open to url and writes batches to it.
// Delivery is best-effort: a batch sent while the client is not
// Connected, or while the writer is still busy with earlier batches, is
// discarded.
//
// Dialing and reconnecting happen on their own goroutines; Start and
// Stop only issue the transition.
type Client struct {
	url       string
	dialer    Dialer
	scheduler Scheduler
	backoff   *Backoff
	encode    Encoder
	logger    kitlog.Logger
	queueSize int
	listeners []StateListener

	sync.Mutex
	state ConnectionState
	// incremented by every dial attempt and by Stop; goroutines of an
	// older generation leave the state alone
	gen    uint64
	cancel context.CancelFunc
	timer  Timer
	conn   *connection

	sent    uint64
	dropped uint64
}

func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url:       url,
		dialer:    WebsocketDialer{},
		scheduler: RealScheduler(),
		backoff:   NewBackoff(DefaultBackoffPolicy()),
		encode:    EncodeBatch,
		logger:    kitlog.NewNopLogger(),
		queueSize: DefaultQueueSize,
		state:     Disconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// connection is the writer side of one established socket
type connection struct {
	socket    Socket
	outChan   chan []Reading
	stopChan  chan struct{}
	closeOnce sync.Once
}

func newConnection(socket Socket, queueSize int) *connection {
	return &connection{
		socket:   socket,
		outChan:  make(chan []Reading, queueSize),
		stopChan: make(chan struct{}),
	}
}

func (conn *connection) close() {
	conn.closeOnce.Do(func() {
		close(conn.stopChan)
		go conn.socket.Close()
	})
}

func (c *Client) URL() string {
	return c.url
}

func (c *Client) State() ConnectionState {
	c.Lock()
	defer c.Unlock()
	return c.state
}

// Sent returns the number of batches written to a socket.
func (c *Client) Sent() uint64 {
	return atomic.LoadUint64(&c.sent)
}

// Dropped returns the number of batches discarded.
func (c *Client) Dropped() uint64 {
	return atomic.LoadUint64(&c.dropped)
}

// Start begins connecting. It is a no-op unless the client is
// Disconnected.
func (c *Client) Start() {
	c.Lock()
	defer c.Unlock()

	if c.state != Disconnected {
		return
	}
	c.dial()
}

// Stop abandons any in-flight dial, cancels a pending reconnection and
// closes the socket. Stopped is terminal.
func (c *Client) Stop() {
	c.Lock()
	defer c.Unlock()

	if c.state == Stopped {
		return
	}

	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.conn != nil {
		c.conn.close()
		c.conn = nil
	}
	c.setState(Stopped, nil)
}

// Send queues batch for the writer and reports whether it was accepted.
// It never blocks.
func (c *Client) Send(batch []Reading) bool {
	c.Lock()
	conn := c.conn
	connected := c.state == Connected
	c.Unlock()

	if !connected || conn == nil {
		atomic.AddUint64(&c.dropped, 1)
		return false
	}

	select {
	case conn.outChan <- batch:
		return true
	default:
		atomic.AddUint64(&c.dropped, 1)
		return false
	}
}

// dial starts a new connection attempt; must hold the lock
func (c *Client) dial() {
	c.gen++
	gen := c.gen

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.timer = nil
	c.setState(Connecting, nil)

	go c.connect(ctx, gen)
}

func (c *Client) connect(ctx context.Context, gen uint64) {
	socket, err := c.dialer.Dial(ctx, c.url)

	c.Lock()
	defer c.Unlock()

	if gen != c.gen || c.state != Connecting {
		if socket != nil {
			go socket.Close()
		}
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	if err != nil {
		level.Warn(c.logger).Log("msg", "connect failed", "url", c.url, "err", err)
		c.scheduleReconnect(gen, err)
		return
	}

	conn := newConnection(socket, c.queueSize)
	c.conn = conn
	c.backoff.Reset()
	c.setState(Connected, nil)
	level.Info(c.logger).Log("msg", "connected", "url", c.url)

	go c.writeLoop(gen, conn)
	go c.readLoop(gen, conn)
}

// scheduleReconnect moves to Reconnecting and arms the backoff timer;
// must hold the lock
func (c *Client) scheduleReconnect(gen uint64, cause error) {
	c.setState(Reconnecting, cause)

	delay := c.backoff.Next()
	level.Debug(c.logger).Log("msg", "reconnect scheduled", "delay", delay, "failures", c.backoff.Failures())

	c.timer = c.scheduler.AfterFunc(delay, func() {
		c.retry(gen)
	})
}

func (c *Client) retry(gen uint64) {
	c.Lock()
	defer c.Unlock()

	if gen != c.gen || c.state != Reconnecting {
		return
	}
	c.dial()
}

// connectionLost is reported by the writer or reader of gen
func (c *Client) connectionLost(gen uint64, conn *connection, cause error) {
	c.Lock()
	defer c.Unlock()

	if gen != c.gen || c.state != Connected || c.conn != conn {
		return
	}

	level.Warn(c.logger).Log("msg", "connection lost", "url", c.url, "err", cause)
	conn.close()
	c.conn = nil
	c.scheduleReconnect(gen, cause)
}

func (c *Client) writeLoop(gen uint64, conn *connection) {
	for {
		select {
		case <-conn.stopChan:
			return
		case batch := <-conn.outChan:
			data, err := c.encode(batch)
			if err != nil {
				level.Error(c.logger).Log("msg", "dropping batch", "err", err)
				atomic.AddUint64(&c.dropped, 1)
				continue
			}
			if err := conn.socket.Send(data); err != nil {
				atomic.AddUint64(&c.dropped, 1)
				c.connectionLost(gen, conn, err)
				return
			}
			atomic.AddUint64(&c.sent, 1)
		}
	}
}

// readLoop discards incoming messages; it exists to notice the peer
// going away
func (c *Client) readLoop(gen uint64, conn *connection) {
	for {
		if _, err := conn.socket.Recv(); err != nil {
			c.connectionLost(gen, conn, err)
			return
		}
	}
}

// setState applies a transition if the state machine allows it; must
// hold the lock
func (c *Client) setState(to ConnectionState, cause error) bool {
	from := c.state
	if !CanTransition(from, to) {
		level.Error(c.logger).Log("msg", "illegal transition", "from", from, "to", to)
		return false
	}

	c.state = to
	event := StateEvent{From: from, To: to, Err: cause}
	for _, listener := range c.listeners {
		listener(event)
	}
	return true
}
