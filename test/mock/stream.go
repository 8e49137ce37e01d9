package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/sasakulab/yure"
)

var ErrSocketClosed = errors.New("mock socket closed")

// Socket records sent messages on SentChan. Recv blocks until Close or
// Fail is called.
type Socket struct {
	SentChan  chan []byte
	CloseChan chan struct{}
	SendErr   error

	lock     sync.Mutex
	failChan chan error
	closed   bool
}

func NewSocket() *Socket {
	return &Socket{
		SentChan:  make(chan []byte, 100),
		CloseChan: make(chan struct{}, 1),
		failChan:  make(chan error, 1),
	}
}

func (s *Socket) Send(data []byte) error {
	s.lock.Lock()
	closed, err := s.closed, s.SendErr
	s.lock.Unlock()

	if closed {
		return ErrSocketClosed
	}
	if err != nil {
		return err
	}
	s.SentChan <- data
	return nil
}

func (s *Socket) Recv() ([]byte, error) {
	err := <-s.failChan
	s.failChan <- err
	return nil, err
}

// Fail simulates the peer dropping the connection.
func (s *Socket) Fail(err error) {
	select {
	case s.failChan <- err:
	default:
	}
}

func (s *Socket) Close() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.Fail(ErrSocketClosed)
	s.CloseChan <- struct{}{}
}

func (s *Socket) Closed() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.closed
}

// Dialer answers every Dial with the next queued result. Without a
// queued result Dial blocks until ctx is cancelled.
type Dialer struct {
	results chan dialResult
	// DialChan receives the url of every attempt
	DialChan chan string
}

type dialResult struct {
	socket yure.Socket
	err    error
}

func NewDialer() *Dialer {
	return &Dialer{
		results:  make(chan dialResult, 100),
		DialChan: make(chan string, 100),
	}
}

func (d *Dialer) Succeed(socket yure.Socket) {
	d.results <- dialResult{socket: socket}
}

func (d *Dialer) Fail(err error) {
	d.results <- dialResult{err: err}
}

func (d *Dialer) Dial(ctx context.Context, url string) (yure.Socket, error) {
	d.DialChan <- url
	select {
	case r := <-d.results:
		return r.socket, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
