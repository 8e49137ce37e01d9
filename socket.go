package yure

import "context"

// Socket is one established message-oriented connection.
type Socket interface {
	// Send writes one message. It must be safe to call concurrently with
	// Recv and Close.
	Send(data []byte) error
	// Recv blocks until a message arrives or the connection fails.
	Recv() ([]byte, error)
	Close()
}

// Dialer opens sockets. Cancelling ctx abandons an in-flight attempt.
type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, url string) (Socket, error)

func (f DialerFunc) Dial(ctx context.Context, url string) (Socket, error) {
	return f(ctx, url)
}
