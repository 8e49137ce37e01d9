package yure

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 5 * time.Second

	closeGracePeriod = 1 * time.Second
)

// WebsocketDialer dials the remote endpoint with gorilla/websocket.
// wss:// URLs use TLS.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

func (d WebsocketDialer) Dial(ctx context.Context, url string) (Socket, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: d.HandshakeTimeout,
	}
	if dialer.HandshakeTimeout <= 0 {
		dialer.HandshakeTimeout = DefaultHandshakeTimeout
	}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	writeTimeout := d.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &wsSocket{
		conn:         conn,
		writeTimeout: writeTimeout,
	}, nil
}

type wsSocket struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	// gorilla connections support one concurrent writer
	writeLock sync.Mutex
	closeOnce sync.Once
}

func (s *wsSocket) Send(data []byte) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsSocket) Recv() ([]byte, error) {
	typ, data, err := s.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if typ == websocket.CloseMessage {
		return nil, errors.New("websocket closed by peer")
	}
	return data, nil
}

func (s *wsSocket) Close() {
	s.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		s.conn.Close()
	})
}
