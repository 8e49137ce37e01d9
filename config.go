package yure

import (
	"fmt"
	"net/url"
)

const (
	DefaultServerURL  = "wss://unstable.kusaremkn.com/yure"
	DefaultBufferSize = 30
)

// Config of one streaming session.
type Config struct {
	ServerURL  string
	BufferSize int
}

func DefaultConfig() Config {
	return Config{
		ServerURL:  DefaultServerURL,
		BufferSize: DefaultBufferSize,
	}
}

type ErrInvalidConfig struct {
	Field  string
	Reason string
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

func (c Config) Validate() error {
	if c.ServerURL == "" {
		return &ErrInvalidConfig{Field: "serverUrl", Reason: "empty"}
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return &ErrInvalidConfig{Field: "serverUrl", Reason: err.Error()}
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return &ErrInvalidConfig{Field: "serverUrl", Reason: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return &ErrInvalidConfig{Field: "serverUrl", Reason: "missing host"}
	}
	if c.BufferSize <= 0 {
		return &ErrInvalidConfig{Field: "bufferSize", Reason: fmt.Sprintf("must be positive, got %d", c.BufferSize)}
	}
	return nil
}
