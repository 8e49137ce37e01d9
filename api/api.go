package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	kitendpoint "github.com/go-kit/kit/endpoint"
	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/sasakulab/yure"
)

type ErrIllegalArgument struct {
	Reason string
}

func (e ErrIllegalArgument) Error() string {
	return fmt.Sprintf("err illegal argument: %s", e.Reason)
}

// Streamer is the part of yure.Streamer the api drives.
type Streamer interface {
	Start(config yure.Config) error
	Stop()
	Status() yure.Status
	Transitions() []string
}

// Feed serves the live display window.
type Feed interface {
	Latest(n int) []yure.Reading
}

type endpoint struct {
	logger   kitlog.Logger
	streamer Streamer
	feed     Feed
	defaults yure.Config
}

func newEndpoint(streamer Streamer, feed Feed, defaults yure.Config, logger kitlog.Logger) *endpoint {
	return &endpoint{
		logger:   logger,
		streamer: streamer,
		feed:     feed,
		defaults: defaults,
	}
}

// NewApiHandler exposes status and control of the streamer. Start uses
// defaults, overridden by the request body.
func NewApiHandler(streamer Streamer, feed Feed, defaults yure.Config, logger kitlog.Logger) http.Handler {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	e := newEndpoint(streamer, feed, defaults, logger)
	r := mux.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorLogger(logger),
		kithttp.ServerErrorEncoder(encodeError),
	}

	r.Methods("GET").Path("/healthz").HandlerFunc(func(w http.ResponseWriter, request *http.Request) {
		w.Write([]byte("up"))
	})

	r.Methods("GET").Path("/status").Handler(kithttp.NewServer(
		e.logged("status", e.makeStatusEndpoint()),
		decodeEmptyRequest,
		encodeResponse,
		opts...,
	))

	r.Methods("GET").Path("/readings").Handler(kithttp.NewServer(
		e.logged("readings", e.makeReadingsEndpoint()),
		decodeReadingsRequest,
		encodeResponse,
		opts...,
	))

	r.Methods("POST").Path("/start").Handler(kithttp.NewServer(
		e.logged("start", e.makeStartEndpoint()),
		decodeStartRequest,
		encodeResponse,
		opts...,
	))

	r.Methods("POST").Path("/stop").Handler(kithttp.NewServer(
		e.logged("stop", e.makeStopEndpoint()),
		decodeEmptyRequest,
		encodeResponse,
		opts...,
	))
	return r
}

func (e *endpoint) logged(name string, next kitendpoint.Endpoint) kitendpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		response, err := next(ctx, request)
		if err != nil {
			level.Error(e.logger).Log("endpoint", name, "err", err.Error())
		} else {
			level.Debug(e.logger).Log("endpoint", name)
		}
		return response, err
	}
}

func (e *endpoint) makeStatusEndpoint() kitendpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		return newStatusResponse(e.streamer.Status(), e.streamer.Transitions()), nil
	}
}

func (e *endpoint) makeReadingsEndpoint() kitendpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(ReadingsRequest)
		readings := e.feed.Latest(req.Limit)

		resp := ReadingsResponse{
			Count:    len(readings),
			Readings: make([]Reading, len(readings)),
		}
		for i, r := range readings {
			resp.Readings[i] = newReading(r)
		}
		return resp, nil
	}
}

func (e *endpoint) makeStartEndpoint() kitendpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(StartRequest)

		config := e.defaults
		if req.ServerURL != "" {
			config.ServerURL = req.ServerURL
		}
		if req.BufferSize != nil {
			config.BufferSize = *req.BufferSize
		}
		if err := e.streamer.Start(config); err != nil {
			return nil, err
		}
		return newStatusResponse(e.streamer.Status(), nil), nil
	}
}

func (e *endpoint) makeStopEndpoint() kitendpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		e.streamer.Stop()
		return newStatusResponse(e.streamer.Status(), nil), nil
	}
}

type Reading struct {
	YureID string  `json:"yureId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	T      int64   `json:"t"`
}

func newReading(r yure.Reading) Reading {
	return Reading{YureID: r.YureID, X: r.X, Y: r.Y, Z: r.Z, T: r.Timestamp}
}

type StatusResponse struct {
	Sharing     bool     `json:"sharing"`
	State       string   `json:"state"`
	SessionID   string   `json:"sessionId,omitempty"`
	ServerURL   string   `json:"serverUrl,omitempty"`
	BufferSize  int      `json:"bufferSize,omitempty"`
	Buffered    int      `json:"buffered"`
	Sent        uint64   `json:"sent"`
	Dropped     uint64   `json:"dropped"`
	Transitions []string `json:"transitions,omitempty"`
}

func newStatusResponse(status yure.Status, transitions []string) StatusResponse {
	return StatusResponse{
		Sharing:     status.Sharing,
		State:       status.State.String(),
		SessionID:   status.SessionID,
		ServerURL:   status.ServerURL,
		BufferSize:  status.BufferSize,
		Buffered:    status.Buffered,
		Sent:        status.Sent,
		Dropped:     status.Dropped,
		Transitions: transitions,
	}
}

type ReadingsRequest struct {
	Limit int
}

type ReadingsResponse struct {
	Count    int       `json:"count"`
	Readings []Reading `json:"readings"`
}

type StartRequest struct {
	ServerURL  string `json:"serverUrl"`
	BufferSize *int   `json:"bufferSize"`
}

func decodeEmptyRequest(_ context.Context, r *http.Request) (interface{}, error) {
	return struct{}{}, nil
}

func decodeReadingsRequest(_ context.Context, r *http.Request) (interface{}, error) {
	req := ReadingsRequest{}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return nil, ErrIllegalArgument{fmt.Sprintf("limit %q", limit)}
		}
		req.Limit = n
	}
	return req, nil
}

func decodeStartRequest(_ context.Context, r *http.Request) (interface{}, error) {
	body := StartRequest{}
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil && err != io.EOF {
		return nil, ErrIllegalArgument{err.Error()}
	}
	return body, nil
}

func encodeResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(response)
}

// encode errors from business-logic
func encodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	switch err.(type) {
	case ErrIllegalArgument, *yure.ErrInvalidConfig:
		w.WriteHeader(http.StatusBadRequest)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
	})
}
