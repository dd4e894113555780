// Package coordinator is the channel to the external coordinator. The
// websocket implementation streams outbound events fire-and-forget, waits
// for an ack on viewer registration and reconnects with bounded backoff.
package coordinator

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teammap/teammap/internal/config"
	"github.com/teammap/teammap/pkg/streaming"
)

var (
	// ErrNotConnected is returned when sending before Init or after Close.
	ErrNotConnected = errors.New("coordinator not connected")
	// ErrSendDropped is returned when the outbound queue is full.
	ErrSendDropped = errors.New("coordinator send queue full")
)

// Channel is a coordinator connection.
type Channel interface {
	Init() error
	Close() error
	Send(msgType string, payload any) error
	RegisterViewer(p streaming.ViewerTZPayload) error
}

// New builds the channel selected by cfg.Type. inbound receives every
// non-ack message.
func New(cfg config.CoordinatorConfig, logger *slog.Logger, inbound InboundFunc) (Channel, error) {
	switch strings.ToLower(cfg.Type) {
	case "websocket", "":
		return NewWebsocket(cfg, logger, inbound), nil
	case "memory":
		return NewMemory(inbound), nil
	default:
		return nil, fmt.Errorf("unknown coordinator type: %s", cfg.Type)
	}
}

// Websocket talks to the coordinator over a websocket.
type Websocket struct {
	conn   *connection
	cfg    config.CoordinatorConfig
	logger *slog.Logger
}

// NewWebsocket creates a websocket channel. Nothing is dialed until Init.
func NewWebsocket(cfg config.CoordinatorConfig, logger *slog.Logger, inbound InboundFunc) *Websocket {
	if logger == nil {
		logger = slog.Default()
	}
	return &Websocket{
		conn:   newConnection(logger, inbound),
		cfg:    cfg,
		logger: logger,
	}
}

// Init connects to the coordinator.
func (w *Websocket) Init() error {
	if w.cfg.URL == "" {
		return fmt.Errorf("coordinator url is empty")
	}
	if err := w.conn.dial(w.cfg.URL, w.cfg.Secret); err != nil {
		return err
	}
	w.logger.Info("Connected to coordinator", "url", w.cfg.URL)
	return nil
}

// Close disconnects from the coordinator.
func (w *Websocket) Close() error {
	return w.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// Send marshals the payload into an Envelope and pushes it to the write
// loop. Messages sent while reconnecting are queued.
func (w *Websocket) Send(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	select {
	case <-w.conn.done:
		return ErrNotConnected
	default:
	}
	if !w.conn.send(data) {
		return ErrSendDropped
	}
	return nil
}

// RegisterViewer sends set_viewer_tz, waits for the coordinator's ack and
// keeps the frame for replay after reconnects.
func (w *Websocket) RegisterViewer(p streaming.ViewerTZPayload) error {
	data, err := marshalEnvelope(streaming.TypeSetViewerTZ, p)
	if err != nil {
		return err
	}
	w.conn.cacheViewer(data)
	if !w.conn.connected() {
		return ErrNotConnected
	}
	return w.conn.sendAndWait(data, streaming.TypeSetViewerTZ, ackTimeout)
}
