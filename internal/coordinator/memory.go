package coordinator

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/teammap/teammap/pkg/streaming"
)

// Memory is an in-process channel. It records outbound envelopes and lets
// callers inject inbound ones. Used for headless runs and tests.
type Memory struct {
	mu      sync.Mutex
	sent    []streaming.Envelope
	viewer  *streaming.ViewerTZPayload
	closed  bool
	inbound InboundFunc
}

// NewMemory creates a memory channel delivering injected messages to inbound.
func NewMemory(inbound InboundFunc) *Memory {
	return &Memory{inbound: inbound}
}

func (m *Memory) Init() error { return nil }

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Send records the message.
func (m *Memory) Send(msgType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrNotConnected
	}
	m.sent = append(m.sent, streaming.Envelope{Type: msgType, Payload: raw})
	return nil
}

// RegisterViewer records the registration and keeps it.
func (m *Memory) RegisterViewer(p streaming.ViewerTZPayload) error {
	if err := m.Send(streaming.TypeSetViewerTZ, p); err != nil {
		return err
	}
	m.mu.Lock()
	m.viewer = &p
	m.mu.Unlock()
	return nil
}

// Inject delivers an inbound message as if the coordinator had sent it.
func (m *Memory) Inject(msgType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	if m.inbound != nil {
		m.inbound(streaming.Envelope{Type: msgType, Payload: raw})
	}
	return nil
}

// Sent returns a copy of every recorded outbound message.
func (m *Memory) Sent() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]streaming.Envelope, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentOfType returns the recorded messages of one type.
func (m *Memory) SentOfType(msgType string) []streaming.Envelope {
	var out []streaming.Envelope
	for _, env := range m.Sent() {
		if env.Type == msgType {
			out = append(out, env)
		}
	}
	return out
}

// Viewer returns the last registration.
func (m *Memory) Viewer() (streaming.ViewerTZPayload, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.viewer == nil {
		return streaming.ViewerTZPayload{}, false
	}
	return *m.viewer, true
}
