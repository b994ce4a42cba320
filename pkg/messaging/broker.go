package messaging

import (
	"context"
	"sync"
	"time"
)

// Publisher defines the interface for publishing messages. Channel names
// a logical stream; implementations decide how it maps onto their
// transport.
type Publisher interface {
	Publish(ctx context.Context, channel string, msg Message) error
	Close() error
}

type Message struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

func NewMessage(eventType string, payload interface{}) Message {
	return Message{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

type nopPublisher struct{}

// NewNopPublisher drops every message. Used when no broker is configured.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, string, Message) error { return nil }
func (nopPublisher) Close() error                                   { return nil }

// Published is a message captured by a Recorder.
type Published struct {
	Channel string
	Message Message
}

// Recorder keeps published messages in memory.
type Recorder struct {
	mu   sync.Mutex
	msgs []Published
	// Err, when set, is returned from every Publish.
	Err error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, channel string, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.msgs = append(r.msgs, Published{Channel: channel, Message: msg})
	return nil
}

func (r *Recorder) Messages() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Published, len(r.msgs))
	copy(out, r.msgs)
	return out
}

func (r *Recorder) Close() error { return nil }
