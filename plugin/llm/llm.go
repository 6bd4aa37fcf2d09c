// Package llm abstracts the hosted text-generation collaborator. The
// interview coordinator only depends on Client, so tests inject fakes.
package llm

import (
	"context"
	"errors"
)

// Message is one turn of conversation context sent to the model.
type Message struct {
	Role    string // "user" | "assistant"
	Content string
}

// StreamEventType identifies a streaming event.
type StreamEventType string

const (
	StreamEventTypeDelta StreamEventType = "delta"
	StreamEventTypeError StreamEventType = "error"
	StreamEventTypeDone  StreamEventType = "done"
)

// StreamEvent is one event on a GenerateStream channel. The channel always
// terminates with either an error event or a done event, then closes.
type StreamEvent struct {
	Type StreamEventType
	Text string // set for delta events
	Err  error  // set for error events
}

// Client is a text-generation collaborator. The system instruction is fixed
// per conversation; callers pass the full history on every call.
type Client interface {
	// Generate performs a single non-streaming completion.
	Generate(ctx context.Context, system string, messages []Message) (string, error)
	// GenerateStream streams a completion. Token deltas are delivered in
	// arrival order.
	GenerateStream(ctx context.Context, system string, messages []Message) (<-chan StreamEvent, error)
}

// ErrNotConfigured is returned by Unconfigured for every call. The HTTP
// layer short-circuits before reaching it; this is the backstop.
var ErrNotConfigured = errors.New("llm: no provider configured")

// Unconfigured is the Client used when no API key is present.
type Unconfigured struct{}

func (Unconfigured) Generate(ctx context.Context, system string, messages []Message) (string, error) {
	return "", ErrNotConfigured
}

func (Unconfigured) GenerateStream(ctx context.Context, system string, messages []Message) (<-chan StreamEvent, error) {
	return nil, ErrNotConfigured
}
