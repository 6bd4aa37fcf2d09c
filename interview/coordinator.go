// Package interview owns the per-session lifecycle: phase derivation,
// streaming exchanges with the text-generation collaborator, dual-write
// logging, and the exactly-once summary trigger.
package interview

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/amani-glitch/botle-collector/plugin/llm"
	"github.com/amani-glitch/botle-collector/store"
)

// ErrSessionNotActive is returned when a message targets a session that has
// already been completed.
var ErrSessionNotActive = errors.New("interview: session is not active")

// LogSink mirrors interview events into the durable external sink. All
// methods are best-effort: implementations log failures and never surface
// them to the caller.
type LogSink interface {
	LogSessionCreated(ctx context.Context, sess *store.InterviewSession)
	LogMessage(ctx context.Context, msg *store.Message, phase int)
	LogSummary(ctx context.Context, sess *store.InterviewSession, summary *store.Summary)
}

// EventType identifies an event on a HandleUserMessage stream.
type EventType string

const (
	EventToken EventType = "token"
	EventDone  EventType = "done"
	EventError EventType = "error"
)

// PhaseInfo is the phase payload sent with the completion marker.
type PhaseInfo struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Label   string `json:"label"`
}

// Event is one item on a HandleUserMessage stream. The stream terminates
// with a done or error event, then closes.
type Event struct {
	Type  EventType
	Token string
	Phase *PhaseInfo
	Err   error
}

// summaryJob is the per-session at-most-once summary guard. Creation is a
// test-and-set under the coordinator mutex; waiters block on done.
type summaryJob struct {
	done    chan struct{}
	summary *store.Summary
	err     error
}

// Coordinator orchestrates inbound messages end-to-end while enforcing the
// summary-at-most-once invariant under concurrent or repeated calls.
type Coordinator struct {
	store        *store.Store
	llm          llm.Client
	sink         LogSink
	maxExchanges int

	mu           sync.Mutex
	sessionLocks map[string]*sync.Mutex
	summaries    map[string]*summaryJob
}

// NewCoordinator wires the coordinator's collaborators. maxExchanges is the
// turn-count ceiling past which a summary is forced.
func NewCoordinator(st *store.Store, client llm.Client, sink LogSink, maxExchanges int) *Coordinator {
	return &Coordinator{
		store:        st,
		llm:          client,
		sink:         sink,
		maxExchanges: maxExchanges,
		sessionLocks: make(map[string]*sync.Mutex),
		summaries:    make(map[string]*summaryJob),
	}
}

// CreateSession registers a new interview run for the given profile and
// mirrors it to the log sink in the background.
func (c *Coordinator) CreateSession(ctx context.Context, user store.UserProfile) (*store.InterviewSession, error) {
	// Random identifier: session IDs double as bearer capability inside the
	// signed token, so they must not be derivable from name and clock.
	sess, err := c.store.CreateSession(ctx, &store.InterviewSession{
		ID:   uuid.NewString(),
		User: user,
	})
	if err != nil {
		return nil, err
	}
	go c.sink.LogSessionCreated(context.WithoutCancel(ctx), sess)
	return sess, nil
}

// HandleUserMessage runs one exchange. Preconditions (session exists and is
// active) are checked synchronously; the returned channel then delivers
// token events in model arrival order, a done event carrying the new phase,
// or a terminal error event.
func (c *Coordinator) HandleUserMessage(ctx context.Context, sessionID, text string) (<-chan Event, error) {
	sess, err := c.store.GetSession(ctx, &store.FindSession{ID: &sessionID})
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, store.ErrSessionNotFound
	}
	if sess.Status != store.SessionActive {
		return nil, ErrSessionNotActive
	}

	events := make(chan Event, 16)
	go c.runExchange(ctx, sessionID, text, events)
	return events, nil
}

func (c *Coordinator) runExchange(ctx context.Context, sessionID, text string, events chan<- Event) {
	defer close(events)

	// Concurrent calls for one session are serialized; ordering across them
	// is otherwise unspecified.
	lock := c.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	before, err := c.store.GetSession(ctx, &store.FindSession{ID: &sessionID})
	if err != nil || before == nil {
		events <- Event{Type: EventError, Err: store.ErrSessionNotFound}
		return
	}
	prevPhase := DeriveStage(before.ExchangeCount)

	userMsg, err := c.store.AddMessage(ctx, sessionID, "user", text)
	if err != nil {
		events <- Event{Type: EventError, Err: err}
		return
	}
	exchangeCount := before.ExchangeCount + 1
	newPhase := DeriveStage(exchangeCount)

	history, err := c.store.ListMessages(ctx, sessionID)
	if err != nil {
		events <- Event{Type: EventError, Err: err}
		return
	}

	stream, err := c.llm.GenerateStream(ctx, SystemPrompt(before.User), toLLMMessages(history))
	if err != nil {
		// The user's message stays in the log; no rollback.
		events <- Event{Type: EventError, Err: err}
		return
	}

	var reply strings.Builder
	var streamErr error
	for ev := range stream {
		switch ev.Type {
		case llm.StreamEventTypeDelta:
			reply.WriteString(ev.Text)
			events <- Event{Type: EventToken, Token: ev.Text}
		case llm.StreamEventTypeError:
			streamErr = ev.Err
		}
	}
	if streamErr != nil {
		events <- Event{Type: EventError, Err: streamErr}
		return
	}

	assistantMsg, err := c.store.AddMessage(ctx, sessionID, "assistant", reply.String())
	if err != nil {
		events <- Event{Type: EventError, Err: err}
		return
	}

	// The phase marker goes out before any summary work starts.
	events <- Event{Type: EventDone, Phase: &PhaseInfo{
		Current: newPhase,
		Total:   TotalStages,
		Label:   StageLabel(newPhase),
	}}

	bg := context.WithoutCancel(ctx)
	go c.sink.LogMessage(bg, userMsg, newPhase)
	go c.sink.LogMessage(bg, assistantMsg, newPhase)

	if (newPhase == TotalStages && prevPhase != TotalStages) || exchangeCount > c.maxExchanges {
		go func() {
			if _, err := c.finishSession(bg, sessionID); err != nil {
				slog.Warn("interview: background summary failed", "session", sessionID, "err", err)
			}
		}()
	}
}

// EndSession triggers (or joins) summary generation and returns the result
// synchronously. A second call returns the cached summary without another
// collaborator invocation.
func (c *Coordinator) EndSession(ctx context.Context, sessionID string) (*store.Summary, error) {
	sess, err := c.store.GetSession(ctx, &store.FindSession{ID: &sessionID})
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, store.ErrSessionNotFound
	}
	return c.finishSession(ctx, sessionID)
}

// finishSession is the single summary path. The test-and-set on the job map
// guarantees at most one generation per session even when the phase trigger
// and an explicit end race.
func (c *Coordinator) finishSession(ctx context.Context, sessionID string) (*store.Summary, error) {
	c.mu.Lock()
	job, running := c.summaries[sessionID]
	if !running {
		job = &summaryJob{done: make(chan struct{})}
		c.summaries[sessionID] = job
	}
	c.mu.Unlock()

	if running {
		select {
		case <-job.done:
			return job.summary, job.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	defer close(job.done)

	sess, err := c.store.GetSession(ctx, &store.FindSession{ID: &sessionID})
	if err == nil && sess == nil {
		err = store.ErrSessionNotFound
	}
	var history []*store.Message
	if err == nil {
		history, err = c.store.ListMessages(ctx, sessionID)
	}
	var summary *store.Summary
	if err == nil {
		summary, err = c.generateSummary(ctx, sess.User, history)
	}
	if err != nil {
		// Transport failures are retryable by the caller: drop the job so a
		// later EndSession can run generation again.
		c.mu.Lock()
		delete(c.summaries, sessionID)
		c.mu.Unlock()
		job.err = err
		return nil, err
	}

	if _, err := c.store.CompleteSession(ctx, sessionID, summary); err != nil {
		slog.Warn("interview: completing session failed", "session", sessionID, "err", err)
	}
	// Like the message-path writes, the sink mirror must not hold up the
	// caller's response or die with a disconnecting client.
	go c.sink.LogSummary(context.WithoutCancel(ctx), sess, summary)

	job.summary = summary
	return summary, nil
}

func (c *Coordinator) sessionLock(sessionID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.sessionLocks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		c.sessionLocks[sessionID] = lock
	}
	return lock
}

func toLLMMessages(history []*store.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
