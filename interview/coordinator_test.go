package interview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/amani-glitch/botle-collector/plugin/llm"
	"github.com/amani-glitch/botle-collector/store"
	"github.com/amani-glitch/botle-collector/store/db/memory"
)

type fakeLLM struct {
	mu            sync.Mutex
	generateCalls int32
	generateText  string
	generateErr   error
	generateDelay time.Duration
	streamTokens  []string
	streamErr     error
}

func (f *fakeLLM) Generate(ctx context.Context, system string, messages []llm.Message) (string, error) {
	atomic.AddInt32(&f.generateCalls, 1)
	if f.generateDelay > 0 {
		time.Sleep(f.generateDelay)
	}
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return f.generateText, nil
}

func (f *fakeLLM) GenerateStream(ctx context.Context, system string, messages []llm.Message) (<-chan llm.StreamEvent, error) {
	events := make(chan llm.StreamEvent, len(f.streamTokens)+1)
	for _, tok := range f.streamTokens {
		events <- llm.StreamEvent{Type: llm.StreamEventTypeDelta, Text: tok}
	}
	if f.streamErr != nil {
		events <- llm.StreamEvent{Type: llm.StreamEventTypeError, Err: f.streamErr}
	} else {
		events <- llm.StreamEvent{Type: llm.StreamEventTypeDone}
	}
	close(events)
	return events, nil
}

type fakeSink struct {
	mu       sync.Mutex
	messages []int // phases, in write order
	summary  int32
}

func (f *fakeSink) LogSessionCreated(ctx context.Context, sess *store.InterviewSession) {}

func (f *fakeSink) LogMessage(ctx context.Context, msg *store.Message, phase int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, phase)
}

func (f *fakeSink) LogSummary(ctx context.Context, sess *store.InterviewSession, summary *store.Summary) {
	atomic.AddInt32(&f.summary, 1)
}

func newTestCoordinator(t *testing.T, client *fakeLLM) (*Coordinator, *fakeSink) {
	t.Helper()
	st := store.New(memory.NewDriver())
	sink := &fakeSink{}
	return NewCoordinator(st, client, sink, 25), sink
}

func drain(t *testing.T, events <-chan Event) (string, Event) {
	t.Helper()
	var text string
	var last Event
	for ev := range events {
		if ev.Type == EventToken {
			text += ev.Token
		}
		last = ev
	}
	return text, last
}

func TestHandleUserMessageStreamsAndAdvancesPhase(t *testing.T) {
	ctx := context.Background()
	client := &fakeLLM{streamTokens: []string{"Hi ", "Ana", "!"}}
	c, _ := newTestCoordinator(t, client)

	sess, err := c.CreateSession(ctx, store.UserProfile{FirstName: "Ana", LastName: "Lopez"})
	require.NoError(t, err)

	events, err := c.HandleUserMessage(ctx, sess.ID, "Hello")
	require.NoError(t, err)
	text, last := drain(t, events)
	require.Equal(t, "Hi Ana!", text)
	require.Equal(t, EventDone, last.Type)
	require.NotNil(t, last.Phase)
	require.Equal(t, 1, last.Phase.Current)
	require.Equal(t, TotalStages, last.Phase.Total)
	require.Equal(t, "Warm Up", last.Phase.Label)

	// Assistant replies never advance the counter.
	got, err := c.store.GetSession(ctx, &store.FindSession{ID: &sess.ID})
	require.NoError(t, err)
	require.Equal(t, 1, got.ExchangeCount)

	msgs, err := c.store.ListMessages(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "user", msgs[0].Role)
	require.Equal(t, "assistant", msgs[1].Role)
}

func TestHandleUserMessageUnknownSession(t *testing.T) {
	client := &fakeLLM{streamTokens: []string{"x"}}
	c, _ := newTestCoordinator(t, client)

	_, err := c.HandleUserMessage(context.Background(), "missing", "Hello")
	require.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestHandleUserMessageCompletedSession(t *testing.T) {
	ctx := context.Background()
	client := &fakeLLM{streamTokens: []string{"x"}, generateText: `{"overall_summary": "ok"}`}
	c, _ := newTestCoordinator(t, client)

	sess, err := c.CreateSession(ctx, store.UserProfile{FirstName: "Ana"})
	require.NoError(t, err)
	_, err = c.EndSession(ctx, sess.ID)
	require.NoError(t, err)

	_, err = c.HandleUserMessage(ctx, sess.ID, "one more thing")
	require.ErrorIs(t, err, ErrSessionNotActive)
}

func TestHandleUserMessageStreamErrorKeepsUserMessage(t *testing.T) {
	ctx := context.Background()
	client := &fakeLLM{streamTokens: []string{"partial "}, streamErr: errors.New("upstream reset")}
	c, _ := newTestCoordinator(t, client)

	sess, err := c.CreateSession(ctx, store.UserProfile{FirstName: "Ana"})
	require.NoError(t, err)

	events, err := c.HandleUserMessage(ctx, sess.ID, "Hello")
	require.NoError(t, err)
	_, last := drain(t, events)
	require.Equal(t, EventError, last.Type)
	require.ErrorContains(t, last.Err, "upstream reset")

	// The user message is retained; no assistant message is appended.
	msgs, err := c.store.ListMessages(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "user", msgs[0].Role)
}

func TestEndSessionSummaryExactlyOnce(t *testing.T) {
	ctx := context.Background()
	client := &fakeLLM{
		streamTokens:  []string{"ok"},
		generateText:  `{"overall_summary": "done"}`,
		generateDelay: 30 * time.Millisecond,
	}
	c, _ := newTestCoordinator(t, client)

	sess, err := c.CreateSession(ctx, store.UserProfile{FirstName: "Ana"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*store.Summary, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := c.EndSession(ctx, sess.ID)
			require.NoError(t, err)
			results[i] = s
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, 1, atomic.LoadInt32(&client.generateCalls))
	for _, s := range results {
		require.NotNil(t, s)
		require.Equal(t, "done", s.OverallSummary)
	}

	got, err := c.store.GetSession(ctx, &store.FindSession{ID: &sess.ID})
	require.NoError(t, err)
	require.Equal(t, store.SessionCompleted, got.Status)
	require.NotNil(t, got.Summary)
}

func TestEndSessionRetriesAfterFailure(t *testing.T) {
	ctx := context.Background()
	client := &fakeLLM{streamTokens: []string{"ok"}, generateErr: errors.New("overloaded")}
	c, _ := newTestCoordinator(t, client)

	sess, err := c.CreateSession(ctx, store.UserProfile{FirstName: "Ana"})
	require.NoError(t, err)

	_, err = c.EndSession(ctx, sess.ID)
	require.ErrorContains(t, err, "overloaded")

	client.generateErr = nil
	client.generateText = `{"overall_summary": "second try"}`
	s, err := c.EndSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, "second try", s.OverallSummary)
	require.EqualValues(t, 2, atomic.LoadInt32(&client.generateCalls))
}

// blockingSink stalls summary writes until released, standing in for a slow
// spreadsheet backend.
type blockingSink struct {
	fakeSink
	entered chan struct{}
	release chan struct{}
}

func (f *blockingSink) LogSummary(ctx context.Context, sess *store.InterviewSession, summary *store.Summary) {
	close(f.entered)
	<-f.release
	f.fakeSink.LogSummary(ctx, sess, summary)
}

func TestEndSessionDoesNotAwaitSinkWrite(t *testing.T) {
	ctx := context.Background()
	client := &fakeLLM{streamTokens: []string{"ok"}, generateText: `{"overall_summary": "done"}`}
	st := store.New(memory.NewDriver())
	sink := &blockingSink{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := NewCoordinator(st, client, sink, 25)

	sess, err := c.CreateSession(ctx, store.UserProfile{FirstName: "Ana"})
	require.NoError(t, err)

	// The caller gets the summary back while the sink write is still stuck.
	done := make(chan struct{})
	go func() {
		defer close(done)
		s, err := c.EndSession(ctx, sess.ID)
		require.NoError(t, err)
		require.Equal(t, "done", s.OverallSummary)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("EndSession blocked on the log-sink write")
	}

	close(sink.release)
	select {
	case <-sink.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("summary was never mirrored to the sink")
	}
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&sink.summary) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPhaseTriggerFiresSummaryOnce(t *testing.T) {
	ctx := context.Background()
	client := &fakeLLM{streamTokens: []string{"reply"}, generateText: `{"overall_summary": "wrap"}`}
	c, _ := newTestCoordinator(t, client)

	sess, err := c.CreateSession(ctx, store.UserProfile{FirstName: "Ana", LastName: "Lopez"})
	require.NoError(t, err)

	// 22 user turns crosses into the final phase at exchange 22.
	for i := 0; i < 22; i++ {
		events, err := c.HandleUserMessage(ctx, sess.ID, fmt.Sprintf("turn %d", i))
		require.NoError(t, err)
		drain(t, events)
	}

	require.Eventually(t, func() bool {
		got, err := c.store.GetSession(ctx, &store.FindSession{ID: &sess.ID})
		return err == nil && got != nil && got.Status == store.SessionCompleted
	}, 2*time.Second, 10*time.Millisecond)

	// A follow-up EndSession joins the cached result.
	s, err := c.EndSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, "wrap", s.OverallSummary)
	require.EqualValues(t, 1, atomic.LoadInt32(&client.generateCalls))
}
