package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amani-glitch/botle-collector/store"
)

func newTestSession(t *testing.T, d *Driver, id string) *store.InterviewSession {
	t.Helper()
	sess, err := d.CreateSession(context.Background(), &store.InterviewSession{
		ID:   id,
		User: store.UserProfile{FirstName: "Ana", LastName: "Lopez", Email: "a@x.com"},
	})
	require.NoError(t, err)
	return sess
}

func TestCreateAndGetSession(t *testing.T) {
	d := NewDriver()
	ctx := context.Background()

	sess := newTestSession(t, d, "s1")
	assert.Equal(t, store.SessionActive, sess.Status)
	assert.Equal(t, 0, sess.ExchangeCount)

	id := "s1"
	got, err := d.GetSession(ctx, &store.FindSession{ID: &id})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ana", got.User.FirstName)

	missing := "nope"
	got, err = d.GetSession(ctx, &store.FindSession{ID: &missing})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAddMessageIncrementsExchangeCountForUserOnly(t *testing.T) {
	d := NewDriver()
	ctx := context.Background()
	newTestSession(t, d, "s1")

	_, err := d.AddMessage(ctx, "s1", "user", "hello")
	require.NoError(t, err)
	_, err = d.AddMessage(ctx, "s1", "assistant", "hi, tell me about your day")
	require.NoError(t, err)

	id := "s1"
	sess, err := d.GetSession(ctx, &store.FindSession{ID: &id})
	require.NoError(t, err)
	assert.Equal(t, 1, sess.ExchangeCount)
}

func TestAddMessageUnknownSession(t *testing.T) {
	d := NewDriver()
	_, err := d.AddMessage(context.Background(), "ghost", "user", "hello")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestTranscriptRoundTrip(t *testing.T) {
	d := NewDriver()
	ctx := context.Background()
	newTestSession(t, d, "s1")

	for i := 0; i < 6; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		_, err := d.AddMessage(ctx, "s1", role, fmt.Sprintf("turn %d", i))
		require.NoError(t, err)
	}

	msgs, err := d.ListMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 6)
	for i, m := range msgs {
		assert.Equal(t, i, m.Index)
		assert.Equal(t, fmt.Sprintf("turn %d", i), m.Content)
		if i%2 == 0 {
			assert.Equal(t, "user", m.Role)
		} else {
			assert.Equal(t, "assistant", m.Role)
		}
	}
}

func TestCompleteSessionIsIdempotentOverwrite(t *testing.T) {
	d := NewDriver()
	ctx := context.Background()
	newTestSession(t, d, "s1")

	_, err := d.CompleteSession(ctx, "s1", &store.Summary{OverallSummary: "first"})
	require.NoError(t, err)
	sess, err := d.CompleteSession(ctx, "s1", &store.Summary{OverallSummary: "second"})
	require.NoError(t, err)

	assert.Equal(t, store.SessionCompleted, sess.Status)
	assert.Equal(t, "second", sess.Summary.OverallSummary)

	_, err = d.CompleteSession(ctx, "ghost", nil)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestListSessionsNewestFirst(t *testing.T) {
	d := NewDriver()
	ctx := context.Background()
	newTestSession(t, d, "s1")
	newTestSession(t, d, "s2")
	newTestSession(t, d, "s3")

	list, err := d.ListSessions(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "s3", list[0].ID)
	assert.Equal(t, "s1", list[2].ID)

	completed := store.SessionCompleted
	_, err = d.CompleteSession(ctx, "s2", &store.Summary{})
	require.NoError(t, err)
	list, err = d.ListSessions(ctx, &store.FindSession{Status: &completed})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "s2", list[0].ID)
}

func TestSnapshotsDoNotAliasInternalState(t *testing.T) {
	d := NewDriver()
	ctx := context.Background()
	sess := newTestSession(t, d, "s1")

	sess.ExchangeCount = 99
	id := "s1"
	got, err := d.GetSession(ctx, &store.FindSession{ID: &id})
	require.NoError(t, err)
	assert.Equal(t, 0, got.ExchangeCount)
}

func TestConcurrentAppendsAreAtomic(t *testing.T) {
	d := NewDriver()
	ctx := context.Background()
	newTestSession(t, d, "s1")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.AddMessage(ctx, "s1", "user", "ping")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	id := "s1"
	sess, err := d.GetSession(ctx, &store.FindSession{ID: &id})
	require.NoError(t, err)
	assert.Equal(t, 20, sess.ExchangeCount)

	msgs, err := d.ListMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 20)
	for i, m := range msgs {
		assert.Equal(t, i, m.Index)
	}
}

func TestDayProgressRoundTrip(t *testing.T) {
	d := NewDriver()
	ctx := context.Background()

	got, err := d.GetDayProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = d.UpsertDayProgress(ctx, &store.DayProgress{
		Key:           "u1",
		CompletedDays: []int{1},
		DaySummaries:  map[int]string{1: "talked about bookings"},
	})
	require.NoError(t, err)

	got, err = d.GetDayProgress(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []int{1}, got.CompletedDays)
	assert.Equal(t, "talked about bookings", got.DaySummaries[1])
	assert.NotZero(t, got.UpdatedTs)
}
