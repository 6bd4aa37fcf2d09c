package sheets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amani-glitch/botle-collector/store"
)

func TestNewSinkWithoutConfigIsOffline(t *testing.T) {
	sink := NewSink(context.Background(), "", "")
	assert.False(t, sink.Online())

	sink = NewSink(context.Background(), `{"not":"a service account"}`, "sheet-id")
	assert.False(t, sink.Online())
}

func TestOfflineWritesAreNoOps(t *testing.T) {
	sink := NewOffline()
	ctx := context.Background()

	sess := &store.InterviewSession{
		ID:   "s1",
		User: store.UserProfile{FirstName: "Ana", LastName: "Lopez"},
	}

	// None of these may panic or block.
	sink.LogSessionCreated(ctx, sess)
	sink.LogMessage(ctx, &store.Message{SessionID: "s1", Role: "user", Content: "hello"}, 1)
	sink.LogSummary(ctx, sess, &store.Summary{OverallSummary: "ok"})
}

func TestOfflineListSessionsErrors(t *testing.T) {
	sink := NewOffline()
	_, err := sink.ListSessions(context.Background())
	require.Error(t, err)
}

func TestCellExtraction(t *testing.T) {
	row := []interface{}{"s1", "Ana", 3.0}
	assert.Equal(t, "s1", cell(row, 0))
	assert.Equal(t, "3", cell(row, 2))
	assert.Equal(t, "", cell(row, 9))
}
