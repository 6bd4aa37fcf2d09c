package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// fakeUpstream acks setup, echoes one audio frame per received chunk, then
// reports an interruption.
func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.URL.Query().Get("key"))
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var setup setupMessage
		require.NoError(t, conn.ReadJSON(&setup))
		require.Equal(t, "models/gemini-test", setup.Setup.Model)
		require.Equal(t, []string{"AUDIO"}, setup.Setup.GenerationConfig.ResponseModalities)
		require.Equal(t, "Kore", setup.Setup.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
		require.NotNil(t, setup.Setup.SystemInstruction)
		require.NoError(t, conn.WriteJSON(map[string]any{"setupComplete": map[string]any{}}))

		var input realtimeInputMessage
		require.NoError(t, conn.ReadJSON(&input))
		require.Len(t, input.RealtimeInput.MediaChunks, 1)
		require.Equal(t, inputMimeType, input.RealtimeInput.MediaChunks[0].MimeType)

		reply := serverMessage{ServerContent: &serverContent{
			ModelTurn: &contentPayload{Parts: []partPayload{{
				InlineData: &inlineData{
					MimeType: "audio/pcm;rate=24000",
					Data:     base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4}),
				},
			}}},
			OutputTranscription: &transcription{Text: "hello there"},
		}}
		data, err := json.Marshal(reply)
		require.NoError(t, err)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))

		data, err = json.Marshal(serverMessage{ServerContent: &serverContent{Interrupted: true}})
		require.NoError(t, err)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
	}))
}

func TestSessionRoundTrip(t *testing.T) {
	srv := fakeUpstream(t)
	defer srv.Close()

	cfg := Config{
		APIKey:   "test-key",
		Model:    "models/gemini-test",
		Voice:    "Kore",
		Endpoint: "ws" + strings.TrimPrefix(srv.URL, "http"),
	}
	sess, err := Dial(context.Background(), cfg, "You are a friendly interviewer.")
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, sess.SendAudio([]byte{9, 9, 9}))

	ev, err := sess.Recv()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, ev.Audio)
	require.Equal(t, "hello there", ev.OutputTranscript)
	require.False(t, ev.Interrupted)

	ev, err = sess.Recv()
	require.NoError(t, err)
	require.True(t, ev.Interrupted)
	require.Empty(t, ev.Audio)
}

func TestDialRequiresAPIKey(t *testing.T) {
	_, err := Dial(context.Background(), Config{}, "")
	require.ErrorContains(t, err, "api key")
}
