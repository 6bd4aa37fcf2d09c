package v1

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// voiceUpstream stands in for the live-audio service: it acks setup, answers
// the first audio chunk with one audio frame plus a transcript, then reads
// until its socket dies and signals closed.
type voiceUpstream struct {
	server *httptest.Server
	closed chan struct{}
}

func newVoiceUpstream(t *testing.T, audio []byte) *voiceUpstream {
	t.Helper()
	up := &voiceUpstream{closed: make(chan struct{})}
	upgrader := websocket.Upgrader{}
	up.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var setup map[string]any
		require.NoError(t, conn.ReadJSON(&setup))
		require.Contains(t, setup, "setup")
		require.NoError(t, conn.WriteJSON(map[string]any{"setupComplete": map[string]any{}}))

		var input map[string]any
		require.NoError(t, conn.ReadJSON(&input))
		require.Contains(t, input, "realtimeInput")

		reply := map[string]any{
			"serverContent": map[string]any{
				"modelTurn": map[string]any{
					"parts": []map[string]any{{
						"inlineData": map[string]any{
							"mimeType": "audio/pcm;rate=24000",
							"data":     base64.StdEncoding.EncodeToString(audio),
						},
					}},
				},
				"outputTranscription": map[string]any{"text": "good morning"},
			},
		}
		require.NoError(t, conn.WriteJSON(reply))

		// Park until the relay tears this socket down.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(up.closed)
				return
			}
		}
	}))
	return up
}

func (up *voiceUpstream) wsURL() string {
	return "ws" + strings.TrimPrefix(up.server.URL, "http")
}

func TestVoiceStreamRelaysAndReleasesUpstream(t *testing.T) {
	audio := []byte{7, 7, 7, 7}
	upstream := newVoiceUpstream(t, audio)
	defer upstream.server.Close()

	env := newTestEnv(t, &scriptedLLM{})
	env.service.Profile.GeminiAPIKey = "test-key"
	env.service.Profile.GeminiVoiceModel = "models/gemini-test"
	env.service.Profile.VoiceName = "Kore"
	env.service.Profile.VoiceEndpoint = upstream.wsURL()
	login := env.login(t)

	front := httptest.NewServer(env.echo)
	defer front.Close()

	header := http.Header{"Authorization": {"Bearer " + login.Token}}
	browser, _, err := websocket.DefaultDialer.Dial(
		"ws"+strings.TrimPrefix(front.URL, "http")+"/api/v1/voice/stream", header)
	require.NoError(t, err)

	require.NoError(t, browser.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}))

	browser.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, data, err := browser.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, msgType)
	require.Equal(t, audio, data)

	msgType, data, err = browser.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, msgType)
	var ev voiceServerEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	require.Equal(t, "good morning", ev.OutputTranscript)

	// Abandoning the browser side must tear down the upstream socket too.
	require.NoError(t, browser.Close())
	select {
	case <-upstream.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("upstream socket was not closed after browser disconnect")
	}
}

func TestVoiceStreamUnconfigured(t *testing.T) {
	env := newTestEnv(t, &scriptedLLM{})
	login := env.login(t)

	rec := env.do(http.MethodGet, "/api/v1/voice/stream", "", bearer(login.Token))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestVoiceStreamLockedDay(t *testing.T) {
	env := newTestEnv(t, &scriptedLLM{})
	env.service.Profile.GeminiAPIKey = "test-key"
	login := env.login(t)

	rec := env.do(http.MethodGet, "/api/v1/voice/stream?day=3", "", bearer(login.Token))
	require.Equal(t, http.StatusConflict, rec.Code)
}
