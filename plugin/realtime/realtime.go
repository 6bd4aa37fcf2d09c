// Package realtime speaks the hosted live-audio websocket protocol: a setup
// handshake, base64 PCM chunks upstream at 16 kHz, and 24 kHz audio plus
// transcription and interruption events downstream.
package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
)

const (
	liveHost = "generativelanguage.googleapis.com"
	livePath = "/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	// Upstream expects raw little-endian 16-bit PCM at 16 kHz and replies
	// with the same encoding at 24 kHz.
	inputMimeType = "audio/pcm;rate=16000"
)

// Config carries the upstream connection parameters. Endpoint overrides the
// default websocket URL when set.
type Config struct {
	APIKey   string
	Model    string
	Voice    string
	Endpoint string
}

type setupMessage struct {
	Setup setupPayload `json:"setup"`
}

type setupPayload struct {
	Model                    string           `json:"model"`
	GenerationConfig         generationConfig `json:"generationConfig"`
	SystemInstruction        *contentPayload  `json:"systemInstruction,omitempty"`
	InputAudioTranscription  map[string]any   `json:"inputAudioTranscription"`
	OutputAudioTranscription map[string]any   `json:"outputAudioTranscription"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities"`
	SpeechConfig       speechConfig `json:"speechConfig"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type contentPayload struct {
	Parts []partPayload `json:"parts"`
}

type partPayload struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	MediaChunks []inlineData `json:"mediaChunks"`
}

type serverMessage struct {
	SetupComplete *struct{}      `json:"setupComplete,omitempty"`
	ServerContent *serverContent `json:"serverContent,omitempty"`
}

type serverContent struct {
	ModelTurn           *contentPayload `json:"modelTurn,omitempty"`
	TurnComplete        bool            `json:"turnComplete,omitempty"`
	Interrupted         bool            `json:"interrupted,omitempty"`
	InputTranscription  *transcription  `json:"inputTranscription,omitempty"`
	OutputTranscription *transcription  `json:"outputTranscription,omitempty"`
}

type transcription struct {
	Text string `json:"text"`
}

// Event is one downstream occurrence. Audio carries decoded 24 kHz PCM;
// transcript fields are set for the corresponding transcription events.
type Event struct {
	Audio            []byte
	Interrupted      bool
	TurnComplete     bool
	InputTranscript  string
	OutputTranscript string
}

// Session is an established live-audio connection. SendAudio is safe for
// one writer; Recv must be called from a single reader goroutine.
type Session struct {
	conn *websocket.Conn

	mu sync.Mutex // guards writes
}

// Dial connects, performs the setup handshake, and blocks until the
// upstream acknowledges it. systemInstruction seeds the voice persona.
func Dial(ctx context.Context, cfg Config, systemInstruction string) (*Session, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("realtime: api key is not configured")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = (&url.URL{Scheme: "wss", Host: liveHost, Path: livePath}).String()
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("realtime: bad endpoint: %w", err)
	}
	u.RawQuery = url.Values{"key": {cfg.APIKey}}.Encode()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("realtime: dial upstream: %w", err)
	}

	setup := setupMessage{Setup: setupPayload{
		Model: cfg.Model,
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: cfg.Voice},
				},
			},
		},
		InputAudioTranscription:  map[string]any{},
		OutputAudioTranscription: map[string]any{},
	}}
	if systemInstruction != "" {
		setup.Setup.SystemInstruction = &contentPayload{
			Parts: []partPayload{{Text: systemInstruction}},
		}
	}
	if err := conn.WriteJSON(setup); err != nil {
		conn.Close()
		return nil, fmt.Errorf("realtime: send setup: %w", err)
	}

	// The first frame back must be the setup acknowledgement.
	var ack serverMessage
	if err := conn.ReadJSON(&ack); err != nil {
		conn.Close()
		return nil, fmt.Errorf("realtime: read setup ack: %w", err)
	}
	if ack.SetupComplete == nil {
		conn.Close()
		return nil, fmt.Errorf("realtime: upstream rejected setup")
	}

	return &Session{conn: conn}, nil
}

// SendAudio forwards one chunk of 16 kHz PCM to the model.
func (s *Session) SendAudio(pcm []byte) error {
	msg := realtimeInputMessage{RealtimeInput: realtimeInput{
		MediaChunks: []inlineData{{
			MimeType: inputMimeType,
			Data:     base64.StdEncoding.EncodeToString(pcm),
		}},
	}}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("realtime: send audio: %w", err)
	}
	return nil
}

// Recv blocks for the next downstream event. Frames that carry nothing the
// relay acts on are skipped. Returns the underlying read error when the
// connection closes.
func (s *Session) Recv() (*Event, error) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("realtime: decode frame: %w", err)
		}
		sc := msg.ServerContent
		if sc == nil {
			continue
		}

		ev := &Event{
			Interrupted:  sc.Interrupted,
			TurnComplete: sc.TurnComplete,
		}
		if sc.InputTranscription != nil {
			ev.InputTranscript = sc.InputTranscription.Text
		}
		if sc.OutputTranscription != nil {
			ev.OutputTranscript = sc.OutputTranscription.Text
		}
		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				if part.InlineData == nil {
					continue
				}
				audio, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					return nil, fmt.Errorf("realtime: decode audio: %w", err)
				}
				ev.Audio = append(ev.Audio, audio...)
			}
		}
		if len(ev.Audio) == 0 && !ev.Interrupted && !ev.TurnComplete &&
			ev.InputTranscript == "" && ev.OutputTranscript == "" {
			continue
		}
		return ev, nil
	}
}

// Close tears down the upstream connection.
func (s *Session) Close() error {
	return s.conn.Close()
}
