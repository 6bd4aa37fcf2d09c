package v1

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v5"
	"github.com/lithammer/shortuuid/v4"

	"github.com/amani-glitch/botle-collector/interview"
	"github.com/amani-glitch/botle-collector/plugin/realtime"
	"github.com/amani-glitch/botle-collector/server/auth"
	"github.com/amani-glitch/botle-collector/store"
)

// voiceServerEvent is one frame sent down to the browser. Raw binary frames
// on the same socket carry 24 kHz PCM audio.
type voiceServerEvent struct {
	Interrupted      bool   `json:"interrupted,omitempty"`
	TurnComplete     bool   `json:"turnComplete,omitempty"`
	InputTranscript  string `json:"inputTranscript,omitempty"`
	OutputTranscript string `json:"outputTranscript,omitempty"`
}

func (s *APIV1Service) registerVoiceRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/voice", s.Auth.RequireSession)
	g.GET("/stream", s.handleVoiceStream)
}

// handleVoiceStream upgrades to a websocket and relays between the browser
// and the live-audio model: binary frames up are 16 kHz PCM, binary frames
// down are 24 kHz PCM, JSON text frames down carry transcripts and
// interruption markers.
func (s *APIV1Service) handleVoiceStream(c *echo.Context) error {
	if s.Profile.GeminiAPIKey == "" {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "voice interview is not configured (missing GEMINI_API_KEY)")
	}
	sessionID := auth.SessionID(c)
	ctx := c.Request().Context()

	sess, err := s.Store.GetSession(ctx, &store.FindSession{ID: &sessionID})
	if err != nil || sess == nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}

	day := 1
	if q := c.QueryParam("day"); q != "" {
		if parsed, err := strconv.Atoi(q); err == nil {
			day = parsed
		}
	}
	progress, err := s.Store.GetDayProgress(ctx, sess.User.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !interview.IsUnlocked(progress, day) {
		return echo.NewHTTPError(http.StatusConflict, "day is not unlocked yet")
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.Profile.Origin == "" || origin == s.Profile.Origin
		},
	}
	browser, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer browser.Close()

	connID := shortuuid.New()
	logger := slog.With("conn", connID, "session", sessionID, "day", day)

	instruction := interview.VoiceSystemInstruction(day, interview.PriorDayContext(progress))
	upstream, err := realtime.Dial(ctx, s.voiceConfig(), instruction)
	if err != nil {
		logger.Warn("voice: upstream dial failed", "err", err)
		browser.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "upstream unavailable"))
		return nil
	}
	defer upstream.Close()

	logger.Info("voice: relay established")

	relayCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The upstream read has no deadline; closing the socket is the only way
	// cancellation can unblock it.
	go func() {
		<-relayCtx.Done()
		upstream.Close()
	}()

	// Browser to model.
	go func() {
		defer cancel()
		for {
			msgType, data, err := browser.ReadMessage()
			if err != nil {
				return
			}
			if msgType != websocket.BinaryMessage {
				continue
			}
			if err := upstream.SendAudio(data); err != nil {
				logger.Warn("voice: upstream send failed", "err", err)
				return
			}
		}
	}()

	// Model to browser.
	for {
		select {
		case <-relayCtx.Done():
			return nil
		default:
		}
		ev, err := upstream.Recv()
		if err != nil {
			logger.Info("voice: upstream closed", "err", err)
			return nil
		}
		if len(ev.Audio) > 0 {
			if err := browser.WriteMessage(websocket.BinaryMessage, ev.Audio); err != nil {
				return nil
			}
		}
		if ev.Interrupted || ev.TurnComplete || ev.InputTranscript != "" || ev.OutputTranscript != "" {
			frame, _ := json.Marshal(voiceServerEvent{
				Interrupted:      ev.Interrupted,
				TurnComplete:     ev.TurnComplete,
				InputTranscript:  ev.InputTranscript,
				OutputTranscript: ev.OutputTranscript,
			})
			if err := browser.WriteMessage(websocket.TextMessage, frame); err != nil {
				return nil
			}
		}
	}
}
