package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"

	"github.com/amani-glitch/botle-collector/interview"
	"github.com/amani-glitch/botle-collector/server/auth"
	"github.com/amani-glitch/botle-collector/store"
)

type messageRequest struct {
	Content string `json:"content"`
}

type endResponse struct {
	SessionID string         `json:"sessionId"`
	Summary   *store.Summary `json:"summary"`
}

func (s *APIV1Service) registerChatRoutes(e *echo.Echo, limiter echo.MiddlewareFunc) {
	g := e.Group("/api/v1/interview", s.Auth.RequireSession)
	if limiter != nil {
		g.POST("/message", s.handleMessage, limiter)
	} else {
		g.POST("/message", s.handleMessage)
	}
	g.POST("/end", s.endInterview)
	g.GET("/transcript", s.getTranscript)
}

// handleMessage runs one interview exchange over SSE. Token frames are
// {"text": ...}; the terminal frame is either {"done": true, "phase": {...}}
// or {"error": ...}.
func (s *APIV1Service) handleMessage(c *echo.Context) error {
	if s.Profile.AnthropicAPIKey == "" {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "interview chat is not configured (missing ANTHROPIC_API_KEY)")
	}
	sessionID := auth.SessionID(c)

	var req messageRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content required")
	}

	ctx := c.Request().Context()
	events, err := s.Coordinator.HandleUserMessage(ctx, sessionID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrSessionNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "session not found")
		case errors.Is(err, interview.ErrSessionNotActive):
			return echo.NewHTTPError(http.StatusConflict, "session already completed")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	rw := c.Response()
	rw.Header().Set("Content-Type", "text/event-stream")
	rw.Header().Set("Cache-Control", "no-cache")
	rw.Header().Set("Connection", "keep-alive")
	rw.Header().Set("X-Accel-Buffering", "no")
	rw.WriteHeader(http.StatusOK)

	emit := func(obj any) {
		data, _ := json.Marshal(obj)
		fmt.Fprintf(rw, "data: %s\n\n", data)
		if f, ok := rw.(http.Flusher); ok {
			f.Flush()
		}
	}

	for ev := range events {
		switch ev.Type {
		case interview.EventToken:
			emit(map[string]string{"text": ev.Token})
		case interview.EventDone:
			emit(map[string]any{"done": true, "phase": ev.Phase})
		case interview.EventError:
			emit(map[string]string{"error": ev.Err.Error()})
		}
	}
	return nil
}

// endInterview finishes the session and returns its summary. Safe to call
// repeatedly; later calls return the already-generated summary.
func (s *APIV1Service) endInterview(c *echo.Context) error {
	if s.Profile.AnthropicAPIKey == "" {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "interview chat is not configured (missing ANTHROPIC_API_KEY)")
	}
	sessionID := auth.SessionID(c)

	summary, err := s.Coordinator.EndSession(c.Request().Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "session not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, endResponse{SessionID: sessionID, Summary: summary})
}

type transcriptMessage struct {
	Index     int    `json:"index"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedTs int64  `json:"createdTs"`
}

// getTranscript returns the caller's own conversation so far.
func (s *APIV1Service) getTranscript(c *echo.Context) error {
	sessionID := auth.SessionID(c)
	msgs, err := s.Store.ListMessages(c.Request().Context(), sessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]transcriptMessage, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, transcriptMessage{
			Index:     m.Index,
			Role:      m.Role,
			Content:   m.Content,
			CreatedTs: m.CreatedTs,
		})
	}
	return c.JSON(http.StatusOK, resp)
}
