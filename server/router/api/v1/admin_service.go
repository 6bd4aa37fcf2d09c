package v1

import (
	"crypto/subtle"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/amani-glitch/botle-collector/store"
)

type adminSessionResponse struct {
	SessionID     string            `json:"sessionId"`
	User          store.UserProfile `json:"user"`
	Status        string            `json:"status"`
	ExchangeCount int               `json:"exchangeCount"`
	HasSummary    bool              `json:"hasSummary"`
	CreatedTs     int64             `json:"createdTs"`
}

func (s *APIV1Service) registerAdminRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/admin", s.requireAdmin)
	g.GET("/sessions", s.adminListSessions)
	g.GET("/sessions/:sessionId/transcript", s.adminGetTranscript)
	g.GET("/sessions/:sessionId/summary", s.adminGetSummary)
	g.GET("/export.csv", s.adminExportCSV)
}

// requireAdmin gates the admin surface on the X-Admin-Password header. With
// no password configured the whole surface is disabled, never open.
func (s *APIV1Service) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		if s.Profile.AdminPassword == "" {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "admin access is not configured")
		}
		given := c.Request().Header.Get("X-Admin-Password")
		if subtle.ConstantTimeCompare([]byte(given), []byte(s.Profile.AdminPassword)) != 1 {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		return next(c)
	}
}

// adminListSessions lists interview sessions, preferring the durable sheet
// (which survives restarts) and falling back to the in-memory store when
// the sheet is offline or unreadable.
func (s *APIV1Service) adminListSessions(c *echo.Context) error {
	ctx := c.Request().Context()

	var sessions []*store.InterviewSession
	if s.Sheets.Online() {
		var err error
		sessions, err = s.Sheets.ListSessions(ctx)
		if err != nil {
			slog.Warn("admin: sheet listing failed, falling back to store", "err", err)
			sessions = nil
		}
	}
	if len(sessions) == 0 {
		var err error
		sessions, err = s.Store.ListSessions(ctx, &store.FindSession{})
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	resp := make([]adminSessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		resp = append(resp, adminSessionResponse{
			SessionID:     sess.ID,
			User:          sess.User,
			Status:        string(sess.Status),
			ExchangeCount: sess.ExchangeCount,
			HasSummary:    sess.Summary != nil,
			CreatedTs:     sess.CreatedTs,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *APIV1Service) adminGetTranscript(c *echo.Context) error {
	sessionID := c.Param("sessionId")
	sess, err := s.Store.GetSession(c.Request().Context(), &store.FindSession{ID: &sessionID})
	if err != nil || sess == nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
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

func (s *APIV1Service) adminGetSummary(c *echo.Context) error {
	sessionID := c.Param("sessionId")
	sess, err := s.Store.GetSession(c.Request().Context(), &store.FindSession{ID: &sessionID})
	if err != nil || sess == nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	if sess.Summary == nil {
		return echo.NewHTTPError(http.StatusNotFound, "summary not yet generated")
	}
	return c.JSON(http.StatusOK, sess.Summary)
}

// adminExportCSV streams every session's transcript as one flat CSV.
func (s *APIV1Service) adminExportCSV(c *echo.Context) error {
	ctx := c.Request().Context()
	sessions, err := s.Store.ListSessions(ctx, &store.FindSession{})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	rw := c.Response()
	rw.Header().Set("Content-Type", "text/csv; charset=utf-8")
	rw.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=interviews-%s.csv", time.Now().Format("2006-01-02")))
	rw.WriteHeader(http.StatusOK)

	w := csv.NewWriter(rw)
	defer w.Flush()

	if err := w.Write([]string{
		"sessionId", "firstName", "lastName", "email", "role", "department",
		"status", "msgIndex", "msgRole", "content", "timestamp",
	}); err != nil {
		return err
	}
	for _, sess := range sessions {
		msgs, err := s.Store.ListMessages(ctx, sess.ID)
		if err != nil {
			slog.Warn("admin: export skipping session", "session", sess.ID, "err", err)
			continue
		}
		for _, m := range msgs {
			record := []string{
				sess.ID,
				sess.User.FirstName,
				sess.User.LastName,
				sess.User.Email,
				sess.User.Role,
				sess.User.Department,
				string(sess.Status),
				strconv.Itoa(m.Index),
				m.Role,
				m.Content,
				time.Unix(m.CreatedTs, 0).UTC().Format(time.RFC3339),
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
	}
	return nil
}
