package v1

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/amani-glitch/botle-collector/interview"
	"github.com/amani-glitch/botle-collector/server/auth"
	"github.com/amani-glitch/botle-collector/store"
)

type dayStatus struct {
	Day       int    `json:"day"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Unlocked  bool   `json:"unlocked"`
}

type progressResponse struct {
	Days    []dayStatus `json:"days"`
	NextDay int         `json:"nextDay"`
}

type completeDayRequest struct {
	Day int `json:"day"`
}

func (s *APIV1Service) registerProgressRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/progress", s.Auth.RequireSession)
	g.GET("", s.getProgress)
	g.POST("/complete", s.completeDay)
}

// progressKey resolves the cross-session identity a day-progress record
// hangs off. Email survives across sittings; the session ID does not.
func (s *APIV1Service) progressKey(c *echo.Context) (string, *store.InterviewSession, error) {
	sessionID := auth.SessionID(c)
	sess, err := s.Store.GetSession(c.Request().Context(), &store.FindSession{ID: &sessionID})
	if err != nil || sess == nil {
		return "", nil, echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return sess.User.Email, sess, nil
}

func (s *APIV1Service) getProgress(c *echo.Context) error {
	key, _, err := s.progressKey(c)
	if err != nil {
		return err
	}
	progress, err := s.Store.GetDayProgress(c.Request().Context(), key)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, buildProgressResponse(progress))
}

// completeDay marks a day finished using the current session's transcript
// as that day's record. Only an unlocked day can be completed.
func (s *APIV1Service) completeDay(c *echo.Context) error {
	key, sess, err := s.progressKey(c)
	if err != nil {
		return err
	}
	var req completeDayRequest
	if err := c.Bind(&req); err != nil || req.Day < 1 || req.Day > interview.TotalDays {
		return echo.NewHTTPError(http.StatusBadRequest, "day must be between 1 and 5")
	}

	ctx := c.Request().Context()
	progress, err := s.Store.GetDayProgress(ctx, key)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !interview.IsUnlocked(progress, req.Day) {
		return echo.NewHTTPError(http.StatusConflict, "day is not unlocked yet")
	}

	transcript, err := s.Store.ListMessages(ctx, sess.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	progress = interview.CompleteDay(progress, key, req.Day, transcript)
	progress, err = s.Store.UpsertDayProgress(ctx, progress)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, buildProgressResponse(progress))
}

func buildProgressResponse(progress *store.DayProgress) progressResponse {
	resp := progressResponse{NextDay: interview.NextDay(progress)}
	for day := 1; day <= interview.TotalDays; day++ {
		resp.Days = append(resp.Days, dayStatus{
			Day:       day,
			Title:     interview.DayTitle(day),
			Completed: interview.DayCompleted(progress, day),
			Unlocked:  interview.IsUnlocked(progress, day),
		})
	}
	return resp
}
