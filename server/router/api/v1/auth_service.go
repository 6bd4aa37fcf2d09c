package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"

	"github.com/amani-glitch/botle-collector/server/auth"
	"github.com/amani-glitch/botle-collector/store"
)

type loginRequest struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department"`
	Tenure     string `json:"tenure"`
}

type loginResponse struct {
	Token     string            `json:"token"`
	SessionID string            `json:"sessionId"`
	User      store.UserProfile `json:"user"`
}

func (s *APIV1Service) registerAuthRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/auth")
	g.POST("/login", s.login)
}

// login starts a new interview session for the submitted profile and hands
// back the signed token that all later calls present.
func (s *APIV1Service) login(c *echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)
	if req.FirstName == "" || req.LastName == "" || req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "firstName, lastName and email are required")
	}

	sess, err := s.Coordinator.CreateSession(c.Request().Context(), store.UserProfile{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Role:       strings.TrimSpace(req.Role),
		Department: strings.TrimSpace(req.Department),
		Tenure:     strings.TrimSpace(req.Tenure),
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	token, err := s.Auth.Issue(sess.ID, req.FirstName+" "+req.LastName)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	c.SetCookie(&http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !s.Profile.IsDev(),
	})
	return c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		SessionID: sess.ID,
		User:      sess.User,
	})
}
