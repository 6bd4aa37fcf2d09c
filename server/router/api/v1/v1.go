// Package v1 is the REST and streaming surface of the interview server.
package v1

import (
	"github.com/labstack/echo/v5"

	"github.com/amani-glitch/botle-collector/interview"
	"github.com/amani-glitch/botle-collector/plugin/realtime"
	"github.com/amani-glitch/botle-collector/plugin/sheets"
	"github.com/amani-glitch/botle-collector/server/auth"
	"github.com/amani-glitch/botle-collector/server/profile"
	"github.com/amani-glitch/botle-collector/store"
)

// APIV1Service bundles the collaborators the v1 handlers need.
type APIV1Service struct {
	Profile     *profile.Profile
	Store       *store.Store
	Coordinator *interview.Coordinator
	Auth        *auth.Authenticator
	Sheets      *sheets.Sink
}

func NewAPIV1Service(
	p *profile.Profile,
	st *store.Store,
	coordinator *interview.Coordinator,
	authenticator *auth.Authenticator,
	sink *sheets.Sink,
) *APIV1Service {
	return &APIV1Service{
		Profile:     p,
		Store:       st,
		Coordinator: coordinator,
		Auth:        authenticator,
		Sheets:      sink,
	}
}

// RegisterRoutes mounts every v1 route group. chatLimiter rate-limits the
// message endpoint; pass nil to leave it unlimited (tests do).
func (s *APIV1Service) RegisterRoutes(e *echo.Echo, chatLimiter echo.MiddlewareFunc) {
	s.registerAuthRoutes(e)
	s.registerChatRoutes(e, chatLimiter)
	s.registerProgressRoutes(e)
	s.registerAdminRoutes(e)
	s.registerVoiceRoutes(e)
}

// voiceConfig builds the upstream live-audio parameters from the profile.
func (s *APIV1Service) voiceConfig() realtime.Config {
	return realtime.Config{
		APIKey:   s.Profile.GeminiAPIKey,
		Model:    s.Profile.GeminiVoiceModel,
		Voice:    s.Profile.VoiceName,
		Endpoint: s.Profile.VoiceEndpoint,
	}
}
