// Package profile holds the runtime configuration resolved once at startup.
package profile

import (
	"fmt"
	"net/url"

	"github.com/spf13/viper"
)

// Profile is the resolved server configuration. Secrets come from the
// environment; never from flags.
type Profile struct {
	// Addr is the binding address.
	Addr string
	// Port is the binding port.
	Port int
	// Mode is "prod" or "dev". Dev relaxes CORS to the configured origin.
	Mode string
	// Origin is the allowed browser origin for CORS and websocket upgrades.
	Origin string
	// DistDir is the built frontend directory; empty disables static serving.
	DistDir string

	// SessionSecret signs session tokens. Generated per-process when unset,
	// which invalidates tokens across restarts.
	SessionSecret string
	// AdminPassword gates the admin surface. Empty disables it entirely.
	AdminPassword string

	// AnthropicAPIKey enables the text interviewer when set.
	AnthropicAPIKey string
	// AnthropicModel is the text model identifier.
	AnthropicModel string

	// GeminiAPIKey enables the voice interviewer when set.
	GeminiAPIKey string
	// GeminiVoiceModel is the live-audio model identifier.
	GeminiVoiceModel string
	// VoiceName selects the prebuilt voice.
	VoiceName string
	// VoiceEndpoint overrides the live-audio websocket URL. Empty uses the
	// hosted default; set it to point the relay at a local stand-in.
	VoiceEndpoint string

	// SheetsCredentialsJSON is the service-account key material.
	SheetsCredentialsJSON string
	// SpreadsheetID is the target spreadsheet.
	SpreadsheetID string

	// MaxExchanges forces a summary once the user turn count exceeds it.
	MaxExchanges int
	// RateLimitPerMinute caps chat messages per client IP.
	RateLimitPerMinute int
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// Validate normalizes and checks the profile. Collaborator keys are allowed
// to be absent; the features they back degrade individually.
func (p *Profile) Validate() error {
	if p.Mode != "prod" && p.Mode != "dev" {
		p.Mode = "dev"
	}
	if p.Port <= 0 || p.Port > 65535 {
		return fmt.Errorf("invalid port %d", p.Port)
	}
	if p.Origin != "" {
		if _, err := url.Parse(p.Origin); err != nil {
			return fmt.Errorf("invalid origin %q: %w", p.Origin, err)
		}
	}
	if p.MaxExchanges <= 0 {
		p.MaxExchanges = 25
	}
	if p.RateLimitPerMinute <= 0 {
		p.RateLimitPerMinute = 30
	}
	return nil
}

// GetProfile resolves the profile from viper-bound flags and environment
// variables (prefix BOTLER, e.g. BOTLER_ADMIN_PASSWORD).
func GetProfile() (*Profile, error) {
	profile := &Profile{
		Addr:                  viper.GetString("addr"),
		Port:                  viper.GetInt("port"),
		Mode:                  viper.GetString("mode"),
		Origin:                viper.GetString("origin"),
		DistDir:               viper.GetString("dist"),
		SessionSecret:         viper.GetString("session-secret"),
		AdminPassword:         viper.GetString("admin-password"),
		AnthropicAPIKey:       viper.GetString("anthropic-api-key"),
		AnthropicModel:        viper.GetString("anthropic-model"),
		GeminiAPIKey:          viper.GetString("gemini-api-key"),
		GeminiVoiceModel:      viper.GetString("gemini-voice-model"),
		VoiceName:             viper.GetString("voice-name"),
		VoiceEndpoint:         viper.GetString("voice-endpoint"),
		SheetsCredentialsJSON: viper.GetString("sheets-credentials"),
		SpreadsheetID:         viper.GetString("spreadsheet-id"),
		MaxExchanges:          viper.GetInt("max-exchanges"),
		RateLimitPerMinute:    viper.GetInt("rate-limit"),
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}
