package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/amani-glitch/botle-collector/interview"
	"github.com/amani-glitch/botle-collector/plugin/llm"
	"github.com/amani-glitch/botle-collector/plugin/sheets"
	"github.com/amani-glitch/botle-collector/server"
	"github.com/amani-glitch/botle-collector/server/profile"
	"github.com/amani-glitch/botle-collector/store"
	"github.com/amani-glitch/botle-collector/store/db/memory"
)

var rootCmd = &cobra.Command{
	Use:   "botler",
	Short: "AI-guided workflow interview server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := profile.GetProfile()
		if err != nil {
			return fmt.Errorf("resolve profile: %w", err)
		}
		return run(cmd.Context(), p)
	},
}

func init() {
	// Secrets come from the environment only; flags cover the rest.
	rootCmd.PersistentFlags().String("addr", "", "binding address")
	rootCmd.PersistentFlags().Int("port", 8080, "binding port")
	rootCmd.PersistentFlags().String("mode", "dev", "server mode: dev or prod")
	rootCmd.PersistentFlags().String("origin", "", "allowed browser origin")
	rootCmd.PersistentFlags().String("dist", "./dist", "built frontend directory")
	rootCmd.PersistentFlags().String("anthropic-model", "claude-sonnet-4-20250514", "text interview model")
	rootCmd.PersistentFlags().String("gemini-voice-model", "models/gemini-2.0-flash-live-001", "voice interview model")
	rootCmd.PersistentFlags().String("voice-name", "Kore", "prebuilt voice")
	rootCmd.PersistentFlags().Int("max-exchanges", 25, "user turns before a summary is forced")
	rootCmd.PersistentFlags().Int("rate-limit", 30, "chat messages per minute per client IP")

	for _, flag := range []string{
		"addr", "port", "mode", "origin", "dist",
		"anthropic-model", "gemini-voice-model", "voice-name",
		"max-exchanges", "rate-limit",
	} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("botler")
	viper.SetEnvKeyReplacer(envKeyReplacer{}.replacer())
	viper.AutomaticEnv()

	// Secret-bearing settings have no flag on purpose.
	for _, key := range []string{
		"session-secret", "admin-password", "anthropic-api-key",
		"gemini-api-key", "sheets-credentials", "spreadsheet-id",
		"voice-endpoint",
	} {
		if err := viper.BindEnv(key); err != nil {
			panic(err)
		}
	}
}

// envKeyReplacer maps flag-style keys to env-style: "admin-password"
// becomes BOTLER_ADMIN_PASSWORD.
type envKeyReplacer struct{}

// replacer adapts envKeyReplacer to the *strings.Replacer type that the
// global viper's SetEnvKeyReplacer requires; the replacement rule is the
// same dash-to-underscore mapping Replace implements.
func (envKeyReplacer) replacer() *strings.Replacer {
	return strings.NewReplacer("-", "_")
}

func (envKeyReplacer) Replace(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '-' {
			out[i] = '_'
		} else {
			out[i] = s[i]
		}
	}
	return string(out)
}

func run(ctx context.Context, p *profile.Profile) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := store.New(memory.NewDriver())
	sink := sheets.NewSink(ctx, p.SheetsCredentialsJSON, p.SpreadsheetID)

	var client llm.Client = llm.Unconfigured{}
	if p.AnthropicAPIKey != "" {
		anthropicClient, err := llm.NewAnthropicClient(p.AnthropicAPIKey, p.AnthropicModel)
		if err != nil {
			return fmt.Errorf("anthropic client: %w", err)
		}
		client = anthropicClient
	} else {
		slog.Warn("ANTHROPIC_API_KEY not set, text interview disabled")
	}

	coordinator := interview.NewCoordinator(st, client, sink, p.MaxExchanges)
	srv := server.NewServer(p, st, coordinator, sink)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Warn("shutdown incomplete", "err", err)
		}
	}
	return nil
}

func main() {
	// Missing .env is fine; production injects real environment variables.
	_ = godotenv.Load()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := rootCmd.Execute(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}
