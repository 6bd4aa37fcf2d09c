// Package sheets mirrors session, message, and summary events into a Google
// spreadsheet. Every write is best-effort: failures are logged and swallowed,
// and a sink that could not connect at startup stays offline for the rest of
// the process lifetime.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2/google"
	sheetsapi "google.golang.org/api/sheets/v4"
	"google.golang.org/api/option"

	"github.com/amani-glitch/botle-collector/store"
)

const (
	tabSessions      = "Sessions"
	tabResponses     = "Responses"
	tabSummary       = "Summary"
	tabTaskInventory = "TaskInventory"

	// Google caps cell content; long assistant replies are truncated.
	maxCellRunes = 50000
)

var tabHeaders = map[string][]string{
	tabSessions:      {"sessionId", "firstName", "lastName", "email", "role", "department", "tenure", "startTime"},
	tabResponses:     {"sessionId", "msgIndex", "role", "content", "phase", "timestamp"},
	tabSummary:       {"sessionId", "firstName", "lastName", "role", "department", "summaryJson", "timestamp"},
	tabTaskInventory: {"sessionId", "step", "durationMin", "tools", "manual", "timestamp"},
}

// Sink is the spreadsheet write handle. A nil service means the sink is
// offline and every operation degrades to a local log line.
type Sink struct {
	svc           *sheetsapi.Service
	spreadsheetID string

	mu      sync.Mutex
	ensured map[string]bool // tabs known to exist with headers
}

// NewSink connects to the spreadsheet using a service-account credentials
// JSON blob. Missing configuration or a failed connection yields an offline
// sink, never an error; the process runs with the in-memory store only.
func NewSink(ctx context.Context, credentialsJSON, spreadsheetID string) *Sink {
	if credentialsJSON == "" || spreadsheetID == "" {
		slog.Warn("sheets: missing credentials or spreadsheet id, running in offline mode")
		return NewOffline()
	}

	conf, err := google.JWTConfigFromJSON([]byte(credentialsJSON), sheetsapi.SpreadsheetsScope)
	if err != nil {
		slog.Warn("sheets: invalid service account credentials, running in offline mode", "err", err)
		return NewOffline()
	}
	svc, err := sheetsapi.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		slog.Warn("sheets: failed to build client, running in offline mode", "err", err)
		return NewOffline()
	}

	// Probe the spreadsheet once so a bad id degrades at boot, not on the
	// first interview.
	meta, err := svc.Spreadsheets.Get(spreadsheetID).Fields("properties.title").Context(ctx).Do()
	if err != nil {
		slog.Warn("sheets: failed to open spreadsheet, running in offline mode", "err", err)
		return NewOffline()
	}
	slog.Info("sheets: connected", "spreadsheet", meta.Properties.Title)

	return &Sink{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		ensured:       make(map[string]bool),
	}
}

// NewOffline returns a sink whose writes are local-log no-ops.
func NewOffline() *Sink {
	return &Sink{ensured: make(map[string]bool)}
}

// Online reports whether the spreadsheet connection was established at boot.
func (s *Sink) Online() bool {
	return s.svc != nil
}

// LogSessionCreated appends a row to the Sessions tab.
func (s *Sink) LogSessionCreated(ctx context.Context, sess *store.InterviewSession) {
	if !s.Online() {
		slog.Info("sheets[offline]: logSessionCreated", "session", sess.ID)
		return
	}
	u := sess.User
	err := s.appendRow(ctx, tabSessions, []interface{}{
		sess.ID, u.FirstName, u.LastName, u.Email, u.Role, u.Department, u.Tenure,
		time.Unix(sess.CreatedTs, 0).UTC().Format(time.RFC3339),
	})
	if err != nil {
		slog.Warn("sheets: logSessionCreated failed", "session", sess.ID, "err", err)
	}
}

// LogMessage appends a row to the Responses tab, tagged with the phase the
// exchange landed in.
func (s *Sink) LogMessage(ctx context.Context, msg *store.Message, phase int) {
	if !s.Online() {
		slog.Info("sheets[offline]: logMessage", "session", msg.SessionID, "index", msg.Index, "role", msg.Role)
		return
	}
	content := msg.Content
	if len([]rune(content)) > maxCellRunes {
		content = string([]rune(content)[:maxCellRunes])
	}
	err := s.appendRow(ctx, tabResponses, []interface{}{
		msg.SessionID, msg.Index, msg.Role, content, phase,
		time.Unix(msg.CreatedTs, 0).UTC().Format(time.RFC3339),
	})
	if err != nil {
		slog.Warn("sheets: logMessage failed", "session", msg.SessionID, "index", msg.Index, "err", err)
	}
}

// LogSummary appends the JSON-serialized summary to the Summary tab, and
// fans the process map out into TaskInventory rows.
func (s *Sink) LogSummary(ctx context.Context, sess *store.InterviewSession, summary *store.Summary) {
	if !s.Online() {
		slog.Info("sheets[offline]: logSummary", "session", sess.ID)
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		slog.Warn("sheets: logSummary marshal failed", "session", sess.ID, "err", err)
		return
	}
	u := sess.User
	now := time.Now().UTC().Format(time.RFC3339)
	if err := s.appendRow(ctx, tabSummary, []interface{}{
		sess.ID, u.FirstName, u.LastName, u.Role, u.Department, string(raw), now,
	}); err != nil {
		slog.Warn("sheets: logSummary failed", "session", sess.ID, "err", err)
		return
	}

	for _, step := range summary.ProcessMap {
		tools := ""
		for i, tool := range step.Tools {
			if i > 0 {
				tools += ", "
			}
			tools += tool
		}
		if err := s.appendRow(ctx, tabTaskInventory, []interface{}{
			sess.ID, step.Step, step.DurationMin, tools, step.Manual, now,
		}); err != nil {
			slog.Warn("sheets: logTaskInventory failed", "session", sess.ID, "err", err)
			return
		}
	}
}

// ListSessions reads the Sessions tab back into session records. Callers
// fall back to the in-memory store when the sink is offline, errors, or
// has no rows.
func (s *Sink) ListSessions(ctx context.Context) ([]*store.InterviewSession, error) {
	if !s.Online() {
		return nil, fmt.Errorf("sheets: sink is offline")
	}
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, tabSessions+"!A2:H").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: reading sessions: %w", err)
	}

	list := make([]*store.InterviewSession, 0, len(resp.Values))
	for _, row := range resp.Values {
		sess := &store.InterviewSession{Status: store.SessionActive}
		sess.ID = cell(row, 0)
		sess.User = store.UserProfile{
			FirstName:  cell(row, 1),
			LastName:   cell(row, 2),
			Email:      cell(row, 3),
			Role:       cell(row, 4),
			Department: cell(row, 5),
			Tenure:     cell(row, 6),
		}
		if ts, err := time.Parse(time.RFC3339, cell(row, 7)); err == nil {
			sess.CreatedTs = ts.Unix()
		}
		if sess.ID != "" {
			list = append(list, sess)
		}
	}
	return list, nil
}

func (s *Sink) appendRow(ctx context.Context, tab string, values []interface{}) error {
	if err := s.ensureTab(ctx, tab); err != nil {
		return err
	}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, tab+"!A1", &sheetsapi.ValueRange{
		Values: [][]interface{}{values},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: appending to %s: %w", tab, err)
	}
	return nil
}

// ensureTab creates the tab with its header row on first use.
func (s *Sink) ensureTab(ctx context.Context, tab string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured[tab] {
		return nil
	}

	meta, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: listing tabs: %w", err)
	}
	exists := false
	for _, sheet := range meta.Sheets {
		if sheet.Properties.Title == tab {
			exists = true
			break
		}
	}

	if !exists {
		_, err = s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
			Requests: []*sheetsapi.Request{{
				AddSheet: &sheetsapi.AddSheetRequest{
					Properties: &sheetsapi.SheetProperties{Title: tab},
				},
			}},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("sheets: creating tab %s: %w", tab, err)
		}

		header := make([]interface{}, 0, len(tabHeaders[tab]))
		for _, h := range tabHeaders[tab] {
			header = append(header, h)
		}
		_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, tab+"!A1", &sheetsapi.ValueRange{
			Values: [][]interface{}{header},
		}).ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("sheets: writing header for %s: %w", tab, err)
		}
	}

	s.ensured[tab] = true
	return nil
}

func cell(row []interface{}, i int) string {
	if i >= len(row) {
		return ""
	}
	switch v := row[i].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
