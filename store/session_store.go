package store

import "context"

// CreateSession inserts a new session record with status "active" and an
// empty message log.
func (s *Store) CreateSession(ctx context.Context, create *InterviewSession) (*InterviewSession, error) {
	return s.driver.CreateSession(ctx, create)
}

// GetSession returns the first session matching the given filter, or nil.
func (s *Store) GetSession(ctx context.Context, find *FindSession) (*InterviewSession, error) {
	return s.driver.GetSession(ctx, find)
}

// ListSessions lists sessions matching the given filter, newest first.
func (s *Store) ListSessions(ctx context.Context, find *FindSession) ([]*InterviewSession, error) {
	return s.driver.ListSessions(ctx, find)
}

// AddMessage appends a turn to the session's log. For role "user" it also
// increments the exchange count; this is the only path that mutates it.
// Returns ErrSessionNotFound for unknown sessions.
func (s *Store) AddMessage(ctx context.Context, sessionID, role, content string) (*Message, error) {
	return s.driver.AddMessage(ctx, sessionID, role, content)
}

// ListMessages returns all messages for a session, ordered by index.
func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]*Message, error) {
	return s.driver.ListMessages(ctx, sessionID)
}

// CompleteSession marks the session completed and stores its summary.
// Idempotent at the storage level: a second call overwrites the summary and
// leaves the status completed. The coordinator, not the store, guarantees
// summary generation runs at most once.
func (s *Store) CompleteSession(ctx context.Context, sessionID string, summary *Summary) (*InterviewSession, error) {
	return s.driver.CompleteSession(ctx, sessionID, summary)
}
