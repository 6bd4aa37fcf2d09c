package store

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned by mutations that reference an unknown
// session identifier.
var ErrSessionNotFound = errors.New("store: session not found")

// Driver is the storage backend interface. The interview service runs on the
// in-memory driver; the store is a cache/fallback, not the system of record
// when the spreadsheet sink is configured.
type Driver interface {
	CreateSession(ctx context.Context, create *InterviewSession) (*InterviewSession, error)
	GetSession(ctx context.Context, find *FindSession) (*InterviewSession, error)
	ListSessions(ctx context.Context, find *FindSession) ([]*InterviewSession, error)
	CompleteSession(ctx context.Context, sessionID string, summary *Summary) (*InterviewSession, error)

	AddMessage(ctx context.Context, sessionID, role, content string) (*Message, error)
	ListMessages(ctx context.Context, sessionID string) ([]*Message, error)

	GetDayProgress(ctx context.Context, key string) (*DayProgress, error)
	UpsertDayProgress(ctx context.Context, upsert *DayProgress) (*DayProgress, error)
}

// Store is the facade all services go through.
type Store struct {
	driver Driver
}

func New(driver Driver) *Store {
	return &Store{driver: driver}
}
