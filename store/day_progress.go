package store

import "context"

// DayProgress tracks the multi-day interview variant for one user key:
// which days are finished plus a short digest of each finished day's
// user-authored lines. Never deleted by the application.
type DayProgress struct {
	Key           string         `json:"key"`
	CompletedDays []int          `json:"completedDays"`
	DaySummaries  map[int]string `json:"daySummaries"`
	UpdatedTs     int64          `json:"updatedTs"`
}

// GetDayProgress returns the progress record for key, or nil when the user
// has not completed anything yet.
func (s *Store) GetDayProgress(ctx context.Context, key string) (*DayProgress, error) {
	return s.driver.GetDayProgress(ctx, key)
}

// UpsertDayProgress stores the full progress record for its key.
func (s *Store) UpsertDayProgress(ctx context.Context, upsert *DayProgress) (*DayProgress, error) {
	return s.driver.UpsertDayProgress(ctx, upsert)
}
