package memory

import (
	"context"
	"time"

	"github.com/amani-glitch/botle-collector/store"
)

func (d *Driver) GetDayProgress(_ context.Context, key string) (*store.DayProgress, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.progress[key]
	if !ok {
		return nil, nil
	}
	return copyProgress(p), nil
}

func (d *Driver) UpsertDayProgress(_ context.Context, upsert *store.DayProgress) (*store.DayProgress, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p := copyProgress(upsert)
	p.UpdatedTs = time.Now().Unix()
	d.progress[p.Key] = p
	return copyProgress(p), nil
}

func copyProgress(p *store.DayProgress) *store.DayProgress {
	out := &store.DayProgress{
		Key:           p.Key,
		CompletedDays: append([]int(nil), p.CompletedDays...),
		DaySummaries:  make(map[int]string, len(p.DaySummaries)),
		UpdatedTs:     p.UpdatedTs,
	}
	for day, digest := range p.DaySummaries {
		out.DaySummaries[day] = digest
	}
	return out
}
