// Package memory implements the store driver as process-lifetime maps.
// All state is lost on restart; when the spreadsheet sink is configured it
// is the durable mirror, and this driver acts as the read cache/fallback.
package memory

import (
	"sync"

	"github.com/amani-glitch/botle-collector/store"
)

// Driver holds every session, message log, and progress record in memory.
// A single RWMutex guards all three maps so an append is atomic with
// respect to readers.
type Driver struct {
	mu       sync.RWMutex
	sessions map[string]*store.InterviewSession
	messages map[string][]*store.Message
	progress map[string]*store.DayProgress
	order    []string // session IDs in creation order
}

func NewDriver() *Driver {
	return &Driver{
		sessions: make(map[string]*store.InterviewSession),
		messages: make(map[string][]*store.Message),
		progress: make(map[string]*store.DayProgress),
	}
}
