package interview

import (
	"fmt"
	"sort"
	"strings"

	"github.com/amani-glitch/botle-collector/store"
)

// TotalDays is the number of topics in the multi-day interview variant.
const TotalDays = 5

// digestLimit caps the per-day digest carried into later days.
const digestLimit = 500

var dayLabels = map[int]string{
	1: "Introduction & Big Picture",
	2: "Deep Dive on Tasks",
	3: "Pain Points & Workarounds",
	4: "Collaboration & Communication",
	5: "Tools & Wishes",
}

// DayLabel returns the topic name for a day, or "" for out-of-range days.
func DayLabel(day int) string {
	return dayLabels[day]
}

// DayTitle returns the full "Day N: Topic" title.
func DayTitle(day int) string {
	return fmt.Sprintf("Day %d: %s", day, DayLabel(day))
}

// DayCompleted reports whether the given day is in the completed set.
func DayCompleted(p *store.DayProgress, day int) bool {
	if p == nil {
		return false
	}
	for _, d := range p.CompletedDays {
		if d == day {
			return true
		}
	}
	return false
}

// IsUnlocked reports whether a day can be started: day 1 always, day N only
// once day N-1 is completed.
func IsUnlocked(p *store.DayProgress, day int) bool {
	if day < 1 || day > TotalDays {
		return false
	}
	if day == 1 {
		return true
	}
	return DayCompleted(p, day-1)
}

// NextDay returns the first not-yet-completed day, or TotalDays when all
// days are done.
func NextDay(p *store.DayProgress) int {
	for day := 1; day <= TotalDays; day++ {
		if !DayCompleted(p, day) {
			return day
		}
	}
	return TotalDays
}

// DayDigest condenses a day's transcript into the rolling context string:
// the first 500 characters of the concatenated user-authored lines.
func DayDigest(transcript []*store.Message) string {
	var sb strings.Builder
	for _, m := range transcript {
		if m.Role != "user" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(m.Content)
	}
	digest := sb.String()
	if runes := []rune(digest); len(runes) > digestLimit {
		digest = string(runes[:digestLimit])
	}
	return digest
}

// CompleteDay records a finished day: adds it to the completed set and
// stores the transcript digest. Completing an already-completed day
// refreshes its digest.
func CompleteDay(p *store.DayProgress, key string, day int, transcript []*store.Message) *store.DayProgress {
	if p == nil {
		p = &store.DayProgress{Key: key}
	}
	if p.DaySummaries == nil {
		p.DaySummaries = make(map[int]string)
	}
	if !DayCompleted(p, day) {
		p.CompletedDays = append(p.CompletedDays, day)
		sort.Ints(p.CompletedDays)
	}
	p.DaySummaries[day] = DayDigest(transcript)
	return p
}

// PriorDayContext concatenates the digests of completed days in day order,
// for injection into the next day's opening instruction.
func PriorDayContext(p *store.DayProgress) string {
	if p == nil {
		return ""
	}
	var sb strings.Builder
	for _, day := range p.CompletedDays {
		digest := p.DaySummaries[day]
		if digest == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%s: %s", DayTitle(day), digest))
	}
	return sb.String()
}
