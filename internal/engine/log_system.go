package engine

import (
	"time"

	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/catalog"
	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"
	"github.com/MRamiBalles/ReactorIdle/server/internal/events"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/logger"
)

// LogSystem materializes narrative logs once their unlock conditions hold.
type LogSystem struct {
	bus     *events.Bus
	logger  *logger.Logger
	catalog *catalog.Catalog
	now     func() time.Time
}

// NewLogSystem creates the log/unlockable engine.
func NewLogSystem(bus *events.Bus, log *logger.Logger, cat *catalog.Catalog, now func() time.Time) *LogSystem {
	return &LogSystem{
		bus:     bus,
		logger:  log.With("logs"),
		catalog: cat,
		now:     now,
	}
}

// Evaluate discovers every log whose condition now holds and returns the
// ids discovered by this pass. Already discovered logs are skipped.
func (ls *LogSystem) Evaluate(s *state.GameState) []string {
	if s.Logs.Discovered == nil {
		ls.logger.Warn("logs.discovered missing, initializing")
		s.Logs.Discovered = make(map[string]*state.LogEntry)
	}

	var found []string
	for _, def := range ls.catalog.Logs() {
		if _, seen := s.Logs.Discovered[def.ID]; seen {
			continue
		}
		if !conditionHolds(s, def.Condition) {
			continue
		}
		s.Logs.Discovered[def.ID] = &state.LogEntry{
			ID:           def.ID,
			Title:        def.Title,
			Content:      def.Content,
			Category:     def.Category,
			DiscoveredAt: ls.now().UTC(),
		}
		s.Logs.Unread = append(s.Logs.Unread, def.ID)
		found = append(found, def.ID)
	}

	for _, id := range found {
		entry := s.Logs.Discovered[id]
		ls.logger.Event(string(events.EventTypeLogUnlocked), string(entry.Category), entry.Title)
		ls.bus.Publish(events.LogUnlocked{LogID: id, Category: entry.Category})
	}
	return found
}

func conditionHolds(s *state.GameState, cond catalog.LogCondition) bool {
	switch cond.Type {
	case catalog.LogResourceThreshold:
		c, ok := s.Category(cond.Category)
		return ok && c.Amount >= cond.Threshold
	case catalog.LogUpgradePurchased:
		c, ok := s.Category(cond.Category)
		return ok && c.Level(cond.Upgrade) > 0
	case catalog.LogMultiCondition:
		if cond.Operator == catalog.OperatorOr {
			for _, sub := range cond.Conditions {
				if conditionHolds(s, sub) {
					return true
				}
			}
			return false
		}
		for _, sub := range cond.Conditions {
			if !conditionHolds(s, sub) {
				return false
			}
		}
		return len(cond.Conditions) > 0
	}
	return false
}

// MarkRead flags a log read and drops it from the unread list. Unknown ids
// are ignored.
func (ls *LogSystem) MarkRead(s *state.GameState, id string) bool {
	entry, ok := s.Logs.Discovered[id]
	if !ok || entry == nil {
		return false
	}
	entry.Read = true
	kept := s.Logs.Unread[:0]
	for _, u := range s.Logs.Unread {
		if u != id {
			kept = append(kept, u)
		}
	}
	s.Logs.Unread = kept
	return true
}

// MarkAllRead flags every unread log read and returns how many changed.
func (ls *LogSystem) MarkAllRead(s *state.GameState) int {
	n := 0
	for _, id := range s.Logs.Unread {
		if entry, ok := s.Logs.Discovered[id]; ok && entry != nil && !entry.Read {
			entry.Read = true
			n++
		}
	}
	s.Logs.Unread = []string{}
	return n
}
