package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/logger"
)

// DefaultLedgerSize bounds how many records the ledger keeps in memory.
const DefaultLedgerSize = 1024

// persistTimeout bounds a single write-through to the persister.
const persistTimeout = 5 * time.Second

// Record is an immutable entry in the ledger.
type Record struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Payload   Event     `json:"payload"`
}

// Persister defines how a record is durably stored.
type Persister interface {
	Append(ctx context.Context, r Record) error
}

// Ledger is the in-memory append-only log of bus events, optionally written
// through to a Persister.
type Ledger struct {
	mu        sync.RWMutex
	records   []Record
	limit     int
	persister Persister
	now       func() time.Time
	log       *logger.Logger

	// Persister writes drain in append order on one goroutine.
	backlog []Record
	wake    chan struct{}
	pending sync.WaitGroup
}

// NewLedger creates a ledger with an optional persister.
func NewLedger(persister Persister, log *logger.Logger) *Ledger {
	if log == nil {
		log = logger.NewNop()
	}
	l := &Ledger{
		records:   make([]Record, 0, 64),
		limit:     DefaultLedgerSize,
		persister: persister,
		now:       time.Now,
		log:       log.With("ledger"),
		wake:      make(chan struct{}, 1),
	}
	if persister != nil {
		go l.writeLoop()
	}
	return l
}

// SetClock replaces the clock used for timestamps.
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Append stamps ev and adds it to the log. Records are immutable once
// appended.
func (l *Ledger) Append(ev Event) Record {
	l.mu.Lock()
	r := Record{
		ID:        uuid.NewString(),
		Timestamp: l.now().UTC(),
		Type:      ev.Type(),
		Payload:   ev,
	}
	l.records = append(l.records, r)
	if over := len(l.records) - l.limit; over > 0 {
		l.records = append(l.records[:0:0], l.records[over:]...)
	}
	if l.persister != nil {
		l.pending.Add(1)
		l.backlog = append(l.backlog, r)
	}
	l.mu.Unlock()

	if l.persister != nil {
		select {
		case l.wake <- struct{}{}:
		default:
		}
	}
	return r
}

// writeLoop hands queued records to the persister one at a time, oldest
// first, so stored rows keep the order the bus published them in.
func (l *Ledger) writeLoop() {
	for range l.wake {
		for {
			l.mu.Lock()
			if len(l.backlog) == 0 {
				l.mu.Unlock()
				break
			}
			rec := l.backlog[0]
			l.backlog = l.backlog[1:]
			l.mu.Unlock()

			l.persist(rec)
			l.pending.Done()
		}
	}
}

func (l *Ledger) persist(rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := l.persister.Append(ctx, rec); err != nil {
		l.log.Errorf("persist %s %s: %v", rec.Type, rec.ID, err)
	}
}

// Flush waits for in-flight persister writes.
func (l *Ledger) Flush() {
	l.pending.Wait()
}

// ByType returns every retained record of the given type.
func (l *Ledger) ByType(t EventType) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []Record
	for _, r := range l.records {
		if r.Type == t {
			result = append(result, r)
		}
	}
	return result
}

// Recent returns up to n of the newest records, oldest first.
func (l *Ledger) Recent(n int) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.records) {
		n = len(l.records)
	}
	out := make([]Record, n)
	copy(out, l.records[len(l.records)-n:])
	return out
}

// Replay returns the full retained history.
func (l *Ledger) Replay() []Record {
	return l.Recent(0)
}

// Len reports how many records are retained.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
