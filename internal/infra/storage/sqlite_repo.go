package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MRamiBalles/ReactorIdle/server/internal/events"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/metrics"
)

// SQLiteEventRepository implements EventRepository for SQLite. It is also
// the events.Persister behind the bus ledger.
type SQLiteEventRepository struct {
	db      *sql.DB
	metrics *metrics.Collector
}

func NewSQLiteEventRepository(db *sql.DB, m *metrics.Collector) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db, metrics: m}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, rec events.Record) error {
	err := r.append(ctx, rec)
	if r.metrics != nil {
		r.metrics.RecordEventWrite(err)
	}
	return err
}

func (r *SQLiteEventRepository) append(ctx context.Context, rec events.Record) error {
	payloadBytes, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `INSERT INTO events (id, timestamp, event_type, payload) VALUES (?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query, rec.ID, rec.Timestamp.UTC(), string(rec.Type), string(payloadBytes))
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]StoredEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var e StoredEvent
		var payloadStr string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.EventType, &payloadStr); err != nil {
			return nil, err
		}
		e.Payload = json.RawMessage(payloadStr)
		out = append(out, e)
	}
	return out, rows.Err()
}

// reverse flips a newest-first page so callers read oldest first.
func reverse(list []StoredEvent) []StoredEvent {
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list
}

func (r *SQLiteEventRepository) Recent(ctx context.Context, limit int) ([]StoredEvent, error) {
	query := `SELECT id, timestamp, event_type, payload FROM events ORDER BY timestamp DESC, rowid DESC LIMIT ?`
	list, err := r.getMany(ctx, query, limit)
	return reverse(list), err
}

func (r *SQLiteEventRepository) Since(ctx context.Context, t time.Time) ([]StoredEvent, error) {
	query := `SELECT id, timestamp, event_type, payload FROM events WHERE timestamp >= ? ORDER BY timestamp ASC, rowid ASC`
	return r.getMany(ctx, query, t.UTC())
}

func (r *SQLiteEventRepository) ByEventType(ctx context.Context, eventType string, limit int) ([]StoredEvent, error) {
	query := `SELECT id, timestamp, event_type, payload FROM events WHERE event_type = ? ORDER BY timestamp DESC, rowid DESC LIMIT ?`
	list, err := r.getMany(ctx, query, eventType, limit)
	return reverse(list), err
}

// Count reports how many events are stored.
func (r *SQLiteEventRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}
