package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"

	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"
)

// DefaultRetention is how many saves are kept when none is configured.
const DefaultRetention = 10

// SQLiteSaveStore keeps LZ4-compressed JSON snapshots of the game state,
// each with a BLAKE3 checksum of the uncompressed document.
type SQLiteSaveStore struct {
	db        *sql.DB
	retention int
	now       func() time.Time
}

// NewSQLiteSaveStore creates a store that prunes to the newest retention saves.
func NewSQLiteSaveStore(db *sql.DB, retention int) *SQLiteSaveStore {
	if retention < 1 {
		retention = DefaultRetention
	}
	return &SQLiteSaveStore{db: db, retention: retention, now: time.Now}
}

// Save writes a new snapshot and returns its id.
func (s *SQLiteSaveStore) Save(ctx context.Context, gs *state.GameState) (string, error) {
	if gs == nil {
		return "", errors.New("nothing to save")
	}
	raw, err := json.Marshal(gs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal state: %w", err)
	}
	packed, err := compressLZ4(raw)
	if err != nil {
		return "", fmt.Errorf("failed to compress state: %w", err)
	}

	id := uuid.NewString()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO saves (id, created_at, schema_version, checksum, raw_size, payload) VALUES (?, ?, ?, ?, ?, ?)`,
		id, s.now().UTC(), gs.Version, checksum(raw), len(raw), packed,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert save: %w", err)
	}

	// Keep only the newest saves.
	_, err = tx.ExecContext(ctx,
		`DELETE FROM saves WHERE id NOT IN (SELECT id FROM saves ORDER BY created_at DESC, rowid DESC LIMIT ?)`,
		s.retention,
	)
	if err != nil {
		return "", fmt.Errorf("failed to prune saves: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// Load returns the newest save, or (nil, nil) when there is none.
func (s *SQLiteSaveStore) Load(ctx context.Context) (*state.GameState, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, checksum, raw_size, payload FROM saves ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	return s.decode(row)
}

// LoadByID returns a specific save.
func (s *SQLiteSaveStore) LoadByID(ctx context.Context, id string) (*state.GameState, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, checksum, raw_size, payload FROM saves WHERE id = ?`, id)
	gs, err := s.decode(row)
	if err == nil && gs == nil {
		return nil, fmt.Errorf("save %s not found", id)
	}
	return gs, err
}

func (s *SQLiteSaveStore) decode(row *sql.Row) (*state.GameState, error) {
	var (
		id, sum string
		size    int
		packed  []byte
	)
	if err := row.Scan(&id, &sum, &size, &packed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read save: %w", err)
	}

	raw, err := decompressLZ4(packed, size)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress save %s: %w", id, err)
	}
	if checksum(raw) != sum {
		return nil, fmt.Errorf("save %s: %w", id, ErrChecksumMismatch)
	}

	var gs state.GameState
	if err := json.Unmarshal(raw, &gs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal save %s: %w", id, err)
	}
	return &gs, nil
}

// List returns save metadata, newest first.
func (s *SQLiteSaveStore) List(ctx context.Context) ([]SaveInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, schema_version, checksum, raw_size FROM saves ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var saves []SaveInfo
	for rows.Next() {
		var info SaveInfo
		if err := rows.Scan(&info.ID, &info.CreatedAt, &info.SchemaVersion, &info.Checksum, &info.RawSize); err != nil {
			return nil, err
		}
		saves = append(saves, info)
	}
	return saves, rows.Err()
}

func compressLZ4(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressLZ4(src []byte, sizeHint int) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(src))
	var out bytes.Buffer
	if sizeHint > 0 {
		out.Grow(sizeHint)
	}
	if _, err := io.Copy(&out, r); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
