package db

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Conflict status values for sync_metadata rows.
const (
	ConflictNone           = "none"
	ConflictDetected       = "conflict"
	ConflictResolvedLocal  = "resolved-local"
	ConflictResolvedRemote = "resolved-remote"
)

// SyncMetadata is the persisted last-known state of one tracked
// record: the hash pair observed at the previous reconciliation and
// the current conflict status. (table_name, record_key) is unique, so
// there is at most one row per record.
type SyncMetadata struct {
	ID             int64
	TableName      string
	RecordKey      string
	LastJSONHash   string // empty means the record was absent locally
	LastDBHash     string // empty means the record was absent remotely
	LastSyncAt     time.Time
	ConflictStatus string
}

// GetSyncMetadata looks up the metadata row for one record. A missing
// row is (nil, nil): first observation, not an error.
func (db *DB) GetSyncMetadata(ctx context.Context, tableName, recordKey string) (*SyncMetadata, error) {
	query := db.rebind(`
	SELECT id, table_name, record_key, last_json_hash, last_db_hash, last_sync_at, conflict_status
	FROM sync_metadata
	WHERE table_name = ? AND record_key = ?
	`)

	meta, err := scanSyncMetadata(db.q.QueryRowContext(ctx, query, tableName, recordKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &QueryError{Op: "get sync metadata", Err: err}
	}
	return meta, nil
}

// UpsertSyncMetadata records the newly observed hash pair, timestamp
// and conflict status for a record. The UNIQUE constraint on
// (table_name, record_key) makes this idempotent under concurrent
// re-runs: an existing row is updated, never duplicated.
func (db *DB) UpsertSyncMetadata(ctx context.Context, meta *SyncMetadata) error {
	if meta.ConflictStatus == "" {
		meta.ConflictStatus = ConflictNone
	}
	if meta.LastSyncAt.IsZero() {
		meta.LastSyncAt = time.Now().UTC()
	}

	query := db.rebind(`
	INSERT INTO sync_metadata (
		table_name, record_key, last_json_hash, last_db_hash, last_sync_at, conflict_status
	) VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (table_name, record_key) DO UPDATE SET
		last_json_hash = excluded.last_json_hash,
		last_db_hash = excluded.last_db_hash,
		last_sync_at = excluded.last_sync_at,
		conflict_status = excluded.conflict_status
	`)

	_, err := db.q.ExecContext(ctx, query,
		meta.TableName,
		meta.RecordKey,
		nullString(meta.LastJSONHash),
		nullString(meta.LastDBHash),
		meta.LastSyncAt.UTC().Format(time.RFC3339Nano),
		meta.ConflictStatus,
	)
	if err != nil {
		return &QueryError{Op: "upsert sync metadata", Err: err}
	}
	return nil
}

// ListConflicts returns every metadata row currently flagged as
// conflicting, oldest first.
func (db *DB) ListConflicts(ctx context.Context, tableName string) ([]*SyncMetadata, error) {
	query := db.rebind(`
	SELECT id, table_name, record_key, last_json_hash, last_db_hash, last_sync_at, conflict_status
	FROM sync_metadata
	WHERE table_name = ? AND conflict_status = ?
	ORDER BY last_sync_at ASC
	`)

	rows, err := db.q.QueryContext(ctx, query, tableName, ConflictDetected)
	if err != nil {
		return nil, &QueryError{Op: "list conflicts", Err: err}
	}
	defer rows.Close()

	var conflicts []*SyncMetadata
	for rows.Next() {
		meta, err := scanSyncMetadata(rows)
		if err != nil {
			return nil, &QueryError{Op: "list conflicts", Err: err}
		}
		conflicts = append(conflicts, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Op: "list conflicts", Err: err}
	}
	return conflicts, nil
}

func scanSyncMetadata(row rowScanner) (*SyncMetadata, error) {
	var (
		meta       SyncMetadata
		jsonHash   sql.NullString
		dbHash     sql.NullString
		lastSyncAt string
	)

	err := row.Scan(
		&meta.ID,
		&meta.TableName,
		&meta.RecordKey,
		&jsonHash,
		&dbHash,
		&lastSyncAt,
		&meta.ConflictStatus,
	)
	if err != nil {
		return nil, err
	}

	meta.LastJSONHash = jsonHash.String
	meta.LastDBHash = dbHash.String
	if t, err := time.Parse(time.RFC3339Nano, lastSyncAt); err == nil {
		meta.LastSyncAt = t
	}
	return &meta, nil
}
