package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SetupSchema creates the champion table. It is idempotent and safe to call
// on an already-initialized database.
func SetupSchema(db *sql.DB) error {
	const schemaChampions = `
CREATE TABLE IF NOT EXISTS champions (
    champion_id INTEGER PRIMARY KEY,
    snapshot    TEXT    NOT NULL,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
	if _, err := db.Exec(schemaChampions); err != nil {
		return fmt.Errorf("could not create champions schema: %w", err)
	}
	return nil
}

// SQLiteBackend stores snapshots in a SQLite table using prepared statements.
type SQLiteBackend struct {
	db       *sql.DB
	ownsDB   bool
	stmtGet  *sql.Stmt
	stmtPut  *sql.Stmt
	stmtList *sql.Stmt
}

// NewSQLiteBackend prepares the statements it needs on db. SetupSchema must
// have been called first.
func NewSQLiteBackend(db *sql.DB) (*SQLiteBackend, error) {
	stmtGet, err := db.Prepare(`SELECT snapshot FROM champions WHERE champion_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtPut, err := db.Prepare(`INSERT INTO champions (champion_id, snapshot) VALUES (?, ?)
ON CONFLICT(champion_id) DO UPDATE SET snapshot = excluded.snapshot, updated_at = CURRENT_TIMESTAMP;`)
	if err != nil {
		_ = stmtGet.Close()
		return nil, err
	}

	stmtList, err := db.Prepare(`SELECT champion_id FROM champions ORDER BY champion_id;`)
	if err != nil {
		_ = stmtGet.Close()
		_ = stmtPut.Close()
		return nil, err
	}

	return &SQLiteBackend{
		db:       db,
		stmtGet:  stmtGet,
		stmtPut:  stmtPut,
		stmtList: stmtList,
	}, nil
}

func (b *SQLiteBackend) Get(ctx context.Context, id uint32) ([]byte, error) {
	var snapshot string
	err := b.stmtGet.QueryRowContext(ctx, int64(id)).Scan(&snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not query champion %d: %w", id, err)
	}
	return []byte(snapshot), nil
}

func (b *SQLiteBackend) Put(ctx context.Context, id uint32, snapshot []byte) error {
	_, err := b.stmtPut.ExecContext(ctx, int64(id), string(snapshot))
	return err
}

func (b *SQLiteBackend) List(ctx context.Context) ([]uint32, error) {
	rows, err := b.stmtList.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var ids []uint32
	for rows.Next() {
		var id int64
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, uint32(id))
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Close releases the prepared statements, and the database itself when the
// backend was created by Open.
func (b *SQLiteBackend) Close() error {
	_ = b.stmtGet.Close()
	_ = b.stmtPut.Close()
	_ = b.stmtList.Close()
	if b.ownsDB {
		return b.db.Close()
	}
	return nil
}
