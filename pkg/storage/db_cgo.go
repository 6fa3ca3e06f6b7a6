//go:build cgo_sqlite

package storage

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

const sqlitePragmas = "_journal_mode=WAL&_busy_timeout=5000"

func openSQLite(dataSource string) (*sql.DB, error) {
	return sql.Open("sqlite3", dataSource)
}
