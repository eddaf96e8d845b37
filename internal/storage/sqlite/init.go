package sqlite

import (
	"database/sql"
	"fmt"

	// Import the SQLite driver.
	_ "github.com/mattn/go-sqlite3"
)

// Hooks for different torrents may finish at the same moment; the busy
// timeout lets concurrent processes queue on the write lock.
const dsnOptions = "?_busy_timeout=5000&_journal_mode=WAL"

// InitDB opens the journal at path and creates the attempts table if it doesn't exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+path+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS notify_attempts (
		id INTEGER PRIMARY KEY,
		request_id TEXT NOT NULL,
		item_name TEXT,
		item_dir TEXT,
		attempt INTEGER NOT NULL,
		status_code INTEGER,
		error TEXT,
		outcome TEXT NOT NULL,
		attempted_at TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()

		return nil, fmt.Errorf("failed to create notify_attempts table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_notify_attempts_request_id ON notify_attempts (request_id)`)
	if err != nil {
		db.Close()

		return nil, fmt.Errorf("failed to create notify_attempts index: %w", err)
	}

	return db, nil
}
