package views

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"imu-fusion/models"
)

const linearSchema = `
CREATE TABLE IF NOT EXISTS linear_acceleration (
	session      TEXT    NOT NULL,
	generation   INTEGER NOT NULL,
	timestamp_ns INTEGER NOT NULL,
	linear_x     REAL    NOT NULL,
	linear_y     REAL    NOT NULL,
	linear_z     REAL    NOT NULL,
	azimuth      REAL    NOT NULL,
	pitch        REAL    NOT NULL,
	roll         REAL    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_linear_session_ts ON linear_acceleration (session, timestamp_ns);
`

// SQLiteWriter stores records in a sqlite database. Rows are buffered in
// memory and inserted in one transaction per Flush.
type SQLiteWriter struct {
	mu      sync.Mutex
	db      *sql.DB
	session string
	pending []models.LinearRecord
	rows    uint64
}

// NewSQLiteWriter opens (or creates) the database at path and makes sure
// the table exists. session tags every row written through this writer.
func NewSQLiteWriter(path, session string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}
	if _, err := db.Exec(linearSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLiteWriter{db: db, session: session}, nil
}

func (w *SQLiteWriter) Write(rec *models.LinearRecord) error {
	w.mu.Lock()
	w.pending = append(w.pending, *rec)
	w.mu.Unlock()
	return nil
}

// Flush inserts every pending row in one transaction. If any step fails
// the batch stays pending, ahead of rows written since, and is retried
// by the next Flush. Rows counts committed rows only.
func (w *SQLiteWriter) Flush() error {
	w.mu.Lock()
	batch := w.pending
	w.pending = nil
	w.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if err := w.insert(batch); err != nil {
		w.mu.Lock()
		w.pending = append(batch, w.pending...)
		w.mu.Unlock()
		return err
	}

	w.mu.Lock()
	w.rows += uint64(len(batch))
	w.mu.Unlock()
	return nil
}

func (w *SQLiteWriter) insert(batch []models.LinearRecord) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO linear_acceleration
		(session, generation, timestamp_ns, linear_x, linear_y, linear_z, azimuth, pitch, roll)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range batch {
		if _, err := stmt.Exec(w.session, r.Generation, r.TimestampNs,
			r.Linear.X, r.Linear.Y, r.Linear.Z, r.Azimuth, r.Pitch, r.Roll); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlite insert generation %d: %w", r.Generation, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	return nil
}

func (w *SQLiteWriter) Close() error {
	ferr := w.Flush()
	if err := w.db.Close(); err != nil {
		return err
	}
	return ferr
}

// Pending returns how many rows are buffered but not yet committed.
func (w *SQLiteWriter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Rows returns how many rows have been committed.
func (w *SQLiteWriter) Rows() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// DB exposes the handle for read-back queries.
func (w *SQLiteWriter) DB() *sql.DB { return w.db }
