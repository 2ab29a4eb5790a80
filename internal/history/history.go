// Package history keeps a time series of successfully fetched GPAs, one
// point per student per day, so movement on the leaderboard can be traced
// back over the semester.
package history

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS gpa_snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL,
	gpa REAL NOT NULL,
	taken_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_gpa_snapshots_username ON gpa_snapshots (username, taken_at);
`

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the snapshot database at path. `:memory:` works
// for tests.
func Open(path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return Store{}, err
	}
	_, err = db.Exec(schema)
	if err != nil {
		db.Close()
		return Store{}, err
	}
	return Store{db: db}, nil
}

func (s Store) Close() error {
	return s.db.Close()
}

func dayBounds(t time.Time) (int64, int64) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start.Unix(), start.AddDate(0, 0, 1).Unix()
}

// Push records a snapshot. Re-pushing within the same day replaces that
// day's point instead of stacking duplicates from repeated refreshes.
func (s Store) Push(ctx context.Context, username string, gpa float64, takenAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	startOfDay, startOfNextDay := dayBounds(takenAt)
	_, err = tx.ExecContext(ctx, `
DELETE FROM gpa_snapshots
WHERE username = ? AND taken_at >= ? AND taken_at < ?`,
		username, startOfDay, startOfNextDay,
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO gpa_snapshots (username, gpa, taken_at)
VALUES (?, ?, ?)`,
		username, gpa, takenAt.Unix(),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

type Snapshot struct {
	GPA     float64
	TakenAt time.Time
}

// Pull returns every snapshot for a student in chronological order.
func (s Store) Pull(ctx context.Context, username string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT gpa, taken_at FROM gpa_snapshots
WHERE username = ?
ORDER BY taken_at ASC`,
		username,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var gpa float64
		var takenAt int64
		err := rows.Scan(&gpa, &takenAt)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, Snapshot{
			GPA:     gpa,
			TakenAt: time.Unix(takenAt, 0).UTC(),
		})
	}
	return snapshots, rows.Err()
}
