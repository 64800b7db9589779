package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bill_spider/internal/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS bills (
	key         TEXT PRIMARY KEY,
	session     TEXT NOT NULL,
	bill_number INTEGER NOT NULL,
	chamber     TEXT NOT NULL,
	record      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bills_session_chamber ON bills(session, chamber, bill_number);

CREATE TABLE IF NOT EXISTS crawl_runs (
	id          TEXT PRIMARY KEY,
	incremental INTEGER NOT NULL,
	sessions    TEXT NOT NULL,
	started     TEXT NOT NULL,
	finished    TEXT NOT NULL,
	fetched     INTEGER NOT NULL,
	invalid     INTEGER NOT NULL,
	transient   INTEGER NOT NULL,
	malformed   INTEGER NOT NULL,
	total       INTEGER NOT NULL
);
`

// SQLiteStore keeps one row per bill with the record stored as JSON.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (models.BillSet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, record FROM bills`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bills := models.BillSet{}
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		var b models.BillRecord
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			return nil, fmt.Errorf("decode bill %s: %w", key, err)
		}
		bills[key] = &b
	}
	return bills, rows.Err()
}

// Save replaces the table contents inside one transaction.
func (s *SQLiteStore) Save(ctx context.Context, bills models.BillSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bills`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO bills (key, session, bill_number, chamber, record) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for key, b := range bills {
		raw, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("encode bill %s: %w", key, err)
		}
		if _, err := stmt.ExecContext(ctx, key, b.SessionLabel, b.BillNumber, string(b.Chamber), string(raw)); err != nil {
			return fmt.Errorf("insert bill %s: %w", key, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *models.CrawlRun) error {
	sessions := make([]string, len(run.Sessions))
	for i, id := range run.Sessions {
		sessions[i] = fmt.Sprint(id)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crawl_runs (id, incremental, sessions, started, finished, fetched, invalid, transient, malformed, total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Incremental, strings.Join(sessions, ","),
		run.Started.UTC().Format(time.RFC3339), run.Finished.UTC().Format(time.RFC3339),
		run.Fetched, run.Invalid, run.Transient, run.Malformed, run.Total,
	)
	return err
}

func (s *SQLiteStore) Runs(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM crawl_runs`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
