package worker

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"events-report/internal/config"
	"events-report/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const reportsSchema = `
CREATE TABLE IF NOT EXISTS reports (
    id          TEXT PRIMARY KEY,
    created_at  INTEGER NOT NULL,
    num_clients INTEGER NOT NULL,
    num_dhcp    INTEGER NOT NULL,
    format      TEXT    NOT NULL,
    payload     BLOB    NOT NULL
);
CREATE INDEX IF NOT EXISTS reports_created_at ON reports (created_at);
`

// SQLiteTransport 는 report 하나를 reports 테이블의 row 하나로 남긴다.
type SQLiteTransport struct {
	db *sql.DB
}

func NewSQLiteTransport(path string) (*SQLiteTransport, error) {
	if dir := filepath.Dir(path); dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlite open %s: %w", path, err)
	}
	// 쓰는 쪽은 deliverLoop 하나
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(reportsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	return &SQLiteTransport{db: db}, nil
}

func (t *SQLiteTransport) Name() string { return config.SinkSQLite }

func (t *SQLiteTransport) Deliver(ctx context.Context, p *model.Payload) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO reports (id, created_at, num_clients, num_dhcp, format, payload) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ReportID, p.CreatedAt, p.NumClients, p.NumDhcp, p.Format, p.Body,
	)
	if err != nil {
		return fmt.Errorf("sqlite insert report %s: %w", p.ReportID, err)
	}
	return nil
}

func (t *SQLiteTransport) Close() error {
	return t.db.Close()
}
