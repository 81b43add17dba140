//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

func openSQLite(cfg Config, log zerolog.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer; this also gives us the store-level
	// one-in-flight-write guarantee for free.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Reminders(ctx context.Context) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT time, message, number FROM reminders ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Reminder
	for rows.Next() {
		var r Reminder
		if err := rows.Scan(&r.Time, &r.Message, &r.Number); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) AppendReminder(ctx context.Context, r Reminder) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders(time, message, number) VALUES(?,?,?)`,
		r.Time, r.Message, r.Number,
	)
	return err
}

func (s *sqliteStore) Alerts(ctx context.Context) ([]StockAlert, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol, target, stoploss, number FROM stock_alerts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StockAlert
	for rows.Next() {
		var a StockAlert
		if err := rows.Scan(&a.Symbol, &a.Target, &a.StopLoss, &a.Number); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *sqliteStore) AppendAlert(ctx context.Context, a StockAlert) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stock_alerts(symbol, target, stoploss, number) VALUES(?,?,?,?)`,
		a.Symbol, a.Target, a.StopLoss, a.Number,
	)
	return err
}

func (s *sqliteStore) ReplaceAlerts(ctx context.Context, alerts []StockAlert) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stock_alerts`); err != nil {
		return err
	}
	for _, a := range alerts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stock_alerts(symbol, target, stoploss, number) VALUES(?,?,?,?)`,
			a.Symbol, a.Target, a.StopLoss, a.Number,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}
