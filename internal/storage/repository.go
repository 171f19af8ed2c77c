// Package storage is the local SQLite cache of the tracker. It is always
// available and written synchronously on every mutation.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"peatracker/internal/core"
	"peatracker/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// WAL lets the worker read while the API writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) LoadConfig(ctx context.Context) (*core.AccountConfig, error) {
	var startDate, startCapital, startDeposited string
	err := r.db.QueryRowContext(ctx,
		`SELECT start_date, start_capital, start_deposited FROM account_config WHERE id = 1`,
	).Scan(&startDate, &startCapital, &startDeposited)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg, err := parseConfig(startDate, startCapital, startDeposited)
	if err != nil {
		slog.WarnContext(ctx, "Skipping malformed account config", "error", err)
		return nil, nil
	}
	return cfg, nil
}

func parseConfig(startDate, startCapital, startDeposited string) (*core.AccountConfig, error) {
	date, err := core.ParseDate(startDate)
	if err != nil {
		return nil, err
	}
	capital, err := decimal.NewFromString(startCapital)
	if err != nil {
		return nil, fmt.Errorf("start capital: %w", err)
	}
	deposited, err := decimal.NewFromString(startDeposited)
	if err != nil {
		return nil, fmt.Errorf("start deposited: %w", err)
	}
	return &core.AccountConfig{StartDate: date, StartCapital: capital, StartDeposited: deposited}, nil
}

func (r *SQLiteRepository) SaveConfig(ctx context.Context, cfg core.AccountConfig) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO account_config (id, start_date, start_capital, start_deposited, updated_at)
		VALUES (1, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			start_date = excluded.start_date,
			start_capital = excluded.start_capital,
			start_deposited = excluded.start_deposited,
			updated_at = CURRENT_TIMESTAMP`,
		cfg.StartDate.String(), cfg.StartCapital.String(), cfg.StartDeposited.String())
	if err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteConfig(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM account_config`); err != nil {
		return fmt.Errorf("delete config: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) LoadEntries(ctx context.Context) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT date, capital, note FROM entries ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		var date, capital, note string
		if err := rows.Scan(&date, &capital, &note); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e, err := parseEntry(date, capital, note)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed entry", "date", date, "error", err)
			continue
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

func parseEntry(date, capital, note string) (core.Entry, error) {
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Entry{}, err
	}
	c, err := decimal.NewFromString(capital)
	if err != nil {
		return core.Entry{}, fmt.Errorf("capital: %w", err)
	}
	return core.Entry{Date: d, Capital: c, Note: note}, nil
}

// LoadEntry implements store.RecordReader.
func (r *SQLiteRepository) LoadEntry(ctx context.Context, date core.Date) (core.Entry, error) {
	var d, capital, note string
	err := r.db.QueryRowContext(ctx,
		`SELECT date, capital, note FROM entries WHERE date = ?`, date.String(),
	).Scan(&d, &capital, &note)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, store.ErrNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("load entry %s: %w", date, err)
	}
	e, err := parseEntry(d, capital, note)
	if err != nil {
		return core.Entry{}, fmt.Errorf("entry %s: %w", date, err)
	}
	return e, nil
}

func (r *SQLiteRepository) UpsertEntry(ctx context.Context, e core.Entry) error {
	return upsertEntry(ctx, r.db, e)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertEntry(ctx context.Context, db execer, e core.Entry) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO entries (date, capital, note, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(date) DO UPDATE SET
			capital = excluded.capital,
			note = excluded.note,
			updated_at = CURRENT_TIMESTAMP`,
		e.Date.String(), e.Capital.String(), e.Note)
	if err != nil {
		return fmt.Errorf("upsert entry %s: %w", e.Date, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteEntry(ctx context.Context, date core.Date) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE date = ?`, date.String()); err != nil {
		return fmt.Errorf("delete entry %s: %w", date, err)
	}
	return nil
}

func (r *SQLiteRepository) LoadDeposits(ctx context.Context) ([]core.Deposit, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, date, amount, note FROM deposits ORDER BY date, rowid`)
	if err != nil {
		return nil, fmt.Errorf("load deposits: %w", err)
	}
	defer rows.Close()

	var out []core.Deposit
	for rows.Next() {
		var id, date, amount, note string
		if err := rows.Scan(&id, &date, &amount, &note); err != nil {
			return nil, fmt.Errorf("scan deposit: %w", err)
		}
		d, err := parseDeposit(id, date, amount, note)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed deposit", "id", id, "error", err)
			continue
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deposits: %w", err)
	}
	return out, nil
}

func parseDeposit(id, date, amount, note string) (core.Deposit, error) {
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Deposit{}, err
	}
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Deposit{}, fmt.Errorf("amount: %w", err)
	}
	return core.Deposit{ID: id, Date: d, Amount: a, Note: note}, nil
}

// LoadDeposit implements store.RecordReader.
func (r *SQLiteRepository) LoadDeposit(ctx context.Context, id string) (core.Deposit, error) {
	var date, amount, note string
	err := r.db.QueryRowContext(ctx,
		`SELECT date, amount, note FROM deposits WHERE id = ?`, id,
	).Scan(&date, &amount, &note)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Deposit{}, store.ErrNotFound
	}
	if err != nil {
		return core.Deposit{}, fmt.Errorf("load deposit %s: %w", id, err)
	}
	d, err := parseDeposit(id, date, amount, note)
	if err != nil {
		return core.Deposit{}, fmt.Errorf("deposit %s: %w", id, err)
	}
	return d, nil
}

func (r *SQLiteRepository) UpsertDeposit(ctx context.Context, d core.Deposit) error {
	return upsertDeposit(ctx, r.db, d)
}

func upsertDeposit(ctx context.Context, db execer, d core.Deposit) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO deposits (id, date, amount, note)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			amount = excluded.amount,
			note = excluded.note`,
		d.ID, d.Date.String(), d.Amount.String(), d.Note)
	if err != nil {
		return fmt.Errorf("upsert deposit %s: %w", d.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteDeposit(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM deposits WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete deposit %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) LoadSchedule(ctx context.Context) (*core.DCAConfig, error) {
	var (
		enabled    bool
		amount     string
		day1, day2 int
		adjust     string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT enabled, amount, day_of_month_1, day_of_month_2, adjust_weekend FROM dca_config WHERE id = 1`,
	).Scan(&enabled, &amount, &day1, &day2, &adjust)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}

	a, err := decimal.NewFromString(amount)
	if err != nil {
		slog.WarnContext(ctx, "Skipping malformed DCA schedule", "error", err)
		return nil, nil
	}
	cfg := core.DCAConfig{
		Enabled:           enabled,
		Amount:            a,
		DayOfMonth1:       day1,
		DayOfMonth2:       day2,
		WeekendAdjustment: core.WeekendAdjustment(adjust),
	}
	if err := cfg.Validate(); err != nil {
		slog.WarnContext(ctx, "Skipping malformed DCA schedule", "error", err)
		return nil, nil
	}
	return &cfg, nil
}

func (r *SQLiteRepository) SaveSchedule(ctx context.Context, cfg core.DCAConfig) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dca_config (id, enabled, amount, day_of_month_1, day_of_month_2, adjust_weekend, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			enabled = excluded.enabled,
			amount = excluded.amount,
			day_of_month_1 = excluded.day_of_month_1,
			day_of_month_2 = excluded.day_of_month_2,
			adjust_weekend = excluded.adjust_weekend,
			updated_at = CURRENT_TIMESTAMP`,
		cfg.Enabled, cfg.Amount.String(), cfg.DayOfMonth1, cfg.DayOfMonth2, string(cfg.WeekendAdjustment))
	if err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}
	return nil
}

// ReplaceEntries swaps the cached entries in one transaction.
func (r *SQLiteRepository) ReplaceEntries(ctx context.Context, entries []core.Entry) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
			return fmt.Errorf("clear entries: %w", err)
		}
		for _, e := range entries {
			if err := upsertEntry(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceDeposits swaps the cached deposits in one transaction, keeping the
// given order as insertion order.
func (r *SQLiteRepository) ReplaceDeposits(ctx context.Context, deposits []core.Deposit) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM deposits`); err != nil {
			return fmt.Errorf("clear deposits: %w", err)
		}
		for _, d := range deposits {
			if err := upsertDeposit(ctx, tx, d); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

var (
	_ store.Cache        = (*SQLiteRepository)(nil)
	_ store.RecordReader = (*SQLiteRepository)(nil)
)
