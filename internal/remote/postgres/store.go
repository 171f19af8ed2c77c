package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"peatracker/internal/core"
	"peatracker/internal/store"
)

// Remote implements store.Remote on PostgreSQL.
type Remote struct {
	db *DB
}

func NewRemote(db *DB) *Remote {
	return &Remote{db: db}
}

func (r *Remote) ForUser(userID string) store.Store {
	return &userStore{db: r.db, userID: userID}
}

type userStore struct {
	db     *DB
	userID string
}

func (s *userStore) LoadConfig(ctx context.Context) (*core.AccountConfig, error) {
	var (
		startDate    time.Time
		startCapital string
		startDeposit string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT start_date, start_capital, start_deposited
		FROM account_config
		WHERE user_id = $1`, s.userID,
	).Scan(&startDate, &startCapital, &startDeposit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	capital, err := decimal.NewFromString(startCapital)
	if err != nil {
		return nil, fmt.Errorf("failed to parse start_capital: %w", err)
	}
	deposited, err := decimal.NewFromString(startDeposit)
	if err != nil {
		return nil, fmt.Errorf("failed to parse start_deposited: %w", err)
	}
	return &core.AccountConfig{
		StartDate:      core.DateOf(startDate),
		StartCapital:   capital,
		StartDeposited: deposited,
	}, nil
}

func (s *userStore) SaveConfig(ctx context.Context, cfg core.AccountConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account_config (user_id, start_date, start_capital, start_deposited, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id) DO UPDATE SET
			start_date = EXCLUDED.start_date,
			start_capital = EXCLUDED.start_capital,
			start_deposited = EXCLUDED.start_deposited,
			updated_at = now()`,
		s.userID, cfg.StartDate.String(), cfg.StartCapital.String(), cfg.StartDeposited.String())
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (s *userStore) DeleteConfig(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM account_config WHERE user_id = $1`, s.userID); err != nil {
		return fmt.Errorf("failed to delete config: %w", err)
	}
	return nil
}

func (s *userStore) LoadEntries(ctx context.Context) ([]core.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, capital, note
		FROM entries
		WHERE user_id = $1
		ORDER BY date`, s.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		var (
			date    time.Time
			capital string
			note    string
		)
		if err := rows.Scan(&date, &capital, &note); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		c, err := decimal.NewFromString(capital)
		if err != nil {
			return nil, fmt.Errorf("failed to parse capital: %w", err)
		}
		out = append(out, core.Entry{Date: core.DateOf(date), Capital: c, Note: note})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return out, nil
}

func (s *userStore) UpsertEntry(ctx context.Context, e core.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (user_id, date, capital, note, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, date) DO UPDATE SET
			capital = EXCLUDED.capital,
			note = EXCLUDED.note,
			updated_at = now()`,
		s.userID, e.Date.String(), e.Capital.String(), e.Note)
	if err != nil {
		return fmt.Errorf("failed to upsert entry %s: %w", e.Date, err)
	}
	return nil
}

func (s *userStore) DeleteEntry(ctx context.Context, date core.Date) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE user_id = $1 AND date = $2`, s.userID, date.String())
	if err != nil {
		return fmt.Errorf("failed to delete entry %s: %w", date, err)
	}
	return nil
}

func (s *userStore) LoadDeposits(ctx context.Context) ([]core.Deposit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, amount, note
		FROM deposits
		WHERE user_id = $1
		ORDER BY date, created_at`, s.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load deposits: %w", err)
	}
	defer rows.Close()

	var out []core.Deposit
	for rows.Next() {
		var (
			id, amount, note string
			date             time.Time
		)
		if err := rows.Scan(&id, &date, &amount, &note); err != nil {
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}
		a, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount: %w", err)
		}
		out = append(out, core.Deposit{ID: id, Date: core.DateOf(date), Amount: a, Note: note})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate deposits: %w", err)
	}
	return out, nil
}

func (s *userStore) UpsertDeposit(ctx context.Context, d core.Deposit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deposits (id, user_id, date, amount, note)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			date = EXCLUDED.date,
			amount = EXCLUDED.amount,
			note = EXCLUDED.note
		WHERE deposits.user_id = EXCLUDED.user_id`,
		d.ID, s.userID, d.Date.String(), d.Amount.String(), d.Note)
	if err != nil {
		return fmt.Errorf("failed to upsert deposit %s: %w", d.ID, err)
	}
	return nil
}

func (s *userStore) DeleteDeposit(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM deposits WHERE user_id = $1 AND id = $2`, s.userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete deposit %s: %w", id, err)
	}
	return nil
}

func (s *userStore) LoadSchedule(ctx context.Context) (*core.DCAConfig, error) {
	var (
		cfg    core.DCAConfig
		amount string
		day2   sql.NullInt64
		adjust string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT enabled, amount, day_of_month_1, day_of_month_2, adjust_weekend
		FROM dca_config
		WHERE user_id = $1`, s.userID,
	).Scan(&cfg.Enabled, &amount, &cfg.DayOfMonth1, &day2, &adjust)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}

	cfg.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	if day2.Valid {
		cfg.DayOfMonth2 = int(day2.Int64)
	}
	cfg.WeekendAdjustment = core.WeekendAdjustment(adjust)
	return &cfg, nil
}

func (s *userStore) SaveSchedule(ctx context.Context, cfg core.DCAConfig) error {
	var day2 sql.NullInt64
	if cfg.HasSecondDay() {
		day2 = sql.NullInt64{Int64: int64(cfg.DayOfMonth2), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dca_config (user_id, enabled, amount, day_of_month_1, day_of_month_2, adjust_weekend, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (user_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			amount = EXCLUDED.amount,
			day_of_month_1 = EXCLUDED.day_of_month_1,
			day_of_month_2 = EXCLUDED.day_of_month_2,
			adjust_weekend = EXCLUDED.adjust_weekend,
			updated_at = now()`,
		s.userID, cfg.Enabled, cfg.Amount.String(), cfg.DayOfMonth1, day2, string(cfg.WeekendAdjustment))
	if err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}
	return nil
}

var _ store.Remote = (*Remote)(nil)
