package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"peatracker/internal/core"
	"peatracker/internal/store"
)

// Remote implements store.Remote over a spreadsheet.
type Remote struct {
	values valuesAPI
	opts   Options
}

func newRemote(values valuesAPI, opts Options) *Remote {
	opts.setDefaults()
	return &Remote{values: values, opts: opts}
}

func (r *Remote) ForUser(userID string) store.Store {
	return &userStore{remote: r, userID: userID}
}

type userStore struct {
	remote *Remote
	userID string
}

// row is one data row with its 1-based sheet row number.
type row struct {
	number int
	cols   []string
}

// userRows reads the rows of tab belonging to the user.
func (s *userStore) userRows(ctx context.Context, tab string) ([]row, error) {
	values, err := s.remote.values.Get(ctx, fmt.Sprintf("%s!A2:F", tab))
	if err != nil {
		return nil, err
	}
	var out []row
	for i, raw := range values {
		cols := toStrings(raw)
		if len(cols) < 2 || cols[0] != s.userID {
			continue
		}
		out = append(out, row{number: i + 2, cols: cols})
	}
	return out, nil
}

// upsertRow overwrites the first user row whose key column matches, or
// appends a new one.
func (s *userStore) upsertRow(ctx context.Context, tab string, keyCol int, key string, values []any) error {
	rows, err := s.userRows(ctx, tab)
	if err != nil {
		return err
	}
	record := append([]any{s.userID}, values...)
	for _, r := range rows {
		if keyCol < 0 || safeGet(r.cols, keyCol) == key {
			rng := fmt.Sprintf("%s!A%d:%s%d", tab, r.number, lastColumn(len(record)), r.number)
			return s.remote.values.Update(ctx, rng, [][]any{record})
		}
	}
	return s.remote.values.Append(ctx, fmt.Sprintf("%s!A:A", tab), [][]any{record})
}

// deleteRows clears the user rows matching key. A negative keyCol clears
// every user row.
func (s *userStore) deleteRows(ctx context.Context, tab string, keyCol int, key string) error {
	rows, err := s.userRows(ctx, tab)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if keyCol >= 0 && safeGet(r.cols, keyCol) != key {
			continue
		}
		if err := s.remote.values.Clear(ctx, fmt.Sprintf("%s!A%d:F%d", tab, r.number, r.number)); err != nil {
			return err
		}
	}
	return nil
}

func (s *userStore) LoadConfig(ctx context.Context) (*core.AccountConfig, error) {
	rows, err := s.userRows(ctx, s.remote.opts.ConfigTab)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	for _, r := range rows {
		date, err := core.ParseDate(safeGet(r.cols, 1))
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed config row", "row", r.number, "error", err)
			continue
		}
		capital, err := core.ParseAmount(safeGet(r.cols, 2))
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed config row", "row", r.number, "error", err)
			continue
		}
		deposited, err := core.ParseAmount(safeGet(r.cols, 3))
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed config row", "row", r.number, "error", err)
			continue
		}
		return &core.AccountConfig{StartDate: date, StartCapital: capital, StartDeposited: deposited}, nil
	}
	return nil, nil
}

func (s *userStore) SaveConfig(ctx context.Context, cfg core.AccountConfig) error {
	err := s.upsertRow(ctx, s.remote.opts.ConfigTab, -1, "", []any{
		cfg.StartDate.String(), cfg.StartCapital.String(), cfg.StartDeposited.String(),
	})
	if err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func (s *userStore) DeleteConfig(ctx context.Context) error {
	if err := s.deleteRows(ctx, s.remote.opts.ConfigTab, -1, ""); err != nil {
		return fmt.Errorf("delete config: %w", err)
	}
	return nil
}

func (s *userStore) LoadEntries(ctx context.Context) ([]core.Entry, error) {
	rows, err := s.userRows(ctx, s.remote.opts.EntriesTab)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	var out []core.Entry
	for _, r := range rows {
		date, err := core.ParseDate(safeGet(r.cols, 1))
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed entry row", "row", r.number, "error", err)
			continue
		}
		capital, err := core.ParseAmount(safeGet(r.cols, 2))
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed entry row", "row", r.number, "error", err)
			continue
		}
		out = append(out, core.Entry{Date: date, Capital: capital, Note: safeGet(r.cols, 3)})
	}
	return out, nil
}

func (s *userStore) UpsertEntry(ctx context.Context, e core.Entry) error {
	err := s.upsertRow(ctx, s.remote.opts.EntriesTab, 1, e.Date.String(), []any{
		e.Date.String(), e.Capital.String(), e.Note,
	})
	if err != nil {
		return fmt.Errorf("upsert entry %s: %w", e.Date, err)
	}
	return nil
}

func (s *userStore) DeleteEntry(ctx context.Context, date core.Date) error {
	if err := s.deleteRows(ctx, s.remote.opts.EntriesTab, 1, date.String()); err != nil {
		return fmt.Errorf("delete entry %s: %w", date, err)
	}
	return nil
}

func (s *userStore) LoadDeposits(ctx context.Context) ([]core.Deposit, error) {
	rows, err := s.userRows(ctx, s.remote.opts.DepositsTab)
	if err != nil {
		return nil, fmt.Errorf("load deposits: %w", err)
	}
	var out []core.Deposit
	for _, r := range rows {
		id := safeGet(r.cols, 1)
		date, err := core.ParseDate(safeGet(r.cols, 2))
		if err != nil || id == "" {
			slog.WarnContext(ctx, "Skipping malformed deposit row", "row", r.number, "error", err)
			continue
		}
		amount, err := core.ParseAmount(safeGet(r.cols, 3))
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed deposit row", "row", r.number, "error", err)
			continue
		}
		out = append(out, core.Deposit{ID: id, Date: date, Amount: amount, Note: safeGet(r.cols, 4)})
	}
	return out, nil
}

func (s *userStore) UpsertDeposit(ctx context.Context, d core.Deposit) error {
	err := s.upsertRow(ctx, s.remote.opts.DepositsTab, 1, d.ID, []any{
		d.ID, d.Date.String(), d.Amount.String(), d.Note,
	})
	if err != nil {
		return fmt.Errorf("upsert deposit %s: %w", d.ID, err)
	}
	return nil
}

func (s *userStore) DeleteDeposit(ctx context.Context, id string) error {
	if err := s.deleteRows(ctx, s.remote.opts.DepositsTab, 1, id); err != nil {
		return fmt.Errorf("delete deposit %s: %w", id, err)
	}
	return nil
}

func (s *userStore) LoadSchedule(ctx context.Context) (*core.DCAConfig, error) {
	rows, err := s.userRows(ctx, s.remote.opts.DCATab)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	for _, r := range rows {
		cfg, err := parseSchedule(r.cols)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed DCA row", "row", r.number, "error", err)
			continue
		}
		return &cfg, nil
	}
	return nil, nil
}

func parseSchedule(cols []string) (core.DCAConfig, error) {
	enabled, err := strconv.ParseBool(safeGet(cols, 1))
	if err != nil {
		return core.DCAConfig{}, fmt.Errorf("enabled: %w", err)
	}
	amount, err := core.ParseAmount(safeGet(cols, 2))
	if err != nil {
		return core.DCAConfig{}, err
	}
	day1, err := strconv.Atoi(safeGet(cols, 3))
	if err != nil {
		return core.DCAConfig{}, fmt.Errorf("day 1: %w", core.ErrInvalidDay)
	}
	day2 := 0
	if v := safeGet(cols, 4); v != "" {
		if day2, err = strconv.Atoi(v); err != nil {
			return core.DCAConfig{}, fmt.Errorf("day 2: %w", core.ErrInvalidDay)
		}
	}
	cfg := core.DCAConfig{
		Enabled:           enabled,
		Amount:            amount,
		DayOfMonth1:       day1,
		DayOfMonth2:       day2,
		WeekendAdjustment: core.WeekendAdjustment(safeGet(cols, 5)),
	}
	return cfg, cfg.Validate()
}

func (s *userStore) SaveSchedule(ctx context.Context, cfg core.DCAConfig) error {
	day2 := ""
	if cfg.HasSecondDay() {
		day2 = strconv.Itoa(cfg.DayOfMonth2)
	}
	err := s.upsertRow(ctx, s.remote.opts.DCATab, -1, "", []any{
		strconv.FormatBool(cfg.Enabled), cfg.Amount.String(), strconv.Itoa(cfg.DayOfMonth1), day2, string(cfg.WeekendAdjustment),
	})
	if err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}
	return nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// lastColumn returns the letter of the n-th column (n <= 26).
func lastColumn(n int) string {
	return string(rune('A' + n - 1))
}

var _ store.Remote = (*Remote)(nil)
