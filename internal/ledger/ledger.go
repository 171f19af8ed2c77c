// Package ledger holds deposits and daily capital entries and answers range
// and point lookups over them.
//
// A Ledger is not safe for concurrent use; callers serialize access.
package ledger

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"peatracker/internal/core"
)

type Ledger struct {
	deposits []core.Deposit
	entries  map[string]core.Entry
}

func New() *Ledger {
	return &Ledger{entries: make(map[string]core.Entry)}
}

// AddDeposit records a new deposit under a fresh id.
func (l *Ledger) AddDeposit(date core.Date, amount decimal.Decimal, note string) core.Deposit {
	d := core.Deposit{
		ID:     uuid.NewString(),
		Date:   date,
		Amount: amount,
		Note:   note,
	}
	l.deposits = append(l.deposits, d)
	l.sortDeposits()
	return d
}

// InsertDeposit adds a deposit with a known id, replacing any deposit that
// already has that id.
func (l *Ledger) InsertDeposit(d core.Deposit) {
	l.removeDeposit(d.ID)
	l.deposits = append(l.deposits, d)
	l.sortDeposits()
}

// DeleteDeposit removes the deposit with the given id. It returns false when
// no such deposit exists.
func (l *Ledger) DeleteDeposit(id string) bool {
	return l.removeDeposit(id)
}

func (l *Ledger) removeDeposit(id string) bool {
	for i, d := range l.deposits {
		if d.ID == id {
			l.deposits = append(l.deposits[:i], l.deposits[i+1:]...)
			return true
		}
	}
	return false
}

// Deposit returns the deposit with the given id.
func (l *Ledger) Deposit(id string) (core.Deposit, bool) {
	for _, d := range l.deposits {
		if d.ID == id {
			return d, true
		}
	}
	return core.Deposit{}, false
}

// sortDeposits keeps deposits ascending by date. Ties keep insertion order.
func (l *Ledger) sortDeposits() {
	sort.SliceStable(l.deposits, func(i, j int) bool {
		return l.deposits[i].Date.Before(l.deposits[j].Date)
	})
}

// DepositsInRange sums the deposits dated within [start, end].
func (l *Ledger) DepositsInRange(start, end core.Date) decimal.Decimal {
	total := decimal.Zero
	for _, d := range l.deposits {
		if !d.Date.Before(start) && !d.Date.After(end) {
			total = total.Add(d.Amount)
		}
	}
	return total
}

// DepositsForDate returns the deposits made on date, in insertion order.
func (l *Ledger) DepositsForDate(date core.Date) []core.Deposit {
	var out []core.Deposit
	for _, d := range l.deposits {
		if d.Date.Equal(date) {
			out = append(out, d)
		}
	}
	return out
}

// TotalDeposited sums every deposit in the ledger.
func (l *Ledger) TotalDeposited() decimal.Decimal {
	total := decimal.Zero
	for _, d := range l.deposits {
		total = total.Add(d.Amount)
	}
	return total
}

// Deposits returns a copy of the deposits, ascending by date.
func (l *Ledger) Deposits() []core.Deposit {
	return append([]core.Deposit(nil), l.deposits...)
}

// DepositsNewestFirst returns the deposits, most recent first.
func (l *Ledger) DepositsNewestFirst() []core.Deposit {
	out := make([]core.Deposit, 0, len(l.deposits))
	for i := len(l.deposits) - 1; i >= 0; i-- {
		out = append(out, l.deposits[i])
	}
	return out
}

// ReplaceDeposits swaps the whole deposit collection.
func (l *Ledger) ReplaceDeposits(deposits []core.Deposit) {
	l.deposits = append([]core.Deposit(nil), deposits...)
	l.sortDeposits()
}

// AddEntry inserts or overwrites the entry for e.Date.
func (l *Ledger) AddEntry(e core.Entry) {
	l.entries[e.Date.String()] = e
}

// DeleteEntry removes the entry for date. It returns false when there was none.
func (l *Ledger) DeleteEntry(date core.Date) bool {
	key := date.String()
	if _, ok := l.entries[key]; !ok {
		return false
	}
	delete(l.entries, key)
	return true
}

func (l *Ledger) Entry(date core.Date) (core.Entry, bool) {
	e, ok := l.entries[date.String()]
	return e, ok
}

// PreviousEntry returns the latest entry strictly before date.
func (l *Ledger) PreviousEntry(date core.Date) (core.Entry, bool) {
	var (
		best  core.Entry
		found bool
	)
	for _, e := range l.entries {
		if !e.Date.Before(date) {
			continue
		}
		if !found || e.Date.After(best.Date) {
			best, found = e, true
		}
	}
	return best, found
}

// Entries returns every entry, ascending by date.
func (l *Ledger) Entries() []core.Entry {
	out := make([]core.Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// EntriesBetween returns the entries dated within [start, end], ascending.
func (l *Ledger) EntriesBetween(start, end core.Date) []core.Entry {
	var out []core.Entry
	for _, e := range l.Entries() {
		if !e.Date.Before(start) && !e.Date.After(end) {
			out = append(out, e)
		}
	}
	return out
}

// LatestEntry returns the most recent entry.
func (l *Ledger) LatestEntry() (core.Entry, bool) {
	var (
		latest core.Entry
		found  bool
	)
	for _, e := range l.entries {
		if !found || e.Date.After(latest.Date) {
			latest, found = e, true
		}
	}
	return latest, found
}

// ReplaceEntries swaps the whole entry collection. Later duplicates of a date win.
func (l *Ledger) ReplaceEntries(entries []core.Entry) {
	l.entries = make(map[string]core.Entry, len(entries))
	for _, e := range entries {
		l.entries[e.Date.String()] = e
	}
}

// Clone returns an independent copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	c := New()
	c.deposits = append([]core.Deposit(nil), l.deposits...)
	for k, e := range l.entries {
		c.entries[k] = e
	}
	return c
}
