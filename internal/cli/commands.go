package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/subcommands"

	"peatracker/internal/core"
	"peatracker/internal/format"
	"peatracker/internal/services"
)

// Env is what the peactl commands run against.
type Env struct {
	Tracker *services.Tracker
	Out     io.Writer
	Err     io.Writer
}

// Commands returns every peactl command bound to env.
func Commands(env *Env) []subcommands.Command {
	return []subcommands.Command{
		&configCmd{env: env},
		&entryCmd{env: env},
		&rmEntryCmd{env: env},
		&depositCmd{env: env},
		&rmDepositCmd{env: env},
		&depositsCmd{env: env},
		&dcaCmd{env: env},
		&dcaDatesCmd{env: env},
		&perfCmd{env: env},
		&gainCmd{env: env},
		&summaryCmd{env: env},
		&statsCmd{env: env},
		&ceilingCmd{env: env},
	}
}

func (e *Env) fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(e.Err, "Error:", err)
	return subcommands.ExitFailure
}

func (e *Env) usage(msg string) subcommands.ExitStatus {
	fmt.Fprintln(e.Err, msg)
	return subcommands.ExitUsageError
}

// parseOptionalDate parses s, defaulting to today when it is empty.
func (e *Env) parseOptionalDate(s string) (core.Date, error) {
	if s == "" {
		return e.Tracker.Today(), nil
	}
	return core.ParseDate(s)
}

type configCmd struct {
	env       *Env
	start     string
	capital   string
	deposited string
	clear     bool
}

func (*configCmd) Name() string     { return "config" }
func (*configCmd) Synopsis() string { return "show or set the account starting point" }
func (*configCmd) Usage() string {
	return `config [-start YYYY-MM-DD -capital amount [-deposited amount]] [-clear]

  Without flags, prints the current configuration. Setting replaces the
  whole configuration: -start and -capital are required and -deposited
  defaults to zero.
`
}

func (c *configCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.start, "start", "", "Date tracking begins.")
	f.StringVar(&c.capital, "capital", "", "Account value on the start date.")
	f.StringVar(&c.deposited, "deposited", "", "Cumulative contributions on the start date.")
	f.BoolVar(&c.clear, "clear", false, "Mark the account unconfigured.")
}

func (c *configCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	t := c.env.Tracker
	if c.clear {
		t.ClearConfig(ctx)
		fmt.Fprintln(c.env.Out, "Account configuration cleared")
		return subcommands.ExitSuccess
	}

	if f.NFlag() == 0 {
		cfg := t.Config()
		if cfg == nil {
			fmt.Fprintln(c.env.Out, "Account not configured")
			return subcommands.ExitSuccess
		}
		printConfig(c.env.Out, *cfg)
		return subcommands.ExitSuccess
	}

	if c.start == "" || c.capital == "" {
		return c.env.usage(c.Usage())
	}
	var (
		cfg core.AccountConfig
		err error
	)
	if cfg.StartDate, err = core.ParseDate(c.start); err != nil {
		return c.env.fail(err)
	}
	if cfg.StartCapital, err = core.ParseAmount(c.capital); err != nil {
		return c.env.fail(fmt.Errorf("capital: %w", err))
	}
	if c.deposited != "" {
		if cfg.StartDeposited, err = core.ParseAmount(c.deposited); err != nil {
			return c.env.fail(fmt.Errorf("deposited: %w", err))
		}
	}
	if err := t.SetConfig(ctx, cfg); err != nil {
		return c.env.fail(err)
	}
	printConfig(c.env.Out, cfg)
	return subcommands.ExitSuccess
}

func printConfig(w io.Writer, cfg core.AccountConfig) {
	fmt.Fprintf(w, "Start date:      %s\n", format.Date(cfg.StartDate))
	fmt.Fprintf(w, "Start capital:   %s\n", format.Currency(cfg.StartCapital))
	fmt.Fprintf(w, "Start deposited: %s\n", format.Currency(cfg.StartDeposited))
}

type entryCmd struct {
	env  *Env
	note string
}

func (*entryCmd) Name() string     { return "entry" }
func (*entryCmd) Synopsis() string { return "record the account value of a day" }
func (*entryCmd) Usage() string {
	return `entry [-note text] <YYYY-MM-DD> <capital>

  Records the observed capital, replacing any entry of the same day.
`
}

func (c *entryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.note, "note", "", "Optional note.")
}

func (c *entryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return c.env.usage(c.Usage())
	}
	date, err := core.ParseDate(f.Arg(0))
	if err != nil {
		return c.env.fail(err)
	}
	capital, err := core.ParseAmount(f.Arg(1))
	if err != nil {
		return c.env.fail(fmt.Errorf("capital: %w", err))
	}
	if err := c.env.Tracker.AddEntry(ctx, core.Entry{Date: date, Capital: capital, Note: c.note}); err != nil {
		return c.env.fail(err)
	}

	fmt.Fprintf(c.env.Out, "Entry %s: %s\n", format.Date(date), format.Currency(capital))
	if p, ok := c.env.Tracker.DayPerformance(date); ok {
		fmt.Fprintf(c.env.Out, "Day gain: %s (%s)\n", format.SignedCurrency(p.GainAmount), format.Percent(p.GainPercent))
	}
	return subcommands.ExitSuccess
}

type rmEntryCmd struct{ env *Env }

func (*rmEntryCmd) Name() string           { return "rm-entry" }
func (*rmEntryCmd) Synopsis() string       { return "delete the entry of a day" }
func (*rmEntryCmd) Usage() string          { return "rm-entry <YYYY-MM-DD>\n" }
func (*rmEntryCmd) SetFlags(*flag.FlagSet) {}

func (c *rmEntryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.env.usage(c.Usage())
	}
	date, err := core.ParseDate(f.Arg(0))
	if err != nil {
		return c.env.fail(err)
	}
	if c.env.Tracker.DeleteEntry(ctx, date) {
		fmt.Fprintf(c.env.Out, "Entry %s deleted\n", format.Date(date))
	} else {
		fmt.Fprintf(c.env.Out, "No entry on %s\n", format.Date(date))
	}
	return subcommands.ExitSuccess
}

type depositCmd struct {
	env  *Env
	date string
	note string
}

func (*depositCmd) Name() string     { return "deposit" }
func (*depositCmd) Synopsis() string { return "record a cash contribution" }
func (*depositCmd) Usage() string {
	return `deposit [-date YYYY-MM-DD] [-note text] <amount>

  Records a deposit, dated today unless -date is given.
`
}

func (c *depositCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "date", "", "Deposit date (defaults to today).")
	f.StringVar(&c.note, "note", "", "Optional note.")
}

func (c *depositCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.env.usage(c.Usage())
	}
	date, err := c.env.parseOptionalDate(c.date)
	if err != nil {
		return c.env.fail(err)
	}
	amount, err := core.ParseAmount(f.Arg(0))
	if err != nil {
		return c.env.fail(fmt.Errorf("amount: %w", err))
	}
	d, err := c.env.Tracker.AddDeposit(ctx, date, amount, c.note)
	if err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.Out, "Deposit %s: %s on %s\n", d.ID, format.Currency(d.Amount), format.Date(d.Date))
	return subcommands.ExitSuccess
}

type rmDepositCmd struct{ env *Env }

func (*rmDepositCmd) Name() string           { return "rm-deposit" }
func (*rmDepositCmd) Synopsis() string       { return "delete a deposit" }
func (*rmDepositCmd) Usage() string          { return "rm-deposit <id>\n" }
func (*rmDepositCmd) SetFlags(*flag.FlagSet) {}

func (c *rmDepositCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.env.usage(c.Usage())
	}
	if c.env.Tracker.DeleteDeposit(ctx, f.Arg(0)) {
		fmt.Fprintf(c.env.Out, "Deposit %s deleted\n", f.Arg(0))
	} else {
		fmt.Fprintf(c.env.Out, "No deposit %s\n", f.Arg(0))
	}
	return subcommands.ExitSuccess
}

type depositsCmd struct{ env *Env }

func (*depositsCmd) Name() string           { return "deposits" }
func (*depositsCmd) Synopsis() string       { return "list deposits, newest first" }
func (*depositsCmd) Usage() string          { return "deposits\n" }
func (*depositsCmd) SetFlags(*flag.FlagSet) {}

func (c *depositsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	deposits := c.env.Tracker.DepositsNewestFirst()
	if len(deposits) == 0 {
		fmt.Fprintln(c.env.Out, "No deposits")
		return subcommands.ExitSuccess
	}
	tw := tabwriter.NewWriter(c.env.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tAMOUNT\tID\tNOTE")
	for _, d := range deposits {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", format.Date(d.Date), format.Currency(d.Amount), d.ID, d.Note)
	}
	if err := tw.Flush(); err != nil {
		return c.env.fail(err)
	}
	return subcommands.ExitSuccess
}

type dcaCmd struct {
	env     *Env
	enabled bool
	amount  string
	day1    int
	day2    int
	adjust  string
}

func (*dcaCmd) Name() string     { return "dca" }
func (*dcaCmd) Synopsis() string { return "show or update the recurring contribution schedule" }
func (*dcaCmd) Usage() string {
	return `dca [-enabled=true|false] [-amount a] [-day1 n] [-day2 n] [-adjust before|after|none]

  Without flags, prints the schedule. Only the flags given are changed;
  -day2 0 removes the second day.
`
}

func (c *dcaCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.enabled, "enabled", false, "Enable the schedule.")
	f.StringVar(&c.amount, "amount", "", "Amount per contribution.")
	f.IntVar(&c.day1, "day1", 1, "First day of month (1-31).")
	f.IntVar(&c.day2, "day2", 0, "Second day of month (0 for none).")
	f.StringVar(&c.adjust, "adjust", "", "Weekend adjustment: before, after or none.")
}

func (c *dcaCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var (
		patch   core.DCAPatch
		bad     error
		visited bool
	)
	f.Visit(func(fl *flag.Flag) {
		visited = true
		switch fl.Name {
		case "enabled":
			patch.Enabled = &c.enabled
		case "amount":
			amount, err := core.ParseAmount(c.amount)
			if err != nil {
				bad = errors.Join(bad, fmt.Errorf("amount: %w", err))
				return
			}
			patch.Amount = &amount
		case "day1":
			patch.DayOfMonth1 = &c.day1
		case "day2":
			patch.DayOfMonth2 = &c.day2
		case "adjust":
			adj, err := core.ParseWeekendAdjustment(c.adjust)
			if err != nil {
				bad = errors.Join(bad, err)
				return
			}
			patch.WeekendAdjustment = &adj
		}
	})
	if bad != nil {
		return c.env.fail(bad)
	}

	cfg := c.env.Tracker.DCA()
	if visited {
		var err error
		if cfg, err = c.env.Tracker.UpdateDCA(ctx, patch); err != nil {
			return c.env.fail(err)
		}
	}
	printDCA(c.env.Out, cfg)
	return subcommands.ExitSuccess
}

func printDCA(w io.Writer, cfg core.DCAConfig) {
	status := "disabled"
	if cfg.Enabled {
		status = "enabled"
	}
	days := fmt.Sprintf("%d", cfg.DayOfMonth1)
	if cfg.HasSecondDay() {
		days = fmt.Sprintf("%d and %d", cfg.DayOfMonth1, cfg.DayOfMonth2)
	}
	fmt.Fprintf(w, "DCA %s: %s on day %s, weekend %s\n", status, format.Currency(cfg.Amount), days, cfg.WeekendAdjustment)
}

type dcaDatesCmd struct {
	env   *Env
	year  int
	month int
}

func (*dcaDatesCmd) Name() string     { return "dca-dates" }
func (*dcaDatesCmd) Synopsis() string { return "list the planned contribution dates of a month" }
func (*dcaDatesCmd) Usage() string    { return "dca-dates [-year yyyy] [-month m]\n" }

func (c *dcaDatesCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "year", 0, "Year (defaults to the current year).")
	f.IntVar(&c.month, "month", 0, "Month 1-12 (defaults to the current month).")
}

func (c *dcaDatesCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	today := c.env.Tracker.Today()
	year, month := c.year, c.month
	if year == 0 {
		year = today.Year()
	}
	if month == 0 {
		month = today.Month()
	}
	if month < 1 || month > 12 {
		return c.env.fail(fmt.Errorf("invalid month %d", month))
	}

	dates := c.env.Tracker.DCADates(year, month)
	if len(dates) == 0 {
		fmt.Fprintf(c.env.Out, "No contribution planned in %04d-%02d\n", year, month)
		return subcommands.ExitSuccess
	}
	amount := c.env.Tracker.DCA().Amount
	for _, d := range dates {
		fmt.Fprintf(c.env.Out, "%s  %s\n", format.Date(d), format.Currency(amount))
	}
	return subcommands.ExitSuccess
}

type perfCmd struct {
	env   *Env
	start string
	end   string
}

func (*perfCmd) Name() string     { return "perf" }
func (*perfCmd) Synopsis() string { return "show day performances" }
func (*perfCmd) Usage() string {
	return `perf <YYYY-MM-DD>
perf -start YYYY-MM-DD [-end YYYY-MM-DD]

  Prints the performance of one day, or of every entry in a range.
`
}

func (c *perfCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.start, "start", "", "Range start.")
	f.StringVar(&c.end, "end", "", "Range end (defaults to today).")
}

func (c *perfCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var perfs []core.DayPerformance
	switch {
	case f.NArg() == 1 && c.start == "":
		date, err := core.ParseDate(f.Arg(0))
		if err != nil {
			return c.env.fail(err)
		}
		p, ok := c.env.Tracker.DayPerformance(date)
		if !ok {
			fmt.Fprintf(c.env.Out, "No entry on %s\n", format.Date(date))
			return subcommands.ExitSuccess
		}
		perfs = append(perfs, p)
	case f.NArg() == 0 && c.start != "":
		start, err := core.ParseDate(c.start)
		if err != nil {
			return c.env.fail(err)
		}
		end, err := c.env.parseOptionalDate(c.end)
		if err != nil {
			return c.env.fail(err)
		}
		perfs = c.env.Tracker.PerformancesInRange(start, end)
	default:
		return c.env.usage(c.Usage())
	}

	tw := tabwriter.NewWriter(c.env.Out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "DATE\tCAPITAL\tDEPOSITS\tGAIN\tPERF\t")
	for _, p := range perfs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", format.Date(p.Date), format.Currency(p.Capital),
			format.Currency(p.DepositsOfDay), format.SignedCurrency(p.GainAmount), format.Percent(p.GainPercent))
	}
	if err := tw.Flush(); err != nil {
		return c.env.fail(err)
	}
	return subcommands.ExitSuccess
}

type gainCmd struct {
	env    *Env
	period string
	start  string
	end    string
}

func (*gainCmd) Name() string     { return "gain" }
func (*gainCmd) Synopsis() string { return "show the net growth over a period" }
func (*gainCmd) Usage() string {
	return `gain [-p week|last-week|month|last-month|year] [-start YYYY-MM-DD -end YYYY-MM-DD]

  Prints the growth net of deposits. -start overrides -p.
`
}

func (c *gainCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.period, "p", "month", "Predefined period relative to today.")
	f.StringVar(&c.start, "start", "", "Custom range start.")
	f.StringVar(&c.end, "end", "", "Custom range end (defaults to today).")
}

func (c *gainCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	today := c.env.Tracker.Today()
	var p core.Period
	if c.start != "" {
		start, err := core.ParseDate(c.start)
		if err != nil {
			return c.env.fail(err)
		}
		end, err := c.env.parseOptionalDate(c.end)
		if err != nil {
			return c.env.fail(err)
		}
		p = core.Period{Start: start, End: end}
	} else {
		var err error
		if p, err = periodOf(c.period, today); err != nil {
			return c.env.fail(err)
		}
	}

	gain := c.env.Tracker.PeriodGain(p.Start, p.End)
	fmt.Fprintf(c.env.Out, "Gain %s - %s: %s\n", format.Date(p.Start), format.Date(p.End), format.SignedCurrency(gain))
	return subcommands.ExitSuccess
}

func periodOf(name string, today core.Date) (core.Period, error) {
	switch name {
	case "week":
		return core.WeekOf(today), nil
	case "last-week":
		return core.PreviousWeek(today), nil
	case "month":
		return core.MonthOf(today), nil
	case "last-month":
		return core.PreviousMonth(today), nil
	case "year":
		return core.YearOf(today), nil
	}
	return core.Period{}, fmt.Errorf("unknown period %q", name)
}

type summaryCmd struct{ env *Env }

func (*summaryCmd) Name() string           { return "summary" }
func (*summaryCmd) Synopsis() string       { return "show the dashboard aggregates for today" }
func (*summaryCmd) Usage() string          { return "summary\n" }
func (*summaryCmd) SetFlags(*flag.FlagSet) {}

func (c *summaryCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s := c.env.Tracker.Summary()
	w := c.env.Out
	if !s.Configured {
		fmt.Fprintln(w, "Account not configured: run peactl config -start YYYY-MM-DD -capital ... -deposited ...")
	}
	fmt.Fprintf(w, "Date:             %s\n", format.Date(s.Date))
	fmt.Fprintf(w, "Current capital:  %s\n", format.Currency(s.CurrentCapital))
	fmt.Fprintf(w, "Total deposited:  %s\n", format.Currency(s.TotalDeposited))
	fmt.Fprintf(w, "Total gain:       %s (%s)\n", format.SignedCurrency(s.TotalGain), format.Percent(s.TotalPerformance))
	fmt.Fprintf(w, "Today:            %s\n", format.SignedCurrency(s.TodayGain))
	fmt.Fprintf(w, "This week:        %s\n", format.SignedCurrency(s.WeekGain))
	fmt.Fprintf(w, "Last week:        %s\n", format.SignedCurrency(s.LastWeekGain))
	fmt.Fprintf(w, "This month:       %s\n", format.SignedCurrency(s.MonthGain))
	fmt.Fprintf(w, "Last month:       %s\n", format.SignedCurrency(s.LastMonthGain))
	fmt.Fprintf(w, "This year:        %s\n", format.SignedCurrency(s.YearGain))
	if s.LatestEntry != nil {
		fmt.Fprintf(w, "Latest entry:     %s on %s\n", format.Currency(s.LatestEntry.Capital), format.Date(s.LatestEntry.Date))
	}
	return subcommands.ExitSuccess
}

type statsCmd struct{ env *Env }

func (*statsCmd) Name() string           { return "stats" }
func (*statsCmd) Synopsis() string       { return "show best, worst and average day" }
func (*statsCmd) Usage() string          { return "stats\n" }
func (*statsCmd) SetFlags(*flag.FlagSet) {}

func (c *statsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s := c.env.Tracker.Stats()
	w := c.env.Out
	if s.BestDay == nil {
		fmt.Fprintln(w, "No entries")
		return subcommands.ExitSuccess
	}
	fmt.Fprintf(w, "Best day:     %s %s (%s)\n", format.Date(s.BestDay.Date), format.SignedCurrency(s.BestDay.GainAmount), format.Percent(s.BestDay.GainPercent))
	fmt.Fprintf(w, "Worst day:    %s %s (%s)\n", format.Date(s.WorstDay.Date), format.SignedCurrency(s.WorstDay.GainAmount), format.Percent(s.WorstDay.GainPercent))
	fmt.Fprintf(w, "Positive:     %d\n", s.PositiveDays)
	fmt.Fprintf(w, "Negative:     %d\n", s.NegativeDays)
	fmt.Fprintf(w, "Average:      %s\n", format.Percent(s.AveragePerformance))
	return subcommands.ExitSuccess
}

type ceilingCmd struct{ env *Env }

func (*ceilingCmd) Name() string           { return "ceiling" }
func (*ceilingCmd) Synopsis() string       { return "show the room left under the deposit ceiling" }
func (*ceilingCmd) Usage() string          { return "ceiling\n" }
func (*ceilingCmd) SetFlags(*flag.FlagSet) {}

func (c *ceilingCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ceil := c.env.Tracker.Ceiling()
	fmt.Fprintf(c.env.Out, "Deposited %s of %s (%s), %s remaining\n",
		format.Currency(ceil.Deposited), format.Currency(ceil.Limit),
		ceil.Percent.StringFixed(2)+"%", format.Currency(ceil.Remaining))
	return subcommands.ExitSuccess
}
