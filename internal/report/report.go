// Package report renders run and optimization outcomes for humans and
// for tabular export.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"callisto/internal/analyzer"
	"callisto/internal/domain"
	"callisto/internal/optimizer"
)

// FormatMoney formats a cash amount with comma separators and cents.
func FormatMoney(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	whole := int64(v)
	cents := int64((v-float64(whole))*100 + 0.5)
	if cents == 100 {
		whole++
		cents = 0
	}
	s := fmt.Sprintf("%s.%02d", groupThousands(whole), cents)
	if neg {
		return "-" + s
	}
	return s
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatMetric renders a metric value, or "-" when it is absent.
func FormatMetric(m analyzer.Metric) string {
	if !m.Valid {
		return "-"
	}
	return fmt.Sprintf("%.4f", m.Value)
}

// FormatPct renders a percentage metric as "+X.XX%" / "-X.XX%", or "-"
// when absent.
func FormatPct(m analyzer.Metric) string {
	if !m.Valid {
		return "-"
	}
	return fmt.Sprintf("%+.2f%%", m.Value)
}

// WriteSummary prints a human-readable report for one finished run.
func WriteSummary(w io.Writer, res *domain.RunResult, s analyzer.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Symbol\t%s\n", res.Symbol)
	fmt.Fprintf(tw, "Initial cash\t%s\n", FormatMoney(res.InitialCash))
	fmt.Fprintf(tw, "Final equity\t%s\n", FormatMoney(res.FinalEquity()))
	fmt.Fprintf(tw, "Return\t%s\n", FormatPct(s.ReturnPct))
	fmt.Fprintf(tw, "Sharpe (ann.)\t%s\n", FormatMetric(s.Sharpe))
	fmt.Fprintf(tw, "Max drawdown\t%.2f%% over %d bars\n", s.Drawdown.MaxPct, s.Drawdown.Length)
	fmt.Fprintf(tw, "Closed trades\t%d (%d won / %d lost, win rate %.0f%%)\n",
		s.Trades.Total, s.Trades.Wins, s.Trades.Losses, s.Trades.WinRate*100)
	if s.Trades.Wins > 0 {
		fmt.Fprintf(tw, "Average win\t%s\n", FormatMoney(s.Trades.AvgWin))
	}
	if s.Trades.Losses > 0 {
		fmt.Fprintf(tw, "Average loss\t%s\n", FormatMoney(s.Trades.AvgLoss))
	}
	if open := len(res.Trades) - len(res.ClosedTrades()); open > 0 {
		fmt.Fprintf(tw, "Open positions\t%d\n", open)
	}
	return tw.Flush()
}

// paramNames collects every parameter name seen in the report, sorted,
// so the column layout is stable.
func paramNames(rep *optimizer.Report) []string {
	seen := map[string]struct{}{}
	for _, r := range rep.Results {
		for name := range r.Params {
			seen[name] = struct{}{}
		}
	}
	for _, s := range rep.Skipped {
		for name := range s.Params {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteOptimizerCSV exports every evaluated grid point as one CSV row:
// parameter columns first, then the metric columns. Absent metrics are
// written as empty cells. Skipped points are not rows; they were never
// evaluated.
func WriteOptimizerCSV(w io.Writer, rep *optimizer.Report) error {
	names := paramNames(rep)
	cw := csv.NewWriter(w)

	header := append(append([]string{}, names...),
		"return_pct", "sharpe", "max_drawdown_pct", "drawdown_bars",
		"trades", "wins", "losses", "win_rate", "net_pnl", "final_equity")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, r := range rep.Results {
		row := make([]string, 0, len(header))
		for _, name := range names {
			row = append(row, strconv.FormatFloat(r.Params[name], 'g', -1, 64))
		}
		row = append(row,
			csvMetric(r.Metrics.ReturnPct),
			csvMetric(r.Metrics.Sharpe),
			strconv.FormatFloat(r.Metrics.Drawdown.MaxPct, 'f', 4, 64),
			strconv.Itoa(r.Metrics.Drawdown.Length),
			strconv.Itoa(r.Metrics.Trades.Total),
			strconv.Itoa(r.Metrics.Trades.Wins),
			strconv.Itoa(r.Metrics.Trades.Losses),
			strconv.FormatFloat(r.Metrics.Trades.WinRate, 'f', 4, 64),
			strconv.FormatFloat(r.Metrics.Trades.NetPnL, 'f', 2, 64),
			strconv.FormatFloat(r.Run.FinalEquity(), 'f', 2, 64),
		)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvMetric(m analyzer.Metric) string {
	if !m.Valid {
		return ""
	}
	return strconv.FormatFloat(m.Value, 'f', 6, 64)
}

// WriteOptimizerTable prints the ranked grid results with the best row
// marked. Skipped points are listed after the table with their reject
// reasons.
func WriteOptimizerTable(w io.Writer, rep *optimizer.Report) error {
	names := paramNames(rep)
	best := optimizer.Best(rep.Results)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\treturn\tsharpe\tmax dd\ttrades\t\n", strings.Join(names, "\t"))
	for i := range rep.Results {
		r := &rep.Results[i]
		vals := make([]string, 0, len(names))
		for _, name := range names {
			vals = append(vals, strconv.FormatFloat(r.Params[name], 'g', -1, 64))
		}
		mark := ""
		if best != nil && &rep.Results[i] == best {
			mark = "  <- best"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f%%\t%d\t%s\n",
			strings.Join(vals, "\t"),
			FormatPct(r.Metrics.ReturnPct),
			FormatMetric(r.Metrics.Sharpe),
			r.Metrics.Drawdown.MaxPct,
			r.Metrics.Trades.Total,
			mark,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, s := range rep.Skipped {
		vals := make([]string, 0, len(names))
		for _, name := range names {
			vals = append(vals, fmt.Sprintf("%s=%g", name, s.Params[name]))
		}
		fmt.Fprintf(w, "skipped %s: %v\n", strings.Join(vals, " "), s.Reason)
	}
	return nil
}
