// Package analyzer computes performance metrics over a finished run.
// Every function is pure: it reads the run result and returns a value,
// so the same result can be analyzed any number of times in any order.
package analyzer

import (
	"math"

	"callisto/internal/domain"
)

// tradingDaysPerYear annualizes per-bar statistics for daily bars.
const tradingDaysPerYear = 252

// Metric is a measurement that may be undefined. A Sharpe ratio over a
// flat equity curve has no value at all, which is different from zero.
type Metric struct {
	Value float64
	Valid bool
}

func metric(v float64) Metric { return Metric{Value: v, Valid: true} }

// Return is the total return of the run in percent.
func Return(res *domain.RunResult) Metric {
	if res.InitialCash <= 0 {
		return Metric{}
	}
	return metric((res.FinalEquity() - res.InitialCash) / res.InitialCash * 100)
}

// Sharpe is the annualized Sharpe ratio of the per-bar equity returns.
// It is absent when fewer than two returns exist or when the returns
// have zero variance.
func Sharpe(res *domain.RunResult) Metric {
	returns := barReturns(res.Equity)
	if len(returns) < 2 {
		return Metric{}
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var sq float64
	for _, r := range returns {
		d := r - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(returns)-1))
	if std == 0 {
		return Metric{}
	}
	return metric(mean / std * math.Sqrt(tradingDaysPerYear))
}

func barReturns(equity []domain.EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Value
		if prev == 0 {
			continue
		}
		returns = append(returns, equity[i].Value/prev-1)
	}
	return returns
}

// Drawdown describes the deepest peak-to-trough decline of an equity
// curve: its depth as a percentage of the peak, and how many bars the
// decline lasted.
type Drawdown struct {
	MaxPct float64
	Length int
}

// MaxDrawdown scans the equity curve for the largest percentage decline
// from a running peak. An empty or monotonically rising curve yields a
// zero drawdown.
func MaxDrawdown(res *domain.RunResult) Drawdown {
	var (
		dd        Drawdown
		peak      float64
		peakIndex int
	)
	for i, p := range res.Equity {
		if i == 0 || p.Value > peak {
			peak = p.Value
			peakIndex = i
			continue
		}
		if peak <= 0 {
			continue
		}
		pct := (peak - p.Value) / peak * 100
		if pct > dd.MaxPct {
			dd.MaxPct = pct
			dd.Length = i - peakIndex
		}
	}
	return dd
}

// TradeStats summarizes closed trades. Open positions at the end of a
// run are not counted. A run with no closed trades is a normal state:
// all fields are zero including the win rate.
type TradeStats struct {
	Total   int
	Wins    int
	Losses  int
	WinRate float64
	AvgWin  float64
	AvgLoss float64
	NetPnL  float64
}

// ComputeTradeStats aggregates the closed trades of a run. A trade with
// net P&L exactly zero counts as a loss.
func ComputeTradeStats(res *domain.RunResult) TradeStats {
	var (
		stats   TradeStats
		winSum  float64
		lossSum float64
	)
	for _, t := range res.ClosedTrades() {
		stats.Total++
		stats.NetPnL += t.NetPnL
		if t.NetPnL > 0 {
			stats.Wins++
			winSum += t.NetPnL
		} else {
			stats.Losses++
			lossSum += t.NetPnL
		}
	}
	if stats.Total > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.Total)
	}
	if stats.Wins > 0 {
		stats.AvgWin = winSum / float64(stats.Wins)
	}
	if stats.Losses > 0 {
		stats.AvgLoss = lossSum / float64(stats.Losses)
	}
	return stats
}

// Summary bundles every metric for one run.
type Summary struct {
	ReturnPct Metric
	Sharpe    Metric
	Drawdown  Drawdown
	Trades    TradeStats
}

// Analyze computes the full metric set for a run.
func Analyze(res *domain.RunResult) Summary {
	return Summary{
		ReturnPct: Return(res),
		Sharpe:    Sharpe(res),
		Drawdown:  MaxDrawdown(res),
		Trades:    ComputeTradeStats(res),
	}
}
