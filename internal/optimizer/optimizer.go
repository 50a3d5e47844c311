// Package optimizer runs a strategy across a Cartesian grid of
// parameter values and collects the per-point metrics. Grid points are
// independent simulations: each gets its own broker and engine, so
// points can run on parallel workers without sharing state.
package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"callisto/internal/analyzer"
	"callisto/internal/broker"
	"callisto/internal/domain"
	"callisto/internal/engine"
	"callisto/internal/strategy"
)

// Param is one tunable dimension of the grid: a name and its ordered
// candidate values.
type Param struct {
	Name   string
	Values []float64
}

// Point assigns one candidate value to every parameter name.
type Point map[string]float64

// Factory builds a fresh strategy for one grid point. Returning an
// error marks the point invalid; it is skipped, not ranked.
type Factory func(Point) (strategy.Strategy, error)

// Result pairs a grid point with its run outcome and metrics.
type Result struct {
	Params  Point
	Run     *domain.RunResult
	Metrics analyzer.Summary
}

// Skipped records a grid point that could not be evaluated.
type Skipped struct {
	Params Point
	Reason error
}

// Report is the outcome of a full grid search. Results and Skipped
// both follow grid order, so repeated searches over the same inputs
// produce identical reports.
type Report struct {
	Results []Result
	Skipped []Skipped
	Elapsed time.Duration
}

// Options configures a grid search.
type Options struct {
	InitialCash float64
	Commission  float64
	// Workers bounds the parallel simulations. Zero or negative means
	// one worker per CPU.
	Workers int
	Sizer   engine.Sizer
	Log     *slog.Logger
}

// Grid expands parameter candidate sets into the full Cartesian
// product. The first parameter varies slowest, the last fastest, so
// the order is stable for a given input.
func Grid(params []Param) []Point {
	if len(params) == 0 {
		return nil
	}
	total := 1
	for _, p := range params {
		if len(p.Values) == 0 {
			return nil
		}
		total *= len(p.Values)
	}

	points := make([]Point, 0, total)
	idx := make([]int, len(params))
	for {
		point := make(Point, len(params))
		for i, p := range params {
			point[p.Name] = p.Values[idx[i]]
		}
		points = append(points, point)

		// Odometer increment, last dimension fastest.
		i := len(params) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(params[i].Values) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return points
		}
	}
}

// Search evaluates every grid point against the series. Invalid points
// (the factory rejects them) are collected in Report.Skipped. A
// canceled context stops scheduling new points; points already
// finished stay in the report.
func Search(ctx context.Context, series *domain.Series, params []Param, factory Factory, opts Options) (*Report, error) {
	if series == nil || series.Len() == 0 {
		return nil, fmt.Errorf("optimizer: %w", domain.ErrEmptySeries)
	}
	points := Grid(params)
	if len(points) == 0 {
		return nil, fmt.Errorf("optimizer: empty parameter grid: %w", domain.ErrInvalidParameters)
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(points))

	log.Info("grid search starting",
		"symbol", series.Symbol(),
		"points", len(points),
		"workers", workers,
	)

	// One slot per grid point keeps the output in grid order no matter
	// which worker finishes first.
	type outcome struct {
		result  *Result
		skipped *Skipped
	}
	outcomes := make([]outcome, len(points))

	pointCh := make(chan int, len(points))
	for i := range points {
		pointCh <- i
	}
	close(pointCh)

	var (
		wg       sync.WaitGroup
		done     atomic.Int64
		rejected atomic.Int64
		runStart = time.Now()
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range pointCh {
				if ctx.Err() != nil {
					return
				}
				point := points[i]

				strat, err := factory(point)
				if err != nil {
					outcomes[i].skipped = &Skipped{Params: point, Reason: err}
					rejected.Add(1)
					continue
				}

				b := broker.NewSimulatorBroker(opts.InitialCash, opts.Commission)
				eng := engine.NewEngine(b, strat, opts.Sizer)
				res, err := eng.Run(ctx, series, point)
				if err != nil {
					outcomes[i].skipped = &Skipped{Params: point, Reason: err}
					rejected.Add(1)
					continue
				}

				outcomes[i].result = &Result{
					Params:  point,
					Run:     res,
					Metrics: analyzer.Analyze(res),
				}
				done.Add(1)
			}
		}()
	}
	wg.Wait()

	report := &Report{Elapsed: time.Since(runStart)}
	for _, o := range outcomes {
		switch {
		case o.result != nil:
			report.Results = append(report.Results, *o.result)
		case o.skipped != nil:
			report.Skipped = append(report.Skipped, *o.skipped)
		}
	}

	log.Info("grid search finished",
		"evaluated", done.Load(),
		"skipped", rejected.Load(),
		"elapsed", report.Elapsed.Round(time.Millisecond),
	)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// Best picks the strongest result: the highest Sharpe ratio among
// results with positive return, falling back to the highest return
// when no result has both. Ties keep the earlier grid point. Returns
// nil for an empty result set.
func Best(results []Result) *Result {
	var best *Result
	for i := range results {
		r := &results[i]
		if !r.Metrics.Sharpe.Valid || !positiveReturn(r) {
			continue
		}
		if best == nil || r.Metrics.Sharpe.Value > best.Metrics.Sharpe.Value {
			best = r
		}
	}
	if best != nil {
		return best
	}
	for i := range results {
		r := &results[i]
		if !r.Metrics.ReturnPct.Valid {
			continue
		}
		if best == nil || r.Metrics.ReturnPct.Value > best.Metrics.ReturnPct.Value {
			best = r
		}
	}
	return best
}

func positiveReturn(r *Result) bool {
	return r.Metrics.ReturnPct.Valid && r.Metrics.ReturnPct.Value > 0
}
