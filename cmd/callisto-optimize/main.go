package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"callisto/internal/config"
	"callisto/internal/data"
	"callisto/internal/optimizer"
	"callisto/internal/report"
	"callisto/internal/store"
	"callisto/internal/strategy"
	"callisto/internal/strategy/builtins"
	"callisto/internal/util"
)

func main() {
	symbol := flag.String("symbol", "", "symbol to optimize (required unless configured)")
	workers := flag.Int("workers", 0, "parallel simulations (overrides config; 0 = CPU count)")
	csvPath := flag.String("csv", "", "write grid results to this CSV file (overrides config)")
	start := flag.String("start", "", "start date YYYY-MM-DD (overrides config)")
	end := flag.String("end", "", "end date YYYY-MM-DD (overrides config)")
	flag.Parse()

	cfgPath := "config/callisto.yaml"
	if p := os.Getenv("CALLISTO_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	sym := strings.ToUpper(strings.TrimSpace(*symbol))
	if sym == "" && len(cfg.Backtest.Symbols) > 0 {
		sym = cfg.Backtest.Symbols[0]
	}
	if sym == "" {
		log.Fatal("no symbol; pass -symbol or set backtest.symbols")
	}
	if *workers > 0 {
		cfg.Optimize.Workers = *workers
	}
	if *csvPath != "" {
		cfg.Optimize.OutputCSV = *csvPath
	}
	if *start != "" {
		cfg.Backtest.StartDate = *start
	}
	if *end != "" {
		cfg.Backtest.EndDate = *end
	}

	startDate, endDate, err := dateRange(cfg.Backtest.StartDate, cfg.Backtest.EndDate)
	if err != nil {
		log.Fatalf("bad date range: %v", err)
	}

	barStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	source := data.NewStoreSource(barStore, cfg.Backtest.Market)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	series, err := source.Fetch(ctx, sym, startDate, endDate)
	if err != nil {
		log.Fatalf("failed to load bars for %s: %v", sym, err)
	}

	params := []optimizer.Param{
		{Name: "fast", Values: periods(cfg.Optimize.FastPeriods, 5, 20, 5)},
		{Name: "slow", Values: periods(cfg.Optimize.SlowPeriods, 25, 60, 5)},
	}
	factory := func(point optimizer.Point) (strategy.Strategy, error) {
		return builtins.NewSMACross(builtins.SMACrossConfig{
			FastPeriod: int(point["fast"]),
			SlowPeriod: int(point["slow"]),
			Stake:      cfg.Backtest.Stake,
		})
	}

	rep, err := optimizer.Search(ctx, series, params, factory, optimizer.Options{
		InitialCash: cfg.Backtest.InitialCash,
		Commission:  cfg.Backtest.Commission,
		Workers:     cfg.Optimize.Workers,
		Log:         logger,
	})
	if err != nil {
		log.Fatalf("grid search failed: %v", err)
	}

	fmt.Println()
	if err := report.WriteOptimizerTable(os.Stdout, rep); err != nil {
		log.Fatalf("failed to print results: %v", err)
	}

	if cfg.Optimize.OutputCSV != "" {
		f, err := os.Create(cfg.Optimize.OutputCSV)
		if err != nil {
			log.Fatalf("failed to create %s: %v", cfg.Optimize.OutputCSV, err)
		}
		defer f.Close()
		if err := report.WriteOptimizerCSV(f, rep); err != nil {
			log.Fatalf("failed to write %s: %v", cfg.Optimize.OutputCSV, err)
		}
		slog.Info("wrote grid results", "path", cfg.Optimize.OutputCSV, "rows", len(rep.Results))
	}
}

// periods converts the configured candidate list, falling back to the
// given inclusive range when none is configured.
func periods(configured []int, from, to, step int) []float64 {
	if len(configured) > 0 {
		out := make([]float64, len(configured))
		for i, v := range configured {
			out[i] = float64(v)
		}
		return out
	}
	var out []float64
	for v := from; v <= to; v += step {
		out = append(out, float64(v))
	}
	return out
}

func openStore(cfg *config.Config) (store.BarStore, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		return store.NewSQLiteStore(cfg.Storage.SQLitePath)
	case "", "parquet":
		return store.NewParquetStore(cfg.Storage.DataDir), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func dateRange(start, end string) (time.Time, time.Time, error) {
	var startDate, endDate time.Time
	var err error
	if start != "" {
		startDate, err = time.Parse("2006-01-02", start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing start date: %w", err)
		}
	}
	if end == "" {
		endDate = time.Now().UTC()
	} else {
		endDate, err = time.Parse("2006-01-02", end)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing end date: %w", err)
		}
	}
	return startDate, endDate, nil
}
