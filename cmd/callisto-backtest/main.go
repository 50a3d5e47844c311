package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"callisto/internal/analyzer"
	"callisto/internal/broker"
	"callisto/internal/config"
	"callisto/internal/data"
	"callisto/internal/domain"
	"callisto/internal/engine"
	"callisto/internal/report"
	"callisto/internal/store"
	"callisto/internal/strategy/builtins"
	"callisto/internal/util"
)

func main() {
	symbols := flag.String("symbols", "", "comma-separated symbols (overrides config)")
	fast := flag.Int("fast", 0, "fast SMA period (overrides config)")
	slow := flag.Int("slow", 0, "slow SMA period (overrides config)")
	stake := flag.Int64("stake", 0, "shares per entry (overrides config)")
	cash := flag.Float64("cash", 0, "initial cash (overrides config)")
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

	if *symbols != "" {
		cfg.Backtest.Symbols = splitSymbols(*symbols)
	}
	if *fast > 0 {
		cfg.Backtest.FastPeriod = *fast
	}
	if *slow > 0 {
		cfg.Backtest.SlowPeriod = *slow
	}
	if *stake > 0 {
		cfg.Backtest.Stake = *stake
	}
	if *cash > 0 {
		cfg.Backtest.InitialCash = *cash
	}
	if *start != "" {
		cfg.Backtest.StartDate = *start
	}
	if *end != "" {
		cfg.Backtest.EndDate = *end
	}
	if len(cfg.Backtest.Symbols) == 0 {
		log.Fatal("no symbols configured; set backtest.symbols or pass -symbols")
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

	exitCode := 0
	for _, symbol := range cfg.Backtest.Symbols {
		if err := runOne(ctx, cfg, source, symbol, startDate, endDate); err != nil {
			if errors.Is(err, domain.ErrEmptySeries) {
				slog.Warn("no data, skipping symbol", "symbol", symbol)
				continue
			}
			slog.Error("backtest failed", "symbol", symbol, "err", err)
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

func runOne(ctx context.Context, cfg *config.Config, source data.Source, symbol string, start, end time.Time) error {
	series, err := source.Fetch(ctx, symbol, start, end)
	if err != nil {
		return err
	}

	strat, err := builtins.NewSMACross(builtins.SMACrossConfig{
		FastPeriod: cfg.Backtest.FastPeriod,
		SlowPeriod: cfg.Backtest.SlowPeriod,
		Stake:      cfg.Backtest.Stake,
	})
	if err != nil {
		return err
	}

	b := broker.NewSimulatorBroker(cfg.Backtest.InitialCash, cfg.Backtest.Commission)
	eng := engine.NewEngine(b, strat, nil)

	slog.Info("running backtest",
		"symbol", symbol,
		"bars", series.Len(),
		"fast", cfg.Backtest.FastPeriod,
		"slow", cfg.Backtest.SlowPeriod,
	)
	res, err := eng.Run(ctx, series, map[string]float64{
		"fast": float64(cfg.Backtest.FastPeriod),
		"slow": float64(cfg.Backtest.SlowPeriod),
	})
	if err != nil {
		return err
	}

	fmt.Println()
	if err := report.WriteSummary(os.Stdout, res, analyzer.Analyze(res)); err != nil {
		return err
	}
	fmt.Println()
	return nil
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

func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
