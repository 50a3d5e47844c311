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

	"callisto/internal/config"
	"callisto/internal/data"
	"callisto/internal/domain"
	"callisto/internal/store"
	"callisto/internal/util"
)

func main() {
	symbols := flag.String("symbols", "", "comma-separated symbols to fetch (overrides config)")
	start := flag.String("start", "", "start date YYYY-MM-DD (overrides config)")
	end := flag.String("end", "", "end date YYYY-MM-DD (default: latest finished trading day)")
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

	if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
		log.Fatal("alpaca credentials missing; set alpaca.api_key/api_secret or APCA_API_KEY_ID/APCA_API_SECRET_KEY")
	}

	syms := cfg.Backtest.Symbols
	if *symbols != "" {
		syms = splitSymbols(*symbols)
	}
	if len(syms) == 0 {
		log.Fatal("no symbols; pass -symbols or set backtest.symbols")
	}

	startStr := cfg.Fetch.StartDate
	if *start != "" {
		startStr = *start
	}
	if startStr == "" {
		log.Fatal("no start date; pass -start or set fetch.start_date")
	}
	startDate, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		log.Fatalf("bad start date %q: %v", startStr, err)
	}

	var endDate time.Time
	if *end != "" {
		endDate, err = time.Parse("2006-01-02", *end)
		if err != nil {
			log.Fatalf("bad end date %q: %v", *end, err)
		}
	} else {
		endDate, err = data.LatestFinishedTradingDay(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
		if err != nil {
			log.Fatalf("failed to resolve latest trading day: %v", err)
		}
	}

	barStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}

	source := data.NewAlpacaSource(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		cfg.Fetch.RateLimitPerMin,
		cfg.Fetch.MaxAttempts,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("fetching daily bars",
		"symbols", len(syms),
		"start", startDate.Format("2006-01-02"),
		"end", endDate.Format("2006-01-02"),
	)

	runStart := time.Now()
	fetched, skipped := 0, 0
	for _, symbol := range syms {
		if ctx.Err() != nil {
			break
		}
		series, err := source.Fetch(ctx, symbol, startDate, endDate)
		if err != nil {
			if errors.Is(err, domain.ErrEmptySeries) {
				slog.Warn("no bars returned", "symbol", symbol)
				skipped++
				continue
			}
			slog.Error("fetch failed", "symbol", symbol, "err", err)
			skipped++
			continue
		}
		if err := barStore.WriteBars(ctx, series.Bars(), cfg.Backtest.Market); err != nil {
			log.Fatalf("failed to store bars for %s: %v", symbol, err)
		}
		slog.Info("stored bars", "symbol", symbol, "count", series.Len())
		fetched++
	}

	slog.Info("fetch finished",
		"fetched", fetched,
		"skipped", skipped,
		"elapsed", time.Since(runStart).Round(time.Second),
	)
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
