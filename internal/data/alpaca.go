package data

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"callisto/internal/domain"
	"callisto/internal/util"
)

// Compile-time interface check.
var _ Source = (*AlpacaSource)(nil)

// AlpacaSource fetches daily bars from the Alpaca market-data API. Calls are
// rate limited and retried on transient failures.
type AlpacaSource struct {
	client      *marketdata.Client
	limiter     *util.RateLimiter
	maxAttempts int
	log         *slog.Logger
}

// NewAlpacaSource creates an AlpacaSource with the given credentials.
// rateLimitPerMin bounds API calls; maxAttempts bounds retries per call.
func NewAlpacaSource(apiKey, apiSecret, dataURL string, rateLimitPerMin, maxAttempts int) *AlpacaSource {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &AlpacaSource{
		client:      marketdata.NewClient(opts),
		limiter:     util.NewRateLimiter(rateLimitPerMin),
		maxAttempts: maxAttempts,
		log:         slog.Default().With("source", "alpaca"),
	}
}

// Fetch pulls daily bars for one symbol and builds a validated series.
func (a *AlpacaSource) Fetch(ctx context.Context, symbol string, start, end time.Time) (*domain.Series, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var raw []marketdata.Bar
	err := util.Retry(ctx, a.maxAttempts, time.Second, func() error {
		var err error
		raw, err = a.client.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     start,
			End:       end,
			Feed:      "sip",
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}

	bars := make([]domain.Bar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, domain.Bar{
			Symbol:    strings.ToUpper(symbol),
			Timestamp: b.Timestamp,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    int64(b.Volume),
		})
	}

	a.log.Debug("fetched bars", "symbol", symbol, "count", len(bars))
	return Clean(symbol, bars)
}
