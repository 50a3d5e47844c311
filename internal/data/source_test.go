package data

import (
	"context"
	"errors"
	"testing"
	"time"

	"callisto/internal/domain"
	"callisto/internal/store"
)

func bar(n int, close float64) domain.Bar {
	return domain.Bar{
		Symbol:    "TEST",
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n),
		Open:      close, High: close, Low: close, Close: close,
		Volume: 1000,
	}
}

func TestCleanDropsInvalidRows(t *testing.T) {
	bars := []domain.Bar{
		bar(0, 100),
		{Symbol: "TEST", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Open: 10, High: 5, Low: 20, Close: 10, Volume: 1}, // inverted low/high
		bar(2, 102),
	}

	s, err := Clean("TEST", bars)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("Clean kept %d bars, want 2 (invalid row dropped)", s.Len())
	}
}

func TestCleanAllInvalid(t *testing.T) {
	bars := []domain.Bar{
		{Symbol: "TEST", Timestamp: time.Now(), Open: -1, High: 1, Low: 1, Close: 1},
	}
	_, err := Clean("TEST", bars)
	if !errors.Is(err, domain.ErrEmptySeries) {
		t.Fatalf("Clean with no valid rows = %v, want ErrEmptySeries", err)
	}
}

func TestStoreSourceFetch(t *testing.T) {
	ctx := context.Background()
	ps := store.NewParquetStore(t.TempDir())

	if err := ps.WriteBars(ctx, []domain.Bar{bar(0, 100), bar(1, 101)}, "us"); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	src := NewStoreSource(ps, "us")
	series, err := src.Fetch(ctx, "TEST",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if series.Len() != 2 {
		t.Errorf("Fetch returned %d bars, want 2", series.Len())
	}
}

func TestStoreSourceFetchEmptySymbol(t *testing.T) {
	src := NewStoreSource(store.NewParquetStore(t.TempDir()), "us")

	_, err := src.Fetch(context.Background(), "MISSING",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, domain.ErrEmptySeries) {
		t.Fatalf("Fetch for missing symbol = %v, want ErrEmptySeries", err)
	}
}
