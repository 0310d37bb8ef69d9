package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"quotefeed/internal/quotes"
	"quotefeed/internal/registry"
	"quotefeed/internal/store"
)

type stubProvider struct {
	bar quotes.Bar
	err error
}

func (s *stubProvider) Snapshot(ctx context.Context, ticker string) (quotes.Bar, error) {
	return s.bar, s.err
}

func TestBackfiller_SkipsWhenWatermarkIsToday(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := store.NewForTesting(db)

	dir := t.TempDir()
	watermark := filepath.Join(dir, ".last_history_load")
	today := time.Now().UTC().Format("2006-01-02")
	if err := os.WriteFile(watermark, []byte(today), 0o644); err != nil {
		t.Fatalf("seed watermark: %v", err)
	}

	reg, _ := registry.Load(nil, "")
	b := NewBackfiller(reg, &stubProvider{}, s, watermark, 7)

	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expected no DB interaction when watermark is current: %v", err)
	}
}

func TestBackfiller_RunsAndWritesWatermark(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := store.NewForTesting(db)

	dir := t.TempDir()
	watermark := filepath.Join(dir, ".last_history_load")

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO market_data")
	for i := 0; i < 7; i++ {
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()
	// Remaining 4 symbols in the whitelist repeat the same pattern.
	for i := 0; i < 4; i++ {
		mock.ExpectBegin()
		p := mock.ExpectPrepare("INSERT INTO market_data")
		for i := 0; i < 7; i++ {
			p.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
		}
		mock.ExpectCommit()
	}

	reg, _ := registry.Load(nil, "")
	provider := &stubProvider{bar: quotes.Bar{Close: decimal.RequireFromString("1.1"), High: decimal.RequireFromString("1.2"), Low: decimal.RequireFromString("1.0"), Volume: 100}}
	b := NewBackfiller(reg, provider, s, watermark, 7)

	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}

	gotBytes, err := os.ReadFile(watermark)
	if err != nil {
		t.Fatalf("reading watermark: %v", err)
	}
	want := time.Now().UTC().Format("2006-01-02")
	if string(gotBytes) != want {
		t.Errorf("watermark = %q, want %q", string(gotBytes), want)
	}
}
