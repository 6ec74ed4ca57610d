package jackpot

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type staticSource struct {
	pool uint64
}

func (s *staticSource) JackpotPool() uint64 { return s.pool }

func TestServiceFlushesNewestUpdate(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewService(ServiceConfig{
		BroadcastInterval: time.Second,
		RefreshInterval:   time.Hour,
		Clock:             clock,
		Logger:            zerolog.Nop(),
	})
	defer s.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, stop := s.Listen(ctx)
	defer stop()

	base := clock.Now()
	s.HandleUpdate(Update{Pool: decimal.NewFromInt(100), Timestamp: base})
	s.HandleUpdate(Update{Pool: decimal.NewFromInt(250), Timestamp: base.Add(time.Millisecond)})
	// stale update must not clobber the newer one
	s.HandleUpdate(Update{Pool: decimal.NewFromInt(50), Timestamp: base.Add(-time.Second)})

	clock.BlockUntilContext(ctx, 1)
	clock.Advance(time.Second)

	select {
	case got := <-ch:
		if !got.Pool.Equal(decimal.NewFromInt(250)) {
			t.Errorf("flushed pool = %s, want 250", got.Pool)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no update flushed")
	}

	// nothing new buffered: the next tick flushes nothing
	clock.Advance(time.Second)
	select {
	case got := <-ch:
		t.Fatalf("unexpected re-flush: %s", got.Pool)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestServiceCurrentPrefersSource(t *testing.T) {
	src := &staticSource{pool: 42_000_000}
	s := NewService(ServiceConfig{
		BroadcastInterval: time.Second,
		RefreshInterval:   time.Hour,
		Source:            src,
		Clock:             clockwork.NewFakeClock(),
		Logger:            zerolog.Nop(),
	})
	defer s.Stop()

	s.HandleUpdate(Update{Pool: decimal.NewFromInt(999), Timestamp: time.Now()})

	// 42,000,000 smallest units is 42 whole tokens
	if got := s.Current(); !got.Pool.Equal(decimal.NewFromInt(42)) {
		t.Errorf("current pool = %s, want 42", got.Pool)
	}
}

func TestServiceCurrentFallsBackToBuffer(t *testing.T) {
	s := NewService(ServiceConfig{
		BroadcastInterval: time.Second,
		Clock:             clockwork.NewFakeClock(),
		Logger:            zerolog.Nop(),
	})
	defer s.Stop()

	if got := s.Current(); !got.Pool.IsZero() {
		t.Errorf("empty service pool = %s, want 0", got.Pool)
	}

	s.HandleUpdate(Update{Pool: decimal.NewFromInt(7), Timestamp: time.Now()})
	if got := s.Current(); !got.Pool.Equal(decimal.NewFromInt(7)) {
		t.Errorf("current pool = %s, want 7", got.Pool)
	}
}
