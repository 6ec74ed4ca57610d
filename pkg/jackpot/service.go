package jackpot

import (
	"context"
	"sync"
	"time"

	"github.com/Digital-Creators-Team/slot-machine-registry/ledger"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	// DefaultBroadcastInterval is the default interval for flushing the
	// buffered update to listeners
	DefaultBroadcastInterval = 2 * time.Second

	// DefaultRefreshInterval is the default interval for re-reading the
	// pool from the source
	DefaultRefreshInterval = 60 * time.Second
)

// Service buffers pool updates and broadcasts them to stream subscribers.
// It is transport-agnostic: the server wires SSE and WebSocket routes over
// Listen(). Updates arrive from the core's event sink or from a Kafka
// consumer on replica processes; a periodic source refresh corrects any
// missed update.
type Service struct {
	mu       sync.RWMutex
	buffered *Update
	dirty    bool

	broad  *Broadcaster
	logger zerolog.Logger
	clock  clockwork.Clock
	source PoolSource

	interval        time.Duration
	refreshInterval time.Duration
	stopChan        chan struct{}
	stopOnce        sync.Once
}

// NewService creates and starts a jackpot streaming service.
func NewService(cfg ServiceConfig) *Service {
	interval := cfg.BroadcastInterval
	if interval <= 0 {
		interval = DefaultBroadcastInterval
	}
	refresh := cfg.RefreshInterval
	if refresh <= 0 {
		refresh = DefaultRefreshInterval
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	s := &Service{
		broad:           NewBroadcaster(128),
		logger:          cfg.Logger.With().Str("component", "jackpot-service").Logger(),
		clock:           clock,
		source:          cfg.Source,
		interval:        interval,
		refreshInterval: refresh,
		stopChan:        make(chan struct{}),
	}
	go s.flushLoop()
	if s.source != nil {
		go s.refreshLoop()
	}
	return s
}

// HandleUpdate buffers an observed pool update. Only the newest update per
// flush window survives; stale timestamps are ignored.
func (s *Service) HandleUpdate(update Update) {
	if update.Timestamp.IsZero() {
		update.Timestamp = s.clock.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buffered != nil && update.Timestamp.Before(s.buffered.Timestamp) {
		s.logger.Debug().
			Time("existing", s.buffered.Timestamp).
			Time("incoming", update.Timestamp).
			Msg("Ignoring stale pool update")
		return
	}
	s.buffered = &update
	s.dirty = true
}

// Current returns the freshest known pool value: the source when available,
// otherwise the last buffered update.
func (s *Service) Current() Update {
	if s.source != nil {
		return Update{
			Pool:      ledger.ToDecimal(s.source.JackpotPool()),
			Timestamp: s.clock.Now(),
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.buffered != nil {
		return *s.buffered
	}
	return Update{Pool: decimal.Zero, Timestamp: s.clock.Now()}
}

// Listen returns a channel of flushed updates plus a cancel function.
func (s *Service) Listen(ctx context.Context) (<-chan Update, context.CancelFunc) {
	return s.broad.Listen(ctx)
}

// Stop terminates the flush and refresh loops.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *Service) flushLoop() {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.Chan():
			s.flush()
		}
	}
}

func (s *Service) refreshLoop() {
	ticker := s.clock.NewTicker(s.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.Chan():
			s.HandleUpdate(Update{
				Pool:      ledger.ToDecimal(s.source.JackpotPool()),
				Timestamp: s.clock.Now(),
			})
		}
	}
}

// flush broadcasts the buffered update, if any arrived since the last flush
func (s *Service) flush() {
	s.mu.Lock()
	if !s.dirty || s.buffered == nil {
		s.mu.Unlock()
		return
	}
	update := *s.buffered
	s.dirty = false
	s.mu.Unlock()

	s.broad.Send(update)
	s.logger.Debug().
		Str("pool", update.Pool.String()).
		Msg("Flushed pool update")
}
