package jackpot

import (
	"context"

	"github.com/Digital-Creators-Team/slot-machine-registry/pkg/providers"
)

// Sink is a providers.EventSink that feeds pool updates into the streaming
// service and forwards everything to an inner sink (usually the Kafka one).
type Sink struct {
	service *Service
	inner   providers.EventSink
}

// NewSink wraps an inner sink with streaming-service fan-in. A nil inner
// sink is replaced by a no-op.
func NewSink(service *Service, inner providers.EventSink) *Sink {
	if inner == nil {
		inner = providers.NopSink{}
	}
	return &Sink{service: service, inner: inner}
}

func (s *Sink) MachineDeployed(ctx context.Context, ev *providers.MachineDeployedEvent) {
	s.inner.MachineDeployed(ctx, ev)
}

func (s *Sink) SpinSettled(ctx context.Context, ev *providers.SpinSettledEvent) {
	s.inner.SpinSettled(ctx, ev)
}

func (s *Sink) JackpotWon(ctx context.Context, ev *providers.JackpotWonEvent) {
	s.inner.JackpotWon(ctx, ev)
}

func (s *Sink) PoolUpdated(ctx context.Context, ev *providers.PoolUpdatedEvent) {
	s.service.HandleUpdate(Update{
		Pool:      ev.Pool,
		Delta:     ev.Delta,
		Timestamp: ev.Timestamp,
	})
	s.inner.PoolUpdated(ctx, ev)
}
