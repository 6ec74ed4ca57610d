package provider

import (
	"context"

	"github.com/Digital-Creators-Team/slot-machine-registry/events/kafka"
	"github.com/Digital-Creators-Team/slot-machine-registry/pkg/providers"
	"github.com/rs/zerolog"
)

// EventProvider implements providers.EventSink by publishing settlement
// records to Kafka via the async producer. Publish failures are logged by the
// producer workers and never surface into a spin.
type EventProvider struct {
	producer *kafka.Producer
	logger   zerolog.Logger
}

// NewEventProvider creates a Kafka-backed event sink. A nil producer yields
// a sink that drops everything, which keeps local development Kafka-free.
func NewEventProvider(producer *kafka.Producer, logger zerolog.Logger) providers.EventSink {
	if producer == nil {
		return providers.NopSink{}
	}
	return &EventProvider{
		producer: producer,
		logger:   logger.With().Str("component", "event_provider").Logger(),
	}
}

func (p *EventProvider) MachineDeployed(ctx context.Context, ev *providers.MachineDeployedEvent) {
	p.send(kafka.TopicMachineDeployed, ev.Machine, ev)
}

func (p *EventProvider) SpinSettled(ctx context.Context, ev *providers.SpinSettledEvent) {
	p.send(kafka.TopicSpinSettled, ev.Machine, ev)
}

func (p *EventProvider) JackpotWon(ctx context.Context, ev *providers.JackpotWonEvent) {
	p.send(kafka.TopicJackpotWon, ev.Machine, ev)
}

func (p *EventProvider) PoolUpdated(ctx context.Context, ev *providers.PoolUpdatedEvent) {
	p.send(kafka.TopicPoolUpdated, "pool", ev)
}

func (p *EventProvider) send(topic, key string, value interface{}) {
	if err := p.producer.SendMessage(topic, key, value); err != nil {
		p.logger.Error().Err(err).Str("topic", topic).Msg("Failed to enqueue event")
	}
}
