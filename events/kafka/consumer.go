package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// PoolUpdateEvent mirrors the pool.updated topic payload. There is a single
// shared jackpot pool, so no pool identifier travels with the event.
type PoolUpdateEvent struct {
	Pool      decimal.Decimal `json:"pool"`
	Delta     decimal.Decimal `json:"delta"`
	UpdatedAt time.Time       `json:"timestamp"`
}

// PoolCache holds the last observed pool value.
type PoolCache struct {
	mu     sync.RWMutex
	pool   decimal.Decimal
	seen   bool
	logger zerolog.Logger
}

// NewPoolCache creates a new pool cache
func NewPoolCache(logger zerolog.Logger) *PoolCache {
	return &PoolCache{
		logger: logger,
	}
}

// Get retrieves the cached pool value. The second return is false until the
// first update has been observed.
func (pc *PoolCache) Get() (decimal.Decimal, bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.pool, pc.seen
}

// Set updates the cached pool value
func (pc *PoolCache) Set(amount decimal.Decimal) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.pool = amount
	pc.seen = true
	pc.logger.Debug().
		Str("amount", amount.String()).
		Msg("Pool cache updated")
}

// Subscription represents a client subscription for pool updates
type Subscription struct {
	ID      string
	Channel chan PoolUpdateEvent
}

// Consumer reads pool.updated events and fans them out to subscribers.
// Used by replica processes that do not host the registry core but still
// stream pool updates to clients.
type Consumer struct {
	reader    *kafka.Reader
	poolCache *PoolCache
	logger    zerolog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	mu          sync.RWMutex
	subscribers map[string]*Subscription
}

// ConsumerConfig holds Kafka consumer configuration
type ConsumerConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	Logger        zerolog.Logger
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(config ConsumerConfig, poolCache *PoolCache) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        config.Brokers,
		Topic:          config.Topic,
		GroupID:        config.ConsumerGroup,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	return &Consumer{
		reader:      reader,
		poolCache:   poolCache,
		logger:      config.Logger.With().Str("component", "kafka-consumer").Logger(),
		ctx:         ctx,
		cancel:      cancel,
		subscribers: make(map[string]*Subscription),
	}
}

// Start begins consuming messages
func (c *Consumer) Start() error {
	c.wg.Add(1)
	go c.consume()
	c.logger.Info().Msg("Kafka consumer started")
	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	c.logger.Info().Msg("Stopping Kafka consumer...")
	c.cancel()
	c.wg.Wait()

	if err := c.reader.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Error closing Kafka reader")
		return err
	}

	c.logger.Info().Msg("Kafka consumer stopped")
	return nil
}

func (c *Consumer) consume() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			msg, err := c.reader.FetchMessage(c.ctx)
			if err != nil {
				if err == context.Canceled {
					return
				}
				c.logger.Error().Err(err).Msg("Error fetching message from Kafka")
				time.Sleep(time.Second)
				continue
			}

			if err := c.handleMessage(msg); err != nil {
				c.logger.Error().
					Err(err).
					Str("topic", msg.Topic).
					Int("partition", msg.Partition).
					Int64("offset", msg.Offset).
					Msg("Error handling message")
			}

			if err := c.reader.CommitMessages(c.ctx, msg); err != nil {
				c.logger.Error().Err(err).Msg("Error committing message")
			}
		}
	}
}

func (c *Consumer) handleMessage(msg kafka.Message) error {
	var event PoolUpdateEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return err
	}

	c.poolCache.Set(event.Pool)

	c.mu.RLock()
	for _, sub := range c.subscribers {
		select {
		case sub.Channel <- event:
		default:
			c.logger.Warn().
				Str("sub_id", sub.ID).
				Msg("Subscriber channel full, dropping event")
		}
	}
	c.mu.RUnlock()
	return nil
}

// GetPoolCache returns the pool cache
func (c *Consumer) GetPoolCache() *PoolCache {
	return c.poolCache
}

// Subscribe registers a new pool-update subscription
func (c *Consumer) Subscribe() *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub := &Subscription{
		ID:      uuid.New().String(),
		Channel: make(chan PoolUpdateEvent, 10),
	}
	c.subscribers[sub.ID] = sub

	c.logger.Debug().
		Str("sub_id", sub.ID).
		Msg("New subscription added")

	return sub
}

// Unsubscribe removes a subscription
func (c *Consumer) Unsubscribe(sub *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.subscribers[sub.ID]; ok {
		close(existing.Channel)
		delete(c.subscribers, sub.ID)
	}

	c.logger.Debug().
		Str("sub_id", sub.ID).
		Msg("Subscription removed")
}
