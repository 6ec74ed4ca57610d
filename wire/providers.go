package wire

import (
	"github.com/Digital-Creators-Team/slot-machine-registry/config"
	"github.com/Digital-Creators-Team/slot-machine-registry/db/redis"
	"github.com/Digital-Creators-Team/slot-machine-registry/events/kafka"
	"github.com/Digital-Creators-Team/slot-machine-registry/game"
	"github.com/Digital-Creators-Team/slot-machine-registry/httpclient"
	"github.com/Digital-Creators-Team/slot-machine-registry/ledger"
	"github.com/Digital-Creators-Team/slot-machine-registry/logging"
	"github.com/Digital-Creators-Team/slot-machine-registry/pkg/jackpot"
	"github.com/Digital-Creators-Team/slot-machine-registry/pkg/providers"
	"github.com/Digital-Creators-Team/slot-machine-registry/provider"
	"github.com/Digital-Creators-Team/slot-machine-registry/server"
	"github.com/google/wire"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// ProvideLogger provides a zerolog.Logger
func ProvideLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(cfg.Logging)
}

// ProvideRedisClient provides a Redis client
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	return redis.New(cfg.Redis)
}

// ProvideKafkaProducer provides a Kafka producer; nil when no brokers are
// configured
func ProvideKafkaProducer(cfg *config.Config, logger zerolog.Logger) (*kafka.Producer, error) {
	return kafka.NewProducer(kafka.ProducerConfig{
		Brokers:   cfg.Kafka.Brokers,
		WorkerNum: cfg.Kafka.WorkerNum,
		Logger:    logger,
	})
}

// ProvideOracle provides the HTTP price oracle
func ProvideOracle(cfg *config.Config, logger zerolog.Logger) providers.PriceOracle {
	client := httpclient.New(httpclient.Config{
		BaseURL:    cfg.Oracle.BaseURL,
		Timeout:    cfg.Oracle.Timeout,
		MaxRetries: cfg.Oracle.MaxRetries,
		Logger:     logger,
	})
	return provider.NewHTTPOracle(client, logger)
}

// ProvideSnapshotStore provides the Redis-backed snapshot store
func ProvideSnapshotStore(client *redis.Client, logger zerolog.Logger) providers.SnapshotStore {
	return provider.NewSnapshotProvider(client, logger)
}

// ProvideEventSink provides the Kafka-backed event sink
func ProvideEventSink(producer *kafka.Producer, logger zerolog.Logger) providers.EventSink {
	return provider.NewEventProvider(producer, logger)
}

// ProvideEnv provides the production randomness environment
func ProvideEnv(cfg *config.Config) game.Env {
	return game.NewClockEnv(clockwork.NewRealClock(), cfg.Registry.SlotSeconds)
}

// ProvideLedger provides the in-memory ledger
func ProvideLedger() ledger.Ledger {
	return ledger.NewMemoryLedger()
}

// ProvideRegistry provides the registry core
func ProvideRegistry(cfg *config.Config, asset ledger.Ledger, env game.Env, sink providers.EventSink, store providers.SnapshotStore, logger zerolog.Logger) (*game.Registry, error) {
	return game.NewRegistry(game.RegistryConfig{
		MaxJackpotShareBPS:  cfg.Registry.MaxJackpotShareBPS,
		MaxHouseEdgeBPS:     cfg.Registry.MaxHouseEdgeBPS,
		DefaultJackpotShare: cfg.Registry.DefaultJackpotShare,
		DefaultHouseEdge:    cfg.Registry.DefaultHouseEdge,
		SpinsPerRefresh:     cfg.Registry.SpinsPerRefresh,
		Owner:               ledger.Address(cfg.Registry.OwnerWallet),
		HouseWallet:         ledger.Address(cfg.Registry.HouseWallet),
	}, asset, env, sink, store, logger)
}

// ProvideJackpotService provides the pool streaming service
func ProvideJackpotService(registry *game.Registry, logger zerolog.Logger) *jackpot.Service {
	return jackpot.NewService(jackpot.ServiceConfig{
		Source: registry,
		Logger: logger,
	})
}

// ProvideServerOptions provides server options
func ProvideServerOptions(cfg *config.Config, logger zerolog.Logger, registry *game.Registry, asset ledger.Ledger, oracle providers.PriceOracle, svc *jackpot.Service) server.Options {
	return server.Options{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Asset:    asset,
		Oracle:   oracle,
		Jackpot:  svc,
	}
}

// ProvideApp provides the main application
func ProvideApp(opts server.Options) *server.App {
	return server.New(opts)
}

// ConfigSet is the wire provider set for configuration
var ConfigSet = wire.NewSet(
	config.Load,
)

// LoggingSet is the wire provider set for logging
var LoggingSet = wire.NewSet(
	ProvideLogger,
)

// InfraSet is the wire provider set for external infrastructure
var InfraSet = wire.NewSet(
	ProvideRedisClient,
	ProvideKafkaProducer,
	ProvideSnapshotStore,
	ProvideEventSink,
	ProvideOracle,
)

// CoreSet is the wire provider set for the game core
var CoreSet = wire.NewSet(
	ProvideEnv,
	ProvideLedger,
	ProvideRegistry,
	ProvideJackpotService,
)

// ServerSet is the wire provider set for the server
var ServerSet = wire.NewSet(
	ProvideServerOptions,
	ProvideApp,
)

// DefaultSet is the default wire provider set including all providers
var DefaultSet = wire.NewSet(
	LoggingSet,
	InfraSet,
	CoreSet,
	ServerSet,
)
