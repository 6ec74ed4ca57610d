package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Digital-Creators-Team/slot-machine-registry/auth"
	"github.com/Digital-Creators-Team/slot-machine-registry/config"
	"github.com/Digital-Creators-Team/slot-machine-registry/db/redis"
	"github.com/Digital-Creators-Team/slot-machine-registry/docs"
	"github.com/Digital-Creators-Team/slot-machine-registry/events/kafka"
	"github.com/Digital-Creators-Team/slot-machine-registry/game"
	"github.com/Digital-Creators-Team/slot-machine-registry/httpclient"
	"github.com/Digital-Creators-Team/slot-machine-registry/ledger"
	"github.com/Digital-Creators-Team/slot-machine-registry/logging"
	"github.com/Digital-Creators-Team/slot-machine-registry/pkg/jackpot"
	"github.com/Digital-Creators-Team/slot-machine-registry/pkg/providers"
	"github.com/Digital-Creators-Team/slot-machine-registry/provider"
	"github.com/Digital-Creators-Team/slot-machine-registry/server"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// @title           Slot Machine Registry API
// @version         1.0
// @description     Slot machine registry, shared jackpot and verifiable RNG service

// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "slotregistry",
		Short: "Slot machine registry service",
		Long: `Slot machine registry service.

Hosts the machine registry, the shared jackpot pool and the verifiable
RNG endpoints over HTTP, with jackpot updates streamed via SSE and
WebSocket.`,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config-development.yaml", "Path to config file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the registry HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	var tokenWallet, tokenUsername string
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a JWT for a wallet address",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(configPath, tokenWallet, tokenUsername)
		},
	}
	tokenCmd.Flags().StringVarP(&tokenWallet, "wallet", "w", "", "Wallet address to bind (required)")
	tokenCmd.Flags().StringVarP(&tokenUsername, "username", "u", "", "Display username")
	_ = tokenCmd.MarkFlagRequired("wallet")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(configPath string) error {
	// 1. Load config & logger
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(cfg.Logging)

	// 2. Initialize infrastructure
	var store providers.SnapshotStore
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = redis.New(cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		store = provider.NewSnapshotProvider(redisClient, logger)
	} else {
		logger.Warn().Msg("No Redis configured; snapshots disabled")
	}

	kafkaProducer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:   cfg.Kafka.Brokers,
		WorkerNum: cfg.Kafka.WorkerNum,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Kafka producer")
	}

	oracle := buildOracle(cfg, logger)
	asset := ledger.NewMemoryLedger()
	env := game.NewClockEnv(clockwork.NewRealClock(), cfg.Registry.SlotSeconds)

	// 3. Create the registry core behind a streaming-aware event sink
	jackpotService := jackpot.NewService(jackpot.ServiceConfig{Logger: logger})
	sink := jackpot.NewSink(jackpotService, provider.NewEventProvider(kafkaProducer, logger))

	registry, err := game.NewRegistry(game.RegistryConfig{
		MaxJackpotShareBPS:  cfg.Registry.MaxJackpotShareBPS,
		MaxHouseEdgeBPS:     cfg.Registry.MaxHouseEdgeBPS,
		DefaultJackpotShare: cfg.Registry.DefaultJackpotShare,
		DefaultHouseEdge:    cfg.Registry.DefaultHouseEdge,
		SpinsPerRefresh:     cfg.Registry.SpinsPerRefresh,
		Owner:               ledger.Address(cfg.Registry.OwnerWallet),
		HouseWallet:         ledger.Address(cfg.Registry.HouseWallet),
	}, asset, env, sink, store, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create registry")
	}

	// 4. Development bootstrap: faucet the owner and deploy one machine
	if cfg.IsDevelopment() {
		bootstrapDev(cfg, asset, registry, oracle, logger)
	}

	// 5. Create app & routes
	app := server.New(server.Options{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Asset:    asset,
		Oracle:   oracle,
		Jackpot:  jackpotService,
	})
	app.UseCommonMiddlewares()
	app.RegisterHealthCheck()
	app.RegisterAPIRoutes()
	app.RegisterDevRoutes()
	app.RegisterSwagger(server.SwaggerInfo{Title: "Slot Machine Registry API", Version: "1.0"}, func(host string) {
		docs.SwaggerInfo.Host = host
	})

	// 6. Replica pool feed from Kafka (core processes read the registry
	// directly; this keeps horizontally scaled replicas in sync)
	if len(cfg.Kafka.Brokers) > 0 {
		feed := make(chan jackpot.Update, 256)
		app.AttachJackpotUpdateFeed(feed)

		consumer := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:       cfg.Kafka.Brokers,
			Topic:         kafka.TopicPoolUpdated,
			ConsumerGroup: cfg.Kafka.ConsumerGroup + "-jackpot",
			Logger:        logger,
		}, kafka.NewPoolCache(logger))
		if err := consumer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Failed to start pool consumer")
		}
		sub := consumer.Subscribe()
		go func() {
			for evt := range sub.Channel {
				feed <- jackpot.Update{
					Pool:      evt.Pool,
					Delta:     evt.Delta,
					Timestamp: evt.UpdatedAt,
				}
			}
		}()
		app.OnShutdown(func() {
			consumer.Unsubscribe(sub)
			_ = consumer.Stop()
		})
	}

	// 7. Cleanup & run
	app.OnShutdown(func() {
		if kafkaProducer != nil {
			kafkaProducer.Close()
		}
		if redisClient != nil {
			redisClient.Close()
		}
	})

	logger.Info().Int("port", cfg.Server.Port).Msg("Starting slot machine registry service")
	return app.Run()
}

// buildOracle picks the HTTP oracle when an endpoint is configured, falling
// back to a static quote for offline development.
func buildOracle(cfg *config.Config, logger zerolog.Logger) providers.PriceOracle {
	if cfg.Oracle.BaseURL != "" {
		client := httpclient.New(httpclient.Config{
			BaseURL:    cfg.Oracle.BaseURL,
			Timeout:    cfg.Oracle.Timeout,
			MaxRetries: cfg.Oracle.MaxRetries,
			Logger:     logger,
		})
		return provider.NewHTTPOracle(client, logger)
	}

	logger.Warn().Msg("No oracle endpoint configured; using static quote")
	return provider.NewStaticOracle(providers.PriceQuote{
		Price:       4_200_000_000,
		Conf:        1_000_000,
		Expo:        -8,
		PublishTime: 1,
	})
}

// bootstrapDev funds the owner wallet and deploys a first machine so a fresh
// development process is playable immediately.
func bootstrapDev(cfg *config.Config, asset *ledger.MemoryLedger, registry *game.Registry, oracle providers.PriceOracle, logger zerolog.Logger) {
	ctx := context.Background()
	owner := ledger.Address(cfg.Registry.OwnerWallet)

	if cfg.Registry.FaucetAmount > 0 {
		if err := asset.Mint(ctx, owner, cfg.Registry.FaucetAmount); err != nil {
			logger.Warn().Err(err).Msg("Owner faucet failed")
		}
	}

	feedID := cfg.Oracle.FeedID
	if feedID == "" {
		feedID = "dev-feed"
	}
	m, err := registry.CreateMachine(ctx, owner, oracle, feedID, owner)
	if err != nil {
		logger.Warn().Err(err).Msg("Dev machine deployment failed")
		return
	}
	if cfg.Registry.MachineBankroll > 0 {
		if err := asset.Mint(ctx, m.Address(), cfg.Registry.MachineBankroll); err != nil {
			logger.Warn().Err(err).Msg("Dev bankroll mint failed")
		}
	}
	logger.Info().
		Str("machine", string(m.Address())).
		Uint64("bankroll", cfg.Registry.MachineBankroll).
		Msg("Development machine deployed")
}

func runToken(configPath, wallet, username string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	token, err := auth.GenerateToken(cfg.JWT.Secret, wallet, username, cfg.JWT.Expiration)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	fmt.Println(token)
	return nil
}
