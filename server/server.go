package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Digital-Creators-Team/slot-machine-registry/auth"
	"github.com/Digital-Creators-Team/slot-machine-registry/config"
	"github.com/Digital-Creators-Team/slot-machine-registry/game"
	"github.com/Digital-Creators-Team/slot-machine-registry/ledger"
	"github.com/Digital-Creators-Team/slot-machine-registry/middleware"
	"github.com/Digital-Creators-Team/slot-machine-registry/pkg/jackpot"
	"github.com/Digital-Creators-Team/slot-machine-registry/pkg/providers"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// App is the registry HTTP service: it exposes the registry, its machines
// and the jackpot stream over gin.
type App struct {
	engine *gin.Engine
	config *config.Config
	logger zerolog.Logger

	registry *game.Registry
	asset    ledger.Ledger
	oracle   providers.PriceOracle

	jackpotService    *jackpot.Service
	jackpotFeedCancel context.CancelFunc

	registryHandler *RegistryHandler
	machineHandler  *MachineHandler
	jackpotHandler  *JackpotHandler
	rngHandler      *RNGHandler
	walletHandler   *WalletHandler

	httpServer *http.Server
	onShutdown []func()
}

// Options holds server construction options
type Options struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Registry *game.Registry
	Asset    ledger.Ledger
	Oracle   providers.PriceOracle
	Jackpot  *jackpot.Service
}

// Router is an alias for gin.Engine for convenience
type Router = gin.Engine

// New creates the registry service application
func New(opts Options) *App {
	// Configure decimal.Decimal to marshal as JSON number instead of string
	// WARNING: This may cause precision loss for decimals with many digits when
	// unmarshaled by clients using IEEE 754 double-precision (e.g., JavaScript)
	decimal.MarshalJSONWithoutQuotes = true

	if opts.Config.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	app := &App{
		engine:         gin.New(),
		config:         opts.Config,
		logger:         opts.Logger,
		registry:       opts.Registry,
		asset:          opts.Asset,
		oracle:         opts.Oracle,
		jackpotService: opts.Jackpot,
	}

	if app.jackpotService == nil {
		app.jackpotService = jackpot.NewService(jackpot.ServiceConfig{
			BroadcastInterval: jackpot.DefaultBroadcastInterval,
			Source:            opts.Registry,
			Logger:            opts.Logger,
		})
	}

	app.registryHandler = NewRegistryHandler(app)
	app.machineHandler = NewMachineHandler(app)
	app.jackpotHandler = NewJackpotHandler(app, app.jackpotService)
	app.rngHandler = NewRNGHandler(app)
	app.walletHandler = NewWalletHandler(app)

	return app
}

// AttachJackpotUpdateFeed attaches a source of pool updates (e.g., a Kafka
// consumer channel on a replica process). Pass nil to detach.
func (a *App) AttachJackpotUpdateFeed(feed <-chan jackpot.Update) {
	if a.jackpotFeedCancel != nil {
		a.jackpotFeedCancel()
		a.jackpotFeedCancel = nil
	}
	if feed == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.jackpotFeedCancel = cancel
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-feed:
				if !ok {
					return
				}
				a.jackpotService.HandleUpdate(upd)
			}
		}
	}()
}

// UseCommonMiddlewares adds common middlewares to the application
func (a *App) UseCommonMiddlewares() {
	// Recovery middleware (must be first)
	a.engine.Use(middleware.Recovery(a.logger))

	// Trace ID middleware
	a.engine.Use(middleware.TraceID())

	// Logging middleware
	a.engine.Use(middleware.Logging(a.logger))

	// CORS middleware if enabled
	if a.config.Server.EnableCORS {
		a.engine.Use(middleware.CORS())
	}
}

// UseMiddleware adds a custom middleware
func (a *App) UseMiddleware(m gin.HandlerFunc) {
	a.engine.Use(m)
}

// RegisterHealthCheck adds health check endpoints
func (a *App) RegisterHealthCheck() {
	a.engine.GET("/health", a.healthCheck)
	a.engine.GET("/api/health", a.healthCheck)
}

func (a *App) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   a.config.Environment,
		"machines":  a.registry.GetStats().MachineCount,
	})
}

// RegisterAPIRoutes registers the registry, machine, jackpot and RNG routes.
//
// Flow: HTTP Request -> routes -> handler -> game.Registry / game.Machine
//
// Routes registered:
//   - GET  /api/registry                  -> RegistryHandler.Info
//   - GET  /api/registry/stats            -> RegistryHandler.Stats
//   - GET  /api/registry/machines         -> RegistryHandler.ListMachines
//   - POST /api/registry/machines         -> RegistryHandler.CreateMachine
//   - PUT  /api/registry/config           -> RegistryHandler.UpdateConfiguration
//   - PUT  /api/registry/house-wallet     -> RegistryHandler.SetHouseWallet
//   - POST /api/registry/jackpot/fund     -> RegistryHandler.FundJackpot
//   - POST /api/registry/withdraw         -> RegistryHandler.Withdraw
//   - machine routes under /api/machines/:address
//   - GET  /api/jackpot                   -> JackpotHandler.Current
//   - GET  /api/jackpot/updates           -> JackpotHandler.StreamUpdates (SSE)
//   - GET  /api/jackpot/updates/ws        -> JackpotHandler.StreamUpdatesWebSocket
//   - POST /api/rng/draw, /api/rng/verify -> RNGHandler
//   - GET  /api/wallet/balance            -> WalletHandler.Balance
func (a *App) RegisterAPIRoutes() {
	api := a.engine.Group("/api")
	api.Use(auth.JWTMiddleware(a.config.JWT.Secret, a.logger))
	{
		registry := api.Group("/registry")
		{
			registry.GET("", a.registryHandler.Info)
			registry.GET("/stats", a.registryHandler.Stats)
			registry.GET("/machines", a.registryHandler.ListMachines)
			registry.POST("/machines", a.registryHandler.CreateMachine)
			registry.PUT("/config", a.registryHandler.UpdateConfiguration)
			registry.PUT("/house-wallet", a.registryHandler.SetHouseWallet)
			registry.POST("/jackpot/fund", a.registryHandler.FundJackpot)
			registry.POST("/withdraw", a.registryHandler.Withdraw)
		}

		machines := api.Group("/machines/:address")
		{
			machines.GET("", a.machineHandler.Summary)
			machines.POST("/spin", a.machineHandler.Spin)
			machines.GET("/spins/last", a.machineHandler.LastSpin)
			machines.GET("/history", a.machineHandler.History)
			machines.GET("/winnings", a.machineHandler.Winnings)
			machines.PUT("/config", a.machineHandler.UpdateConfiguration)
			machines.PUT("/payout-table", a.machineHandler.UpdatePayoutTable)
			machines.PUT("/bets", a.machineHandler.UpdateBetAmounts)
			machines.POST("/randomness/refresh", a.machineHandler.RefreshRandomness)
			machines.POST("/withdraw", a.machineHandler.Withdraw)
			machines.POST("/ownership", a.machineHandler.TransferOwnership)
		}

		jackpotRoutes := api.Group("/jackpot")
		{
			jackpotRoutes.GET("", a.jackpotHandler.Current)
			jackpotRoutes.GET("/updates", a.jackpotHandler.StreamUpdates)
			jackpotRoutes.GET("/updates/ws", a.jackpotHandler.StreamUpdatesWebSocket)
		}

		rng := api.Group("/rng")
		{
			rng.POST("/draw", a.rngHandler.Draw)
			rng.POST("/verify", a.rngHandler.Verify)
		}

		api.GET("/wallet/balance", a.walletHandler.Balance)
	}

	a.logger.Info().Msg("API routes registered under /api")
}

// RegisterDevRoutes adds the development-only faucet and token endpoints.
// No-op outside the development environment.
func (a *App) RegisterDevRoutes() {
	if !a.config.IsDevelopment() {
		return
	}

	dev := a.engine.Group("/api/dev")
	{
		dev.POST("/token", a.walletHandler.IssueToken)
		dev.POST("/faucet", a.walletHandler.Faucet)
	}

	a.logger.Warn().Msg("Development routes registered under /api/dev")
}

// Router returns the Gin engine for custom route registration
func (a *App) Router() *gin.Engine {
	return a.engine
}

// Group creates a route group
func (a *App) Group(path string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return a.engine.Group(path, handlers...)
}

// AuthGroup creates a route group with JWT authentication
func (a *App) AuthGroup(path string) *gin.RouterGroup {
	return a.engine.Group(path, auth.JWTMiddleware(a.config.JWT.Secret, a.logger))
}

// OnShutdown registers a function to be called on shutdown
func (a *App) OnShutdown(fn func()) {
	a.onShutdown = append(a.onShutdown, fn)
}

// Registry returns the registry core
func (a *App) Registry() *game.Registry {
	return a.registry
}

// JackpotService returns the jackpot streaming service
func (a *App) JackpotService() *jackpot.Service {
	return a.jackpotService
}

// Config returns the application configuration
func (a *App) Config() *config.Config {
	return a.config
}

// Logger returns the application logger
func (a *App) Logger() zerolog.Logger {
	return a.logger
}

// Run starts the HTTP server and blocks until an interrupt signal
func (a *App) Run() error {
	addr := fmt.Sprintf(":%d", a.config.Server.Port)

	a.httpServer = &http.Server{
		Addr:         addr,
		Handler:      a.engine,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
	}

	go func() {
		a.logger.Info().
			Int("port", a.config.Server.Port).
			Str("environment", a.config.Environment).
			Msg("Starting HTTP server")

		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	return a.waitForShutdown()
}

// RunWithContext starts the HTTP server and shuts down when ctx is done
func (a *App) RunWithContext(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", a.config.Server.Port)

	a.httpServer = &http.Server{
		Addr:         addr,
		Handler:      a.engine,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info().
			Int("port", a.config.Server.Port).
			Str("environment", a.config.Environment).
			Msg("Starting HTTP server")

		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return a.shutdown()
	case err := <-errChan:
		return err
	}
}

func (a *App) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return a.shutdown()
}

func (a *App) shutdown() error {
	a.logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.jackpotFeedCancel != nil {
		a.jackpotFeedCancel()
	}
	for _, fn := range a.onShutdown {
		fn()
	}
	a.jackpotService.Stop()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Error during server shutdown")
		return err
	}

	a.logger.Info().Msg("Server shutdown complete")
	return nil
}
