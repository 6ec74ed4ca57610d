package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Digital-Creators-Team/slot-machine-registry/logging"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Kafka       KafkaConfig    `mapstructure:"kafka"`
	JWT         JWTConfig      `mapstructure:"jwt"`
	Logging     logging.Config `mapstructure:"logging"`
	Oracle      OracleConfig   `mapstructure:"oracle"`
	Registry    RegistryConfig `mapstructure:"registry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	EnableCORS   bool          `mapstructure:"enable_cors"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
	WorkerNum     int      `mapstructure:"worker_num"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// OracleConfig holds the price feed endpoint configuration
type OracleConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	FeedID     string        `mapstructure:"feed_id"`
}

// RegistryConfig holds the economic parameters of the registry deployment.
// Shares and edges are basis points; amounts are smallest units.
type RegistryConfig struct {
	MaxJackpotShareBPS  uint64 `mapstructure:"max_jackpot_share_bps"`
	MaxHouseEdgeBPS     uint64 `mapstructure:"max_house_edge_bps"`
	DefaultJackpotShare uint64 `mapstructure:"default_jackpot_share_bps"`
	DefaultHouseEdge    uint64 `mapstructure:"default_house_edge_bps"`
	SpinsPerRefresh     uint64 `mapstructure:"spins_per_refresh"`
	OwnerWallet         string `mapstructure:"owner_wallet"`
	HouseWallet         string `mapstructure:"house_wallet"`
	MachineBankroll     uint64 `mapstructure:"machine_bankroll"`
	FaucetAmount        uint64 `mapstructure:"faucet_amount"`
	SlotSeconds         uint64 `mapstructure:"slot_seconds"`
}

// Load loads configuration from a YAML file using Viper
func Load(filename string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(filename)
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.setDefaults()

	return &config, nil
}

// LoadByEnv loads config-<env>.yaml from the given directory, where <env>
// comes from ENV or APP_ENV and defaults to development.
func LoadByEnv(configDir string) (*Config, error) {
	v := viper.New()

	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	env := viper.GetString("ENV")
	if env == "" {
		env = viper.GetString("APP_ENV")
	}
	if env == "" {
		env = "development"
	}

	v.SetConfigName(fmt.Sprintf("config-%s", env))
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.setDefaults()

	return &config, nil
}

// setDefaults sets default values for missing configuration
func (c *Config) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 5
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Oracle.Timeout == 0 {
		c.Oracle.Timeout = 10 * time.Second
	}
	if c.Oracle.MaxRetries == 0 {
		c.Oracle.MaxRetries = 2
	}
	if c.Registry.MaxJackpotShareBPS == 0 {
		c.Registry.MaxJackpotShareBPS = 1000
	}
	if c.Registry.MaxHouseEdgeBPS == 0 {
		c.Registry.MaxHouseEdgeBPS = 1000
	}
	if c.Registry.DefaultJackpotShare == 0 {
		c.Registry.DefaultJackpotShare = 500
	}
	if c.Registry.DefaultHouseEdge == 0 {
		c.Registry.DefaultHouseEdge = 200
	}
	if c.Registry.SpinsPerRefresh == 0 {
		c.Registry.SpinsPerRefresh = 10
	}
	if c.Registry.SlotSeconds == 0 {
		c.Registry.SlotSeconds = 2
	}
	if c.JWT.Expiration == 0 {
		c.JWT.Expiration = 24 * time.Hour
	}
}

// GetAddr returns Redis address
func (c *RedisConfig) GetAddr() string {
	return c.Addr
}

// IsDevelopment returns true if environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// IsProduction returns true if environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}
