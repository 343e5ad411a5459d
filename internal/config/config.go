package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config is the full application configuration, loaded once at startup.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	FinancialEvents string `mapstructure:"financial_events"`
}

// BusinessConfig holds the ledger's tunable business rules.
// Referral tier rates are basis points of the locked principal:
// the default 700/300/100 table means 7% / 3% / 1%.
type BusinessConfig struct {
	ReferralTierBasisPoints []int64 `mapstructure:"referral_tier_basis_points"`
	MaxRetryCount           int     `mapstructure:"max_retry_count"`
	OutboxPollSeconds       int     `mapstructure:"outbox_poll_seconds"`
}

// DefaultTierBasisPoints applies when the config omits the tier table.
var DefaultTierBasisPoints = []int64{700, 300, 100}

// MaxReferralTiers caps the cascade depth regardless of configuration.
const MaxReferralTiers = 3

// TierBasisPoints returns the configured tier table, falling back to the
// defaults. The slice length bounds the cascade depth and is clamped to
// MaxReferralTiers, so an oversized config cannot deepen the walk.
func (b *BusinessConfig) TierBasisPoints() []int64 {
	tiers := b.ReferralTierBasisPoints
	if len(tiers) == 0 {
		tiers = DefaultTierBasisPoints
	}
	if len(tiers) > MaxReferralTiers {
		tiers = tiers[:MaxReferralTiers]
	}
	return tiers
}

var GlobalConfig *Config

// LoadConfig reads and parses the YAML config file.
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("failed to parse config file: %v", err)
	}

	GlobalConfig = config
	return config
}
