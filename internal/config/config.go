package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Source   SourceConfig
	Engine   EngineConfig
	Broker   BrokerConfig
	Logging  LoggingConfig
	Shutdown time.Duration
}

// SourceConfig drives the random order flow
type SourceConfig struct {
	OrderCount  int
	Seed        uint64
	PriceMin    int64
	PriceSpread int64
	MaxQuantity int64
}

type EngineConfig struct {
	BTreeDegree int
	DepthLevels int
}

type BrokerConfig struct {
	SubscriberBuffer int
}

type LoggingConfig struct {
	Level       string
	File        string
	// ReportDepth logs the final market depth on shutdown
	ReportDepth bool
}

// LoadConfig loads configuration from environment variables, reading a .env
// file first when one exists.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	cfg := &Config{
		Source: SourceConfig{
			OrderCount:  getEnvInt("AUCTION_ORDER_COUNT", 1000),
			Seed:        uint64(getEnvInt64("AUCTION_SEED", 0)),
			PriceMin:    getEnvInt64("AUCTION_PRICE_MIN", 100),
			PriceSpread: getEnvInt64("AUCTION_PRICE_SPREAD", 20),
			MaxQuantity: getEnvInt64("AUCTION_MAX_QUANTITY", 10),
		},
		Engine: EngineConfig{
			BTreeDegree: getEnvInt("AUCTION_BTREE_DEGREE", 32),
			DepthLevels: getEnvInt("AUCTION_DEPTH_LEVELS", 10),
		},
		Broker: BrokerConfig{
			SubscriberBuffer: getEnvInt("AUCTION_SUBSCRIBER_BUFFER", 256),
		},
		Logging: LoggingConfig{
			Level: getEnvString("AUCTION_LOG_LEVEL", "info"),
			File:  getEnvString("AUCTION_LOG_FILE", ""), // Empty = stdout only

			ReportDepth: getEnvBool("AUCTION_REPORT_DEPTH", true),
		},
		Shutdown: getEnvDuration("AUCTION_SHUTDOWN_TIMEOUT", 5*time.Second),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		switch strings.ToLower(value) {
		case "yes", "y", "on":
			return true
		case "no", "n", "off":
			return false
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Source.OrderCount < 0 {
		return fmt.Errorf("invalid order count: %d", c.Source.OrderCount)
	}
	if c.Source.PriceMin <= 0 {
		return fmt.Errorf("invalid price min: %d", c.Source.PriceMin)
	}
	if c.Source.PriceSpread <= 0 {
		return fmt.Errorf("invalid price spread: %d", c.Source.PriceSpread)
	}
	if c.Source.MaxQuantity <= 0 {
		return fmt.Errorf("invalid max quantity: %d", c.Source.MaxQuantity)
	}
	if c.Engine.BTreeDegree < 2 {
		return fmt.Errorf("invalid btree degree: %d", c.Engine.BTreeDegree)
	}
	if c.Engine.DepthLevels <= 0 {
		return fmt.Errorf("invalid depth levels: %d", c.Engine.DepthLevels)
	}
	if c.Broker.SubscriberBuffer <= 0 {
		return fmt.Errorf("invalid subscriber buffer: %d", c.Broker.SubscriberBuffer)
	}
	if c.Shutdown <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %s", c.Shutdown)
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Source{Orders:%d, Seed:%d, Price:[%d,+%d), MaxQty:%d}, Engine{Degree:%d, Depth:%d}, Broker{Buffer:%d}, Log{Level:%s}",
		c.Source.OrderCount, c.Source.Seed, c.Source.PriceMin, c.Source.PriceSpread, c.Source.MaxQuantity,
		c.Engine.BTreeDegree, c.Engine.DepthLevels, c.Broker.SubscriberBuffer, c.Logging.Level,
	)
}
