/**
 * Copyright 2026-present Extdex Labs, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/extdex-labs/perp-settlement-go/internal/stark"
)

// Config holds the complete application configuration
type Config struct {
	Network    string
	Domain     DomainConfig
	Account    AccountConfig
	Collateral CollateralConfig
	Markets    MarketsConfig
	Journal    JournalConfig
	Server     ServerConfig
}

// DomainConfig is the signing domain. It is the single source of domain
// values in the process: settlement builders receive it from here and
// never assemble their own.
type DomainConfig struct {
	Name     string
	Version  string
	ChainID  string
	Revision uint32
}

// Domain converts the configuration into the stark domain type.
func (d DomainConfig) Domain() stark.Domain {
	return stark.Domain{
		Name:     d.Name,
		Version:  d.Version,
		ChainID:  d.ChainID,
		Revision: d.Revision,
	}
}

// AccountConfig identifies the signing account.
type AccountConfig struct {
	PositionID   uint64
	StarkKey     string // public key, hex felt
	SignerSocket string // endpoint of the external signing service
}

// String masks the signer endpoint when printing
func (a AccountConfig) String() string {
	return fmt.Sprintf("AccountConfig{PositionID: %d, StarkKey: %s, SignerSocket: [REDACTED]}",
		a.PositionID, a.StarkKey)
}

// GoString masks the signer endpoint when using %#v format
func (a AccountConfig) GoString() string {
	return a.String()
}

// CollateralConfig describes the settlement collateral asset.
type CollateralConfig struct {
	AssetID  string // hex felt
	Decimals int32
}

// MarketsConfig holds the market metadata stream settings.
type MarketsConfig struct {
	WebSocketUrl   string
	Markets        []string
	ReconnectDelay time.Duration
}

// JournalConfig holds settlement journal settings.
type JournalConfig struct {
	Path string
}

// ServerConfig holds server settings
type ServerConfig struct {
	LogLevel string
	LogJson  bool
}

// Network presets. STARK_* environment variables override individual
// fields after the preset is applied.
const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"
)

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Network: NetworkTestnet,
		Domain: DomainConfig{
			Name:     "Perpetuals",
			Version:  "v0",
			ChainID:  "SN_SEPOLIA",
			Revision: 1,
		},
		Collateral: CollateralConfig{
			Decimals: 6,
		},
		Markets: MarketsConfig{
			WebSocketUrl:   "wss://api.testnet.extdex.exchange/stream.extdex.exchange/v1/markets",
			Markets:        []string{"BTC-USD"},
			ReconnectDelay: 5 * time.Second,
		},
		Journal: JournalConfig{
			Path: "settlements.db",
		},
		Server: ServerConfig{
			LogLevel: "info",
			LogJson:  false,
		},
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadFromEnv(cfg *Config) {
	// Network preset first, then field overrides on top of it.
	if v := os.Getenv("NETWORK"); v != "" {
		cfg.Network = v
		if v == NetworkMainnet {
			cfg.Domain.ChainID = "SN_MAIN"
			cfg.Markets.WebSocketUrl = "wss://api.extdex.exchange/stream.extdex.exchange/v1/markets"
		}
	}

	// Domain
	if v := os.Getenv("STARK_DOMAIN_NAME"); v != "" {
		cfg.Domain.Name = v
	}
	if v := os.Getenv("STARK_DOMAIN_VERSION"); v != "" {
		cfg.Domain.Version = v
	}
	if v := os.Getenv("STARK_CHAIN_ID"); v != "" {
		cfg.Domain.ChainID = v
	}
	if v := os.Getenv("STARK_DOMAIN_REVISION"); v != "" {
		if i, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.Domain.Revision = uint32(i)
		}
	}

	// Account
	if v := os.Getenv("ACCOUNT_POSITION_ID"); v != "" {
		if i, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Account.PositionID = i
		}
	}
	if v := os.Getenv("ACCOUNT_STARK_KEY"); v != "" {
		cfg.Account.StarkKey = v
	}
	if v := os.Getenv("ACCOUNT_SIGNER_SOCKET"); v != "" {
		cfg.Account.SignerSocket = v
	}

	// Collateral
	if v := os.Getenv("COLLATERAL_ASSET_ID"); v != "" {
		cfg.Collateral.AssetID = v
	}
	if v := os.Getenv("COLLATERAL_DECIMALS"); v != "" {
		if i, err := strconv.ParseInt(v, 10, 32); err == nil {
			cfg.Collateral.Decimals = int32(i)
		}
	}

	// Markets stream
	if v := os.Getenv("MARKETS_WEBSOCKET_URL"); v != "" {
		cfg.Markets.WebSocketUrl = v
	}
	if v := os.Getenv("MARKETS"); v != "" {
		cfg.Markets.Markets = strings.Split(v, ",")
	}
	if v := os.Getenv("MARKETS_RECONNECT_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Markets.ReconnectDelay = d
		}
	}

	// Journal
	if v := os.Getenv("JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
	}

	// Server
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}
	if v := os.Getenv("LOG_JSON"); v != "" {
		cfg.Server.LogJson = v == "true"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Network != NetworkMainnet && c.Network != NetworkTestnet {
		return fmt.Errorf("NETWORK must be %q or %q", NetworkMainnet, NetworkTestnet)
	}

	if c.Domain.Name == "" {
		return fmt.Errorf("STARK_DOMAIN_NAME is required")
	}
	if c.Domain.ChainID == "" {
		return fmt.Errorf("STARK_CHAIN_ID is required")
	}

	if c.Account.StarkKey != "" {
		if _, err := stark.FeltFromHex(c.Account.StarkKey); err != nil {
			return fmt.Errorf("invalid ACCOUNT_STARK_KEY: %w", err)
		}
	}
	if c.Collateral.AssetID != "" {
		if _, err := stark.FeltFromHex(c.Collateral.AssetID); err != nil {
			return fmt.Errorf("invalid COLLATERAL_ASSET_ID: %w", err)
		}
	}

	if len(c.Markets.Markets) == 0 {
		return fmt.Errorf("at least one market is required")
	}

	return nil
}

// SetupLogger initializes the global Zap logger with structured JSON format
func SetupLogger(level string, useJSON bool) {
	zapConfig := zap.NewProductionConfig()

	// Use ISO8601 timestamps instead of epoch
	zapConfig.EncoderConfig.TimeKey = "ts"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	// Enable caller information (file:line)
	zapConfig.EncoderConfig.CallerKey = "caller"
	zapConfig.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	zapConfig.EncoderConfig.LevelKey = "level"
	zapConfig.EncoderConfig.MessageKey = "msg"
	zapConfig.EncoderConfig.StacktraceKey = "stacktrace"

	switch level {
	case "debug":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	logger, err := zapConfig.Build(zap.AddCallerSkip(0))
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zap.ReplaceGlobals(logger)
}
