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

package markets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/extdex-labs/perp-settlement-go/internal/stark"
)

// StreamConfig holds configuration for the metadata stream connection.
type StreamConfig struct {
	Url            string
	Markets        []string // empty means all markets
	ReconnectDelay time.Duration
}

// StreamClient subscribes to the exchange's market metadata channel and
// swaps the cache snapshot whenever the exchange publishes a refresh.
type StreamClient struct {
	config    StreamConfig
	cache     *Cache
	conn      *websocket.Conn
	ctx       context.Context
	cancel    context.CancelFunc
	reconnect bool
}

// marketMessage is the wire shape of one metadata publication.
type marketMessage struct {
	Type string         `json:"type"`
	Data []marketRecord `json:"data"`
}

type marketRecord struct {
	Name            string      `json:"name"`
	SyntheticAsset  assetRecord `json:"syntheticAsset"`
	CollateralAsset assetRecord `json:"collateralAsset"`
	MinOrderSize    string      `json:"minOrderSize"`
	MakerFeeRate    string      `json:"makerFeeRate"`
	TakerFeeRate    string      `json:"takerFeeRate"`
}

type assetRecord struct {
	ID       string `json:"id"`
	Decimals int32  `json:"decimals"`
}

// NewStreamClient creates a metadata stream client backed by the given cache.
func NewStreamClient(config StreamConfig, cache *Cache) *StreamClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &StreamClient{
		config:    config,
		cache:     cache,
		ctx:       ctx,
		cancel:    cancel,
		reconnect: true,
	}
}

// Start begins the connection and message processing.
func (c *StreamClient) Start() error {
	go c.run()
	return nil
}

// Stop gracefully stops the client.
func (c *StreamClient) Stop() {
	c.reconnect = false
	c.cancel()
	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *StreamClient) run() {
	for c.reconnect {
		if err := c.connect(); err != nil {
			zap.L().Error("Failed to connect to metadata stream",
				zap.String("url", c.config.Url),
				zap.Error(err))
			time.Sleep(c.config.ReconnectDelay)
			continue
		}

		if err := c.subscribe(); err != nil {
			zap.L().Error("Failed to subscribe to metadata stream", zap.Error(err))
			c.conn.Close()
			time.Sleep(c.config.ReconnectDelay)
			continue
		}

		c.readMessages()

		if c.reconnect {
			zap.L().Info("Reconnecting to metadata stream",
				zap.Duration("delay", c.config.ReconnectDelay))
			time.Sleep(c.config.ReconnectDelay)
		}
	}
}

func (c *StreamClient) connect() error {
	zap.L().Info("Connecting to metadata stream", zap.String("url", c.config.Url))

	conn, _, err := websocket.DefaultDialer.Dial(c.config.Url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.conn = conn
	return nil
}

func (c *StreamClient) subscribe() error {
	sub := map[string]interface{}{
		"type":    "SUBSCRIBE",
		"channel": "markets",
	}
	if len(c.config.Markets) > 0 {
		sub["markets"] = c.config.Markets
	}

	if err := c.conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("failed to send subscription: %w", err)
	}
	return nil
}

func (c *StreamClient) readMessages() {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, message, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.ctx.Done():
				return
			default:
				zap.L().Error("Error reading metadata message", zap.Error(err))
				return
			}
		}

		if err := c.handleMessage(message); err != nil {
			zap.L().Error("Error handling metadata message", zap.Error(err))
		}
	}
}

func (c *StreamClient) handleMessage(message []byte) error {
	var msg marketMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	switch msg.Type {
	case "SUBSCRIBED":
		zap.L().Info("Metadata subscription confirmed")
		return nil
	case "SNAPSHOT", "UPDATE":
		return c.applyRefresh(msg.Data)
	case "ERROR":
		return fmt.Errorf("metadata stream error: %s", message)
	default:
		return nil
	}
}

// applyRefresh parses a full metadata publication and installs it as one
// atomic snapshot. A single malformed record rejects the whole refresh:
// a partially applied table is exactly what the snapshot model forbids.
func (c *StreamClient) applyRefresh(records []marketRecord) error {
	parsed := make([]Market, 0, len(records))
	for _, rec := range records {
		m, err := parseMarketRecord(rec)
		if err != nil {
			return fmt.Errorf("market %q: %w", rec.Name, err)
		}
		parsed = append(parsed, m)
	}

	c.cache.Replace(parsed)
	zap.L().Info("Market metadata refreshed", zap.Int("markets", len(parsed)))
	return nil
}

func parseMarketRecord(rec marketRecord) (Market, error) {
	if rec.Name == "" {
		return Market{}, fmt.Errorf("missing market name")
	}

	synthetic, err := parseAssetRecord(rec.SyntheticAsset)
	if err != nil {
		return Market{}, fmt.Errorf("synthetic asset: %w", err)
	}
	collateral, err := parseAssetRecord(rec.CollateralAsset)
	if err != nil {
		return Market{}, fmt.Errorf("collateral asset: %w", err)
	}

	minOrderSize, err := decimal.NewFromString(rec.MinOrderSize)
	if err != nil {
		return Market{}, fmt.Errorf("min order size: %w", err)
	}
	makerFee, err := decimal.NewFromString(rec.MakerFeeRate)
	if err != nil {
		return Market{}, fmt.Errorf("maker fee rate: %w", err)
	}
	takerFee, err := decimal.NewFromString(rec.TakerFeeRate)
	if err != nil {
		return Market{}, fmt.Errorf("taker fee rate: %w", err)
	}

	return Market{
		Name:            rec.Name,
		SyntheticAsset:  synthetic,
		CollateralAsset: collateral,
		MinOrderSize:    minOrderSize,
		MakerFeeRate:    makerFee,
		TakerFeeRate:    takerFee,
	}, nil
}

func parseAssetRecord(rec assetRecord) (Asset, error) {
	id, err := stark.FeltFromHex(rec.ID)
	if err != nil {
		return Asset{}, err
	}
	return Asset{ID: id, Decimals: rec.Decimals}, nil
}
