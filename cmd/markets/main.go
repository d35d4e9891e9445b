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

// Command markets streams the exchange's market metadata channel and shows
// the settlement metadata (asset ids, decimals, fee rates) builds would use.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/extdex-labs/perp-settlement-go/config"
	"github.com/extdex-labs/perp-settlement-go/internal/markets"
)

var (
	symbols     = flag.String("symbols", "", "Comma-separated markets to watch (default: all from config)")
	displayRate = flag.Duration("display-rate", 5*time.Second, "How often to redraw the table")
)

func main() {
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	config.SetupLogger(cfg.Server.LogLevel, cfg.Server.LogJson)
	defer zap.L().Sync()

	watched := cfg.Markets.Markets
	if *symbols != "" {
		watched = strings.Split(*symbols, ",")
		for i := range watched {
			watched[i] = strings.TrimSpace(watched[i])
		}
	}
	if len(watched) == 0 {
		return fmt.Errorf("at least one market symbol is required")
	}

	fmt.Printf("Watching market metadata for %v\n", watched)
	fmt.Printf("Press Ctrl+C to stop.\n\n")

	cache := markets.NewCache()
	client := markets.NewStreamClient(markets.StreamConfig{
		Url:            cfg.Markets.WebSocketUrl,
		Markets:        watched,
		ReconnectDelay: cfg.Markets.ReconnectDelay,
	}, cache)

	if err := client.Start(); err != nil {
		return fmt.Errorf("failed to start metadata stream: %w", err)
	}
	defer client.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*displayRate)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			displayMarkets(cache)

		case <-sigChan:
			fmt.Printf("\nShutting down...\n")
			return nil
		}
	}
}

func displayMarkets(cache *markets.Cache) {
	names := cache.Names()
	if len(names) == 0 {
		fmt.Printf("Waiting for metadata snapshot... (%s)\n", time.Now().Format("15:04:05"))
		return
	}
	sort.Strings(names)

	// Clear screen for cleaner display
	fmt.Print("\033[2J\033[H")

	fmt.Printf("  Market metadata @ %s\n\n", time.Now().Format("15:04:05"))
	fmt.Printf("  %-12s %-14s %-6s %-14s %-6s %-12s %-12s %-12s\n",
		"MARKET", "BASE ASSET", "DEC", "QUOTE ASSET", "DEC", "MIN SIZE", "MAKER FEE", "TAKER FEE")
	fmt.Printf("  %-12s %-14s %-6s %-14s %-6s %-12s %-12s %-12s\n",
		"------", "----------", "---", "-----------", "---", "--------", "---------", "---------")

	for _, name := range names {
		m, ok := cache.Market(name)
		if !ok {
			continue
		}
		fmt.Printf("  %-12s %-14s %-6d %-14s %-6d %-12s %-12s %-12s\n",
			m.Name,
			truncateFelt(m.SyntheticAsset.ID.Hex()),
			m.SyntheticAsset.Decimals,
			truncateFelt(m.CollateralAsset.ID.Hex()),
			m.CollateralAsset.Decimals,
			m.MinOrderSize.String(),
			m.MakerFeeRate.String(),
			m.TakerFeeRate.String())
	}

	fmt.Printf("\n")
}

func truncateFelt(hex string) string {
	if len(hex) <= 12 {
		return hex
	}
	return hex[:8] + ".." + hex[len(hex)-2:]
}
