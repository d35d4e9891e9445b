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

// Package markets holds per-market settlement metadata: the asset ids and
// decimal scales the preimage builder needs, plus fee rates and order size
// limits. Metadata is read-mostly; refreshes replace the whole snapshot
// atomically so an in-flight build never observes half-updated decimals.
package markets

import (
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/extdex-labs/perp-settlement-go/internal/stark"
)

// Asset identifies one on-chain asset and how many fractional decimal
// digits its integer representation encodes.
type Asset struct {
	ID       stark.Felt `json:"id"`
	Decimals int32      `json:"decimals"`
}

// Market is the settlement metadata for one perpetual market.
type Market struct {
	Name string `json:"name"`

	// SyntheticAsset is the base (traded) asset.
	SyntheticAsset Asset `json:"syntheticAsset"`

	// CollateralAsset is the quote/settlement asset. Fees settle in it.
	CollateralAsset Asset `json:"collateralAsset"`

	MinOrderSize decimal.Decimal `json:"minOrderSize"`
	MakerFeeRate decimal.Decimal `json:"makerFeeRate"`
	TakerFeeRate decimal.Decimal `json:"takerFeeRate"`
}

// AssetScale is the pair of decimal scales relevant to one market.
type AssetScale struct {
	SizeDecimals       int32
	CollateralDecimals int32
}

// AssetScale returns the market's size/collateral decimal configuration.
func (m Market) AssetScale() AssetScale {
	return AssetScale{
		SizeDecimals:       m.SyntheticAsset.Decimals,
		CollateralDecimals: m.CollateralAsset.Decimals,
	}
}

// Provider supplies market metadata to settlement builds.
type Provider interface {
	Market(name string) (Market, bool)
}

type snapshot struct {
	markets map[string]Market
}

// Cache is an atomically swapped snapshot of market metadata. Readers
// always see a consistent table; Replace installs a whole new one.
type Cache struct {
	snap atomic.Pointer[snapshot]
}

// NewCache creates a cache seeded with the given markets.
func NewCache(markets ...Market) *Cache {
	c := &Cache{}
	c.Replace(markets)
	return c
}

// Market implements Provider.
func (c *Cache) Market(name string) (Market, bool) {
	m, ok := c.snap.Load().markets[name]
	return m, ok
}

// Names returns the market names in the current snapshot.
func (c *Cache) Names() []string {
	snap := c.snap.Load()
	names := make([]string, 0, len(snap.markets))
	for name := range snap.markets {
		names = append(names, name)
	}
	return names
}

// Replace atomically installs a new metadata table.
func (c *Cache) Replace(markets []Market) {
	table := make(map[string]Market, len(markets))
	for _, m := range markets {
		table[m.Name] = m
	}
	c.snap.Store(&snapshot{markets: table})
}
