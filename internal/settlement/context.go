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

package settlement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/extdex-labs/perp-settlement-go/internal/markets"
	"github.com/extdex-labs/perp-settlement-go/internal/stark"
)

// Default expiration horizons. Trading operations expire quickly; transfer
// and withdrawal settlements stay valid for twenty-one days so they can
// wait out L1 finality windows.
const (
	DefaultOrderExpiry    = time.Hour
	DefaultTransferExpiry = 21 * 24 * time.Hour
)

// SettlementContext aggregates everything one preimage build needs. It is
// created fresh per operation and never reused across operations with
// different nonces.
type SettlementContext struct {
	Market     markets.Market
	FeeRate    decimal.Decimal
	ExpiresAt  time.Time
	Nonce      uint64
	PositionID uint64
	PublicKey  stark.Felt
	Domain     stark.Domain
}

// ExpirySeconds returns the whole-second expiration instant the hash
// consumes: the ceiling of the epoch-millisecond timestamp, so a
// settlement never expires on chain before its advertised instant.
func (c SettlementContext) ExpirySeconds() uint64 {
	return expirySeconds(c.ExpiresAt)
}

// ExpiryEpochMillis returns the millisecond expiration the transport layer
// carries alongside the settlement.
func (c SettlementContext) ExpiryEpochMillis() int64 {
	return c.ExpiresAt.UnixMilli()
}

func expirySeconds(t time.Time) uint64 {
	return expirySecondsFromMillis(t.UnixMilli())
}
