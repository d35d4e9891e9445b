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

// Package settlement builds the signed settlement objects the exchange and
// its on-chain verifier independently recompute and check. It owns the
// preimage schemas, the validation gate, and the assembler; the hashing and
// signing primitives stay behind the stark package's capability interfaces.
package settlement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/extdex-labs/perp-settlement-go/internal/stark"
)

// Side is an order side. The domain has exactly two values; anything else
// is rejected by the validation gate.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// TimeInForce controls how long an order rests.
type TimeInForce string

const (
	TimeInForceGTT TimeInForce = "GTT"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
)

// SelfTradeProtection is the exchange-side self-match prevention level.
type SelfTradeProtection string

const (
	SelfTradeProtectionDisabled SelfTradeProtection = "DISABLED"
	SelfTradeProtectionAccount  SelfTradeProtection = "ACCOUNT"
	SelfTradeProtectionClient   SelfTradeProtection = "CLIENT"
)

// TpslType says what a TP/SL trigger closes.
type TpslType string

const (
	// TpslTypeOrder ties the trigger to its parent order's size.
	TpslTypeOrder TpslType = "ORDER"

	// TpslTypePosition ("whole position") is not yet supported by the
	// target protocol version and is rejected by the gate.
	TpslTypePosition TpslType = "POSITION"
)

// TriggerPriceType is the price feed a trigger condition is evaluated on.
type TriggerPriceType string

const (
	TriggerPriceMark  TriggerPriceType = "MARK"
	TriggerPriceIndex TriggerPriceType = "INDEX"
	TriggerPriceLast  TriggerPriceType = "LAST"
)

// ExecutionPriceType is how a triggered order prices its execution.
type ExecutionPriceType string

const (
	ExecutionPriceLimit ExecutionPriceType = "LIMIT"

	// ExecutionPriceMarket is rejected: the settlement hash needs a
	// concrete limit reference price.
	ExecutionPriceMarket ExecutionPriceType = "MARKET"
)

// OperationKind tags a settlement object with the preimage schema that
// produced it.
type OperationKind string

const (
	KindOrder      OperationKind = "ORDER"
	KindTransfer   OperationKind = "TRANSFER"
	KindWithdrawal OperationKind = "WITHDRAWAL"
)

// Account is the signing identity a settlement is built for.
type Account struct {
	// PositionID is the account's vault/position id on the rollup.
	PositionID uint64

	// Signer is the external signing collaborator. Its public key is
	// folded into every message hash.
	Signer stark.Signer
}

// TriggerSpec describes one TP/SL companion trigger. The companion is a
// sibling settlement: an order preimage for the opposite side of the
// parent, priced at the trigger's own execution price.
type TriggerSpec struct {
	TriggerPrice     decimal.Decimal
	TriggerPriceType TriggerPriceType

	// Price is the concrete limit reference the companion settles at.
	Price decimal.Decimal

	// ExecutionPriceType must be LIMIT; MARKET is not yet supported.
	ExecutionPriceType ExecutionPriceType
}

// OrderRequest enumerates every recognized order option explicitly.
// Unknown options cannot exist by construction; zero values get the
// documented defaults.
type OrderRequest struct {
	Market string
	Side   Side
	Qty    decimal.Decimal
	Price  decimal.Decimal

	// TimeInForce defaults to GTT.
	TimeInForce TimeInForce

	ReduceOnly bool
	PostOnly   bool

	// SelfTradeProtection defaults to ACCOUNT.
	SelfTradeProtection SelfTradeProtection

	// BuilderFee is an optional extra fee rate added to the taker rate
	// before fee scaling. BuilderID identifies its recipient.
	BuilderFee decimal.Decimal
	BuilderID  uint32

	// Nonce, when non-nil, overrides the generated nonce (deterministic
	// retries, external coordination).
	Nonce *uint64

	// ExpiresAt defaults to now plus one hour.
	ExpiresAt time.Time

	// ExternalID defaults to a fresh UUID.
	ExternalID string

	// TpslType must be ORDER when TakeProfit or StopLoss is set.
	TpslType   TpslType
	TakeProfit *TriggerSpec
	StopLoss   *TriggerSpec
}

// TransferRequest moves collateral between two positions of the same owner.
type TransferRequest struct {
	FromPositionID uint64
	ToPositionID   uint64
	Amount         decimal.Decimal

	// Nonce, when non-nil, overrides the generated nonce.
	Nonce *uint64

	// ExpiresAt defaults to now plus twenty-one days; transfers may wait
	// out L1 finality windows.
	ExpiresAt time.Time

	// ExternalID defaults to a fresh UUID.
	ExternalID string
}

// WithdrawalRequest moves collateral out to an L1 address.
type WithdrawalRequest struct {
	Amount           decimal.Decimal
	RecipientAddress string

	// Nonce, when non-nil, overrides the generated nonce.
	Nonce *uint64

	// ExpiresAt defaults to now plus twenty-one days.
	ExpiresAt time.Time

	// ExternalID defaults to a fresh UUID.
	ExternalID string
}
