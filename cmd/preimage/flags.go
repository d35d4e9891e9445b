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

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/extdex-labs/perp-settlement-go/internal/settlement"
	"github.com/extdex-labs/perp-settlement-go/internal/stark"
)

// parsedFlags holds the validated and normalized command line flags
type parsedFlags struct {
	kind settlement.OperationKind

	// Order fields
	symbol       string
	side         settlement.Side
	quantity     decimal.Decimal
	limitPrice   decimal.Decimal
	feeRate      decimal.Decimal
	baseAsset    stark.Felt
	baseDecimals int32

	// Transfer and withdrawal fields
	toPosition uint64
	recipient  string
	amount     decimal.Decimal

	nonce     uint64
	expiresIn time.Duration
}

type flagValues struct {
	kind         string
	symbol       string
	side         string
	qty          string
	price        string
	feeRate      string
	baseAsset    string
	baseDecimals int
	toPosition   uint64
	recipient    string
	amount       string
	nonce        uint64
	expiresIn    time.Duration
}

// parseAndValidateFlags validates and normalizes all command line flags
func parseAndValidateFlags(v flagValues) (*parsedFlags, error) {
	flags := &parsedFlags{
		nonce:     v.nonce,
		expiresIn: v.expiresIn,
	}
	if flags.nonce == 0 {
		return nil, fmt.Errorf("--nonce is required and must not be zero")
	}

	switch strings.ToUpper(v.kind) {
	case "ORDER":
		flags.kind = settlement.KindOrder
		return parseOrderFlags(v, flags)
	case "TRANSFER":
		flags.kind = settlement.KindTransfer
		return parseTransferFlags(v, flags)
	case "WITHDRAWAL":
		flags.kind = settlement.KindWithdrawal
		return parseWithdrawalFlags(v, flags)
	default:
		return nil, fmt.Errorf("--kind must be 'order', 'transfer' or 'withdrawal', got: %s", v.kind)
	}
}

func parseOrderFlags(v flagValues, flags *parsedFlags) (*parsedFlags, error) {
	if v.symbol == "" {
		return nil, fmt.Errorf("--symbol is required")
	}
	flags.symbol = v.symbol

	switch strings.ToUpper(v.side) {
	case "BUY":
		flags.side = settlement.SideBuy
	case "SELL":
		flags.side = settlement.SideSell
	default:
		return nil, fmt.Errorf("--side must be 'buy' or 'sell', got: %s", v.side)
	}

	if v.qty == "" {
		return nil, fmt.Errorf("--qty is required")
	}
	quantity, err := decimal.NewFromString(v.qty)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity: %w", err)
	}
	flags.quantity = quantity

	if v.price == "" {
		return nil, fmt.Errorf("--price is required")
	}
	limitPrice, err := decimal.NewFromString(v.price)
	if err != nil {
		return nil, fmt.Errorf("invalid price: %w", err)
	}
	flags.limitPrice = limitPrice

	feeRate, err := decimal.NewFromString(v.feeRate)
	if err != nil {
		return nil, fmt.Errorf("invalid fee rate: %w", err)
	}
	flags.feeRate = feeRate

	if v.baseAsset == "" {
		return nil, fmt.Errorf("--base-asset is required")
	}
	baseAsset, err := stark.FeltFromHex(v.baseAsset)
	if err != nil {
		return nil, fmt.Errorf("invalid base asset id: %w", err)
	}
	flags.baseAsset = baseAsset
	flags.baseDecimals = int32(v.baseDecimals)

	return flags, nil
}

func parseTransferFlags(v flagValues, flags *parsedFlags) (*parsedFlags, error) {
	if v.toPosition == 0 {
		return nil, fmt.Errorf("--to is required")
	}
	flags.toPosition = v.toPosition

	amount, err := parseAmount(v.amount)
	if err != nil {
		return nil, err
	}
	flags.amount = amount
	return flags, nil
}

func parseWithdrawalFlags(v flagValues, flags *parsedFlags) (*parsedFlags, error) {
	if !common.IsHexAddress(v.recipient) {
		return nil, fmt.Errorf("--recipient must be a valid L1 address, got: %s", v.recipient)
	}
	flags.recipient = v.recipient

	amount, err := parseAmount(v.amount)
	if err != nil {
		return nil, err
	}
	flags.amount = amount
	return flags, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Decimal{}, fmt.Errorf("--amount is required")
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount: %w", err)
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("--amount must be positive")
	}
	return amount, nil
}
