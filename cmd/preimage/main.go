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

// Command preimage prints the exact struct preimage and scaled amounts a
// settlement signature would commit to, without touching any key material.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/extdex-labs/perp-settlement-go/config"
	"github.com/extdex-labs/perp-settlement-go/internal/markets"
	"github.com/extdex-labs/perp-settlement-go/internal/scale"
	"github.com/extdex-labs/perp-settlement-go/internal/settlement"
	"github.com/extdex-labs/perp-settlement-go/internal/stark"
)

var (
	kind = flag.String("kind", "order", "Operation kind: order, transfer or withdrawal")

	// Order flags
	symbol       = flag.String("symbol", "", "Market symbol (e.g., BTC-USD)")
	side         = flag.String("side", "", "Order side: buy or sell")
	qty          = flag.String("qty", "", "Order quantity in base units")
	price        = flag.String("price", "", "Limit price in collateral units")
	feeRate      = flag.String("fee-rate", "0.00025", "Taker fee rate")
	baseAsset    = flag.String("base-asset", "", "Synthetic asset id (hex felt)")
	baseDecimals = flag.Int("base-decimals", 10, "Synthetic asset decimals")

	// Transfer and withdrawal flags
	toPosition = flag.Uint64("to", 0, "Recipient position id (transfers)")
	recipient  = flag.String("recipient", "", "Recipient L1 address (withdrawals)")
	amount     = flag.String("amount", "", "Collateral amount")

	nonce     = flag.Uint64("nonce", 0, "Settlement nonce (salt)")
	expiresIn = flag.Duration("expires-in", time.Hour, "Expiration horizon from now")
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
	flags, err := parseAndValidateFlags(flagValues{
		kind:         *kind,
		symbol:       *symbol,
		side:         *side,
		qty:          *qty,
		price:        *price,
		feeRate:      *feeRate,
		baseAsset:    *baseAsset,
		baseDecimals: *baseDecimals,
		toPosition:   *toPosition,
		recipient:    *recipient,
		amount:       *amount,
		nonce:        *nonce,
		expiresIn:    *expiresIn,
	})
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	config.SetupLogger(cfg.Server.LogLevel, cfg.Server.LogJson)

	collateral, err := collateralAsset(cfg)
	if err != nil {
		return err
	}
	expiresAt := time.Now().Add(flags.expiresIn)

	switch flags.kind {
	case settlement.KindOrder:
		return previewOrder(cfg, flags, collateral, expiresAt)
	case settlement.KindTransfer:
		return previewTransfer(cfg, flags, collateral, expiresAt)
	default:
		return previewWithdrawal(cfg, flags, collateral, expiresAt)
	}
}

func collateralAsset(cfg *config.Config) (markets.Asset, error) {
	if cfg.Collateral.AssetID == "" {
		return markets.Asset{}, fmt.Errorf("COLLATERAL_ASSET_ID is required")
	}
	id, err := stark.FeltFromHex(cfg.Collateral.AssetID)
	if err != nil {
		return markets.Asset{}, fmt.Errorf("invalid COLLATERAL_ASSET_ID: %w", err)
	}
	return markets.Asset{ID: id, Decimals: cfg.Collateral.Decimals}, nil
}

func previewOrder(cfg *config.Config, flags *parsedFlags, collateral markets.Asset, expiresAt time.Time) error {
	market := markets.Market{
		Name:            flags.symbol,
		SyntheticAsset:  markets.Asset{ID: flags.baseAsset, Decimals: flags.baseDecimals},
		CollateralAsset: collateral,
		TakerFeeRate:    flags.feeRate,
	}

	preview, err := settlement.PreviewOrder(settlement.OrderRequest{
		Market: flags.symbol,
		Side:   flags.side,
		Qty:    flags.quantity,
		Price:  flags.limitPrice,
	}, market, cfg.Account.PositionID, flags.nonce, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to build preview: %w", err)
	}

	return output(preview)
}

// elementsPreview is the transfer/withdrawal analogue of OrderPreview.
type elementsPreview struct {
	Kind          settlement.OperationKind `json:"kind"`
	Amount        int64                    `json:"amount"`
	PositionID    uint64                   `json:"positionId"`
	Nonce         uint64                   `json:"nonce"`
	ExpirySeconds uint64                   `json:"expirySeconds"`
	Elements      []stark.Felt             `json:"elements"`
}

func previewTransfer(cfg *config.Config, flags *parsedFlags, collateral markets.Asset, expiresAt time.Time) error {
	scaled, err := scale.Size(flags.amount, collateral.Decimals)
	if err != nil {
		return fmt.Errorf("failed to scale amount: %w", err)
	}

	expiry := settlement.SettlementContext{ExpiresAt: expiresAt}.ExpirySeconds()
	elements := settlement.TransferStructElements(
		flags.toPosition, cfg.Account.PositionID,
		collateral.ID, scaled,
		expiry, flags.nonce,
	)

	return output(&elementsPreview{
		Kind:          settlement.KindTransfer,
		Amount:        scaled,
		PositionID:    cfg.Account.PositionID,
		Nonce:         flags.nonce,
		ExpirySeconds: expiry,
		Elements:      elements,
	})
}

func previewWithdrawal(cfg *config.Config, flags *parsedFlags, collateral markets.Asset, expiresAt time.Time) error {
	scaled, err := scale.Size(flags.amount, collateral.Decimals)
	if err != nil {
		return fmt.Errorf("failed to scale amount: %w", err)
	}

	recipientFelt := stark.FeltFromBig(ethcommon.HexToAddress(flags.recipient).Big())
	expiry := settlement.SettlementContext{ExpiresAt: expiresAt}.ExpirySeconds()
	elements := settlement.WithdrawalStructElements(
		recipientFelt, cfg.Account.PositionID,
		collateral.ID, scaled,
		expiry, flags.nonce,
	)

	return output(&elementsPreview{
		Kind:          settlement.KindWithdrawal,
		Amount:        scaled,
		PositionID:    cfg.Account.PositionID,
		Nonce:         flags.nonce,
		ExpirySeconds: expiry,
		Elements:      elements,
	})
}

func output(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(data))
	return nil
}
