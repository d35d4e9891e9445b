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

// OrderPreview is a dry run of an order build: the validated, scaled
// amounts and the exact preimage elements, with no hashing or signing.
// Useful for debugging rounding and for inspecting what a signature would
// commit to before any key material is involved.
type OrderPreview struct {
	Market  string          `json:"market"`
	Side    Side            `json:"side"`
	FeeRate decimal.Decimal `json:"feeRate"`

	Amounts       StarkAmounts `json:"amounts"`
	PositionID    uint64       `json:"positionId"`
	Nonce         uint64       `json:"nonce"`
	ExpirySeconds uint64       `json:"expirySeconds"`

	Elements []stark.Felt `json:"elements"`
}

// PreviewOrder computes an order preview against explicit market metadata.
// It applies the same validation gate and rounding as a real build.
func PreviewOrder(req OrderRequest, m markets.Market, positionID, nonce uint64, expiresAt time.Time) (*OrderPreview, error) {
	if err := validateOrder(req); err != nil {
		return nil, err
	}
	if req.Qty.LessThan(m.MinOrderSize) {
		return nil, invalid("qty", "below minimum order size "+m.MinOrderSize.String())
	}

	feeRate := m.TakerFeeRate
	if !req.BuilderFee.IsZero() {
		feeRate = feeRate.Add(req.BuilderFee)
	}

	amounts, err := computeOrderAmounts(req.Side, req.Qty, req.Price, feeRate, m)
	if err != nil {
		return nil, err
	}

	expiry := expirySeconds(expiresAt)
	elements := OrderStructElements(
		positionID,
		m.SyntheticAsset.ID, amounts.SyntheticAmount,
		m.CollateralAsset.ID, amounts.CollateralAmount,
		m.CollateralAsset.ID, amounts.FeeAmount,
		expiry, nonce,
	)

	return &OrderPreview{
		Market:        m.Name,
		Side:          req.Side,
		FeeRate:       feeRate,
		Amounts:       amounts,
		PositionID:    positionID,
		Nonce:         nonce,
		ExpirySeconds: expiry,
		Elements:      elements,
	}, nil
}
