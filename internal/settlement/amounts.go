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
	"github.com/shopspring/decimal"

	"github.com/extdex-labs/perp-settlement-go/internal/markets"
	"github.com/extdex-labs/perp-settlement-go/internal/scale"
)

// StarkAmounts are the scaled integer amounts that enter the preimage.
// Sign encodes direction: a buy is positive synthetic, negative collateral.
type StarkAmounts struct {
	SyntheticAmount  int64 `json:"syntheticAmount"`
	CollateralAmount int64 `json:"collateralAmount"`
	FeeAmount        int64 `json:"feeAmount"`
}

// computeOrderAmounts converts the human qty/price/fee-rate into scaled
// integers. This is the only place decimal arithmetic touches order
// amounts; everything downstream is integer arithmetic.
//
// Rounding: size rounds down, the signed notional truncates toward zero,
// and the fee rounds up.
func computeOrderAmounts(
	side Side,
	qty, price, feeRate decimal.Decimal,
	m markets.Market,
) (StarkAmounts, error) {
	scales := m.AssetScale()

	size, err := scale.Size(qty, scales.SizeDecimals)
	if err != nil {
		return StarkAmounts{}, err
	}

	notional := qty.Mul(price)
	collateral, err := scale.Notional(notional, scales.CollateralDecimals)
	if err != nil {
		return StarkAmounts{}, err
	}

	fee, err := scale.Fee(notional.Mul(feeRate), scales.CollateralDecimals)
	if err != nil {
		return StarkAmounts{}, err
	}

	amounts := StarkAmounts{FeeAmount: fee}
	if side == SideBuy {
		amounts.SyntheticAmount = size
		amounts.CollateralAmount = -collateral
	} else {
		amounts.SyntheticAmount = -size
		amounts.CollateralAmount = collateral
	}
	return amounts, nil
}
