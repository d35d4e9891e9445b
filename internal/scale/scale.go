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

// Package scale converts human decimal quantities into the exchange's
// fixed-point integer units. Conversion happens exactly once, here; all
// arithmetic downstream of this boundary is integer arithmetic.
package scale

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// Decimal precision supported by the protocol's integer encoding.
const (
	MinDecimals = 0
	MaxDecimals = 18
)

var (
	// ErrNegative reports a negative quantity where a non-negative value
	// is required.
	ErrNegative = errors.New("quantity must not be negative")

	// ErrOverflow reports a scaled value that does not fit the protocol
	// word size. Out-of-range values are a hard failure, never clamped.
	ErrOverflow = errors.New("scaled value overflows the protocol word size")

	// ErrDecimalsOutOfRange reports an unsupported decimals setting,
	// usually a sign that market metadata was never loaded.
	ErrDecimalsOutOfRange = errors.New("decimals outside the supported range")

	// ErrMetadataMissing reports that a market's decimal configuration
	// is unknown because market metadata was never loaded. Recoverable
	// by refreshing the metadata cache.
	ErrMetadataMissing = errors.New("market metadata not loaded")
)

// Error describes a failed decimal-to-integer conversion.
type Error struct {
	Quantity decimal.Decimal
	Decimals int32
	Cause    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("scale %s with %d decimals: %v", e.Quantity, e.Decimals, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Rounding selects the direction applied when a quantity does not fit the
// target precision exactly. Each hashed field has a documented rule: sizes
// round down, fees round up, signed notionals truncate toward zero.
type Rounding int

const (
	// RoundDown truncates toward negative infinity. Used for sizes, which
	// are validated non-negative before scaling.
	RoundDown Rounding = iota

	// RoundUp rounds away from zero. Used for fees, which must never
	// under-state what the signer owes.
	RoundUp

	// RoundTowardZero truncates the magnitude. Used for signed notional
	// amounts.
	RoundTowardZero
)

// Size scales a non-negative size quantity, rounding down.
func Size(q decimal.Decimal, decimals int32) (int64, error) {
	if q.IsNegative() {
		return 0, &Error{Quantity: q, Decimals: decimals, Cause: ErrNegative}
	}
	return Scale(q, decimals, RoundDown)
}

// Fee scales a non-negative fee quantity, rounding up.
func Fee(q decimal.Decimal, decimals int32) (int64, error) {
	if q.IsNegative() {
		return 0, &Error{Quantity: q, Decimals: decimals, Cause: ErrNegative}
	}
	return Scale(q, decimals, RoundUp)
}

// Notional scales a signed notional quantity, truncating toward zero.
func Notional(q decimal.Decimal, decimals int32) (int64, error) {
	return Scale(q, decimals, RoundTowardZero)
}

// Scale computes round(q * 10^decimals) under the given rounding rule.
// The result must fit an int64; overflow is an error, not a truncation.
func Scale(q decimal.Decimal, decimals int32, rounding Rounding) (int64, error) {
	if decimals < MinDecimals || decimals > MaxDecimals {
		return 0, &Error{Quantity: q, Decimals: decimals, Cause: ErrDecimalsOutOfRange}
	}

	shifted := q.Shift(decimals)
	var integral decimal.Decimal
	switch rounding {
	case RoundDown:
		integral = shifted.Floor()
	case RoundUp:
		if shifted.IsNegative() {
			integral = shifted.Floor()
		} else {
			integral = shifted.Ceil()
		}
	case RoundTowardZero:
		integral = shifted.Truncate(0)
	default:
		return 0, &Error{Quantity: q, Decimals: decimals, Cause: fmt.Errorf("unknown rounding %d", rounding)}
	}

	v := integral.BigInt()
	if v.Cmp(big.NewInt(math.MaxInt64)) > 0 || v.Cmp(big.NewInt(math.MinInt64)) < 0 {
		return 0, &Error{Quantity: q, Decimals: decimals, Cause: ErrOverflow}
	}
	return v.Int64(), nil
}

// Unscale converts a fixed-point integer back into its exact decimal
// representation. It is lossless: Unscale(Scale(q, d), d) == q whenever q
// already matches the target precision.
func Unscale(v int64, decimals int32) decimal.Decimal {
	return decimal.NewFromInt(v).Shift(-decimals)
}
