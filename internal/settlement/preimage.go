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
	"context"

	"github.com/extdex-labs/perp-settlement-go/internal/stark"
)

// Type selectors for the struct hashes. Field order and count below are
// part of the protocol: the verifier recomputes these sequences
// byte-for-byte, so any reordering breaks every signature silently.
var (
	orderSelector = stark.MustFeltFromHex(
		"0x36da8d51815527cabfaa9c982f564c80fa7429616739306036f1f9b608dd112")
	transferSelector = stark.MustFeltFromHex(
		"0x1db88e2709fdf2c59e651d141c3296a42b209ce770871b40413ea109846a3b4")
	withdrawalSelector = stark.MustFeltFromHex(
		"0x250a5fa378e8b771654bd43dcb34844534f9d1e29e16b14760d7936ea7f4b1d")
)

// OrderStructElements returns the ordered order preimage. Signed amounts
// encode buy/sell: a buy carries a positive base amount and a negative
// quote amount.
func OrderStructElements(
	positionID uint64,
	baseAsset stark.Felt, baseAmount int64,
	quoteAsset stark.Felt, quoteAmount int64,
	feeAsset stark.Felt, feeAmount int64,
	expirationSec uint64, salt uint64,
) []stark.Felt {
	return []stark.Felt{
		orderSelector,
		stark.FeltFromUint64(positionID),
		baseAsset,
		stark.FeltFromInt64(baseAmount),
		quoteAsset,
		stark.FeltFromInt64(quoteAmount),
		feeAsset,
		stark.FeltFromInt64(feeAmount),
		stark.FeltFromUint64(expirationSec),
		stark.FeltFromUint64(salt),
	}
}

// TransferStructElements returns the ordered transfer preimage.
func TransferStructElements(
	recipientPositionID, senderPositionID uint64,
	collateralAsset stark.Felt, amount int64,
	expirationSec uint64, salt uint64,
) []stark.Felt {
	return []stark.Felt{
		transferSelector,
		stark.FeltFromUint64(recipientPositionID),
		stark.FeltFromUint64(senderPositionID),
		collateralAsset,
		stark.FeltFromInt64(amount),
		stark.FeltFromUint64(expirationSec),
		stark.FeltFromUint64(salt),
	}
}

// WithdrawalStructElements returns the ordered withdrawal preimage. The
// recipient is the L1 address interpreted as a field element.
func WithdrawalStructElements(
	recipient stark.Felt, positionID uint64,
	collateralAsset stark.Felt, amount int64,
	expirationSec uint64, salt uint64,
) []stark.Felt {
	return []stark.Felt{
		withdrawalSelector,
		recipient,
		stark.FeltFromUint64(positionID),
		collateralAsset,
		stark.FeltFromInt64(amount),
		stark.FeltFromUint64(expirationSec),
		stark.FeltFromUint64(salt),
	}
}

// hashStructMessage folds a struct preimage into the domain-separated
// message hash: H(struct) first, then the 'StarkNet Message' envelope with
// the domain hash and the signer key.
func hashStructMessage(
	ctx context.Context,
	h stark.Hasher,
	domainHash stark.Felt,
	publicKey stark.Felt,
	structElements []stark.Felt,
) (stark.Felt, error) {
	structHash, err := h.HashElements(ctx, structElements)
	if err != nil {
		return stark.Felt{}, &stark.SigningUnavailableError{Op: "struct hash", Err: err}
	}
	return stark.MessageHashWithDomain(ctx, h, domainHash, publicKey, structHash)
}
