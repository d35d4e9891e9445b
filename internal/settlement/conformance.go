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
	"fmt"

	"github.com/extdex-labs/perp-settlement-go/internal/stark"
)

// VerifyHasherConformance checks a hashing adapter against the published
// reference vectors for every operation kind. Callers should run it once
// at startup before trusting a primitive with real settlements: a hasher
// that fails here would sign payloads the exchange can never match.
func VerifyHasherConformance(ctx context.Context, h stark.Hasher) error {
	for i, v := range stark.OrderVectors {
		elements := OrderStructElements(
			v.PositionID,
			v.BaseAssetID, v.BaseAmount,
			v.QuoteAssetID, v.QuoteAmount,
			v.FeeAssetID, int64(v.FeeAmount),
			v.Expiration, v.Salt,
		)
		if err := checkVector(ctx, h, v.Domain, v.PublicKey, elements, v.WantHash, fmt.Sprintf("order vector %d", i)); err != nil {
			return err
		}
	}
	for i, v := range stark.TransferVectors {
		elements := TransferStructElements(
			v.RecipientPositionID, v.SenderPositionID,
			v.CollateralAssetID, int64(v.Amount),
			v.Expiration, v.Salt,
		)
		if err := checkVector(ctx, h, v.Domain, v.PublicKey, elements, v.WantHash, fmt.Sprintf("transfer vector %d", i)); err != nil {
			return err
		}
	}
	for i, v := range stark.WithdrawalVectors {
		elements := WithdrawalStructElements(
			v.Recipient, v.PositionID,
			v.CollateralAssetID, int64(v.Amount),
			v.Expiration, v.Salt,
		)
		if err := checkVector(ctx, h, v.Domain, v.PublicKey, elements, v.WantHash, fmt.Sprintf("withdrawal vector %d", i)); err != nil {
			return err
		}
	}
	return nil
}

func checkVector(
	ctx context.Context,
	h stark.Hasher,
	domain stark.Domain,
	publicKey stark.Felt,
	elements []stark.Felt,
	want stark.Felt,
	label string,
) error {
	structHash, err := h.HashElements(ctx, elements)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	got, err := stark.MessageHash(ctx, h, domain, publicKey, structHash)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	if !got.Equal(want) {
		return fmt.Errorf("%s: hash mismatch: got %s, want %s", label, got, want)
	}
	return nil
}
