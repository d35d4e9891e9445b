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

// SettlementObject is the assembled, signed payload handed to the
// transport layer. It carries scaled integers only, never decimals, and
// every field the verifier folds into the hash, so the hash can be
// recomputed from the object alone. Immutable once assembled; a new
// operation needs a new object with a new nonce.
type SettlementObject struct {
	Kind       OperationKind `json:"kind"`
	ExternalID string        `json:"externalId"`

	// Order fields.
	Market       string       `json:"market,omitempty"`
	Side         Side         `json:"side,omitempty"`
	BaseAssetID  stark.Felt   `json:"baseAssetId,omitempty"`
	QuoteAssetID stark.Felt   `json:"quoteAssetId,omitempty"`
	Amounts      StarkAmounts `json:"amounts,omitempty"`

	// Transfer and withdrawal fields.
	CollateralAssetID   stark.Felt `json:"collateralAssetId,omitempty"`
	Amount              int64      `json:"amount,omitempty"`
	SenderPositionID    uint64     `json:"senderPositionId,omitempty"`
	RecipientPositionID uint64     `json:"recipientPositionId,omitempty"`
	Recipient           stark.Felt `json:"recipient,omitempty"`
	RecipientAddress    string     `json:"recipientAddress,omitempty"`

	// Common settlement fields.
	PositionID        uint64          `json:"positionId"`
	Nonce             uint64          `json:"nonce"`
	ExpiryEpochMillis int64           `json:"expiryEpochMillis"`
	MsgHash           stark.Felt      `json:"msgHash"`
	Signature         stark.Signature `json:"signature"`
	StarkKey          stark.Felt      `json:"starkKey"`
	Domain            stark.Domain    `json:"domain"`

	// Exchange-side order options. These ride along for the transport
	// layer; they are not part of the hash.
	TimeInForce         TimeInForce         `json:"timeInForce,omitempty"`
	ReduceOnly          bool                `json:"reduceOnly,omitempty"`
	PostOnly            bool                `json:"postOnly,omitempty"`
	SelfTradeProtection SelfTradeProtection `json:"selfTradeProtection,omitempty"`
	BuilderID           uint32              `json:"builderId,omitempty"`
	Trigger             *TriggerSpec        `json:"trigger,omitempty"`
}

// StructElements re-derives the object's preimage from its own fields.
func (o *SettlementObject) StructElements() ([]stark.Felt, error) {
	expiry := expirySecondsFromMillis(o.ExpiryEpochMillis)
	switch o.Kind {
	case KindOrder:
		return OrderStructElements(
			o.PositionID,
			o.BaseAssetID, o.Amounts.SyntheticAmount,
			o.QuoteAssetID, o.Amounts.CollateralAmount,
			o.QuoteAssetID, o.Amounts.FeeAmount,
			expiry, o.Nonce,
		), nil
	case KindTransfer:
		return TransferStructElements(
			o.RecipientPositionID, o.SenderPositionID,
			o.CollateralAssetID, o.Amount,
			expiry, o.Nonce,
		), nil
	case KindWithdrawal:
		return WithdrawalStructElements(
			o.Recipient, o.PositionID,
			o.CollateralAssetID, o.Amount,
			expiry, o.Nonce,
		), nil
	default:
		return nil, fmt.Errorf("unknown operation kind %q", o.Kind)
	}
}

// RecomputeHash recomputes the message hash from the assembled object's
// own fields, including its domain echo.
func (o *SettlementObject) RecomputeHash(ctx context.Context, h stark.Hasher) (stark.Felt, error) {
	elements, err := o.StructElements()
	if err != nil {
		return stark.Felt{}, err
	}
	structHash, err := h.HashElements(ctx, elements)
	if err != nil {
		return stark.Felt{}, &stark.SigningUnavailableError{Op: "struct hash", Err: err}
	}
	return stark.MessageHash(ctx, h, o.Domain, o.StarkKey, structHash)
}

// assemble seals a settlement object: it stores the signed hash and
// signature, then recomputes the hash from the object's own fields and
// asserts equality. This catches construction-order bugs (a field mutated
// after hashing, a preimage built from different values than the object
// carries) before the object ever leaves the process. It fails closed:
// on mismatch there is no object.
func assemble(
	ctx context.Context,
	h stark.Hasher,
	obj *SettlementObject,
	signedHash stark.Felt,
	sig stark.Signature,
) (*SettlementObject, error) {
	obj.MsgHash = signedHash
	obj.Signature = sig

	recomputed, err := obj.RecomputeHash(ctx, h)
	if err != nil {
		return nil, err
	}
	if !recomputed.Equal(signedHash) {
		return nil, &AssemblyInvariantViolationError{
			Kind:           obj.Kind,
			SignedHash:     signedHash,
			RecomputedHash: recomputed,
		}
	}
	return obj, nil
}

func expirySecondsFromMillis(ms int64) uint64 {
	if ms <= 0 {
		return 0
	}
	return uint64((ms + 999) / 1000)
}
