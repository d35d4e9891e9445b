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
	"math/big"
	"testing"

	"github.com/extdex-labs/perp-settlement-go/internal/stark"
	"github.com/extdex-labs/perp-settlement-go/internal/stark/starktest"
)

func TestOrderStructElements(t *testing.T) {
	v := stark.OrderVectors[0]
	elements := OrderStructElements(
		v.PositionID,
		v.BaseAssetID, v.BaseAmount,
		v.QuoteAssetID, v.QuoteAmount,
		v.FeeAssetID, int64(v.FeeAmount),
		v.Expiration, v.Salt,
	)

	if len(elements) != 10 {
		t.Fatalf("expected 10 elements, got %d", len(elements))
	}
	expected := []stark.Felt{
		orderSelector,
		stark.FeltFromUint64(v.PositionID),
		v.BaseAssetID,
		stark.FeltFromInt64(v.BaseAmount),
		v.QuoteAssetID,
		stark.FeltFromInt64(v.QuoteAmount),
		v.FeeAssetID,
		stark.FeltFromUint64(v.FeeAmount),
		stark.FeltFromUint64(v.Expiration),
		stark.FeltFromUint64(v.Salt),
	}
	for i, want := range expected {
		if !elements[i].Equal(want) {
			t.Errorf("element %d: expected %s, got %s", i, want, elements[i])
		}
	}
}

// A negative quote amount must enter the preimage as P - |v|, never as a
// two's-complement or sign-magnitude encoding.
func TestOrderStructElementsSignedEncoding(t *testing.T) {
	elements := OrderStructElements(
		1,
		stark.MustFeltFromHex("0x2"), 100,
		stark.MustFeltFromHex("0x1"), -156,
		stark.MustFeltFromHex("0x1"), 74,
		100, 123,
	)

	prime, _ := new(big.Int).SetString(
		"800000000000011000000000000000000000000000000000000000000000001", 16)
	want := stark.FeltFromBig(new(big.Int).Sub(prime, big.NewInt(156)))

	quote := elements[5]
	if !quote.Equal(want) {
		t.Errorf("expected %s, got %s", want, quote)
	}
	if !quote.Equal(stark.FeltFromInt64(-156)) {
		t.Errorf("quote element does not match FeltFromInt64(-156): %s", quote)
	}
}

func TestTransferStructElements(t *testing.T) {
	v := stark.TransferVectors[0]
	elements := TransferStructElements(
		v.RecipientPositionID, v.SenderPositionID,
		v.CollateralAssetID, int64(v.Amount),
		v.Expiration, v.Salt,
	)

	if len(elements) != 7 {
		t.Fatalf("expected 7 elements, got %d", len(elements))
	}
	if !elements[0].Equal(transferSelector) {
		t.Errorf("expected transfer selector first, got %s", elements[0])
	}
	// Recipient precedes sender.
	if !elements[1].Equal(stark.FeltFromUint64(v.RecipientPositionID)) {
		t.Errorf("expected recipient at index 1, got %s", elements[1])
	}
	if !elements[2].Equal(stark.FeltFromUint64(v.SenderPositionID)) {
		t.Errorf("expected sender at index 2, got %s", elements[2])
	}
}

func TestWithdrawalStructElements(t *testing.T) {
	v := stark.WithdrawalVectors[0]
	elements := WithdrawalStructElements(
		v.Recipient, v.PositionID,
		v.CollateralAssetID, int64(v.Amount),
		v.Expiration, v.Salt,
	)

	if len(elements) != 7 {
		t.Fatalf("expected 7 elements, got %d", len(elements))
	}
	if !elements[0].Equal(withdrawalSelector) {
		t.Errorf("expected withdrawal selector first, got %s", elements[0])
	}
	if !elements[1].Equal(v.Recipient) {
		t.Errorf("expected recipient at index 1, got %s", elements[1])
	}
}

// Domains differing in any single field must produce different message
// hashes for the same struct preimage.
func TestDomainSeparation(t *testing.T) {
	ctx := context.Background()
	hasher := &starktest.FakeHasher{}

	elements := TransferStructElements(1, 2, stark.MustFeltFromHex("0x3"), 4, 5, 6)
	key := stark.VectorPublicKey

	baseHash, err := hashStructMessage(ctx, hasher, mustDomainHash(t, hasher, stark.VectorDomain), key, elements)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(d *stark.Domain)
	}{
		{name: "name", mutate: func(d *stark.Domain) { d.Name = "Spot" }},
		{name: "version", mutate: func(d *stark.Domain) { d.Version = "v1" }},
		{name: "chain id", mutate: func(d *stark.Domain) { d.ChainID = "SN_MAIN" }},
		{name: "revision", mutate: func(d *stark.Domain) { d.Revision = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			domain := stark.VectorDomain
			tt.mutate(&domain)
			hash, err := hashStructMessage(ctx, hasher, mustDomainHash(t, hasher, domain), key, elements)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if hash.Equal(baseHash) {
				t.Errorf("expected a distinct hash after changing the %s", tt.name)
			}
		})
	}
}

func mustDomainHash(t *testing.T, h stark.Hasher, d stark.Domain) stark.Felt {
	t.Helper()
	hash, err := d.Hash(context.Background(), h)
	if err != nil {
		t.Fatalf("domain hash: %v", err)
	}
	return hash
}

// The hash consumes ceiling seconds so a settlement never expires on chain
// before its advertised millisecond instant.
func TestExpirySecondsFromMillis(t *testing.T) {
	tests := []struct {
		name     string
		millis   int64
		expected uint64
	}{
		{name: "zero", millis: 0, expected: 0},
		{name: "negative clamps", millis: -5, expected: 0},
		{name: "one millisecond rounds up", millis: 1, expected: 1},
		{name: "exact second", millis: 1000, expected: 1},
		{name: "just past second rounds up", millis: 1001, expected: 2},
		{name: "sub-second tail", millis: 99_999, expected: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expirySecondsFromMillis(tt.millis); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}
