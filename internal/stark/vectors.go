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

package stark

import "math/big"

// Reference vectors published for the exchange's signing scheme. They are
// the conformance contract with the on-chain verifier: any change to field
// ordering, domain folding, or signed-amount encoding must not break them,
// and any real Hasher adapter must reproduce the expected hashes exactly.
// settlement.VerifyHasherConformance runs them against an adapter.

// VectorDomain is the domain every reference vector was computed against.
var VectorDomain = Domain{
	Name:     "Perpetuals",
	Version:  "v0",
	ChainID:  "SN_SEPOLIA",
	Revision: 1,
}

// VectorPublicKey is the signer key used by the order and withdrawal vectors.
var VectorPublicKey = MustFeltFromHex(
	"0x5d05989e9302dcebc74e241001e3e3ac3f4402ccf2f8e6f74b034b07ad6a904")

// OrderVector holds the raw, already-scaled inputs of an order message hash.
type OrderVector struct {
	PositionID   uint64
	BaseAssetID  Felt
	BaseAmount   int64
	QuoteAssetID Felt
	QuoteAmount  int64
	FeeAssetID   Felt
	FeeAmount    uint64
	Expiration   uint64
	Salt         uint64
	PublicKey    Felt
	Domain       Domain
	WantHash     Felt
}

// TransferVector holds the raw inputs of a transfer message hash.
type TransferVector struct {
	RecipientPositionID uint64
	SenderPositionID    uint64
	CollateralAssetID   Felt
	Amount              uint64
	Expiration          uint64
	Salt                uint64
	PublicKey           Felt
	Domain              Domain
	WantHash            Felt
}

// WithdrawalVector holds the raw inputs of a withdrawal message hash.
type WithdrawalVector struct {
	Recipient         Felt
	PositionID        uint64
	CollateralAssetID Felt
	Amount            uint64
	Expiration        uint64
	Salt              uint64
	PublicKey         Felt
	Domain            Domain
	WantHash          Felt
}

// OrderVectors: a buy of 100 base units against 156 quote units. The quote
// amount is negative, exercising the signed encoding.
var OrderVectors = []OrderVector{
	{
		PositionID:   100,
		BaseAssetID:  MustFeltFromHex("0x2"),
		BaseAmount:   100,
		QuoteAssetID: MustFeltFromHex("0x1"),
		QuoteAmount:  -156,
		FeeAssetID:   MustFeltFromHex("0x1"),
		FeeAmount:    74,
		Expiration:   100,
		Salt:         123,
		PublicKey:    VectorPublicKey,
		Domain:       VectorDomain,
		WantHash: MustFeltFromHex(
			"0x4de4c009e0d0c5a70a7da0e2039fb2b99f376d53496f89d9f437e736add6b48"),
	},
}

// TransferVectors: minimal transfer between positions 2 and 1.
var TransferVectors = []TransferVector{
	{
		RecipientPositionID: 1,
		SenderPositionID:    2,
		CollateralAssetID:   MustFeltFromHex("0x3"),
		Amount:              4,
		Expiration:          5,
		Salt:                6,
		PublicKey: feltFromDecimalString(
			"2629686405885377265612250192330550814166101744721025672593857097107510831364"),
		Domain: VectorDomain,
		WantHash: MustFeltFromHex(
			"0x56c7b21d13b79a33d7700dda20e22246c25e89818249504148174f527fc3f8f"),
	},
}

// WithdrawalVectors: withdrawal of 1000 collateral units to an L1 recipient.
var WithdrawalVectors = []WithdrawalVector{
	{
		Recipient: feltFromDecimalString(
			"206642948138484946401984817000601902748248360221625950604253680558965863254"),
		PositionID: 2,
		CollateralAssetID: feltFromDecimalString(
			"1386727789535574059419576650469753513512158569780862144831829362722992755422"),
		Amount:     1000,
		Expiration: 0,
		Salt:       0,
		PublicKey:  VectorPublicKey,
		Domain:     VectorDomain,
		WantHash: MustFeltFromHex(
			"0x4d309315e433ca868b82a041fb63c6d79364e67f93fb067638c3428044d358a"),
	},
}

func feltFromDecimalString(s string) Felt {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad decimal constant: " + s)
	}
	return FeltFromBig(v)
}
