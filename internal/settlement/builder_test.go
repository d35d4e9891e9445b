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
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/extdex-labs/perp-settlement-go/internal/markets"
	"github.com/extdex-labs/perp-settlement-go/internal/scale"
	"github.com/extdex-labs/perp-settlement-go/internal/stark"
	"github.com/extdex-labs/perp-settlement-go/internal/stark/starktest"
)

var testNow = time.UnixMilli(1_700_000_000_000)

func testMarket() markets.Market {
	return markets.Market{
		Name:            "BTC-USD",
		SyntheticAsset:  markets.Asset{ID: stark.MustFeltFromHex("0x2"), Decimals: 4},
		CollateralAsset: markets.Asset{ID: stark.MustFeltFromHex("0x1"), Decimals: 6},
		MinOrderSize:    decimal.RequireFromString("0.0001"),
		MakerFeeRate:    decimal.RequireFromString("0.0002"),
		TakerFeeRate:    decimal.RequireFromString("0.00025"),
	}
}

func newTestBuilder(t *testing.T) (*Builder, *starktest.FakeHasher, *starktest.FakeSigner) {
	t.Helper()
	hasher := &starktest.FakeHasher{}
	signer := &starktest.FakeSigner{Key: stark.VectorPublicKey}
	b, err := NewBuilder(BuilderConfig{
		Markets:    markets.NewCache(testMarket()),
		Collateral: markets.Asset{ID: stark.MustFeltFromHex("0x1"), Decimals: 6},
		Account:    Account{PositionID: 100, Signer: signer},
		Domain:     stark.VectorDomain,
		Hasher:     hasher,
		Clock:      func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b, hasher, signer
}

func testOrderRequest() OrderRequest {
	return OrderRequest{
		Market: "BTC-USD",
		Side:   SideBuy,
		Qty:    decimal.RequireFromString("0.0033"),
		Price:  decimal.RequireFromString("100"),
	}
}

func TestBuildOrderSettlementBuy(t *testing.T) {
	b, hasher, _ := newTestBuilder(t)

	obj, err := b.BuildOrderSettlement(context.Background(), testOrderRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if obj.Kind != KindOrder {
		t.Errorf("expected kind ORDER, got %s", obj.Kind)
	}
	// 0.0033 at 4 size decimals buys for 0.33 at 6 collateral decimals;
	// fee 0.33 * 0.00025 = 0.0000825 rounds up to 83.
	if obj.Amounts.SyntheticAmount != 33 {
		t.Errorf("expected synthetic +33, got %d", obj.Amounts.SyntheticAmount)
	}
	if obj.Amounts.CollateralAmount != -330_000 {
		t.Errorf("expected collateral -330000, got %d", obj.Amounts.CollateralAmount)
	}
	if obj.Amounts.FeeAmount != 83 {
		t.Errorf("expected fee 83, got %d", obj.Amounts.FeeAmount)
	}

	if obj.Nonce == 0 {
		t.Error("expected a generated nonce")
	}
	if obj.ExternalID == "" {
		t.Error("expected a generated external id")
	}
	if obj.PositionID != 100 {
		t.Errorf("expected position id 100, got %d", obj.PositionID)
	}
	if !obj.StarkKey.Equal(stark.VectorPublicKey) {
		t.Errorf("expected signer public key, got %s", obj.StarkKey)
	}
	if obj.TimeInForce != TimeInForceGTT {
		t.Errorf("expected default GTT, got %s", obj.TimeInForce)
	}
	if obj.SelfTradeProtection != SelfTradeProtectionAccount {
		t.Errorf("expected default ACCOUNT protection, got %s", obj.SelfTradeProtection)
	}
	if want := testNow.Add(DefaultOrderExpiry).UnixMilli(); obj.ExpiryEpochMillis != want {
		t.Errorf("expected expiry %d, got %d", want, obj.ExpiryEpochMillis)
	}

	recomputed, err := obj.RecomputeHash(context.Background(), hasher)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if !recomputed.Equal(obj.MsgHash) {
		t.Errorf("recomputed hash %s does not match signed %s", recomputed, obj.MsgHash)
	}
	if obj.Signature.R.IsZero() || obj.Signature.S.IsZero() {
		t.Error("expected a non-zero signature")
	}
}

func TestBuildOrderSettlementSell(t *testing.T) {
	b, _, _ := newTestBuilder(t)

	req := testOrderRequest()
	req.Side = SideSell
	obj, err := b.BuildOrderSettlement(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if obj.Amounts.SyntheticAmount != -33 {
		t.Errorf("expected synthetic -33, got %d", obj.Amounts.SyntheticAmount)
	}
	if obj.Amounts.CollateralAmount != 330_000 {
		t.Errorf("expected collateral +330000, got %d", obj.Amounts.CollateralAmount)
	}
	if obj.Amounts.FeeAmount != 83 {
		t.Errorf("expected fee 83 on both sides, got %d", obj.Amounts.FeeAmount)
	}
}

func TestBuildOrderBuilderFee(t *testing.T) {
	b, _, _ := newTestBuilder(t)

	req := testOrderRequest()
	req.BuilderFee = decimal.RequireFromString("0.00025")
	req.BuilderID = 7
	obj, err := b.BuildOrderSettlement(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Taker rate doubles: 0.33 * 0.0005 = 0.000165.
	if obj.Amounts.FeeAmount != 165 {
		t.Errorf("expected fee 165, got %d", obj.Amounts.FeeAmount)
	}
	if obj.BuilderID != 7 {
		t.Errorf("expected builder id 7, got %d", obj.BuilderID)
	}
}

func TestBuildOrderExplicitNonce(t *testing.T) {
	b, _, _ := newTestBuilder(t)

	n := uint64(424242)
	req := testOrderRequest()
	req.Nonce = &n
	obj, err := b.BuildOrderSettlement(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj.Nonce != n {
		t.Errorf("expected explicit nonce %d, got %d", n, obj.Nonce)
	}

	zero := uint64(0)
	req.Nonce = &zero
	_, err = b.BuildOrderSettlement(context.Background(), req)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "nonce" {
		t.Errorf("expected nonce validation error, got %v", err)
	}
}

func TestBuildOrderValidationGate(t *testing.T) {
	b, _, _ := newTestBuilder(t)

	limit := decimal.RequireFromString("99")
	tests := []struct {
		name        string
		mutate      func(*OrderRequest)
		field       string
		unsupported bool
	}{
		{name: "missing market", mutate: func(r *OrderRequest) { r.Market = "" }, field: "market"},
		{name: "bad side", mutate: func(r *OrderRequest) { r.Side = "HOLD" }, field: "side"},
		{name: "zero qty", mutate: func(r *OrderRequest) { r.Qty = decimal.Zero }, field: "qty"},
		{name: "negative price", mutate: func(r *OrderRequest) { r.Price = decimal.RequireFromString("-1") }, field: "price"},
		{name: "below min size", mutate: func(r *OrderRequest) { r.Qty = decimal.RequireFromString("0.00005") }, field: "qty"},
		{name: "bad time in force", mutate: func(r *OrderRequest) { r.TimeInForce = "GTC" }, field: "timeInForce"},
		{
			name: "fok post only",
			mutate: func(r *OrderRequest) {
				r.TimeInForce = TimeInForceFOK
				r.PostOnly = true
			},
			field:       "timeInForce",
			unsupported: true,
		},
		{name: "negative builder fee", mutate: func(r *OrderRequest) { r.BuilderFee = decimal.RequireFromString("-0.0001") }, field: "builderFee"},
		{name: "builder fee without id", mutate: func(r *OrderRequest) { r.BuilderFee = decimal.RequireFromString("0.0001") }, field: "builderId"},
		{
			name: "position tpsl",
			mutate: func(r *OrderRequest) {
				r.TpslType = TpslTypePosition
				r.TakeProfit = &TriggerSpec{TriggerPrice: limit, Price: limit}
			},
			field:       "tpslType",
			unsupported: true,
		},
		{name: "tpsl type without trigger", mutate: func(r *OrderRequest) { r.TpslType = TpslTypeOrder }, field: "tpslType"},
		{
			name: "market execution price",
			mutate: func(r *OrderRequest) {
				r.TpslType = TpslTypeOrder
				r.StopLoss = &TriggerSpec{
					TriggerPrice:       limit,
					Price:              limit,
					ExecutionPriceType: ExecutionPriceMarket,
				}
			},
			field:       "stopLoss",
			unsupported: true,
		},
		{
			name: "trigger without price",
			mutate: func(r *OrderRequest) {
				r.TpslType = TpslTypeOrder
				r.TakeProfit = &TriggerSpec{TriggerPrice: limit}
			},
			field: "takeProfit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testOrderRequest()
			tt.mutate(&req)
			_, err := b.BuildOrderSettlement(context.Background(), req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, verr.Field)
			}
			if tt.unsupported != (verr.Unsupported != "") {
				t.Errorf("unsupported flag mismatch: %v", verr)
			}
		})
	}
}

func TestBuildOrderUnknownMarket(t *testing.T) {
	b, _, _ := newTestBuilder(t)

	req := testOrderRequest()
	req.Market = "DOGE-USD"
	_, err := b.BuildOrderSettlement(context.Background(), req)
	if !errors.Is(err, scale.ErrMetadataMissing) {
		t.Errorf("expected ErrMetadataMissing, got %v", err)
	}
}

func TestBuildTriggerSettlement(t *testing.T) {
	b, _, _ := newTestBuilder(t)
	ctx := context.Background()

	parent := testOrderRequest()
	spec := TriggerSpec{
		TriggerPrice:       decimal.RequireFromString("110"),
		TriggerPriceType:   TriggerPriceMark,
		Price:              decimal.RequireFromString("109"),
		ExecutionPriceType: ExecutionPriceLimit,
	}

	parentObj, err := b.BuildOrderSettlement(ctx, parent)
	if err != nil {
		t.Fatalf("parent: %v", err)
	}
	obj, err := b.BuildTriggerSettlement(ctx, parent, spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if obj.Side != SideSell {
		t.Errorf("expected companion on opposite side, got %s", obj.Side)
	}
	if !obj.ReduceOnly {
		t.Error("expected companion to be reduce-only")
	}
	if obj.Trigger == nil || !obj.Trigger.TriggerPrice.Equal(spec.TriggerPrice) {
		t.Errorf("expected trigger spec attached, got %+v", obj.Trigger)
	}
	if obj.Nonce == parentObj.Nonce {
		t.Error("companion must draw its own nonce")
	}
	// Companion settles at the trigger's execution price: 0.0033 * 109.
	if obj.Amounts.CollateralAmount != 359_700 {
		t.Errorf("expected collateral +359700, got %d", obj.Amounts.CollateralAmount)
	}
}

func TestBuildTransferSettlement(t *testing.T) {
	b, hasher, _ := newTestBuilder(t)

	obj, err := b.BuildTransferSettlement(context.Background(), TransferRequest{
		FromPositionID: 100,
		ToPositionID:   7,
		Amount:         decimal.RequireFromString("4"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if obj.Kind != KindTransfer {
		t.Errorf("expected kind TRANSFER, got %s", obj.Kind)
	}
	if obj.Amount != 4_000_000 {
		t.Errorf("expected scaled amount 4000000, got %d", obj.Amount)
	}
	if obj.SenderPositionID != 100 || obj.RecipientPositionID != 7 {
		t.Errorf("unexpected positions: %d -> %d", obj.SenderPositionID, obj.RecipientPositionID)
	}
	if want := testNow.Add(DefaultTransferExpiry).UnixMilli(); obj.ExpiryEpochMillis != want {
		t.Errorf("expected expiry %d, got %d", want, obj.ExpiryEpochMillis)
	}

	recomputed, err := obj.RecomputeHash(context.Background(), hasher)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if !recomputed.Equal(obj.MsgHash) {
		t.Errorf("recomputed hash %s does not match signed %s", recomputed, obj.MsgHash)
	}
}

func TestBuildTransferValidation(t *testing.T) {
	b, _, _ := newTestBuilder(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   TransferRequest
		field string
	}{
		{
			name:  "sender is not the account",
			req:   TransferRequest{FromPositionID: 9, ToPositionID: 7, Amount: decimal.RequireFromString("1")},
			field: "fromPositionId",
		},
		{
			name:  "same position",
			req:   TransferRequest{FromPositionID: 100, ToPositionID: 100, Amount: decimal.RequireFromString("1")},
			field: "toPositionId",
		},
		{
			name:  "zero recipient",
			req:   TransferRequest{FromPositionID: 100, ToPositionID: 0, Amount: decimal.RequireFromString("1")},
			field: "positionId",
		},
		{
			name:  "non-positive amount",
			req:   TransferRequest{FromPositionID: 100, ToPositionID: 7, Amount: decimal.Zero},
			field: "amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.BuildTransferSettlement(ctx, tt.req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, verr.Field)
			}
		})
	}
}

func TestBuildWithdrawalSettlement(t *testing.T) {
	b, hasher, _ := newTestBuilder(t)

	const addr = "0x74dec05E5b894b0efB9A36b0C93DE486c3090155"
	obj, err := b.BuildWithdrawalSettlement(context.Background(), WithdrawalRequest{
		Amount:           decimal.RequireFromString("1000"),
		RecipientAddress: addr,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if obj.Kind != KindWithdrawal {
		t.Errorf("expected kind WITHDRAWAL, got %s", obj.Kind)
	}
	if obj.Amount != 1_000_000_000 {
		t.Errorf("expected scaled amount 1000000000, got %d", obj.Amount)
	}
	if obj.RecipientAddress != addr {
		t.Errorf("expected checksummed recipient %s, got %s", addr, obj.RecipientAddress)
	}
	if want := stark.MustFeltFromHex("0x74dec05e5b894b0efb9a36b0c93de486c3090155"); !obj.Recipient.Equal(want) {
		t.Errorf("expected recipient felt %s, got %s", want, obj.Recipient)
	}

	recomputed, err := obj.RecomputeHash(context.Background(), hasher)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if !recomputed.Equal(obj.MsgHash) {
		t.Errorf("recomputed hash %s does not match signed %s", recomputed, obj.MsgHash)
	}
}

func TestBuildWithdrawalBadAddress(t *testing.T) {
	b, _, _ := newTestBuilder(t)

	_, err := b.BuildWithdrawalSettlement(context.Background(), WithdrawalRequest{
		Amount:           decimal.RequireFromString("1"),
		RecipientAddress: "not-an-address",
	})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "recipientAddress" {
		t.Errorf("expected recipient validation error, got %v", err)
	}
}

func TestBuildSigningUnavailable(t *testing.T) {
	ctx := context.Background()

	b, _, signer := newTestBuilder(t)
	signer.Fail = errors.New("hsm unreachable")
	_, err := b.BuildOrderSettlement(ctx, testOrderRequest())
	var sigErr *stark.SigningUnavailableError
	if !errors.As(err, &sigErr) {
		t.Fatalf("expected SigningUnavailableError, got %v", err)
	}

	b2, hasher, _ := newTestBuilder(t)
	hasher.Fail = errors.New("hash service down")
	_, err = b2.BuildOrderSettlement(ctx, testOrderRequest())
	if !errors.As(err, &sigErr) {
		t.Fatalf("expected SigningUnavailableError from hasher, got %v", err)
	}
}

func TestBuildRetriesAfterHasherRecovery(t *testing.T) {
	ctx := context.Background()

	b, hasher, _ := newTestBuilder(t)
	hasher.Fail = errors.New("hash service down")
	if _, err := b.BuildOrderSettlement(ctx, testOrderRequest()); err == nil {
		t.Fatal("expected error while hasher is down")
	}

	hasher.Fail = nil
	obj, err := b.BuildOrderSettlement(ctx, testOrderRequest())
	if err != nil {
		t.Fatalf("build after hasher recovery: %v", err)
	}
	if obj.MsgHash.IsZero() {
		t.Fatal("expected a message hash after recovery")
	}
}

type recordingRecorder struct {
	objects []*SettlementObject
	fail    error
}

func (r *recordingRecorder) Append(obj *SettlementObject) error {
	if r.fail != nil {
		return r.fail
	}
	r.objects = append(r.objects, obj)
	return nil
}

func TestBuildRecordsSettlements(t *testing.T) {
	rec := &recordingRecorder{}
	signer := &starktest.FakeSigner{Key: stark.VectorPublicKey}
	b, err := NewBuilder(BuilderConfig{
		Markets:    markets.NewCache(testMarket()),
		Collateral: markets.Asset{ID: stark.MustFeltFromHex("0x1"), Decimals: 6},
		Account:    Account{PositionID: 100, Signer: signer},
		Domain:     stark.VectorDomain,
		Hasher:     &starktest.FakeHasher{},
		Recorder:   rec,
		Clock:      func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}

	obj, err := b.BuildOrderSettlement(context.Background(), testOrderRequest())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(rec.objects) != 1 || rec.objects[0] != obj {
		t.Errorf("expected the sealed settlement to be recorded, got %d records", len(rec.objects))
	}

	// A recorder failure must not void the settlement.
	rec.fail = errors.New("disk full")
	if _, err := b.BuildOrderSettlement(context.Background(), testOrderRequest()); err != nil {
		t.Errorf("recorder failure voided the build: %v", err)
	}
}

func TestNewBuilderValidation(t *testing.T) {
	valid := BuilderConfig{
		Markets: markets.NewCache(testMarket()),
		Account: Account{PositionID: 1, Signer: &starktest.FakeSigner{Key: stark.VectorPublicKey}},
		Domain:  stark.VectorDomain,
		Hasher:  &starktest.FakeHasher{},
	}

	tests := []struct {
		name   string
		mutate func(*BuilderConfig)
	}{
		{name: "missing markets", mutate: func(c *BuilderConfig) { c.Markets = nil }},
		{name: "missing signer", mutate: func(c *BuilderConfig) { c.Account.Signer = nil }},
		{name: "missing hasher", mutate: func(c *BuilderConfig) { c.Hasher = nil }},
		{name: "missing domain", mutate: func(c *BuilderConfig) { c.Domain = stark.Domain{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if _, err := NewBuilder(cfg); err == nil {
				t.Error("expected an error")
			}
		})
	}

	if _, err := NewBuilder(valid); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}
