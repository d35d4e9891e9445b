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
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/extdex-labs/perp-settlement-go/internal/markets"
	"github.com/extdex-labs/perp-settlement-go/internal/nonce"
	"github.com/extdex-labs/perp-settlement-go/internal/scale"
	"github.com/extdex-labs/perp-settlement-go/internal/stark"
)

// BuilderConfig wires a Builder's collaborators.
type BuilderConfig struct {
	// Markets supplies per-market asset scales and fee rates.
	Markets markets.Provider

	// Collateral is the settlement asset used by transfers and
	// withdrawals, which have no market of their own.
	Collateral markets.Asset

	// Account is the signing identity.
	Account Account

	// Domain is the canonical protocol domain. It is folded into every
	// hash; never assemble domain values anywhere else.
	Domain stark.Domain

	// Hasher is the external hashing collaborator.
	Hasher stark.Hasher

	// Nonces defaults to a collision-resistant random source.
	Nonces nonce.Source

	// Recorder, when set, receives every assembled settlement before it is
	// returned. Recording is best effort: a recorder failure is logged and
	// the settlement still stands.
	Recorder Recorder

	// Clock defaults to time.Now. Injectable for deterministic tests.
	Clock func() time.Time
}

// Recorder persists assembled settlements. *journal.Journal implements it.
type Recorder interface {
	Append(obj *SettlementObject) error
}

// Builder constructs signed settlement objects. It is stateless across
// calls apart from the nonce source and a memoized domain hash, and safe
// for concurrent use.
type Builder struct {
	cfg BuilderConfig

	domainMu     sync.Mutex
	domainHash   stark.Felt
	domainHashed bool
}

// NewBuilder validates the wiring and returns a Builder.
func NewBuilder(cfg BuilderConfig) (*Builder, error) {
	if cfg.Markets == nil {
		return nil, errors.New("settlement: market provider is required")
	}
	if cfg.Account.Signer == nil {
		return nil, errors.New("settlement: account signer is required")
	}
	if cfg.Hasher == nil {
		return nil, errors.New("settlement: hasher is required")
	}
	if cfg.Domain.Name == "" || cfg.Domain.ChainID == "" {
		return nil, errors.New("settlement: protocol domain is required")
	}
	if cfg.Nonces == nil {
		cfg.Nonces = nonce.NewRandomSource()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Builder{cfg: cfg}, nil
}

// domainSeparator memoizes the domain hash: the domain is fixed per
// Builder and participates in every message. Only a successful hash is
// cached, so a transient hasher outage is retried on the next build.
func (b *Builder) domainSeparator(ctx context.Context) (stark.Felt, error) {
	b.domainMu.Lock()
	defer b.domainMu.Unlock()
	if b.domainHashed {
		return b.domainHash, nil
	}
	hash, err := b.cfg.Domain.Hash(ctx, b.cfg.Hasher)
	if err != nil {
		return stark.Felt{}, err
	}
	b.domainHash = hash
	b.domainHashed = true
	return hash, nil
}

// BuildOrderSettlement validates, scales, hashes, signs and assembles one
// order settlement.
func (b *Builder) BuildOrderSettlement(ctx context.Context, req OrderRequest) (*SettlementObject, error) {
	if err := validateOrder(req); err != nil {
		return nil, err
	}

	market, ok := b.cfg.Markets.Market(req.Market)
	if !ok {
		return nil, fmt.Errorf("market %q: %w", req.Market, scale.ErrMetadataMissing)
	}
	if req.Qty.LessThan(market.MinOrderSize) {
		return nil, invalid("qty", fmt.Sprintf("below minimum order size %s", market.MinOrderSize))
	}

	sctx, err := b.newOrderContext(req, market)
	if err != nil {
		return nil, err
	}

	amounts, err := computeOrderAmounts(req.Side, req.Qty, req.Price, sctx.FeeRate, market)
	if err != nil {
		return nil, err
	}

	elements := OrderStructElements(
		sctx.PositionID,
		market.SyntheticAsset.ID, amounts.SyntheticAmount,
		market.CollateralAsset.ID, amounts.CollateralAmount,
		market.CollateralAsset.ID, amounts.FeeAmount,
		sctx.ExpirySeconds(), sctx.Nonce,
	)

	obj := &SettlementObject{
		Kind:                KindOrder,
		ExternalID:          externalID(req.ExternalID),
		Market:              market.Name,
		Side:                req.Side,
		BaseAssetID:         market.SyntheticAsset.ID,
		QuoteAssetID:        market.CollateralAsset.ID,
		Amounts:             amounts,
		PositionID:          sctx.PositionID,
		Nonce:               sctx.Nonce,
		ExpiryEpochMillis:   sctx.ExpiryEpochMillis(),
		StarkKey:            sctx.PublicKey,
		Domain:              sctx.Domain,
		TimeInForce:         defaultTimeInForce(req.TimeInForce),
		ReduceOnly:          req.ReduceOnly,
		PostOnly:            req.PostOnly,
		SelfTradeProtection: defaultSelfTradeProtection(req.SelfTradeProtection),
		BuilderID:           req.BuilderID,
	}

	sealed, err := b.hashSignAssemble(ctx, obj, elements)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("Built order settlement",
		zap.String("market", sealed.Market),
		zap.String("side", string(sealed.Side)),
		zap.String("msgHash", sealed.MsgHash.Hex()),
		zap.Uint64("nonce", sealed.Nonce))
	return sealed, nil
}

// BuildTriggerSettlement builds the TP/SL companion of a parent order: an
// order settlement for the opposite side at the trigger's own execution
// price. The companion is a sibling, not derived from the parent's hash:
// it draws its own nonce and computes its own settlement.
func (b *Builder) BuildTriggerSettlement(ctx context.Context, parent OrderRequest, spec TriggerSpec) (*SettlementObject, error) {
	if err := validateOrder(parent); err != nil {
		return nil, err
	}
	if err := validateTrigger("trigger", spec); err != nil {
		return nil, err
	}

	companion := parent
	companion.Side = parent.Side.Opposite()
	companion.Price = spec.Price
	companion.Nonce = nil
	companion.ExternalID = ""
	companion.TakeProfit = nil
	companion.StopLoss = nil
	companion.TpslType = ""
	companion.ReduceOnly = true

	obj, err := b.BuildOrderSettlement(ctx, companion)
	if err != nil {
		return nil, err
	}
	trigger := spec
	obj.Trigger = &trigger
	return obj, nil
}

// BuildTransferSettlement validates, scales, hashes, signs and assembles
// one collateral transfer settlement.
func (b *Builder) BuildTransferSettlement(ctx context.Context, req TransferRequest) (*SettlementObject, error) {
	if err := validateTransfer(req); err != nil {
		return nil, err
	}
	if req.FromPositionID != b.cfg.Account.PositionID {
		return nil, invalid("fromPositionId", "sender must be the signing account's position")
	}

	amount, err := scale.Size(req.Amount, b.cfg.Collateral.Decimals)
	if err != nil {
		return nil, err
	}

	sctx, err := b.newTransferContext(req.Nonce, req.ExpiresAt)
	if err != nil {
		return nil, err
	}

	elements := TransferStructElements(
		req.ToPositionID, req.FromPositionID,
		b.cfg.Collateral.ID, amount,
		sctx.ExpirySeconds(), sctx.Nonce,
	)

	obj := &SettlementObject{
		Kind:                KindTransfer,
		ExternalID:          externalID(req.ExternalID),
		CollateralAssetID:   b.cfg.Collateral.ID,
		Amount:              amount,
		SenderPositionID:    req.FromPositionID,
		RecipientPositionID: req.ToPositionID,
		PositionID:          sctx.PositionID,
		Nonce:               sctx.Nonce,
		ExpiryEpochMillis:   sctx.ExpiryEpochMillis(),
		StarkKey:            sctx.PublicKey,
		Domain:              sctx.Domain,
	}

	sealed, err := b.hashSignAssemble(ctx, obj, elements)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("Built transfer settlement",
		zap.Uint64("from", req.FromPositionID),
		zap.Uint64("to", req.ToPositionID),
		zap.String("msgHash", sealed.MsgHash.Hex()))
	return sealed, nil
}

// BuildWithdrawalSettlement validates, scales, hashes, signs and assembles
// one withdrawal settlement.
func (b *Builder) BuildWithdrawalSettlement(ctx context.Context, req WithdrawalRequest) (*SettlementObject, error) {
	if err := validateWithdrawal(req); err != nil {
		return nil, err
	}

	amount, err := scale.Size(req.Amount, b.cfg.Collateral.Decimals)
	if err != nil {
		return nil, err
	}

	recipient := common.HexToAddress(req.RecipientAddress)
	recipientFelt := stark.FeltFromBig(recipient.Big())

	sctx, err := b.newTransferContext(req.Nonce, req.ExpiresAt)
	if err != nil {
		return nil, err
	}

	elements := WithdrawalStructElements(
		recipientFelt, sctx.PositionID,
		b.cfg.Collateral.ID, amount,
		sctx.ExpirySeconds(), sctx.Nonce,
	)

	obj := &SettlementObject{
		Kind:              KindWithdrawal,
		ExternalID:        externalID(req.ExternalID),
		CollateralAssetID: b.cfg.Collateral.ID,
		Amount:            amount,
		Recipient:         recipientFelt,
		RecipientAddress:  recipient.Hex(),
		PositionID:        sctx.PositionID,
		Nonce:             sctx.Nonce,
		ExpiryEpochMillis: sctx.ExpiryEpochMillis(),
		StarkKey:          sctx.PublicKey,
		Domain:            sctx.Domain,
	}

	sealed, err := b.hashSignAssemble(ctx, obj, elements)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("Built withdrawal settlement",
		zap.String("recipient", sealed.RecipientAddress),
		zap.String("msgHash", sealed.MsgHash.Hex()))
	return sealed, nil
}

// hashSignAssemble runs the strictly ordered tail of every build: hash the
// preimage, sign the hash, then assemble with the fail-closed self-check.
func (b *Builder) hashSignAssemble(
	ctx context.Context,
	obj *SettlementObject,
	elements []stark.Felt,
) (*SettlementObject, error) {
	domainHash, err := b.domainSeparator(ctx)
	if err != nil {
		return nil, err
	}

	msgHash, err := hashStructMessage(ctx, b.cfg.Hasher, domainHash, obj.StarkKey, elements)
	if err != nil {
		return nil, err
	}

	r, s, err := b.cfg.Account.Signer.Sign(ctx, msgHash)
	if err != nil {
		return nil, &stark.SigningUnavailableError{Op: "sign", Err: err}
	}

	sealed, err := assemble(ctx, b.cfg.Hasher, obj, msgHash, stark.Signature{R: r, S: s})
	if err != nil {
		return nil, err
	}

	if b.cfg.Recorder != nil {
		if err := b.cfg.Recorder.Append(sealed); err != nil {
			zap.L().Warn("Failed to journal settlement",
				zap.String("externalId", sealed.ExternalID),
				zap.Error(err))
		}
	}
	return sealed, nil
}

func (b *Builder) newOrderContext(req OrderRequest, market markets.Market) (SettlementContext, error) {
	feeRate := market.TakerFeeRate
	if !req.BuilderFee.IsZero() {
		feeRate = feeRate.Add(req.BuilderFee)
	}

	expiresAt := req.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = b.cfg.Clock().Add(DefaultOrderExpiry)
	}

	n, err := b.resolveNonce(req.Nonce)
	if err != nil {
		return SettlementContext{}, err
	}

	return SettlementContext{
		Market:     market,
		FeeRate:    feeRate,
		ExpiresAt:  expiresAt,
		Nonce:      n,
		PositionID: b.cfg.Account.PositionID,
		PublicKey:  b.cfg.Account.Signer.PublicKey(),
		Domain:     b.cfg.Domain,
	}, nil
}

func (b *Builder) newTransferContext(explicitNonce *uint64, expiresAt time.Time) (SettlementContext, error) {
	if expiresAt.IsZero() {
		expiresAt = b.cfg.Clock().Add(DefaultTransferExpiry)
	}

	n, err := b.resolveNonce(explicitNonce)
	if err != nil {
		return SettlementContext{}, err
	}

	return SettlementContext{
		ExpiresAt:  expiresAt,
		Nonce:      n,
		PositionID: b.cfg.Account.PositionID,
		PublicKey:  b.cfg.Account.Signer.PublicKey(),
		Domain:     b.cfg.Domain,
	}, nil
}

func (b *Builder) resolveNonce(explicit *uint64) (uint64, error) {
	if explicit != nil {
		if *explicit == 0 {
			return 0, invalid("nonce", "explicit nonce must not be zero")
		}
		return *explicit, nil
	}
	return b.cfg.Nonces.Next(b.cfg.Account.Signer.PublicKey())
}

func externalID(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return uuid.New().String()
}

func defaultTimeInForce(tif TimeInForce) TimeInForce {
	if tif == "" {
		return TimeInForceGTT
	}
	return tif
}

func defaultSelfTradeProtection(stp SelfTradeProtection) SelfTradeProtection {
	if stp == "" {
		return SelfTradeProtectionAccount
	}
	return stp
}
