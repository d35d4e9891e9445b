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
	"github.com/ethereum/go-ethereum/common"
)

// The validation gate rejects malformed or not-yet-supported requests
// before any scaling or hashing happens. Failing here is cheap; failing
// after signing is not.

func validateOrder(req OrderRequest) error {
	if req.Market == "" {
		return invalid("market", "market is required")
	}
	if req.Side != SideBuy && req.Side != SideSell {
		return invalid("side", "side must be BUY or SELL")
	}
	if !req.Qty.IsPositive() {
		return invalid("qty", "quantity must be positive")
	}
	if !req.Price.IsPositive() {
		return invalid("price", "price must be positive")
	}

	switch req.TimeInForce {
	case "", TimeInForceGTT, TimeInForceIOC, TimeInForceFOK:
	default:
		return invalid("timeInForce", "time in force must be GTT, IOC or FOK")
	}
	if req.TimeInForce == TimeInForceFOK && req.PostOnly {
		return unsupported("timeInForce", "FOK post-only",
			"fill-or-kill cannot rest on the book")
	}

	if req.BuilderFee.IsNegative() {
		return invalid("builderFee", "builder fee must not be negative")
	}
	if !req.BuilderFee.IsZero() && req.BuilderID == 0 {
		return invalid("builderId", "builder id is required with a builder fee")
	}

	hasTrigger := req.TakeProfit != nil || req.StopLoss != nil
	if req.TpslType == TpslTypePosition {
		return unsupported("tpslType", "POSITION TP/SL",
			"whole-position triggers are not supported; use ORDER")
	}
	if req.TpslType != "" && !hasTrigger {
		return invalid("tpslType", "tpsl type set without a trigger")
	}
	if req.TakeProfit != nil {
		if err := validateTrigger("takeProfit", *req.TakeProfit); err != nil {
			return err
		}
	}
	if req.StopLoss != nil {
		if err := validateTrigger("stopLoss", *req.StopLoss); err != nil {
			return err
		}
	}
	return nil
}

func validateTrigger(field string, spec TriggerSpec) error {
	if spec.ExecutionPriceType == ExecutionPriceMarket {
		return unsupported(field, "MARKET execution price",
			"the settlement hash requires a concrete limit reference price")
	}
	switch spec.ExecutionPriceType {
	case "", ExecutionPriceLimit:
	default:
		return invalid(field, "execution price type must be LIMIT")
	}
	switch spec.TriggerPriceType {
	case "", TriggerPriceMark, TriggerPriceIndex, TriggerPriceLast:
	default:
		return invalid(field, "trigger price type must be MARK, INDEX or LAST")
	}
	if !spec.TriggerPrice.IsPositive() {
		return invalid(field, "trigger price must be positive")
	}
	if !spec.Price.IsPositive() {
		return invalid(field, "execution price must be positive")
	}
	return nil
}

func validateTransfer(req TransferRequest) error {
	if !req.Amount.IsPositive() {
		return invalid("amount", "amount must be positive")
	}
	if req.FromPositionID == req.ToPositionID {
		return invalid("toPositionId", "transfer to the same position")
	}
	if req.FromPositionID == 0 || req.ToPositionID == 0 {
		return invalid("positionId", "position ids must be set")
	}
	return nil
}

func validateWithdrawal(req WithdrawalRequest) error {
	if !req.Amount.IsPositive() {
		return invalid("amount", "amount must be positive")
	}
	if !common.IsHexAddress(req.RecipientAddress) {
		return invalid("recipientAddress", "recipient is not a valid L1 address")
	}
	return nil
}
