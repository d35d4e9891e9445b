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

import (
	"context"
	"fmt"
)

// domainSelector is the type selector folded into every domain hash.
var domainSelector = MustFeltFromHex(
	"0x1ff2f602e42168014d405a94f75e8a93d640751d71d16311266e140d8b0a210")

// messagePrefix is the envelope tag for every signed message.
const messagePrefix = "StarkNet Message"

// Domain identifies one protocol instance. All four fields participate in
// every message hash; a value differing from the verifier's makes every
// hash mismatch with no local symptom, so domains must come from one
// canonical configuration object and never be assembled per call site.
type Domain struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	ChainID  string `json:"chainId"`
	Revision uint32 `json:"revision"`
}

// Elements returns the ordered domain preimage:
// selector, name, version, chain id, revision.
func (d Domain) Elements() ([]Felt, error) {
	name, err := FeltFromShortString(d.Name)
	if err != nil {
		return nil, fmt.Errorf("domain name: %w", err)
	}
	version, err := FeltFromShortString(d.Version)
	if err != nil {
		return nil, fmt.Errorf("domain version: %w", err)
	}
	chainID, err := FeltFromShortString(d.ChainID)
	if err != nil {
		return nil, fmt.Errorf("domain chain id: %w", err)
	}
	return []Felt{domainSelector, name, version, chainID, FeltFromUint64(uint64(d.Revision))}, nil
}

// Hash computes the domain separator hash.
func (d Domain) Hash(ctx context.Context, h Hasher) (Felt, error) {
	elements, err := d.Elements()
	if err != nil {
		return Felt{}, err
	}
	out, err := h.HashElements(ctx, elements)
	if err != nil {
		return Felt{}, &SigningUnavailableError{Op: "domain hash", Err: err}
	}
	return out, nil
}

// MessageHash computes the outer message hash binding a struct hash to a
// domain and a signer key:
//
//	H('StarkNet Message', domainHash, publicKey, structHash)
//
// This envelope is identical for every operation kind.
func MessageHash(ctx context.Context, h Hasher, d Domain, publicKey, structHash Felt) (Felt, error) {
	domainHash, err := d.Hash(ctx, h)
	if err != nil {
		return Felt{}, err
	}
	return MessageHashWithDomain(ctx, h, domainHash, publicKey, structHash)
}

// MessageHashWithDomain is MessageHash with a precomputed domain hash,
// for callers that sign many messages against one domain.
func MessageHashWithDomain(ctx context.Context, h Hasher, domainHash, publicKey, structHash Felt) (Felt, error) {
	prefix, err := FeltFromShortString(messagePrefix)
	if err != nil {
		return Felt{}, err
	}
	out, err := h.HashElements(ctx, []Felt{prefix, domainHash, publicKey, structHash})
	if err != nil {
		return Felt{}, &SigningUnavailableError{Op: "message hash", Err: err}
	}
	return out, nil
}
