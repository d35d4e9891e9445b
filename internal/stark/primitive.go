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

// Hasher is the hashing capability consumed from the cryptographic
// collaborator. Implementations must be deterministic and pure: the same
// element sequence always produces the same element, and element order is
// significant.
//
// The library never implements the hash internally; the exchange's on-chain
// verifier independently certifies whichever implementation is plugged in.
type Hasher interface {
	HashElements(ctx context.Context, elements []Felt) (Felt, error)
}

// Signer is the signing capability consumed from the cryptographic
// collaborator. Sign may block (external process, remote signer), so it
// takes a context.
type Signer interface {
	// PublicKey returns the Stark public key the signatures verify against.
	PublicKey() Felt

	// Sign produces an (r, s) signature over a message hash.
	Sign(ctx context.Context, msgHash Felt) (r Felt, s Felt, err error)
}

// Signature is an (r, s) pair produced by a Signer.
type Signature struct {
	R Felt `json:"r"`
	S Felt `json:"s"`
}

// SigningUnavailableError reports a failure of the external hashing or
// signing collaborator. It is retryable and never means the operation
// itself was invalid.
type SigningUnavailableError struct {
	Op  string
	Err error
}

func (e *SigningUnavailableError) Error() string {
	return fmt.Sprintf("signing unavailable during %s: %v", e.Op, e.Err)
}

func (e *SigningUnavailableError) Unwrap() error {
	return e.Err
}
