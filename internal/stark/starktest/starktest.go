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

// Package starktest provides deterministic stand-ins for the hashing and
// signing collaborators so the settlement core can be tested without any
// cryptographic library, plus the published reference vectors a real
// adapter must reproduce.
package starktest

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/extdex-labs/perp-settlement-go/internal/stark"
)

// FakeHasher is a deterministic, order-sensitive reference hasher built on
// SHA-256. It is NOT the protocol hash: its only job is to make ordering,
// domain-sensitivity, and recomputation properties observable in tests.
type FakeHasher struct {
	// Fail, when set, makes every call return an error. Used to exercise
	// the SigningUnavailable path.
	Fail error
}

// HashElements implements stark.Hasher.
func (f *FakeHasher) HashElements(_ context.Context, elements []stark.Felt) (stark.Felt, error) {
	if f.Fail != nil {
		return stark.Felt{}, f.Fail
	}
	h := sha256.New()
	var count [8]byte
	binary.BigEndian.PutUint64(count[:], uint64(len(elements)))
	h.Write(count[:])
	for _, e := range elements {
		b := e.Big().Bytes()
		var size [8]byte
		binary.BigEndian.PutUint64(size[:], uint64(len(b)))
		h.Write(size[:])
		h.Write(b)
	}
	return stark.FeltFromBig(new(big.Int).SetBytes(h.Sum(nil))), nil
}

// FakeSigner derives signatures deterministically from the message hash and
// a fixed key, so tests can assert that the assembler signed exactly the
// hash it recomputes.
type FakeSigner struct {
	Key stark.Felt
	// Fail, when set, makes Sign return an error.
	Fail error
}

// PublicKey implements stark.Signer.
func (f *FakeSigner) PublicKey() stark.Felt {
	return f.Key
}

// Sign implements stark.Signer.
func (f *FakeSigner) Sign(_ context.Context, msgHash stark.Felt) (stark.Felt, stark.Felt, error) {
	if f.Fail != nil {
		return stark.Felt{}, stark.Felt{}, f.Fail
	}
	if msgHash.IsZero() {
		return stark.Felt{}, stark.Felt{}, errors.New("refusing to sign zero hash")
	}
	r := sha256.Sum256(append([]byte("r"), append(f.Key.Big().Bytes(), msgHash.Big().Bytes()...)...))
	s := sha256.Sum256(append([]byte("s"), append(f.Key.Big().Bytes(), msgHash.Big().Bytes()...)...))
	return stark.FeltFromBig(new(big.Int).SetBytes(r[:])),
		stark.FeltFromBig(new(big.Int).SetBytes(s[:])), nil
}
