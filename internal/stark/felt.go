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
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// fieldPrime is the Stark curve prime, 2^251 + 17*2^192 + 1. All field
// elements are reduced modulo this value; negative integers encode as
// prime - |v|.
var fieldPrime, _ = new(big.Int).SetString(
	"800000000000011000000000000000000000000000000000000000000000001", 16)

// maxShortStringLen is the Cairo short-string limit (31 ASCII bytes).
const maxShortStringLen = 31

// Felt is a field element, the native unit of the hashing and signing
// primitive. The zero value is the field element 0.
type Felt struct {
	v *big.Int
}

// Prime returns a copy of the field modulus.
func Prime() *big.Int {
	return new(big.Int).Set(fieldPrime)
}

// FeltFromBig reduces v modulo the field prime. Negative values wrap to
// prime - |v|.
func FeltFromBig(v *big.Int) Felt {
	r := new(big.Int).Mod(v, fieldPrime)
	return Felt{v: r}
}

// FeltFromInt64 encodes a signed integer as a field element.
func FeltFromInt64(v int64) Felt {
	return FeltFromBig(big.NewInt(v))
}

// FeltFromUint64 encodes an unsigned integer as a field element.
func FeltFromUint64(v uint64) Felt {
	return FeltFromBig(new(big.Int).SetUint64(v))
}

// FeltFromHex parses a hex string, with or without a 0x prefix.
func FeltFromHex(s string) (Felt, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if trimmed == "" {
		return Felt{}, fmt.Errorf("empty field element hex %q", s)
	}
	v, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return Felt{}, fmt.Errorf("invalid field element hex %q", s)
	}
	if v.Cmp(fieldPrime) >= 0 {
		return Felt{}, fmt.Errorf("field element %q exceeds the field prime", s)
	}
	return Felt{v: v}, nil
}

// MustFeltFromHex is FeltFromHex for protocol constants; it panics on
// malformed input.
func MustFeltFromHex(s string) Felt {
	f, err := FeltFromHex(s)
	if err != nil {
		panic(err)
	}
	return f
}

// FeltFromShortString encodes an ASCII string of at most 31 bytes as a
// Cairo short string: the big-endian integer of its raw bytes.
func FeltFromShortString(s string) (Felt, error) {
	if len(s) > maxShortStringLen {
		return Felt{}, fmt.Errorf("short string %q exceeds %d bytes", s, maxShortStringLen)
	}
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return Felt{}, fmt.Errorf("short string %q contains non-ASCII byte at %d", s, i)
		}
	}
	return Felt{v: new(big.Int).SetBytes([]byte(s))}, nil
}

// Big returns a copy of the element's integer value.
func (f Felt) Big() *big.Int {
	if f.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(f.v)
}

// Hex renders the element as minimal lowercase hex with a 0x prefix, the
// representation the exchange and verifier consume.
func (f Felt) Hex() string {
	if f.v == nil || f.v.Sign() == 0 {
		return "0x0"
	}
	return "0x" + f.v.Text(16)
}

// String implements fmt.Stringer.
func (f Felt) String() string {
	return f.Hex()
}

// Equal reports whether two elements hold the same value.
func (f Felt) Equal(other Felt) bool {
	return f.Big().Cmp(other.Big()) == 0
}

// IsZero reports whether the element is the field element 0.
func (f Felt) IsZero() bool {
	return f.v == nil || f.v.Sign() == 0
}

// MarshalJSON renders the element as a hex string.
func (f Felt) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Hex())
}

// UnmarshalJSON parses a hex string.
func (f *Felt) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := FeltFromHex(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
