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

// Package nonce provides anti-replay nonce sources for settlement signing.
// A nonce must never repeat for a given signing key within its validity
// window; a repeat is a caller-visible replay risk, not a performance bug.
package nonce

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/extdex-labs/perp-settlement-go/internal/stark"
)

// Source issues nonces for a signing key. Implementations must be safe for
// concurrent use: two concurrent settlement builds against the same key
// must never observe the same nonce.
//
// Cross-process coordination is the caller's concern; every build operation
// also accepts an explicit caller-supplied nonce for deterministic retries.
type Source interface {
	Next(key stark.Felt) (uint64, error)
}

// RandomSource draws collision-resistant random nonces and remembers what
// it has issued per key, retrying the (vanishingly rare) process-local
// collision.
type RandomSource struct {
	mu     sync.Mutex
	issued map[string]map[uint64]struct{}
}

// NewRandomSource creates the default nonce source.
func NewRandomSource() *RandomSource {
	return &RandomSource{issued: make(map[string]map[uint64]struct{})}
}

// Next implements Source.
func (s *RandomSource) Next(key stark.Felt) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key.Hex()
	seen, ok := s.issued[k]
	if !ok {
		seen = make(map[uint64]struct{})
		s.issued[k] = seen
	}

	for attempt := 0; attempt < 64; attempt++ {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("drawing nonce: %w", err)
		}
		// Keep nonces in the positive int64 range; zero is reserved.
		n := binary.BigEndian.Uint64(buf[:]) >> 1
		if n == 0 {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		return n, nil
	}
	return 0, fmt.Errorf("could not draw a fresh nonce for key %s", k)
}

// CounterSource issues strictly increasing nonces per key, starting from a
// caller-chosen seed. Suited to deployments that coordinate nonces
// externally and need monotonicity.
type CounterSource struct {
	mu   sync.Mutex
	next map[string]uint64
	seed uint64
}

// NewCounterSource creates a monotonic source. The first nonce issued for
// any key is seed+1.
func NewCounterSource(seed uint64) *CounterSource {
	return &CounterSource{next: make(map[string]uint64), seed: seed}
}

// Next implements Source.
func (s *CounterSource) Next(key stark.Felt) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key.Hex()
	if _, ok := s.next[k]; !ok {
		s.next[k] = s.seed
	}
	s.next[k]++
	return s.next[k], nil
}
