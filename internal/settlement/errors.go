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
	"fmt"

	"github.com/extdex-labs/perp-settlement-go/internal/stark"
)

// ValidationError rejects a request before any scaling or hashing occurs.
// It is always recoverable: the caller should correct the input and retry.
// Unsupported names a feature the target protocol version does not accept
// yet, so callers can tell "not yet implemented" from "malformed input".
type ValidationError struct {
	Field       string
	Unsupported string
	Reason      string
}

func (e *ValidationError) Error() string {
	if e.Unsupported != "" {
		return fmt.Sprintf("validation: %s: unsupported feature %q: %s", e.Field, e.Unsupported, e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func unsupported(field, feature, reason string) *ValidationError {
	return &ValidationError{Field: field, Unsupported: feature, Reason: reason}
}

// AssemblyInvariantViolationError reports that the hash recomputed from an
// assembled settlement object disagrees with the hash that was signed. It
// indicates a construction-order bug, a protocol version mismatch, or a
// domain misconfiguration. It is fatal: never retry with the same inputs,
// and never downgrade it to a warning.
type AssemblyInvariantViolationError struct {
	Kind           OperationKind
	SignedHash     stark.Felt
	RecomputedHash stark.Felt
}

func (e *AssemblyInvariantViolationError) Error() string {
	return fmt.Sprintf(
		"assembly invariant violation in %s settlement: signed hash %s, recomputed %s",
		e.Kind, e.SignedHash, e.RecomputedHash)
}
