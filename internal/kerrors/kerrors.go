// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kerrors implements KotaDB's error-kind taxonomy: every error the
// core returns names the operation, the target, one actionable hint, and a
// Kind the caller can branch on with errors.Is / errors.As.
package kerrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for programmatic handling. It is not a Go type
// hierarchy — callers switch on Kind rather than type-asserting concrete
// error types.
type Kind int

const (
	// KindUnknown is the zero value; never returned by the core.
	KindUnknown Kind = iota
	KindInvalidInput
	KindNotFound
	KindDuplicateID
	KindIOTransient
	KindIOPermanent
	KindCorruption
	KindLockPoisoned
	KindGraphUnavailable
	KindGraphDrift
	KindExtractionFailed
	KindCapacityExceeded
	KindTimeout
	KindFeatureDisabled
	KindClosed
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindDuplicateID:
		return "duplicate_id"
	case KindIOTransient:
		return "io_transient"
	case KindIOPermanent:
		return "io_permanent"
	case KindCorruption:
		return "corruption"
	case KindLockPoisoned:
		return "lock_poisoned"
	case KindGraphUnavailable:
		return "graph_unavailable"
	case KindGraphDrift:
		return "graph_drift"
	case KindExtractionFailed:
		return "extraction_failed"
	case KindCapacityExceeded:
		return "capacity_exceeded"
	case KindTimeout:
		return "timeout"
	case KindFeatureDisabled:
		return "feature_disabled"
	case KindClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Sub-kinds for InvalidInput (spec §7: path, title, tag, id, limit, query)
// and for CapacityExceeded (memory, files, limit). These are carried as
// plain strings on Error.Sub rather than their own Kind values so that
// callers who only care about the broad Kind don't need an exhaustive
// sub-kind switch.
const (
	SubPath  = "path"
	SubTitle = "title"
	SubTag   = "tag"
	SubID    = "id"
	SubLimit = "limit"
	SubQuery = "query"

	SubMemory = "memory"
	SubFiles  = "files"

	SubSymbolTable = "symbol_table"
	SubGraph       = "graph"
	SubTree        = "tree"
	SubWAL         = "wal"
)

// Error is the concrete error type returned by KotaDB core APIs. It always
// carries enough context to render a helpful message without further
// wrapping.
type Error struct {
	Kind      Kind
	Op        string // operation, e.g. "primaryindex.Search"
	Target    string // the id/path/name the operation concerned
	Sub       string // optional sub-kind, see Sub* constants
	Hint      string // one actionable suggestion
	Err       error  // wrapped cause, if any
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Target != "" {
		msg += fmt.Sprintf(" (target=%q)", e.Target)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Hint != "" {
		msg += " — " + e.Hint
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is(err, kerrors.NotFound) style checks by treating a
// *Error sentinel (see the sentinel vars below) as matching any *Error with
// the same Kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New constructs an *Error. hint may be empty.
func New(kind Kind, op, target, hint string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Target: target, Hint: hint, Err: cause}
}

// WithSub attaches a sub-kind, returning the same *Error for chaining.
func (e *Error) WithSub(sub string) *Error {
	e.Sub = sub
	return e
}

// sentinel, one per Kind, so errors.Is(err, kerrors.NotFound) reads naturally.
var (
	InvalidInput     = &Error{Kind: KindInvalidInput}
	NotFound         = &Error{Kind: KindNotFound}
	DuplicateID      = &Error{Kind: KindDuplicateID}
	IOTransient      = &Error{Kind: KindIOTransient}
	IOPermanent      = &Error{Kind: KindIOPermanent}
	Corruption       = &Error{Kind: KindCorruption}
	LockPoisoned     = &Error{Kind: KindLockPoisoned}
	GraphUnavailable = &Error{Kind: KindGraphUnavailable}
	GraphDrift       = &Error{Kind: KindGraphDrift}
	ExtractionFailed = &Error{Kind: KindExtractionFailed}
	CapacityExceeded = &Error{Kind: KindCapacityExceeded}
	Timeout          = &Error{Kind: KindTimeout}
	FeatureDisabled  = &Error{Kind: KindFeatureDisabled}
	Closed           = &Error{Kind: KindClosed}
)

// ErrClosed is returned by any operation invoked after Close on a
// Storage/Index handle.
var ErrClosed = New(KindClosed, "", "", "handle is closed", nil)

// Is reports whether err is (transitively) an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Transient reports whether err is an I/O error a Retryable wrapper should
// retry, per spec §7's propagation policy.
func Transient(err error) bool {
	return Is(err, KindIOTransient)
}
