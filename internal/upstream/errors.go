// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a failed or degraded fetch.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindRateLimited
	KindTimeout
	KindMalformedResponse
	KindUnreachable
	KindDownloadFailed

	// KindStaleServed is a degraded success, not a failure.
	KindStaleServed
)

var kindNames = map[Kind]string{
	KindUnknown:           "unknown",
	KindUnauthorized:      "unauthorized",
	KindRateLimited:       "rate_limited",
	KindTimeout:           "timeout",
	KindMalformedResponse: "malformed_response",
	KindUnreachable:       "unreachable",
	KindDownloadFailed:    "download_failed",
	KindStaleServed:       "stale_served",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText renders the kind by name in JSON.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Sentinel errors, one per Kind. Match with errors.Is.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRateLimited       = errors.New("rate limited")
	ErrTimeout           = errors.New("timeout")
	ErrMalformedResponse = errors.New("malformed response")
	ErrUnreachable       = errors.New("unreachable")
	ErrDownloadFailed    = errors.New("download failed")
	ErrStaleServed       = errors.New("stale value served")
)

var sentinels = map[Kind]error{
	KindUnauthorized:      ErrUnauthorized,
	KindRateLimited:       ErrRateLimited,
	KindTimeout:           ErrTimeout,
	KindMalformedResponse: ErrMalformedResponse,
	KindUnreachable:       ErrUnreachable,
	KindDownloadFailed:    ErrDownloadFailed,
	KindStaleServed:       ErrStaleServed,
}

// Error carries the kind and context of an upstream failure.
type Error struct {
	Kind     Kind
	SourceID string
	Status   int // HTTP status, 0 when no response was received
	Err      error

	token string // session token that was refused, if any
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.SourceID != "" {
		msg = e.SourceID + ": " + msg
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrRateLimited) true for a rate-limited *Error.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// NewError builds an *Error.
func NewError(kind Kind, sourceID string, status int, err error) *Error {
	return &Error{Kind: kind, SourceID: sourceID, Status: status, Err: err}
}

// KindOf classifies any error. Context and network timeouts are Timeout;
// anything else that is not already typed is Unreachable.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind
	}
	for k, s := range sentinels {
		if errors.Is(err, s) {
			return k
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindUnreachable
}
