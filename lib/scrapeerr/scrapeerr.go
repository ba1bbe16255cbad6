// Package scrapeerr holds the error kinds shared by every resolver stage.
//
// Callers test for a kind with errors.Is, the concrete error is always
// wrapped with enough context to locate the failing request.
package scrapeerr

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrLookup means an upstream lookup service answered but gave nothing usable.
	ErrLookup = errors.New("lookup failure")
	// ErrGeocode means the geocoder response had no location.
	ErrGeocode = errors.New("geocode failure")
	// ErrRateLimited means the platform withheld its answer because of request volume.
	ErrRateLimited = errors.New("rate limited")
	// ErrParse means a single record or field could not be decoded.
	ErrParse = errors.New("parse failure")
	// ErrTransport means the request failed (network, timeout) or the
	// platform answered with an error status.
	ErrTransport = errors.New("transport failure")
	// ErrCancelled means the caller's context ended before the call finished.
	ErrCancelled = errors.New("cancelled")
)

// Transport classifies an error returned by the HTTP layer. Context
// cancellation and deadline expiry become ErrCancelled, anything else is
// ErrTransport.
func Transport(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrCancelled, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}

// Recoverable reports whether err is local to one candidate or item and
// should not abort a run.
func Recoverable(err error) bool {
	return errors.Is(err, ErrLookup) ||
		errors.Is(err, ErrGeocode) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrParse) ||
		errors.Is(err, ErrTransport)
}
