package models

import "errors"

// Error categories surfaced by the search lifecycle. Handlers map
// these to fixed user-facing messages; the wrapped detail is only
// ever logged.
var (
	// ErrLocationRequired: required input missing, detected locally,
	// no network activity happened.
	ErrLocationRequired = errors.New("delivery location is required")

	// ErrMissingCredential: the Gemini API key is absent from the
	// environment. Checked before any network call.
	ErrMissingCredential = errors.New("GEMINI_API_KEY environment variable not set")

	// ErrRequestFailed: the remote generate call failed for any
	// reason (network, auth, malformed response). Terminal for the
	// submission; the user must resubmit.
	ErrRequestFailed = errors.New("deal search request failed")

	// ErrGeoUnsupported: the client host offers no geolocation
	// capability at all.
	ErrGeoUnsupported = errors.New("geolocation capability unavailable")

	// ErrGeoDenied: geolocation exists but the fix was denied or
	// failed.
	ErrGeoDenied = errors.New("geolocation permission denied")
)
