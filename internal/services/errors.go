// Package services defines the business logic of the assistant: login,
// role-aware query answering (SQL generation plus semantic retrieval), and
// order placement. This file centralizes common service-level error values
// and the fixed user-facing strings so that they can be consistently
// returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrEmptyQuery is returned when a query request contains no text.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrTooLong is returned when a query exceeds the maximum configured
	// length limit.
	ErrTooLong = errors.New("query too long")

	// ErrBadCredentials indicates a failed username/password check.
	ErrBadCredentials = errors.New("invalid credentials")

	// ErrUnknownUser indicates that no account matches the supplied identity.
	ErrUnknownUser = errors.New("unknown user")

	// ErrGeneration indicates the language-model endpoint failed or returned
	// unusable output.
	ErrGeneration = errors.New("generation failed")

	// ErrValidation indicates that order details could not be resolved against
	// the catalogue (unknown product, dealer, or warehouse).
	ErrValidation = errors.New("order validation failed")
)

// Fixed response strings. These are part of the external contract: clients
// and conversation transcripts match on them verbatim.
const (
	// MsgNoResults is returned as SQL context when a generated query yields
	// zero rows.
	MsgNoResults = "No results found."

	// MsgNoVectorContext is returned as vector context when no indexed
	// passage clears the similarity threshold.
	MsgNoVectorContext = "No relevant vector context found."

	// MsgFallback is the safe catch-all answer used when generation fails or
	// a question is out of scope.
	MsgFallback = "Sorry, I can't assist with that."

	// MsgOrderRoleDenied is returned when a non-sales-rep attempts to place
	// an order.
	MsgOrderRoleDenied = "Only sales representatives can place orders."

	// MsgIntentUnknown is returned when the classifier cannot tell what a
	// sales rep is asking for.
	MsgIntentUnknown = "Could not understand your intent. Please try rephrasing."
)
