// Package types holds the wire shapes shared between api/responses and API
// consumers. Every endpoint answers with exactly one of the two envelopes.
package types

// SuccessEnvelope wraps every 2xx payload under a "data" key.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the client-facing error body. Code comes from the pkg/errors
// taxonomy; Message is the public message from the code's metadata, never the
// internal error text. Details is populated only for codes whose metadata
// allows it.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError under an "error" key.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
