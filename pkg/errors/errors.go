// Package errors defines the structured error taxonomy for tokenkit.
// Every failure surfaced by the codec, cipher, session token and JWT packages is an Error
// carrying a Kind and a Code, so callers pattern-match with Is instead of inspecting text.
// Error messages are deliberately generic; the underlying cause and metadata are for logs only.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind groups error codes by the component that raises them
type Kind string

const (
	KindCodec  Kind = "codec"
	KindCrypto Kind = "crypto"
	KindToken  Kind = "token"
	KindJWT    Kind = "jwt"
	KindKey    Kind = "key"
	KindConfig Kind = "config"
)

// Code identifies a specific failure within a Kind
type Code string

const (
	// Codec codes
	CodeParityMismatch       Code = "parity_mismatch"
	CodeInvalidAlphabetIndex Code = "invalid_alphabet_index"
	CodeInvalidSymbol        Code = "invalid_symbol"

	// Crypto codes
	CodeCipherFailure        Code = "cipher_failure"
	CodeUnsupportedAlgorithm Code = "unsupported_algorithm"
	CodeInvalidDescriptor    Code = "invalid_descriptor"
	CodePlaintextTooLarge    Code = "plaintext_too_large"
	CodeKeyNotFound          Code = "key_not_found"

	// Session token codes
	CodeMalformed        Code = "malformed"
	CodeExpired          Code = "expired"
	CodeChecksumMismatch Code = "checksum_mismatch"
	CodeAddressMismatch  Code = "address_mismatch"

	// JWT codes
	CodeInvalidPayload   Code = "invalid_payload"
	CodeTokenTooLarge    Code = "token_too_large"
	CodeSignatureFormat  Code = "signature_format"
	CodeSignatureInvalid Code = "signature_invalid"
	CodeInvalidKey       Code = "invalid_key"
	CodeNotYetValid      Code = "not_yet_valid"
	CodeClaimMismatch    Code = "claim_mismatch"
	CodeRevoked          Code = "revoked"
	CodeDenylistFailure  Code = "denylist_failure"

	// Key codec codes
	CodeInvalidEncoding Code = "invalid_encoding"
	CodeUnsupportedKey  Code = "unsupported_key"
	CodeUnknownCurve    Code = "unknown_curve"
	CodeInvalidPassword Code = "invalid_password"

	// Configuration codes
	CodeInvalidConfig Code = "invalid_config"
)

// ================================================================================
// Base Error Interface
// ================================================================================

// Error represents a structured error with additional metadata
type Error interface {
	error

	// Kind returns the component family of the error
	Kind() Kind

	// Code returns the specific failure code
	Code() Code

	// Description returns a human-readable description safe to show to callers
	Description() string

	// Unwrap returns the underlying error for error chain support
	Unwrap() error

	// WithCause returns a copy of the error carrying cause
	WithCause(cause error) Error

	// WithMetadata returns a copy of the error carrying an extra metadata entry
	WithMetadata(key string, value interface{}) Error

	// Metadata returns all metadata
	Metadata() map[string]interface{}
}

// ================================================================================
// Base Error Implementation
// ================================================================================

type baseError struct {
	kind        Kind
	code        Code
	description string
	cause       error
	metadata    map[string]interface{}
}

// New creates a new Error
func New(kind Kind, code Code, description string) Error {
	return &baseError{kind: kind, code: code, description: description}
}

// Error implements the error interface. The cause is never part of the message.
func (e *baseError) Error() string {
	return fmt.Sprintf("%s: %s", e.kind, e.description)
}

func (e *baseError) Kind() Kind { return e.kind }

func (e *baseError) Code() Code { return e.code }

func (e *baseError) Description() string { return e.description }

func (e *baseError) Unwrap() error { return e.cause }

// Is reports whether target has the same Kind and Code
func (e *baseError) Is(target error) bool {
	t, ok := target.(*baseError)
	if !ok {
		return false
	}
	return t.kind == e.kind && t.code == e.code
}

func (e *baseError) WithCause(cause error) Error {
	c := e.clone()
	c.cause = cause
	return c
}

func (e *baseError) WithMetadata(key string, value interface{}) Error {
	c := e.clone()
	c.metadata[key] = value
	return c
}

func (e *baseError) Metadata() map[string]interface{} {
	return e.metadata
}

func (e *baseError) clone() *baseError {
	md := make(map[string]interface{}, len(e.metadata)+1)
	for k, v := range e.metadata {
		md[k] = v
	}
	return &baseError{
		kind:        e.kind,
		code:        e.code,
		description: e.description,
		cause:       e.cause,
		metadata:    md,
	}
}

// ================================================================================
// Predefined Errors
// ================================================================================

var (
	ErrParityMismatch       = New(KindCodec, CodeParityMismatch, "encoded value failed the parity check")
	ErrInvalidAlphabetIndex = New(KindCodec, CodeInvalidAlphabetIndex, "alphabet index out of range")
	ErrInvalidSymbol        = New(KindCodec, CodeInvalidSymbol, "encoded value contains a symbol outside the alphabet")

	ErrCipherFailure        = New(KindCrypto, CodeCipherFailure, "cipher operation failed")
	ErrUnsupportedAlgorithm = New(KindCrypto, CodeUnsupportedAlgorithm, "unsupported cipher algorithm")
	ErrInvalidDescriptor    = New(KindCrypto, CodeInvalidDescriptor, "invalid key material descriptor")
	ErrPlaintextTooLarge    = New(KindCrypto, CodePlaintextTooLarge, "plaintext does not fit under the key modulus")
	ErrKeyNotFound          = New(KindCrypto, CodeKeyNotFound, "key material not found")

	ErrMalformed        = New(KindToken, CodeMalformed, "session token is malformed")
	ErrExpired          = New(KindToken, CodeExpired, "session token has expired")
	ErrChecksumMismatch = New(KindToken, CodeChecksumMismatch, "session token failed verification")
	ErrAddressMismatch  = New(KindToken, CodeAddressMismatch, "session token is bound to another address")

	ErrInvalidPayload   = New(KindJWT, CodeInvalidPayload, "token payload is empty")
	ErrTokenTooLarge    = New(KindJWT, CodeTokenTooLarge, "token exceeds the maximum size")
	ErrJWTUnsupported   = New(KindJWT, CodeUnsupportedAlgorithm, "unsupported signing algorithm")
	ErrSignatureFormat  = New(KindJWT, CodeSignatureFormat, "signature has an invalid format")
	ErrSignatureInvalid = New(KindJWT, CodeSignatureInvalid, "token signature verification failed")
	ErrInvalidKey       = New(KindJWT, CodeInvalidKey, "key does not match the signing algorithm")
	ErrTokenNotYetValid = New(KindJWT, CodeNotYetValid, "token is not valid yet")
	ErrTokenExpired     = New(KindJWT, CodeExpired, "token has expired")
	ErrTokenMalformed   = New(KindJWT, CodeMalformed, "token is malformed")
	ErrClaimMismatch    = New(KindJWT, CodeClaimMismatch, "token claims do not match")
	ErrTokenRevoked     = New(KindJWT, CodeRevoked, "token has been revoked")
	ErrDenylistFailure  = New(KindJWT, CodeDenylistFailure, "token deny-list is unavailable")

	ErrInvalidEncoding = New(KindKey, CodeInvalidEncoding, "key encoding is invalid")
	ErrUnsupportedKey  = New(KindKey, CodeUnsupportedKey, "unsupported key type")
	ErrUnknownCurve    = New(KindKey, CodeUnknownCurve, "curve parameters match no known curve")
	ErrInvalidPassword = New(KindKey, CodeInvalidPassword, "key password is missing or incorrect")

	ErrInvalidConfig = New(KindConfig, CodeInvalidConfig, "configuration is invalid")
)

// ================================================================================
// Helpers
// ================================================================================

// Wrap attaches cause to a copy of the given predefined error
func Wrap(cause error, kind Error) Error {
	return kind.WithCause(cause)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// CodeOf returns the Code of the first structured error in err's chain, or "" when there is none
func CodeOf(err error) Code {
	var e Error
	if stderrors.As(err, &e) {
		return e.Code()
	}
	return ""
}

// Cause returns the innermost error of err's chain
func Cause(err error) error {
	for err != nil {
		next := stderrors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
	return nil
}
