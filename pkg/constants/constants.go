// Package constants defines system-wide constants for tokenkit.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Cipher Algorithm Constants
// ================================================================================

const (
	// AlgorithmAES is the AES/CBC/PKCS5 symmetric cipher
	AlgorithmAES = "AES"

	// AlgorithmDES is the DES/CBC/PKCS5 symmetric cipher
	AlgorithmDES = "DES"

	// AlgorithmRSA is RSA with PKCS#1 v1.5 padding and chunking
	AlgorithmRSA = "RSA"

	// AlgorithmTiny is the unpadded modPow scheme
	AlgorithmTiny = "TINY"
)

const (
	// DescriptorSeparator separates the fields of a key-material descriptor
	DescriptorSeparator = ":"

	// SymmetricKeySize is the length of the digested AES key and IV
	SymmetricKeySize = 16

	// DESKeySize is the length DES truncates the digested key and IV to
	DESKeySize = 8

	// DefaultRSABits is the modulus size used when generating default RSA material
	DefaultRSABits = 1024

	// DefaultTinyBits is the modulus size used when generating Tiny key pairs
	DefaultTinyBits = 512

	// RSAPKCS1Overhead is the number of bytes PKCS#1 v1.5 padding consumes per block
	RSAPKCS1Overhead = 11
)

// ================================================================================
// Environment Constants
// ================================================================================

const (
	// EnvPrefix is the prefix of all environment variables read by tokenkit
	EnvPrefix = "TOKENKIT"

	// EnvKeyFileSuffix is appended to "TOKENKIT_{ALG}" to name the key file variable
	EnvKeyFileSuffix = "_KEY_FILE"
)

// ================================================================================
// Opaque Session Token Constants
// ================================================================================

const (
	// SessionTokenSeparator separates the username from the packed numbers
	SessionTokenSeparator = "/"

	// SessionTokenMinNumbers is the number of fixed integers packed in a session token
	SessionTokenMinNumbers = 6

	// SessionTokenDefaultTTL is the default lifetime of a session token
	SessionTokenDefaultTTL = 30 * time.Minute
)

// ================================================================================
// JWT Constants
// ================================================================================

const (
	// JWTType is the fixed "typ" header value
	JWTType = "JWT"

	// JWTVersion is the value of the private "v" claim
	JWTVersion = 1

	// JWTMaxSize is the maximum size in bytes of a serialized token
	JWTMaxSize = 1024

	// JWTDefaultTTL is the default lifetime applied by the builder
	JWTDefaultTTL = 3600 * time.Second

	// JWTDefaultSecretSize is the size of the lazily generated default HMAC secret
	JWTDefaultSecretSize = 32
)

// ================================================================================
// JWT Claim Keys
// ================================================================================

const (
	// ClaimKeyData is the private "d" claim carrying the user payload
	ClaimKeyData = "d"

	// ClaimKeyIssuer is the standard "iss" claim
	ClaimKeyIssuer = "iss"

	// ClaimKeySubject is the standard "sub" claim
	ClaimKeySubject = "sub"

	// ClaimKeyAudience is the standard "aud" claim
	ClaimKeyAudience = "aud"

	// ClaimKeyExpiresAt is the standard "exp" claim
	ClaimKeyExpiresAt = "exp"

	// ClaimKeyNotBefore is the standard "nbf" claim
	ClaimKeyNotBefore = "nbf"

	// ClaimKeyJWTID is the standard "jti" claim
	ClaimKeyJWTID = "jti"
)

// ================================================================================
// Component Names
// ================================================================================

const (
	ComponentCrypt     = "crypt"
	ComponentUserToken = "usertoken"
	ComponentJWT       = "jwtoken"
	ComponentKeySource = "keysource"
)

// ================================================================================
// Operation Results
// ================================================================================

const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultRejected = "rejected"
)

// ================================================================================
// Logging Constants
// ================================================================================

// LogLevel represents the severity level of log messages
type LogLevel string

const (
	// LogLevelDebug is the most verbose logging level
	LogLevelDebug LogLevel = "debug"

	// LogLevelInfo is the standard informational logging level
	LogLevelInfo LogLevel = "info"

	// LogLevelWarn indicates potential issues
	LogLevelWarn LogLevel = "warn"

	// LogLevelError indicates errors that need attention
	LogLevelError LogLevel = "error"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey represents keys used in context.Context
type ContextKey string

const (
	// ContextKeyInvocationID carries the id of one tokenctl invocation
	ContextKeyInvocationID ContextKey = "invocation_id"
)
