package jwtoken

import (
	"bytes"
	"encoding/json"
	"maps"
	"math"
	"strings"
	"time"

	"github.com/turtacn/tokenkit/pkg/constants"
	"github.com/turtacn/tokenkit/pkg/errors"
)

// Token is a decoded, not yet verified, compact JWT
type Token struct {
	raw          string
	header       map[string]any
	claims       map[string]any
	signingInput []byte
	signature    []byte
}

// Decode splits token into its three segments. It returns nil when the token does not have
// exactly three segments or a segment fails to decode.
func Decode(token string) *Token {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 {
		return nil
	}
	h, ok := decodeObject(parts[0])
	if !ok {
		return nil
	}
	c, ok := decodeObject(parts[1])
	if !ok {
		return nil
	}
	sig, err := segment.DecodeString(parts[2])
	if err != nil {
		return nil
	}
	return &Token{
		raw:          token,
		header:       h,
		claims:       c,
		signingInput: []byte(parts[0] + "." + parts[1]),
		signature:    sig,
	}
}

func decodeObject(s string) (map[string]any, bool) {
	raw, err := segment.DecodeString(s)
	if err != nil {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil || dec.More() {
		return nil, false
	}
	return m, true
}

// String returns the token as it was decoded
func (t *Token) String() string { return t.raw }

// Header returns a copy of the header
func (t *Token) Header() map[string]any { return maps.Clone(t.header) }

// Claims returns a copy of the claims. Numbers are json.Number values.
func (t *Token) Claims() map[string]any { return maps.Clone(t.claims) }

// Algorithm returns the header's alg
func (t *Token) Algorithm() Algorithm {
	alg, _ := t.header["alg"].(string)
	return Algorithm(alg)
}

// Payload unmarshals the "d" claim into v
func (t *Token) Payload(v any) error {
	d, ok := t.claims[constants.ClaimKeyData]
	if !ok {
		return errors.ErrInvalidPayload
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return errors.Wrap(err, errors.ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(err, errors.ErrInvalidPayload)
	}
	return nil
}

// Verify checks the signature with a signer built from the header's algorithm and key.
// Any failure, including an unusable key, reports false.
func (t *Token) Verify(key any) bool {
	signer, err := NewSigner(t.Algorithm(), key)
	if err != nil {
		return false
	}
	return signer.Verify(t.signingInput, t.signature)
}

// Expired compares the exp claim, which Build writes in seconds, against the current time
// in milliseconds. Every token carrying a seconds-based exp therefore reports expired.
// Existing callers rely on this comparison; use ExpiresBefore for a unit-correct check.
func (t *Token) Expired() bool {
	exp, ok := t.numeric(constants.ClaimKeyExpiresAt)
	if !ok {
		return false
	}
	return exp < float64(time.Now().UnixMilli())
}

// ExpiresBefore reports whether exp lies at or before at, in seconds. Tokens without exp
// never expire.
func (t *Token) ExpiresBefore(at time.Time) bool {
	exp, ok := t.numeric(constants.ClaimKeyExpiresAt)
	return ok && exp <= float64(at.Unix())
}

// NotBeforeAfter reports whether nbf lies after at, in seconds
func (t *Token) NotBeforeAfter(at time.Time) bool {
	nbf, ok := t.numeric(constants.ClaimKeyNotBefore)
	return ok && nbf > float64(at.Unix())
}

// ExpiresAt returns exp as a time
func (t *Token) ExpiresAt() (time.Time, bool) {
	exp, ok := t.numeric(constants.ClaimKeyExpiresAt)
	if !ok {
		return time.Time{}, false
	}
	sec, frac := math.Modf(exp)
	return time.Unix(int64(sec), int64(frac*1e9)), true
}

// ID returns jti, or "" when absent
func (t *Token) ID() string { return t.stringClaim(constants.ClaimKeyJWTID) }

func (t *Token) Issuer() string { return t.stringClaim(constants.ClaimKeyIssuer) }

func (t *Token) Subject() string { return t.stringClaim(constants.ClaimKeySubject) }

// Audience returns aud whether it was encoded as a string or an array
func (t *Token) Audience() []string {
	switch v := t.claims[constants.ClaimKeyAudience].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, a := range v {
			if s, ok := a.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (t *Token) stringClaim(key string) string {
	s, _ := t.claims[key].(string)
	return s
}

// numeric reads a number claim, tolerating a float representation
func (t *Token) numeric(key string) (float64, bool) {
	switch v := t.claims[key].(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case int64:
		return float64(v), true
	}
	return 0, false
}
