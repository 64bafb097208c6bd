package jwtoken

import (
	"sync/atomic"

	"github.com/turtacn/tokenkit/pkg/codec"
	"github.com/turtacn/tokenkit/pkg/constants"
)

type signerBox struct{ Signer }

var defaultSigner atomic.Pointer[signerBox]

// DefaultSigner returns the process-wide signer used by builders without one. It is created
// on first use as HS256 over a random secret, so tokens it signs only verify in this process.
func DefaultSigner() Signer {
	if b := defaultSigner.Load(); b != nil {
		return b.Signer
	}
	secret, err := codec.RandomBytes(constants.JWTDefaultSecretSize)
	if err != nil {
		panic(err)
	}
	s, err := NewMacSigner(HS256, secret)
	if err != nil {
		panic(err)
	}
	if defaultSigner.CompareAndSwap(nil, &signerBox{s}) {
		return s
	}
	if b := defaultSigner.Load(); b != nil {
		return b.Signer
	}
	return s
}

// SetDefaultSigner replaces the process-wide signer. nil restores lazy creation.
func SetDefaultSigner(s Signer) {
	if s == nil {
		defaultSigner.Store(nil)
		return
	}
	defaultSigner.Store(&signerBox{s})
}
