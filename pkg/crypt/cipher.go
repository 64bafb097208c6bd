package crypt

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/turtacn/tokenkit/pkg/constants"
	"github.com/turtacn/tokenkit/pkg/errors"
	"github.com/turtacn/tokenkit/pkg/logger"
	"github.com/turtacn/tokenkit/pkg/metrics"
)

// Cipher encrypts and decrypts with one algorithm. A Cipher created by a Provider follows
// Apply: every call loads the current snapshot once and uses it for the whole operation.
type Cipher struct {
	alg      Algorithm
	snapshot func() (*Context, error)
	log      logger.Logger
	rec      metrics.Recorder
}

// NewCipher binds a cipher to fixed key material
func NewCipher(c *Context) *Cipher {
	return &Cipher{
		alg:      c.Algorithm(),
		snapshot: func() (*Context, error) { return c, nil },
		log:      logger.NewNoopLogger(),
		rec:      metrics.NewNoopRecorder(),
	}
}

// Algorithm returns the cipher's algorithm
func (c *Cipher) Algorithm() Algorithm { return c.alg }

// Encrypt encrypts with the public key for asymmetric algorithms
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	return c.EncryptWith(plaintext, UsePublicKey)
}

// Decrypt decrypts with the private key for asymmetric algorithms
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	return c.DecryptWith(ciphertext, UsePrivateKey)
}

// EncryptWith encrypts with the selected half of an asymmetric key
func (c *Cipher) EncryptWith(plaintext []byte, use KeyUse) (out []byte, err error) {
	defer c.observe("encrypt", time.Now(), &err)

	kc, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	switch c.alg {
	case AES, DES:
		return cbcEncrypt(c.alg, kc.key, kc.iv, plaintext)
	case RSA:
		return rsaEncrypt(kc.rsa, use, plaintext)
	case TINY:
		return tinyEncrypt(kc.tiny, use, plaintext)
	}
	return nil, errors.ErrUnsupportedAlgorithm
}

// DecryptWith decrypts with the selected half of an asymmetric key
func (c *Cipher) DecryptWith(ciphertext []byte, use KeyUse) (out []byte, err error) {
	defer c.observe("decrypt", time.Now(), &err)

	kc, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	switch c.alg {
	case AES, DES:
		return cbcDecrypt(c.alg, kc.key, kc.iv, ciphertext)
	case RSA:
		return rsaDecrypt(kc.rsa, use, ciphertext)
	case TINY:
		return tinyDecrypt(kc.tiny, use, ciphertext)
	}
	return nil, errors.ErrUnsupportedAlgorithm
}

// EncryptString encrypts s and returns standard base64
func (c *Cipher) EncryptString(s string) (string, error) {
	out, err := c.Encrypt([]byte(s))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptString reverses EncryptString. Non-canonical base64 is rejected.
func (c *Cipher) DecryptString(s string) (string, error) {
	raw, err := base64.StdEncoding.Strict().DecodeString(s)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCipherFailure)
	}
	out, err := c.Decrypt(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (c *Cipher) observe(operation string, start time.Time, err *error) {
	result := constants.ResultSuccess
	if *err != nil {
		result = constants.ResultFailure
		// the reason stays in the log; callers only see the generic error
		c.log.Debug(context.Background(), "cipher operation failed",
			logger.String("algorithm", string(c.alg)),
			logger.String("operation", operation),
			logger.Error(errors.Cause(*err)),
		)
	}
	c.rec.ObserveOperation(constants.ComponentCrypt, operation, result, time.Since(start))
}
