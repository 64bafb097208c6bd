package crypt

import (
	"bytes"
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/rand"
	"crypto/rsa"
	"crypto/subtle"
	"math/big"

	"github.com/turtacn/tokenkit/pkg/constants"
	"github.com/turtacn/tokenkit/pkg/errors"
)

// ================================================================================
// AES / DES in CBC mode with PKCS#5 padding
// ================================================================================

func newBlock(alg Algorithm, key []byte) (cipher.Block, error) {
	if alg == DES {
		return des.NewCipher(key)
	}
	return aes.NewCipher(key)
}

func cbcEncrypt(alg Algorithm, key, iv, plaintext []byte) ([]byte, error) {
	block, err := newBlock(alg, key)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCipherFailure)
	}
	padded := pkcs5Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

func cbcDecrypt(alg Algorithm, key, iv, ciphertext []byte) ([]byte, error) {
	block, err := newBlock(alg, key)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCipherFailure)
	}
	bs := block.BlockSize()
	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return nil, errors.ErrCipherFailure
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return pkcs5Unpad(out, bs)
}

func pkcs5Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append(make([]byte, 0, len(data)+n), data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs5Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.ErrCipherFailure
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, errors.ErrCipherFailure
	}
	want := bytes.Repeat([]byte{byte(n)}, n)
	if subtle.ConstantTimeCompare(data[len(data)-n:], want) != 1 {
		return nil, errors.ErrCipherFailure
	}
	return data[:len(data)-n], nil
}

// ================================================================================
// RSA, PKCS#1 v1.5, chunked
// ================================================================================

// rsaEncrypt splits plaintext into k-11 byte chunks and concatenates the k byte blocks.
// UsePrivateKey produces type 1 blocks that the public key opens.
func rsaEncrypt(pair *RSAKeyPair, use KeyUse, plaintext []byte) ([]byte, error) {
	k := pair.Size()
	chunk := k - constants.RSAPKCS1Overhead
	if chunk <= 0 {
		return nil, errors.ErrCipherFailure
	}
	if use == UsePrivateKey && pair.priv == nil {
		return nil, errors.ErrKeyNotFound
	}

	out := make([]byte, 0, (len(plaintext)/chunk+1)*k)
	for offset := 0; offset < len(plaintext); offset += chunk {
		end := min(offset+chunk, len(plaintext))
		var (
			block []byte
			err   error
		)
		if use == UsePrivateKey {
			// hash 0 signs the input as is, which is the raw type 1 block encryption
			block, err = rsa.SignPKCS1v15(nil, pair.priv, crypto.Hash(0), plaintext[offset:end])
		} else {
			block, err = rsa.EncryptPKCS1v15(rand.Reader, pair.pub, plaintext[offset:end])
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCipherFailure)
		}
		out = append(out, block...)
	}
	return out, nil
}

// rsaDecrypt reverses rsaEncrypt block by block. UsePublicKey opens type 1 blocks.
func rsaDecrypt(pair *RSAKeyPair, use KeyUse, ciphertext []byte) ([]byte, error) {
	k := pair.Size()
	if len(ciphertext)%k != 0 {
		return nil, errors.ErrCipherFailure
	}
	if use == UsePrivateKey && pair.priv == nil {
		return nil, errors.ErrKeyNotFound
	}

	out := make([]byte, 0, len(ciphertext))
	for offset := 0; offset < len(ciphertext); offset += k {
		var (
			block []byte
			err   error
		)
		if use == UsePublicKey {
			block, err = rsaPublicOpen(pair.pub, ciphertext[offset:offset+k])
		} else {
			block, err = rsa.DecryptPKCS1v15(nil, pair.priv, ciphertext[offset:offset+k])
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCipherFailure)
		}
		out = append(out, block...)
	}
	return out, nil
}

// rsaPublicOpen applies the public exponent and strips a type 1 block:
// 0x00 0x01 0xff... 0x00 data, with at least 8 bytes of 0xff.
// crypto/rsa only verifies such blocks against a known digest, it never returns them.
func rsaPublicOpen(pub *rsa.PublicKey, block []byte) ([]byte, error) {
	k := pub.Size()
	c := new(big.Int).SetBytes(block)
	if c.Cmp(pub.N) >= 0 {
		return nil, errors.ErrCipherFailure
	}
	m := new(big.Int).Exp(c, big.NewInt(int64(pub.E)), pub.N)
	em := m.FillBytes(make([]byte, k))

	if em[0] != 0x00 || em[1] != 0x01 {
		return nil, errors.ErrCipherFailure
	}
	i := 2
	for i < k && em[i] == 0xff {
		i++
	}
	if i == k || em[i] != 0x00 || i < 10 {
		return nil, errors.ErrCipherFailure
	}
	return em[i+1:], nil
}

// ================================================================================
// Tiny: unpadded modPow
// ================================================================================

// tinyApply raises the big-endian value of input to the selected exponent mod n.
// Input must be numerically below the modulus, and leading zero bytes do not survive
// a round trip since the value is carried as an integer.
func tinyApply(pair *TinyKeyPair, exp *big.Int, input []byte) ([]byte, error) {
	if exp == nil {
		return nil, errors.ErrKeyNotFound
	}
	m := new(big.Int).SetBytes(input)
	if m.Cmp(pair.Modulus) >= 0 {
		return nil, errors.ErrPlaintextTooLarge.WithMetadata("bits", pair.Modulus.BitLen())
	}
	return new(big.Int).Exp(m, exp, pair.Modulus).Bytes(), nil
}

func tinyEncrypt(pair *TinyKeyPair, use KeyUse, plaintext []byte) ([]byte, error) {
	if use == UsePrivateKey {
		return tinyApply(pair, pair.PrivateExp, plaintext)
	}
	return tinyApply(pair, pair.PublicExp, plaintext)
}

func tinyDecrypt(pair *TinyKeyPair, use KeyUse, ciphertext []byte) ([]byte, error) {
	if use == UsePublicKey {
		return tinyApply(pair, pair.PublicExp, ciphertext)
	}
	return tinyApply(pair, pair.PrivateExp, ciphertext)
}
