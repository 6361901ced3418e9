// Package codec implements the fixed-key AES-256-CBC message envelope used
// on the control channel's text frames. The key and IV are part of the wire
// contract, not secrets: this package intentionally does not derive them
// from any runtime input and must never be changed to use a random IV or an
// AEAD cipher, as that would break compatibility with existing clients.
package codec

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
)

const keySeed = "nexremote_encryption_key_32chars"

// key is the fixed 32-byte AES-256 key: the seed string right-padded with
// NUL bytes to 32 bytes. The seed is already exactly 32 ASCII bytes, so the
// padding is a no-op today, but the derivation is written generally in case
// the seed constant ever changes.
var key = deriveKey(keySeed)

// iv is the fixed all-zero 16-byte initialization vector.
var iv = make([]byte, aes.BlockSize)

func deriveKey(seed string) []byte {
	k := make([]byte, 32)
	copy(k, []byte(seed))
	return k
}

// Encrypt pads plaintext with PKCS#7, encrypts it with AES-256-CBC under the
// fixed key and IV, and returns the result as base64 text.
func Encrypt(plaintext []byte) ([]byte, error) {
	padded := pkcs7Pad(plaintext, aes.BlockSize)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("codec: new cipher: %w", err)
	}

	ciphertext := make([]byte, len(padded))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, padded)

	out := make([]byte, base64.StdEncoding.EncodedLen(len(ciphertext)))
	base64.StdEncoding.Encode(out, ciphertext)
	return out, nil
}

// Decrypt reverses Encrypt: base64-decodes, AES-256-CBC decrypts under the
// fixed key and IV, then strips PKCS#7 padding.
func Decrypt(data []byte) ([]byte, error) {
	ciphertext := make([]byte, base64.StdEncoding.DecodedLen(len(data)))
	n, err := base64.StdEncoding.Decode(ciphertext, data)
	if err != nil {
		return nil, fmt.Errorf("codec: base64 decode: %w", err)
	}
	ciphertext = ciphertext[:n]

	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("codec: ciphertext length %d is not a multiple of block size", len(ciphertext))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("codec: new cipher: %w", err)
	}

	padded := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(padded, ciphertext)

	return pkcs7Unpad(padded)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(append([]byte{}, data...), padding...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	n := len(data)
	if n == 0 {
		return nil, fmt.Errorf("codec: cannot unpad empty data")
	}
	padLen := int(data[n-1])
	if padLen == 0 || padLen > aes.BlockSize || padLen > n {
		return nil, fmt.Errorf("codec: invalid PKCS#7 padding length %d", padLen)
	}
	for _, b := range data[n-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("codec: invalid PKCS#7 padding bytes")
		}
	}
	return data[:n-padLen], nil
}
