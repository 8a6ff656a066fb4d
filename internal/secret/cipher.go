// Package secret encrypts vendor API keys at rest.
//
// Ciphertexts are base64(IV || AES-256-CBC(PKCS7(plaintext))) with the key
// derived as SHA-256(secret || salt), so rows written by earlier deployments
// remain readable.
package secret

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrEmptyPlaintext is returned when asked to encrypt nothing.
	ErrEmptyPlaintext = errors.New("trying to encrypt nothing")
	// ErrCorrupt indicates the ciphertext cannot be decoded or unpadded.
	ErrCorrupt = errors.New("ciphertext is corrupt")
)

// Cipher encrypts and decrypts strings with a fixed derived key.
type Cipher struct {
	key []byte
}

// NewCipher derives the AES-256 key from secret and salt.
func NewCipher(secret, salt string) *Cipher {
	sum := sha256.Sum256([]byte(secret + salt))
	return &Cipher{key: sum[:]}
}

// Encrypt returns the base64 encoding of IV || ciphertext.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPlaintext
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("init aes: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("error generating random bytes: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, aes.BlockSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrCorrupt
	}
	if len(raw) < 2*aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return "", ErrCorrupt
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("init aes: %w", err)
	}

	iv, data := raw[:aes.BlockSize], raw[aes.BlockSize:]
	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, data)

	unpadded, err := pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(unpadded) {
		return "", ErrCorrupt
	}
	return string(unpadded), nil
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, ErrCorrupt
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize {
		return nil, ErrCorrupt
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, ErrCorrupt
		}
	}
	return b[:len(b)-n], nil
}

// Mask returns the first four characters of key followed by eight asterisks.
func Mask(key string) string {
	if key == "" {
		return ""
	}
	r := []rune(key)
	if len(r) > 4 {
		r = r[:4]
	}
	return string(r) + "********"
}
