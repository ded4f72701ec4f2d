package utils

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	fieldKeySize   = 32
	fieldNonceSize = 24
)

// ErrDecrypt is returned when a ciphertext cannot be opened with the configured key.
var ErrDecrypt = errors.New("failed to decrypt field")

// FieldCipher encrypts sensitive columns (TINs, bank numbers) with NaCl secretbox.
// Ciphertexts are base64(nonce || sealed).
type FieldCipher struct {
	key [fieldKeySize]byte
}

// NewFieldCipher parses a 32-byte key given as 64 hex characters or standard base64.
func NewFieldCipher(encodedKey string) (*FieldCipher, error) {
	encodedKey = strings.TrimSpace(encodedKey)
	var raw []byte
	var err error
	if len(encodedKey) == hex.EncodedLen(fieldKeySize) {
		raw, err = hex.DecodeString(encodedKey)
	} else {
		raw, err = base64.StdEncoding.DecodeString(encodedKey)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid field encryption key encoding: %w", err)
	}
	if len(raw) != fieldKeySize {
		return nil, fmt.Errorf("field encryption key must be %d bytes, got %d", fieldKeySize, len(raw))
	}
	c := &FieldCipher{}
	copy(c.key[:], raw)
	return c, nil
}

// GenerateFieldKey returns a random key in the hex form NewFieldCipher accepts.
func GenerateFieldKey() (string, error) {
	key, err := RandomHex(fieldKeySize)
	if err != nil {
		return "", fmt.Errorf("failed to generate field key: %w", err)
	}
	return key, nil
}

// Encrypt seals plaintext with a fresh random nonce.
func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	var nonce [fieldNonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &c.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func (c *FieldCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil || len(raw) < fieldNonceSize+secretbox.Overhead {
		return "", ErrDecrypt
	}
	var nonce [fieldNonceSize]byte
	copy(nonce[:], raw[:fieldNonceSize])
	opened, ok := secretbox.Open(nil, raw[fieldNonceSize:], &nonce, &c.key)
	if !ok {
		return "", ErrDecrypt
	}
	return string(opened), nil
}

// LastDigits returns the last n digits of s, ignoring separators.
func LastDigits(s string, n int) string {
	digits := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) <= n {
		return string(digits)
	}
	return string(digits[len(digits)-n:])
}
