package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// RandomHex reads n bytes from crypto/rand and hex encodes them (2n characters).
func RandomHex(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("random byte count must be positive, got %d", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ReferenceSuffix is appended to generated batch references so two runs in the same second differ.
func ReferenceSuffix() (string, error) {
	s, err := RandomHex(2)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(s), nil
}
