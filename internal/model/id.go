package model

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// NewID creates a secure random entity ID with a type prefix
func NewID(prefix string) string {
	b := make([]byte, 16)
	_, err := rand.Read(b)
	if err != nil {
		// In a real application, we would handle this error better
		panic(err)
	}
	return fmt.Sprintf("%s%s", prefix, base64.RawURLEncoding.EncodeToString(b))
}
