package referral

import (
	"crypto/rand"
	"fmt"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const codeSuffixLen = 6

// GenerateCode produces a referral code: the configured prefix followed by
// six random uppercase alphanumerics. Uniqueness is enforced by the store's
// index; callers retry on collision.
func GenerateCode(prefix string) (string, error) {
	buf := make([]byte, codeSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate referral code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return prefix + string(buf), nil
}
