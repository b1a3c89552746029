package invites

import (
	"crypto/rand"
	"fmt"
)

// CodeAlphabet is the 32-symbol set invite codes are drawn from:
// digits and uppercase letters minus 0, O, 1 and I, so a code survives
// being typed from a screenshot.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the fixed invite code length. Eight symbols from a
// 32-symbol alphabet gives 40 bits of entropy; the store still treats
// the code column as unique and retries generation on a conflict.
const CodeLength = 8

// GenerateCode returns a fresh random invite code.
func GenerateCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	for i, b := range buf {
		// 256 is a multiple of the alphabet size, so modulo is unbiased.
		buf[i] = CodeAlphabet[int(b)%len(CodeAlphabet)]
	}
	return string(buf), nil
}

// ValidCodeFormat reports whether s could be an invite code. Used to
// short-circuit store lookups on garbage /start payloads.
func ValidCodeFormat(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		found := false
		for j := 0; j < len(CodeAlphabet); j++ {
			if s[i] == CodeAlphabet[j] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
