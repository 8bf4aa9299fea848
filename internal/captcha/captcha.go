// Package captcha generates and verifies the image challenges shown on the
// login and register forms.
package captcha

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Alphabet excludes glyphs that are easy to confuse (0/O, 1/I/L).
const Alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// DefaultLength is the number of characters in a challenge
const DefaultLength = 6

// Purpose scopes a challenge to the form that requested it
type Purpose string

const (
	PurposeLogin    Purpose = "login"
	PurposeRegister Purpose = "register"
)

// GenerateText returns n random characters from Alphabet.
// A non-positive n falls back to DefaultLength.
func GenerateText(n int) string {
	if n <= 0 {
		n = DefaultLength
	}

	size := big.NewInt(int64(len(Alphabet)))
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, size)
		if err != nil {
			// crypto/rand never fails on supported platforms
			panic(err)
		}
		sb.WriteByte(Alphabet[idx.Int64()])
	}
	return sb.String()
}

// Validate compares the user's answer with the stored challenge,
// ignoring case and surrounding whitespace. Empty values never match.
func Validate(input, stored string) bool {
	input = strings.ToUpper(strings.TrimSpace(input))
	stored = strings.ToUpper(strings.TrimSpace(stored))
	if input == "" || stored == "" {
		return false
	}
	return input == stored
}
