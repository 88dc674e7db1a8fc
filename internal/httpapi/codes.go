package httpapi

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"
)

// Join codes skip visually ambiguous characters (0/O, 1/I/L) so they
// survive being read off someone else's screen.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const DefaultCodeLength = 6

// Attempts against the hub before falling back to a timestamp-derived
// code, which cannot collide with a concurrently generated one.
const maxCodeAttempts = 10

func GenerateCode(length int) (string, error) {
	code := make([]byte, length)
	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[num.Int64()]
	}
	return string(code), nil
}

// timestampCode encodes the current nanosecond clock in the code
// alphabet, least significant digit first.
func timestampCode(length int) string {
	ts := time.Now().UnixNano()
	code := make([]byte, length)
	for i := range code {
		code[i] = codeAlphabet[ts%int64(len(codeAlphabet))]
		ts /= int64(len(codeAlphabet))
	}
	return string(code)
}

// NormalizeCode maps whatever a player typed onto the canonical form.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
