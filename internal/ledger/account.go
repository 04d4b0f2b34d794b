package ledger

import (
	"crypto/rand"
	"strings"
)

// accountNumberChars excludes nothing: the original scheme is plain
// uppercase alphanumerics, compared case-insensitively.
const accountNumberChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// AccountNumberLength is the fixed length of public account numbers.
const AccountNumberLength = 6

// GenerateAccountNumber returns a random 6-character account number.
// Uniqueness is the store's responsibility; callers retry on collision.
func GenerateAccountNumber() string {
	b := make([]byte, AccountNumberLength)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	out := make([]byte, AccountNumberLength)
	for i, v := range b {
		out[i] = accountNumberChars[int(v)%len(accountNumberChars)]
	}
	return string(out)
}

// NormalizeAccountNumber canonicalizes an account number for comparison.
func NormalizeAccountNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
