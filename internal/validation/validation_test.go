package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidAccountNumber(t *testing.T) {
	valid := []string{"ABC123", "abc123", "000000", "ZZZZZZ", " AB12CD "}
	for _, s := range valid {
		assert.True(t, IsValidAccountNumber(s), "expected valid: %q", s)
	}

	invalid := []string{"", "ABC12", "ABC1234", "ABC-12", "ABC 12", "ÅBC123"}
	for _, s := range invalid {
		assert.False(t, IsValidAccountNumber(s), "expected invalid: %q", s)
	}
}

func TestIsValidAmount(t *testing.T) {
	valid := []string{"1", "0", "12.3", "12.34", "1000.00", " 5.00 "}
	for _, s := range valid {
		assert.True(t, IsValidAmount(s), "expected valid: %q", s)
	}

	invalid := []string{"", "-1", "1.234", ".5", "1,00", "abc", "1e3"}
	for _, s := range invalid {
		assert.False(t, IsValidAmount(s), "expected invalid: %q", s)
	}
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("  hello  ", 100))
	assert.Equal(t, "ab", SanitizeString("abcd", 2))
	assert.Equal(t, "ab", SanitizeString("a\x00b", 100))
	assert.Equal(t, strings.Repeat("x", 10), SanitizeString(strings.Repeat("x", 50), 10))
}
