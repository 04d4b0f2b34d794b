// Package validation provides input validation helpers and middleware for the API.
package validation

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxStringLength is the maximum length for free-text fields.
const MaxStringLength = 1000

var (
	// accountNumberRegex validates 6-character alphanumeric account numbers.
	accountNumberRegex = regexp.MustCompile(`^[A-Za-z0-9]{6}$`)
	// amountRegex validates positive decimal amounts like "12" or "12.34".
	amountRegex = regexp.MustCompile(`^[0-9]+(\.[0-9]{1,2})?$`)
)

// RequestSizeMiddleware limits request body size.
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidAccountNumber checks if a string is a well-formed account number.
func IsValidAccountNumber(s string) bool {
	return accountNumberRegex.MatchString(strings.TrimSpace(s))
}

// IsValidAmount checks if a string is a well-formed decimal amount.
// It says nothing about the sign requirement beyond non-negative syntax;
// the transfer validator rejects zero.
func IsValidAmount(s string) bool {
	return amountRegex.MatchString(strings.TrimSpace(s))
}

// SanitizeString trims whitespace, strips null bytes, and limits length.
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	s = strings.ReplaceAll(s, "\x00", "")
	return s
}
