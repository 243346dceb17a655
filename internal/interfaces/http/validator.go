package http

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Input validation constants
const (
	MaxTenantKeyLength = 64
	MaxConfigKeyLength = 64
	MaxPromptLength    = 50000 // Master prompts can be long
	MaxMessageLength   = 4096  // WhatsApp text body limit
)

var (
	tenantKeyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	phonePattern     = regexp.MustCompile(`^[0-9]{6,20}$`)
	configKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// ValidTenantKey checks if a tenant key is safe (lowercase alphanumeric + hyphen,
// e.g. "viajes-bumeran"); tenant keys end up in secret refs and URLs.
func ValidTenantKey(s string) bool {
	if s == "" || len(s) > MaxTenantKeyLength {
		return false
	}
	return tenantKeyPattern.MatchString(s)
}

// ValidPhoneNumber checks a raw WhatsApp phone number or phone-number ID.
func ValidPhoneNumber(s string) bool {
	return phonePattern.MatchString(s)
}

// ValidConfigKey checks if a config key is safe
func ValidConfigKey(s string) bool {
	if s == "" || len(s) > MaxConfigKeyLength {
		return false
	}
	return configKeyPattern.MatchString(s)
}

// SanitizeString removes null bytes and invalid UTF-8
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r != utf8.RuneError {
				v = append(v, r)
			}
		}
		s = string(v)
	}
	return s
}

// TruncateString safely truncates a string to max length
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
