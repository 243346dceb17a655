package http

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidTenantKey(t *testing.T) {
	assert.True(t, ValidTenantKey("acme"))
	assert.True(t, ValidTenantKey("viajes-bumeran"))
	assert.True(t, ValidTenantKey("t1"))

	assert.False(t, ValidTenantKey(""))
	assert.False(t, ValidTenantKey("-leading-hyphen"))
	assert.False(t, ValidTenantKey("Uppercase"))
	assert.False(t, ValidTenantKey("has space"))
	assert.False(t, ValidTenantKey("path/../traversal"))
	assert.False(t, ValidTenantKey(strings.Repeat("a", MaxTenantKeyLength+1)))
}

func TestValidPhoneNumber(t *testing.T) {
	assert.True(t, ValidPhoneNumber("5215550001"))
	assert.True(t, ValidPhoneNumber("123456"))

	assert.False(t, ValidPhoneNumber(""))
	assert.False(t, ValidPhoneNumber("12345"))
	assert.False(t, ValidPhoneNumber("+5215550001"))
	assert.False(t, ValidPhoneNumber("phone"))
}

func TestValidConfigKey(t *testing.T) {
	assert.True(t, ValidConfigKey("master_prompt"))
	assert.True(t, ValidConfigKey("Key123"))

	assert.False(t, ValidConfigKey(""))
	assert.False(t, ValidConfigKey("has-hyphen"))
	assert.False(t, ValidConfigKey(strings.Repeat("k", MaxConfigKeyLength+1)))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hola", SanitizeString("ho\x00la"))
	assert.Equal(t, "¡Hola!", SanitizeString("¡Hola!"))
	assert.Equal(t, "ab", SanitizeString("a\xffb"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", TruncateString("abc", 10))
	assert.Equal(t, "ab", TruncateString("abcdef", 2))
	assert.Equal(t, "", TruncateString("", 5))
}
