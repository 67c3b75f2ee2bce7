package chain

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAddress(t *testing.T) {
	valid := base64.RawURLEncoding.EncodeToString(make([]byte, rawAddressLen))

	assert.True(t, ValidateAddress(valid))
	assert.True(t, ValidateAddress("EQTestRecipientAddressAAAAAAAAAAAAAAAAAAAAAAAAAA"))

	assert.False(t, ValidateAddress(""))
	assert.False(t, ValidateAddress("too-short"))
	assert.False(t, ValidateAddress(valid+"AA"))
	// Right length, not base64url
	assert.False(t, ValidateAddress("!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!"))
	// Standard base64 alphabet with padding chars must be rejected
	assert.False(t, ValidateAddress(valid[:46]+"+/"))
}
