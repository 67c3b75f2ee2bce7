package chain

import "encoding/base64"

// rawAddressLen is the decoded length of a user-friendly account address:
// one tag byte, one workchain byte, a 32-byte account id and a 2-byte CRC.
const rawAddressLen = 36

// ValidateAddress reports whether addr is a syntactically valid account
// address for the target chain. This is a form check only; it does not prove
// the account exists.
func ValidateAddress(addr string) bool {
	if len(addr) != 48 {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(addr)
	if err != nil {
		return false
	}
	return len(raw) == rawAddressLen
}
