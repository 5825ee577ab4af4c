package utils

// NewPurchaseTokenID returns an opaque purchase token identifier: 16 bytes
// (128 bits) of secure random data, hex-encoded to 32 characters.  The id
// doubles as the credential handed to the buyer, so it must be
// unguessable.
func NewPurchaseTokenID() (string, error) {
	return randomHex(16) // 16 bytes -> 32 hex chars
}
