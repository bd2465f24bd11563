package uppertransport

import "errors"

var (
	// ErrNoMatchingKey is returned when no AppKey (or DevKey) in the
	// attempted set successfully opens the access payload.
	ErrNoMatchingKey = errors.New("uppertransport: no key decrypts access payload")

	errInvalidNonceType = errors.New("uppertransport: invalid nonce type")
	errPayloadTooShort  = errors.New("uppertransport: access payload too short")
)
