package crypto

import "crypto/rand"

// RandomBytes returns n cryptographically random bytes, used for the
// Provisioner/Device Random values (spec.md §4.H) and for generating fresh
// network/application keys.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
