package crypto

import "errors"

// ErrMICMismatch is returned when a CCM MIC fails to verify: a malformed
// PDU, a key mismatch, or tampering. Per spec.md's error-handling policy
// this must be logged at Debug, never Info, and must never include key or
// plaintext material.
var ErrMICMismatch = errors.New("crypto: MIC verification failed")
