package beacon

import "errors"

var (
	// ErrAuthFailed means no known NetworkKey (current or old) produces
	// the beacon's authValue.
	ErrAuthFailed = errors.New("beacon: authentication failed against every known network key")

	errPDUTooShort = errors.New("beacon: PDU too short")
	errWrongType   = errors.New("beacon: not a Secure Network Beacon")
)
