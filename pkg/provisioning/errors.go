package provisioning

import "errors"

// Errors returned by FSM.HandleInboundPDU and the crypto helpers, mapped
// to the Provisioning error kinds of spec.md §7.
var (
	ErrInvalidState         = errors.New("provisioning: pdu not valid in current state")
	ErrMalformedPDU         = errors.New("provisioning: malformed pdu")
	ErrUnsupportedAlgorithm = errors.New("provisioning: no mutually supported algorithm")
	ErrConfirmationFailed   = errors.New("provisioning: device confirmation does not match")
	ErrKeyGenerationFailed  = errors.New("provisioning: key generation failed")

	errUnknownOpcode = errors.New("provisioning: unknown pdu opcode")
)

// ProvisioningError carries a peer-reported Failed PDU's error code.
type ProvisioningError struct {
	Code ErrorCode
}

func (e *ProvisioningError) Error() string {
	return "provisioning: peer reported failure: " + e.Code.String()
}
