package provisioning

import "fmt"

// Opcode identifies a Provisioning PDU type. Every PDU on the wire
// carries its opcode as the first octet (spec.md §4.H).
type Opcode uint8

const (
	OpcodeInvite         Opcode = 0x00
	OpcodeCapabilities   Opcode = 0x01
	OpcodeStart          Opcode = 0x02
	OpcodePublicKey      Opcode = 0x03
	OpcodeInputComplete  Opcode = 0x04
	OpcodeConfirmation   Opcode = 0x05
	OpcodeRandom         Opcode = 0x06
	OpcodeData           Opcode = 0x07
	OpcodeComplete       Opcode = 0x08
	OpcodeFailed         Opcode = 0x09
)

// ErrorCode is the single octet carried by a Failed PDU.
type ErrorCode uint8

const (
	ErrCodeProhibited             ErrorCode = 0x00
	ErrCodeInvalidPDU             ErrorCode = 0x01
	ErrCodeInvalidFormat          ErrorCode = 0x02
	ErrCodeUnexpectedPDU          ErrorCode = 0x03
	ErrCodeConfirmationFailed     ErrorCode = 0x04
	ErrCodeOutOfResources         ErrorCode = 0x05
	ErrCodeDecryptionFailed       ErrorCode = 0x06
	ErrCodeUnexpectedError        ErrorCode = 0x07
	ErrCodeCannotAssignAddresses  ErrorCode = 0x08
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeProhibited:
		return "prohibited"
	case ErrCodeInvalidPDU:
		return "invalid pdu"
	case ErrCodeInvalidFormat:
		return "invalid format"
	case ErrCodeUnexpectedPDU:
		return "unexpected pdu"
	case ErrCodeConfirmationFailed:
		return "confirmation failed"
	case ErrCodeOutOfResources:
		return "out of resources"
	case ErrCodeDecryptionFailed:
		return "decryption failed"
	case ErrCodeUnexpectedError:
		return "unexpected error"
	case ErrCodeCannotAssignAddresses:
		return "cannot assign addresses"
	default:
		return fmt.Sprintf("unknown (%d)", uint8(c))
	}
}

// AlgorithmFIPSP256 is the only algorithm this package negotiates
// (spec.md §4.H step 3).
const AlgorithmFIPSP256 uint8 = 0x00

// Public key exchange methods (Start PDU field 2).
const (
	PublicKeyNoOOB uint8 = 0x00
	PublicKeyOOB   uint8 = 0x01
)

// Authentication methods (Start PDU field 3).
const (
	AuthMethodNoOOB     uint8 = 0x00
	AuthMethodStaticOOB uint8 = 0x01
	AuthMethodOutputOOB uint8 = 0x02
	AuthMethodInputOOB  uint8 = 0x03
)

// InviteMessage requests the device begin provisioning.
type InviteMessage struct {
	AttentionDuration uint8
}

func (m InviteMessage) Encode() []byte { return []byte{byte(OpcodeInvite), m.AttentionDuration} }

func decodeInvite(payload []byte) (InviteMessage, error) {
	if len(payload) != 1 {
		return InviteMessage{}, ErrMalformedPDU
	}
	return InviteMessage{AttentionDuration: payload[0]}, nil
}

// CapabilitiesMessage reports the device's provisioning capabilities.
type CapabilitiesMessage struct {
	NumElements     uint8
	Algorithms      uint16
	PublicKeyType   uint8
	StaticOOBType   uint8
	OutputOOBSize   uint8
	OutputOOBAction uint16
	InputOOBSize    uint8
	InputOOBAction  uint16
}

func (m CapabilitiesMessage) Encode() []byte {
	out := make([]byte, 0, 12)
	out = append(out, byte(OpcodeCapabilities), m.NumElements)
	out = append(out, byte(m.Algorithms>>8), byte(m.Algorithms))
	out = append(out, m.PublicKeyType, m.StaticOOBType, m.OutputOOBSize)
	out = append(out, byte(m.OutputOOBAction>>8), byte(m.OutputOOBAction))
	out = append(out, m.InputOOBSize)
	out = append(out, byte(m.InputOOBAction>>8), byte(m.InputOOBAction))
	return out
}

func decodeCapabilities(payload []byte) (CapabilitiesMessage, error) {
	if len(payload) != 11 {
		return CapabilitiesMessage{}, ErrMalformedPDU
	}
	return CapabilitiesMessage{
		NumElements:     payload[0],
		Algorithms:      uint16(payload[1])<<8 | uint16(payload[2]),
		PublicKeyType:   payload[3],
		StaticOOBType:   payload[4],
		OutputOOBSize:   payload[5],
		OutputOOBAction: uint16(payload[6])<<8 | uint16(payload[7]),
		InputOOBSize:    payload[8],
		InputOOBAction:  uint16(payload[9])<<8 | uint16(payload[10]),
	}, nil
}

// StartMessage selects the algorithm and exchange methods for the rest
// of the session.
type StartMessage struct {
	Algorithm       uint8
	PublicKeyMethod uint8
	AuthMethod      uint8
	AuthAction      uint8
	AuthSize        uint8
}

func (m StartMessage) Encode() []byte {
	return []byte{byte(OpcodeStart), m.Algorithm, m.PublicKeyMethod, m.AuthMethod, m.AuthAction, m.AuthSize}
}

func decodeStart(payload []byte) (StartMessage, error) {
	if len(payload) != 5 {
		return StartMessage{}, ErrMalformedPDU
	}
	return StartMessage{
		Algorithm:       payload[0],
		PublicKeyMethod: payload[1],
		AuthMethod:      payload[2],
		AuthAction:      payload[3],
		AuthSize:        payload[4],
	}, nil
}

// PublicKeyMessage carries a raw P-256 public key as X||Y (64 bytes).
type PublicKeyMessage struct {
	XY []byte
}

func (m PublicKeyMessage) Encode() []byte {
	return append([]byte{byte(OpcodePublicKey)}, m.XY...)
}

func decodePublicKey(payload []byte) (PublicKeyMessage, error) {
	if len(payload) != 64 {
		return PublicKeyMessage{}, ErrMalformedPDU
	}
	return PublicKeyMessage{XY: append([]byte(nil), payload...)}, nil
}

// ConfirmationMessage carries a 16-byte AES-CMAC confirmation value.
type ConfirmationMessage struct {
	Value []byte
}

func (m ConfirmationMessage) Encode() []byte {
	return append([]byte{byte(OpcodeConfirmation)}, m.Value...)
}

func decodeConfirmation(payload []byte) (ConfirmationMessage, error) {
	if len(payload) != 16 {
		return ConfirmationMessage{}, ErrMalformedPDU
	}
	return ConfirmationMessage{Value: append([]byte(nil), payload...)}, nil
}

// RandomMessage carries a 16-byte random nonce.
type RandomMessage struct {
	Value []byte
}

func (m RandomMessage) Encode() []byte {
	return append([]byte{byte(OpcodeRandom)}, m.Value...)
}

func decodeRandom(payload []byte) (RandomMessage, error) {
	if len(payload) != 16 {
		return RandomMessage{}, ErrMalformedPDU
	}
	return RandomMessage{Value: append([]byte(nil), payload...)}, nil
}

// DataMessage carries the CCM-8 encrypted provisioning data (25 bytes of
// plaintext, 8-byte MIC).
type DataMessage struct {
	EncryptedDataAndMIC []byte // 33 bytes
}

func (m DataMessage) Encode() []byte {
	return append([]byte{byte(OpcodeData)}, m.EncryptedDataAndMIC...)
}

func decodeData(payload []byte) (DataMessage, error) {
	if len(payload) != 33 {
		return DataMessage{}, ErrMalformedPDU
	}
	return DataMessage{EncryptedDataAndMIC: append([]byte(nil), payload...)}, nil
}

// CompleteMessage signals the device accepted provisioning data.
type CompleteMessage struct{}

func (m CompleteMessage) Encode() []byte { return []byte{byte(OpcodeComplete)} }

// FailedMessage signals the peer aborted the session.
type FailedMessage struct {
	Code ErrorCode
}

func (m FailedMessage) Encode() []byte { return []byte{byte(OpcodeFailed), byte(m.Code)} }

func decodeFailed(payload []byte) (FailedMessage, error) {
	if len(payload) != 1 {
		return FailedMessage{}, ErrMalformedPDU
	}
	return FailedMessage{Code: ErrorCode(payload[0])}, nil
}

// DecodePDU splits a raw Provisioning PDU into its opcode and decoded
// message value. The returned value's concrete type matches the opcode
// (InviteMessage, CapabilitiesMessage, ...).
func DecodePDU(raw []byte) (Opcode, interface{}, error) {
	if len(raw) < 1 {
		return 0, nil, ErrMalformedPDU
	}
	opcode := Opcode(raw[0])
	payload := raw[1:]

	switch opcode {
	case OpcodeInvite:
		m, err := decodeInvite(payload)
		return opcode, m, err
	case OpcodeCapabilities:
		m, err := decodeCapabilities(payload)
		return opcode, m, err
	case OpcodeStart:
		m, err := decodeStart(payload)
		return opcode, m, err
	case OpcodePublicKey:
		m, err := decodePublicKey(payload)
		return opcode, m, err
	case OpcodeConfirmation:
		m, err := decodeConfirmation(payload)
		return opcode, m, err
	case OpcodeRandom:
		m, err := decodeRandom(payload)
		return opcode, m, err
	case OpcodeData:
		m, err := decodeData(payload)
		return opcode, m, err
	case OpcodeComplete:
		if len(payload) != 0 {
			return opcode, nil, ErrMalformedPDU
		}
		return opcode, CompleteMessage{}, nil
	case OpcodeFailed:
		m, err := decodeFailed(payload)
		return opcode, m, err
	default:
		return opcode, nil, errUnknownOpcode
	}
}
