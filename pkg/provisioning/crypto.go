package provisioning

import (
	"crypto/sha256"
	"encoding/binary"
	"io"

	"github.com/meshcore/mesh-go/pkg/crypto"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

// confirmationInputs accumulates the raw payload (opcode-less) of every
// provisioning PDU exchanged so far, in exchange order, per spec.md
// §4.H step 1: Invite, Capabilities, Start, provisioner PublicKey,
// device PublicKey.
type confirmationInputs struct {
	buf []byte
}

func (c *confirmationInputs) add(payload []byte) {
	c.buf = append(c.buf, payload...)
}

func (c *confirmationInputs) bytes() []byte {
	return c.buf
}

// deriveAuthValue computes authValue from the chosen authentication
// method (spec.md §4.H step 5). oob carries the method-specific input:
// the raw static-OOB secret for AuthMethodStaticOOB, or the big-endian
// numeric value entered/displayed for Output/Input OOB.
func deriveAuthValue(method uint8, oob []byte) ([]byte, error) {
	switch method {
	case AuthMethodNoOOB:
		return make([]byte, 16), nil
	case AuthMethodStaticOOB:
		// Stretches an imported static-OOB secret string before use,
		// supplementing the static-OOB branch spec.md names but does not
		// fully elaborate.
		return pbkdf2.Key(oob, []byte("mesh-provisioning-static-oob"), 4096, 16, sha256.New), nil
	case AuthMethodOutputOOB, AuthMethodInputOOB:
		// oob is the decimal digits entered/displayed, as a big-endian
		// numeric value; stretch it the same way the teacher's SPAKE2+
		// derives w0/w1 from a low-entropy setup code. The method byte is
		// folded into the info context so output and input OOB never
		// collide on the same digits.
		info := append([]byte("mesh-provisioning-oob-digits:"), method)
		reader := hkdf.New(sha256.New, oob, nil, info)
		authValue := make([]byte, 16)
		if _, err := io.ReadFull(reader, authValue); err != nil {
			return nil, err
		}
		return authValue, nil
	default:
		return nil, ErrUnsupportedAlgorithm
	}
}

// sessionCrypto bundles the derived handshake material computed in
// spec.md §4.H steps 4, 6 and 8.
type sessionCrypto struct {
	sharedSecret []byte

	confirmationSalt []byte
	confirmationKey  []byte

	provisioningSalt []byte
	sessionKey       []byte
	sessionNonce     []byte
	deviceKey        []byte
}

func computeConfirmationSalt(inputs []byte) ([]byte, error) {
	return crypto.S1(inputs)
}

func computeConfirmationKey(sharedSecret, confirmationSalt []byte) ([]byte, error) {
	return crypto.K1(sharedSecret, confirmationSalt, []byte("prck"))
}

func computeConfirmation(confirmationKey, random, authValue []byte) ([]byte, error) {
	return crypto.AESCMAC(confirmationKey, append(append([]byte{}, random...), authValue...))
}

func computeProvisioningSalt(confirmationSalt, provisionerRandom, deviceRandom []byte) ([]byte, error) {
	m := make([]byte, 0, len(confirmationSalt)+len(provisionerRandom)+len(deviceRandom))
	m = append(m, confirmationSalt...)
	m = append(m, provisionerRandom...)
	m = append(m, deviceRandom...)
	return crypto.S1(m)
}

func deriveSessionCrypto(sharedSecret, provisioningSalt []byte) (sessionKey, sessionNonce, deviceKey []byte, err error) {
	sessionKey, err = crypto.K1(sharedSecret, provisioningSalt, []byte("prsk"))
	if err != nil {
		return nil, nil, nil, err
	}
	nonceFull, err := crypto.K1(sharedSecret, provisioningSalt, []byte("prsn"))
	if err != nil {
		return nil, nil, nil, err
	}
	sessionNonce = nonceFull[3:16]
	deviceKey, err = crypto.K1(sharedSecret, provisioningSalt, []byte("prdk"))
	if err != nil {
		return nil, nil, nil, err
	}
	return sessionKey, sessionNonce, deviceKey, nil
}

// ProvisioningData is the plaintext delivered in the Data PDU (spec.md
// §4.H step 9): NetKey || NetKeyIndex || flags || IVIndex || UnicastAddress.
type ProvisioningData struct {
	NetKey          [16]byte
	NetKeyIndex     uint16
	Flags           uint8
	IVIndex         uint32
	UnicastAddress  uint16
}

func (d ProvisioningData) encode() []byte {
	out := make([]byte, 25)
	copy(out[0:16], d.NetKey[:])
	binary.BigEndian.PutUint16(out[16:18], d.NetKeyIndex)
	out[18] = d.Flags
	binary.BigEndian.PutUint32(out[19:23], d.IVIndex)
	binary.BigEndian.PutUint16(out[23:25], d.UnicastAddress)
	return out
}

func decodeProvisioningData(raw []byte) (ProvisioningData, error) {
	if len(raw) != 25 {
		return ProvisioningData{}, ErrMalformedPDU
	}
	var d ProvisioningData
	copy(d.NetKey[:], raw[0:16])
	d.NetKeyIndex = binary.BigEndian.Uint16(raw[16:18])
	d.Flags = raw[18]
	d.IVIndex = binary.BigEndian.Uint32(raw[19:23])
	d.UnicastAddress = binary.BigEndian.Uint16(raw[23:25])
	return d, nil
}

func encryptProvisioningData(sessionKey, sessionNonce []byte, data ProvisioningData) ([]byte, error) {
	return crypto.SealCCM(sessionKey, sessionNonce, data.encode(), nil, crypto.MICSizeLarge)
}

func decryptProvisioningData(sessionKey, sessionNonce, ciphertext []byte) (ProvisioningData, error) {
	plaintext, err := crypto.OpenCCM(sessionKey, sessionNonce, ciphertext, nil, crypto.MICSizeLarge)
	if err != nil {
		return ProvisioningData{}, err
	}
	return decodeProvisioningData(plaintext)
}
