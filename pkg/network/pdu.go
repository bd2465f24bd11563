package network

import (
	"crypto/aes"
	"encoding/binary"
	"fmt"

	"github.com/meshcore/mesh-go/pkg/crypto"
)

// MinPDUSize is the smallest possible Network PDU: 1-byte IVI/NID, 6 bytes
// of obfuscated header, 2-byte DST and a 32-bit NetMIC with zero transport
// payload.
const MinPDUSize = 1 + 6 + 2 + 4

const obfuscatedHeaderSize = 6

// privacyRandomSize is the number of leading bytes of the encrypted
// DST||TransportPDU||NetMIC used as PECB input, per the Bluetooth Mesh
// profile (the profile's prose sometimes abbreviates this to "six
// ciphertext bytes", but the sample test vectors are only reproducible
// with seven).
const privacyRandomSize = 7

// EncodeParams bundles everything needed to construct a Network PDU.
type EncodeParams struct {
	Control       bool // true for a lower-transport control PDU
	TTL           uint8
	Seq           uint32 // 24-bit sequence number, high byte ignored
	Src           uint16
	Dst           uint16
	TransportPDU  []byte
	IVIndex       uint32
	EncryptionKey []byte
	PrivacyKey    []byte
	NID           byte
}

// micSize returns the NetMIC size in bytes: 4 for access PDUs, 8 for
// control PDUs (spec.md §4.C).
func (p EncodeParams) micSize() int {
	if p.Control {
		return crypto.MICSizeLarge
	}
	return crypto.MICSizeSmall
}

// Encode constructs an obfuscated, encrypted Network PDU ready for
// transmission.
func Encode(p EncodeParams) ([]byte, error) {
	ctlTTL := p.TTL & 0x7f
	if p.Control {
		ctlTTL |= 0x80
	}

	seq := make([]byte, 3)
	seq[0] = byte(p.Seq >> 16)
	seq[1] = byte(p.Seq >> 8)
	seq[2] = byte(p.Seq)

	src := make([]byte, 2)
	binary.BigEndian.PutUint16(src, p.Src)
	dst := make([]byte, 2)
	binary.BigEndian.PutUint16(dst, p.Dst)
	ivIndexBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(ivIndexBytes, p.IVIndex)

	nonce := networkNonce(ctlTTL, seq, src, ivIndexBytes)

	plaintext := make([]byte, 0, len(dst)+len(p.TransportPDU))
	plaintext = append(plaintext, dst...)
	plaintext = append(plaintext, p.TransportPDU...)

	encrypted, err := crypto.SealCCM(p.EncryptionKey, nonce, plaintext, nil, p.micSize())
	if err != nil {
		return nil, fmt.Errorf("network: encrypt PDU: %w", err)
	}

	pecb, err := privacyECB(p.PrivacyKey, ivIndexBytes, encrypted)
	if err != nil {
		return nil, fmt.Errorf("network: compute PECB: %w", err)
	}

	obfuscated := make([]byte, obfuscatedHeaderSize)
	obfuscated[0] = ctlTTL ^ pecb[0]
	obfuscated[1] = seq[0] ^ pecb[1]
	obfuscated[2] = seq[1] ^ pecb[2]
	obfuscated[3] = seq[2] ^ pecb[3]
	obfuscated[4] = src[0] ^ pecb[4]
	obfuscated[5] = src[1] ^ pecb[5]

	ivi := byte(p.IVIndex & 0x01)
	out := make([]byte, 0, 1+obfuscatedHeaderSize+len(encrypted))
	out = append(out, (ivi<<7)|p.NID)
	out = append(out, obfuscated...)
	out = append(out, encrypted...)
	return out, nil
}

// DecodeParams bundles the key material needed to decrypt and
// deobfuscate a Network PDU once its NID has selected a NetworkKey.
type DecodeParams struct {
	PDU           []byte
	IVIndex       uint32
	EncryptionKey []byte
	PrivacyKey    []byte
	Control       bool
}

// Decoded is the result of successfully decoding a Network PDU.
type Decoded struct {
	Control      bool
	TTL          uint8
	Seq          uint32
	Src          uint16
	Dst          uint16
	IVI          byte
	NID          byte
	TransportPDU []byte
}

// Decode deobfuscates and decrypts a Network PDU. Callers select
// EncryptionKey/PrivacyKey by first matching the PDU's NID (byte 0, low 7
// bits) against a known NetworkKey.
func Decode(p DecodeParams) (*Decoded, error) {
	if len(p.PDU) < MinPDUSize {
		return nil, errPDUTooShort
	}

	ivi := p.PDU[0] >> 7
	nid := p.PDU[0] & 0x7f
	obfuscated := p.PDU[1 : 1+obfuscatedHeaderSize]
	encrypted := p.PDU[1+obfuscatedHeaderSize:]

	ivIndexBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(ivIndexBytes, p.IVIndex)

	pecb, err := privacyECB(p.PrivacyKey, ivIndexBytes, encrypted)
	if err != nil {
		return nil, fmt.Errorf("network: compute PECB: %w", err)
	}

	deobfuscated := make([]byte, obfuscatedHeaderSize)
	for i := range deobfuscated {
		deobfuscated[i] = obfuscated[i] ^ pecb[i]
	}

	ctlTTL := deobfuscated[0]
	seq := deobfuscated[1:4]
	src := deobfuscated[4:6]

	nonce := networkNonce(ctlTTL, seq, src, ivIndexBytes)

	micSize := crypto.MICSizeSmall
	if p.Control {
		micSize = crypto.MICSizeLarge
	}
	plaintext, err := crypto.OpenCCM(p.EncryptionKey, nonce, encrypted, nil, micSize)
	if err != nil {
		return nil, err
	}
	if len(plaintext) < 2 {
		return nil, errPDUTooShort
	}

	return &Decoded{
		Control:      ctlTTL&0x80 != 0,
		TTL:          ctlTTL & 0x7f,
		Seq:          uint32(seq[0])<<16 | uint32(seq[1])<<8 | uint32(seq[2]),
		Src:          binary.BigEndian.Uint16(src),
		Dst:          binary.BigEndian.Uint16(plaintext[:2]),
		IVI:          ivi,
		TransportPDU: plaintext[2:],
		NID:          nid,
	}, nil
}

// networkNonce builds the 13-byte network nonce (spec.md §4.C):
// 0x00 || CTL<<7|TTL || SEQ(3) || SRC(2) || 0x0000 || IVIndex(4).
func networkNonce(ctlTTL byte, seq, src, ivIndexBytes []byte) []byte {
	nonce := make([]byte, 0, crypto.CCMNonceSize)
	nonce = append(nonce, 0x00, ctlTTL)
	nonce = append(nonce, seq...)
	nonce = append(nonce, src...)
	nonce = append(nonce, 0x00, 0x00)
	nonce = append(nonce, ivIndexBytes...)
	return nonce
}

// privacyECB computes PECB = AES-ECB(privacyKey, 0x0000000000 || IVIndex
// || PrivacyRandom), where PrivacyRandom is the first seven bytes of the
// encrypted DST||TransportPDU||NetMIC.
func privacyECB(privacyKey, ivIndexBytes, encrypted []byte) ([]byte, error) {
	if len(encrypted) < privacyRandomSize {
		return nil, errPDUTooShort
	}
	block, err := aes.NewCipher(privacyKey)
	if err != nil {
		return nil, err
	}
	input := make([]byte, 0, 16)
	input = append(input, 0, 0, 0, 0, 0)
	input = append(input, ivIndexBytes...)
	input = append(input, encrypted[:privacyRandomSize]...)

	out := make([]byte, 16)
	block.Encrypt(out, input)
	return out, nil
}
