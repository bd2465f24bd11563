package crypto

import (
	gocrypto "crypto/ecdh"
	"crypto/rand"
	"fmt"
)

// ECDHKeyPair is a P-256 key pair used for the provisioning handshake
// (spec.md §4.H step 4).
type ECDHKeyPair struct {
	private *gocrypto.PrivateKey
}

// GenerateECDHKeyPair generates a fresh P-256 key pair.
func GenerateECDHKeyPair() (*ECDHKeyPair, error) {
	priv, err := gocrypto.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate ECDH key pair: %w", err)
	}
	return &ECDHKeyPair{private: priv}, nil
}

// PublicKeyXY returns the raw, uncompressed X||Y coordinates (64 bytes) as
// carried in the Provisioning Public Key PDU.
func (kp *ECDHKeyPair) PublicKeyXY() []byte {
	// Uncompressed SEC1 point encoding is 0x04 || X || Y; the profile's
	// wire format carries only X||Y.
	raw := kp.private.PublicKey().Bytes()
	return raw[1:]
}

// SharedSecret performs ECDH with a peer's raw X||Y public key and returns
// the resulting shared secret's X coordinate (32 bytes), per spec.md
// §4.H's ECDHSecret definition.
func (kp *ECDHKeyPair) SharedSecret(peerXY []byte) ([]byte, error) {
	if len(peerXY) != 64 {
		return nil, fmt.Errorf("crypto: peer public key must be 64 bytes, got %d", len(peerXY))
	}
	uncompressed := make([]byte, 65)
	uncompressed[0] = 0x04
	copy(uncompressed[1:], peerXY)

	peerKey, err := gocrypto.P256().NewPublicKey(uncompressed)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid peer public key: %w", err)
	}

	secret, err := kp.private.ECDH(peerKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: ECDH failed: %w", err)
	}
	// crypto/ecdh's NIST curve ECDH already returns only the X coordinate.
	return secret, nil
}
