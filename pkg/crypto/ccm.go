package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/pion/dtls/v3/pkg/crypto/ccm"
)

// Mesh profile CCM nonce size; every nonce type in spec.md (Network,
// Application, Device, Proxy) is exactly 13 bytes.
const CCMNonceSize = 13

// MIC lengths the profile uses: 32-bit for network/access messages, 64-bit
// for control/provisioning messages where spec.md calls for a stronger MIC.
const (
	MICSizeSmall = 4
	MICSizeLarge = 8
)

// SealCCM encrypts and authenticates plaintext under key/nonce, with
// additional authenticated data aad (virtual-address label UUID, or empty),
// producing ciphertext with a micSize-byte MIC appended.
func SealCCM(key, nonce, plaintext, aad []byte, micSize int) ([]byte, error) {
	aead, err := newCCM(key, micSize)
	if err != nil {
		return nil, err
	}
	if len(nonce) != CCMNonceSize {
		return nil, fmt.Errorf("crypto: CCM nonce must be %d bytes, got %d", CCMNonceSize, len(nonce))
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// OpenCCM decrypts and verifies ciphertext (which includes a trailing
// micSize-byte MIC) under key/nonce/aad. Returns ErrMICMismatch-wrapping
// errors on authentication failure.
func OpenCCM(key, nonce, ciphertext, aad []byte, micSize int) ([]byte, error) {
	aead, err := newCCM(key, micSize)
	if err != nil {
		return nil, err
	}
	if len(nonce) != CCMNonceSize {
		return nil, fmt.Errorf("crypto: CCM nonce must be %d bytes, got %d", CCMNonceSize, len(nonce))
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMICMismatch, err)
	}
	return plaintext, nil
}

func newCCM(key []byte, micSize int) (cipher.AEAD, error) {
	if len(key) != 16 {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return ccm.NewCCM(block, micSize, CCMNonceSize)
}
