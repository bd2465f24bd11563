package crypto

import "fmt"

// zeroKey is the all-zero 128-bit key used as the CMAC key for s1's salt
// generation step (spec.md §4.A).
var zeroKey = make([]byte, 16)

// S1 computes the Mesh profile's salt generation function:
// s1(M) = AES-CMAC_zero(M)
func S1(m []byte) ([]byte, error) {
	return AESCMAC(zeroKey, m)
}

// K1 derives an output of the salt-keyed CMAC chain:
// k1(N, SALT, P) = AES-CMAC_T(P), where T = AES-CMAC_SALT(N)
func K1(n, salt, p []byte) ([]byte, error) {
	t, err := AESCMAC(salt, n)
	if err != nil {
		return nil, err
	}
	return AESCMAC(t, p)
}

// k2Pad is appended to the running T-chain per octet per the profile's T1/T2/T3
// construction (spec.md §4.A): P || 0x01, T1 || P || 0x02, T2 || P || 0x03.
func k2Pad(p []byte, prev []byte, counter byte) []byte {
	out := make([]byte, 0, len(p)+len(prev)+1)
	out = append(out, prev...)
	out = append(out, p...)
	out = append(out, counter)
	return out
}

// K2Output bundles the three values k2 derives from a network key: NID,
// EncryptionKey and PrivacyKey.
type K2Output struct {
	NID           byte
	EncryptionKey []byte
	PrivacyKey    []byte
}

// K2 implements the network key material derivation function (spec.md
// §4.A): salt = s1("smk2"), T = AES-CMAC_salt(N), then a three-step T1/T2/T3
// chain over P. NID is the low 7 bits of T1's last byte, EncryptionKey is
// T2, PrivacyKey is T3.
func K2(n, p []byte) (K2Output, error) {
	salt, err := S1([]byte("smk2"))
	if err != nil {
		return K2Output{}, err
	}
	t, err := AESCMAC(salt, n)
	if err != nil {
		return K2Output{}, err
	}

	t1, err := AESCMAC(t, k2Pad(p, nil, 0x01))
	if err != nil {
		return K2Output{}, err
	}
	t2, err := AESCMAC(t, k2Pad(p, t1, 0x02))
	if err != nil {
		return K2Output{}, err
	}
	t3, err := AESCMAC(t, k2Pad(p, t2, 0x03))
	if err != nil {
		return K2Output{}, err
	}

	return K2Output{
		NID:           t1[len(t1)-1] & 0x7f,
		EncryptionKey: t2,
		PrivacyKey:    t3,
	}, nil
}

// K3 implements the 64-bit NetworkID derivation function (spec.md §4.A):
// k3(N) = AES-CMAC_T("id64" || 0x01)[64 bits], where T = AES-CMAC_s1("smk3")(N).
func K3(n []byte) ([]byte, error) {
	salt, err := S1([]byte("smk3"))
	if err != nil {
		return nil, err
	}
	full, err := K1(n, salt, []byte("id64\x01"))
	if err != nil {
		return nil, err
	}
	if len(full) < 8 {
		return nil, fmt.Errorf("crypto: k3 output too short")
	}
	return full[len(full)-8:], nil
}

// K4 implements the 6-bit AID derivation function (spec.md §4.A):
// k4(N) = AES-CMAC_T("id6" || 0x01)[6 bits], where T = AES-CMAC_s1("smk4")(N).
func K4(n []byte) (byte, error) {
	salt, err := S1([]byte("smk4"))
	if err != nil {
		return 0, err
	}
	full, err := K1(n, salt, []byte("id6\x01"))
	if err != nil {
		return 0, err
	}
	return full[len(full)-1] & 0x3f, nil
}
