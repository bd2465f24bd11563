package uppertransport

// Nonce type octets (spec.md §4.E).
const (
	nonceTypeApplication byte = 0x01
	nonceTypeDevice      byte = 0x02
	nonceTypeProxyConfig byte = 0x03
)

// NonceParams carries the fields common to every upper transport nonce.
type NonceParams struct {
	SZMIC   bool
	Seq     uint32
	Src     uint16
	Dst     uint16
	IVIndex uint32
}

func packNonce(typ byte, aszmic bool, seq uint32, src, dst uint16, ivIndex uint32) []byte {
	out := make([]byte, 13)
	out[0] = typ
	if aszmic {
		out[1] = 0x80
	}
	out[2] = byte(seq >> 16)
	out[3] = byte(seq >> 8)
	out[4] = byte(seq)
	out[5] = byte(src >> 8)
	out[6] = byte(src)
	out[7] = byte(dst >> 8)
	out[8] = byte(dst)
	out[9] = byte(ivIndex >> 24)
	out[10] = byte(ivIndex >> 16)
	out[11] = byte(ivIndex >> 8)
	out[12] = byte(ivIndex)
	return out
}

// ApplicationNonce builds the 13-byte nonce used for AppKey-encrypted
// access payloads.
func ApplicationNonce(p NonceParams) []byte {
	return packNonce(nonceTypeApplication, p.SZMIC, p.Seq, p.Src, p.Dst, p.IVIndex)
}

// DeviceNonce builds the 13-byte nonce used for DevKey-encrypted access
// payloads.
func DeviceNonce(p NonceParams) []byte {
	return packNonce(nonceTypeDevice, p.SZMIC, p.Seq, p.Src, p.Dst, p.IVIndex)
}

// ProxyConfigNonce builds the 13-byte nonce used for proxy configuration
// messages; there is no destination address or SZMIC flag.
func ProxyConfigNonce(seq uint32, src uint16, ivIndex uint32) []byte {
	return packNonce(nonceTypeProxyConfig, false, seq, src, 0, ivIndex)
}
