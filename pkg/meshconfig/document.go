package meshconfig

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// DocumentVersion is the schema version this package reads and writes.
// Bumped only on a breaking change to the JSON shape below.
const DocumentVersion = "1.0"

// NetworkDocument is the decoded form of a Mesh Configuration Database
// Profile JSON document (spec.md §6). Every multi-byte key is hex
// encoded on the wire, matching pkg/keystore.Store's persisted form.
type NetworkDocument struct {
	Schema  string `json:"$schema,omitempty"`
	Version string `json:"version"`

	// MeshUUID identifies this mesh network, independent of any single
	// provisioner or node.
	MeshUUID uuid.UUID `json:"meshUUID"`

	NetKeys      []NetKeyEntry      `json:"netKeys"`
	AppKeys      []AppKeyEntry      `json:"appKeys"`
	Provisioners []ProvisionerEntry `json:"provisioners"`
	Nodes        []NodeEntry        `json:"nodes"`
}

// NetKeyEntry is one persisted NetworkKey, including its refresh-phase
// state (spec.md §3.A).
type NetKeyEntry struct {
	Index   uint16 `json:"index"`
	Key     string `json:"key"`           // hex, 16 bytes
	OldKey  string `json:"oldKey,omitempty"` // hex, 16 bytes; present during key refresh
	Phase   uint8  `json:"phase"`         // 0=normalOperation, 1=distributingKeys, 2=finalizing
}

// KeyBytes decodes Key to raw bytes.
func (e NetKeyEntry) KeyBytes() ([16]byte, error) { return decodeKeyHex(e.Key) }

// AppKeyEntry is one persisted ApplicationKey, bound to exactly one
// NetKey by index (spec.md §3.B).
type AppKeyEntry struct {
	Index       uint16 `json:"index"`
	BoundNetKey uint16 `json:"boundNetKey"`
	Key         string `json:"key"`              // hex, 16 bytes
	OldKey      string `json:"oldKey,omitempty"` // hex, 16 bytes
}

// KeyBytes decodes Key to raw bytes.
func (e AppKeyEntry) KeyBytes() ([16]byte, error) { return decodeKeyHex(e.Key) }

// AddressRange is an inclusive [Low, High] range of 16-bit addresses.
type AddressRange struct {
	LowAddr  uint16 `json:"lowAddress"`
	HighAddr uint16 `json:"highAddress"`
}

// Valid reports whether the range is non-empty and well-ordered.
func (r AddressRange) Valid() bool { return r.LowAddr > 0 && r.LowAddr <= r.HighAddr }

// Contains reports whether addr falls within the range.
func (r AddressRange) Contains(addr uint16) bool { return addr >= r.LowAddr && addr <= r.HighAddr }

// Overlaps reports whether two ranges share any address.
func (r AddressRange) Overlaps(o AddressRange) bool {
	return r.LowAddr <= o.HighAddr && o.LowAddr <= r.HighAddr
}

// ProvisionerEntry is one provisioner known to the network, with the
// unicast and group address ranges it may allocate from.
type ProvisionerEntry struct {
	UUID                  uuid.UUID      `json:"UUID"`
	Name                  string         `json:"provisionerName,omitempty"`
	AllocatedUnicastRange []AddressRange `json:"allocatedUnicastRange"`
	AllocatedGroupRange   []AddressRange `json:"allocatedGroupRange,omitempty"`
}

// NodeEntry is one provisioned node: its UUID, primary unicast address,
// element span, bound keys and device key (spec.md §3 Node).
type NodeEntry struct {
	UUID           uuid.UUID     `json:"UUID"`
	UnicastAddress uint16        `json:"unicastAddress"`
	NumElements    uint8         `json:"numElements"`
	DeviceKey      string        `json:"deviceKey"` // hex, 16 bytes
	NetKeys        []NodeKeyRef  `json:"netKeys"`
	AppKeys        []NodeKeyRef  `json:"appKeys"`
	Features       uint16        `json:"features,omitempty"`
	ConfigComplete bool          `json:"configComplete,omitempty"`
}

// DeviceKeyBytes decodes DeviceKey to raw bytes.
func (n NodeEntry) DeviceKeyBytes() ([16]byte, error) { return decodeKeyHex(n.DeviceKey) }

// ElementRange returns the node's primary-to-last unicast address span.
func (n NodeEntry) ElementRange() AddressRange {
	if n.NumElements == 0 {
		return AddressRange{LowAddr: n.UnicastAddress, HighAddr: n.UnicastAddress}
	}
	return AddressRange{LowAddr: n.UnicastAddress, HighAddr: n.UnicastAddress + uint16(n.NumElements) - 1}
}

// NodeKeyRef binds one key index to a node, per spec.md's "bound keys".
type NodeKeyRef struct {
	Index  uint16 `json:"index"`
	Updated bool  `json:"updated,omitempty"` // true while the node still needs the new key during refresh
}

func decodeKeyHex(s string) ([16]byte, error) {
	var out [16]byte
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 16 {
		return out, fmt.Errorf("meshconfig: key must be 32 hex characters: %w", errMalformedDocument)
	}
	copy(out[:], raw)
	return out, nil
}

func encodeKeyHex(key [16]byte) string { return hex.EncodeToString(key[:]) }

// NewDocument creates an empty document seeded with a fresh mesh UUID.
func NewDocument() *NetworkDocument {
	return &NetworkDocument{
		Schema:   "http://www.bluetooth.com/specifications/assigned-numbers/mesh-profile",
		Version:  DocumentVersion,
		MeshUUID: uuid.New(),
	}
}

// Decode parses a Mesh Configuration Database Profile JSON document.
func Decode(raw []byte) (*NetworkDocument, error) {
	var doc NetworkDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("meshconfig: decode: %w", err)
	}
	return &doc, nil
}

// Encode serializes the document back to JSON.
func Encode(doc *NetworkDocument) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}
