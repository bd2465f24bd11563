package keystore

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StoreVersion is the current version of the persisted key store file
// format.
const StoreVersion = 1

// Store aggregates the net keys, app keys, device keys and IV state a node
// needs, behind a single RWMutex. Lookups (by NID/AID for receive, by index
// for send) are the hot path; mutation only happens on provisioning,
// AppKeyAdd/Update, and IV Update events.
type Store struct {
	mu sync.RWMutex

	netKeys    map[uint16]*NetworkKey
	appKeys    map[uint16]*AppKey
	deviceKeys map[uint16]*DeviceKey
	ivIndex    IVIndexState

	path string
}

// NewStore creates an empty key store. If path is non-empty, Save/Load
// persist to that file.
func NewStore(path string) *Store {
	return &Store{
		netKeys:    make(map[uint16]*NetworkKey),
		appKeys:    make(map[uint16]*AppKey),
		deviceKeys: make(map[uint16]*DeviceKey),
		path:       path,
	}
}

// AddNetworkKey derives and stores a new NetKey.
func (s *Store) AddNetworkKey(index uint16, key [16]byte) (*NetworkKey, error) {
	nk, err := NewNetworkKey(index, key)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.netKeys[index] = nk
	return nk, nil
}

// NetworkKeyByIndex returns the NetKey with the given index.
func (s *Store) NetworkKeyByIndex(index uint16) (*NetworkKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nk, ok := s.netKeys[index]
	return nk, ok
}

// NetworkKeyByNID searches every subnet's current and old key for a
// matching NID, as the network layer must when it has no a-priori subnet
// hint (spec.md §3.A).
func (s *Store) NetworkKeyByNID(nid byte) (*NetworkKey, *NetworkKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, nk := range s.netKeys {
		if matched, ok := nk.MatchNID(nid); ok {
			return nk, matched, true
		}
	}
	return nil, nil, false
}

// NetworkKeyByNetworkID searches every subnet's current and old key for a
// matching NetworkID, as the beacon layer must when a Secure Network
// Beacon arrives with no a-priori subnet hint (spec.md §4.G).
func (s *Store) NetworkKeyByNetworkID(networkID []byte) (*NetworkKey, *NetworkKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, nk := range s.netKeys {
		if bytesEqual(nk.NetworkID, networkID) {
			return nk, nk, true
		}
		if nk.Old != nil && bytesEqual(nk.Old.NetworkID, networkID) {
			return nk, nk.Old, true
		}
	}
	return nil, nil, false
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// AddAppKey derives and stores a new AppKey bound to netKeyIndex.
func (s *Store) AddAppKey(index, netKeyIndex uint16, key [16]byte) (*AppKey, error) {
	ak, err := NewAppKey(index, netKeyIndex, key)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appKeys[index] = ak
	return ak, nil
}

// AppKeyByIndex returns the AppKey with the given index.
func (s *Store) AppKeyByIndex(index uint16) (*AppKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ak, ok := s.appKeys[index]
	return ak, ok
}

// AppKeysByAID returns every bound AppKey whose current or old AID
// matches, since AID alone does not uniquely identify a key.
func (s *Store) AppKeysByAID(netKeyIndex uint16, aid byte) []*AppKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*AppKey
	for _, ak := range s.appKeys {
		if ak.NetKeyIndex != netKeyIndex {
			continue
		}
		if _, ok := ak.MatchAID(aid); ok {
			out = append(out, ak)
		}
	}
	return out
}

// SetDeviceKey stores the DevKey established for a provisioned node.
func (s *Store) SetDeviceKey(addr uint16, key [16]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceKeys[addr] = &DeviceKey{UnicastAddr: addr, Key: key}
}

// DeviceKeyByAddr returns the DevKey for a unicast address.
func (s *Store) DeviceKeyByAddr(addr uint16) (*DeviceKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dk, ok := s.deviceKeys[addr]
	return dk, ok
}

// IVIndex returns the current IV Index state.
func (s *Store) IVIndex() IVIndexState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ivIndex
}

// SetIVIndex updates the IV Index state; called only from pkg/beacon's FSM.
func (s *Store) SetIVIndex(state IVIndexState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ivIndex = state
}

// persistedStore is the JSON-on-disk representation of a Store.
type persistedStore struct {
	Version  int                      `json:"version"`
	SavedAt  time.Time                `json:"saved_at"`
	NetKeys  []persistedNetworkKey    `json:"net_keys,omitempty"`
	AppKeys  []persistedAppKey        `json:"app_keys,omitempty"`
	DevKeys  []persistedDeviceKey     `json:"device_keys,omitempty"`
	IVIndex  uint32                   `json:"iv_index"`
	Updating bool                     `json:"iv_updating"`
}

type persistedNetworkKey struct {
	Index uint16 `json:"index"`
	Key   string `json:"key"`
}

type persistedAppKey struct {
	Index       uint16 `json:"index"`
	NetKeyIndex uint16 `json:"net_key_index"`
	Key         string `json:"key"`
}

type persistedDeviceKey struct {
	UnicastAddr uint16 `json:"unicast_addr"`
	Key         string `json:"key"`
}

// Save persists the store's raw key material to disk. Derived fields are
// recomputed on Load rather than serialized.
func (s *Store) Save() error {
	if s.path == "" {
		return fmt.Errorf("keystore: store has no persistence path")
	}
	s.mu.RLock()
	p := persistedStore{
		Version:  StoreVersion,
		SavedAt:  time.Now(),
		IVIndex:  s.ivIndex.Value,
		Updating: s.ivIndex.Updating,
	}
	for _, nk := range s.netKeys {
		p.NetKeys = append(p.NetKeys, persistedNetworkKey{Index: nk.Index, Key: hex.EncodeToString(nk.Key[:])})
	}
	for _, ak := range s.appKeys {
		p.AppKeys = append(p.AppKeys, persistedAppKey{Index: ak.Index, NetKeyIndex: ak.NetKeyIndex, Key: hex.EncodeToString(ak.Key[:])})
	}
	for _, dk := range s.deviceKeys {
		p.DevKeys = append(p.DevKeys, persistedDeviceKey{UnicastAddr: dk.UnicastAddr, Key: hex.EncodeToString(dk.Key[:])})
	}
	s.mu.RUnlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Load reads key material from disk and rederives everything. Returns nil
// if the file doesn't exist.
func (s *Store) Load() error {
	if s.path == "" {
		return fmt.Errorf("keystore: store has no persistence path")
	}
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var p persistedStore
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	netKeys := make(map[uint16]*NetworkKey, len(p.NetKeys))
	for _, pnk := range p.NetKeys {
		raw, err := hex.DecodeString(pnk.Key)
		if err != nil || len(raw) != 16 {
			return fmt.Errorf("keystore: corrupt net key %d", pnk.Index)
		}
		var key [16]byte
		copy(key[:], raw)
		nk, err := NewNetworkKey(pnk.Index, key)
		if err != nil {
			return err
		}
		netKeys[pnk.Index] = nk
	}

	appKeys := make(map[uint16]*AppKey, len(p.AppKeys))
	for _, pak := range p.AppKeys {
		raw, err := hex.DecodeString(pak.Key)
		if err != nil || len(raw) != 16 {
			return fmt.Errorf("keystore: corrupt app key %d", pak.Index)
		}
		var key [16]byte
		copy(key[:], raw)
		ak, err := NewAppKey(pak.Index, pak.NetKeyIndex, key)
		if err != nil {
			return err
		}
		appKeys[pak.Index] = ak
	}

	deviceKeys := make(map[uint16]*DeviceKey, len(p.DevKeys))
	for _, pdk := range p.DevKeys {
		raw, err := hex.DecodeString(pdk.Key)
		if err != nil || len(raw) != 16 {
			return fmt.Errorf("keystore: corrupt device key for %#04x", pdk.UnicastAddr)
		}
		var key [16]byte
		copy(key[:], raw)
		deviceKeys[pdk.UnicastAddr] = &DeviceKey{UnicastAddr: pdk.UnicastAddr, Key: key}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.netKeys = netKeys
	s.appKeys = appKeys
	s.deviceKeys = deviceKeys
	s.ivIndex = IVIndexState{Value: p.IVIndex, Updating: p.Updating}
	return nil
}

// Clear removes the persisted key store file.
func (s *Store) Clear() error {
	if s.path == "" {
		return nil
	}
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
