package meshconfig

import (
	"sync"

	"github.com/google/uuid"
)

// DataSource is the consumed interface (spec.md §6) through which the
// core reads and writes the persisted mesh-network configuration
// document. The core never opens a file or database itself; a host
// application supplies a concrete DataSource (see FileDataSource for a
// thin reference implementation) exactly as it supplies a Bearer.
type DataSource interface {
	// Load returns the last-saved document bytes, or (nil, nil) if none
	// has ever been saved.
	Load() ([]byte, error)
	// Save persists the document bytes.
	Save(data []byte) error
}

// Store guards one NetworkDocument behind a mutex and enforces the
// Config API invariants of spec.md §7 (address/range/provisioner
// checks) on every mutation, grounded on pkg/keystore.Store's
// RWMutex-guarded aggregate-plus-derived-lookups shape.
type Store struct {
	mu     sync.RWMutex
	doc    *NetworkDocument
	source DataSource
}

// NewStore creates a Store backed by source. If source already has a
// saved document, call Load to populate it; otherwise Document starts
// as a fresh, empty NetworkDocument.
func NewStore(source DataSource) *Store {
	return &Store{doc: NewDocument(), source: source}
}

// Load reads and decodes the document from the DataSource, replacing
// the in-memory copy. A Store with nothing yet saved keeps its existing
// (possibly freshly-created) document.
func (s *Store) Load() error {
	raw, err := s.source.Load()
	if err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	doc, err := Decode(raw)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
	return nil
}

// Save encodes the current document and writes it via the DataSource.
func (s *Store) Save() error {
	s.mu.RLock()
	raw, err := Encode(s.doc)
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	return s.source.Save(raw)
}

// Document returns a snapshot of the current document. Callers must
// treat the result as read-only; mutate through the Store's methods so
// the Config API invariants are enforced.
func (s *Store) Document() *NetworkDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := *s.doc
	cp.NetKeys = append([]NetKeyEntry(nil), s.doc.NetKeys...)
	cp.AppKeys = append([]AppKeyEntry(nil), s.doc.AppKeys...)
	cp.Provisioners = append([]ProvisionerEntry(nil), s.doc.Provisioners...)
	cp.Nodes = append([]NodeEntry(nil), s.doc.Nodes...)
	return &cp
}

// AddProvisioner registers a new provisioner, checking its ranges are
// well-formed and do not overlap any existing provisioner's, and that
// its UUID is not already registered under a different network
// (spec.md §7).
func (s *Store) AddProvisioner(p ProvisionerEntry) error {
	if err := ValidateProvisionerRanges(p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A provisioner UUID already registered in this document is rejected
	// with ErrProvisionerUsedInAnotherNetwork before the overlap check
	// below runs.
	for _, existing := range s.doc.Provisioners {
		if existing.UUID == p.UUID {
			return ErrProvisionerUsedInAnotherNetwork
		}
	}
	if err := CheckOverlap(s.doc.Provisioners, p); err != nil {
		return err
	}

	s.doc.Provisioners = append(s.doc.Provisioners, p)
	return nil
}

// RequireProvisioner returns the provisioner entry for id, or
// ErrProvisionerNotInNetwork if it is not registered.
func (s *Store) RequireProvisioner(id uuid.UUID) (ProvisionerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.doc.Provisioners {
		if p.UUID == id {
			return p, nil
		}
	}
	return ProvisionerEntry{}, ErrProvisionerNotInNetwork
}

// AllocateAddress picks the next free unicast address for a new node
// with elementCount elements, allocated from provisionerID's ranges
// (spec.md §7 noAddressAvailable). It does not reserve the address: the
// span counts as taken only once AddNode registers the node.
func (s *Store) AllocateAddress(provisionerID uuid.UUID, elementCount uint8) (uint16, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var provisioner *ProvisionerEntry
	for i := range s.doc.Provisioners {
		if s.doc.Provisioners[i].UUID == provisionerID {
			provisioner = &s.doc.Provisioners[i]
			break
		}
	}
	if provisioner == nil {
		return 0, ErrProvisionerNotInNetwork
	}
	return AllocateUnicastAddress(*provisioner, elementCount, s.doc.Nodes)
}

// AddNode registers a newly-provisioned node, rejecting a duplicate UUID
// (spec.md §7 nodeAlreadyExists) or an address span that collides with
// an existing node (addressNotAvailable).
func (s *Store) AddNode(n NodeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.doc.Nodes {
		if existing.UUID == n.UUID {
			return ErrNodeAlreadyExists
		}
	}
	if !IsAddressAvailable(s.doc.Nodes, n.ElementRange()) {
		return ErrAddressNotAvailable
	}

	s.doc.Nodes = append(s.doc.Nodes, n)
	return nil
}

// AddNetKey registers a NetKey entry at a fresh index.
func (s *Store) AddNetKey(e NetKeyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.doc.NetKeys {
		if existing.Index == e.Index {
			return ErrKeyIndexOutOfRange
		}
	}
	s.doc.NetKeys = append(s.doc.NetKeys, e)
	return nil
}

// AddAppKey registers an AppKey entry bound to an already-known NetKey
// index (spec.md §7 keyIndexOutOfRange).
func (s *Store) AddAppKey(e AppKeyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	boundOK := false
	for _, nk := range s.doc.NetKeys {
		if nk.Index == e.BoundNetKey {
			boundOK = true
			break
		}
	}
	if !boundOK {
		return ErrKeyIndexOutOfRange
	}
	for _, existing := range s.doc.AppKeys {
		if existing.Index == e.Index {
			return ErrKeyIndexOutOfRange
		}
	}
	s.doc.AppKeys = append(s.doc.AppKeys, e)
	return nil
}
