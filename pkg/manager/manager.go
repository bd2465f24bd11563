package manager

import (
	"sync"
	"time"

	"github.com/meshcore/mesh-go/pkg/access"
	"github.com/meshcore/mesh-go/pkg/beacon"
	"github.com/meshcore/mesh-go/pkg/bearer"
	"github.com/meshcore/mesh-go/pkg/keystore"
	"github.com/meshcore/mesh-go/pkg/log"
	"github.com/meshcore/mesh-go/pkg/lowertransport"
	"github.com/meshcore/mesh-go/pkg/network"
	"github.com/meshcore/mesh-go/pkg/provisioning"
)

// Config bundles everything a Manager needs at construction time.
type Config struct {
	Keys   *keystore.Store
	Bearer bearer.Bearer

	// Delegate receives message received/delivered/failed callbacks
	// (spec.md §6). Defaults to NoopDelegate if nil.
	Delegate Delegate

	// Logger receives structured protocol events at every layer.
	// Defaults to log.NoopLogger if nil.
	Logger log.Logger

	// ElementAddresses lists this node's element unicast addresses, in
	// element order; ElementAddresses[0] is the primary element.
	ElementAddresses []uint16

	// DefaultNetKeyIndex and DefaultTTL apply to outbound messages that
	// don't specify their own.
	DefaultNetKeyIndex uint16
	DefaultTTL         uint8

	// Notify, if set, posts Delegate callbacks onto a caller-owned
	// queue instead of invoking them inline, satisfying spec.md §5's
	// "posted to a caller-supplied notification queue to avoid
	// reentrancy". Defaults to a direct, synchronous call.
	Notify func(func())
}

type segKey struct {
	src     uint16
	seqZero uint16
}

// pendingOutbound tracks bookkeeping for one in-flight outbound access
// message, whether sent as a single unsegmented PDU or carried by the
// outbound SAR.
type pendingOutbound struct {
	dst         uint16
	ttl         uint8
	netKeyIndex uint16
	akf         bool
	aid         byte
	szmic       bool

	segmented      bool
	unsegmentedPDU []byte // set when !segmented

	seq             uint32 // first segment's SEQ; set when segmented
	seqZero         uint16
	segN            uint8
	segmentPayloads [][]byte

	handle *access.MessageHandle
}

// Manager wires the network, lower transport, upper transport, access
// and beacon layers together (spec.md §4.C-§4.G), and drives a
// provisioner-role Provisioning FSM (spec.md §4.H). It is the module's
// single top-level entry point: a host talks to the mesh only through
// Manager's methods and its Delegate.
type Manager struct {
	mu sync.Mutex

	keys     *keystore.Store
	netLayer *network.Layer

	reassembler *lowertransport.Reassembler
	sar         *lowertransport.SAR

	dispatch *access.DispatchTable
	queue    *access.Queue
	tracker  *access.Tracker

	beaconFSM *beacon.FSM

	bearer   bearer.Bearer
	logger   log.Logger
	delegate Delegate
	notify   func(func())

	elementAddrs       []uint16
	defaultNetKeyIndex uint16
	defaultTTL         uint8

	firstSegSeq map[segKey]firstSegInfo

	// pendingSeq mirrors access.Queue's internal nextID counter: Manager
	// is the queue's only caller, and the id an action is registered
	// under must be known before Enqueue can return it, since Enqueue
	// may invoke the send callback synchronously.
	pendingSeq uint64
	pending    map[uint64]*pendingOutbound

	prov *provisioning.FSM

	heartbeatHandler func(src uint16, msg lowertransport.HeartbeatMessage, rxTTL uint8)
}

// firstSegInfo records the SEQ and subnet a segmented message's first
// segment was sent/received under, keyed by (src, SeqZero), so the
// transaction's upper-transport nonce can be reconstructed once
// reassembly completes (spec.md §4.D/§4.E).
type firstSegInfo struct {
	seq         uint32
	netKeyIndex uint16
}

// NewManager constructs a Manager from cfg. seqStart should be restored
// from persisted state (0 for a fresh node); beaconState/lastBeaconTransition
// seed the IV-Index FSM (spec.md §4.G).
func NewManager(cfg Config, seqStart uint32, beaconState beacon.State, lastBeaconTransition time.Time, beaconOpts beacon.Options) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}
	delegate := cfg.Delegate
	if delegate == nil {
		delegate = NoopDelegate{}
	}
	notify := cfg.Notify
	if notify == nil {
		notify = func(fn func()) { fn() }
	}

	m := &Manager{
		keys:     cfg.Keys,
		netLayer: network.NewLayer(cfg.Keys, seqStart),

		reassembler: lowertransport.NewReassembler(),
		sar:         lowertransport.NewSAR(),

		dispatch: access.NewDispatchTable(),
		tracker:  access.NewTracker(),

		beaconFSM: beacon.NewFSM(beaconState, lastBeaconTransition, beaconOpts),

		bearer:   cfg.Bearer,
		logger:   logger,
		delegate: delegate,
		notify:   notify,

		elementAddrs:       cfg.ElementAddresses,
		defaultNetKeyIndex: cfg.DefaultNetKeyIndex,
		defaultTTL:         cfg.DefaultTTL,

		firstSegSeq: make(map[segKey]firstSegInfo),
		pending:     make(map[uint64]*pendingOutbound),
	}
	m.queue = access.NewQueue(m.sendQueuedPayload)

	m.reassembler.OnComplete(m.handleReassembledAccess)
	m.reassembler.OnAckDue(m.handleAckDue)
	m.reassembler.OnDrop(m.handleReassemblyDrop)

	m.beaconFSM.OnTransition(func(_, new beacon.State) {
		m.keys.SetIVIndex(keystore.IVIndexState{Value: new.Value, Updating: new.Active})
	})

	if cfg.Bearer != nil {
		cfg.Bearer.SetInboundHandler(m.handleInboundPDU)
	}

	return m
}

// Tracker exposes the acknowledged-request correlation tracker so model
// code can Await/Resolve application-level responses; Manager itself
// only correlates at the transport level (spec.md §4.F's opcode-pair
// correlation is known to the model, not the core).
func (m *Manager) Tracker() *access.Tracker { return m.tracker }

// SetHeartbeatHandler registers a callback invoked for every inbound
// Heartbeat control message. Pass nil to stop receiving them.
func (m *Manager) SetHeartbeatHandler(fn func(src uint16, msg lowertransport.HeartbeatMessage, rxTTL uint8)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heartbeatHandler = fn
}

// registerPending assigns the next id (in lockstep with access.Queue's
// own nextID sequence) and stores action under it.
func (m *Manager) registerPending(action *pendingOutbound) uint64 {
	m.mu.Lock()
	m.pendingSeq++
	id := m.pendingSeq
	m.pending[id] = action
	m.mu.Unlock()
	return id
}

// DispatchTable exposes the access-layer model registry so a host can
// call RegisterModel directly.
func (m *Manager) DispatchTable() *access.DispatchTable { return m.dispatch }

// BeaconFSM exposes the IV-Index acceptance state machine, e.g. so a
// host can inspect State() or register OnTransition.
func (m *Manager) BeaconFSM() *beacon.FSM { return m.beaconFSM }

// Keys exposes the underlying key store.
func (m *Manager) Keys() *keystore.Store { return m.keys }

func (m *Manager) logEvent(ev log.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	m.logger.Log(ev)
}

func (m *Manager) logError(layer log.Layer, context string, err error) {
	m.logEvent(log.Event{
		Direction: log.DirectionIn,
		Layer:     layer,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Context: context,
		},
	})
}

// primaryElement returns this node's primary unicast address, or 0 if
// none has been configured yet (unprovisioned node).
func (m *Manager) primaryElement() uint16 {
	if len(m.elementAddrs) == 0 {
		return 0
	}
	return m.elementAddrs[0]
}
