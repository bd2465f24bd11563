package provisioning

import (
	"sync"

	"github.com/meshcore/mesh-go/pkg/crypto"
)

// State is one step of the provisioner-side handshake (spec.md §4.H).
type State int

const (
	StateIdle State = iota
	StateInvited
	StateCapabilitiesReceived
	StateStarted
	StatePublicKeysExchanged
	StateAuthenticating
	StateConfirmed
	StateRandomExchanged
	StateDataSent
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInvited:
		return "invited"
	case StateCapabilitiesReceived:
		return "capabilitiesReceived"
	case StateStarted:
		return "started"
	case StatePublicKeysExchanged:
		return "publicKeysExchanged"
	case StateAuthenticating:
		return "authenticating"
	case StateConfirmed:
		return "confirmed"
	case StateRandomExchanged:
		return "randomExchanged"
	case StateDataSent:
		return "dataSent"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// AuthChoice is the provisioner's selection of public-key method and
// authentication method, plus any OOB input it already has in hand
// (e.g. a static-OOB secret read from the data source, or the digits
// for input/output OOB). OOBValue is turned into authValue as soon as
// Capabilities is handled.
type AuthChoice struct {
	PublicKeyMethod uint8
	AuthMethod      uint8
	AuthAction      uint8
	AuthSize        uint8
	OOBValue        []byte
}

// FSM drives the provisioner role of the provisioning handshake one
// inbound PDU at a time, sending PDUs through a caller-supplied
// callback rather than owning any bearer I/O itself — modeled on the
// step sequence of pkg/commissioning/session.go's PASEClientSession,
// restructured from its blocking net.Conn I/O into explicit
// HandleInboundPDU/outbound-callback steps, since spec.md §5 mandates a
// single-threaded, non-blocking, callback-driven core. sendPDU and
// chooseAuth run with the FSM's internal lock held and must not call
// back into the FSM (e.g. HandleInboundPDU) synchronously; onComplete
// and onFailed run with the lock released.
type FSM struct {
	mu sync.Mutex

	state State

	chooseAuth func(caps CapabilitiesMessage) (AuthChoice, error)
	sendPDU    func(payload []byte)
	onComplete func(deviceKey []byte, data ProvisioningData)
	onFailed   func(err error)

	inputs confirmationInputs

	keyPair        *crypto.ECDHKeyPair
	peerPublicKey  []byte
	sharedSecret   []byte

	authMethod uint8
	authValue  []byte

	confirmationSalt []byte
	confirmationKey  []byte

	provisionerRandom         [16]byte
	deviceRandom              []byte
	pendingDeviceConfirmation []byte

	provisioningData ProvisioningData

	sessionKey   []byte
	sessionNonce []byte
	deviceKey    []byte
}

// NewFSM creates a provisioner-side FSM. chooseAuth is called once
// Capabilities is received and must return the algorithm/method choice
// to drive the rest of the session; sendPDU is called with each
// outbound Provisioning PDU (opcode-prefixed, ready for the bearer);
// onComplete/onFailed are terminal callbacks, each fired at most once.
func NewFSM(
	chooseAuth func(caps CapabilitiesMessage) (AuthChoice, error),
	sendPDU func(payload []byte),
	onComplete func(deviceKey []byte, data ProvisioningData),
	onFailed func(err error),
) *FSM {
	return &FSM{
		state:      StateIdle,
		chooseAuth: chooseAuth,
		sendPDU:    sendPDU,
		onComplete: onComplete,
		onFailed:   onFailed,
	}
}

// State returns the current handshake state.
func (f *FSM) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Invite begins the session by sending an Invite PDU (spec.md §4.H
// step 1).
func (f *FSM) Invite(attentionSec uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateIdle {
		return ErrInvalidState
	}

	msg := InviteMessage{AttentionDuration: attentionSec}
	pdu := msg.Encode()
	f.inputs.add(pdu[1:])
	f.sendPDU(pdu)
	f.state = StateInvited
	return nil
}

// HandleInboundPDU advances the state machine with an incoming
// Provisioning PDU. It returns an error for a malformed PDU or one
// invalid in the current state; the FSM transitions to StateFailed and
// fires onFailed in that case. A Failed PDU from the peer always fails
// the session regardless of state.
func (f *FSM) HandleInboundPDU(raw []byte) error {
	opcode, msg, err := DecodePDU(raw)
	if err != nil {
		return f.fail(err)
	}

	if opcode == OpcodeFailed {
		failedMsg := msg.(FailedMessage)
		return f.fail(&ProvisioningError{Code: failedMsg.Code})
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case f.state == StateInvited && opcode == OpcodeCapabilities:
		return f.handleCapabilitiesLocked(msg.(CapabilitiesMessage), raw[1:])
	case f.state == StateStarted && opcode == OpcodePublicKey:
		return f.handlePublicKeyLocked(msg.(PublicKeyMessage), raw[1:])
	case f.state == StateAuthenticating && opcode == OpcodeConfirmation:
		return f.handleConfirmationLocked(msg.(ConfirmationMessage))
	case f.state == StateConfirmed && opcode == OpcodeRandom:
		return f.handleRandomLocked(msg.(RandomMessage))
	case f.state == StateDataSent && opcode == OpcodeComplete:
		return f.handleCompleteLocked()
	default:
		return f.failLocked(ErrInvalidState)
	}
}

func (f *FSM) handleCapabilitiesLocked(caps CapabilitiesMessage, payload []byte) error {
	f.inputs.add(payload)
	f.state = StateCapabilitiesReceived

	choice, err := f.chooseAuth(caps)
	if err != nil {
		return f.failLocked(err)
	}
	if caps.Algorithms&0x0001 == 0 {
		return f.failLocked(ErrUnsupportedAlgorithm)
	}
	f.authMethod = choice.AuthMethod

	start := StartMessage{
		Algorithm:       AlgorithmFIPSP256,
		PublicKeyMethod: choice.PublicKeyMethod,
		AuthMethod:      choice.AuthMethod,
		AuthAction:      choice.AuthAction,
		AuthSize:        choice.AuthSize,
	}
	startPDU := start.Encode()
	f.inputs.add(startPDU[1:])

	authValue, err := deriveAuthValue(choice.AuthMethod, choice.OOBValue)
	if err != nil {
		return f.failLocked(err)
	}
	f.authValue = authValue

	keyPair, err := crypto.GenerateECDHKeyPair()
	if err != nil {
		return f.failLocked(ErrKeyGenerationFailed)
	}
	f.keyPair = keyPair

	f.sendPDU(startPDU)
	f.state = StateStarted

	pubKeyPDU := PublicKeyMessage{XY: keyPair.PublicKeyXY()}.Encode()
	f.inputs.add(pubKeyPDU[1:])
	f.sendPDU(pubKeyPDU)

	return nil
}

func (f *FSM) handlePublicKeyLocked(msg PublicKeyMessage, payload []byte) error {
	f.inputs.add(payload)
	f.peerPublicKey = msg.XY

	sharedSecret, err := f.keyPair.SharedSecret(msg.XY)
	if err != nil {
		return f.failLocked(ErrKeyGenerationFailed)
	}
	f.sharedSecret = sharedSecret
	f.state = StatePublicKeysExchanged

	confirmationSalt, err := computeConfirmationSalt(f.inputs.bytes())
	if err != nil {
		return f.failLocked(err)
	}
	f.confirmationSalt = confirmationSalt

	confirmationKey, err := computeConfirmationKey(sharedSecret, confirmationSalt)
	if err != nil {
		return f.failLocked(err)
	}
	f.confirmationKey = confirmationKey

	if _, err := readRandom(f.provisionerRandom[:]); err != nil {
		return f.failLocked(err)
	}

	confirmation, err := computeConfirmation(confirmationKey, f.provisionerRandom[:], f.authValue)
	if err != nil {
		return f.failLocked(err)
	}

	f.sendPDU(ConfirmationMessage{Value: confirmation}.Encode())
	f.state = StateAuthenticating
	return nil
}

func (f *FSM) handleConfirmationLocked(msg ConfirmationMessage) error {
	f.sendPDU(RandomMessage{Value: f.provisionerRandom[:]}.Encode())
	f.pendingDeviceConfirmation = msg.Value
	f.state = StateConfirmed
	return nil
}

func (f *FSM) handleRandomLocked(msg RandomMessage) error {
	expected, err := computeConfirmation(f.confirmationKey, msg.Value, f.authValue)
	if err != nil {
		return f.failLocked(err)
	}
	if !constantTimeEqual(expected, f.pendingDeviceConfirmation) {
		return f.failLocked(ErrConfirmationFailed)
	}
	f.deviceRandom = msg.Value

	provisioningSalt, err := computeProvisioningSalt(f.confirmationSalt, f.provisionerRandom[:], f.deviceRandom)
	if err != nil {
		return f.failLocked(err)
	}

	sessionKey, sessionNonce, deviceKey, err := deriveSessionCrypto(f.sharedSecret, provisioningSalt)
	if err != nil {
		return f.failLocked(err)
	}
	f.sessionKey = sessionKey
	f.sessionNonce = sessionNonce
	f.deviceKey = deviceKey
	f.state = StateRandomExchanged

	ciphertext, err := encryptProvisioningData(sessionKey, sessionNonce, f.provisioningData)
	if err != nil {
		return f.failLocked(err)
	}
	f.sendPDU(DataMessage{EncryptedDataAndMIC: ciphertext}.Encode())
	f.state = StateDataSent
	return nil
}

func (f *FSM) handleCompleteLocked() error {
	f.state = StateComplete
	onComplete := f.onComplete
	deviceKey := f.deviceKey
	data := f.provisioningData
	f.mu.Unlock()
	onComplete(deviceKey, data)
	f.mu.Lock()
	return nil
}

// SetProvisioningData stores the network credentials to deliver once the
// handshake reaches StateRandomExchanged. Must be called before the
// device's Random PDU arrives.
func (f *FSM) SetProvisioningData(data ProvisioningData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.provisioningData = data
}

func (f *FSM) fail(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failLocked(err)
}

func (f *FSM) failLocked(err error) error {
	if f.state == StateFailed {
		return err
	}
	f.state = StateFailed
	onFailed := f.onFailed
	f.mu.Unlock()
	onFailed(err)
	f.mu.Lock()
	return err
}

func readRandom(buf []byte) (int, error) {
	r, err := crypto.RandomBytes(len(buf))
	if err != nil {
		return 0, err
	}
	copy(buf, r)
	return len(buf), nil
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
