package beacon

import (
	"errors"
	"sync"
	"time"
)

// Errors returned by FSM.Accept (spec.md §4.G acceptance algorithm).
var (
	ErrStaleIVIndex  = errors.New("beacon: IV Index older than current state")
	ErrSameIndexReentry = errors.New("beacon: cannot re-enter IV Update at the same index without first crossing to a new one")
	ErrTooFarAhead   = errors.New("beacon: IV Index jumped more than 42 beyond current state")
	ErrTooSoon       = errors.New("beacon: minimum dwell time since last transition has not elapsed")
	ErrRecoveryCooldown = errors.New("beacon: recovery was used on the previous connection and the 192h cooldown has not elapsed")
)

// RecoveryWindow is the largest forward jump in IV Index accepted
// without the UnlimitedRecovery option.
const RecoveryWindow = 42

// MinDwellHours and RecoveryCooldownHours are the 96h/192h constants
// from spec.md §4.G.
const (
	MinDwellHours         = 96
	RecoveryCooldownHours = 192
)

// State is the (IV Index, IV Update active) pair tracked by the FSM.
type State struct {
	Value  uint32
	Active bool
}

// Options configures leniency not otherwise named by the acceptance
// algorithm.
type Options struct {
	// UnlimitedRecovery disables the RecoveryWindow forward-jump cap.
	UnlimitedRecovery bool
	// TestMode shortens stateDiff exactly like an active recovery would,
	// per spec.md §4.G rule 3's "(recoveryActive||testMode)" term.
	TestMode bool
}

// FSM implements the Secure Network Beacon driven IV-Index acceptance
// algorithm (spec.md §4.G), built as a mutex-guarded struct with state
// plus an externally observable transition callback, directly modeled
// on pkg/pase/window.go's Window (state enum + OnStateChange callback),
// adapted here from a single owned timer to a last-transition timestamp
// compared against wall-clock elapsed time rather than a fired deadline.
//
// Rule 1's same-index Normal->Update reject (curActive=false,
// newActive=true, new==cur) is implemented exactly as spec.md states it:
// a node may only enter IV Update in Progress by first crossing to a new
// IV Index (new.Value > cur.Value) and carrying Active=true on that same
// call, never by flipping Active while Value stays put.
type FSM struct {
	mu sync.Mutex

	state          State
	lastTransition time.Time
	recoveryUsed   bool

	opts Options
	now  func() time.Time

	onTransition func(old, new State)
}

// NewFSM creates an FSM seeded with an initial state and the timestamp
// of its last transition.
func NewFSM(initial State, lastTransition time.Time, opts Options) *FSM {
	return &FSM{state: initial, lastTransition: lastTransition, opts: opts}
}

// SetClock overrides the time source, for deterministic tests.
func (f *FSM) SetClock(now func() time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// OnTransition registers a callback invoked (outside the lock) whenever
// Accept causes a state change.
func (f *FSM) OnTransition(fn func(old, new State)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onTransition = fn
}

// State returns the current (IV Index, active) pair.
func (f *FSM) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// SegmentedOriginationAllowed reports whether new segmented messages may
// be originated: false while IV Update is in progress (spec.md §4.C/§4.G).
func (f *FSM) SegmentedOriginationAllowed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.state.Active
}

func (f *FSM) clock() time.Time {
	if f.now != nil {
		return f.now()
	}
	return time.Now()
}

func stateDiff(cur, new State, recoveryUsed, testMode bool) int {
	diff := 2*(int(new.Value)-int(cur.Value)) - 1
	if cur.Active {
		diff++
	}
	if !new.Active {
		diff++
	}
	if recoveryUsed || testMode {
		diff--
	}
	return diff
}

// Accept applies the spec.md §4.G acceptance algorithm to a
// beacon-carried (IV Index, active) pair, updating state on success.
func (f *FSM) Accept(new State) error {
	f.mu.Lock()

	cur := f.state

	if new.Value < cur.Value {
		f.mu.Unlock()
		return ErrStaleIVIndex
	}

	if new.Value == cur.Value {
		switch {
		case !cur.Active && new.Active:
			f.mu.Unlock()
			return ErrSameIndexReentry
		case cur.Active && !new.Active:
			cb := f.applyTransitionLocked(cur, new, false)
			f.mu.Unlock()
			if cb != nil {
				cb(cur, new)
			}
			return nil
		default:
			// No-op: identical state reported again.
			f.mu.Unlock()
			return nil
		}
	}

	if new.Value > cur.Value+RecoveryWindow && !f.opts.UnlimitedRecovery {
		f.mu.Unlock()
		return ErrTooFarAhead
	}

	diff := stateDiff(cur, new, f.recoveryUsed, f.opts.TestMode)
	recoveryTriggered := diff > 1

	if f.recoveryUsed {
		hoursSince := f.clock().Sub(f.lastTransition).Hours()
		if hoursSince < RecoveryCooldownHours {
			f.mu.Unlock()
			return ErrRecoveryCooldown
		}
	}

	if !recoveryTriggered {
		hoursSince := f.clock().Sub(f.lastTransition).Hours()
		if hoursSince < float64(MinDwellHours*maxInt(diff, 0)) {
			f.mu.Unlock()
			return ErrTooSoon
		}
	}

	cb := f.applyTransitionLocked(cur, new, recoveryTriggered)
	f.mu.Unlock()
	if cb != nil {
		cb(cur, new)
	}
	return nil
}

// applyTransitionLocked must be called with f.mu held; it updates state
// and returns the transition callback (if any) to be invoked by the
// caller after releasing the lock.
func (f *FSM) applyTransitionLocked(old, new State, recoveryTriggered bool) func(old, new State) {
	f.state = new
	f.lastTransition = f.clock()
	f.recoveryUsed = recoveryTriggered
	return f.onTransition
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
