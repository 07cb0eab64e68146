// Package opstate tracks the lifecycle of asynchronous operations against the
// remote API. Each machine moves idle → loading → succeeded|failed|partial and
// back to idle on Reset. A Ticket issued by Begin is the cancellation token of
// one in-flight attempt; completions presented with any other ticket are
// dropped.
package opstate

import (
	"context"
	"errors"
	"sync"
)

// Status represents the current state of an operation
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	// StatusPartial marks a multi-step operation whose first step committed
	// on the server while a later step failed
	StatusPartial Status = "partial"
)

// IsTerminal returns true if the status is a terminal state
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusPartial
}

// Kind names the operation a machine tracks
type Kind string

const (
	KindFetch   Kind = "fetch"
	KindAdd     Kind = "add"
	KindUpdate  Kind = "update"
	KindDelete  Kind = "delete"
	KindEnable  Kind = "enable"
	KindDisable Kind = "disable"
	KindAttach  Kind = "attach"
)

// Common errors
var (
	ErrBusy  = errors.New("operation already in progress")
	ErrStale = errors.New("operation ticket is no longer current")
)

// State is a point-in-time view of a machine
type State struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Ticket identifies one attempt started by Begin
type Ticket struct {
	seq    uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// Context returns the context the attempt's network call must use. It is
// cancelled when the ticket is cancelled or completed.
func (t *Ticket) Context() context.Context {
	return t.ctx
}

// Machine is the status tracker of one (entity type, operation kind) pair
type Machine struct {
	mu      sync.Mutex
	status  Status
	errMsg  string
	seq     uint64
	current *Ticket
}

// NewMachine creates a machine in the idle state
func NewMachine() *Machine {
	return &Machine{status: StatusIdle}
}

// State returns the current status and error message
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{Status: m.status, Error: m.errMsg}
}

// Begin moves an idle machine to loading and issues the attempt's ticket
func (m *Machine) Begin(ctx context.Context) (*Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusIdle {
		return nil, ErrBusy
	}

	m.seq++
	tctx, cancel := context.WithCancel(ctx)
	t := &Ticket{seq: m.seq, ctx: tctx, cancel: cancel}
	m.current = t
	m.status = StatusLoading
	m.errMsg = ""
	return t, nil
}

// Succeed completes the attempt. apply runs under the machine lock before the
// transition and only when t is still current, so a stale completion never
// reaches the stores.
func (m *Machine) Succeed(t *Ticket, apply func()) error {
	return m.complete(t, StatusSucceeded, "", apply)
}

// Fail completes the attempt with a human-readable message
func (m *Machine) Fail(t *Ticket, msg string) error {
	return m.complete(t, StatusFailed, msg, nil)
}

// Partial completes the attempt as partially applied. apply carries the
// mutations of the steps that did commit.
func (m *Machine) Partial(t *Ticket, msg string, apply func()) error {
	return m.complete(t, StatusPartial, msg, apply)
}

func (m *Machine) complete(t *Ticket, to Status, msg string, apply func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t == nil || m.current != t || m.status != StatusLoading {
		return ErrStale
	}

	if apply != nil {
		apply()
	}

	t.cancel()
	m.current = nil
	m.status = to
	m.errMsg = msg
	return nil
}

// Cancel abandons the attempt identified by t. The machine returns to idle
// and the attempt's eventual completion is dropped.
func (m *Machine) Cancel(t *Ticket) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t == nil || m.current != t {
		return false
	}

	t.cancel()
	m.current = nil
	m.status = StatusIdle
	m.errMsg = ""
	return true
}

// CancelCurrent abandons whatever attempt is in flight
func (m *Machine) CancelCurrent() bool {
	m.mu.Lock()
	t := m.current
	m.mu.Unlock()
	return m.Cancel(t)
}

// Reset dismisses a terminal state. It is the only way back to idle after a
// completion and never re-runs the operation.
func (m *Machine) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == StatusLoading {
		return ErrBusy
	}
	m.status = StatusIdle
	m.errMsg = ""
	return nil
}

// Set holds one machine per operation kind for a single entity type
type Set struct {
	machines map[Kind]*Machine
}

// NewSet creates idle machines for the given kinds
func NewSet(kinds ...Kind) *Set {
	s := &Set{machines: make(map[Kind]*Machine, len(kinds))}
	for _, k := range kinds {
		s.machines[k] = NewMachine()
	}
	return s
}

// Get returns the machine for kind, or nil if the entity has no such operation
func (s *Set) Get(kind Kind) *Machine {
	return s.machines[kind]
}

// Kinds lists the operation kinds tracked by the set
func (s *Set) Kinds() []Kind {
	kinds := make([]Kind, 0, len(s.machines))
	for _, k := range allKinds {
		if _, ok := s.machines[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Snapshot returns the state of every machine in the set
func (s *Set) Snapshot() map[Kind]State {
	out := make(map[Kind]State, len(s.machines))
	for k, m := range s.machines {
		out[k] = m.State()
	}
	return out
}

var allKinds = []Kind{KindFetch, KindAdd, KindUpdate, KindDelete, KindEnable, KindDisable, KindAttach}

// ParseKind converts a string into a known Kind
func ParseKind(s string) (Kind, bool) {
	for _, k := range allKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}
