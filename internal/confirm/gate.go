// Package confirm implements the staged submission flow every form that
// broadcasts a transaction goes through: editing, a mandatory dwell period
// after submit, and an explicit confirm. The dwell period exists so a user
// cannot fat-finger a broadcast; confirming before it elapses is a caller
// bug, not a user error.
package confirm

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openenu/walletcore/pkg/logging"
)

// DefaultDwell is how long a submitted draft must rest before it can be
// confirmed.
const DefaultDwell = 3000 * time.Millisecond

// Gate errors. A correct caller gates its calls on Phase and never sees
// these.
var (
	ErrPrematureConfirm = errors.New("confirm before dwell period elapsed")
	ErrFormLocked       = errors.New("form is locked in its current phase")
	ErrSubmitBlocked    = errors.New("submit with blocking validation errors")
)

// Phase is the lifecycle state of a draft.
type Phase string

const (
	Editing        Phase = "editing"
	AwaitingDwell  Phase = "awaiting_dwell"
	ReadyToConfirm Phase = "ready_to_confirm"
	Confirmed      Phase = "confirmed"
	Cancelled      Phase = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p == Confirmed || p == Cancelled
}

// Validator lets the owning form veto submission and react to edits. All
// calls happen with the gate's draft already updated.
type Validator interface {
	// FieldChanged is invoked after an edit is recorded while Editing.
	FieldChanged(name string)
	// SubmitBlocked reports whether blocking errors or missing required
	// fields prevent submission.
	SubmitBlocked() bool
}

// Config wires a Gate. Zero values fall back to the system clock and the
// default dwell.
type Config struct {
	Clock     Clock
	Dwell     time.Duration
	Validator Validator
	// OnReady fires when the dwell period elapses uncancelled.
	OnReady func()
	// OnConfirm receives the accepted field values exactly once.
	OnConfirm func(fields map[string]string)
}

// Gate owns one draft submission and enforces its phase transitions. Safe
// for concurrent use; the dwell timer fires on its own goroutine.
type Gate struct {
	mu             sync.Mutex
	id             string
	clock          Clock
	dwell          time.Duration
	validator      Validator
	onReady        func()
	onConfirm      func(fields map[string]string)
	phase          Phase
	fields         map[string]string
	dwellStartedAt time.Time
	timer          Timer
	log            *logging.Logger
}

// NewGate creates a gate in the Editing phase with a fresh draft ID.
func NewGate(cfg Config) *Gate {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Dwell <= 0 {
		cfg.Dwell = DefaultDwell
	}
	return &Gate{
		id:        uuid.NewString(),
		clock:     cfg.Clock,
		dwell:     cfg.Dwell,
		validator: cfg.Validator,
		onReady:   cfg.OnReady,
		onConfirm: cfg.OnConfirm,
		phase:     Editing,
		fields:    make(map[string]string),
		log:       logging.GetDefault().Component("confirm"),
	}
}

// ID returns the draft identifier.
func (g *Gate) ID() string { return g.id }

// Phase returns the current lifecycle phase.
func (g *Gate) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// Field returns the current value of a draft field.
func (g *Gate) Field(name string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fields[name]
}

// Fields returns a copy of all draft field values.
func (g *Gate) Fields() map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return copyFields(g.fields)
}

// DwellStartedAt returns when the current dwell period began. Zero unless
// the draft has been submitted.
func (g *Gate) DwellStartedAt() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dwellStartedAt
}

// SetField records an edit. Only legal while Editing; everywhere else the
// form is locked.
func (g *Gate) SetField(name, value string) error {
	g.mu.Lock()
	if g.phase != Editing {
		g.mu.Unlock()
		return ErrFormLocked
	}
	g.fields[name] = value
	v := g.validator
	g.mu.Unlock()

	if v != nil {
		v.FieldChanged(name)
	}
	return nil
}

// Submit moves the draft into the dwell period. The validator must not be
// blocking; required-field and error checks live there.
func (g *Gate) Submit() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != Editing {
		return ErrFormLocked
	}
	if g.validator != nil && g.validator.SubmitBlocked() {
		return ErrSubmitBlocked
	}

	g.phase = AwaitingDwell
	g.dwellStartedAt = g.clock.Now()
	g.timer = g.clock.AfterFunc(g.dwell, g.dwellElapsed)
	g.log.Debug("Draft submitted", "draft", g.id, "dwell", g.dwell)
	return nil
}

func (g *Gate) dwellElapsed() {
	g.mu.Lock()
	if g.phase != AwaitingDwell {
		g.mu.Unlock()
		return
	}
	g.phase = ReadyToConfirm
	ready := g.onReady
	g.mu.Unlock()

	if ready != nil {
		ready()
	}
}

// Confirm finalizes the draft and hands the accepted field values to the
// confirm callback. Legal only from ReadyToConfirm: earlier phases fail
// with ErrPrematureConfirm, terminal phases with ErrFormLocked. The
// callback runs at most once per gate.
func (g *Gate) Confirm() error {
	g.mu.Lock()
	switch g.phase {
	case ReadyToConfirm:
	case Editing, AwaitingDwell:
		g.mu.Unlock()
		return ErrPrematureConfirm
	default:
		g.mu.Unlock()
		return ErrFormLocked
	}

	g.phase = Confirmed
	accepted := copyFields(g.fields)
	done := g.onConfirm
	g.mu.Unlock()

	g.log.Info("Draft confirmed", "draft", g.id)
	if done != nil {
		done(accepted)
	}
	return nil
}

// Back returns a submitted draft to Editing with its field values intact,
// cancelling any pending dwell timer. A no-op while Editing or after
// Confirmed.
func (g *Gate) Back() {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.phase {
	case AwaitingDwell, ReadyToConfirm:
	default:
		return
	}

	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.phase = Editing
	g.dwellStartedAt = time.Time{}
	g.log.Debug("Draft returned to editing", "draft", g.id)
}

// Cancel is Back under its other name; both abort the dwell and keep the
// draft editable.
func (g *Gate) Cancel() { g.Back() }

// Close abandons the draft from any non-terminal phase, stopping timers.
// Used when the owning form goes away entirely.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase.Terminal() {
		return
	}
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.phase = Cancelled
	g.log.Debug("Draft cancelled", "draft", g.id)
}

func copyFields(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
