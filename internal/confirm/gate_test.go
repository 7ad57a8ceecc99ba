package confirm

import (
	"errors"
	"testing"
	"time"
)

type blockableValidator struct {
	blocked bool
	changed []string
}

func (v *blockableValidator) FieldChanged(name string) { v.changed = append(v.changed, name) }
func (v *blockableValidator) SubmitBlocked() bool      { return v.blocked }

func TestConfirmTiming(t *testing.T) {
	clock := NewManualClock(time.Unix(1700000000, 0))
	g := NewGate(Config{Clock: clock})

	if err := g.SetField("to", "teamgreymass"); err != nil {
		t.Fatalf("SetField() error = %v", err)
	}
	if err := g.Submit(); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got := g.Phase(); got != AwaitingDwell {
		t.Fatalf("Phase() = %s, want %s", got, AwaitingDwell)
	}

	// One millisecond short of the dwell: still premature
	clock.Advance(DefaultDwell - time.Millisecond)
	if err := g.Confirm(); !errors.Is(err, ErrPrematureConfirm) {
		t.Errorf("Confirm at dwell-1ms: err = %v, want ErrPrematureConfirm", err)
	}

	// One more millisecond and the confirm goes through
	clock.Advance(time.Millisecond)
	if got := g.Phase(); got != ReadyToConfirm {
		t.Fatalf("Phase() = %s, want %s", got, ReadyToConfirm)
	}
	if err := g.Confirm(); err != nil {
		t.Errorf("Confirm at dwell: err = %v", err)
	}
	if got := g.Phase(); got != Confirmed {
		t.Errorf("Phase() = %s, want %s", got, Confirmed)
	}
}

func TestConfirmRunsCallbackOnce(t *testing.T) {
	clock := NewManualClock(time.Unix(1700000000, 0))
	var calls []map[string]string
	g := NewGate(Config{Clock: clock, OnConfirm: func(fields map[string]string) {
		calls = append(calls, fields)
	}})

	if err := g.SetField("quantity", "3.0000 ENU"); err != nil {
		t.Fatal(err)
	}
	if err := g.Submit(); err != nil {
		t.Fatal(err)
	}
	clock.Advance(DefaultDwell)
	if err := g.Confirm(); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if err := g.Confirm(); !errors.Is(err, ErrFormLocked) {
		t.Errorf("second Confirm: err = %v, want ErrFormLocked", err)
	}

	if len(calls) != 1 {
		t.Fatalf("confirm callback ran %d times, want 1", len(calls))
	}
	if calls[0]["quantity"] != "3.0000 ENU" {
		t.Errorf("accepted fields = %v", calls[0])
	}
}

func TestBackCancelsDwell(t *testing.T) {
	clock := NewManualClock(time.Unix(1700000000, 0))
	g := NewGate(Config{Clock: clock})

	if err := g.SetField("memo", "rent"); err != nil {
		t.Fatal(err)
	}
	if err := g.Submit(); err != nil {
		t.Fatal(err)
	}

	clock.Advance(DefaultDwell / 2)
	g.Back()
	if got := g.Phase(); got != Editing {
		t.Fatalf("Phase() = %s, want %s after Back", got, Editing)
	}
	if g.Field("memo") != "rent" {
		t.Error("Back must preserve field values")
	}

	// The old timer must not promote the draft later
	clock.Advance(DefaultDwell)
	if got := g.Phase(); got != Editing {
		t.Errorf("Phase() = %s, stale dwell timer fired after Back", got)
	}

	// A fresh submit restarts the full dwell
	if err := g.Submit(); err != nil {
		t.Fatal(err)
	}
	clock.Advance(DefaultDwell - time.Millisecond)
	if err := g.Confirm(); !errors.Is(err, ErrPrematureConfirm) {
		t.Errorf("resubmit does not restart dwell: err = %v", err)
	}
	clock.Advance(time.Millisecond)
	if err := g.Confirm(); err != nil {
		t.Errorf("Confirm() error = %v", err)
	}
}

func TestEditLockedOutsideEditing(t *testing.T) {
	clock := NewManualClock(time.Unix(1700000000, 0))
	g := NewGate(Config{Clock: clock})

	if err := g.Submit(); err != nil {
		t.Fatal(err)
	}
	if err := g.SetField("to", "x"); !errors.Is(err, ErrFormLocked) {
		t.Errorf("SetField while AwaitingDwell: err = %v, want ErrFormLocked", err)
	}
	clock.Advance(DefaultDwell)
	if err := g.SetField("to", "x"); !errors.Is(err, ErrFormLocked) {
		t.Errorf("SetField while ReadyToConfirm: err = %v, want ErrFormLocked", err)
	}
	if err := g.Submit(); !errors.Is(err, ErrFormLocked) {
		t.Errorf("Submit while ReadyToConfirm: err = %v, want ErrFormLocked", err)
	}
}

func TestSubmitBlockedByValidator(t *testing.T) {
	v := &blockableValidator{blocked: true}
	g := NewGate(Config{Clock: NewManualClock(time.Unix(1700000000, 0)), Validator: v})

	if err := g.Submit(); !errors.Is(err, ErrSubmitBlocked) {
		t.Fatalf("Submit() error = %v, want ErrSubmitBlocked", err)
	}
	if got := g.Phase(); got != Editing {
		t.Errorf("Phase() = %s, blocked submit must not advance", got)
	}

	v.blocked = false
	if err := g.Submit(); err != nil {
		t.Errorf("Submit() error = %v", err)
	}
}

func TestValidatorSeesEdits(t *testing.T) {
	v := &blockableValidator{}
	g := NewGate(Config{Clock: NewManualClock(time.Unix(1700000000, 0)), Validator: v})

	if err := g.SetField("to", "alice"); err != nil {
		t.Fatal(err)
	}
	if err := g.SetField("quantity", "1.0000 ENU"); err != nil {
		t.Fatal(err)
	}
	if len(v.changed) != 2 || v.changed[0] != "to" || v.changed[1] != "quantity" {
		t.Errorf("FieldChanged calls = %v", v.changed)
	}
}

func TestCloseStopsEverything(t *testing.T) {
	clock := NewManualClock(time.Unix(1700000000, 0))
	ready := false
	g := NewGate(Config{Clock: clock, OnReady: func() { ready = true }})

	if err := g.Submit(); err != nil {
		t.Fatal(err)
	}
	g.Close()
	if got := g.Phase(); got != Cancelled {
		t.Fatalf("Phase() = %s, want %s", got, Cancelled)
	}

	clock.Advance(DefaultDwell * 2)
	if ready {
		t.Error("dwell timer fired after Close")
	}
	if err := g.SetField("to", "x"); !errors.Is(err, ErrFormLocked) {
		t.Errorf("SetField after Close: err = %v", err)
	}
	if err := g.Confirm(); !errors.Is(err, ErrFormLocked) {
		t.Errorf("Confirm after Close: err = %v", err)
	}
}

func TestOnReadyFires(t *testing.T) {
	clock := NewManualClock(time.Unix(1700000000, 0))
	ready := 0
	g := NewGate(Config{Clock: clock, Dwell: time.Second, OnReady: func() { ready++ }})

	if err := g.Submit(); err != nil {
		t.Fatal(err)
	}
	clock.Advance(999 * time.Millisecond)
	if ready != 0 {
		t.Fatal("OnReady fired early")
	}
	clock.Advance(time.Millisecond)
	if ready != 1 {
		t.Errorf("OnReady fired %d times, want 1", ready)
	}
}

func TestDebouncerTrailingEdge(t *testing.T) {
	clock := NewManualClock(time.Unix(1700000000, 0))
	d := NewDebouncer(clock, 200*time.Millisecond)

	var got []string
	for _, name := range []string{"a", "al", "ali", "alice"} {
		name := name
		d.Trigger(func() { got = append(got, name) })
		clock.Advance(50 * time.Millisecond)
	}
	clock.Advance(200 * time.Millisecond)

	if len(got) != 1 || got[0] != "alice" {
		t.Errorf("debounced calls = %v, want only the last", got)
	}
}

func TestDebouncerStop(t *testing.T) {
	clock := NewManualClock(time.Unix(1700000000, 0))
	d := NewDebouncer(clock, 200*time.Millisecond)

	fired := false
	d.Trigger(func() { fired = true })
	d.Stop()
	clock.Advance(time.Second)
	if fired {
		t.Error("Stop did not cancel the pending call")
	}
}
