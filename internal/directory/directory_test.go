package directory

import (
	"errors"
	"testing"

	"github.com/openenu/walletcore/internal/chainapi"
)

const testChainID = "cf057bbfb72640471fd910bcb67639c22df9f92470936cddc1ade0e2f2e7dc4f"

type fakeUnlocker struct {
	calls   []string
	failErr error
}

func (f *fakeUnlocker) Unlock(secret string) error {
	f.calls = append(f.calls, secret)
	return f.failErr
}

func record(account string, mode Mode) Record {
	return Record{
		ChainID:       testChainID,
		Account:       account,
		Authorization: "active",
		Mode:          mode,
		PublicKey:     "ENU6MRyAjQq8ud7hVNYcfnVPJqcVpscN5So8BhtHuGYqET5GDW5CV",
	}
}

func TestAddDuplicate(t *testing.T) {
	d := New(nil)
	if err := d.Add(record("alice", ModeHot)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := d.Add(record("alice", ModeWatch)); !errors.Is(err, ErrDuplicateWallet) {
		t.Errorf("Add duplicate: err = %v, want ErrDuplicateWallet", err)
	}

	// Same account under a different authorization is a different wallet
	other := record("alice", ModeHot)
	other.Authorization = "owner"
	if err := d.Add(other); err != nil {
		t.Errorf("Add other authorization: err = %v", err)
	}
}

func TestAddInvalidMode(t *testing.T) {
	d := New(nil)
	r := record("alice", Mode("frozen"))
	if err := d.Add(r); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("err = %v, want ErrInvalidMode", err)
	}
}

func TestRemoveActiveForAllModes(t *testing.T) {
	for _, mode := range []Mode{ModeHot, ModeCold, ModeWatch} {
		d := New(nil)
		r := record("alice", mode)
		if err := d.Add(r); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if err := d.SetActive(r.ChainID, r.Account, r.Authorization, ""); err != nil {
			t.Fatalf("SetActive() error = %v", err)
		}

		err := d.Remove(r.ChainID, r.Account, r.Authorization)
		if !errors.Is(err, ErrCannotRemoveActive) {
			t.Errorf("mode %s: Remove active err = %v, want ErrCannotRemoveActive", mode, err)
		}
		if _, ok := d.Get(r.ChainID, r.Account, r.Authorization); !ok {
			t.Errorf("mode %s: record vanished after rejected remove", mode)
		}
	}
}

func TestRemove(t *testing.T) {
	d := New(nil)
	a := record("alice", ModeHot)
	b := record("bob", ModeWatch)
	if err := d.Add(a); err != nil {
		t.Fatal(err)
	}
	if err := d.Add(b); err != nil {
		t.Fatal(err)
	}
	if err := d.SetActive(a.ChainID, a.Account, a.Authorization, ""); err != nil {
		t.Fatal(err)
	}

	if err := d.Remove(b.ChainID, b.Account, b.Authorization); err != nil {
		t.Errorf("Remove non-active: err = %v", err)
	}
	if err := d.Remove(b.ChainID, b.Account, b.Authorization); !errors.Is(err, ErrUnknownWallet) {
		t.Errorf("Remove twice: err = %v, want ErrUnknownWallet", err)
	}
	if got := len(d.List()); got != 1 {
		t.Errorf("List() length = %d, want 1", got)
	}
}

func TestSetActive(t *testing.T) {
	unlocker := &fakeUnlocker{}
	d := New(unlocker)
	r := record("alice", ModeHot)
	if err := d.Add(r); err != nil {
		t.Fatal(err)
	}

	if err := d.SetActive(r.ChainID, "nobody", "active", ""); !errors.Is(err, ErrUnknownWallet) {
		t.Errorf("SetActive unknown: err = %v, want ErrUnknownWallet", err)
	}
	if !d.Active().IsEmpty() {
		t.Error("failed SetActive must not change the selection")
	}

	// Without a secret the unlocker is not consulted
	if err := d.SetActive(r.ChainID, r.Account, r.Authorization, ""); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	if len(unlocker.calls) != 0 {
		t.Errorf("unlocker called %d times, want 0", len(unlocker.calls))
	}
	if !d.IsActive(r.ChainID, r.Account, r.Authorization) {
		t.Error("IsActive() = false after SetActive")
	}

	// With a secret the unlocker runs exactly once with that secret
	if err := d.SetActive(r.ChainID, r.Account, r.Authorization, "hunter2"); err != nil {
		t.Fatalf("SetActive with secret error = %v", err)
	}
	if len(unlocker.calls) != 1 || unlocker.calls[0] != "hunter2" {
		t.Errorf("unlocker calls = %v, want [hunter2]", unlocker.calls)
	}
}

func TestSetActiveUnlockFailure(t *testing.T) {
	unlocker := &fakeUnlocker{failErr: errors.New("bad password")}
	d := New(unlocker)
	a := record("alice", ModeHot)
	b := record("bob", ModeHot)
	if err := d.Add(a); err != nil {
		t.Fatal(err)
	}
	if err := d.Add(b); err != nil {
		t.Fatal(err)
	}
	if err := d.SetActive(a.ChainID, a.Account, a.Authorization, ""); err != nil {
		t.Fatal(err)
	}

	if err := d.SetActive(b.ChainID, b.Account, b.Authorization, "wrong"); err == nil {
		t.Fatal("SetActive should surface unlock failure")
	}
	if !d.IsActive(a.ChainID, a.Account, a.Authorization) {
		t.Error("failed unlock must leave previous selection in place")
	}
}

func TestRestore(t *testing.T) {
	d := New(nil)
	records := []Record{record("alice", ModeHot), record("bob", ModeWatch)}
	active := Selection{ChainID: testChainID, Account: "alice", Authorization: "active"}

	if err := d.Restore(records, active); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if !d.IsActive(testChainID, "alice", "active") {
		t.Error("active selection not restored")
	}
	if got := len(d.List()); got != 2 {
		t.Errorf("List() length = %d, want 2", got)
	}

	// A dangling active selection is cleared, not kept
	if err := d.Restore(records[:1], Selection{ChainID: testChainID, Account: "bob", Authorization: "active"}); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if !d.Active().IsEmpty() {
		t.Error("dangling active selection should be cleared")
	}

	// Duplicate snapshot entries are rejected
	if err := d.Restore([]Record{records[0], records[0]}, Selection{}); !errors.Is(err, ErrDuplicateWallet) {
		t.Errorf("Restore duplicates: err = %v, want ErrDuplicateWallet", err)
	}
}

func TestPermissionFor(t *testing.T) {
	snapshot := chainapi.AccountSnapshot{
		Name: "alice",
		Permissions: []chainapi.Permission{
			{Name: "owner", Threshold: 1, Keys: []chainapi.KeyWeight{{Key: "ENUkey1", Weight: 1}}},
			{Name: "active", Threshold: 2, Keys: []chainapi.KeyWeight{{Key: "ENUkey2", Weight: 1}, {Key: "ENUkey3", Weight: 1}}},
		},
	}

	p, err := PermissionFor(snapshot, "active")
	if err != nil {
		t.Fatalf("PermissionFor() error = %v", err)
	}
	if p.Threshold != 2 || len(p.Keys) != 2 {
		t.Errorf("Permission = %+v", p)
	}

	if _, err := PermissionFor(snapshot, "custom"); !errors.Is(err, ErrPermissionNotFound) {
		t.Errorf("missing authorization: err = %v, want ErrPermissionNotFound", err)
	}
}
