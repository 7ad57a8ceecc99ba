// Package directory tracks stored wallet credentials and which one is
// currently in use. A wallet is identified by the composite key
// (chain ID, account, authorization); the active selection is the single
// process-wide "current wallet" every other component consults.
package directory

import (
	"errors"
	"sync"

	"github.com/openenu/walletcore/internal/chainapi"
	"github.com/openenu/walletcore/pkg/logging"
)

// Directory errors. These signal caller bugs (invoking an operation in an
// illegal state), not user-facing conditions; a correct UI gates its calls
// and never sees them.
var (
	ErrDuplicateWallet    = errors.New("wallet already exists")
	ErrUnknownWallet      = errors.New("wallet not found")
	ErrCannotRemoveActive = errors.New("cannot remove the wallet currently in use")
	ErrInvalidMode        = errors.New("invalid wallet mode")
	ErrPermissionNotFound = errors.New("authorization not present on chain")
)

// Mode describes a wallet's signing capability.
type Mode string

const (
	ModeHot   Mode = "hot"   // key held locally, unlockable
	ModeCold  Mode = "cold"  // key held offline, elevated confirmation
	ModeWatch Mode = "watch" // no signing capability, observation only
)

// Valid reports whether m is a known wallet mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeHot, ModeCold, ModeWatch:
		return true
	}
	return false
}

// Record is one stored wallet credential reference. The chain ID is a
// non-owning reference into the chain registry.
type Record struct {
	ChainID       string `json:"chainId"`
	Account       string `json:"account"`
	Authorization string `json:"authorization"`
	Mode          Mode   `json:"mode"`
	PublicKey     string `json:"pubkey"`
}

// key returns the composite identity of the record.
func (r Record) key() Selection {
	return Selection{ChainID: r.ChainID, Account: r.Account, Authorization: r.Authorization}
}

// Selection names one wallet: the (chain, account, authorization) triple.
// The zero value means "no wallet selected".
type Selection struct {
	ChainID       string `json:"chainId"`
	Account       string `json:"account"`
	Authorization string `json:"authorization"`
}

// IsEmpty reports whether no wallet is selected.
func (s Selection) IsEmpty() bool {
	return s == Selection{}
}

// Directory owns the wallet records and the active selection. Safe for
// concurrent use.
type Directory struct {
	mu       sync.RWMutex
	records  map[Selection]Record
	order    []Selection
	active   Selection
	unlocker chainapi.Unlocker
	log      *logging.Logger
}

// New creates an empty directory. The unlocker may be nil when no local
// signer is attached (pure watch setups).
func New(unlocker chainapi.Unlocker) *Directory {
	return &Directory{
		records:  make(map[Selection]Record),
		unlocker: unlocker,
		log:      logging.GetDefault().Component("wallets"),
	}
}

// Restore replaces the directory contents with a persisted snapshot.
// Duplicate keys in the snapshot are rejected. An active selection that no
// longer matches a record is cleared rather than kept dangling.
func (d *Directory) Restore(records []Record, active Selection) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	fresh := make(map[Selection]Record, len(records))
	order := make([]Selection, 0, len(records))
	for _, r := range records {
		if !r.Mode.Valid() {
			return ErrInvalidMode
		}
		k := r.key()
		if _, ok := fresh[k]; ok {
			return ErrDuplicateWallet
		}
		fresh[k] = r
		order = append(order, k)
	}

	d.records = fresh
	d.order = order
	if _, ok := fresh[active]; ok {
		d.active = active
	} else {
		d.active = Selection{}
	}
	return nil
}

// Add stores a new wallet record.
func (d *Directory) Add(r Record) error {
	if !r.Mode.Valid() {
		return ErrInvalidMode
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	k := r.key()
	if _, ok := d.records[k]; ok {
		return ErrDuplicateWallet
	}
	d.records[k] = r
	d.order = append(d.order, k)
	d.log.Info("Wallet added", "account", r.Account, "authorization", r.Authorization, "mode", r.Mode)
	return nil
}

// Remove deletes a wallet record. Removing the wallet currently in use is
// rejected for every mode; callers must swap away from it first.
func (d *Directory) Remove(chainID, account, authorization string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	k := Selection{ChainID: chainID, Account: account, Authorization: authorization}
	if k == d.active {
		return ErrCannotRemoveActive
	}
	if _, ok := d.records[k]; !ok {
		return ErrUnknownWallet
	}

	delete(d.records, k)
	for i, o := range d.order {
		if o == k {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	d.log.Info("Wallet removed", "account", account, "authorization", authorization)
	return nil
}

// SetActive makes the named wallet current. When secret is non-empty the
// external unlocker is invoked with it; the secret is never stored. Swapping
// fails if the wallet is unknown, and an unlock failure leaves the previous
// selection in place.
func (d *Directory) SetActive(chainID, account, authorization, secret string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	k := Selection{ChainID: chainID, Account: account, Authorization: authorization}
	if _, ok := d.records[k]; !ok {
		return ErrUnknownWallet
	}

	if secret != "" && d.unlocker != nil {
		if err := d.unlocker.Unlock(secret); err != nil {
			return err
		}
	}

	d.active = k
	d.log.Info("Active wallet changed", "account", account, "authorization", authorization)
	return nil
}

// ClearActive drops the current selection without touching records.
func (d *Directory) ClearActive() {
	d.mu.Lock()
	d.active = Selection{}
	d.mu.Unlock()
}

// Active returns the current selection (possibly empty).
func (d *Directory) Active() Selection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.active
}

// IsActive reports whether the named wallet is the one in use.
func (d *Directory) IsActive(chainID, account, authorization string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.active == Selection{ChainID: chainID, Account: account, Authorization: authorization}
}

// Get returns a stored record by its composite key.
func (d *Directory) Get(chainID, account, authorization string) (Record, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.records[Selection{ChainID: chainID, Account: account, Authorization: authorization}]
	return r, ok
}

// List returns all records in insertion order.
func (d *Directory) List() []Record {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Record, 0, len(d.order))
	for _, k := range d.order {
		out = append(out, d.records[k])
	}
	return out
}

// PermissionFor projects an authorization's threshold and key data out of an
// externally supplied account snapshot. Read-only; returns
// ErrPermissionNotFound when the authorization does not exist on chain.
func PermissionFor(snapshot chainapi.AccountSnapshot, authorization string) (chainapi.Permission, error) {
	p, ok := snapshot.Permission(authorization)
	if !ok {
		return chainapi.Permission{}, ErrPermissionNotFound
	}
	return p, nil
}
