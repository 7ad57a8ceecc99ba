package forms

import (
	"time"

	"github.com/openenu/walletcore/internal/chainapi"
	"github.com/openenu/walletcore/internal/confirm"
	"github.com/openenu/walletcore/internal/registry"
	"github.com/openenu/walletcore/pkg/helpers"
	"github.com/openenu/walletcore/pkg/logging"
)

// DefaultTransferDebounce is the trailing delay between the last edit to the
// destination field and the contract-code lookup.
const DefaultTransferDebounce = 400 * time.Millisecond

var transferErrorOrder = []ErrorCode{
	ErrCodeInvalidAccountName,
	ErrCodeInvalidMemo,
	ErrCodeTransferToSelf,
	ErrCodeExchangeNeedsMemo,
}

// Contact is an address-book entry. Its default memo is filled in when the
// contact is chosen as a destination and the memo field is still empty.
type Contact struct {
	Account     string `json:"account" yaml:"account"`
	DefaultMemo string `json:"defaultMemo" yaml:"default_memo"`
}

// TransferConfig wires a transfer form to its collaborators.
type TransferConfig struct {
	Clock    confirm.Clock
	Dwell    time.Duration
	Debounce time.Duration
	// Sender is the account the transfer is sent from.
	Sender string
	// Symbol and Precision describe the asset being moved.
	Symbol    string
	Precision uint8
	// Exchanges is the set of accounts known to require deposit memos.
	Exchanges map[string]bool
	// Contacts maps account names to address-book entries.
	Contacts     map[string]Contact
	ContractHash chainapi.ContractHashLookup
	Broadcaster  chainapi.Broadcaster
}

// TransferForm validates a value transfer {to, quantity, memo} and drives
// its confirmation flow. Account-name and memo validity are computed here
// rather than supplied by the caller.
type TransferForm struct {
	cfg      TransferConfig
	gate     *confirm.Gate
	debounce *confirm.Debouncer
	log      *logging.Logger

	errors errorSet
	// contractFor is the destination the advisory applies to; the advisory
	// never blocks submission.
	contractFor string
	advisory    bool
}

// NewTransferForm creates a transfer form in the Editing phase.
func NewTransferForm(cfg TransferConfig) *TransferForm {
	if cfg.Clock == nil {
		cfg.Clock = confirm.SystemClock()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultTransferDebounce
	}
	if cfg.Symbol == "" {
		cfg.Symbol = registry.DefaultSymbol
	}
	if cfg.Precision == 0 {
		cfg.Precision = helpers.DefaultPrecision
	}

	f := &TransferForm{
		cfg:      cfg,
		debounce: confirm.NewDebouncer(cfg.Clock, cfg.Debounce),
		log:      logging.GetDefault().Component("transferform"),
		errors:   make(errorSet),
	}
	f.gate = confirm.NewGate(confirm.Config{
		Clock:     cfg.Clock,
		Dwell:     cfg.Dwell,
		Validator: f,
		OnConfirm: f.broadcast,
	})
	return f
}

// Gate exposes the underlying confirmation gate.
func (f *TransferForm) Gate() *confirm.Gate { return f.gate }

// SetField records an edit and re-runs validation.
func (f *TransferForm) SetField(name, value string) error {
	return f.gate.SetField(name, value)
}

// FieldChanged re-evaluates the rules, autofills a contact's default memo,
// and schedules the debounced contract-code lookup for destination edits.
// Implements confirm.Validator.
func (f *TransferForm) FieldChanged(name string) {
	f.revalidate()

	if name != "to" {
		return
	}
	to := f.gate.Field("to")

	if c, ok := f.cfg.Contacts[to]; ok && c.DefaultMemo != "" && f.gate.Field("memo") == "" {
		if err := f.gate.SetField("memo", c.DefaultMemo); err == nil {
			f.log.Debug("Filled contact default memo", "to", to)
		}
	}

	// Destination changed: the advisory for the old destination no longer
	// applies.
	if f.contractFor != to {
		f.advisory = false
		f.contractFor = ""
	}
	if to == "" {
		return
	}
	f.debounce.Trigger(func() {
		if f.cfg.ContractHash != nil {
			f.cfg.ContractHash.LookupContractHash(to, f.ApplyContractCode)
		}
	})
}

// ApplyContractCode is the contract-lookup completion handler. A result for
// an account that is no longer the current destination is silently dropped.
func (f *TransferForm) ApplyContractCode(code chainapi.ContractCode) {
	if code.Account != f.gate.Field("to") {
		f.log.Debug("Dropping stale contract-code result", "account", code.Account)
		return
	}
	f.contractFor = code.Account
	f.advisory = code.HasContract()
}

// ContractAdvisory reports whether the current destination holds deployed
// contract code. Advisory only: it never disables submission.
func (f *TransferForm) ContractAdvisory() bool {
	return f.advisory && f.contractFor == f.gate.Field("to")
}

func (f *TransferForm) revalidate() {
	to := f.gate.Field("to")
	memo := f.gate.Field("memo")

	f.errors.set(ErrCodeInvalidAccountName, to != "" && !helpers.IsValidAccountName(to))
	f.errors.set(ErrCodeInvalidMemo, !helpers.IsValidMemo(memo))
	f.errors.set(ErrCodeTransferToSelf, to != "" && to == f.cfg.Sender)
	f.errors.set(ErrCodeExchangeNeedsMemo, f.cfg.Exchanges[to] && memo == "")
}

// incomplete reports whether the draft is missing a destination or carries a
// zero quantity. Not an error state; it only blocks submission.
func (f *TransferForm) incomplete() bool {
	if f.gate.Field("to") == "" {
		return true
	}
	quantity := f.gate.Field("quantity")
	if quantity == "" {
		return true
	}
	amount, err := helpers.ParseAmount(quantity, f.cfg.Precision)
	if err != nil {
		return true
	}
	return amount == 0
}

// Errors returns the raised error slots in precedence order.
func (f *TransferForm) Errors() []ErrorCode {
	return f.errors.inOrder(transferErrorOrder)
}

// HasError reports whether a specific slot is raised.
func (f *TransferForm) HasError(code ErrorCode) bool { return f.errors[code] }

// SubmitBlocked reports whether the draft is incomplete or any rule is
// triggered. Implements confirm.Validator.
func (f *TransferForm) SubmitBlocked() bool {
	return f.incomplete() || len(f.errors) > 0
}

func (f *TransferForm) Submit() error  { return f.gate.Submit() }
func (f *TransferForm) Confirm() error { return f.gate.Confirm() }
func (f *TransferForm) Back()          { f.gate.Back() }

// Close abandons the draft and cancels any pending lookup.
func (f *TransferForm) Close() {
	f.debounce.Stop()
	f.gate.Close()
}

func (f *TransferForm) broadcast(fields map[string]string) {
	if f.cfg.Broadcaster == nil {
		return
	}
	amount, err := helpers.ParseAmount(fields["quantity"], f.cfg.Precision)
	if err != nil {
		f.log.Error("Confirmed transfer failed to parse", "quantity", fields["quantity"], "error", err)
		return
	}
	quantity := helpers.Asset{Amount: amount, Precision: f.cfg.Precision, Symbol: f.cfg.Symbol}
	f.cfg.Broadcaster.BroadcastTransfer(f.cfg.Sender, fields["to"], quantity.String(), fields["memo"], f.cfg.Symbol)
}
