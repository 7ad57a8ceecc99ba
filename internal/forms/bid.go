package forms

import (
	"time"

	"github.com/openenu/walletcore/internal/chainapi"
	"github.com/openenu/walletcore/internal/confirm"
	"github.com/openenu/walletcore/internal/registry"
	"github.com/openenu/walletcore/pkg/helpers"
	"github.com/openenu/walletcore/pkg/logging"
)

// DefaultBidDebounce is the trailing delay between the last newname edit and
// the availability / highest-bid lookups.
const DefaultBidDebounce = 200 * time.Millisecond

// bidErrorOrder is the rule precedence for bid validation.
var bidErrorOrder = []ErrorCode{
	ErrCodeInvalidBidder,
	ErrCodeInvalidNewname,
	ErrCodeInvalidBid,
	ErrCodeNotEnoughBalance,
	ErrCodeNewnameTooLong,
	ErrCodeNameNotAvailable,
	ErrCodeAlreadyHighBidder,
	ErrCodeBidTooLow,
}

// MaxBidNameLen is the longest name worth bidding on; 12-character names are
// created directly, not auctioned.
const MaxBidNameLen = 11

// BidConfig wires a bid form to its collaborators.
type BidConfig struct {
	Clock    confirm.Clock
	Dwell    time.Duration
	Debounce time.Duration
	// Symbol is the core token the balance check runs against.
	Symbol       string
	Balances     chainapi.BalanceSource
	Availability chainapi.AvailabilityLookup
	HighestBid   chainapi.HighestBidLookup
	Broadcaster  chainapi.Broadcaster
}

// BidForm validates a premium-name auction bid {bidder, newname, bid} and
// drives its confirmation flow.
type BidForm struct {
	cfg      BidConfig
	gate     *confirm.Gate
	debounce *confirm.Debouncer
	log      *logging.Logger

	// guarded by the gate for edits; lookup completions serialize through
	// apply* methods which re-check the echoed subject first
	valid          map[string]bool
	errors         errorSet
	unavailableFor string
	snapshot       chainapi.BidSnapshot
	hasSnapshot    bool
}

// NewBidForm creates a bid form in the Editing phase.
func NewBidForm(cfg BidConfig) *BidForm {
	if cfg.Clock == nil {
		cfg.Clock = confirm.SystemClock()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultBidDebounce
	}
	if cfg.Symbol == "" {
		cfg.Symbol = registry.DefaultSymbol
	}

	f := &BidForm{
		cfg:      cfg,
		debounce: confirm.NewDebouncer(cfg.Clock, cfg.Debounce),
		log:      logging.GetDefault().Component("bidform"),
		valid:    make(map[string]bool),
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
func (f *BidForm) Gate() *confirm.Gate { return f.gate }

// SetField records an edit along with its syntactic-validity flag and
// re-runs validation. Editing a locked form fails with the gate's error.
func (f *BidForm) SetField(name, value string, syntacticallyValid bool) error {
	f.valid[name] = syntacticallyValid
	if err := f.gate.SetField(name, value); err != nil {
		return err
	}
	return nil
}

// FieldChanged re-evaluates the rules and, for newname edits, schedules the
// debounced external lookups. Implements confirm.Validator.
func (f *BidForm) FieldChanged(name string) {
	f.revalidate()

	if name != "newname" {
		return
	}
	newname := f.gate.Field("newname")
	if newname == "" {
		return
	}
	f.debounce.Trigger(func() {
		if f.cfg.Availability != nil {
			f.cfg.Availability.CheckAvailability(newname, f.ApplyAvailability)
		}
		if f.cfg.HighestBid != nil {
			f.cfg.HighestBid.LookupHighestBid(newname, f.ApplyBidSnapshot)
		}
	})
}

// ApplyAvailability is the availability-lookup completion handler. A result
// whose subject no longer matches the current newname is silently dropped.
func (f *BidForm) ApplyAvailability(res chainapi.AvailabilityResult) {
	if res.Subject != f.gate.Field("newname") {
		f.log.Debug("Dropping stale availability result", "subject", res.Subject)
		return
	}
	if res.Available {
		f.unavailableFor = ""
	} else {
		f.unavailableFor = res.Subject
	}
	f.revalidate()
}

// ApplyBidSnapshot records a highest-bid snapshot, whether from a lookup
// completion or a live push. Snapshots for a different name are kept out of
// the rules by the echo match inside revalidate, so no result is ever
// applied against newer input.
func (f *BidForm) ApplyBidSnapshot(snap chainapi.BidSnapshot, found bool) {
	f.snapshot = snap
	f.hasSnapshot = found
	f.revalidate()
}

// revalidate recomputes every error slot from current field state.
func (f *BidForm) revalidate() {
	bidder := f.gate.Field("bidder")
	newname := f.gate.Field("newname")
	bid := f.gate.Field("bid")

	f.errors.set(ErrCodeInvalidBidder, bidder != "" && !f.fieldValid("bidder"))
	f.errors.set(ErrCodeInvalidNewname, newname != "" && !f.fieldValid("newname"))
	f.errors.set(ErrCodeInvalidBid, bid != "" && !f.fieldValid("bid"))

	f.errors.set(ErrCodeNotEnoughBalance, f.exceedsBalance(bidder, bid))
	f.errors.set(ErrCodeNewnameTooLong, len(newname) > MaxBidNameLen)
	f.errors.set(ErrCodeNameNotAvailable, newname != "" && newname == f.unavailableFor)

	echo := f.hasSnapshot && newname != "" && f.snapshot.NewName == newname
	f.errors.set(ErrCodeAlreadyHighBidder, echo && bidder != "" && f.snapshot.HighBidder == bidder)
	f.errors.set(ErrCodeBidTooLow, echo && bid != "" && f.bidTooLow(bid))
}

func (f *BidForm) fieldValid(name string) bool {
	v, ok := f.valid[name]
	return !ok || v
}

func (f *BidForm) exceedsBalance(bidder, bid string) bool {
	if bidder == "" || bid == "" || f.cfg.Balances == nil {
		return false
	}
	amount, err := helpers.ParseAsset(bid)
	if err != nil {
		return false
	}
	balance, ok := f.cfg.Balances.Balances(bidder)[f.cfg.Symbol]
	if !ok {
		return true
	}
	return amount.Cmp(balance) > 0
}

// bidTooLow reports whether the local bid fails to beat the snapshot's high
// bid. A bid equal to the standing high bid does not win the auction.
func (f *BidForm) bidTooLow(bid string) bool {
	local, err := helpers.ParseAsset(bid)
	if err != nil {
		return false
	}
	high, err := helpers.ParseAsset(f.snapshot.HighBid)
	if err != nil {
		return false
	}
	return local.Cmp(high) <= 0
}

// Errors returns the raised error slots in precedence order.
func (f *BidForm) Errors() []ErrorCode {
	return f.errors.inOrder(bidErrorOrder)
}

// HasError reports whether a specific slot is raised.
func (f *BidForm) HasError(code ErrorCode) bool { return f.errors[code] }

// SubmitBlocked reports whether any rule is triggered or a required field is
// missing. Implements confirm.Validator.
func (f *BidForm) SubmitBlocked() bool {
	if len(f.errors) > 0 {
		return true
	}
	for _, name := range []string{"bidder", "newname", "bid"} {
		if f.gate.Field(name) == "" {
			return true
		}
	}
	return false
}

// Submit, Confirm, Back and Close delegate to the gate.
func (f *BidForm) Submit() error  { return f.gate.Submit() }
func (f *BidForm) Confirm() error { return f.gate.Confirm() }
func (f *BidForm) Back()          { f.gate.Back() }

// Close abandons the draft and cancels any pending lookup.
func (f *BidForm) Close() {
	f.debounce.Stop()
	f.gate.Close()
}

func (f *BidForm) broadcast(fields map[string]string) {
	if f.cfg.Broadcaster == nil {
		return
	}
	bid, err := helpers.ParseAsset(fields["bid"])
	if err != nil {
		f.log.Error("Confirmed bid failed to parse", "bid", fields["bid"], "error", err)
		return
	}
	f.cfg.Broadcaster.BroadcastBid(fields["bidder"], fields["newname"], bid.String())
}
