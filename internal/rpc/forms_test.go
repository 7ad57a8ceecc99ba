package rpc

import (
	"testing"
	"time"

	"github.com/openenu/walletcore/internal/confirm"
	"github.com/openenu/walletcore/internal/forms"
)

// newFormTestServer attaches a manual clock and an idle hub so tests can
// step timers and inspect pushed events without a running server.
func newFormTestServer(t *testing.T) (*Server, *confirm.ManualClock) {
	t.Helper()
	s := newTestServer(t)
	clock := confirm.NewManualClock(time.Unix(1700000000, 0))
	s.formClock = clock
	s.wsHub = NewWSHub()
	return s, clock
}

// drainEvents empties the hub's broadcast buffer.
func drainEvents(hub *WSHub) []*WSEvent {
	var out []*WSEvent
	for {
		select {
		case ev := <-hub.broadcast:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventsOfType(events []*WSEvent, t EventType) []*WSEvent {
	var out []*WSEvent
	for _, ev := range events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func bidDraft(t *testing.T, s *Server, bidder string) string {
	t.Helper()
	var status FormStatusResult
	result(t, call(t, s, "bid_create", BidCreateParams{Bidder: bidder}), &status)
	if status.Phase != "editing" {
		t.Fatalf("new draft phase = %s", status.Phase)
	}
	return status.DraftID
}

func setField(t *testing.T, s *Server, method, draft, name, value string) *FormStatusResult {
	t.Helper()
	var status FormStatusResult
	result(t, call(t, s, method, FormSetFieldParams{DraftID: draft, Name: name, Value: value}), &status)
	return &status
}

func TestBidDraftLifecycle(t *testing.T) {
	s, clock := newFormTestServer(t)
	result(t, call(t, s, "balances_set", BalancesSetParams{
		Account: "alice", Balances: []string{"100.0000 ENU"},
	}), &map[string]int{})

	draft := bidDraft(t, s, "alice")
	setField(t, s, "bid_setField", draft, "newname", "bob")
	status := setField(t, s, "bid_setField", draft, "bid", "3.0000 ENU")
	if len(status.Errors) != 0 || status.SubmitBlocked {
		t.Fatalf("clean draft blocked: %+v", status)
	}

	// Confirm is rejected until the dwell has run
	if resp := call(t, s, "bid_confirm", FormDraftParams{DraftID: draft}); resp.Error == nil {
		t.Fatal("confirm before submit succeeded")
	}
	result(t, call(t, s, "bid_submit", FormDraftParams{DraftID: draft}), &status)
	if status.Phase != "awaiting_dwell" {
		t.Fatalf("phase after submit = %s", status.Phase)
	}
	if resp := call(t, s, "bid_confirm", FormDraftParams{DraftID: draft}); resp.Error == nil {
		t.Fatal("confirm during dwell succeeded")
	}

	clock.Advance(s.cfg.Confirm.Dwell())
	result(t, call(t, s, "bid_status", FormDraftParams{DraftID: draft}), &status)
	if status.Phase != "ready_to_confirm" {
		t.Fatalf("phase after dwell = %s", status.Phase)
	}

	drainEvents(s.wsHub)
	result(t, call(t, s, "bid_confirm", FormDraftParams{DraftID: draft}), &status)
	if status.Phase != "confirmed" {
		t.Fatalf("phase after confirm = %s", status.Phase)
	}

	// The confirmed bid goes out as a signing request
	requests := eventsOfType(drainEvents(s.wsHub), EventBroadcastRequest)
	if len(requests) != 1 {
		t.Fatalf("broadcast requests = %d, want 1", len(requests))
	}
	req := requests[0].Data.(BroadcastRequest)
	if req.Action != "bidname" || req.Fields["bidder"] != "alice" ||
		req.Fields["newname"] != "bob" || req.Fields["bid"] != "3.0000 ENU" {
		t.Errorf("request = %+v", req)
	}

	if resp := call(t, s, "bid_confirm", FormDraftParams{DraftID: draft}); resp.Error == nil {
		t.Error("second confirm succeeded")
	}
}

func TestBidLookupRelayRoundTrip(t *testing.T) {
	s, clock := newFormTestServer(t)
	draft := bidDraft(t, s, "alice")
	setField(t, s, "bid_setField", draft, "newname", "bob")

	// The debounced lookups go out as websocket requests
	clock.Advance(s.cfg.Confirm.BidDebounce())
	requests := eventsOfType(drainEvents(s.wsHub), EventLookupRequest)
	kinds := make(map[string]string)
	for _, ev := range requests {
		req := ev.Data.(LookupRequest)
		kinds[req.Kind] = req.Subject
	}
	if kinds["availability"] != "bob" || kinds["highest_bid"] != "bob" {
		t.Fatalf("lookup requests = %v", kinds)
	}

	var status FormStatusResult
	result(t, call(t, s, "bid_applyAvailability", BidApplyAvailabilityParams{
		DraftID: draft, Subject: "bob", Available: false,
	}), &status)
	if !hasCode(status.Errors, forms.ErrCodeNameNotAvailable) {
		t.Fatalf("errors = %v, want name-not-available", status.Errors)
	}

	// Editing the name clears the error; a late answer for the old name is
	// dropped
	setField(t, s, "bid_setField", draft, "newname", "carol")
	result(t, call(t, s, "bid_applyAvailability", BidApplyAvailabilityParams{
		DraftID: draft, Subject: "bob", Available: false,
	}), &status)
	if hasCode(status.Errors, forms.ErrCodeNameNotAvailable) {
		t.Errorf("stale result raised an error: %v", status.Errors)
	}
}

func TestBidSnapshotAppliesAndRebroadcasts(t *testing.T) {
	s, _ := newFormTestServer(t)
	draft := bidDraft(t, s, "alice")
	setField(t, s, "bid_setField", draft, "newname", "bob")
	setField(t, s, "bid_setField", draft, "bid", "3.0000 ENU")

	// A live push without a draft ID reaches every open draft
	drainEvents(s.wsHub)
	result(t, call(t, s, "bid_applySnapshot", BidApplySnapshotParams{
		NewName: "bob", HighBid: "5.0000 ENU", HighBidder: "eve", Found: true,
	}), &map[string]bool{})

	var status FormStatusResult
	result(t, call(t, s, "bid_status", FormDraftParams{DraftID: draft}), &status)
	if !hasCode(status.Errors, forms.ErrCodeBidTooLow) {
		t.Fatalf("errors = %v, want bid-too-low", status.Errors)
	}

	snaps := eventsOfType(drainEvents(s.wsHub), EventBidSnapshot)
	if len(snaps) != 1 {
		t.Fatalf("bid_snapshot events = %d, want 1", len(snaps))
	}

	// Outbidding the snapshot clears the error
	result(t, call(t, s, "bid_setField", FormSetFieldParams{
		DraftID: draft, Name: "bid", Value: "6.0000 ENU",
	}), &status)
	if hasCode(status.Errors, forms.ErrCodeBidTooLow) {
		t.Errorf("errors = %v after outbidding", status.Errors)
	}
}

func TestBidBalanceFromCache(t *testing.T) {
	s, _ := newFormTestServer(t)
	result(t, call(t, s, "balances_set", BalancesSetParams{
		Account: "alice", Balances: []string{"2.0000 ENU"},
	}), &map[string]int{})

	draft := bidDraft(t, s, "alice")
	setField(t, s, "bid_setField", draft, "newname", "bob")
	status := setField(t, s, "bid_setField", draft, "bid", "3.0000 ENU")
	if !hasCode(status.Errors, forms.ErrCodeNotEnoughBalance) {
		t.Fatalf("errors = %v, want not-enough-balance", status.Errors)
	}

	status = setField(t, s, "bid_setField", draft, "bid", "1.5000 ENU")
	if hasCode(status.Errors, forms.ErrCodeNotEnoughBalance) {
		t.Errorf("errors = %v for affordable bid", status.Errors)
	}
}

func transferDraft(t *testing.T, s *Server, sender string) string {
	t.Helper()
	var status FormStatusResult
	result(t, call(t, s, "transfer_create", TransferCreateParams{Sender: sender}), &status)
	return status.DraftID
}

func TestTransferDraftLifecycle(t *testing.T) {
	s, clock := newFormTestServer(t)
	s.cfg.Exchanges = []string{"binancecleos"}
	s.cfg.Contacts = []forms.Contact{{Account: "landlord", DefaultMemo: "rent"}}

	draft := transferDraft(t, s, "alice")

	// Exchange destinations demand a memo; contacts fill in their default
	status := setField(t, s, "transfer_setField", draft, "to", "binancecleos")
	if !hasCode(status.Errors, forms.ErrCodeExchangeNeedsMemo) {
		t.Fatalf("errors = %v, want exchange-needs-memo", status.Errors)
	}
	status = setField(t, s, "transfer_setField", draft, "to", "landlord")
	if status.Fields["memo"] != "rent" {
		t.Fatalf("memo = %q, want contact default", status.Fields["memo"])
	}
	if len(status.Errors) != 0 {
		t.Fatalf("errors = %v", status.Errors)
	}

	status = setField(t, s, "transfer_setField", draft, "to", "alice")
	if !hasCode(status.Errors, forms.ErrCodeTransferToSelf) {
		t.Fatalf("errors = %v, want transfer-to-self", status.Errors)
	}
	setField(t, s, "transfer_setField", draft, "to", "bob")
	setField(t, s, "transfer_setField", draft, "quantity", "3.0000")

	var res FormStatusResult
	result(t, call(t, s, "transfer_submit", FormDraftParams{DraftID: draft}), &res)
	clock.Advance(s.cfg.Confirm.Dwell())

	drainEvents(s.wsHub)
	result(t, call(t, s, "transfer_confirm", FormDraftParams{DraftID: draft}), &res)
	if res.Phase != "confirmed" {
		t.Fatalf("phase = %s", res.Phase)
	}
	requests := eventsOfType(drainEvents(s.wsHub), EventBroadcastRequest)
	if len(requests) != 1 {
		t.Fatalf("broadcast requests = %d, want 1", len(requests))
	}
	req := requests[0].Data.(BroadcastRequest)
	if req.Action != "transfer" || req.Fields["from"] != "alice" ||
		req.Fields["to"] != "bob" || req.Fields["quantity"] != "3.0000 ENU" {
		t.Errorf("request = %+v", req)
	}
}

func TestTransferContractAdvisory(t *testing.T) {
	s, clock := newFormTestServer(t)
	draft := transferDraft(t, s, "alice")
	setField(t, s, "transfer_setField", draft, "to", "tokenhub")
	setField(t, s, "transfer_setField", draft, "quantity", "1.0000")

	clock.Advance(s.cfg.Confirm.TransferDebounce())
	requests := eventsOfType(drainEvents(s.wsHub), EventLookupRequest)
	if len(requests) != 1 || requests[0].Data.(LookupRequest).Kind != "contract_hash" {
		t.Fatalf("lookup requests = %+v", requests)
	}

	var status FormStatusResult
	result(t, call(t, s, "transfer_applyContractCode", TransferApplyContractCodeParams{
		DraftID: draft, Account: "tokenhub",
		CodeHash: "0x1111111111111111111111111111111111111111111111111111111111111111",
	}), &status)
	if !status.ContractAdvisory {
		t.Fatal("advisory not raised for deployed code")
	}
	if status.SubmitBlocked {
		t.Fatal("advisory blocked submission")
	}

	// A late answer for the previous destination is dropped
	setField(t, s, "transfer_setField", draft, "to", "bob")
	result(t, call(t, s, "transfer_applyContractCode", TransferApplyContractCodeParams{
		DraftID: draft, Account: "tokenhub",
		CodeHash: "0x1111111111111111111111111111111111111111111111111111111111111111",
	}), &status)
	if status.ContractAdvisory {
		t.Error("stale contract result raised the advisory")
	}
}

func TestFormCancelAndClose(t *testing.T) {
	s, clock := newFormTestServer(t)
	result(t, call(t, s, "balances_set", BalancesSetParams{
		Account: "alice", Balances: []string{"100.0000 ENU"},
	}), &map[string]int{})

	draft := bidDraft(t, s, "alice")
	setField(t, s, "bid_setField", draft, "newname", "bob")
	setField(t, s, "bid_setField", draft, "bid", "3.0000 ENU")

	var status FormStatusResult
	result(t, call(t, s, "bid_submit", FormDraftParams{DraftID: draft}), &status)
	result(t, call(t, s, "bid_cancel", FormDraftParams{DraftID: draft}), &status)
	if status.Phase != "editing" || status.Fields["newname"] != "bob" {
		t.Fatalf("after cancel: %+v", status)
	}

	// The cancelled dwell timer must not promote the draft later
	clock.Advance(s.cfg.Confirm.Dwell())
	result(t, call(t, s, "bid_status", FormDraftParams{DraftID: draft}), &status)
	if status.Phase != "editing" {
		t.Fatalf("phase after stale timer = %s", status.Phase)
	}

	result(t, call(t, s, "bid_close", FormDraftParams{DraftID: draft}), &map[string]bool{})
	if resp := call(t, s, "bid_status", FormDraftParams{DraftID: draft}); resp.Error == nil {
		t.Error("closed draft still reachable")
	}
}

func hasCode(codes []forms.ErrorCode, want forms.ErrorCode) bool {
	for _, c := range codes {
		if c == want {
			return true
		}
	}
	return false
}
