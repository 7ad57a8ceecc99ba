// Package rpc - Form session handlers. A draft lives in the daemon; the
// client edits it over RPC and the daemon drives validation, debounced
// lookups and the confirmation flow. Lookups the daemon cannot answer
// itself are relayed to subscribed clients as websocket events; the client
// performs them against a chain node and posts the result back through the
// apply methods, echoed subject included.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openenu/walletcore/internal/chainapi"
	"github.com/openenu/walletcore/internal/forms"
	"github.com/openenu/walletcore/pkg/helpers"
)

// formSessions holds the open drafts and the balance cache the bid forms
// check against. Balances are fed by the client via balances_set.
type formSessions struct {
	mu        sync.Mutex
	bids      map[string]*bidSession
	transfers map[string]*transferSession
	balances  map[string]map[string]helpers.Asset
}

func newFormSessions() *formSessions {
	return &formSessions{
		bids:      make(map[string]*bidSession),
		transfers: make(map[string]*transferSession),
		balances:  make(map[string]map[string]helpers.Asset),
	}
}

// Balances implements chainapi.BalanceSource from the cached client feed.
func (m *formSessions) Balances(account string) map[string]helpers.Asset {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]helpers.Asset, len(m.balances[account]))
	for symbol, asset := range m.balances[account] {
		out[symbol] = asset
	}
	return out
}

func (m *formSessions) setBalances(account string, assets []helpers.Asset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := make(map[string]helpers.Asset, len(assets))
	for _, a := range assets {
		set[a.Symbol] = a
	}
	m.balances[account] = set
}

// bidSession serializes all calls into one bid form; lookup completions and
// RPC edits arrive on different goroutines.
type bidSession struct {
	mu    sync.Mutex
	form  *forms.BidForm
	relay *lookupRelay
}

type transferSession struct {
	mu    sync.Mutex
	form  *forms.TransferForm
	relay *lookupRelay
}

// LookupRequest is the websocket payload asking a client to run a chain
// lookup on the daemon's behalf.
type LookupRequest struct {
	DraftID string `json:"draft_id"`
	Kind    string `json:"kind"` // "availability", "highest_bid", "contract_hash"
	Subject string `json:"subject"`
}

// BroadcastRequest is the websocket payload handing a confirmed operation to
// the client for signing and submission.
type BroadcastRequest struct {
	DraftID string            `json:"draft_id"`
	Action  string            `json:"action"` // "bidname" or "transfer"
	Fields  map[string]string `json:"fields"`
}

// lookupRelay bridges one draft's chainapi collaborators to the websocket
// surface. It remembers the pending completion so the client's answer can be
// routed back into the form that asked.
type lookupRelay struct {
	server *Server

	mu           sync.Mutex
	draft        string
	availDone    func(chainapi.AvailabilityResult)
	bidDone      func(chainapi.BidSnapshot, bool)
	contractDone func(chainapi.ContractCode)
}

func (r *lookupRelay) setDraft(id string) {
	r.mu.Lock()
	r.draft = id
	r.mu.Unlock()
}

func (r *lookupRelay) request(kind, subject string) {
	r.mu.Lock()
	draft := r.draft
	r.mu.Unlock()
	r.server.pushEvent(EventLookupRequest, LookupRequest{DraftID: draft, Kind: kind, Subject: subject})
}

// CheckAvailability implements chainapi.AvailabilityLookup.
func (r *lookupRelay) CheckAvailability(name string, done func(chainapi.AvailabilityResult)) {
	r.mu.Lock()
	r.availDone = done
	r.mu.Unlock()
	r.request("availability", name)
}

// LookupHighestBid implements chainapi.HighestBidLookup.
func (r *lookupRelay) LookupHighestBid(name string, done func(chainapi.BidSnapshot, bool)) {
	r.mu.Lock()
	r.bidDone = done
	r.mu.Unlock()
	r.request("highest_bid", name)
}

// LookupContractHash implements chainapi.ContractHashLookup.
func (r *lookupRelay) LookupContractHash(account string, done func(chainapi.ContractCode)) {
	r.mu.Lock()
	r.contractDone = done
	r.mu.Unlock()
	r.request("contract_hash", account)
}

func (r *lookupRelay) completeAvailability(res chainapi.AvailabilityResult) {
	r.mu.Lock()
	done := r.availDone
	r.mu.Unlock()
	if done != nil {
		done(res)
	}
}

func (r *lookupRelay) completeBid(snap chainapi.BidSnapshot, found bool) {
	r.mu.Lock()
	done := r.bidDone
	r.mu.Unlock()
	if done != nil {
		done(snap, found)
	}
}

func (r *lookupRelay) completeContract(code chainapi.ContractCode) {
	r.mu.Lock()
	done := r.contractDone
	r.mu.Unlock()
	if done != nil {
		done(code)
	}
}

// BroadcastBid implements chainapi.Broadcaster.
func (r *lookupRelay) BroadcastBid(bidder, newname, bid string) {
	r.mu.Lock()
	draft := r.draft
	r.mu.Unlock()
	r.server.pushEvent(EventBroadcastRequest, BroadcastRequest{
		DraftID: draft,
		Action:  "bidname",
		Fields:  map[string]string{"bidder": bidder, "newname": newname, "bid": bid},
	})
}

// BroadcastTransfer implements chainapi.Broadcaster.
func (r *lookupRelay) BroadcastTransfer(from, to, quantity, memo, asset string) {
	r.mu.Lock()
	draft := r.draft
	r.mu.Unlock()
	r.server.pushEvent(EventBroadcastRequest, BroadcastRequest{
		DraftID: draft,
		Action:  "transfer",
		Fields:  map[string]string{"from": from, "to": to, "quantity": quantity, "memo": memo, "asset": asset},
	})
}

// FormStatusResult is the draft state shared by bid_status and
// transfer_status.
type FormStatusResult struct {
	DraftID          string            `json:"draft_id"`
	Phase            string            `json:"phase"`
	Fields           map[string]string `json:"fields"`
	Errors           []forms.ErrorCode `json:"errors"`
	SubmitBlocked    bool              `json:"submit_blocked"`
	ContractAdvisory bool              `json:"contract_advisory,omitempty"`
}

func (s *Server) bidStatusResult(sess *bidSession) *FormStatusResult {
	gate := sess.form.Gate()
	return &FormStatusResult{
		DraftID:       gate.ID(),
		Phase:         string(gate.Phase()),
		Fields:        gate.Fields(),
		Errors:        sess.form.Errors(),
		SubmitBlocked: sess.form.SubmitBlocked(),
	}
}

func (s *Server) transferStatusResult(sess *transferSession) *FormStatusResult {
	gate := sess.form.Gate()
	return &FormStatusResult{
		DraftID:          gate.ID(),
		Phase:            string(gate.Phase()),
		Fields:           gate.Fields(),
		Errors:           sess.form.Errors(),
		SubmitBlocked:    sess.form.SubmitBlocked(),
		ContractAdvisory: sess.form.ContractAdvisory(),
	}
}

func (s *Server) bidSession(draftID string) (*bidSession, error) {
	s.forms.mu.Lock()
	defer s.forms.mu.Unlock()
	sess, ok := s.forms.bids[draftID]
	if !ok {
		return nil, fmt.Errorf("unknown draft: %s", draftID)
	}
	return sess, nil
}

func (s *Server) transferSession(draftID string) (*transferSession, error) {
	s.forms.mu.Lock()
	defer s.forms.mu.Unlock()
	sess, ok := s.forms.transfers[draftID]
	if !ok {
		return nil, fmt.Errorf("unknown draft: %s", draftID)
	}
	return sess, nil
}

// BalancesSetParams is the parameters for balances_set. Quantities are asset
// strings like "100.0000 ENU".
type BalancesSetParams struct {
	Account  string   `json:"account"`
	Balances []string `json:"balances"`
}

func (s *Server) balancesSet(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p BalancesSetParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if !helpers.IsValidAccountName(p.Account) {
		return nil, fmt.Errorf("invalid account name: %s", p.Account)
	}

	assets := make([]helpers.Asset, 0, len(p.Balances))
	for _, quantity := range p.Balances {
		asset, err := helpers.ParseAsset(quantity)
		if err != nil {
			return nil, fmt.Errorf("invalid balance %q: %w", quantity, err)
		}
		assets = append(assets, asset)
	}
	s.forms.setBalances(p.Account, assets)
	return map[string]int{"count": len(assets)}, nil
}

// BidCreateParams is the parameters for bid_create.
type BidCreateParams struct {
	Bidder string `json:"bidder,omitempty"`
}

func (s *Server) bidCreate(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p BidCreateParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
	}

	relay := &lookupRelay{server: s}
	form := forms.NewBidForm(forms.BidConfig{
		Clock:        s.formClock,
		Dwell:        s.cfg.Confirm.Dwell(),
		Debounce:     s.cfg.Confirm.BidDebounce(),
		Balances:     s.forms,
		Availability: relay,
		HighestBid:   relay,
		Broadcaster:  relay,
	})
	relay.setDraft(form.Gate().ID())

	sess := &bidSession{form: form, relay: relay}
	if p.Bidder != "" {
		form.SetField("bidder", p.Bidder, helpers.IsValidAccountName(p.Bidder))
	}

	s.forms.mu.Lock()
	s.forms.bids[form.Gate().ID()] = sess
	s.forms.mu.Unlock()

	s.log.Debug("Bid draft opened", "draft", form.Gate().ID())
	return s.bidStatusResult(sess), nil
}

// FormSetFieldParams is the parameters for bid_setField and
// transfer_setField. Valid carries the caller's syntactic verdict for bid
// fields; omitted means valid.
type FormSetFieldParams struct {
	DraftID string `json:"draft_id"`
	Name    string `json:"name"`
	Value   string `json:"value"`
	Valid   *bool  `json:"valid,omitempty"`
}

func (s *Server) bidSetField(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p FormSetFieldParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	sess, err := s.bidSession(p.DraftID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.form.SetField(p.Name, p.Value, p.Valid == nil || *p.Valid); err != nil {
		return nil, err
	}
	return s.bidStatusResult(sess), nil
}

// FormDraftParams identifies a draft for the phase-transition methods.
type FormDraftParams struct {
	DraftID string `json:"draft_id"`
}

func (s *Server) bidStatus(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p FormDraftParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	sess, err := s.bidSession(p.DraftID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.bidStatusResult(sess), nil
}

func (s *Server) bidSubmit(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p FormDraftParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	sess, err := s.bidSession(p.DraftID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.form.Submit(); err != nil {
		return nil, err
	}
	return s.bidStatusResult(sess), nil
}

func (s *Server) bidConfirm(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p FormDraftParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	sess, err := s.bidSession(p.DraftID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.form.Confirm(); err != nil {
		return nil, err
	}
	return s.bidStatusResult(sess), nil
}

func (s *Server) bidCancel(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p FormDraftParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	sess, err := s.bidSession(p.DraftID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.form.Back()
	return s.bidStatusResult(sess), nil
}

func (s *Server) bidClose(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p FormDraftParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	sess, err := s.bidSession(p.DraftID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	sess.form.Close()
	sess.mu.Unlock()

	s.forms.mu.Lock()
	delete(s.forms.bids, p.DraftID)
	s.forms.mu.Unlock()
	return map[string]bool{"closed": true}, nil
}

// BidApplyAvailabilityParams is the parameters for bid_applyAvailability,
// the client's answer to an "availability" lookup request.
type BidApplyAvailabilityParams struct {
	DraftID   string `json:"draft_id"`
	Subject   string `json:"subject"`
	Available bool   `json:"available"`
}

func (s *Server) bidApplyAvailability(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p BidApplyAvailabilityParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	sess, err := s.bidSession(p.DraftID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.relay.completeAvailability(chainapi.AvailabilityResult{
		Subject:   p.Subject,
		Available: p.Available,
	})
	return s.bidStatusResult(sess), nil
}

// BidApplySnapshotParams is the parameters for bid_applySnapshot. With a
// draft ID it answers that draft's highest-bid lookup; without one it is a
// live auction push applied to every open bid draft. Either way the snapshot
// is rebroadcast to websocket subscribers.
type BidApplySnapshotParams struct {
	DraftID    string `json:"draft_id,omitempty"`
	NewName    string `json:"newname"`
	Owner      string `json:"owner,omitempty"`
	HighBid    string `json:"high_bid"`
	HighBidder string `json:"high_bidder"`
	Found      bool   `json:"found"`
}

func (s *Server) bidApplySnapshot(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p BidApplySnapshotParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	snap := chainapi.BidSnapshot{
		NewName:    p.NewName,
		Owner:      p.Owner,
		HighBid:    p.HighBid,
		HighBidder: p.HighBidder,
	}

	if p.DraftID != "" {
		sess, err := s.bidSession(p.DraftID)
		if err != nil {
			return nil, err
		}
		sess.mu.Lock()
		sess.relay.completeBid(snap, p.Found)
		sess.mu.Unlock()
	} else {
		s.forms.mu.Lock()
		open := make([]*bidSession, 0, len(s.forms.bids))
		for _, sess := range s.forms.bids {
			open = append(open, sess)
		}
		s.forms.mu.Unlock()
		for _, sess := range open {
			sess.mu.Lock()
			sess.form.ApplyBidSnapshot(snap, p.Found)
			sess.mu.Unlock()
		}
	}

	s.BroadcastBidSnapshot(snap)
	return map[string]bool{"applied": true}, nil
}

// TransferCreateParams is the parameters for transfer_create.
type TransferCreateParams struct {
	Sender string `json:"sender"`
}

func (s *Server) transferCreate(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p TransferCreateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if !helpers.IsValidAccountName(p.Sender) {
		return nil, fmt.Errorf("invalid sender: %s", p.Sender)
	}

	relay := &lookupRelay{server: s}
	form := forms.NewTransferForm(forms.TransferConfig{
		Clock:        s.formClock,
		Dwell:        s.cfg.Confirm.Dwell(),
		Debounce:     s.cfg.Confirm.TransferDebounce(),
		Sender:       p.Sender,
		Exchanges:    s.cfg.ExchangeSet(),
		Contacts:     s.cfg.ContactBook(),
		ContractHash: relay,
		Broadcaster:  relay,
	})
	relay.setDraft(form.Gate().ID())

	sess := &transferSession{form: form, relay: relay}
	s.forms.mu.Lock()
	s.forms.transfers[form.Gate().ID()] = sess
	s.forms.mu.Unlock()

	s.log.Debug("Transfer draft opened", "draft", form.Gate().ID(), "sender", p.Sender)
	return s.transferStatusResult(sess), nil
}

func (s *Server) transferSetField(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p FormSetFieldParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	sess, err := s.transferSession(p.DraftID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.form.SetField(p.Name, p.Value); err != nil {
		return nil, err
	}
	return s.transferStatusResult(sess), nil
}

func (s *Server) transferStatus(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p FormDraftParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	sess, err := s.transferSession(p.DraftID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.transferStatusResult(sess), nil
}

func (s *Server) transferSubmit(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p FormDraftParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	sess, err := s.transferSession(p.DraftID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.form.Submit(); err != nil {
		return nil, err
	}
	return s.transferStatusResult(sess), nil
}

func (s *Server) transferConfirm(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p FormDraftParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	sess, err := s.transferSession(p.DraftID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.form.Confirm(); err != nil {
		return nil, err
	}
	return s.transferStatusResult(sess), nil
}

func (s *Server) transferCancel(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p FormDraftParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	sess, err := s.transferSession(p.DraftID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.form.Back()
	return s.transferStatusResult(sess), nil
}

func (s *Server) transferClose(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p FormDraftParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	sess, err := s.transferSession(p.DraftID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	sess.form.Close()
	sess.mu.Unlock()

	s.forms.mu.Lock()
	delete(s.forms.transfers, p.DraftID)
	s.forms.mu.Unlock()
	return map[string]bool{"closed": true}, nil
}

// TransferApplyContractCodeParams is the parameters for
// transfer_applyContractCode, the client's answer to a "contract_hash"
// lookup request. An all-zero hash means no deployed code.
type TransferApplyContractCodeParams struct {
	DraftID  string `json:"draft_id"`
	Account  string `json:"account"`
	CodeHash string `json:"code_hash"`
}

func (s *Server) transferApplyContractCode(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p TransferApplyContractCodeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	sess, err := s.transferSession(p.DraftID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.relay.completeContract(chainapi.ContractCode{
		Account: p.Account,
		Hash:    common.HexToHash(p.CodeHash),
	})
	return s.transferStatusResult(sess), nil
}
