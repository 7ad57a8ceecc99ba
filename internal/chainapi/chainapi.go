// Package chainapi defines the contracts between the wallet state core and
// its external collaborators: chain lookups, balance snapshots, transaction
// broadcast and wallet unlocking. The core never talks to the network itself;
// implementations of these interfaces live in the RPC client that fronts a
// chain node.
//
// Lookups are asynchronous: the implementation calls the completion callback
// on the core's event loop when the result arrives. Every result echoes the
// subject it was requested for, so callers can discard late responses that no
// longer match current form state.
package chainapi

import "github.com/openenu/walletcore/pkg/helpers"

// AvailabilityResult is the outcome of an account name availability check.
type AvailabilityResult struct {
	// Subject echoes the name the check was issued for.
	Subject   string
	Available bool
}

// AvailabilityLookup checks whether an account name can still be claimed.
type AvailabilityLookup interface {
	CheckAvailability(name string, done func(AvailabilityResult))
}

// BidSnapshot describes the current highest bid on a premium name auction.
type BidSnapshot struct {
	NewName    string
	Owner      string
	HighBid    string // quantity string, e.g. "5.0000 ENU"
	HighBidder string
}

// HighestBidLookup fetches the highest standing bid for a name. The callback
// receives ok=false when no bid exists. Implementations may additionally push
// unsolicited snapshots (live auction feed) through the same callback shape.
type HighestBidLookup interface {
	LookupHighestBid(name string, done func(snapshot BidSnapshot, ok bool))
}

// BalanceSource supplies the balances of an account, keyed by asset symbol.
type BalanceSource interface {
	Balances(account string) map[string]helpers.Asset
}

// Broadcaster submits signed operations to the chain. Calls are
// fire-and-forget from the core's perspective; delivery and retries are the
// implementation's concern.
type Broadcaster interface {
	BroadcastTransfer(from, to, quantity, memo, asset string)
	BroadcastBid(bidder, newname, bid string)
}

// Unlocker decrypts wallet key material with a user-supplied secret. The core
// passes the secret straight through and never retains it.
type Unlocker interface {
	Unlock(secret string) error
}

// NodeInfo is the payload of a node validation event, echoing the chain the
// node claims to serve.
type NodeInfo struct {
	ChainID string
}
