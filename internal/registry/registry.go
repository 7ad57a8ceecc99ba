// Package registry maintains the set of known blockchain descriptors.
// The registry reconciles a locally persisted list against runtime-discovered
// chains without losing user edits or creating duplicates: merges are keyed
// operations (union by local ID, upsert by chain ID), so the uniqueness
// invariants hold structurally rather than by convention.
//
// All operations are pure functions over an in-memory value. Persistence is
// the storage collaborator's job; callers hand it the resulting registry.
package registry

import (
	"github.com/openenu/walletcore/internal/chainapi"
)

// DefaultKeyPrefix is the key prefix assumed for chains discovered before
// their metadata is known.
const DefaultKeyPrefix = "ENU"

// DefaultSymbol is the token symbol assumed for unknown chains.
const DefaultSymbol = "ENU"

// Descriptor identifies one blockchain network. ChainID is the globally
// unique chain identity; LocalID is a stable local handle used to anchor
// merges across restarts, independent of the chain ID.
type Descriptor struct {
	LocalID            string   `yaml:"local_id" json:"localId"`
	ChainID            string   `yaml:"chain_id" json:"chainId"`
	DisplayName        string   `yaml:"name" json:"name"`
	KeyPrefix          string   `yaml:"key_prefix" json:"keyPrefix"`
	RPCNode            string   `yaml:"node" json:"node"`
	SupportedContracts []string `yaml:"supported_contracts" json:"supportedContracts"`
	Symbol             string   `yaml:"symbol" json:"symbol"`
	Testnet            bool     `yaml:"testnet" json:"testnet"`
}

// SupportsContract reports whether the chain supports a named contract
// feature (e.g. "bidname").
func (d Descriptor) SupportsContract(name string) bool {
	for _, c := range d.SupportedContracts {
		if c == name {
			return true
		}
	}
	return false
}

// Registry is an ordered set of descriptors, at most one per chain ID.
// The most recently touched entry sits at the front. Registry values are
// immutable; every operation returns a new value.
type Registry struct {
	entries []Descriptor
}

// New builds a registry holding the seed list verbatim.
func New(seed []Descriptor) Registry {
	entries := make([]Descriptor, len(seed))
	copy(entries, seed)
	return Registry{entries: entries}
}

// Initialize merges the seed into the current state with a left-biased union
// keyed by LocalID: existing entries win, seed entries with an unseen LocalID
// are appended. Entries are never dropped, so chains a user added or edited
// survive application restarts. Re-running with the same seed is idempotent.
func Initialize(current Registry, seed []Descriptor) Registry {
	haveLocal := make(map[string]bool, len(current.entries))
	haveChain := make(map[string]bool, len(current.entries))
	for _, d := range current.entries {
		haveLocal[d.LocalID] = true
		haveChain[d.ChainID] = true
	}

	entries := make([]Descriptor, len(current.entries), len(current.entries)+len(seed))
	copy(entries, current.entries)

	for _, d := range seed {
		// Left bias on both keys: a seed entry whose chain ID already
		// exists under a different local ID would break uniqueness.
		if haveLocal[d.LocalID] || haveChain[d.ChainID] {
			continue
		}
		haveLocal[d.LocalID] = true
		haveChain[d.ChainID] = true
		entries = append(entries, d)
	}

	return Registry{entries: entries}
}

// ResetAll replaces all state with the seed list verbatim.
func ResetAll(seed []Descriptor) Registry {
	return New(seed)
}

// UpsertByChainID replaces any existing descriptor sharing the chain ID with
// d and moves it to the front; otherwise d is prepended.
func (r Registry) UpsertByChainID(d Descriptor) Registry {
	entries := make([]Descriptor, 0, len(r.entries)+1)
	entries = append(entries, d)
	for _, e := range r.entries {
		if e.ChainID == d.ChainID {
			continue
		}
		entries = append(entries, e)
	}
	return Registry{entries: entries}
}

// EnsureKnown guarantees a descriptor exists for the chain ID, synthesizing a
// placeholder if needed so wallets pointing at a not-yet-described chain stay
// usable. Idempotent: a second call with the same chain ID is a no-op.
func (r Registry) EnsureKnown(chainID, node string) Registry {
	if _, ok := r.ByChainID(chainID); ok {
		return r
	}

	entries := make([]Descriptor, 0, len(r.entries)+1)
	entries = append(entries, placeholder(chainID, node))
	entries = append(entries, r.entries...)
	return Registry{entries: entries}
}

// RecordValidatedNode applies a successful node validation. Validation alone
// never persists a node preference; only when the caller opted in via
// saveAsDefault is the descriptor's RPC node updated (all other fields kept)
// and moved to the front. An unknown chain gets a placeholder pointing at the
// validated node.
func (r Registry) RecordValidatedNode(info chainapi.NodeInfo, node string, saveAsDefault bool) Registry {
	if !saveAsDefault {
		return r
	}

	if existing, ok := r.ByChainID(info.ChainID); ok {
		existing.RPCNode = node
		return r.UpsertByChainID(existing)
	}

	entries := make([]Descriptor, 0, len(r.entries)+1)
	entries = append(entries, placeholder(info.ChainID, node))
	entries = append(entries, r.entries...)
	return Registry{entries: entries}
}

// ByChainID returns the descriptor for a chain ID, if present.
func (r Registry) ByChainID(chainID string) (Descriptor, bool) {
	for _, d := range r.entries {
		if d.ChainID == chainID {
			return d, true
		}
	}
	return Descriptor{}, false
}

// ByLocalID returns the descriptor with the given local ID, if present.
func (r Registry) ByLocalID(localID string) (Descriptor, bool) {
	for _, d := range r.entries {
		if d.LocalID == localID {
			return d, true
		}
	}
	return Descriptor{}, false
}

// List returns a copy of all descriptors in registry order.
func (r Registry) List() []Descriptor {
	out := make([]Descriptor, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of known chains.
func (r Registry) Len() int {
	return len(r.entries)
}

// placeholder synthesizes an "unknown" descriptor for a chain seen only by
// its ID. The display name carries a short ID fragment so users can tell
// unknown chains apart.
func placeholder(chainID, node string) Descriptor {
	short := chainID
	if len(short) > 5 {
		short = short[:5]
	}
	return Descriptor{
		LocalID:            "unknown-" + chainID,
		ChainID:            chainID,
		DisplayName:        "Unknown (" + short + ")",
		KeyPrefix:          DefaultKeyPrefix,
		RPCNode:            node,
		SupportedContracts: []string{},
		Symbol:             DefaultSymbol,
		Testnet:            false,
	}
}
