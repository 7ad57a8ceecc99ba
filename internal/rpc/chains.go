// Package rpc - Chain registry handlers.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openenu/walletcore/internal/chainapi"
	"github.com/openenu/walletcore/internal/registry"
)

// ChainsListResult is the response for chains_list.
type ChainsListResult struct {
	Chains []registry.Descriptor `json:"chains"`
	Count  int                   `json:"count"`
}

func (s *Server) chainsList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	reg := s.Registry()
	return &ChainsListResult{
		Chains: reg.List(),
		Count:  reg.Len(),
	}, nil
}

// ChainsGetParams is the parameters for chains_get.
type ChainsGetParams struct {
	ChainID string `json:"chain_id,omitempty"`
	LocalID string `json:"local_id,omitempty"`
}

func (s *Server) chainsGet(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p ChainsGetParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	reg := s.Registry()
	var d registry.Descriptor
	var ok bool
	switch {
	case p.ChainID != "":
		d, ok = reg.ByChainID(p.ChainID)
	case p.LocalID != "":
		d, ok = reg.ByLocalID(p.LocalID)
	default:
		return nil, fmt.Errorf("chain_id or local_id required")
	}
	if !ok {
		return nil, fmt.Errorf("chain not found")
	}
	return &d, nil
}

// ChainsEnsureParams is the parameters for chains_ensure.
type ChainsEnsureParams struct {
	ChainID string `json:"chain_id"`
	Node    string `json:"node,omitempty"`
}

func (s *Server) chainsEnsure(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p ChainsEnsureParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.ChainID == "" {
		return nil, fmt.Errorf("chain_id required")
	}

	next := s.Registry().EnsureKnown(p.ChainID, p.Node)
	if err := s.swapRegistry(next); err != nil {
		return nil, err
	}

	d, _ := next.ByChainID(p.ChainID)
	return &d, nil
}

// ChainsUpdateParams is the parameters for chains_update.
type ChainsUpdateParams struct {
	Chain registry.Descriptor `json:"chain"`
}

func (s *Server) chainsUpdate(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p ChainsUpdateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.Chain.ChainID == "" || p.Chain.LocalID == "" {
		return nil, fmt.Errorf("chain_id and local_id required")
	}

	next := s.Registry().UpsertByChainID(p.Chain)
	if err := s.swapRegistry(next); err != nil {
		return nil, err
	}
	return &p.Chain, nil
}

func (s *Server) chainsReset(ctx context.Context, params json.RawMessage) (interface{}, error) {
	next := registry.ResetAll(s.seedChains())
	if err := s.swapRegistry(next); err != nil {
		return nil, err
	}
	return &ChainsListResult{Chains: next.List(), Count: next.Len()}, nil
}

// ChainsRecordValidatedNodeParams is the parameters for
// chains_recordValidatedNode.
type ChainsRecordValidatedNodeParams struct {
	ChainID       string `json:"chain_id"`
	Node          string `json:"node"`
	SaveAsDefault bool   `json:"save_as_default"`
}

func (s *Server) chainsRecordValidatedNode(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p ChainsRecordValidatedNodeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.ChainID == "" || p.Node == "" {
		return nil, fmt.Errorf("chain_id and node required")
	}

	info := chainapi.NodeInfo{ChainID: p.ChainID}
	next := s.Registry().RecordValidatedNode(info, p.Node, p.SaveAsDefault)
	if p.SaveAsDefault {
		if err := s.swapRegistry(next); err != nil {
			return nil, err
		}
	}

	d, ok := next.ByChainID(p.ChainID)
	if !ok {
		return nil, fmt.Errorf("chain not found")
	}
	return &d, nil
}

// seedChains returns the built-in seed merged with configured extras.
func (s *Server) seedChains() []registry.Descriptor {
	seed := registry.DefaultSeed()
	if s.cfg != nil {
		seed = append(seed, s.cfg.ExtraChains...)
	}
	return seed
}
