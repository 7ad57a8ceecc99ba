// Package rpc - Wallet directory and key handlers.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openenu/walletcore/internal/directory"
	"github.com/openenu/walletcore/internal/registry"
	"github.com/openenu/walletcore/pkg/helpers"
	"github.com/openenu/walletcore/pkg/keys"
)

// WalletsListResult is the response for wallets_list.
type WalletsListResult struct {
	Wallets []directory.Record  `json:"wallets"`
	Active  directory.Selection `json:"active"`
	Count   int                 `json:"count"`
}

func (s *Server) walletsList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return &WalletsListResult{
		Wallets: s.dir.List(),
		Active:  s.dir.Active(),
		Count:   len(s.dir.List()),
	}, nil
}

// WalletsAddParams is the parameters for wallets_add.
type WalletsAddParams struct {
	ChainID       string `json:"chain_id"`
	Account       string `json:"account"`
	Authorization string `json:"authorization"`
	Mode          string `json:"mode"`
	PublicKey     string `json:"pubkey,omitempty"`
}

func (s *Server) walletsAdd(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p WalletsAddParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if !helpers.IsValidAccountName(p.Account) {
		return nil, fmt.Errorf("invalid account name: %s", p.Account)
	}
	if p.Authorization == "" {
		p.Authorization = "active"
	}

	// The chain must be known; its key prefix drives pubkey validation
	d, ok := s.Registry().ByChainID(p.ChainID)
	if !ok {
		return nil, fmt.Errorf("unknown chain: %s", p.ChainID)
	}
	if p.PublicKey != "" && !keys.ValidatePublicKey(p.PublicKey, d.KeyPrefix) {
		return nil, fmt.Errorf("invalid public key for prefix %s", d.KeyPrefix)
	}

	record := directory.Record{
		ChainID:       p.ChainID,
		Account:       p.Account,
		Authorization: p.Authorization,
		Mode:          directory.Mode(p.Mode),
		PublicKey:     p.PublicKey,
	}
	if err := s.dir.Add(record); err != nil {
		return nil, err
	}
	if err := s.persistWallets(); err != nil {
		return nil, err
	}
	return &record, nil
}

// WalletsRemoveParams is the parameters for wallets_remove.
type WalletsRemoveParams struct {
	ChainID       string `json:"chain_id"`
	Account       string `json:"account"`
	Authorization string `json:"authorization"`
}

func (s *Server) walletsRemove(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p WalletsRemoveParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	if err := s.dir.Remove(p.ChainID, p.Account, p.Authorization); err != nil {
		return nil, err
	}
	if err := s.persistWallets(); err != nil {
		return nil, err
	}
	return map[string]bool{"removed": true}, nil
}

// WalletsUseParams is the parameters for wallets_use.
type WalletsUseParams struct {
	ChainID       string `json:"chain_id"`
	Account       string `json:"account"`
	Authorization string `json:"authorization"`
	// Secret, when present, is passed straight to the unlocker and never
	// stored or logged.
	Secret string `json:"secret,omitempty"`
}

func (s *Server) walletsUse(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p WalletsUseParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	if err := s.dir.SetActive(p.ChainID, p.Account, p.Authorization, p.Secret); err != nil {
		return nil, err
	}
	if err := s.persistWallets(); err != nil {
		return nil, err
	}
	active := s.dir.Active()
	return &active, nil
}

func (s *Server) walletsClearActive(ctx context.Context, params json.RawMessage) (interface{}, error) {
	s.dir.ClearActive()
	if err := s.persistWallets(); err != nil {
		return nil, err
	}
	return map[string]bool{"cleared": true}, nil
}

func (s *Server) walletsActive(ctx context.Context, params json.RawMessage) (interface{}, error) {
	active := s.dir.Active()
	return &active, nil
}

// KeysGenerateParams is the parameters for keys_generate.
type KeysGenerateParams struct {
	Prefix     string `json:"prefix,omitempty"`
	Passphrase string `json:"passphrase,omitempty"`
}

// KeysGenerateResult is the response for keys_generate.
type KeysGenerateResult struct {
	Mnemonic  string `json:"mnemonic"`
	PublicKey string `json:"pubkey"`
}

func (s *Server) keysGenerate(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p KeysGenerateParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
	}
	if p.Prefix == "" {
		p.Prefix = registry.DefaultKeyPrefix
	}

	mnemonic, err := keys.GenerateMnemonic()
	if err != nil {
		return nil, fmt.Errorf("failed to generate mnemonic: %w", err)
	}
	_, pub, err := keys.KeyFromMnemonic(mnemonic, p.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	return &KeysGenerateResult{
		Mnemonic:  mnemonic,
		PublicKey: keys.EncodePublicKey(pub, p.Prefix),
	}, nil
}

// KeysValidateParams is the parameters for keys_validate.
type KeysValidateParams struct {
	PublicKey string `json:"pubkey"`
	Prefix    string `json:"prefix,omitempty"`
}

func (s *Server) keysValidate(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p KeysValidateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.Prefix == "" {
		p.Prefix = registry.DefaultKeyPrefix
	}
	return map[string]bool{"valid": keys.ValidatePublicKey(p.PublicKey, p.Prefix)}, nil
}
