// Package rpc - Vault handlers.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openenu/walletcore/internal/registry"
	"github.com/openenu/walletcore/pkg/keys"
)

// VaultStatusResult is the response for vault_status.
type VaultStatusResult struct {
	HasSeed  bool `json:"has_seed"`
	Unlocked bool `json:"unlocked"`
}

func (s *Server) vaultStatus(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if s.vault == nil {
		return nil, fmt.Errorf("no vault configured")
	}
	return &VaultStatusResult{
		HasSeed:  s.vault.HasSeed(),
		Unlocked: s.vault.IsUnlocked(),
	}, nil
}

// VaultCreateParams is the parameters for vault_create. When the mnemonic
// is empty a fresh one is generated and returned.
type VaultCreateParams struct {
	Mnemonic   string `json:"mnemonic,omitempty"`
	Passphrase string `json:"passphrase,omitempty"`
	Password   string `json:"password"`
	Prefix     string `json:"prefix,omitempty"`
}

// VaultCreateResult is the response for vault_create.
type VaultCreateResult struct {
	Mnemonic  string `json:"mnemonic"`
	PublicKey string `json:"pubkey"`
}

func (s *Server) vaultCreate(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if s.vault == nil {
		return nil, fmt.Errorf("no vault configured")
	}
	var p VaultCreateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.Prefix == "" {
		p.Prefix = registry.DefaultKeyPrefix
	}

	mnemonic := p.Mnemonic
	if mnemonic == "" {
		var err error
		mnemonic, err = keys.GenerateMnemonic()
		if err != nil {
			return nil, fmt.Errorf("failed to generate mnemonic: %w", err)
		}
	}

	if err := s.vault.Create(mnemonic, p.Passphrase, p.Password); err != nil {
		return nil, err
	}
	pubkey, err := s.vault.PublicKey(p.Prefix)
	if err != nil {
		return nil, err
	}
	return &VaultCreateResult{Mnemonic: mnemonic, PublicKey: pubkey}, nil
}

// VaultUnlockParams is the parameters for vault_unlock.
type VaultUnlockParams struct {
	Password   string `json:"password"`
	Passphrase string `json:"passphrase,omitempty"`
}

func (s *Server) vaultUnlock(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if s.vault == nil {
		return nil, fmt.Errorf("no vault configured")
	}
	var p VaultUnlockParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	if err := s.vault.UnlockWithPassphrase(p.Password, p.Passphrase); err != nil {
		return nil, err
	}
	return &VaultStatusResult{HasSeed: true, Unlocked: true}, nil
}

func (s *Server) vaultLock(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if s.vault == nil {
		return nil, fmt.Errorf("no vault configured")
	}
	s.vault.Lock()
	return &VaultStatusResult{HasSeed: s.vault.HasSeed(), Unlocked: false}, nil
}
