// Package storage - Chain registry persistence.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/openenu/walletcore/internal/registry"
)

// SaveChains replaces the persisted registry snapshot with the given
// descriptors, preserving their order.
func (s *Storage) SaveChains(descriptors []registry.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM chains"); err != nil {
		return fmt.Errorf("failed to clear chains: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO chains (
			local_id, chain_id, display_name, key_prefix, rpc_node,
			supported_contracts, symbol, testnet, position
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, d := range descriptors {
		contractsJSON, err := json.Marshal(d.SupportedContracts)
		if err != nil {
			return fmt.Errorf("failed to marshal contracts: %w", err)
		}

		testnet := 0
		if d.Testnet {
			testnet = 1
		}

		if _, err := stmt.Exec(
			d.LocalID, d.ChainID, d.DisplayName, d.KeyPrefix, d.RPCNode,
			string(contractsJSON), d.Symbol, testnet, i,
		); err != nil {
			return fmt.Errorf("failed to insert chain %s: %w", d.LocalID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chains: %w", err)
	}
	return nil
}

// LoadChains reads the persisted registry snapshot in stored order.
func (s *Storage) LoadChains() ([]registry.Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT local_id, chain_id, display_name, key_prefix, rpc_node,
		       supported_contracts, symbol, testnet
		FROM chains ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query chains: %w", err)
	}
	defer rows.Close()

	var out []registry.Descriptor
	for rows.Next() {
		var d registry.Descriptor
		var contractsJSON string
		var testnet int
		if err := rows.Scan(
			&d.LocalID, &d.ChainID, &d.DisplayName, &d.KeyPrefix, &d.RPCNode,
			&contractsJSON, &d.Symbol, &testnet,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chain: %w", err)
		}
		if contractsJSON != "" {
			if err := json.Unmarshal([]byte(contractsJSON), &d.SupportedContracts); err != nil {
				return nil, fmt.Errorf("failed to unmarshal contracts for %s: %w", d.LocalID, err)
			}
		}
		d.Testnet = testnet != 0
		out = append(out, d)
	}

	return out, rows.Err()
}
