// Package storage - Wallet directory persistence.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/openenu/walletcore/internal/directory"
)

// settingActiveWallet holds the serialized active selection.
const settingActiveWallet = "active_wallet"

// SaveWallets replaces the persisted wallet records and active selection.
func (s *Storage) SaveWallets(records []directory.Record, active directory.Selection) error {
	s.mu.Lock()

	tx, err := s.db.Begin()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM wallets"); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to clear wallets: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO wallets (chain_id, account, authorization, mode, pubkey, position)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.Exec(r.ChainID, r.Account, r.Authorization, string(r.Mode), r.PublicKey, i); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to insert wallet %s@%s: %w", r.Account, r.Authorization, err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to commit wallets: %w", err)
	}
	s.mu.Unlock()

	activeJSON := ""
	if !active.IsEmpty() {
		data, err := json.Marshal(active)
		if err != nil {
			return fmt.Errorf("failed to marshal active selection: %w", err)
		}
		activeJSON = string(data)
	}
	return s.SetSetting(settingActiveWallet, activeJSON)
}

// LoadWallets reads the persisted wallet records and active selection.
func (s *Storage) LoadWallets() ([]directory.Record, directory.Selection, error) {
	s.mu.RLock()

	rows, err := s.db.Query(`
		SELECT chain_id, account, authorization, mode, pubkey
		FROM wallets ORDER BY position`)
	if err != nil {
		s.mu.RUnlock()
		return nil, directory.Selection{}, fmt.Errorf("failed to query wallets: %w", err)
	}

	var records []directory.Record
	for rows.Next() {
		var r directory.Record
		var mode string
		if err := rows.Scan(&r.ChainID, &r.Account, &r.Authorization, &mode, &r.PublicKey); err != nil {
			rows.Close()
			s.mu.RUnlock()
			return nil, directory.Selection{}, fmt.Errorf("failed to scan wallet: %w", err)
		}
		r.Mode = directory.Mode(mode)
		records = append(records, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		s.mu.RUnlock()
		return nil, directory.Selection{}, err
	}
	s.mu.RUnlock()

	var active directory.Selection
	activeJSON, err := s.GetSetting(settingActiveWallet)
	if err != nil {
		return nil, directory.Selection{}, err
	}
	if activeJSON != "" {
		if err := json.Unmarshal([]byte(activeJSON), &active); err != nil {
			return nil, directory.Selection{}, fmt.Errorf("failed to unmarshal active selection: %w", err)
		}
	}

	return records, active, nil
}
