// Package storage provides persistent storage using SQLite.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage provides persistent storage for the walletcore daemon.
type Storage struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Config holds storage configuration.
type Config struct {
	DataDir string
}

// New creates a new Storage instance.
func New(cfg *Config) (*Storage, error) {
	dataDir := expandPath(cfg.DataDir)

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "walletcore.db")

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Storage{
		db:     db,
		dbPath: dbPath,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Storage) DB() *sql.DB {
	return s.db
}

// initSchema creates all database tables.
func (s *Storage) initSchema() error {
	schema := `
	-- Known chains table. One row per registry descriptor; local_id is the
	-- stable identity, chain_id is unique among known chains.
	CREATE TABLE IF NOT EXISTS chains (
		local_id TEXT PRIMARY KEY,
		chain_id TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		key_prefix TEXT NOT NULL,
		rpc_node TEXT,
		supported_contracts TEXT,
		symbol TEXT NOT NULL,
		testnet INTEGER NOT NULL DEFAULT 0,

		-- Position in the registry ordering (0 = front)
		position INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_chains_chain_id ON chains(chain_id);

	-- Wallet records. The composite key mirrors the in-memory identity.
	CREATE TABLE IF NOT EXISTS wallets (
		chain_id TEXT NOT NULL,
		account TEXT NOT NULL,
		authorization TEXT NOT NULL,
		mode TEXT NOT NULL,
		pubkey TEXT,

		-- Insertion ordering
		position INTEGER NOT NULL DEFAULT 0,

		PRIMARY KEY (chain_id, account, authorization)
	);

	CREATE INDEX IF NOT EXISTS idx_wallets_chain ON wallets(chain_id);

	-- Settings/config table. Holds the active wallet selection among other
	-- small values.
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT,
		updated_at INTEGER
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SetSetting stores a small key/value setting.
func (s *Storage) SetSetting(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

// GetSetting reads a setting. Returns an empty string when unset.
func (s *Storage) GetSetting(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
