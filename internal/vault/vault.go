// Package vault manages the local signing key: an encrypted mnemonic on
// disk, decrypted into memory only while unlocked. It is the unlocker the
// wallet directory consults when a credential swap carries a secret.
package vault

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/openenu/walletcore/pkg/keys"
	"github.com/openenu/walletcore/pkg/logging"
)

// SeedFileName is the encrypted seed file inside the data directory.
const SeedFileName = "wallet.seed"

// Vault errors.
var (
	ErrNoSeed  = errors.New("no seed stored")
	ErrLocked  = errors.New("vault is locked")
	ErrSeedSet = errors.New("seed already stored")
	ErrBadSeed = errors.New("invalid mnemonic")
)

// Vault holds the encrypted seed location and, while unlocked, the derived
// key pair. Safe for concurrent use.
type Vault struct {
	mu      sync.RWMutex
	dataDir string
	priv    *btcec.PrivateKey
	pub     *btcec.PublicKey
	log     *logging.Logger
}

// New creates a vault rooted at the given data directory.
func New(dataDir string) *Vault {
	return &Vault{
		dataDir: dataDir,
		log:     logging.GetDefault().Component("vault"),
	}
}

func (v *Vault) seedPath() string {
	return filepath.Join(v.dataDir, SeedFileName)
}

// HasSeed reports whether an encrypted seed file exists.
func (v *Vault) HasSeed() bool {
	_, err := os.Stat(v.seedPath())
	return err == nil
}

// Create encrypts and stores a mnemonic. The vault is left unlocked with
// the derived key in memory. Refuses to overwrite an existing seed.
func (v *Vault) Create(mnemonic, passphrase, password string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, err := os.Stat(v.seedPath()); err == nil {
		return ErrSeedSet
	}
	if !keys.ValidateMnemonic(mnemonic) {
		return ErrBadSeed
	}
	if err := ValidatePassword(password); err != nil {
		return fmt.Errorf("weak password: %w", err)
	}

	priv, pub, err := keys.KeyFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return fmt.Errorf("failed to derive key: %w", err)
	}

	encrypted, err := EncryptMnemonic(mnemonic, password)
	if err != nil {
		return fmt.Errorf("failed to encrypt seed: %w", err)
	}
	if err := SaveEncryptedSeed(encrypted, v.seedPath()); err != nil {
		return fmt.Errorf("failed to save seed: %w", err)
	}

	v.priv, v.pub = priv, pub
	v.log.Info("Seed stored", "path", v.seedPath())
	return nil
}

// Unlock decrypts the stored seed and derives the key pair. Implements
// chainapi.Unlocker; the secret is the vault password.
func (v *Vault) Unlock(secret string) error {
	return v.UnlockWithPassphrase(secret, "")
}

// UnlockWithPassphrase unlocks with an additional BIP39 passphrase. The
// passphrase changes the derived key, so it must match the one given at
// Create time.
func (v *Vault) UnlockWithPassphrase(password, passphrase string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	encrypted, err := LoadEncryptedSeed(v.seedPath())
	if err != nil {
		if os.IsNotExist(errors.Unwrap(err)) {
			return ErrNoSeed
		}
		return err
	}

	mnemonic, err := DecryptMnemonic(encrypted, password)
	if err != nil {
		return err
	}

	priv, pub, err := keys.KeyFromMnemonic(string(mnemonic), passphrase)
	SecureClear(mnemonic)
	if err != nil {
		return fmt.Errorf("failed to derive key: %w", err)
	}

	v.priv, v.pub = priv, pub
	v.log.Info("Vault unlocked")
	return nil
}

// Lock clears the key material from memory.
func (v *Vault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.priv != nil {
		v.priv.Zero()
	}
	v.priv, v.pub = nil, nil
	v.log.Info("Vault locked")
}

// IsUnlocked reports whether a key is held in memory.
func (v *Vault) IsUnlocked() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.priv != nil
}

// PublicKey returns the unlocked key encoded with the given prefix.
func (v *Vault) PublicKey(prefix string) (string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.pub == nil {
		return "", ErrLocked
	}
	return keys.EncodePublicKey(v.pub, prefix), nil
}
