// Package vault - Encrypted seed storage. Argon2id + AES-256-GCM only.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"unicode"

	"golang.org/x/crypto/argon2"
)

// Argon2 parameters (OWASP recommended for password hashing)
const (
	argon2Time        = 3         // Number of iterations
	argon2Memory      = 64 * 1024 // 64 MB memory
	argon2Parallelism = 4         // Parallel threads
	argon2KeyLen      = 32        // Output key length for AES-256
	argon2SaltLen     = 32        // Salt length
)

// EncryptedSeed is an encrypted mnemonic as stored on disk.
type EncryptedSeed struct {
	Version     int    `json:"version"`
	Ciphertext  []byte `json:"ciphertext"`
	Salt        []byte `json:"salt"`
	Nonce       []byte `json:"nonce"`
	Time        uint32 `json:"time"`
	Memory      uint32 `json:"memory"`
	Parallelism uint8  `json:"parallelism"`
}

// EncryptMnemonic encrypts a mnemonic using Argon2id + AES-256-GCM.
func EncryptMnemonic(mnemonic, password string) (*EncryptedSeed, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Parallelism, argon2KeyLen)
	defer SecureClear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return &EncryptedSeed{
		Version:     1,
		Ciphertext:  gcm.Seal(nil, nonce, []byte(mnemonic), nil),
		Salt:        salt,
		Nonce:       nonce,
		Time:        argon2Time,
		Memory:      argon2Memory,
		Parallelism: argon2Parallelism,
	}, nil
}

// DecryptMnemonic decrypts an encrypted seed with the password. The caller
// owns the returned buffer and must SecureClear it once the key is derived.
func DecryptMnemonic(encrypted *EncryptedSeed, password string) ([]byte, error) {
	key := argon2.IDKey(
		[]byte(password),
		encrypted.Salt,
		encrypted.Time,
		encrypted.Memory,
		encrypted.Parallelism,
		argon2KeyLen,
	)
	defer SecureClear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, encrypted.Nonce, encrypted.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt (wrong password?): %w", err)
	}

	return plaintext, nil
}

// SaveEncryptedSeed writes an encrypted seed to disk with tight permissions.
func SaveEncryptedSeed(encrypted *EncryptedSeed, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.Marshal(encrypted)
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// LoadEncryptedSeed reads an encrypted seed from disk.
func LoadEncryptedSeed(path string) (*EncryptedSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var encrypted EncryptedSeed
	if err := json.Unmarshal(data, &encrypted); err != nil {
		return nil, fmt.Errorf("failed to unmarshal: %w", err)
	}
	return &encrypted, nil
}

// SecureClear overwrites a byte slice with zeros.
func SecureClear(data []byte) {
	for i := range data {
		data[i] = 0
	}
}

// Password validation constants
const (
	MinPasswordLength = 8
	MaxPasswordLength = 256
)

// ValidatePassword validates password strength.
// Requires at least 8 characters and 3 of 4 character types.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("password must be at most %d characters", MaxPasswordLength)
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	complexity := 0
	for _, ok := range []bool{hasUpper, hasLower, hasNumber, hasSpecial} {
		if ok {
			complexity++
		}
	}
	if complexity < 3 {
		return fmt.Errorf("password must contain at least 3 of: uppercase, lowercase, number, special character")
	}
	return nil
}
