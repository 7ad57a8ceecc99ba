// Package keys handles public key strings for account-based chains.
// Keys are secp256k1 points serialized as <prefix><base58(pubkey || checksum)>
// where the checksum is the first 4 bytes of RIPEMD-160 over the compressed
// public key, e.g. "ENU6MRyAjQq8ud7hVNYcfnVPJqcVpscN5So8BhtHuGYqET5GDW5CV".
//
// Signing is out of scope here; private keys only exist transiently while
// deriving new wallet key material.
package keys

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/ripemd160"
)

// Key string errors.
var (
	ErrBadPrefix   = errors.New("public key has wrong prefix")
	ErrBadEncoding = errors.New("public key is not valid base58")
	ErrBadChecksum = errors.New("public key checksum mismatch")
	ErrBadKey      = errors.New("public key is not a valid curve point")
)

const (
	pubKeyLen   = 33 // compressed secp256k1
	checksumLen = 4
)

// checksum computes the 4-byte RIPEMD-160 checksum over data.
func checksum(data []byte) []byte {
	h := ripemd160.New()
	h.Write(data)
	return h.Sum(nil)[:checksumLen]
}

// ParsePublicKey decodes and verifies a prefixed public key string.
func ParsePublicKey(s, prefix string) (*btcec.PublicKey, error) {
	if !strings.HasPrefix(s, prefix) {
		return nil, ErrBadPrefix
	}

	decoded := base58.Decode(s[len(prefix):])
	if len(decoded) != pubKeyLen+checksumLen {
		return nil, ErrBadEncoding
	}

	raw := decoded[:pubKeyLen]
	sum := decoded[pubKeyLen:]
	want := checksum(raw)
	for i := 0; i < checksumLen; i++ {
		if sum[i] != want[i] {
			return nil, ErrBadChecksum
		}
	}

	pub, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadKey, err)
	}
	return pub, nil
}

// ValidatePublicKey reports whether s is a well-formed public key for the
// given chain prefix.
func ValidatePublicKey(s, prefix string) bool {
	_, err := ParsePublicKey(s, prefix)
	return err == nil
}

// EncodePublicKey serializes a public key into its prefixed string form.
func EncodePublicKey(pub *btcec.PublicKey, prefix string) string {
	raw := pub.SerializeCompressed()
	payload := make([]byte, 0, pubKeyLen+checksumLen)
	payload = append(payload, raw...)
	payload = append(payload, checksum(raw)...)
	return prefix + base58.Encode(payload)
}

// GenerateMnemonic generates a new 24-word mnemonic for wallet key material.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

// ValidateMnemonic checks if a mnemonic is valid.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// KeyFromMnemonic derives a key pair from a mnemonic and optional passphrase.
// The private key is returned to the caller (the external signer keeps it);
// this package never stores it.
func KeyFromMnemonic(mnemonic, passphrase string) (*btcec.PrivateKey, *btcec.PublicKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, nil, fmt.Errorf("invalid mnemonic")
	}

	seed := bip39.NewSeed(mnemonic, passphrase)
	priv, pub := btcec.PrivKeyFromBytes(seed[:32])
	return priv, pub, nil
}
