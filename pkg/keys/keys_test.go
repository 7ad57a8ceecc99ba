package keys

import (
	"errors"
	"testing"
)

func TestEncodeParseRoundTrip(t *testing.T) {
	mnemonic, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error = %v", err)
	}
	if !ValidateMnemonic(mnemonic) {
		t.Fatal("generated mnemonic is not valid")
	}

	_, pub, err := KeyFromMnemonic(mnemonic, "")
	if err != nil {
		t.Fatalf("KeyFromMnemonic() error = %v", err)
	}

	encoded := EncodePublicKey(pub, "ENU")
	if !ValidatePublicKey(encoded, "ENU") {
		t.Fatalf("ValidatePublicKey(%q) = false, want true", encoded)
	}

	parsed, err := ParsePublicKey(encoded, "ENU")
	if err != nil {
		t.Fatalf("ParsePublicKey() error = %v", err)
	}
	if !parsed.IsEqual(pub) {
		t.Error("parsed key does not match original")
	}
}

func TestParsePublicKeyErrors(t *testing.T) {
	mnemonic, _ := GenerateMnemonic()
	_, pub, _ := KeyFromMnemonic(mnemonic, "")
	encoded := EncodePublicKey(pub, "ENU")

	// Wrong prefix
	if _, err := ParsePublicKey(encoded, "EOS"); !errors.Is(err, ErrBadPrefix) {
		t.Errorf("wrong prefix: err = %v, want ErrBadPrefix", err)
	}

	// Corrupted checksum: flip the last character
	corrupt := encoded[:len(encoded)-1]
	if encoded[len(encoded)-1] == 'a' {
		corrupt += "b"
	} else {
		corrupt += "a"
	}
	if _, err := ParsePublicKey(corrupt, "ENU"); err == nil {
		t.Error("corrupted key should not parse")
	}

	// Garbage
	if _, err := ParsePublicKey("ENUnotakey", "ENU"); err == nil {
		t.Error("garbage key should not parse")
	}
}

func TestKeyFromMnemonicDeterministic(t *testing.T) {
	mnemonic, _ := GenerateMnemonic()

	_, pub1, err := KeyFromMnemonic(mnemonic, "pass")
	if err != nil {
		t.Fatalf("KeyFromMnemonic() error = %v", err)
	}
	_, pub2, err := KeyFromMnemonic(mnemonic, "pass")
	if err != nil {
		t.Fatalf("KeyFromMnemonic() error = %v", err)
	}
	if !pub1.IsEqual(pub2) {
		t.Error("same mnemonic and passphrase should derive the same key")
	}

	_, pub3, _ := KeyFromMnemonic(mnemonic, "other")
	if pub1.IsEqual(pub3) {
		t.Error("different passphrase should derive a different key")
	}

	if _, _, err := KeyFromMnemonic("not a mnemonic", ""); err == nil {
		t.Error("invalid mnemonic should error")
	}
}
