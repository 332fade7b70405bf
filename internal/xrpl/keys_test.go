package xrpl

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func TestDecodeAddress_KnownAccounts(t *testing.T) {
	tests := []struct {
		address string
		idHex   string
	}{
		{"rrrrrrrrrrrrrrrrrrrrrhoLvTp", "0000000000000000000000000000000000000000"},
		{"rrrrrrrrrrrrrrrrrrrrBZbvji", "0000000000000000000000000000000000000001"},
		{"rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh", "b5f762798a53d543a014caf8b297cff8f2f937e8"},
	}

	for _, tt := range tests {
		id, err := DecodeAddress(tt.address)
		if err != nil {
			t.Fatalf("DecodeAddress(%s): %v", tt.address, err)
		}
		if got := hex.EncodeToString(id); got != tt.idHex {
			t.Errorf("DecodeAddress(%s) = %s, want %s", tt.address, got, tt.idHex)
		}

		back, err := EncodeAddress(id)
		if err != nil {
			t.Fatalf("EncodeAddress: %v", err)
		}
		if back != tt.address {
			t.Errorf("EncodeAddress = %s, want %s", back, tt.address)
		}
	}
}

func TestDecodeAddress_Invalid(t *testing.T) {
	for _, addr := range []string{"", "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTi", "not-an-address"} {
		if _, err := DecodeAddress(addr); !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("DecodeAddress(%q) error = %v, want ErrInvalidAddress", addr, err)
		}
	}
}

func TestSeed_RoundTrip(t *testing.T) {
	entropy := bytes.Repeat([]byte{0x42}, 16)

	seed, err := EncodeSeed(entropy)
	if err != nil {
		t.Fatalf("EncodeSeed: %v", err)
	}
	if !strings.HasPrefix(seed, "sEd") {
		t.Errorf("ed25519 seed %q should start with sEd", seed)
	}

	got, err := DecodeSeed(seed)
	if err != nil {
		t.Fatalf("DecodeSeed: %v", err)
	}
	if !bytes.Equal(got, entropy) {
		t.Errorf("DecodeSeed = %x, want %x", got, entropy)
	}

	if _, err := EncodeSeed([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidSeed) {
		t.Errorf("short entropy error = %v, want ErrInvalidSeed", err)
	}
}

func TestDecodeSeed_Secp256k1Rejected(t *testing.T) {
	_, err := DecodeSeed("snoPBrXtMeMyMHUVTgbuqAfg1SUTb")
	if !errors.Is(err, ErrUnsupportedKeyType) {
		t.Errorf("error = %v, want ErrUnsupportedKeyType", err)
	}
}

func TestWalletFromSeed(t *testing.T) {
	entropy := bytes.Repeat([]byte{0x07}, 16)
	seed, err := EncodeSeed(entropy)
	if err != nil {
		t.Fatalf("EncodeSeed: %v", err)
	}

	w, err := WalletFromSeed(seed)
	if err != nil {
		t.Fatalf("WalletFromSeed: %v", err)
	}

	if len(w.PublicKey) != 33 || w.PublicKey[0] != 0xED {
		t.Fatalf("public key %x should be 33 bytes with ED prefix", w.PublicKey)
	}

	// Curve derivation must agree with the standard library signer.
	std := ed25519.NewKeyFromSeed(sha512Half(entropy)).Public().(ed25519.PublicKey)
	if !bytes.Equal(w.PublicKey[1:], std) {
		t.Errorf("derived public key %x != crypto/ed25519 %x", w.PublicKey[1:], std)
	}

	if !strings.HasPrefix(w.Address, "r") {
		t.Errorf("address %q should start with r", w.Address)
	}
	id, err := DecodeAddress(w.Address)
	if err != nil {
		t.Fatalf("DecodeAddress: %v", err)
	}
	if !bytes.Equal(id, AccountID(w.PublicKey)) {
		t.Error("address does not encode AccountID(public key)")
	}

	msg := []byte("payload")
	if !ed25519.Verify(std, msg, w.Sign(msg)) {
		t.Error("signature does not verify")
	}

	again, err := WalletFromSeed(seed)
	if err != nil {
		t.Fatalf("WalletFromSeed: %v", err)
	}
	if again.Address != w.Address {
		t.Error("derivation is not deterministic")
	}
}
