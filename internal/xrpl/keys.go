package xrpl

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160"
)

// Key and address codec errors.
var (
	ErrInvalidSeed        = errors.New("invalid seed")
	ErrInvalidAddress     = errors.New("invalid address")
	ErrUnsupportedKeyType = errors.New("unsupported key type: only ed25519 seeds are supported")
)

// xrplAlphabet is the base58 alphabet used for ledger addresses and seeds.
var xrplAlphabet = base58.NewAlphabet("rpshnaf39wBUDNEGHJKLM4PQRST7VWXYZ2bcdeCg65jkm8oFqi1tuvAxyz")

// Version prefixes for base58check payloads.
var (
	accountIDPrefix   = []byte{0x00}
	ed25519SeedPrefix = []byte{0x01, 0xE1, 0x4B}
	secp256k1SeedPfx  = []byte{0x21}
)

const (
	accountIDLen   = 20
	seedEntropyLen = 16
	checksumLen    = 4
	ed25519KeyTag  = 0xED
)

// encodeCheck encodes prefix||payload||checksum with the ledger alphabet.
func encodeCheck(prefix, payload []byte) string {
	buf := make([]byte, 0, len(prefix)+len(payload)+checksumLen)
	buf = append(buf, prefix...)
	buf = append(buf, payload...)
	buf = append(buf, checksum(buf)...)
	return base58.EncodeAlphabet(buf, xrplAlphabet)
}

// decodeCheck decodes s and verifies its checksum, returning prefix||payload.
func decodeCheck(s string) ([]byte, error) {
	raw, err := base58.DecodeAlphabet(s, xrplAlphabet)
	if err != nil {
		return nil, fmt.Errorf("base58 decode: %w", err)
	}
	if len(raw) <= checksumLen {
		return nil, fmt.Errorf("payload too short: %d bytes", len(raw))
	}
	body, sum := raw[:len(raw)-checksumLen], raw[len(raw)-checksumLen:]
	if !bytes.Equal(checksum(body), sum) {
		return nil, fmt.Errorf("checksum mismatch")
	}
	return body, nil
}

func checksum(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:checksumLen]
}

// sha512Half returns the first 32 bytes of SHA-512.
func sha512Half(parts ...[]byte) []byte {
	h := sha512.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)[:32]
}

// EncodeSeed encodes 16 bytes of entropy as an ed25519 family seed (sEd...).
func EncodeSeed(entropy []byte) (string, error) {
	if len(entropy) != seedEntropyLen {
		return "", fmt.Errorf("%w: entropy must be %d bytes, got %d", ErrInvalidSeed, seedEntropyLen, len(entropy))
	}
	return encodeCheck(ed25519SeedPrefix, entropy), nil
}

// DecodeSeed returns the entropy of an ed25519 family seed.
func DecodeSeed(seed string) ([]byte, error) {
	body, err := decodeCheck(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	switch {
	case len(body) == len(ed25519SeedPrefix)+seedEntropyLen && bytes.HasPrefix(body, ed25519SeedPrefix):
		return body[len(ed25519SeedPrefix):], nil
	case len(body) == len(secp256k1SeedPfx)+seedEntropyLen && bytes.HasPrefix(body, secp256k1SeedPfx):
		return nil, ErrUnsupportedKeyType
	default:
		return nil, fmt.Errorf("%w: unexpected payload length %d", ErrInvalidSeed, len(body))
	}
}

// DerivePublicKey computes the ed25519 public key for a 32-byte private seed.
// It is the scalar-base multiplication ed25519 itself performs, done on the
// curve directly so the address can be checked without materializing a signer.
func DerivePublicKey(privateSeed []byte) ([]byte, error) {
	if len(privateSeed) != ed25519.SeedSize {
		return nil, fmt.Errorf("private seed must be %d bytes", ed25519.SeedSize)
	}
	h := sha512.Sum512(privateSeed)
	s, err := edwards25519.NewScalar().SetBytesWithClamping(h[:32])
	if err != nil {
		return nil, fmt.Errorf("clamp scalar: %w", err)
	}
	return new(edwards25519.Point).ScalarBaseMult(s).Bytes(), nil
}

// AccountID returns RIPEMD160(SHA256(publicKey)).
func AccountID(publicKey []byte) []byte {
	sh := sha256.Sum256(publicKey)
	r := ripemd160.New()
	r.Write(sh[:])
	return r.Sum(nil)
}

// EncodeAddress encodes a 20-byte account id as a classic address.
func EncodeAddress(accountID []byte) (string, error) {
	if len(accountID) != accountIDLen {
		return "", fmt.Errorf("%w: account id must be %d bytes, got %d", ErrInvalidAddress, accountIDLen, len(accountID))
	}
	return encodeCheck(accountIDPrefix, accountID), nil
}

// DecodeAddress returns the 20-byte account id of a classic address.
func DecodeAddress(address string) ([]byte, error) {
	body, err := decodeCheck(address)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidAddress, address, err)
	}
	if len(body) != len(accountIDPrefix)+accountIDLen || body[0] != accountIDPrefix[0] {
		return nil, fmt.Errorf("%w %q: unexpected payload", ErrInvalidAddress, address)
	}
	return body[1:], nil
}

// Wallet is an ed25519 signing key with its classic address.
type Wallet struct {
	Address    string
	PublicKey  []byte // 33 bytes, 0xED prefixed
	privateKey ed25519.PrivateKey
}

// WalletFromSeed derives the signing wallet for an ed25519 family seed.
func WalletFromSeed(seed string) (*Wallet, error) {
	entropy, err := DecodeSeed(seed)
	if err != nil {
		return nil, err
	}
	privateSeed := sha512Half(entropy)

	pub, err := DerivePublicKey(privateSeed)
	if err != nil {
		return nil, err
	}
	publicKey := append([]byte{ed25519KeyTag}, pub...)

	address, err := EncodeAddress(AccountID(publicKey))
	if err != nil {
		return nil, err
	}

	return &Wallet{
		Address:    address,
		PublicKey:  publicKey,
		privateKey: ed25519.NewKeyFromSeed(privateSeed),
	}, nil
}

// Sign signs msg with the wallet key.
func (w *Wallet) Sign(msg []byte) []byte {
	return ed25519.Sign(w.privateKey, msg)
}
