package xrpl

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Hash prefixes.
var (
	prefixTxSign = []byte{0x53, 0x54, 0x58, 0x00} // "STX\0"
	prefixTxID   = []byte{0x54, 0x58, 0x4E, 0x00} // "TXN\0"
)

// Serialized type codes.
const (
	typeUInt16    = 1
	typeUInt32    = 2
	typeAmount    = 6
	typeBlob      = 7
	typeAccountID = 8
)

// IOU amount bounds.
const (
	minIOUExponent = -96
	maxIOUExponent = 80
	iouMantissaMin = 1_000_000_000_000_000  // 10^15
	iouMantissaMax = 10_000_000_000_000_000 // 10^16 (exclusive)
)

const (
	amountNotXRPBit   = uint64(1) << 63
	amountPositiveBit = uint64(1) << 62
	maxDrops          = uint64(100_000_000_000_000_000)
)

type field struct {
	typeCode  int
	fieldCode int
	data      []byte
}

// header encodes the field id (type and field code, 1 to 3 bytes).
func (f field) header() []byte {
	switch {
	case f.typeCode < 16 && f.fieldCode < 16:
		return []byte{byte(f.typeCode<<4 | f.fieldCode)}
	case f.typeCode < 16:
		return []byte{byte(f.typeCode << 4), byte(f.fieldCode)}
	case f.fieldCode < 16:
		return []byte{byte(f.fieldCode), byte(f.typeCode)}
	default:
		return []byte{0, byte(f.typeCode), byte(f.fieldCode)}
	}
}

// SignPayment signs p, which must already carry Fee, Sequence and LastLedgerSequence.
// Returns the signed blob (upper hex) and the transaction hash.
func SignPayment(w *Wallet, p *Payment) (string, string, error) {
	unsigned, err := serializePayment(p, w.PublicKey, nil)
	if err != nil {
		return "", "", err
	}
	sig := w.Sign(append(append([]byte{}, prefixTxSign...), unsigned...))

	signed, err := serializePayment(p, w.PublicKey, sig)
	if err != nil {
		return "", "", err
	}
	return strings.ToUpper(hex.EncodeToString(signed)), hashTx(signed), nil
}

// HashTxBlob returns the transaction hash of a signed blob.
func HashTxBlob(blob string) (string, error) {
	raw, err := hex.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("decode tx blob: %w", err)
	}
	return hashTx(raw), nil
}

func hashTx(raw []byte) string {
	return strings.ToUpper(hex.EncodeToString(sha512Half(prefixTxID, raw)))
}

// serializePayment produces the canonical binary form. A nil sig omits TxnSignature.
func serializePayment(p *Payment, signingPubKey, sig []byte) ([]byte, error) {
	if p.Fee == "" || p.Sequence == 0 || p.LastLedgerSequence == 0 {
		return nil, fmt.Errorf("payment not autofilled")
	}

	account, err := DecodeAddress(p.Account)
	if err != nil {
		return nil, fmt.Errorf("account: %w", err)
	}
	destination, err := DecodeAddress(p.Destination)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}
	amount, err := encodeAmount(p.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}
	fee, err := encodeAmount(Amount{Drops: p.Fee})
	if err != nil {
		return nil, fmt.Errorf("fee: %w", err)
	}

	fields := []field{
		{typeUInt16, 2, uint16Bytes(paymentTxType)},         // TransactionType
		{typeUInt32, 2, uint32Bytes(p.Flags)},               // Flags
		{typeUInt32, 4, uint32Bytes(p.Sequence)},            // Sequence
		{typeUInt32, 27, uint32Bytes(p.LastLedgerSequence)}, // LastLedgerSequence
		{typeAmount, 1, amount},                             // Amount
		{typeAmount, 8, fee},                                // Fee
		{typeBlob, 3, vl(signingPubKey)},                    // SigningPubKey
		{typeAccountID, 1, vl(account)},                     // Account
		{typeAccountID, 3, vl(destination)},                 // Destination
	}
	if p.SendMax != nil {
		b, err := encodeAmount(*p.SendMax)
		if err != nil {
			return nil, fmt.Errorf("send max: %w", err)
		}
		fields = append(fields, field{typeAmount, 9, b})
	}
	if p.DeliverMin != nil {
		b, err := encodeAmount(*p.DeliverMin)
		if err != nil {
			return nil, fmt.Errorf("deliver min: %w", err)
		}
		fields = append(fields, field{typeAmount, 10, b})
	}
	if sig != nil {
		fields = append(fields, field{typeBlob, 4, vl(sig)}) // TxnSignature
	}

	sort.Slice(fields, func(i, j int) bool {
		if fields[i].typeCode != fields[j].typeCode {
			return fields[i].typeCode < fields[j].typeCode
		}
		return fields[i].fieldCode < fields[j].fieldCode
	})

	var out []byte
	for _, f := range fields {
		out = append(out, f.header()...)
		out = append(out, f.data...)
	}
	return out, nil
}

func uint16Bytes(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func uint32Bytes(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// vl prefixes b with its variable-length encoding.
func vl(b []byte) []byte {
	n := len(b)
	var prefix []byte
	switch {
	case n <= 192:
		prefix = []byte{byte(n)}
	case n <= 12480:
		n -= 193
		prefix = []byte{byte(193 + (n >> 8)), byte(n & 0xff)}
	default:
		n -= 12481
		prefix = []byte{byte(241 + (n >> 16)), byte((n >> 8) & 0xff), byte(n & 0xff)}
	}
	return append(prefix, b...)
}

func encodeAmount(a Amount) ([]byte, error) {
	if a.IsXRP() {
		return encodeXRPAmount(a.Drops)
	}
	return encodeIOUAmount(a)
}

func encodeXRPAmount(drops string) ([]byte, error) {
	n, err := strconv.ParseUint(drops, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse drops %q: %w", drops, err)
	}
	if n > maxDrops {
		return nil, fmt.Errorf("drops %d out of range", n)
	}
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n|amountPositiveBit)
	return b, nil
}

// encodeIOUAmount writes mantissa/exponent (8 bytes), currency (20) and issuer (20).
// Mantissas with more than 16 digits are truncated toward zero.
func encodeIOUAmount(a Amount) ([]byte, error) {
	value, err := encodeIOUValue(a.Value)
	if err != nil {
		return nil, err
	}
	currency, err := currencyBytes(a.Currency)
	if err != nil {
		return nil, err
	}
	issuer, err := DecodeAddress(a.Issuer)
	if err != nil {
		return nil, fmt.Errorf("issuer: %w", err)
	}

	out := make([]byte, 0, 48)
	out = append(out, value...)
	out = append(out, currency...)
	out = append(out, issuer...)
	return out, nil
}

func encodeIOUValue(value string) ([]byte, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("parse value %q: %w", value, err)
	}

	b := make([]byte, 8)
	if d.IsZero() {
		binary.BigEndian.PutUint64(b, amountNotXRPBit)
		return b, nil
	}

	mantissa := new(big.Int).Abs(d.Coefficient())
	exponent := int(d.Exponent())

	ten := big.NewInt(10)
	upper := new(big.Int).SetUint64(iouMantissaMax)
	lower := new(big.Int).SetUint64(iouMantissaMin)
	for mantissa.Cmp(upper) >= 0 {
		mantissa.Quo(mantissa, ten)
		exponent++
	}
	for mantissa.Cmp(lower) < 0 {
		mantissa.Mul(mantissa, ten)
		exponent--
	}

	if exponent < minIOUExponent {
		binary.BigEndian.PutUint64(b, amountNotXRPBit)
		return b, nil
	}
	if exponent > maxIOUExponent {
		return nil, fmt.Errorf("value %q exceeds amount range", value)
	}

	bits := amountNotXRPBit | uint64(exponent+97)<<54 | mantissa.Uint64()
	if d.Sign() > 0 {
		bits |= amountPositiveBit
	}
	binary.BigEndian.PutUint64(b, bits)
	return b, nil
}

// currencyBytes encodes a 3-character code or a 40-character hex code into 20 bytes.
func currencyBytes(code string) ([]byte, error) {
	out := make([]byte, 20)
	switch len(code) {
	case 3:
		if code == "XRP" {
			return nil, fmt.Errorf("XRP is not an issued currency")
		}
		copy(out[12:15], code)
		return out, nil
	case 40:
		raw, err := hex.DecodeString(code)
		if err != nil {
			return nil, fmt.Errorf("decode currency %q: %w", code, err)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("currency %q must be 3 characters or 40 hex digits", code)
	}
}
