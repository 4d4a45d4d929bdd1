package encryption

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// rfc3526Group14 is the 2048-bit MODP group from RFC 3526 with
// generator 2. All ElGamal arithmetic in this package happens in the
// multiplicative group mod this safe prime.
const rfc3526Group14 = `
	FFFFFFFF FFFFFFFF C90FDAA2 2168C234 C4C6628B 80DC1CD1
	29024E08 8A67CC74 020BBEA6 3B139B22 514A0879 8E3404DD
	EF9519B3 CD3A431B 302B0A6D F25F1437 4FE1356D 6D51C245
	E485B576 625E7EC6 F44C42E9 A637ED6B 0BFF5CB6 F406B7ED
	EE386BFB 5A899FA5 AE9F2411 7C4B1FE6 49286651 ECE45B3D
	C2007CB8 A163BF05 98DA4836 1C55D39A 69163FA8 FD24CF5F
	83655D23 DCA3AD96 1C62F356 208552BB 9ED52907 7096966D
	670C354E 4ABC9804 F1746C08 CA18217C 32905E46 2E36CE3B
	E39E772C 180E8603 9B2783A2 EC07A28F B5C55DF0 6F4C52C9
	DE2BCBF6 95581718 3995497C EA956AE5 15D22618 98FA0510
	15728E5A 8AACAA68 FFFFFFFF FFFFFFFF`

// Group bundles the fixed ElGamal group parameters. Callers must treat
// the returned integers as read-only.
type Group struct {
	P *big.Int
	G *big.Int
}

var defaultGroup = Group{
	P: mustParsePrime(rfc3526Group14),
	G: big.NewInt(2),
}

// DefaultGroup returns the engine's fixed 2048-bit safe-prime group.
func DefaultGroup() Group {
	return defaultGroup
}

func mustParsePrime(hexRepr string) *big.Int {
	repr := strings.Join(strings.Fields(hexRepr), "")
	p, ok := new(big.Int).SetString(repr, 16)
	if !ok {
		panic("invalid group definition")
	}
	return p
}

// ParsedPublicKey is the single canonical form of an ElGamal public key
// inside the engine. External callers supply keys as hex strings,
// decimal strings, or the combined binary encoding; each parser below
// normalises into this type and validates before the key is used.
type ParsedPublicKey struct {
	P *big.Int
	G *big.Int
	H *big.Int
}

// ParsePublicKeyHex parses a public key whose components are hex strings
// with an optional 0x prefix.
func ParsePublicKeyHex(p, g, h string) (*ParsedPublicKey, error) {
	pk := &ParsedPublicKey{}
	for _, c := range []struct {
		name string
		repr string
		dst  **big.Int
	}{
		{"p", p, &pk.P},
		{"g", g, &pk.G},
		{"h", h, &pk.H},
	} {
		v, ok := new(big.Int).SetString(strings.TrimPrefix(c.repr, "0x"), 16)
		if !ok {
			return nil, fmt.Errorf("invalid hex value for key component %s", c.name)
		}
		*c.dst = v
	}
	if err := ValidateKeyParameters(pk); err != nil {
		return nil, err
	}
	return pk, nil
}

// ParsePublicKeyDecimal parses a public key whose components are decimal
// strings.
func ParsePublicKeyDecimal(p, g, h string) (*ParsedPublicKey, error) {
	pk := &ParsedPublicKey{}
	for _, c := range []struct {
		name string
		repr string
		dst  **big.Int
	}{
		{"p", p, &pk.P},
		{"g", g, &pk.G},
		{"h", h, &pk.H},
	} {
		v, ok := new(big.Int).SetString(c.repr, 10)
		if !ok {
			return nil, fmt.Errorf("invalid decimal value for key component %s", c.name)
		}
		*c.dst = v
	}
	if err := ValidateKeyParameters(pk); err != nil {
		return nil, err
	}
	return pk, nil
}

// EncodePublicKey serialises a public key into the combined-components
// wire format: u32be(len(p))||p||u32be(len(g))||g||u32be(len(h))||h.
func EncodePublicKey(pk *ParsedPublicKey) []byte {
	var out []byte
	for _, v := range []*big.Int{pk.P, pk.G, pk.H} {
		b := v.Bytes()
		out = binary.BigEndian.AppendUint32(out, uint32(len(b)))
		out = append(out, b...)
	}
	return out
}

// DecodePublicKey parses the combined-components wire format produced by
// EncodePublicKey and validates the result.
func DecodePublicKey(data []byte) (*ParsedPublicKey, error) {
	pk := &ParsedPublicKey{}
	rest := data
	for _, dst := range []**big.Int{&pk.P, &pk.G, &pk.H} {
		var chunk []byte
		var err error
		chunk, rest, err = readLengthPrefixed(rest)
		if err != nil {
			return nil, fmt.Errorf("invalid public key encoding: %w", err)
		}
		*dst = new(big.Int).SetBytes(chunk)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("invalid public key encoding: %d trailing bytes", len(rest))
	}
	if err := ValidateKeyParameters(pk); err != nil {
		return nil, err
	}
	return pk, nil
}

// ParsePublicKeyHexBlob parses a single hex string holding the combined
// binary encoding, the form published on chain for an election.
func ParsePublicKeyHexBlob(blob string) (*ParsedPublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(blob, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid public key hex: %w", err)
	}
	return DecodePublicKey(raw)
}

// ValidateKeyParameters rejects degenerate group parameters before a key
// is ever used for encryption or proof verification.
func ValidateKeyParameters(pk *ParsedPublicKey) error {
	if pk.P == nil || pk.G == nil || pk.H == nil {
		return fmt.Errorf("public key is missing components")
	}
	if pk.P.Cmp(big.NewInt(3)) < 0 {
		return fmt.Errorf("group prime p must be at least 3")
	}
	one := big.NewInt(1)
	if pk.G.Cmp(one) <= 0 || pk.G.Cmp(pk.P) >= 0 {
		return fmt.Errorf("generator g must satisfy 1 < g < p")
	}
	if pk.H.Sign() <= 0 || pk.H.Cmp(pk.P) >= 0 {
		return fmt.Errorf("public value h must satisfy 0 < h < p")
	}
	return nil
}

func readLengthPrefixed(data []byte) ([]byte, []byte, error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("truncated length prefix")
	}
	n := binary.BigEndian.Uint32(data[:4])
	data = data[4:]
	if uint32(len(data)) < n {
		return nil, nil, fmt.Errorf("declared length %d exceeds remaining %d bytes", n, len(data))
	}
	return data[:n], data[n:], nil
}
