package encryption

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// KeyPair holds the ElGamal parameters {p, g, h, x} with h = g^x mod p.
// X is the private scalar and is absent from serialised forms.
type KeyPair struct {
	P *big.Int
	G *big.Int
	H *big.Int
	X *big.Int
}

// PublicKey strips the private scalar from a key pair.
func (kp *KeyPair) PublicKey() *ParsedPublicKey {
	return &ParsedPublicKey{P: kp.P, G: kp.G, H: kp.H}
}

// Validate checks the group parameters and, when the private scalar is
// present, that the public value actually equals g^x mod p. Imported
// keys must pass this check before use.
func (kp *KeyPair) Validate() error {
	if err := ValidateKeyParameters(kp.PublicKey()); err != nil {
		return err
	}
	if kp.X != nil {
		if ModPow(kp.G, kp.X, kp.P).Cmp(kp.H) != 0 {
			return fmt.Errorf("public value h does not match g^x mod p")
		}
	}
	return nil
}

// GenerateKeyPair draws a fresh private scalar from the fixed 2048-bit
// safe-prime group and derives the matching public value.
func GenerateKeyPair() (*KeyPair, error) {
	group := DefaultGroup()

	// x in [1, p-2]: excludes the degenerate exponents 0 and p-1.
	max := new(big.Int).Sub(group.P, big.NewInt(2))
	x, err := RandomInt(big.NewInt(1), max)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private scalar: %w", err)
	}

	return &KeyPair{
		P: group.P,
		G: group.G,
		H: ModPow(group.G, x, group.P),
		X: x,
	}, nil
}

// Ciphertext is an ElGamal ciphertext (g^r, h^r * m) mod p.
type Ciphertext struct {
	C1 *big.Int
	C2 *big.Int
}

// Encrypt encrypts a group element under the given public key using a
// fresh random exponent r in [1, p-2].
func Encrypt(message *big.Int, pub *ParsedPublicKey) (*Ciphertext, error) {
	if err := ValidateKeyParameters(pub); err != nil {
		return nil, err
	}

	max := new(big.Int).Sub(pub.P, big.NewInt(2))
	r, err := RandomInt(big.NewInt(1), max)
	if err != nil {
		return nil, fmt.Errorf("failed to generate encryption randomness: %w", err)
	}

	c2 := new(big.Int).Mul(ModPow(pub.H, r, pub.P), message)
	c2.Mod(c2, pub.P)

	return &Ciphertext{
		C1: ModPow(pub.G, r, pub.P),
		C2: c2,
	}, nil
}

// AddEncrypted combines two ciphertexts under the same public key by
// component-wise multiplication mod p. This is the engine's sole
// homomorphic operator: E(m1) * E(m2) = E(m1*m2).
func AddEncrypted(a, b *Ciphertext, p *big.Int) *Ciphertext {
	c1 := new(big.Int).Mul(a.C1, b.C1)
	c1.Mod(c1, p)
	c2 := new(big.Int).Mul(a.C2, b.C2)
	c2.Mod(c2, p)
	return &Ciphertext{C1: c1, C2: c2}
}

// IdentityCiphertext returns the neutral element (1, 1) of the
// homomorphism, the correct starting point for a running product.
func IdentityCiphertext() *Ciphertext {
	return &Ciphertext{C1: big.NewInt(1), C2: big.NewInt(1)}
}

// Decrypt recovers the group element m = c2 * (c1^x)^-1 mod p. The
// result is g^m for exponentially encoded messages, not m itself;
// recovering the exponent requires RecoverCount.
func Decrypt(ct *Ciphertext, privateScalar, p *big.Int) (*big.Int, error) {
	shared := ModPow(ct.C1, privateScalar, p)
	sharedInv, err := ModInverse(shared, p)
	if err != nil {
		return nil, err
	}
	m := new(big.Int).Mul(ct.C2, sharedInv)
	return m.Mod(m, p), nil
}

// RecoverCount searches m in [0, maxValue] for g^m == gm. The bound is
// deliberately a required parameter: tallies are capped by the number
// of ballots cast, and an unbounded search would be a denial-of-service
// vector.
func RecoverCount(gm, g, p *big.Int, maxValue int) (int, error) {
	if maxValue < 0 {
		return 0, &DiscreteLogNotFoundError{MaxValue: maxValue}
	}
	cur := big.NewInt(1)
	for m := 0; m <= maxValue; m++ {
		if cur.Cmp(gm) == 0 {
			return m, nil
		}
		cur.Mul(cur, g)
		cur.Mod(cur, p)
	}
	return 0, &DiscreteLogNotFoundError{MaxValue: maxValue}
}

// Encode serialises the ciphertext as length-prefixed big-endian byte
// strings: u32be(len(c1))||c1||u32be(len(c2))||c2.
func (ct *Ciphertext) Encode() []byte {
	var out []byte
	for _, v := range []*big.Int{ct.C1, ct.C2} {
		b := v.Bytes()
		out = binary.BigEndian.AppendUint32(out, uint32(len(b)))
		out = append(out, b...)
	}
	return out
}

// DecodeCiphertext parses the wire encoding produced by Encode.
func DecodeCiphertext(data []byte) (*Ciphertext, error) {
	c1Bytes, rest, err := readLengthPrefixed(data)
	if err != nil {
		return nil, &MalformedCiphertextError{Reason: err.Error()}
	}
	c2Bytes, rest, err := readLengthPrefixed(rest)
	if err != nil {
		return nil, &MalformedCiphertextError{Reason: err.Error()}
	}
	if len(rest) != 0 {
		return nil, &MalformedCiphertextError{Reason: fmt.Sprintf("%d trailing bytes", len(rest))}
	}
	return &Ciphertext{
		C1: new(big.Int).SetBytes(c1Bytes),
		C2: new(big.Int).SetBytes(c2Bytes),
	}, nil
}
