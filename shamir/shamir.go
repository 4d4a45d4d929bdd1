// Package shamir implements Shamir Secret Sharing over a fixed prime
// field, used to split the ElGamal private scalar across trustees. The
// sharing field is deliberately independent of the encryption group:
// share arithmetic reduces mod the field prime Q, never mod the group
// prime.
package shamir

import (
	"fmt"
	"math/big"
	"strings"

	"voting-crypto/encryption"
)

// rfc3526Group15 is the 3072-bit MODP prime from RFC 3526. It is
// strictly larger than any 2048-bit secret, so the private scalar fits
// in the field without reduction.
const rfc3526Group15 = `
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
	15728E5A 8AAAC42D AD33170D 04507A33 A85521AB DF1CBA64
	ECFB8504 58DBEF0A 8AEA7157 5D060C7D B3970F85 A6E1E4C7
	ABF5AE8C DB0933D7 1E8C94E0 4A25619D CEE3D226 1AD2EE6B
	F12FFA06 D98A0864 D8760273 3EC86A64 521F2B18 177B200C
	BBE11757 7A615D6C 770988C0 BAD946E2 08E24FA0 74E5AB31
	43DB5BFC E0FD108E 4B82D120 A93AD2CA FFFFFFFF FFFFFFFF`

var primeQ = mustParsePrime(rfc3526Group15)

// PrimeQ returns a copy of the sharing field prime.
func PrimeQ() *big.Int {
	return new(big.Int).Set(primeQ)
}

func mustParsePrime(hexRepr string) *big.Int {
	repr := strings.Join(strings.Fields(hexRepr), "")
	p, ok := new(big.Int).SetString(repr, 16)
	if !ok {
		panic("invalid field definition")
	}
	return p
}

// Share is one evaluation point (index, f(index)) of the secret
// polynomial. Indices start at 1; f(0) is the secret and is never
// issued as a share.
type Share struct {
	Index int      `json:"index"`
	Value *big.Int `json:"value"`
}

// ShareSet is the output of a sharing ceremony: the issued shares, the
// polynomial coefficients retained for verification (coefficient zero
// is the secret itself), and the field prime.
type ShareSet struct {
	Shares       []Share
	Coefficients []*big.Int
	PrimeQ       *big.Int
}

// InvalidThresholdError reports a threshold outside [2, totalShares].
type InvalidThresholdError struct {
	Threshold   int
	TotalShares int
}

func (e *InvalidThresholdError) Error() string {
	return fmt.Sprintf("invalid threshold %d for %d shares: need 2 <= t <= n", e.Threshold, e.TotalShares)
}

// InsufficientSharesError reports a reconstruction attempt with fewer
// shares than the threshold.
type InsufficientSharesError struct {
	Provided int
	Required int
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("insufficient shares: got %d, need %d", e.Provided, e.Required)
}

// GenerateShares splits a secret into totalShares shares of which any
// threshold reconstruct it. The polynomial f(x) = secret + a1*x + ... +
// a(t-1)*x^(t-1) has uniformly random coefficients in [0, Q); shares
// are f(1)..f(n).
func GenerateShares(secret []byte, threshold, totalShares int) (*ShareSet, error) {
	if threshold < 2 || threshold > totalShares {
		return nil, &InvalidThresholdError{Threshold: threshold, TotalShares: totalShares}
	}

	secretInt := new(big.Int).SetBytes(secret)
	if secretInt.Cmp(primeQ) >= 0 {
		return nil, fmt.Errorf("secret does not fit in the sharing field")
	}

	coeffs := make([]*big.Int, threshold)
	coeffs[0] = secretInt
	qMinus1 := new(big.Int).Sub(primeQ, big.NewInt(1))
	for i := 1; i < threshold; i++ {
		c, err := encryption.RandomInt(big.NewInt(0), qMinus1)
		if err != nil {
			return nil, fmt.Errorf("failed to generate polynomial coefficient: %w", err)
		}
		coeffs[i] = c
	}

	shares := make([]Share, totalShares)
	for i := 1; i <= totalShares; i++ {
		shares[i-1] = Share{
			Index: i,
			Value: evaluatePolynomial(coeffs, big.NewInt(int64(i)), primeQ),
		}
	}

	return &ShareSet{Shares: shares, Coefficients: coeffs, PrimeQ: primeQ}, nil
}

// VerifyShare re-evaluates the polynomial described by the public
// coefficients at the share's index and compares with its value.
func VerifyShare(share Share, coefficients []*big.Int, q *big.Int) bool {
	if share.Index < 1 || share.Value == nil || len(coefficients) == 0 {
		return false
	}
	expected := evaluatePolynomial(coefficients, big.NewInt(int64(share.Index)), q)
	return expected.Cmp(share.Value) == 0
}

// ReconstructSecret recovers f(0) from at least threshold shares via
// Lagrange interpolation. Any threshold-sized subset of correct shares
// yields the identical secret.
func ReconstructSecret(shares []Share, threshold int, q *big.Int) ([]byte, error) {
	if len(shares) < threshold {
		return nil, &InsufficientSharesError{Provided: len(shares), Required: threshold}
	}

	seen := make(map[int]bool, len(shares))
	for _, s := range shares {
		if s.Index < 1 {
			return nil, fmt.Errorf("share index %d out of range", s.Index)
		}
		if seen[s.Index] {
			return nil, fmt.Errorf("duplicate share index %d", s.Index)
		}
		seen[s.Index] = true
	}

	// secret = sum_i y_i * L_i(0) mod q with
	// L_i(0) = prod_{j != i} (0 - x_j) / (x_i - x_j).
	secret := new(big.Int)
	for i, si := range shares {
		num := big.NewInt(1)
		den := big.NewInt(1)
		xi := big.NewInt(int64(si.Index))
		for j, sj := range shares {
			if i == j {
				continue
			}
			xj := big.NewInt(int64(sj.Index))
			num.Mul(num, new(big.Int).Neg(xj))
			num.Mod(num, q)
			den.Mul(den, new(big.Int).Sub(xi, xj))
			den.Mod(den, q)
		}
		denInv, err := encryption.ModInverse(den, q)
		if err != nil {
			return nil, fmt.Errorf("degenerate share indices: %w", err)
		}
		term := new(big.Int).Mul(si.Value, num)
		term.Mul(term, denInv)
		secret.Add(secret, term)
		secret.Mod(secret, q)
	}
	return secret.Bytes(), nil
}

// evaluatePolynomial computes f(x) mod q by Horner's method over the
// coefficient list [a0, a1, ..., a(t-1)].
func evaluatePolynomial(coeffs []*big.Int, x, q *big.Int) *big.Int {
	result := new(big.Int)
	for i := len(coeffs) - 1; i >= 0; i-- {
		result.Mul(result, x)
		result.Add(result, coeffs[i])
		result.Mod(result, q)
	}
	return result
}
