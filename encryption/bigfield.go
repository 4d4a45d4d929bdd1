package encryption

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// ModPow returns base^exponent mod modulus using square-and-multiply.
// A modulus of 1 yields 0. Note that big.Int exponentiation is not
// constant-time; when the exponent is a private key the timing of this
// call can leak its bit pattern to a co-resident attacker.
func ModPow(base, exponent, modulus *big.Int) *big.Int {
	if modulus.Sign() == 0 {
		panic("encryption: zero modulus")
	}
	return new(big.Int).Exp(base, exponent, modulus)
}

// ModInverse returns the multiplicative inverse of a mod m, computed
// with the extended Euclidean algorithm. It fails with NoInverseError
// when gcd(a, m) != 1.
func ModInverse(a, m *big.Int) (*big.Int, error) {
	inv := new(big.Int).ModInverse(a, m)
	if inv == nil {
		return nil, &NoInverseError{Value: new(big.Int).Set(a), Modulus: new(big.Int).Set(m)}
	}
	return inv, nil
}

// RandomInt returns a uniformly distributed integer in [min, max] drawn
// from crypto/rand. The underlying sampler rejects and redraws rather
// than reducing mod the range width, so the result carries no modulo bias.
func RandomInt(min, max *big.Int) (*big.Int, error) {
	if min.Cmp(max) > 0 {
		return nil, fmt.Errorf("invalid range [%s, %s]", min, max)
	}

	width := new(big.Int).Sub(max, min)
	width.Add(width, big.NewInt(1))

	n, err := rand.Int(rand.Reader, width)
	if err != nil {
		return nil, fmt.Errorf("failed to sample random field element: %w", err)
	}
	return n.Add(n, min), nil
}
