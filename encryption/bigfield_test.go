package encryption

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModPow(t *testing.T) {
	assert.Equal(t, big.NewInt(8), ModPow(big.NewInt(2), big.NewInt(3), big.NewInt(100)))
	assert.Equal(t, big.NewInt(1), ModPow(big.NewInt(7), big.NewInt(0), big.NewInt(13)))
	assert.Equal(t, big.NewInt(0), ModPow(big.NewInt(5), big.NewInt(2), big.NewInt(1)))

	// 2^10 mod 1000 = 24
	assert.Equal(t, big.NewInt(24), ModPow(big.NewInt(2), big.NewInt(10), big.NewInt(1000)))
}

func TestModPowZeroModulusPanics(t *testing.T) {
	assert.Panics(t, func() {
		ModPow(big.NewInt(2), big.NewInt(3), big.NewInt(0))
	})
}

func TestModInverse(t *testing.T) {
	p := big.NewInt(23)
	for _, a := range []int64{1, 2, 7, 11, 22} {
		inv, err := ModInverse(big.NewInt(a), p)
		require.NoError(t, err)

		product := new(big.Int).Mul(big.NewInt(a), inv)
		product.Mod(product, p)
		assert.Equal(t, big.NewInt(1), product, "a=%d", a)
	}
}

func TestModInverseNotInvertible(t *testing.T) {
	// gcd(6, 24) != 1, so no inverse exists.
	_, err := ModInverse(big.NewInt(6), big.NewInt(24))
	var invErr *NoInverseError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, big.NewInt(6), invErr.Value)
	assert.Equal(t, big.NewInt(24), invErr.Modulus)

	_, err = ModInverse(big.NewInt(0), big.NewInt(7))
	require.ErrorAs(t, err, &invErr)
}

func TestRandomInt(t *testing.T) {
	min := big.NewInt(10)
	max := big.NewInt(20)
	for i := 0; i < 200; i++ {
		n, err := RandomInt(min, max)
		require.NoError(t, err)
		assert.True(t, n.Cmp(min) >= 0, "n=%s below min", n)
		assert.True(t, n.Cmp(max) <= 0, "n=%s above max", n)
	}
}

func TestRandomIntDegenerateRange(t *testing.T) {
	n, err := RandomInt(big.NewInt(5), big.NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(5), n)

	_, err = RandomInt(big.NewInt(6), big.NewInt(5))
	require.Error(t, err)
}
