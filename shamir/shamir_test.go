package shamir

import (
	"crypto/rand"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomSecret(t *testing.T) []byte {
	t.Helper()
	secret := make([]byte, 32)
	_, err := rand.Read(secret)
	require.NoError(t, err)
	return secret
}

func TestGenerateSharesThresholdValidation(t *testing.T) {
	secret := randomSecret(t)

	cases := []struct {
		name        string
		threshold   int
		totalShares int
	}{
		{"threshold below two", 1, 5},
		{"threshold above total", 6, 5},
		{"zero threshold", 0, 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := GenerateShares(secret, tc.threshold, tc.totalShares)
			var thresholdErr *InvalidThresholdError
			require.ErrorAs(t, err, &thresholdErr)
			assert.Equal(t, tc.threshold, thresholdErr.Threshold)
			assert.Equal(t, tc.totalShares, thresholdErr.TotalShares)
		})
	}
}

func TestGenerateSharesShape(t *testing.T) {
	secret := randomSecret(t)

	set, err := GenerateShares(secret, 3, 5)
	require.NoError(t, err)

	require.Len(t, set.Shares, 5)
	require.Len(t, set.Coefficients, 3)
	for i, share := range set.Shares {
		assert.Equal(t, i+1, share.Index)
		assert.True(t, share.Value.Cmp(set.PrimeQ) < 0)
	}
	assert.Equal(t, new(big.Int).SetBytes(secret), set.Coefficients[0])
}

func TestReconstructSecretRoundTrip(t *testing.T) {
	secret := randomSecret(t)

	grid := []struct {
		threshold   int
		totalShares int
	}{
		{2, 2},
		{2, 5},
		{3, 5},
		{5, 7},
		{2, 20},
		{10, 20},
		{19, 20},
		{20, 20},
	}

	for _, tc := range grid {
		set, err := GenerateShares(secret, tc.threshold, tc.totalShares)
		require.NoError(t, err)

		// Exactly a quorum, taken from the tail so index order does not matter.
		quorum := set.Shares[tc.totalShares-tc.threshold:]
		recovered, err := ReconstructSecret(quorum, tc.threshold, set.PrimeQ)
		require.NoError(t, err)
		assert.Equal(t, new(big.Int).SetBytes(secret), new(big.Int).SetBytes(recovered))
	}
}

func TestReconstructSecretWithAllShares(t *testing.T) {
	secret := randomSecret(t)

	set, err := GenerateShares(secret, 3, 5)
	require.NoError(t, err)

	recovered, err := ReconstructSecret(set.Shares, 3, set.PrimeQ)
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).SetBytes(secret), new(big.Int).SetBytes(recovered))
}

func TestReconstructSecretInsufficientShares(t *testing.T) {
	set, err := GenerateShares(randomSecret(t), 3, 5)
	require.NoError(t, err)

	_, err = ReconstructSecret(set.Shares[:2], 3, set.PrimeQ)
	var insufficientErr *InsufficientSharesError
	require.ErrorAs(t, err, &insufficientErr)
	assert.Equal(t, 2, insufficientErr.Provided)
	assert.Equal(t, 3, insufficientErr.Required)
}

func TestReconstructSecretDuplicateIndices(t *testing.T) {
	set, err := GenerateShares(randomSecret(t), 2, 3)
	require.NoError(t, err)

	dupes := []Share{set.Shares[0], set.Shares[0]}
	_, err = ReconstructSecret(dupes, 2, set.PrimeQ)
	require.Error(t, err)
	assert.False(t, errors.As(err, new(*InsufficientSharesError)))
}

func TestReconstructSecretBelowThresholdGivesWrongSecret(t *testing.T) {
	// A sub-quorum that lies about the threshold must not recover the secret.
	secret := randomSecret(t)
	set, err := GenerateShares(secret, 3, 5)
	require.NoError(t, err)

	recovered, err := ReconstructSecret(set.Shares[:2], 2, set.PrimeQ)
	require.NoError(t, err)
	assert.NotEqual(t, new(big.Int).SetBytes(secret), new(big.Int).SetBytes(recovered))
}

func TestVerifyShare(t *testing.T) {
	set, err := GenerateShares(randomSecret(t), 3, 5)
	require.NoError(t, err)

	for _, share := range set.Shares {
		assert.True(t, VerifyShare(share, set.Coefficients, set.PrimeQ))
	}

	tampered := Share{
		Index: set.Shares[0].Index,
		Value: new(big.Int).Add(set.Shares[0].Value, big.NewInt(1)),
	}
	assert.False(t, VerifyShare(tampered, set.Coefficients, set.PrimeQ))

	wrongIndex := Share{Index: 99, Value: set.Shares[0].Value}
	assert.False(t, VerifyShare(wrongIndex, set.Coefficients, set.PrimeQ))
}

func TestPrimeQProperties(t *testing.T) {
	q := PrimeQ()
	assert.Equal(t, 3072, q.BitLen())
	assert.True(t, q.ProbablyPrime(20))

	// Callers get a copy, not the package-level value.
	q.SetInt64(0)
	assert.Equal(t, 3072, PrimeQ().BitLen())
}
