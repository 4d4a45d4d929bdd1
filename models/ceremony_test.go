package models

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *CeremonyRecord {
	return &CeremonyRecord{
		ID:          "c1",
		ElectionID:  "election-1",
		Threshold:   2,
		TotalShares: 3,
		P:           big.NewInt(23),
		G:           big.NewInt(5),
		H:           big.NewInt(8),
		PrivateKey:  big.NewInt(6),
		Coefficients: []*big.Int{
			big.NewInt(6), big.NewInt(11),
		},
		PrimeQ: big.NewInt(31),
		Shares: map[string]*ShareRecord{
			"trustee-1": {ShareholderID: "trustee-1", Index: 1, Value: big.NewInt(17), VerificationHash: "aa"},
			"trustee-2": {ShareholderID: "trustee-2", Index: 2, Value: big.NewInt(28), VerificationHash: "bb"},
		},
		Status: StatusInitialized,
	}
}

func TestShareholderFor(t *testing.T) {
	rec := sampleRecord()

	assert.Equal(t, "trustee-1", rec.ShareholderFor(1))
	assert.Equal(t, "trustee-2", rec.ShareholderFor(2))
	assert.Equal(t, "", rec.ShareholderFor(3))
}

func TestCloneIsDeep(t *testing.T) {
	rec := sampleRecord()
	clone := rec.Clone()

	require.Equal(t, rec, clone)

	// Mutating the clone must not reach the original.
	clone.PrivateKey.SetInt64(99)
	clone.Coefficients[0].SetInt64(99)
	clone.Shares["trustee-1"].Value.SetInt64(99)
	clone.Shares["trustee-1"].VerificationHash = "zz"

	assert.Equal(t, int64(6), rec.PrivateKey.Int64())
	assert.Equal(t, int64(6), rec.Coefficients[0].Int64())
	assert.Equal(t, int64(17), rec.Shares["trustee-1"].Value.Int64())
	assert.Equal(t, "aa", rec.Shares["trustee-1"].VerificationHash)
}

func TestCloneHandlesFinalizedRecord(t *testing.T) {
	rec := sampleRecord()
	rec.PrivateKey = nil
	rec.Shares["trustee-1"].Value = nil
	rec.Status = StatusFinalized

	clone := rec.Clone()
	assert.Nil(t, clone.PrivateKey)
	assert.Nil(t, clone.Shares["trustee-1"].Value)
	assert.Equal(t, StatusFinalized, clone.Status)
}
