package encryption

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptSingleChoice(t *testing.T) {
	kp := testKeyPair(t)
	pub := kp.PublicKey()
	candidates := []string{"alice", "bob", "charlie"}

	ballot, err := EncryptSingleChoice(candidates, "bob", pub)
	require.NoError(t, err)
	require.Len(t, ballot.Slots, 3)

	// Selected slot decrypts to g, others to 1.
	for i, slot := range ballot.Slots {
		recovered, err := Decrypt(slot, kp.X, kp.P)
		require.NoError(t, err)
		if i == 1 {
			assert.Equal(t, 0, recovered.Cmp(kp.G), "slot %d", i)
		} else {
			assert.Equal(t, 0, recovered.Cmp(big.NewInt(1)), "slot %d", i)
		}
	}
}

func TestEncryptSingleChoiceUnknownCandidate(t *testing.T) {
	kp := testKeyPair(t)

	_, err := EncryptSingleChoice([]string{"alice", "bob"}, "mallory", kp.PublicKey())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not on the ballot")

	_, err = EncryptSingleChoice(nil, "alice", kp.PublicKey())
	require.Error(t, err)
}

func TestPackedBallotEncodeDecode(t *testing.T) {
	kp := testKeyPair(t)
	candidates := []string{"alice", "bob", "charlie"}

	ballot, err := EncryptSingleChoice(candidates, "charlie", kp.PublicKey())
	require.NoError(t, err)

	encoded := ballot.Encode()
	assert.True(t, strings.HasPrefix(encoded, "KSLOTS:v1:3:"))
	assert.True(t, IsPackedBallot(encoded))

	decoded, err := DecodePackedBallot(encoded)
	require.NoError(t, err)
	require.Len(t, decoded.Slots, 3)
	for i := range ballot.Slots {
		assert.Equal(t, 0, ballot.Slots[i].C1.Cmp(decoded.Slots[i].C1))
		assert.Equal(t, 0, ballot.Slots[i].C2.Cmp(decoded.Slots[i].C2))
	}
}

func TestDecodePackedBallotMalformed(t *testing.T) {
	kp := testKeyPair(t)
	ballot, err := EncryptSingleChoice([]string{"a", "b"}, "a", kp.PublicKey())
	require.NoError(t, err)
	valid := ballot.Encode()
	slotHex := strings.Split(valid[len(BallotTag):], ":")[1]

	cases := []struct {
		name string
		raw  string
	}{
		{"missing tag", "3:aa:bb:cc"},
		{"bare tag", BallotTag},
		{"slot count not a number", BallotTag + "x:aa"},
		{"zero slots", BallotTag + "0:"},
		{"count mismatch", BallotTag + "3:" + slotHex},
		{"slot not hex", BallotTag + "1:zz"},
		{"slot not a ciphertext", BallotTag + "1:" + hex.EncodeToString([]byte{1, 2, 3})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodePackedBallot(tc.raw)
			var ballotErr *MalformedBallotError
			require.ErrorAs(t, err, &ballotErr)
		})
	}
}

func TestIsPackedBallot(t *testing.T) {
	assert.True(t, IsPackedBallot("KSLOTS:v1:2:aa:bb"))
	assert.False(t, IsPackedBallot("deadbeef"))
	assert.False(t, IsPackedBallot("KSLOTS:v2:2:aa:bb"))
}

func TestDecodeLegacyBallot(t *testing.T) {
	kp := testKeyPair(t)

	// Legacy ballots encrypt g^(index+1) for the chosen candidate.
	message := ModPow(kp.G, big.NewInt(2), kp.P)
	ct, err := Encrypt(message, kp.PublicKey())
	require.NoError(t, err)

	for _, raw := range []string{
		hex.EncodeToString(ct.Encode()),
		"0x" + hex.EncodeToString(ct.Encode()),
	} {
		decoded, err := DecodeLegacyBallot(raw)
		require.NoError(t, err)

		recovered, err := Decrypt(decoded, kp.X, kp.P)
		require.NoError(t, err)

		choice, err := RecoverCount(recovered, kp.G, kp.P, 3)
		require.NoError(t, err)
		assert.Equal(t, 2, choice)
	}
}

func TestDecodeLegacyBallotMalformed(t *testing.T) {
	for _, raw := range []string{"not hex", "abcd", fmt.Sprintf("%x", []byte{0, 0, 0, 9, 1})} {
		_, err := DecodeLegacyBallot(raw)
		var ballotErr *MalformedBallotError
		require.ErrorAs(t, err, &ballotErr, "raw=%q", raw)
	}
}
