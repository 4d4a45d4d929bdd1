package encryption

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// BallotTag prefixes the wire form of a K-slot packed ballot.
const BallotTag = "KSLOTS:v1:"

// PackedBallot is an ordered sequence of exactly K ciphertexts, one per
// candidate. Slot k encrypts g^1 when the voter selected candidate k
// and g^0 otherwise. The core cannot verify the single-hot property
// without decrypting; whoever constructs the ballot is responsible for
// it.
type PackedBallot struct {
	Slots []*Ciphertext
}

// EncryptSingleChoice builds a packed ballot for the selected candidate.
// Slot order matches the candidates slice and must be preserved
// end-to-end, since tallying re-associates slot k with candidates[k].
func EncryptSingleChoice(candidates []string, selected string, pub *ParsedPublicKey) (*PackedBallot, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("candidate list is empty")
	}
	selectedIdx := -1
	for i, c := range candidates {
		if c == selected {
			selectedIdx = i
			break
		}
	}
	if selectedIdx < 0 {
		return nil, fmt.Errorf("selected candidate %q is not on the ballot", selected)
	}

	ballot := &PackedBallot{Slots: make([]*Ciphertext, len(candidates))}
	one := big.NewInt(1)
	for i := range candidates {
		message := one // g^0
		if i == selectedIdx {
			message = pub.G // g^1
		}
		ct, err := Encrypt(message, pub)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt slot %d: %w", i, err)
		}
		ballot.Slots[i] = ct
	}
	return ballot, nil
}

// Encode serialises the ballot as the literal tag followed by decimal K
// and K colon-separated hex-encoded ciphertexts.
func (b *PackedBallot) Encode() string {
	parts := make([]string, 0, len(b.Slots)+1)
	parts = append(parts, strconv.Itoa(len(b.Slots)))
	for _, slot := range b.Slots {
		parts = append(parts, hex.EncodeToString(slot.Encode()))
	}
	return BallotTag + strings.Join(parts, ":")
}

// DecodePackedBallot parses the wire form produced by Encode.
func DecodePackedBallot(raw string) (*PackedBallot, error) {
	if !strings.HasPrefix(raw, BallotTag) {
		return nil, &MalformedBallotError{Reason: "missing KSLOTS:v1 tag"}
	}
	parts := strings.Split(raw[len(BallotTag):], ":")
	k, err := strconv.Atoi(parts[0])
	if err != nil || k < 1 {
		return nil, &MalformedBallotError{Reason: fmt.Sprintf("invalid slot count %q", parts[0])}
	}
	if len(parts)-1 != k {
		return nil, &MalformedBallotError{
			Reason: fmt.Sprintf("declared %d slots but found %d", k, len(parts)-1),
		}
	}

	ballot := &PackedBallot{Slots: make([]*Ciphertext, k)}
	for i, part := range parts[1:] {
		raw, err := hex.DecodeString(part)
		if err != nil {
			return nil, &MalformedBallotError{Reason: fmt.Sprintf("slot %d is not valid hex", i)}
		}
		ct, err := DecodeCiphertext(raw)
		if err != nil {
			return nil, &MalformedBallotError{Reason: fmt.Sprintf("slot %d: %v", i, err)}
		}
		ballot.Slots[i] = ct
	}
	return ballot, nil
}

// IsPackedBallot reports whether a raw ballot payload carries the
// K-slot tag. Untagged payloads are treated as legacy single-ciphertext
// ballots.
func IsPackedBallot(raw string) bool {
	return strings.HasPrefix(raw, BallotTag)
}

// DecodeLegacyBallot parses a legacy ballot: a single hex-encoded
// ciphertext with no tag, encrypting g^(index+1) for the chosen
// candidate index.
func DecodeLegacyBallot(raw string) (*Ciphertext, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
	if err != nil {
		return nil, &MalformedBallotError{Reason: "legacy ballot is not valid hex"}
	}
	ct, err := DecodeCiphertext(data)
	if err != nil {
		return nil, &MalformedBallotError{Reason: fmt.Sprintf("legacy ballot: %v", err)}
	}
	return ct, nil
}
