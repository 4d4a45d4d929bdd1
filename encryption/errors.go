package encryption

import (
	"fmt"
	"math/big"
)

// NoInverseError reports a request for the modular inverse of an element
// that is not invertible, i.e. gcd(value, modulus) != 1. It indicates
// malformed input rather than a transient condition.
type NoInverseError struct {
	Value   *big.Int
	Modulus *big.Int
}

func (e *NoInverseError) Error() string {
	return fmt.Sprintf("no modular inverse of %s mod %s", e.Value, e.Modulus)
}

// DiscreteLogNotFoundError reports that the bounded discrete-log search
// was exhausted. The caller should widen the bound or suspect a
// malformed ballot.
type DiscreteLogNotFoundError struct {
	MaxValue int
}

func (e *DiscreteLogNotFoundError) Error() string {
	return fmt.Sprintf("discrete log not found within bound %d", e.MaxValue)
}

// MalformedCiphertextError reports a ciphertext that failed to decode.
type MalformedCiphertextError struct {
	Reason string
}

func (e *MalformedCiphertextError) Error() string {
	return fmt.Sprintf("malformed ciphertext: %s", e.Reason)
}

// MalformedBallotError reports a packed ballot that failed to decode.
type MalformedBallotError struct {
	Reason string
}

func (e *MalformedBallotError) Error() string {
	return fmt.Sprintf("malformed ballot: %s", e.Reason)
}
