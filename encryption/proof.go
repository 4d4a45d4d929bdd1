package encryption

import (
	"fmt"
	"math/big"

	"golang.org/x/crypto/sha3"
)

// Proof is a non-interactive Chaum-Pedersen transcript showing that
// log_g(h) == log_c1(c2/m) for a specific (g, h, c1, c2, m) tuple,
// i.e. that a published plaintext really is the decryption of a
// ciphertext under the key behind h. Made non-interactive with the
// Fiat-Shamir transform over all public values.
type Proof struct {
	A1 *big.Int `json:"a1"`
	A2 *big.Int `json:"a2"`
	Z  *big.Int `json:"z"`
	C  *big.Int `json:"c"`
}

// ProofStatement is the public tuple a proof binds to. M is the claimed
// plaintext as a group element (g^count for tally proofs).
type ProofStatement struct {
	G  *big.Int
	H  *big.Int
	C1 *big.Int
	C2 *big.Int
	M  *big.Int
	P  *big.Int
}

// GenerateProof produces a decryption-correctness proof using the
// private scalar x. The commitment exponent w is drawn fresh per proof;
// reusing it across proofs would reveal x.
func GenerateProof(st ProofStatement, x *big.Int) (*Proof, error) {
	pMinus2 := new(big.Int).Sub(st.P, big.NewInt(2))
	w, err := RandomInt(big.NewInt(2), pMinus2)
	if err != nil {
		return nil, fmt.Errorf("failed to generate proof commitment: %w", err)
	}

	a1 := ModPow(st.G, w, st.P)
	a2 := ModPow(st.C1, w, st.P)
	c := proofChallenge(st, a1, a2)

	// z = (w - c*x) mod (p-1), normalised non-negative.
	order := new(big.Int).Sub(st.P, big.NewInt(1))
	z := new(big.Int).Mul(c, x)
	z.Sub(w, z)
	z.Mod(z, order)

	return &Proof{A1: a1, A2: a2, Z: z, C: c}, nil
}

// VerifyProof checks a proof against the public statement without the
// private key. It recomputes the Fiat-Shamir challenge and requires
// both g^z * h^c == a1 and c1^z * (c2/m)^c == a2. A claimed plaintext
// that is not invertible mod p fails closed.
func VerifyProof(st ProofStatement, proof *Proof) bool {
	if proof == nil || proof.A1 == nil || proof.A2 == nil || proof.Z == nil || proof.C == nil {
		return false
	}

	c := proofChallenge(st, proof.A1, proof.A2)
	if c.Cmp(proof.C) != 0 {
		return false
	}

	lhs1 := new(big.Int).Mul(ModPow(st.G, proof.Z, st.P), ModPow(st.H, c, st.P))
	lhs1.Mod(lhs1, st.P)
	if lhs1.Cmp(proof.A1) != 0 {
		return false
	}

	mInv, err := ModInverse(st.M, st.P)
	if err != nil {
		return false
	}
	blinded := new(big.Int).Mul(st.C2, mInv)
	blinded.Mod(blinded, st.P)

	lhs2 := new(big.Int).Mul(ModPow(st.C1, proof.Z, st.P), ModPow(blinded, c, st.P))
	lhs2.Mod(lhs2, st.P)
	return lhs2.Cmp(proof.A2) == 0
}

// proofChallenge hashes the fixed-width big-endian encodings of all
// public values with SHA3-256 and reduces mod (p-1).
func proofChallenge(st ProofStatement, a1, a2 *big.Int) *big.Int {
	width := (st.P.BitLen() + 7) / 8
	d := sha3.New256()
	for _, v := range []*big.Int{st.G, st.H, st.C1, st.C2, st.M, a1, a2} {
		d.Write(v.FillBytes(make([]byte, width)))
	}
	order := new(big.Int).Sub(st.P, big.NewInt(1))
	c := new(big.Int).SetBytes(d.Sum(nil))
	return c.Mod(c, order)
}

// TallyProof carries the correctness evidence for one candidate's
// published count.
type TallyProof struct {
	Candidate string `json:"candidate"`
	Count     int    `json:"count"`
	Proof     *Proof `json:"proof"`
}

// TallyVerification is the outcome of checking a full tally: the
// aggregate verdict plus a per-candidate breakdown so a caller can
// localise which candidate's proof failed.
type TallyVerification struct {
	Valid        bool            `json:"valid"`
	PerCandidate map[string]bool `json:"per_candidate"`
}

// GenerateTallyProofs produces one proof per candidate's combined
// ciphertext/count pair. Slice positions correspond across candidates,
// combined and counts.
func GenerateTallyProofs(candidates []string, combined []*Ciphertext, counts []int, key *KeyPair) ([]TallyProof, error) {
	if len(combined) != len(candidates) || len(counts) != len(candidates) {
		return nil, fmt.Errorf("tally proof inputs disagree on candidate count")
	}

	proofs := make([]TallyProof, len(candidates))
	for i, name := range candidates {
		st := ProofStatement{
			G:  key.G,
			H:  key.H,
			C1: combined[i].C1,
			C2: combined[i].C2,
			M:  ModPow(key.G, big.NewInt(int64(counts[i])), key.P),
			P:  key.P,
		}
		proof, err := GenerateProof(st, key.X)
		if err != nil {
			return nil, fmt.Errorf("failed to prove tally for %s: %w", name, err)
		}
		proofs[i] = TallyProof{Candidate: name, Count: counts[i], Proof: proof}
	}
	return proofs, nil
}

// VerifyTallyProofs checks every candidate's proof against its combined
// ciphertext using only public values.
func VerifyTallyProofs(proofs []TallyProof, combined []*Ciphertext, pub *ParsedPublicKey) (*TallyVerification, error) {
	if len(combined) != len(proofs) {
		return nil, fmt.Errorf("proof count %d does not match ciphertext count %d", len(proofs), len(combined))
	}

	result := &TallyVerification{
		Valid:        true,
		PerCandidate: make(map[string]bool, len(proofs)),
	}
	for i, tp := range proofs {
		st := ProofStatement{
			G:  pub.G,
			H:  pub.H,
			C1: combined[i].C1,
			C2: combined[i].C2,
			M:  ModPow(pub.G, big.NewInt(int64(tp.Count)), pub.P),
			P:  pub.P,
		}
		ok := VerifyProof(st, tp.Proof)
		result.PerCandidate[tp.Candidate] = ok
		if !ok {
			result.Valid = false
		}
	}
	return result, nil
}
