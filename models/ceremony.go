package models

import "math/big"

// CeremonyStatus is the DKG ceremony lifecycle state. Transitions move
// strictly forward: Initialized -> Distributed -> Verified -> Finalized.
type CeremonyStatus string

const (
	StatusInitialized CeremonyStatus = "initialized"
	StatusDistributed CeremonyStatus = "distributed"
	StatusVerified    CeremonyStatus = "verified"
	StatusFinalized   CeremonyStatus = "finalized"
)

// ShareRecord is the ceremony's retained copy of one shareholder's
// share. Value is zeroed when the ceremony is finalized; the index and
// verification hash survive so re-supplied shares can still be checked.
type ShareRecord struct {
	ShareholderID    string   `json:"shareholder_id"`
	Index            int      `json:"index"`
	Value            *big.Int `json:"value,omitempty"`
	VerificationHash string   `json:"verification_hash"`
}

// CeremonyRecord is the persisted state of one DKG ceremony. The
// private scalar is ephemeral: it exists from setup until finalization,
// after which decryption requires re-supplying a quorum of shares.
type CeremonyRecord struct {
	ID          string `json:"id"`
	ElectionID  string `json:"election_id"`
	Threshold   int    `json:"threshold"`
	TotalShares int    `json:"total_shares"`

	P *big.Int `json:"p"`
	G *big.Int `json:"g"`
	H *big.Int `json:"h"`

	PrivateKey *big.Int `json:"private_key,omitempty"`

	// Coefficients are the share polynomial coefficients retained for
	// share verification. Coefficient zero is the secret term and is
	// zeroed together with the private scalar at finalization.
	Coefficients []*big.Int `json:"coefficients"`
	PrimeQ       *big.Int   `json:"prime_q"`

	Shares map[string]*ShareRecord `json:"shares"`

	Status    CeremonyStatus `json:"status"`
	CreatedAt int64          `json:"created_at"`
	UpdatedAt int64          `json:"updated_at"`
}

// ShareholderFor returns the shareholder id owning a given share index,
// or "" when the index was never issued.
func (c *CeremonyRecord) ShareholderFor(index int) string {
	for id, rec := range c.Shares {
		if rec.Index == index {
			return id
		}
	}
	return ""
}

// Clone deep-copies the record so persisted state cannot alias live
// service state.
func (c *CeremonyRecord) Clone() *CeremonyRecord {
	out := *c
	out.P = copyInt(c.P)
	out.G = copyInt(c.G)
	out.H = copyInt(c.H)
	out.PrivateKey = copyInt(c.PrivateKey)
	out.PrimeQ = copyInt(c.PrimeQ)
	out.Coefficients = make([]*big.Int, len(c.Coefficients))
	for i, coeff := range c.Coefficients {
		out.Coefficients[i] = copyInt(coeff)
	}
	out.Shares = make(map[string]*ShareRecord, len(c.Shares))
	for id, rec := range c.Shares {
		cp := *rec
		cp.Value = copyInt(rec.Value)
		out.Shares[id] = &cp
	}
	return &out
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
