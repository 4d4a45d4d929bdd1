package service

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voting-crypto/encryption"
	"voting-crypto/shamir"
)

// TallyService aggregates encrypted ballots homomorphically and decrypts
// only the per-candidate totals, never an individual ballot. Legacy
// single-ciphertext ballots are the exception: they predate slot packing
// and have to be decrypted one by one.
type TallyService struct {
	ceremonies *CeremonyService
	metrics    *MetricsCollector
	logger     zerolog.Logger
	workers    int

	mu         sync.RWMutex
	lastResult *TallyResult
}

// TallyRequest carries everything one tally run needs. MaxTally bounds
// the discrete log search during count recovery and must be at least the
// number of ballots.
type TallyRequest struct {
	CeremonyID string         `json:"ceremony_id"`
	Candidates []string       `json:"candidates"`
	Ballots    []string       `json:"ballots"`
	Shares     []shamir.Share `json:"shares"`
	MaxTally   int            `json:"max_tally"`
}

// TallyResult is the decrypted outcome of a tally run. Combined holds
// the per-candidate aggregate ciphertexts so the proofs can be checked
// against them.
type TallyResult struct {
	Counts        map[string]int           `json:"counts"`
	TotalBallots  int                      `json:"total_ballots"`
	PackedBallots int                      `json:"packed_ballots"`
	LegacyBallots int                      `json:"legacy_ballots"`
	Combined      []*encryption.Ciphertext `json:"-"`
	Proofs        []encryption.TallyProof  `json:"proofs"`
}

func NewTallyService(ceremonies *CeremonyService, workers int, logger zerolog.Logger) *TallyService {
	if workers < 1 {
		workers = 1
	}
	return &TallyService{
		ceremonies: ceremonies,
		metrics:    NewMetricsCollector(),
		logger:     logger.With().Str("component", "tally").Logger(),
		workers:    workers,
	}
}

// CountVotes runs the full tally: decode every ballot, aggregate the
// packed ones per candidate slot, reconstruct the private key from the
// supplied quorum, decrypt the aggregates, and emit correctness proofs.
// Any malformed ballot fails the whole run.
func (ts *TallyService) CountVotes(req *TallyRequest) (*TallyResult, error) {
	if len(req.Candidates) == 0 {
		return nil, fmt.Errorf("tally requires at least one candidate")
	}
	if req.MaxTally < 1 {
		return nil, fmt.Errorf("max tally must be positive, got %d", req.MaxTally)
	}

	ts.metrics.RecordTallyStart()
	defer ts.metrics.RecordTallyEnd()

	record, err := ts.ceremonies.GetCeremony(req.CeremonyID)
	if err != nil {
		return nil, err
	}

	packed, legacy, err := ts.decodeBallots(req.Candidates, req.Ballots)
	if err != nil {
		return nil, err
	}

	combined := ts.combineSlots(len(req.Candidates), packed, record.P)

	privateKey, err := ts.ceremonies.ReconstructPrivateKey(req.CeremonyID, req.Shares)
	if err != nil {
		return nil, err
	}

	packedCounts := make([]int, len(req.Candidates))
	for i, ct := range combined {
		start := time.Now()
		gm, err := encryption.Decrypt(ct, privateKey, record.P)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt tally for %s: %w", req.Candidates[i], err)
		}
		count, err := encryption.RecoverCount(gm, record.G, record.P, req.MaxTally)
		if err != nil {
			return nil, fmt.Errorf("failed to recover tally for %s: %w", req.Candidates[i], err)
		}
		packedCounts[i] = count
		ts.metrics.RecordDecryption(time.Since(start))
	}

	// The proofs attest to what the aggregates encrypt, which excludes
	// legacy ballots counted outside the homomorphic product.
	keyPair := &encryption.KeyPair{P: record.P, G: record.G, H: record.H, X: privateKey}
	proofStart := time.Now()
	proofs, err := encryption.GenerateTallyProofs(req.Candidates, combined, packedCounts, keyPair)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tally proofs: %w", err)
	}
	ts.metrics.RecordProof(time.Since(proofStart))

	counts := make([]int, len(packedCounts))
	copy(counts, packedCounts)
	if err := ts.countLegacy(legacy, privateKey, record.P, record.G, counts); err != nil {
		return nil, err
	}

	result := &TallyResult{
		Counts:        make(map[string]int, len(req.Candidates)),
		TotalBallots:  len(req.Ballots),
		PackedBallots: len(packed),
		LegacyBallots: len(legacy),
		Combined:      combined,
		Proofs:        proofs,
	}
	for i, candidate := range req.Candidates {
		result.Counts[candidate] = counts[i]
	}

	ts.mu.Lock()
	ts.lastResult = result
	ts.mu.Unlock()

	ts.logger.Info().
		Str("ceremony_id", req.CeremonyID).
		Int("ballots", len(req.Ballots)).
		Int("legacy", len(legacy)).
		Msg("tally complete")
	return result, nil
}

// VerifyTally checks a result's proofs against its combined aggregate
// ciphertexts using only public key material.
func (ts *TallyService) VerifyTally(ceremonyID string, result *TallyResult) (*encryption.TallyVerification, error) {
	pub, err := ts.ceremonies.GetPublicKey(ceremonyID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	verification, err := encryption.VerifyTallyProofs(result.Proofs, result.Combined, pub)
	ts.metrics.RecordProof(time.Since(start))
	if err != nil {
		return nil, err
	}
	return verification, nil
}

// GetLatestResults returns the most recent tally outcome, if any.
func (ts *TallyService) GetLatestResults() *TallyResult {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.lastResult
}

// GetMetrics exposes the tally pipeline timings.
func (ts *TallyService) GetMetrics() MetricsResponse {
	return ts.metrics.GetMetrics()
}

// decodeBallots splits the raw ballot strings into packed and legacy
// forms. A packed ballot whose slot count does not match the candidate
// list is rejected.
func (ts *TallyService) decodeBallots(candidates []string, ballots []string) ([]*encryption.PackedBallot, []*encryption.Ciphertext, error) {
	var packed []*encryption.PackedBallot
	var legacy []*encryption.Ciphertext

	for i, raw := range ballots {
		start := time.Now()
		if encryption.IsPackedBallot(raw) {
			ballot, err := encryption.DecodePackedBallot(raw)
			if err != nil {
				return nil, nil, fmt.Errorf("ballot %d: %w", i, err)
			}
			if len(ballot.Slots) != len(candidates) {
				return nil, nil, &encryption.MalformedBallotError{
					Reason: fmt.Sprintf("ballot %d has %d slots, expected %d", i, len(ballot.Slots), len(candidates)),
				}
			}
			packed = append(packed, ballot)
		} else {
			ct, err := encryption.DecodeLegacyBallot(raw)
			if err != nil {
				return nil, nil, fmt.Errorf("ballot %d: %w", i, err)
			}
			legacy = append(legacy, ct)
		}
		ts.metrics.RecordBallotDecode(time.Since(start))
	}
	return packed, legacy, nil
}

// combineSlots multiplies every packed ballot into one running product
// per candidate slot. Slots are independent, so each gets its own
// worker, bounded by the configured worker count.
func (ts *TallyService) combineSlots(slots int, packed []*encryption.PackedBallot, p *big.Int) []*encryption.Ciphertext {
	ts.metrics.RecordCombineStart()
	defer ts.metrics.RecordCombineEnd()

	combined := make([]*encryption.Ciphertext, slots)
	sem := make(chan struct{}, ts.workers)
	var wg sync.WaitGroup

	for k := 0; k < slots; k++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(k int) {
			defer wg.Done()
			defer func() { <-sem }()

			acc := encryption.IdentityCiphertext()
			for _, ballot := range packed {
				acc = encryption.AddEncrypted(acc, ballot.Slots[k], p)
			}
			combined[k] = acc
		}(k)
	}
	wg.Wait()
	return combined
}

// countLegacy decrypts each pre-packing ballot individually. Its
// plaintext is g^(index+1), where index selects the candidate.
func (ts *TallyService) countLegacy(legacy []*encryption.Ciphertext, privateKey, p, g *big.Int, counts []int) error {
	for i, ct := range legacy {
		start := time.Now()
		gm, err := encryption.Decrypt(ct, privateKey, p)
		if err != nil {
			return fmt.Errorf("legacy ballot %d: %w", i, err)
		}
		m, err := encryption.RecoverCount(gm, g, p, len(counts))
		if err != nil {
			return fmt.Errorf("legacy ballot %d: %w", i, err)
		}
		if m < 1 || m > len(counts) {
			return &encryption.MalformedBallotError{
				Reason: fmt.Sprintf("legacy ballot %d selects candidate %d of %d", i, m, len(counts)),
			}
		}
		counts[m-1]++
		ts.metrics.RecordDecryption(time.Since(start))
	}
	return nil
}
