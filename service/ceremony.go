package service

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"voting-crypto/encryption"
	"voting-crypto/models"
	"voting-crypto/shamir"
	"voting-crypto/storage"
)

// InvalidStateError reports a ceremony transition attempted from the
// wrong state.
type InvalidStateError struct {
	CeremonyID string
	Status     models.CeremonyStatus
	Operation  string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("ceremony %s: cannot %s while %s", e.CeremonyID, e.Operation, e.Status)
}

// ShareVerificationError reports shares that failed their polynomial or
// hash check.
type ShareVerificationError struct {
	CeremonyID    string
	FailedIndices []int
}

func (e *ShareVerificationError) Error() string {
	return fmt.Sprintf("ceremony %s: share verification failed for indices %v", e.CeremonyID, e.FailedIndices)
}

// KeyMismatchError reports that a reconstructed private scalar does not
// reproduce the ceremony's published public key. This is always fatal:
// it means corrupted shares or a compromised ceremony, never something
// to retry.
type KeyMismatchError struct {
	CeremonyID string
}

func (e *KeyMismatchError) Error() string {
	return fmt.Sprintf("ceremony %s: reconstructed key does not match published public key", e.CeremonyID)
}

// ShareGrant is one shareholder's deliverable from share distribution:
// their own share plus the hash they can later re-verify it against.
// Grants never contain another shareholder's share.
type ShareGrant struct {
	ShareholderID    string       `json:"shareholder_id"`
	Share            shamir.Share `json:"share"`
	VerificationHash string       `json:"verification_hash"`
}

// ShareVerificationReport is the outcome of re-deriving every
// distributed share from the public polynomial coefficients.
type ShareVerificationReport struct {
	AllValid      bool  `json:"all_valid"`
	FailedIndices []int `json:"failed_indices,omitempty"`
}

// CeremonyService owns the DKG ceremonies of one deployment scope. Each
// ceremony's transitions are serialized by a per-ceremony lock; distinct
// ceremonies run independently. Every state-mutating operation ends
// with a synchronous save to the injected store.
type CeremonyService struct {
	store  storage.CeremonyStore
	scope  string
	crypto *encryption.CryptoService
	logger zerolog.Logger

	// mu guards the ceremony map and the mutate-and-persist step;
	// per-ceremony locks serialize the expensive work above it.
	mu         sync.Mutex
	ceremonies map[string]*ceremonyState
}

type ceremonyState struct {
	mu     sync.Mutex
	record *models.CeremonyRecord
}

func NewCeremonyService(store storage.CeremonyStore, scope string, logger zerolog.Logger) (*CeremonyService, error) {
	records, err := store.Load(scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load ceremony state: %w", err)
	}

	ceremonies := make(map[string]*ceremonyState, len(records))
	for id, rec := range records {
		ceremonies[id] = &ceremonyState{record: rec}
	}

	return &CeremonyService{
		store:      store,
		scope:      scope,
		crypto:     encryption.NewCryptoService(),
		logger:     logger.With().Str("component", "ceremony").Str("scope", scope).Logger(),
		ceremonies: ceremonies,
	}, nil
}

// SetupCeremony generates a fresh key pair, splits the private scalar
// into shares, assigns shares 1..n to the shareholders in order, and
// stores a per-share verification hash. The new ceremony starts in
// Initialized.
func (cs *CeremonyService) SetupCeremony(electionID string, threshold, totalShares int, shareholderIDs []string) (*models.CeremonyRecord, error) {
	if len(shareholderIDs) != totalShares {
		return nil, fmt.Errorf("expected %d shareholder ids, got %d", totalShares, len(shareholderIDs))
	}

	keyPair, err := encryption.GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	shareSet, err := shamir.GenerateShares(keyPair.X.Bytes(), threshold, totalShares)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	record := &models.CeremonyRecord{
		ID:           uuid.New().String(),
		ElectionID:   electionID,
		Threshold:    threshold,
		TotalShares:  totalShares,
		P:            keyPair.P,
		G:            keyPair.G,
		H:            keyPair.H,
		PrivateKey:   keyPair.X,
		Coefficients: shareSet.Coefficients,
		PrimeQ:       shareSet.PrimeQ,
		Shares:       make(map[string]*models.ShareRecord, totalShares),
		Status:       models.StatusInitialized,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for i, holder := range shareholderIDs {
		share := shareSet.Shares[i]
		record.Shares[holder] = &models.ShareRecord{
			ShareholderID:    holder,
			Index:            share.Index,
			Value:            share.Value,
			VerificationHash: hex.EncodeToString(cs.crypto.HashShare(share.Index, share.Value)),
		}
	}

	state := &ceremonyState{record: record}
	if err := cs.commit(state, nil); err != nil {
		return nil, err
	}

	cs.logger.Info().
		Str("ceremony_id", record.ID).
		Str("election_id", electionID).
		Int("threshold", threshold).
		Int("total_shares", totalShares).
		Msg("ceremony initialized")
	return record.Clone(), nil
}

// DistributeShares releases each shareholder's own share together with
// its verification hash and marks the ceremony Distributed. Valid only
// from Initialized.
func (cs *CeremonyService) DistributeShares(ceremonyID string) ([]ShareGrant, error) {
	state, err := cs.get(ceremonyID)
	if err != nil {
		return nil, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	rec := state.record
	if rec.Status != models.StatusInitialized {
		return nil, &InvalidStateError{CeremonyID: ceremonyID, Status: rec.Status, Operation: "distribute shares"}
	}

	grants := make([]ShareGrant, 0, len(rec.Shares))
	for _, sr := range rec.Shares {
		grants = append(grants, ShareGrant{
			ShareholderID:    sr.ShareholderID,
			Share:            shamir.Share{Index: sr.Index, Value: new(big.Int).Set(sr.Value)},
			VerificationHash: sr.VerificationHash,
		})
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].Share.Index < grants[j].Share.Index })

	if err := cs.commit(state, func(rec *models.CeremonyRecord) {
		rec.Status = models.StatusDistributed
		rec.UpdatedAt = time.Now().Unix()
	}); err != nil {
		return nil, err
	}

	cs.logger.Info().Str("ceremony_id", ceremonyID).Int("grants", len(grants)).Msg("shares distributed")
	return grants, nil
}

// VerifyAllShares re-derives every share from the retained polynomial
// coefficients. The ceremony transitions to Verified only when all n
// shares check out; otherwise it stays Distributed and the report names
// the failing share indices.
func (cs *CeremonyService) VerifyAllShares(ceremonyID string) (*ShareVerificationReport, error) {
	state, err := cs.get(ceremonyID)
	if err != nil {
		return nil, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	rec := state.record
	if rec.Status != models.StatusDistributed {
		return nil, &InvalidStateError{CeremonyID: ceremonyID, Status: rec.Status, Operation: "verify shares"}
	}

	var failed []int
	for _, sr := range rec.Shares {
		share := shamir.Share{Index: sr.Index, Value: sr.Value}
		if !shamir.VerifyShare(share, rec.Coefficients, rec.PrimeQ) {
			failed = append(failed, sr.Index)
		}
	}
	sort.Ints(failed)

	if len(failed) > 0 {
		cs.logger.Warn().Str("ceremony_id", ceremonyID).Ints("failed_indices", failed).Msg("share verification failed")
		return &ShareVerificationReport{AllValid: false, FailedIndices: failed},
			&ShareVerificationError{CeremonyID: ceremonyID, FailedIndices: failed}
	}

	if err := cs.commit(state, func(rec *models.CeremonyRecord) {
		rec.Status = models.StatusVerified
		rec.UpdatedAt = time.Now().Unix()
	}); err != nil {
		return nil, err
	}

	cs.logger.Info().Str("ceremony_id", ceremonyID).Msg("all shares verified")
	return &ShareVerificationReport{AllValid: true}, nil
}

// ReconstructPrivateKey rebuilds the private scalar from a quorum of
// supplied shares. Each share is matched against its shareholder record
// via the stored verification hash, and the reconstructed scalar must
// reproduce the published public key before it is trusted.
func (cs *CeremonyService) ReconstructPrivateKey(ceremonyID string, shares []shamir.Share) (*big.Int, error) {
	state, err := cs.get(ceremonyID)
	if err != nil {
		return nil, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	rec := state.record
	if len(shares) < rec.Threshold {
		return nil, &shamir.InsufficientSharesError{Provided: len(shares), Required: rec.Threshold}
	}

	var rejected []int
	for _, share := range shares {
		holder := rec.ShareholderFor(share.Index)
		if holder == "" {
			rejected = append(rejected, share.Index)
			continue
		}
		expected := rec.Shares[holder].VerificationHash
		if hex.EncodeToString(cs.crypto.HashShare(share.Index, share.Value)) != expected {
			rejected = append(rejected, share.Index)
		}
	}
	if len(rejected) > 0 {
		sort.Ints(rejected)
		return nil, &ShareVerificationError{CeremonyID: ceremonyID, FailedIndices: rejected}
	}

	secret, err := shamir.ReconstructSecret(shares, rec.Threshold, rec.PrimeQ)
	if err != nil {
		return nil, err
	}

	x := new(big.Int).SetBytes(secret)
	if encryption.ModPow(rec.G, x, rec.P).Cmp(rec.H) != 0 {
		return nil, &KeyMismatchError{CeremonyID: ceremonyID}
	}
	return x, nil
}

// ThresholdDecrypt reconstructs the private scalar from the supplied
// quorum and decrypts one ciphertext. The result is the plaintext group
// element g^m, not m.
func (cs *CeremonyService) ThresholdDecrypt(ceremonyID string, shares []shamir.Share, ct *encryption.Ciphertext) (*big.Int, error) {
	x, err := cs.ReconstructPrivateKey(ceremonyID, shares)
	if err != nil {
		return nil, err
	}
	state, err := cs.get(ceremonyID)
	if err != nil {
		return nil, err
	}
	return encryption.Decrypt(ct, x, state.record.P)
}

// FinalizeCeremony destroys the ceremony's retained secret material:
// the private scalar, the secret polynomial term, and the stored share
// values. Valid only from Verified. Afterwards decryption requires
// re-supplying a quorum of shares.
func (cs *CeremonyService) FinalizeCeremony(ceremonyID string) error {
	state, err := cs.get(ceremonyID)
	if err != nil {
		return err
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	rec := state.record
	if rec.Status != models.StatusVerified {
		return &InvalidStateError{CeremonyID: ceremonyID, Status: rec.Status, Operation: "finalize"}
	}

	if err := cs.commit(state, func(next *models.CeremonyRecord) {
		next.PrivateKey = nil
		if len(next.Coefficients) > 0 {
			next.Coefficients[0].SetInt64(0)
		}
		for _, sr := range next.Shares {
			sr.Value = nil
		}
		next.Status = models.StatusFinalized
		next.UpdatedAt = time.Now().Unix()
	}); err != nil {
		return err
	}

	// Wipe the superseded record's secret material.
	rec.PrivateKey.SetInt64(0)
	if len(rec.Coefficients) > 0 {
		rec.Coefficients[0].SetInt64(0)
	}
	for _, sr := range rec.Shares {
		if sr.Value != nil {
			sr.Value.SetInt64(0)
			sr.Value = nil
		}
	}

	cs.logger.Info().Str("ceremony_id", ceremonyID).Msg("ceremony finalized, secret material destroyed")
	return nil
}

// GetPublicKey exposes the ceremony's public key for encryption.
func (cs *CeremonyService) GetPublicKey(ceremonyID string) (*encryption.ParsedPublicKey, error) {
	state, err := cs.get(ceremonyID)
	if err != nil {
		return nil, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	rec := state.record
	return &encryption.ParsedPublicKey{
		P: new(big.Int).Set(rec.P),
		G: new(big.Int).Set(rec.G),
		H: new(big.Int).Set(rec.H),
	}, nil
}

// GetCeremony returns a deep copy of the ceremony record.
func (cs *CeremonyService) GetCeremony(ceremonyID string) (*models.CeremonyRecord, error) {
	state, err := cs.get(ceremonyID)
	if err != nil {
		return nil, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.record.Clone(), nil
}

func (cs *CeremonyService) get(ceremonyID string) (*ceremonyState, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	state, ok := cs.ceremonies[ceremonyID]
	if !ok {
		return nil, fmt.Errorf("ceremony %s not found", ceremonyID)
	}
	return state, nil
}

// commit applies a record mutation to a clone, persists the full scope
// under the service lock, and only then swaps the clone in and registers
// the ceremony. A failed save leaves both memory and the store on the
// previous state, so the caller can retry the same transition; a crash
// in between reads as "did not happen" on restart.
func (cs *CeremonyService) commit(state *ceremonyState, mutate func(rec *models.CeremonyRecord)) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	next := state.record.Clone()
	if mutate != nil {
		mutate(next)
	}

	snapshot := make(map[string]*models.CeremonyRecord, len(cs.ceremonies)+1)
	for id, st := range cs.ceremonies {
		snapshot[id] = st.record.Clone()
	}
	snapshot[next.ID] = next.Clone()

	if err := cs.store.Save(cs.scope, snapshot); err != nil {
		return fmt.Errorf("failed to persist ceremony state: %w", err)
	}

	state.record = next
	cs.ceremonies[next.ID] = state
	return nil
}
