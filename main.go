package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"

	"voting-crypto/encryption"
	"voting-crypto/service"
	"voting-crypto/shamir"
	"voting-crypto/storage"
)

type Config struct {
	StorageDir  string
	Scope       string
	Threshold   int
	TotalShares int
	Workers     int
	QueueSize   int
	Debug       bool
}

// PublishedResults is the tally summary an election operator would
// publish alongside the proofs. PublicKey is the combined p||g||h blob
// in the form the voting contract stores.
type PublishedResults struct {
	ElectionID   string                  `json:"election_id"`
	CeremonyID   string                  `json:"ceremony_id"`
	PublicKey    string                  `json:"public_key"`
	TotalBallots int                     `json:"total_ballots"`
	Counts       map[string]int          `json:"counts"`
	Proofs       []encryption.TallyProof `json:"proofs"`
	ProofsValid  bool                    `json:"proofs_valid"`
}

func main() {
	config := parseFlags()
	logger := newLogger(config.Debug)

	if err := run(config, logger); err != nil {
		logger.Fatal().Err(err).Msg("demo failed")
	}
}

// run walks one election end to end: key ceremony, share distribution
// and verification, ballot encryption, homomorphic tally with proofs,
// and finally destruction of the ceremony's secret material.
func run(config *Config, logger zerolog.Logger) error {
	absPath, err := filepath.Abs(config.StorageDir)
	if err != nil {
		return err
	}
	store, err := storage.NewJSONStore(absPath, logger)
	if err != nil {
		return err
	}
	ceremonies, err := service.NewCeremonyService(store, config.Scope, logger)
	if err != nil {
		return err
	}

	shareholders := make([]string, config.TotalShares)
	for i := range shareholders {
		shareholders[i] = fmt.Sprintf("trustee-%d", i+1)
	}

	record, err := ceremonies.SetupCeremony("election-2026", config.Threshold, config.TotalShares, shareholders)
	if err != nil {
		return err
	}
	logger.Info().Str("ceremony_id", record.ID).Msg("key ceremony created")

	grants, err := ceremonies.DistributeShares(record.ID)
	if err != nil {
		return err
	}

	report, err := ceremonies.VerifyAllShares(record.ID)
	if err != nil {
		return err
	}
	logger.Info().Bool("all_valid", report.AllValid).Msg("shares verified")

	pub, err := ceremonies.GetPublicKey(record.ID)
	if err != nil {
		return err
	}

	// Seven voters, three candidates.
	candidates := []string{"alice", "bob", "charlie"}
	choices := []string{"alice", "bob", "alice", "charlie", "bob", "alice", "charlie"}
	ballots := make([]string, len(choices))
	for i, choice := range choices {
		ballot, err := encryption.EncryptSingleChoice(candidates, choice, pub)
		if err != nil {
			return err
		}
		ballots[i] = ballot.Encode()
	}
	logger.Info().Int("ballots", len(ballots)).Msg("ballots encrypted")

	// A threshold of trustees comes back with their shares for the tally.
	quorum := make([]shamir.Share, config.Threshold)
	for i := 0; i < config.Threshold; i++ {
		quorum[i] = grants[i].Share
	}

	tally := service.NewTallyService(ceremonies, config.Workers, logger)
	queue := service.NewQueueProcessor(tally, config.QueueSize, logger)
	queue.Start()
	defer queue.Stop()

	resultCh := queue.QueueTally(&service.TallyRequest{
		CeremonyID: record.ID,
		Candidates: candidates,
		Ballots:    ballots,
		Shares:     quorum,
		MaxTally:   len(ballots),
	})
	outcome := <-resultCh
	if !outcome.Success {
		return fmt.Errorf("tally failed: %s", outcome.ErrorMessage)
	}
	result := outcome.Result

	verification, err := tally.VerifyTally(record.ID, result)
	if err != nil {
		return err
	}

	if err := ceremonies.FinalizeCeremony(record.ID); err != nil {
		return err
	}
	logger.Info().Msg("ceremony finalized, secret material destroyed")

	published := PublishedResults{
		ElectionID:   record.ElectionID,
		CeremonyID:   record.ID,
		PublicKey:    hexutil.Encode(encryption.EncodePublicKey(pub)),
		TotalBallots: result.TotalBallots,
		Counts:       result.Counts,
		Proofs:       result.Proofs,
		ProofsValid:  verification.Valid,
	}
	encoded, err := json.MarshalIndent(published, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))

	metrics, _ := json.Marshal(tally.GetMetrics())
	logger.Debug().RawJSON("metrics", metrics).Msg("tally metrics")
	return nil
}

func parseFlags() *Config {
	config := &Config{}

	flag.StringVar(&config.StorageDir, "storage", "data", "Directory for ceremony storage")
	flag.StringVar(&config.Scope, "scope", "default", "Deployment scope for ceremony persistence")
	flag.IntVar(&config.Threshold, "threshold", 3, "Shares required to reconstruct the key")
	flag.IntVar(&config.TotalShares, "shares", 5, "Total shares to issue")
	flag.IntVar(&config.Workers, "workers", 4, "Parallel workers for tally aggregation")
	flag.IntVar(&config.QueueSize, "queue", 16, "Tally queue capacity")
	flag.BoolVar(&config.Debug, "debug", false, "Enable debug logging")

	flag.Parse()
	return config
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
}
