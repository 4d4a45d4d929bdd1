package service

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voting-crypto/encryption"
)

// QueueProcessor handles asynchronous processing of tally requests. A
// full homomorphic tally over a large ballot box can take a while, so
// callers queue a request and read the outcome from its result channel.
type QueueProcessor struct {
	tallyService *TallyService
	crypto       *encryption.CryptoService
	tallyCh      chan *queuedTally
	processingWg sync.WaitGroup
	shutdownCh   chan struct{}
	logger       zerolog.Logger
}

type queuedTally struct {
	requestID string
	request   *TallyRequest
	resultCh  chan<- *ProcessingResult
}

// ProcessingResult contains the outcome of an asynchronous tally
type ProcessingResult struct {
	Success      bool
	RequestID    string
	CeremonyID   string
	Result       *TallyResult
	ErrorMessage string
	Timestamp    int64
}

// NewQueueProcessor creates a new queue processor
func NewQueueProcessor(tallyService *TallyService, queueSize int, logger zerolog.Logger) *QueueProcessor {
	return &QueueProcessor{
		tallyService: tallyService,
		crypto:       encryption.NewCryptoService(),
		tallyCh:      make(chan *queuedTally, queueSize),
		shutdownCh:   make(chan struct{}),
		logger:       logger.With().Str("component", "tally_queue").Logger(),
	}
}

// Start begins processing queued tally requests
func (qp *QueueProcessor) Start() {
	qp.processingWg.Add(1)
	go qp.tallyWorker()
}

// Stop shuts down the queue processor. Requests still queued when the
// worker exits are failed rather than left dangling, so no caller stays
// blocked on a result channel. Callers must stop queueing before Stop.
func (qp *QueueProcessor) Stop() {
	close(qp.shutdownCh)
	qp.processingWg.Wait()
	qp.drainQueue()
}

// QueueTally adds a tally request to the processing queue under a fresh
// request id. When the queue is full the result channel carries an
// immediate failure instead of blocking the caller.
func (qp *QueueProcessor) QueueTally(request *TallyRequest) <-chan *ProcessingResult {
	resultCh := make(chan *ProcessingResult, 1)

	nonce, err := qp.crypto.GenerateNonce()
	if err != nil {
		resultCh <- &ProcessingResult{
			Success:      false,
			CeremonyID:   request.CeremonyID,
			ErrorMessage: "failed to generate request id: " + err.Error(),
			Timestamp:    time.Now().Unix(),
		}
		close(resultCh)
		return resultCh
	}
	requestID := hex.EncodeToString(nonce)

	select {
	case qp.tallyCh <- &queuedTally{requestID: requestID, request: request, resultCh: resultCh}:
		return resultCh
	default:
		qp.logger.Warn().
			Str("request_id", requestID).
			Str("ceremony_id", request.CeremonyID).
			Msg("tally queue full, request rejected")
		resultCh <- &ProcessingResult{
			Success:      false,
			RequestID:    requestID,
			CeremonyID:   request.CeremonyID,
			ErrorMessage: "tally queue is full",
			Timestamp:    time.Now().Unix(),
		}
		close(resultCh)
		return resultCh
	}
}

// tallyWorker processes queued tally requests one at a time
func (qp *QueueProcessor) tallyWorker() {
	defer qp.processingWg.Done()

	for {
		select {
		case <-qp.shutdownCh:
			return
		case req := <-qp.tallyCh:
			result, err := qp.tallyService.CountVotes(req.request)
			if err != nil {
				req.resultCh <- &ProcessingResult{
					Success:      false,
					RequestID:    req.requestID,
					CeremonyID:   req.request.CeremonyID,
					ErrorMessage: err.Error(),
					Timestamp:    time.Now().Unix(),
				}
			} else {
				req.resultCh <- &ProcessingResult{
					Success:    true,
					RequestID:  req.requestID,
					CeremonyID: req.request.CeremonyID,
					Result:     result,
					Timestamp:  time.Now().Unix(),
				}
			}
			close(req.resultCh)
		}
	}
}

// drainQueue fails every request still queued after the worker exited.
func (qp *QueueProcessor) drainQueue() {
	for {
		select {
		case req := <-qp.tallyCh:
			req.resultCh <- &ProcessingResult{
				Success:      false,
				RequestID:    req.requestID,
				CeremonyID:   req.request.CeremonyID,
				ErrorMessage: "queue processor shut down",
				Timestamp:    time.Now().Unix(),
			}
			close(req.resultCh)
		default:
			return
		}
	}
}
