package service

import (
	"sync"
	"time"
)

// MetricsCollector tracks performance metrics for the tally pipeline
type MetricsCollector struct {
	mu sync.RWMutex

	decodeCount     int
	decodeTotalTime time.Duration

	combineStartTime time.Time
	combineEndTime   time.Time
	combineTotalTime time.Duration

	decryptionCount     int
	decryptionTotalTime time.Duration

	proofCount     int
	proofTotalTime time.Duration

	tallyStartTime      time.Time
	tallyEndTime        time.Time
	tallyProcessingTime time.Duration
}

// OperationMetrics contains timing information for an operation
type OperationMetrics struct {
	Count            int   `json:"count"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

// MetricsResponse provides the metrics for all tally stages
type MetricsResponse struct {
	BallotDecode OperationMetrics `json:"ballot_decode"`
	Combine      OperationMetrics `json:"combine"`
	Decryption   OperationMetrics `json:"decryption"`
	Proofs       OperationMetrics `json:"proofs"`
	TallyTotalMs int64            `json:"tally_total_ms"`
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// RecordTallyStart marks the start of a full tally run
func (mc *MetricsCollector) RecordTallyStart() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.tallyStartTime = time.Now()
}

// RecordTallyEnd marks the end of a full tally run
func (mc *MetricsCollector) RecordTallyEnd() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.tallyEndTime = time.Now()
	mc.tallyProcessingTime = mc.tallyEndTime.Sub(mc.tallyStartTime)
}

// RecordBallotDecode accumulates time spent decoding one ballot
func (mc *MetricsCollector) RecordBallotDecode(duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.decodeCount++
	mc.decodeTotalTime += duration
}

// RecordCombineStart marks the start of homomorphic aggregation
func (mc *MetricsCollector) RecordCombineStart() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.combineStartTime = time.Now()
}

// RecordCombineEnd marks the end of homomorphic aggregation
func (mc *MetricsCollector) RecordCombineEnd() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.combineEndTime = time.Now()
	mc.combineTotalTime += mc.combineEndTime.Sub(mc.combineStartTime)
}

// RecordDecryption accumulates time spent on one slot decryption
func (mc *MetricsCollector) RecordDecryption(duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.decryptionCount++
	mc.decryptionTotalTime += duration
}

// RecordProof accumulates time spent generating or verifying one proof
func (mc *MetricsCollector) RecordProof(duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.proofCount++
	mc.proofTotalTime += duration
}

// GetMetrics returns current metrics for all tally stages
func (mc *MetricsCollector) GetMetrics() MetricsResponse {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return MetricsResponse{
		BallotDecode: OperationMetrics{
			Count:            mc.decodeCount,
			ProcessingTimeMs: mc.decodeTotalTime.Milliseconds(),
		},
		Combine: OperationMetrics{
			ProcessingTimeMs: mc.combineTotalTime.Milliseconds(),
		},
		Decryption: OperationMetrics{
			Count:            mc.decryptionCount,
			ProcessingTimeMs: mc.decryptionTotalTime.Milliseconds(),
		},
		Proofs: OperationMetrics{
			Count:            mc.proofCount,
			ProcessingTimeMs: mc.proofTotalTime.Milliseconds(),
		},
		TallyTotalMs: mc.tallyProcessingTime.Milliseconds(),
	}
}

// Reset clears all metrics
func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.decodeCount = 0
	mc.decodeTotalTime = 0
	mc.combineStartTime = time.Time{}
	mc.combineEndTime = time.Time{}
	mc.combineTotalTime = 0
	mc.decryptionCount = 0
	mc.decryptionTotalTime = 0
	mc.proofCount = 0
	mc.proofTotalTime = 0
	mc.tallyStartTime = time.Time{}
	mc.tallyEndTime = time.Time{}
	mc.tallyProcessingTime = 0
}
