// File: storage/storage.go
package storage

import "voting-crypto/models"

// CeremonyStore persists DKG ceremony state keyed by an opaque scope
// identifier (typically the voting contract address), so independent
// deployments never collide. Save is expected to be synchronous and
// durable: the ceremony layer calls it at the end of every
// state-mutating operation and treats a crash before Save as "the
// operation did not happen".
type CeremonyStore interface {
	Load(scope string) (map[string]*models.CeremonyRecord, error)
	Save(scope string, ceremonies map[string]*models.CeremonyRecord) error
}
