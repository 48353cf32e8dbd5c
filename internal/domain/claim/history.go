package claim

import (
	"time"

	"github.com/google/uuid"
)

// HistoryEntry records one lifecycle transition or recorded decision for
// auditability. Entries are appended in the same transaction as the mutation
// they describe.
type HistoryEntry struct {
	ID         int64
	ClaimID    uuid.UUID
	ActorID    string
	FromStatus Status
	ToStatus   Status
	Action     string
	Detail     string
	CreatedAt  time.Time
}
