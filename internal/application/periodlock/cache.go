package periodlock

import (
	"context"

	"github.com/commandx/backend/internal/domain/periodlock"
	"github.com/google/uuid"
)

// SnapshotCache holds recently loaded lock snapshots for the advisory gate.
// Entries expire after the implementation's TTL. Implementations must be
// safe for concurrent use and must never fail a lookup: a backend error is
// a miss.
type SnapshotCache interface {
	Get(ctx context.Context, tenantID uuid.UUID) (periodlock.Snapshot, bool)
	Set(ctx context.Context, tenantID uuid.UUID, snap periodlock.Snapshot)
	Delete(ctx context.Context, tenantID uuid.UUID)
}

type noopCache struct{}

func (noopCache) Get(context.Context, uuid.UUID) (periodlock.Snapshot, bool) {
	return periodlock.Snapshot{}, false
}
func (noopCache) Set(context.Context, uuid.UUID, periodlock.Snapshot) {}
func (noopCache) Delete(context.Context, uuid.UUID)                   {}
