package versioning

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/briefs-backend/internal/domain/briefs"
)

// Store is the persistence the engine works through. Implementations must make InFamily
// exclusive per root id and all-or-nothing: writes made through the FamilyTx become visible
// only if fn returns nil. Lock acquisition that exceeds the store's bound fails with ErrContention.
type Store interface {
	InFamily(ctx context.Context, rootID uuid.UUID, fn func(tx FamilyTx) error) error

	Get(ctx context.Context, id uuid.UUID) (*briefs.BriefVersion, error)
	Snapshot(ctx context.Context) ([]*briefs.BriefVersion, error)
	ListCanonical(ctx context.Context, filter briefs.CanonicalFilter) ([]*briefs.BriefVersion, error)
	ListFamily(ctx context.Context, rootID uuid.UUID) ([]*briefs.BriefVersion, error)
}

// FamilyTx is the view of one locked family. Records returned by Members are copies;
// mutate them and hand them back through SaveState.
type FamilyTx interface {
	Members() ([]*briefs.BriefVersion, error)
	Insert(v *briefs.BriefVersion) error
	// SaveState persists the draft/published/active flags and PublishedAt of v.
	SaveState(v *briefs.BriefVersion) error
}
