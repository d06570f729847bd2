package facts

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EntityRef points at an entity owned by one of the external CRUD modules
// ("caballo", "pago", "cliente", "evento", ...). It is used for
// deep-linking and as part of the alert dedup key.
type EntityRef struct {
	Kind string
	ID   uuid.UUID
}

// Snapshot is one candidate entity with the facts the condition evaluator
// runs against, plus the reference date the recurrence calculator uses
// (e.g. a vaccine's proxima_aplicacion). TargetDate may be nil when the
// category has no natural due date.
type Snapshot struct {
	Entity     EntityRef
	Facts      map[string]interface{}
	TargetDate *time.Time
}

// Source is the read-only boundary to the entity modules. The engine never
// validates or mutates business data through it; a failure for one entity
// or category is isolated by the caller.
type Source interface {
	// FactsForCategory returns a snapshot per candidate entity in scope for
	// an alert category, e.g. each horse's dias_hasta_vencimiento for
	// "vacuna". Unknown categories yield an empty list, not an error.
	FactsForCategory(ctx context.Context, category string, asOf time.Time) ([]Snapshot, error)

	// Owner resolves the responsible user of an entity, nil if none.
	Owner(ctx context.Context, ref EntityRef) (*uuid.UUID, error)

	// ActiveUserIDsWithRole lists active users holding a role.
	ActiveUserIDsWithRole(ctx context.Context, role string) ([]uuid.UUID, error)

	// ActiveUserEmail resolves the delivery address for a recipient.
	ActiveUserEmail(ctx context.Context, userID uuid.UUID) (string, error)
}
