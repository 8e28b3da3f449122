package rolesync

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventIdentityCreated   ActivityEventType = "identity.created"
	ActivityEventIdentityDeleted   ActivityEventType = "identity.deleted"
	ActivityEventProfileCreated    ActivityEventType = "profile.created"
	ActivityEventClaimsSeeded      ActivityEventType = "claims.seeded"
	ActivityEventClaimsRoleUpdated ActivityEventType = "claims.role.updated"
	ActivityEventClaimsRoleCleared ActivityEventType = "claims.role.cleared"
	ActivityEventProfileUpdated    ActivityEventType = "profile.updated"
)

// ActivityEvent captures audit-friendly information about a mutation the
// pipeline performed. Sinks are also how tests observe that a suppressed
// update produced no claims write.
type ActivityEvent struct {
	EventType  ActivityEventType
	IdentityID string
	FromRole   Role
	ToRole     Role
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
