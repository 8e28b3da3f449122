package rolesync

import "context"

var authorityCtxKey = &contextKey{"claims-authority"}

type contextKey struct {
	name string
}

// ServiceIdentity is the fixed identity reactions run under. Claims-payload
// writes require it because the actor that triggered the mutation does not
// hold write privilege on the identity record. The scope is deliberately
// narrow: the authority unlocks the claims column, nothing else.
type ServiceIdentity struct {
	name string
}

// NewServiceIdentity creates a service identity with a diagnostic name.
func NewServiceIdentity(name string) *ServiceIdentity {
	if name == "" {
		name = "rolesync"
	}
	return &ServiceIdentity{name: name}
}

// Name returns the identity's diagnostic name.
func (s *ServiceIdentity) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// WithClaimsAuthority grants claims-write privilege to the given context.
// The dispatcher applies it around reaction bodies; embedders should not
// need to call it outside tests.
func WithClaimsAuthority(ctx context.Context, svc *ServiceIdentity) context.Context {
	if svc == nil {
		return ctx
	}
	return context.WithValue(ctx, authorityCtxKey, svc)
}

// ClaimsAuthorityFrom finds the service identity in the context.
func ClaimsAuthorityFrom(ctx context.Context) (*ServiceIdentity, bool) {
	raw, ok := ctx.Value(authorityCtxKey).(*ServiceIdentity)
	return raw, ok
}

func requireClaimsAuthority(ctx context.Context, operation string) error {
	if _, ok := ClaimsAuthorityFrom(ctx); ok {
		return nil
	}
	return withSentinelMetadata(ErrClaimsWriteDenied, map[string]any{
		"operation": operation,
	})
}
