package rolesync

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidInvocation = "INVALID_REACTION_INVOCATION"
	TextCodeClaimsWriteDenied = "CLAIMS_WRITE_DENIED"
	TextCodeRoleNotAllowed    = "ROLE_NOT_IN_VOCABULARY"
	TextCodeNullPolicyUnset   = "NULL_ROLE_POLICY_UNSET"
)

// ErrInvalidInvocation is returned when a reaction runs outside its
// designated row-mutation event. Metadata carries the offending reaction.
var ErrInvalidInvocation = goerrors.New("reaction invoked outside its mutation event", goerrors.CategoryOperation).
	WithTextCode(TextCodeInvalidInvocation).
	WithCode(goerrors.CodeBadRequest)

// ErrClaimsWriteDenied is returned when a claims-payload write is attempted
// without the service authority that reactions run under.
var ErrClaimsWriteDenied = goerrors.New("claims payload write requires service authority", goerrors.CategoryAuth).
	WithTextCode(TextCodeClaimsWriteDenied).
	WithCode(goerrors.CodeForbidden)

// ErrRoleNotAllowed is returned when a profile role write carries a value
// outside the closed vocabulary.
var ErrRoleNotAllowed = goerrors.New("role is not in the allowed vocabulary", goerrors.CategoryValidation).
	WithTextCode(TextCodeRoleNotAllowed).
	WithCode(goerrors.CodeBadRequest)

// ErrNullRolePolicyUnset is returned when a role is cleared before the
// embedder picked a NullRolePolicy.
var ErrNullRolePolicyUnset = goerrors.New("clearing a role requires a configured null-role policy", goerrors.CategoryOperation).
	WithTextCode(TextCodeNullPolicyUnset).
	WithCode(goerrors.CodeConflict)

// withSentinelMetadata attaches metadata to a copy of the sentinel so the
// package-level error stays pristine and errors.Is still matches through
// the clone's source chain.
func withSentinelMetadata(sentinel *goerrors.Error, meta map[string]any) error {
	clone := sentinel.Clone()
	if clone == nil {
		return sentinel
	}
	clone.Source = sentinel
	return clone.WithMetadata(meta)
}

// ErrIdentityNotFound is the error we return for missing identity records
var ErrIdentityNotFound = errors.New("identity not found")

// ErrProfileNotFound is the error we return for missing profile records
var ErrProfileNotFound = errors.New("profile not found")

// IsConstraintViolation will check for storage-layer constraint errors, e.g.
// a duplicate mirror firing hitting the profiles primary key.
func IsConstraintViolation(err error) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		msg := e.Error()
		if strings.Contains(msg, "UNIQUE constraint failed") ||
			strings.Contains(msg, "FOREIGN KEY constraint failed") ||
			strings.Contains(msg, "duplicate key value") ||
			strings.Contains(msg, "violates foreign key constraint") {
			return true
		}
	}
	return false
}

// IsPrivilegeDenied will check for claims-write authorization failures,
// ours or the storage engine's.
func IsPrivilegeDenied(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeClaimsWriteDenied {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "not authorized")
}
