package rolesync

// ClaimRoleKey is the top-level claims-payload key this package keeps in
// lockstep with the profile's role.
const ClaimRoleKey = "role"

// NullRolePolicy decides what happens to the claims payload's role key when
// a profile's role is cleared. The upstream behavior is unspecified, so the
// choice is surfaced as configuration instead of a silent default.
type NullRolePolicy int

const (
	// NullRolePolicyUnset rejects role clearing until a policy is chosen.
	NullRolePolicyUnset NullRolePolicy = iota
	// NullRoleRemoveKey drops the role key from the claims payload.
	NullRoleRemoveKey
	// NullRoleSetNull keeps the key and sets its value to JSON null.
	NullRoleSetNull
)

// MergeClaims performs a shallow union of patch into payload, preferring the
// patch value for colliding keys. A nil payload is treated as an empty
// document. Neither input is mutated.
func MergeClaims(payload, patch map[string]any) map[string]any {
	merged := make(map[string]any, len(payload)+len(patch))
	for k, v := range payload {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

// ClaimsRole extracts the role key from a claims payload.
func ClaimsRole(payload map[string]any) (Role, bool) {
	if payload == nil {
		return "", false
	}
	raw, ok := payload[ClaimRoleKey]
	if !ok {
		return "", false
	}
	role, ok := raw.(string)
	return Role(role), ok
}
