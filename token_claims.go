package rolesync

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenClaims is the JWT-shaped projection of an identity's claims payload,
// ready for downstream token issuance. The role claim always reflects the
// synchronized payload; remaining payload keys travel in Metadata.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserRole string         `json:"role,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Role returns the role claim.
func (c *TokenClaims) Role() string {
	return c.UserRole
}

// TokenClaimsOptions controls registered-claims fields on the projection.
type TokenClaimsOptions struct {
	// Issuer sets the iss claim if provided.
	Issuer string
	// Audience sets the aud claim if provided.
	Audience []string
	// TTL sets exp relative to IssuedAt. Zero leaves exp unset.
	TTL time.Duration
	// IssuedAt overrides the issuance time. Zero uses time.Now().
	IssuedAt time.Time
}

// BuildTokenClaims projects an identity's claims payload into TokenClaims.
// It reads only; minting and signing stay with the embedding token service.
func BuildTokenClaims(identity *Identity, opts TokenClaimsOptions) (*TokenClaims, error) {
	if identity == nil {
		return nil, goerrors.New("identity is required", goerrors.CategoryBadInput)
	}

	issuedAt := opts.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}

	var aud jwt.ClaimStrings
	if len(opts.Audience) > 0 {
		aud = make(jwt.ClaimStrings, len(opts.Audience))
		copy(aud, opts.Audience)
	}

	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  identity.ID.String(),
			Issuer:   opts.Issuer,
			Audience: aud,
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}

	if opts.TTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(issuedAt.Add(opts.TTL))
	}

	if role, ok := ClaimsRole(identity.Claims); ok {
		claims.UserRole = string(role)
	}

	for k, v := range identity.Claims {
		if k == ClaimRoleKey {
			continue
		}
		if claims.Metadata == nil {
			claims.Metadata = map[string]any{}
		}
		claims.Metadata[k] = v
	}

	return claims, nil
}
