package services

import (
	"fmt"
	"strings"

	"tripcatalog/internal/models"
)

// IdentityResolver verifies a bearer token and yields the caller's identity.
type IdentityResolver interface {
	Resolve(token string) (*models.Identity, error)
}

// Gate separates public reads from administrator writes.
type Gate struct {
	resolver IdentityResolver
}

func NewGate(resolver IdentityResolver) *Gate {
	return &Gate{resolver: resolver}
}

// Authenticate accepts a raw Authorization header value ("Bearer <token>").
func (g *Gate) Authenticate(credential string) (*models.Identity, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, fmt.Errorf("authorization header is required: %w", models.ErrUnauthenticated)
	}
	parts := strings.SplitN(strings.TrimSpace(credential), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return nil, fmt.Errorf("authorization header format must be 'Bearer <token>': %w", models.ErrUnauthenticated)
	}

	identity, err := g.resolver.Resolve(strings.TrimSpace(parts[1]))
	if err != nil {
		// Resolver errors that are not already classified still mean "not authenticated".
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthenticated, err)
	}
	return identity, nil
}

// RequireAdmin authenticates and then asserts the administrator capability.
func (g *Gate) RequireAdmin(credential string) (*models.Identity, error) {
	identity, err := g.Authenticate(credential)
	if err != nil {
		return nil, err
	}
	if !identity.IsAdmin {
		return nil, fmt.Errorf("user %s is not an administrator: %w", identity.UserID, models.ErrForbidden)
	}
	return identity, nil
}
