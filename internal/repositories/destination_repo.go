package repositories

import (
	"context"

	"tripcatalog/internal/models"
)

// DefaultFeaturedLimit caps ListFeatured when the caller passes a non-positive limit.
const DefaultFeaturedLimit = 6

// DestinationRepository defines the interface for destination data access.
// It performs no authorization; callers decide what is public and what is admin-only.
type DestinationRepository interface {
	// Create validates the input, applies defaults and persists a new record.
	Create(ctx context.Context, in models.DestinationInput) (*models.Destination, error)
	GetByID(ctx context.Context, id string) (*models.Destination, error)
	// ListAll returns every record, newest first.
	ListAll(ctx context.Context) ([]models.Destination, error)
	// ListFeatured returns at most limit featured records, newest first.
	ListFeatured(ctx context.Context, limit int) ([]models.Destination, error)
	// Update merges the non-nil patch fields, re-validates and bumps UpdatedAt.
	Update(ctx context.Context, id string, patch models.DestinationPatch) (*models.Destination, error)
	// Delete removes the record and returns it as it was before removal.
	Delete(ctx context.Context, id string) (*models.Destination, error)
	// FindImageOwner returns the ID of the destination referencing ref, or "" if none does.
	FindImageOwner(ctx context.Context, ref string) (string, error)
}
