package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tripcatalog/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// updatableColumns lists every column an update may touch. Selecting them
// explicitly makes gorm write zero values (featured=false, discount=NULL).
var updatableColumns = []string{
	"title", "description", "price", "location", "images",
	"rating", "duration", "featured", "discount", "original_price", "updated_at",
}

// GORMDestinationRepository is a GORM implementation of DestinationRepository.
type GORMDestinationRepository struct {
	db *gorm.DB
}

// NewGORMDestinationRepository creates a new instance of GORMDestinationRepository.
func NewGORMDestinationRepository(db *gorm.DB) *GORMDestinationRepository {
	return &GORMDestinationRepository{
		db: db,
	}
}

// Create creates a new destination in the database.
func (r *GORMDestinationRepository) Create(ctx context.Context, in models.DestinationInput) (*models.Destination, error) {
	d := in.ToDestination()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	d.ID = uuid.New().String()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt

	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, fmt.Errorf("failed to create destination: %w: %v", models.ErrStorage, err)
	}
	return d, nil
}

// GetByID retrieves a single destination by its ID from the database.
func (r *GORMDestinationRepository) GetByID(ctx context.Context, id string) (*models.Destination, error) {
	var d models.Destination
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, r.wrapLookup(err, id)
	}
	d.ApplyDefaults()
	return &d, nil
}

// ListAll retrieves all destinations, newest first.
func (r *GORMDestinationRepository) ListAll(ctx context.Context) ([]models.Destination, error) {
	var list []models.Destination
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list destinations: %w: %v", models.ErrStorage, err)
	}
	return normalize(list), nil
}

// ListFeatured retrieves up to limit featured destinations, newest first.
func (r *GORMDestinationRepository) ListFeatured(ctx context.Context, limit int) ([]models.Destination, error) {
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}
	var list []models.Destination
	err := r.db.WithContext(ctx).
		Where("featured = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list featured destinations: %w: %v", models.ErrStorage, err)
	}
	return normalize(list), nil
}

// Update merges patch into the stored record inside a transaction. If the row
// disappears between read and write (a concurrent delete won), ErrNotFound is returned.
func (r *GORMDestinationRepository) Update(ctx context.Context, id string, patch models.DestinationPatch) (*models.Destination, error) {
	var updated models.Destination
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Destination
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&existing, "id = ?", id).Error
		if err != nil {
			return r.wrapLookup(err, id)
		}

		patch.Apply(&existing)
		if err := existing.Validate(); err != nil {
			return err
		}
		existing.UpdatedAt = time.Now()

		res := tx.Model(&models.Destination{ID: id}).Select(updatableColumns).Updates(&existing)
		if res.Error != nil {
			return fmt.Errorf("failed to update destination: %w: %v", models.ErrStorage, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("destination with ID %s not found for update: %w", id, models.ErrNotFound)
		}

		if err := tx.First(&updated, "id = ?", id).Error; err != nil {
			return r.wrapLookup(err, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	updated.ApplyDefaults()
	return &updated, nil
}

// Delete removes a destination and returns the record as it was.
func (r *GORMDestinationRepository) Delete(ctx context.Context, id string) (*models.Destination, error) {
	var removed models.Destination
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&removed, "id = ?", id).Error
		if err != nil {
			return r.wrapLookup(err, id)
		}

		res := tx.Delete(&models.Destination{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete destination: %w: %v", models.ErrStorage, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("destination with ID %s not found for deletion: %w", id, models.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	removed.ApplyDefaults()
	return &removed, nil
}

// FindImageOwner narrows candidates with a LIKE on the JSON column and confirms in Go.
func (r *GORMDestinationRepository) FindImageOwner(ctx context.Context, ref string) (string, error) {
	quoted, err := json.Marshal(ref)
	if err != nil {
		return "", fmt.Errorf("failed to encode image reference: %w", err)
	}
	pattern := "%" + escapeLike(string(quoted)) + "%"

	var candidates []models.Destination
	err = r.db.WithContext(ctx).
		Select("id", "images").
		Where("images LIKE ? ESCAPE '\\'", pattern).
		Find(&candidates).Error
	if err != nil {
		return "", fmt.Errorf("failed to look up image owner: %w: %v", models.ErrStorage, err)
	}
	for _, c := range candidates {
		for _, img := range c.Images {
			if img == ref {
				return c.ID, nil
			}
		}
	}
	return "", nil
}

func (r *GORMDestinationRepository) wrapLookup(err error, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("destination with ID %s: %w", id, models.ErrNotFound)
	}
	return fmt.Errorf("failed to get destination by ID %s: %w: %v", id, models.ErrStorage, err)
}

func normalize(list []models.Destination) []models.Destination {
	if list == nil {
		return []models.Destination{}
	}
	for i := range list {
		list[i].ApplyDefaults()
	}
	return list
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
