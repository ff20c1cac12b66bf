package services

import (
	"context"
	"errors"
	"fmt"

	"tripcatalog/internal/models"
	"tripcatalog/internal/repositories"
	"tripcatalog/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// EventPublisher receives catalog lifecycle events after a mutation commits.
type EventPublisher interface {
	PublishDestinationEvent(ctx context.Context, event models.DestinationEvent) error
}

// CatalogService binds the gate, the destination repository and the asset store.
//
// Upload-then-create and delete-then-remove-assets are two separate steps and
// are not transactional: an upload that is never attached stays on disk, and a
// crash between deleting a record and its files can leave some files behind.
// Both are accepted; neither corrupts the catalog.
type CatalogService struct {
	repo      repositories.DestinationRepository
	assets    storage.AssetStore
	gate      *Gate
	publisher EventPublisher
	validate  *validator.Validate
	log       logrus.FieldLogger
}

// NewCatalogService creates a new CatalogService. publisher may be nil.
func NewCatalogService(repo repositories.DestinationRepository, assets storage.AssetStore, gate *Gate, publisher EventPublisher, log logrus.FieldLogger) *CatalogService {
	return &CatalogService{
		repo:      repo,
		assets:    assets,
		gate:      gate,
		publisher: publisher,
		validate:  NewValidator(),
		log:       log,
	}
}

// PublicList returns every destination, newest first.
func (s *CatalogService) PublicList(ctx context.Context) ([]models.Destination, error) {
	return s.repo.ListAll(ctx)
}

// PublicGet returns one destination.
func (s *CatalogService) PublicGet(ctx context.Context, id string) (*models.Destination, error) {
	return s.repo.GetByID(ctx, id)
}

// PublicFeatured returns the curated featured view.
func (s *CatalogService) PublicFeatured(ctx context.Context) ([]models.Destination, error) {
	return s.repo.ListFeatured(ctx, repositories.DefaultFeaturedLimit)
}

// AdminUpload stores up to five images and returns their references.
func (s *CatalogService) AdminUpload(ctx context.Context, credential string, files []storage.File) ([]string, error) {
	identity, err := s.gate.RequireAdmin(credential)
	if err != nil {
		return nil, err
	}
	refs, err := storage.StoreBatch(ctx, s.assets, files)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"admin": identity.UserID, "count": len(refs)}).Info("images uploaded")
	return refs, nil
}

// AdminCreate persists a new destination. Its images must already be uploaded.
func (s *CatalogService) AdminCreate(ctx context.Context, credential string, in models.DestinationInput) (*models.Destination, error) {
	identity, err := s.gate.RequireAdmin(credential)
	if err != nil {
		return nil, err
	}
	if err := s.validateStruct(in); err != nil {
		return nil, err
	}
	if err := s.checkImages(ctx, "", in.Images); err != nil {
		return nil, err
	}

	dest, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"admin": identity.UserID, "destination": dest.ID}).Info("destination created")
	s.publish(ctx, models.NewDestinationEvent(models.DestinationCreated, dest, identity.UserID))
	return dest, nil
}

// AdminUpdate merges patch into an existing destination.
func (s *CatalogService) AdminUpdate(ctx context.Context, credential, id string, patch models.DestinationPatch) (*models.Destination, error) {
	identity, err := s.gate.RequireAdmin(credential)
	if err != nil {
		return nil, err
	}
	if err := s.validateStruct(patch); err != nil {
		return nil, err
	}
	if patch.Images != nil {
		if err := s.checkImages(ctx, id, *patch.Images); err != nil {
			return nil, err
		}
	}

	dest, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"admin": identity.UserID, "destination": dest.ID}).Info("destination updated")
	s.publish(ctx, models.NewDestinationEvent(models.DestinationUpdated, dest, identity.UserID))
	return dest, nil
}

// AdminDelete removes a destination and then, best-effort, every image it referenced.
// A failed image removal is logged and skipped; the record stays deleted.
func (s *CatalogService) AdminDelete(ctx context.Context, credential, id string) error {
	identity, err := s.gate.RequireAdmin(credential)
	if err != nil {
		return err
	}

	dest, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	// The record is gone; finish the cascade even if the caller hangs up.
	cleanupCtx := context.WithoutCancel(ctx)
	failed := 0
	for _, ref := range dest.Images {
		if err := s.assets.Delete(cleanupCtx, ref); err != nil {
			failed++
			s.log.WithError(err).WithFields(logrus.Fields{"destination": dest.ID, "ref": ref}).Warn("failed to delete image")
		}
	}

	s.log.WithFields(logrus.Fields{
		"admin":         identity.UserID,
		"destination":   dest.ID,
		"images":        len(dest.Images),
		"images_failed": failed,
	}).Info("destination deleted")
	s.publish(cleanupCtx, models.NewDestinationEvent(models.DestinationDeleted, dest, identity.UserID))
	return nil
}

// AdminList returns every destination for management views.
func (s *CatalogService) AdminList(ctx context.Context, credential string) ([]models.Destination, error) {
	if _, err := s.gate.RequireAdmin(credential); err != nil {
		return nil, err
	}
	return s.repo.ListAll(ctx)
}

// checkImages enforces that refs exist in the asset store, are listed once, and
// are not attached to a destination other than ownerID.
func (s *CatalogService) checkImages(ctx context.Context, ownerID string, refs []string) error {
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if _, dup := seen[ref]; dup {
			return models.NewValidationError("images", fmt.Sprintf("image %s is listed more than once", ref))
		}
		seen[ref] = struct{}{}

		ok, err := s.assets.Exists(ctx, ref)
		if err != nil {
			return err
		}
		if !ok {
			return models.NewValidationError("images", fmt.Sprintf("image %s has not been uploaded", ref))
		}

		owner, err := s.repo.FindImageOwner(ctx, ref)
		if err != nil {
			return err
		}
		if owner != "" && owner != ownerID {
			return models.NewValidationError("images", fmt.Sprintf("image %s belongs to another destination", ref))
		}
	}
	return nil
}

func (s *CatalogService) validateStruct(v interface{}) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	fields := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		fields[e.Field()] = fmt.Sprintf("failed on the '%s' tag", e.Tag())
	}
	return &models.ValidationError{Fields: fields}
}

func (s *CatalogService) publish(ctx context.Context, event models.DestinationEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishDestinationEvent(ctx, event); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"type": event.Type, "destination": event.DestinationID}).Warn("failed to publish destination event")
	}
}
