package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tripcatalog/internal/models"

	"github.com/google/uuid"
)

type memoryRecord struct {
	dest models.Destination
	seq  uint64
}

// MemoryDestinationRepository is an in-memory implementation of DestinationRepository.
type MemoryDestinationRepository struct {
	destinations map[string]memoryRecord
	seq          uint64
	mu           sync.RWMutex
	now          func() time.Time
}

// NewMemoryDestinationRepository creates a new instance of MemoryDestinationRepository.
func NewMemoryDestinationRepository() *MemoryDestinationRepository {
	return &MemoryDestinationRepository{
		destinations: make(map[string]memoryRecord),
		now:          time.Now,
	}
}

// Create adds a new destination.
func (r *MemoryDestinationRepository) Create(ctx context.Context, in models.DestinationInput) (*models.Destination, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d := in.ToDestination()
	if err := d.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	d.ID = uuid.New().String()
	d.CreatedAt = r.now()
	d.UpdatedAt = d.CreatedAt
	r.seq++
	r.destinations[d.ID] = memoryRecord{dest: d.Clone(), seq: r.seq}

	out := d.Clone()
	return &out, nil
}

// GetByID returns a destination by its ID.
func (r *MemoryDestinationRepository) GetByID(ctx context.Context, id string) (*models.Destination, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.destinations[id]
	if !ok {
		return nil, fmt.Errorf("destination with ID %s: %w", id, models.ErrNotFound)
	}
	out := rec.dest.Clone()
	return &out, nil
}

// ListAll returns all destinations, newest first.
func (r *MemoryDestinationRepository) ListAll(ctx context.Context) ([]models.Destination, error) {
	return r.list(ctx, false, 0)
}

// ListFeatured returns up to limit featured destinations, newest first.
func (r *MemoryDestinationRepository) ListFeatured(ctx context.Context, limit int) ([]models.Destination, error) {
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}
	return r.list(ctx, true, limit)
}

func (r *MemoryDestinationRepository) list(ctx context.Context, featuredOnly bool, limit int) ([]models.Destination, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	records := make([]memoryRecord, 0, len(r.destinations))
	for _, rec := range r.destinations {
		if featuredOnly && !rec.dest.Featured {
			continue
		}
		records = append(records, rec)
	}
	r.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.dest.CreatedAt.Equal(b.dest.CreatedAt) {
			return a.dest.CreatedAt.After(b.dest.CreatedAt)
		}
		return a.seq > b.seq
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	list := make([]models.Destination, 0, len(records))
	for _, rec := range records {
		list = append(list, rec.dest.Clone())
	}
	return list, nil
}

// Update merges patch into an existing destination.
func (r *MemoryDestinationRepository) Update(ctx context.Context, id string, patch models.DestinationPatch) (*models.Destination, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.destinations[id]
	if !ok {
		return nil, fmt.Errorf("destination with ID %s not found for update: %w", id, models.ErrNotFound)
	}
	merged := rec.dest.Clone()
	patch.Apply(&merged)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	merged.UpdatedAt = r.now()
	rec.dest = merged.Clone()
	r.destinations[id] = rec

	return &merged, nil
}

// Delete removes a destination by its ID and returns the removed record.
func (r *MemoryDestinationRepository) Delete(ctx context.Context, id string) (*models.Destination, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.destinations[id]
	if !ok {
		return nil, fmt.Errorf("destination with ID %s not found for deletion: %w", id, models.ErrNotFound)
	}
	delete(r.destinations, id)
	out := rec.dest
	return &out, nil
}

// FindImageOwner returns the ID of the destination whose images contain ref.
func (r *MemoryDestinationRepository) FindImageOwner(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, rec := range r.destinations {
		for _, img := range rec.dest.Images {
			if img == ref {
				return id, nil
			}
		}
	}
	return "", nil
}
