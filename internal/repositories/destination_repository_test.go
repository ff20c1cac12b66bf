package repositories_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"tripcatalog/internal/database"
	"tripcatalog/internal/models"
	"tripcatalog/internal/repositories"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repoFactory func(t *testing.T) repositories.DestinationRepository

func memoryRepo(t *testing.T) repositories.DestinationRepository {
	return repositories.NewMemoryDestinationRepository()
}

func gormRepo(t *testing.T) repositories.DestinationRepository {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := database.Connect(dsn, log)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return repositories.NewGORMDestinationRepository(db)
}

func forEachRepo(t *testing.T, fn func(t *testing.T, newRepo repoFactory)) {
	t.Run("memory", func(t *testing.T) { fn(t, memoryRepo) })
	t.Run("gorm", func(t *testing.T) { fn(t, gormRepo) })
}

func input(title string) models.DestinationInput {
	return models.DestinationInput{
		Title:       title,
		Description: title + " description",
		Price:       "$599",
		Location:    "Somewhere",
	}
}

func TestDestinationRepository_CreateAppliesDefaults(t *testing.T) {
	forEachRepo(t, func(t *testing.T, newRepo repoFactory) {
		repo := newRepo(t)
		ctx := context.Background()

		a, err := repo.Create(ctx, input("Bali"))
		require.NoError(t, err)
		b, err := repo.Create(ctx, input("Bali"))
		require.NoError(t, err)

		assert.NotEmpty(t, a.ID)
		assert.NotEqual(t, a.ID, b.ID)
		assert.Equal(t, models.DefaultRating, a.Rating)
		assert.Equal(t, models.DefaultDuration, a.Duration)
		assert.False(t, a.Featured)
		assert.Equal(t, []string{}, a.Images)
		assert.Nil(t, a.Discount)
		assert.False(t, a.CreatedAt.IsZero())
		assert.Equal(t, a.CreatedAt, a.UpdatedAt)

		got, err := repo.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "Bali", got.Title)
		assert.Equal(t, "$599", got.Price)
		assert.Equal(t, []string{}, got.Images)
	})
}

func TestDestinationRepository_CreateKeepsExplicitValues(t *testing.T) {
	forEachRepo(t, func(t *testing.T, newRepo repoFactory) {
		repo := newRepo(t)
		ctx := context.Background()

		rating := models.Rating(0)
		featured := true
		discount, original := "25%", "$799"
		in := input("Maldives")
		in.Rating = &rating
		in.Featured = &featured
		in.Duration = "7 days"
		in.Discount = &discount
		in.OriginalPrice = &original
		in.Images = []string{"/uploads/a.png", "/uploads/b.png"}

		d, err := repo.Create(ctx, in)
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got.Rating)
		assert.True(t, got.Featured)
		assert.Equal(t, "7 days", got.Duration)
		require.NotNil(t, got.Discount)
		assert.Equal(t, "25%", *got.Discount)
		require.NotNil(t, got.OriginalPrice)
		assert.Equal(t, "$799", *got.OriginalPrice)
		assert.Equal(t, []string{"/uploads/a.png", "/uploads/b.png"}, got.Images)
	})
}

func TestDestinationRepository_CreateRejectsMissingFields(t *testing.T) {
	forEachRepo(t, func(t *testing.T, newRepo repoFactory) {
		repo := newRepo(t)
		ctx := context.Background()

		for _, in := range []models.DestinationInput{
			{Description: "d", Price: "p", Location: "l"},
			{Title: "t", Price: "p", Location: "l"},
			{Title: "t", Description: "d", Location: "l"},
			{Title: "t", Description: "d", Price: "p"},
			{Title: " ", Description: "d", Price: "p", Location: "l"},
		} {
			_, err := repo.Create(ctx, in)
			assert.ErrorIs(t, err, models.ErrValidation)
		}

		all, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestDestinationRepository_ListOrderAndFeatured(t *testing.T) {
	forEachRepo(t, func(t *testing.T, newRepo repoFactory) {
		repo := newRepo(t)
		ctx := context.Background()

		featured := true
		var ids []string
		for i := 0; i < 8; i++ {
			in := input(fmt.Sprintf("D%d", i))
			if i != 3 {
				in.Featured = &featured
			}
			d, err := repo.Create(ctx, in)
			require.NoError(t, err)
			ids = append(ids, d.ID)
			time.Sleep(2 * time.Millisecond)
		}

		all, err := repo.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 8)
		assert.Equal(t, ids[7], all[0].ID, "newest first")
		assert.Equal(t, ids[0], all[7].ID)

		top, err := repo.ListFeatured(ctx, repositories.DefaultFeaturedLimit)
		require.NoError(t, err)
		assert.Len(t, top, 6)
		for _, d := range top {
			assert.True(t, d.Featured)
			assert.NotEqual(t, ids[3], d.ID)
		}
		assert.Equal(t, ids[7], top[0].ID)

		two, err := repo.ListFeatured(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, two, 2)

		fallback, err := repo.ListFeatured(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, fallback, repositories.DefaultFeaturedLimit)
	})
}

func TestDestinationRepository_UpdateMergesPartialFields(t *testing.T) {
	forEachRepo(t, func(t *testing.T, newRepo repoFactory) {
		repo := newRepo(t)
		ctx := context.Background()

		discount := "10%"
		in := input("Bali")
		in.Discount = &discount
		in.Images = []string{"/uploads/1.png"}
		created, err := repo.Create(ctx, in)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)

		title := "Y"
		updated, err := repo.Update(ctx, created.ID, models.DestinationPatch{Title: &title})
		require.NoError(t, err)

		assert.Equal(t, "Y", updated.Title)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, created.Description, updated.Description)
		assert.Equal(t, created.Price, updated.Price)
		assert.Equal(t, created.Location, updated.Location)
		assert.Equal(t, created.Images, updated.Images)
		assert.Equal(t, created.Rating, updated.Rating)
		assert.Equal(t, created.Duration, updated.Duration)
		assert.Equal(t, created.Featured, updated.Featured)
		assert.Equal(t, *created.Discount, *updated.Discount)
		assert.True(t, created.CreatedAt.Equal(updated.CreatedAt), "createdAt is immutable")
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt), "updatedAt is bumped")

		featured := false
		_, err = repo.Update(ctx, created.ID, models.DestinationPatch{Featured: &featured})
		require.NoError(t, err)

		blank := "  "
		_, err = repo.Update(ctx, created.ID, models.DestinationPatch{Price: &blank})
		assert.ErrorIs(t, err, models.ErrValidation)

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "$599", got.Price, "a rejected update leaves the record untouched")

		_, err = repo.Update(ctx, "missing", models.DestinationPatch{Title: &title})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestDestinationRepository_DeleteReturnsRecord(t *testing.T) {
	forEachRepo(t, func(t *testing.T, newRepo repoFactory) {
		repo := newRepo(t)
		ctx := context.Background()

		in := input("Bali")
		in.Images = []string{"/uploads/1.png", "/uploads/2.png", "/uploads/3.png"}
		created, err := repo.Create(ctx, in)
		require.NoError(t, err)

		removed, err := repo.Delete(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, in.Images, removed.Images)

		_, err = repo.GetByID(ctx, created.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)

		_, err = repo.Delete(ctx, created.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)

		title := "back"
		_, err = repo.Update(ctx, created.ID, models.DestinationPatch{Title: &title})
		assert.ErrorIs(t, err, models.ErrNotFound, "no resurrection through update")
	})
}

func TestDestinationRepository_FindImageOwner(t *testing.T) {
	forEachRepo(t, func(t *testing.T, newRepo repoFactory) {
		repo := newRepo(t)
		ctx := context.Background()

		in := input("Bali")
		in.Images = []string{"/uploads/destination-1x2.png"}
		created, err := repo.Create(ctx, in)
		require.NoError(t, err)

		owner, err := repo.FindImageOwner(ctx, "/uploads/destination-1x2.png")
		require.NoError(t, err)
		assert.Equal(t, created.ID, owner)

		// "_" must not act as a LIKE wildcard
		owner, err = repo.FindImageOwner(ctx, "/uploads/destination-1_2.png")
		require.NoError(t, err)
		assert.Empty(t, owner)

		owner, err = repo.FindImageOwner(ctx, "/uploads/destination-1")
		require.NoError(t, err)
		assert.Empty(t, owner, "prefixes of a ref do not match")
	})
}

func TestDestinationRepository_ConcurrentUpdatesAndDelete(t *testing.T) {
	forEachRepo(t, func(t *testing.T, newRepo repoFactory) {
		repo := newRepo(t)
		ctx := context.Background()

		var ids []string
		for i := 0; i < 10; i++ {
			d, err := repo.Create(ctx, input(fmt.Sprintf("D%d", i)))
			require.NoError(t, err)
			ids = append(ids, d.ID)
		}

		var wg sync.WaitGroup
		for _, id := range ids {
			for n := 0; n < 20; n++ {
				wg.Add(1)
				go func(id string, n int) {
					defer wg.Done()
					title := fmt.Sprintf("%s-%d", id, n)
					_, err := repo.Update(ctx, id, models.DestinationPatch{Title: &title})
					assert.NoError(t, err)
				}(id, n)
			}
		}
		wg.Wait()

		for _, id := range ids {
			got, err := repo.GetByID(ctx, id)
			require.NoError(t, err)
			assert.Contains(t, got.Title, id, "updates to one id never leak into another")
		}

		// update racing delete: the update either lands before the delete,
		// and the removed record carries it, or it sees NotFound
		for _, target := range ids {
			var (
				updateErr error
				removed   *models.Destination
				deleteErr error
			)
			wg.Add(2)
			go func() {
				defer wg.Done()
				title := "racer"
				_, updateErr = repo.Update(ctx, target, models.DestinationPatch{Title: &title})
			}()
			go func() {
				defer wg.Done()
				removed, deleteErr = repo.Delete(ctx, target)
			}()
			wg.Wait()

			require.NoError(t, deleteErr)
			if updateErr != nil {
				assert.ErrorIs(t, updateErr, models.ErrNotFound)
				assert.NotEqual(t, "racer", removed.Title)
			} else {
				assert.Equal(t, "racer", removed.Title)
			}
			_, err := repo.GetByID(ctx, target)
			assert.ErrorIs(t, err, models.ErrNotFound, "no resurrection after the race")
		}

		all, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestRepositoriesRespectCancelledContext(t *testing.T) {
	repo := repositories.NewMemoryDestinationRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Create(ctx, input("Bali"))
	assert.ErrorIs(t, err, context.Canceled)
	_, err = repo.ListAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
