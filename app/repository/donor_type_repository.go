package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/DonationDesk/app/models"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/cache"
)

const donorTypeCacheTTL = 10 * time.Minute

// donorTypeRepository implements the DonorTypeRepository interface
type donorTypeRepository struct {
	db *gorm.DB
}

// NewDonorTypeRepository creates a new donor type repository instance
func NewDonorTypeRepository(db *gorm.DB) DonorTypeRepository {
	return &donorTypeRepository{db: db}
}

func (r *donorTypeRepository) GetByName(name string) (*models.DonorType, error) {
	var dt models.DonorType
	if err := r.db.Where("name = ?", name).First(&dt).Error; err != nil {
		return nil, err
	}
	return &dt, nil
}

// cachedDonorTypeRepository serves donor types from the Redis cache. Donor
// types are read-only for this service, so a short TTL is enough.
type cachedDonorTypeRepository struct {
	next DonorTypeRepository
}

// NewCachedDonorTypeRepository wraps a donor type repository with the cache
func NewCachedDonorTypeRepository(next DonorTypeRepository) DonorTypeRepository {
	return &cachedDonorTypeRepository{next: next}
}

func (r *cachedDonorTypeRepository) GetByName(name string) (*models.DonorType, error) {
	ctx := context.Background()
	key := cache.Key("donor_type", name)

	var cached models.DonorType
	err := cache.GetJSON(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Warnf("[DonorTypeCache] read %s: %v", name, err)
	}

	dt, err := r.next.GetByName(name)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, key, dt, donorTypeCacheTTL); err != nil {
		log.Warnf("[DonorTypeCache] failed to cache %s: %v", name, err)
	}
	return dt, nil
}
