package memory

import (
	"context"
	"time"

	"club-hipico-be/internal/model"
	"club-hipico-be/internal/repository"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const (
	activeTypesKey = "tipos_alerta:activos"
	allTypesKey    = "tipos_alerta:todos"
)

// CachedAlertTypeRepository fronts the persistent type registry with a
// short-TTL cache. The scheduler reads the active set every tick, so a
// config change becomes visible after at most one TTL; writes invalidate
// eagerly to shorten that window on the instance that made them.
type CachedAlertTypeRepository struct {
	inner repository.AlertTypeRepository
	cache *cache.Cache
}

func NewCachedAlertTypeRepository(inner repository.AlertTypeRepository, ttl time.Duration) repository.AlertTypeRepository {
	return &CachedAlertTypeRepository{
		inner: inner,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (r *CachedAlertTypeRepository) Create(ctx context.Context, cfg *model.AlertTypeConfig) error {
	if err := r.inner.Create(ctx, cfg); err != nil {
		return err
	}
	r.invalidate()
	return nil
}

func (r *CachedAlertTypeRepository) Update(ctx context.Context, cfg *model.AlertTypeConfig) error {
	if err := r.inner.Update(ctx, cfg); err != nil {
		return err
	}
	r.invalidate()
	r.cache.Delete(cfg.ID.String())
	return nil
}

func (r *CachedAlertTypeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.inner.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate()
	r.cache.Delete(id.String())
	return nil
}

func (r *CachedAlertTypeRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AlertTypeConfig, error) {
	if x, found := r.cache.Get(id.String()); found {
		return x.(*model.AlertTypeConfig), nil
	}
	cfg, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Set(id.String(), cfg, cache.DefaultExpiration)
	return cfg, nil
}

func (r *CachedAlertTypeRepository) List(ctx context.Context) ([]model.AlertTypeConfig, error) {
	if x, found := r.cache.Get(allTypesKey); found {
		return x.([]model.AlertTypeConfig), nil
	}
	cfgs, err := r.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	r.cache.Set(allTypesKey, cfgs, cache.DefaultExpiration)
	return cfgs, nil
}

func (r *CachedAlertTypeRepository) ListActive(ctx context.Context) ([]model.AlertTypeConfig, error) {
	if x, found := r.cache.Get(activeTypesKey); found {
		return x.([]model.AlertTypeConfig), nil
	}
	cfgs, err := r.inner.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	r.cache.Set(activeTypesKey, cfgs, cache.DefaultExpiration)
	return cfgs, nil
}

func (r *CachedAlertTypeRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := r.inner.SetActive(ctx, id, active); err != nil {
		return err
	}
	r.invalidate()
	r.cache.Delete(id.String())
	return nil
}

func (r *CachedAlertTypeRepository) invalidate() {
	r.cache.Delete(activeTypesKey)
	r.cache.Delete(allTypesKey)
}
