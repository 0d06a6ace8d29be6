// Package identity reads professionals and facilities for the core, caching
// single lookups for a short time. Snapshot listings used by matching always
// go to the store.
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/nidahp/portal-api/internal/model"
	"github.com/nidahp/portal-api/internal/repository"
)

type Service struct {
	repo  repository.IdentityRepository
	cache *cache.Cache
}

// NewService caches lookups for ttl. A non-positive ttl disables caching.
func NewService(repo repository.IdentityRepository, ttl time.Duration) *Service {
	s := &Service{repo: repo}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

func (s *Service) GetProfessional(ctx context.Context, id int64) (*model.Professional, error) {
	key := fmt.Sprintf("professional:%d", id)
	if p, ok := s.get(key); ok {
		return p.(*model.Professional), nil
	}

	p, err := s.repo.GetProfessional(ctx, id)
	if err != nil {
		return nil, err
	}
	s.set(key, p)
	return p, nil
}

func (s *Service) GetFacility(ctx context.Context, id int64) (*model.Facility, error) {
	key := fmt.Sprintf("facility:%d", id)
	if f, ok := s.get(key); ok {
		return f.(*model.Facility), nil
	}

	f, err := s.repo.GetFacility(ctx, id)
	if err != nil {
		return nil, err
	}
	s.set(key, f)
	return f, nil
}

func (s *Service) ListMatchableProfessionals(ctx context.Context) ([]*model.Professional, error) {
	return s.repo.ListMatchableProfessionals(ctx)
}

func (s *Service) ListFacilityNeedTags(ctx context.Context) ([]*model.FacilityNeedTags, error) {
	return s.repo.ListFacilityNeedTags(ctx)
}

func (s *Service) get(key string) (interface{}, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(key)
}

func (s *Service) set(key string, v interface{}) {
	if s.cache != nil {
		s.cache.SetDefault(key, v)
	}
}
