// Package cache decorates a repository.Store with a read-through cache for
// doctor lookups. Writes through Create or Update drop the affected entries;
// everything else expires after the configured TTL.
package cache

import (
	"context"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/mediconnect-api/internal/model"
	"github.com/jwalitptl/mediconnect-api/internal/repository"
)

const listKey = "doctors:all"

type Store struct {
	repository.Store
	cache *gocache.Cache
}

var _ repository.Store = (*Store)(nil)

func NewStore(inner repository.Store, ttl, cleanupInterval time.Duration) *Store {
	return &Store{
		Store: inner,
		cache: gocache.New(ttl, cleanupInterval),
	}
}

func (s *Store) Doctors() repository.DoctorRepository {
	return &doctorRepository{inner: s.Store.Doctors(), cache: s.cache}
}

// WithTx passes fn a transaction Store whose doctor reads also go through
// the cache.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.WithTx(ctx, func(tx repository.Store) error {
		return fn(&Store{Store: tx, cache: s.cache})
	})
}

type doctorRepository struct {
	inner repository.DoctorRepository
	cache *gocache.Cache
}

func doctorKey(id int64) string {
	return "doctor:" + strconv.FormatInt(id, 10)
}

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	if err := r.inner.Create(ctx, doctor); err != nil {
		return err
	}
	r.cache.Delete(listKey)
	r.cache.Delete(doctorKey(doctor.ID))
	return nil
}

func (r *doctorRepository) Update(ctx context.Context, doctor *model.Doctor) error {
	if err := r.inner.Update(ctx, doctor); err != nil {
		return err
	}
	r.cache.Delete(listKey)
	r.cache.Delete(doctorKey(doctor.ID))
	return nil
}

func (r *doctorRepository) Get(ctx context.Context, id int64) (*model.Doctor, error) {
	if cached, found := r.cache.Get(doctorKey(id)); found {
		d := cached.(model.Doctor)
		return &d, nil
	}

	doctor, err := r.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Set(doctorKey(id), *doctor, gocache.DefaultExpiration)
	return doctor, nil
}

func (r *doctorRepository) List(ctx context.Context) ([]*model.Doctor, error) {
	if cached, found := r.cache.Get(listKey); found {
		return copyDoctors(cached.([]model.Doctor)), nil
	}

	doctors, err := r.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	values := make([]model.Doctor, len(doctors))
	for i, d := range doctors {
		values[i] = *d
	}
	r.cache.Set(listKey, values, gocache.DefaultExpiration)
	return doctors, nil
}

func copyDoctors(values []model.Doctor) []*model.Doctor {
	out := make([]*model.Doctor, len(values))
	for i := range values {
		d := values[i]
		out[i] = &d
	}
	return out
}
