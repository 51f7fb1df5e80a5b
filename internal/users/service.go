package users

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/userdir/userdir/internal/shared"
)

// Store is the authoritative store port. Lookups report absence with
// shared.ErrRecordNotFound; Insert reports an email collision with
// shared.ErrDuplicateEmail.
type Store interface {
	List(ctx context.Context) ([]User, error)
	FindByID(ctx context.Context, id int64) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	Insert(ctx context.Context, user User) (User, error)
	Update(ctx context.Context, user User) (User, error)
	Delete(ctx context.Context, id int64) error
}

// ServiceConfig holds optional collaborators and tuning for Service.
type ServiceConfig struct {
	// TTL of cache entries. Defaults to DefaultCacheTTL.
	TTL time.Duration
	// CacheTimeout bounds each cache call on top of the caller's deadline.
	// Zero means the caller's deadline only.
	CacheTimeout time.Duration
	// FillTimeout bounds a shared store read on a cache miss. Defaults to
	// DefaultFillTimeout.
	FillTimeout time.Duration
	Logger      *slog.Logger
	Observer    CacheObserver
	Retrier     InvalidationRetrier
}

// Service is the cache-aside record store for users: reads go through the
// cache, writes go to the store and then delete the affected cache entries.
//
// The collection entry and each record entry expire independently. A write
// invalidates only its own record entry and the collection entry, so other
// warm entries may serve stale data until their TTL elapses.
type Service struct {
	store        Store
	cache        Cache
	ttl          time.Duration
	cacheTimeout time.Duration
	fillTimeout  time.Duration
	logger       *slog.Logger
	observer     CacheObserver
	retrier      InvalidationRetrier
	fills        singleflight.Group
}

// NewService builds Service instance.
func NewService(store Store, cache Cache, cfg ServiceConfig) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.FillTimeout <= 0 {
		cfg.FillTimeout = DefaultFillTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	return &Service{
		store:        store,
		cache:        cache,
		ttl:          cfg.TTL,
		cacheTimeout: cfg.CacheTimeout,
		fillTimeout:  cfg.FillTimeout,
		logger:       cfg.Logger,
		observer:     cfg.Observer,
		retrier:      cfg.Retrier,
	}
}

// Create inserts a new user. Email uniqueness is checked live against the
// store, never against the cache.
func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	if err := s.checkEmailFree(ctx, in.Email); err != nil {
		return User{}, err
	}

	created, err := s.store.Insert(ctx, in.newUser())
	if err != nil {
		if errors.Is(err, shared.ErrDuplicateEmail) {
			return User{}, shared.ErrDuplicateEmail
		}
		return User{}, shared.StorageFailure("users: insert", err)
	}

	s.invalidate(ctx, created.ID)
	return created, nil
}

// FindAll returns every user, from the collection entry when warm.
func (s *Service) FindAll(ctx context.Context) ([]User, error) {
	var cached []User
	if s.readCache(ctx, CollectionKey, EntryCollection, &cached) {
		return cached, nil
	}

	v, err := s.coalesce(ctx, CollectionKey, func(fctx context.Context) (any, error) {
		users, err := s.store.List(fctx)
		if err != nil {
			return nil, shared.StorageFailure("users: list", err)
		}
		if users == nil {
			users = []User{}
		}
		s.fillCache(fctx, CollectionKey, users)
		return users, nil
	})
	if err != nil {
		return nil, err
	}
	filled := v.([]User)
	out := make([]User, len(filled))
	for i, u := range filled {
		out[i] = u.clone()
	}
	return out, nil
}

// FindOne returns the user with id, from its record entry when warm.
func (s *Service) FindOne(ctx context.Context, id int64) (User, error) {
	key := RecordKey(id)
	var cached User
	if s.readCache(ctx, key, EntryRecord, &cached) {
		return cached, nil
	}

	v, err := s.coalesce(ctx, key, func(fctx context.Context) (any, error) {
		user, err := s.store.FindByID(fctx, id)
		if err != nil {
			if errors.Is(err, shared.ErrRecordNotFound) {
				return nil, shared.ErrRecordNotFound
			}
			return nil, shared.StorageFailure("users: find", err)
		}
		s.fillCache(fctx, key, user)
		return user, nil
	})
	if err != nil {
		return User{}, err
	}
	return v.(User).clone(), nil
}

// Update merges in over the live record and persists it.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (User, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return User{}, err
	}
	if in.Email != nil && *in.Email != current.Email {
		if err := s.checkEmailFree(ctx, *in.Email); err != nil {
			return User{}, err
		}
	}

	saved, err := s.store.Update(ctx, in.apply(current))
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrRecordNotFound):
			return User{}, shared.ErrRecordNotFound
		case errors.Is(err, shared.ErrDuplicateEmail):
			return User{}, shared.ErrDuplicateEmail
		}
		return User{}, shared.StorageFailure("users: update", err)
	}

	s.invalidate(ctx, id)
	return saved, nil
}

// Remove hard-deletes the user.
func (s *Service) Remove(ctx context.Context, id int64) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, shared.ErrRecordNotFound) {
			return shared.ErrRecordNotFound
		}
		return shared.StorageFailure("users: delete", err)
	}

	s.invalidate(ctx, id)
	return nil
}

// checkEmailFree reports ErrDuplicateEmail when the store already holds email.
func (s *Service) checkEmailFree(ctx context.Context, email string) error {
	_, err := s.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return shared.ErrDuplicateEmail
	case !errors.Is(err, shared.ErrRecordNotFound):
		return shared.StorageFailure("users: check email", err)
	}
	return nil
}

// coalesce runs fill once for all concurrent callers of key. The fill is
// detached from any single caller's cancellation and bounded by fillTimeout;
// each caller stops waiting when its own context ends.
func (s *Service) coalesce(ctx context.Context, key string, fill func(context.Context) (any, error)) (any, error) {
	ch := s.fills.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fillTimeout)
		defer cancel()
		return fill(fctx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, shared.StorageFailure("users: wait for "+key, ctx.Err())
	}
}

// load reads the live record, bypassing the cache.
func (s *Service) load(ctx context.Context, id int64) (User, error) {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrRecordNotFound) {
			return User{}, shared.ErrRecordNotFound
		}
		return User{}, shared.StorageFailure("users: load", err)
	}
	return user, nil
}
