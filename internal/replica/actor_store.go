package replica

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrActorNotFound indicates no local replica exists for the requested actor URL.
var ErrActorNotFound = errors.New("replica: actor not found")

// ActorStoreConfig describes the dependencies for actor resolution.
type ActorStoreConfig struct {
	Database *gorm.DB
}

// ActorStore loads fully-populated actor records, including the account or
// channel side entity the actor owns.
type ActorStore struct {
	db *gorm.DB
}

// NewActorStore constructs an ActorStore.
func NewActorStore(cfg ActorStoreConfig) (*ActorStore, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("replica: database handle is required")
	}
	return &ActorStore{db: cfg.Database}, nil
}

// ResolveSigner returns the full actor record for the given URL, or
// ErrActorNotFound when this node has never seen the actor.
func (s *ActorStore) ResolveSigner(ctx context.Context, url string) (*Actor, error) {
	var actor Actor
	err := s.db.WithContext(ctx).
		Preload("Account").
		Preload("Channel").
		Where("url = ?", url).
		Take(&actor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrActorNotFound, url)
	}
	if err != nil {
		return nil, err
	}
	return &actor, nil
}
