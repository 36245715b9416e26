package redundancy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mckinnon/PeerTube/internal/activity"
	"github.com/mckinnon/PeerTube/internal/replica"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AcceptedRedundancy records that an actor may publish cache-file notices
// against this node's replicas.
type AcceptedRedundancy struct {
	ID               uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	ActorURL         string `gorm:"column:actor_url;size:2000;not null;uniqueIndex:idx_accepted_redundancies_actor"`
	AcceptedAtSecond int64  `gorm:"column:accepted_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (AcceptedRedundancy) TableName() string {
	return "accepted_redundancies"
}

// PolicyConfig describes the dependencies for the redundancy policy.
type PolicyConfig struct {
	Database   *gorm.DB
	AutoAccept bool
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Policy decides whether a signer is currently accepted to announce
// redundancies. Rejection is normal policy, never an error.
type Policy struct {
	db         *gorm.DB
	autoAccept bool
	clock      func() time.Time
	logger     *zap.Logger
}

// NewPolicy constructs a Policy.
func NewPolicy(cfg PolicyConfig) (*Policy, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("redundancy: database handle is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{db: cfg.Database, autoAccept: cfg.AutoAccept, clock: clock, logger: logger}, nil
}

// IsRedundancyAccepted reports whether the signer may publish cache-file
// notices. With auto-accept enabled every known signer qualifies.
func (p *Policy) IsRedundancyAccepted(ctx context.Context, _ activity.Activity, signer *replica.Actor) (bool, error) {
	if signer == nil {
		return false, nil
	}
	if p.autoAccept {
		return true, nil
	}

	var record AcceptedRedundancy
	err := p.db.WithContext(ctx).
		Where("actor_url = ?", signer.URL).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Accept marks the actor URL as allowed to publish redundancy notices.
func (p *Policy) Accept(ctx context.Context, actorURL string) error {
	record := AcceptedRedundancy{
		ActorURL:         actorURL,
		AcceptedAtSecond: p.clock().UTC().Unix(),
	}
	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "actor_url"}},
		DoNothing: true,
	}).Create(&record).Error
	if err != nil {
		return err
	}
	p.logger.Info("redundancy actor accepted", zap.String("actor_url", actorURL))
	return nil
}

// List returns every accepted redundancy actor.
func (p *Policy) List(ctx context.Context) ([]AcceptedRedundancy, error) {
	var records []AcceptedRedundancy
	if err := p.db.WithContext(ctx).Order("accepted_at_s ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
