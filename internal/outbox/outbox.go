package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mckinnon/PeerTube/internal/activity"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// JobStatePending marks a forward job awaiting delivery by the transport layer.
const JobStatePending = "pending"

// ForwardJob persists a re-broadcast request. Delivery itself is the
// transport layer's responsibility; the queue is the hand-off point.
type ForwardJob struct {
	JobID            string `gorm:"column:job_id;primaryKey;size:190;not null"`
	ActivityID       string `gorm:"column:activity_id;size:2000;not null;index:idx_forward_jobs_activity"`
	PayloadJSON      string `gorm:"column:payload_json;type:text;not null"`
	ExcludedActors   string `gorm:"column:excluded_actors;type:text;not null"`
	State            string `gorm:"column:state;size:32;not null;default:'pending'"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (ForwardJob) TableName() string {
	return "forward_jobs"
}

// Exclusions decodes the actor URLs delivery must skip.
func (j ForwardJob) Exclusions() ([]string, error) {
	var actors []string
	if err := json.Unmarshal([]byte(j.ExcludedActors), &actors); err != nil {
		return nil, err
	}
	return actors, nil
}

// IDProvider issues job identifiers.
type IDProvider interface {
	NewID() (string, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider that issues UUIDv7 identifiers.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// QueueConfig describes the dependencies for the forwarding queue.
type QueueConfig struct {
	Database   *gorm.DB
	IDProvider IDProvider
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Queue enqueues activities for re-broadcast to federation peers.
type Queue struct {
	db     *gorm.DB
	ids    IDProvider
	clock  func() time.Time
	logger *zap.Logger
}

// NewQueue constructs a Queue.
func NewQueue(cfg QueueConfig) (*Queue, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("outbox: database handle is required")
	}
	ids := cfg.IDProvider
	if ids == nil {
		ids = NewUUIDProvider()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{db: cfg.Database, ids: ids, clock: clock, logger: logger}, nil
}

// Forward enqueues the activity for delivery to peers, excluding the given
// actor URLs so an announcement never bounces back to its source.
func (q *Queue) Forward(ctx context.Context, a activity.Activity, exceptActors []string) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("outbox: encode activity: %w", err)
	}
	if exceptActors == nil {
		exceptActors = []string{}
	}
	exclusions, err := json.Marshal(exceptActors)
	if err != nil {
		return fmt.Errorf("outbox: encode exclusions: %w", err)
	}

	jobID, err := q.ids.NewID()
	if err != nil {
		return fmt.Errorf("outbox: job id: %w", err)
	}

	job := ForwardJob{
		JobID:            jobID,
		ActivityID:       a.ID,
		PayloadJSON:      string(payload),
		ExcludedActors:   string(exclusions),
		State:            JobStatePending,
		CreatedAtSeconds: q.clock().UTC().Unix(),
	}
	if err := q.db.WithContext(ctx).Create(&job).Error; err != nil {
		return err
	}

	q.logger.Debug("activity enqueued for forwarding",
		zap.String("job_id", jobID),
		zap.String("activity_id", a.ID),
		zap.Strings("excluded_actors", exceptActors))
	return nil
}

// Pending lists forward jobs not yet handed to the transport layer.
func (q *Queue) Pending(ctx context.Context, limit int) ([]ForwardJob, error) {
	query := q.db.WithContext(ctx).
		Where("state = ?", JobStatePending).
		Order("created_at_s ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var jobs []ForwardJob
	if err := query.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}
