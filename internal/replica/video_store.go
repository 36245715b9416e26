package replica

import (
	"context"
	"errors"
	"fmt"

	"github.com/mckinnon/PeerTube/internal/activity"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// VideoStoreConfig describes the dependencies for video resolution.
type VideoStoreConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// VideoStore resolves video replicas by activity URL, creating them on first
// sighting. The created flag is the idempotency boundary for update notices:
// a freshly created replica already reflects the remote state and must not
// re-enter merge logic.
type VideoStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewVideoStore constructs a VideoStore.
func NewVideoStore(cfg VideoStoreConfig) (*VideoStore, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("replica: database handle is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VideoStore{db: cfg.Database, logger: logger}, nil
}

// FetchOrCreate returns the replica for the object's URL, creating it from
// the payload when the video has never been seen.
func (s *VideoStore) FetchOrCreate(ctx context.Context, obj activity.VideoObject) (*Video, bool, error) {
	existing, err := s.lookup(ctx, obj.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	created := Video{
		URL:         obj.ID,
		UUID:        obj.UUID,
		Name:        obj.Name,
		Description: obj.Content,
		Support:     obj.Support,
		Duration:    obj.Duration,
		NSFW:        obj.Sensitive,
		Views:       obj.Views,
		Privacy:     PrivacyFromAudience(obj.To, obj.CC),
		Local:       false,
	}
	if err := s.db.WithContext(ctx).Create(&created).Error; err != nil {
		return nil, false, err
	}
	s.logger.Debug("video replica created on first sighting",
		zap.String("video_url", created.URL),
		zap.String("video_uuid", created.UUID))
	return &created, true, nil
}

// FetchOrCreateByURL resolves a video referenced only by URL, as cache-file
// notices do. An unknown video yields a minimal placeholder replica.
func (s *VideoStore) FetchOrCreateByURL(ctx context.Context, url string) (*Video, bool, error) {
	existing, err := s.lookup(ctx, url)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	created := Video{
		URL:     url,
		Name:    url,
		Privacy: PrivacyPrivate,
		Local:   false,
	}
	if err := s.db.WithContext(ctx).Create(&created).Error; err != nil {
		return nil, false, err
	}
	s.logger.Debug("placeholder video replica created", zap.String("video_url", url))
	return &created, true, nil
}

// List returns every known video replica ordered by identifier.
func (s *VideoStore) List(ctx context.Context) ([]Video, error) {
	var videos []Video
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

func (s *VideoStore) lookup(ctx context.Context, url string) (*Video, error) {
	var video Video
	if err := s.db.WithContext(ctx).Where("url = ?", url).Take(&video).Error; err != nil {
		return nil, err
	}
	return &video, nil
}
