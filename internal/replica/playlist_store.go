package replica

import (
	"context"
	"fmt"

	"github.com/mckinnon/PeerTube/internal/activity"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlaylistStoreConfig describes the dependencies for playlist persistence.
type PlaylistStoreConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// PlaylistStore upserts playlist replicas scoped to their owning account.
type PlaylistStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPlaylistStore constructs a PlaylistStore.
func NewPlaylistStore(cfg PlaylistStoreConfig) (*PlaylistStore, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("replica: database handle is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlaylistStore{db: cfg.Database, logger: logger}, nil
}

// Upsert inserts or refreshes the playlist replica keyed by its URL. The
// declared audience recomputes the playlist visibility.
func (s *PlaylistStore) Upsert(ctx context.Context, obj activity.PlaylistObject, owner *Account, to, cc []string) error {
	if owner == nil {
		return fmt.Errorf("replica: playlist owner account is required")
	}

	playlist := VideoPlaylist{
		URL:            obj.ID,
		OwnerAccountID: owner.ID,
		Name:           obj.Name,
		Description:    obj.Content,
		Privacy:        PrivacyFromAudience(to, cc),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url"}},
		DoUpdates: clause.AssignmentColumns([]string{"owner_account_id", "name", "description", "privacy"}),
	}).Create(&playlist).Error
	if err != nil {
		return err
	}

	s.logger.Debug("playlist replica upserted",
		zap.String("playlist_url", obj.ID),
		zap.Uint64("owner_account_id", owner.ID))
	return nil
}
