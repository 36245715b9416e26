package update

import (
	"context"
	"time"

	"github.com/mckinnon/PeerTube/internal/activity"
	"github.com/mckinnon/PeerTube/internal/replica"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// updateCacheFile records that the signer redundantly hosts a video. Signers
// the redundancy policy has not accepted are dropped silently; that is
// normal policy, not a fault. When the target video originates on this node
// the activity is re-forwarded to peers, excluding the signer so the
// announcement never bounces back to its source.
func (s *Service) updateCacheFile(ctx context.Context, a activity.Activity, signer *replica.Actor) error {
	accepted, err := s.redundancy.IsRedundancyAccepted(ctx, a, signer)
	if err != nil {
		s.logError(opUpdateCacheFile, "policy_check_failed", err, zap.String("signer_url", signer.URL))
		return newServiceError(opUpdateCacheFile, "policy_check_failed", err)
	}
	if !accepted {
		s.logger.Debug("dropping cache-file update from unaccepted signer",
			zap.String("activity_id", a.ID),
			zap.String("signer_url", signer.URL))
		return nil
	}

	obj, err := a.CacheFileObject()
	if err != nil {
		s.logger.Debug("dropping undecodable cache-file update",
			zap.String("activity_id", a.ID),
			zap.Error(err))
		return nil
	}
	if !s.validator.IsValidCacheFile(obj) {
		s.logger.Debug("dropping invalid cache-file update",
			zap.String("activity_id", a.ID),
			zap.String("cache_file_url", obj.ID))
		return nil
	}

	// A video first seen through a cache-file notice still legitimately
	// receives the redundancy record.
	video, _, err := s.videos.FetchOrCreateByURL(ctx, obj.Object)
	if err != nil {
		if isTransientConflict(err) {
			return err
		}
		s.logError(opUpdateCacheFile, "fetch_or_create_failed", err, zap.String("video_url", obj.Object))
		return newServiceError(opUpdateCacheFile, "fetch_or_create_failed", err)
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := replica.VideoRedundancy{
			URL:       obj.ID,
			VideoID:   video.ID,
			ActorID:   signer.ID,
			FileURL:   obj.URL.Href,
			SizeBytes: obj.URL.Size,
			ExpiresAt: parseExpires(obj.Expires),
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "video_id"}, {Name: "actor_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"url", "file_url", "size_bytes", "expires_at",
			}),
		}).Create(&entry).Error
	})
	if txErr != nil {
		if isTransientConflict(txErr) {
			return txErr
		}
		s.logError(opUpdateCacheFile, "upsert_failed", txErr, zap.String("cache_file_url", obj.ID))
		return newServiceError(opUpdateCacheFile, "upsert_failed", txErr)
	}

	if video.Local {
		// Only the origin node fans the announcement out.
		if err := s.forwarder.Forward(ctx, a, []string{signer.URL}); err != nil {
			s.logError(opUpdateCacheFile, "forward_failed", err, zap.String("activity_id", a.ID))
			return newServiceError(opUpdateCacheFile, "forward_failed", err)
		}
	}

	s.logger.Debug("cache-file replica updated",
		zap.String("activity_id", a.ID),
		zap.String("video_url", video.URL),
		zap.String("signer_url", signer.URL))
	return nil
}

func parseExpires(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	utc := parsed.UTC()
	return &utc
}
