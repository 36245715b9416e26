package update

import (
	"context"

	"github.com/mckinnon/PeerTube/internal/activity"
	"github.com/mckinnon/PeerTube/internal/replica"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// updateVideo merges a video update into the local replica. Shape validation
// happens before any side effect; a freshly created replica already reflects
// the remote state and skips the merge entirely.
func (s *Service) updateVideo(ctx context.Context, a activity.Activity) error {
	obj, err := a.VideoObject()
	if err != nil {
		s.logger.Debug("dropping undecodable video update",
			zap.String("activity_id", a.ID),
			zap.Error(err))
		return nil
	}
	if !s.validator.IsValidVideo(obj) {
		s.logger.Debug("dropping invalid video update",
			zap.String("activity_id", a.ID),
			zap.String("video_url", obj.ID))
		return nil
	}

	video, created, err := s.videos.FetchOrCreate(ctx, obj)
	if err != nil {
		if isTransientConflict(err) {
			return err
		}
		s.logError(opUpdateVideo, "fetch_or_create_failed", err, zap.String("video_url", obj.ID))
		return newServiceError(opUpdateVideo, "fetch_or_create_failed", err)
	}
	if created {
		s.logger.Debug("video update absorbed as creation",
			zap.String("activity_id", a.ID),
			zap.String("video_url", obj.ID))
		return nil
	}

	to, cc := a.Audience(obj.To, obj.CC)
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		snapshot := replica.TakeSnapshot(video)

		video.Name = obj.Name
		video.Description = obj.Content
		video.Support = obj.Support
		video.Duration = obj.Duration
		video.NSFW = obj.Sensitive
		video.Views = obj.Views
		video.Privacy = replica.PrivacyFromAudience(to, cc)

		if err := tx.Save(video).Error; err != nil {
			snapshot.Restore()
			return err
		}
		return nil
	})
	if txErr != nil {
		if isTransientConflict(txErr) {
			return txErr
		}
		s.logError(opUpdateVideo, "merge_failed", txErr, zap.String("video_url", obj.ID))
		return newServiceError(opUpdateVideo, "merge_failed", txErr)
	}

	s.logger.Debug("video replica updated",
		zap.String("activity_id", a.ID),
		zap.String("video_url", obj.ID))
	return nil
}
