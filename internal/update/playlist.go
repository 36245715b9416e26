package update

import (
	"context"

	"github.com/mckinnon/PeerTube/internal/activity"
	"github.com/mckinnon/PeerTube/internal/replica"
	"go.uber.org/zap"
)

// updatePlaylist delegates a playlist update to the upsert collaborator.
// Playlists are owned by accounts, so a signer without the account
// capability is a malformed or malicious notice and fails hard without
// retry.
func (s *Service) updatePlaylist(ctx context.Context, a activity.Activity, signer *replica.Actor) error {
	if !signer.HasAccount() {
		signerURL := ""
		if signer != nil {
			signerURL = signer.URL
		}
		s.logError(opUpdatePlaylist, "missing_account", ErrMissingAccount,
			zap.String("activity_id", a.ID),
			zap.String("signer_url", signerURL))
		return newServiceError(opUpdatePlaylist, "missing_account", ErrMissingAccount)
	}

	obj, err := a.PlaylistObject()
	if err != nil {
		s.logger.Debug("dropping undecodable playlist update",
			zap.String("activity_id", a.ID),
			zap.Error(err))
		return nil
	}
	if !s.validator.IsValidPlaylist(obj) {
		s.logger.Debug("dropping invalid playlist update",
			zap.String("activity_id", a.ID),
			zap.String("playlist_url", obj.ID))
		return nil
	}

	to, cc := a.Audience(obj.To, obj.CC)
	if err := s.playlists.Upsert(ctx, obj, signer.Account, to, cc); err != nil {
		if isTransientConflict(err) {
			return err
		}
		s.logError(opUpdatePlaylist, "upsert_failed", err, zap.String("playlist_url", obj.ID))
		return newServiceError(opUpdatePlaylist, "upsert_failed", err)
	}

	s.logger.Debug("playlist replica updated",
		zap.String("activity_id", a.ID),
		zap.String("playlist_url", obj.ID))
	return nil
}
