package replica

import (
	"time"

	"github.com/mckinnon/PeerTube/internal/activity"
)

// Privacy encodes the visibility computed from an activity's audience.
type Privacy int

const (
	// PrivacyPublic marks a video listed for everyone.
	PrivacyPublic Privacy = 1
	// PrivacyUnlisted marks a video reachable by link only.
	PrivacyUnlisted Privacy = 2
	// PrivacyPrivate marks a video hidden from other users.
	PrivacyPrivate Privacy = 3
)

// PrivacyFromAudience maps ActivityStreams recipient sets to a visibility
// level: public collection in "to" means public, in "cc" means unlisted,
// anything else is private.
func PrivacyFromAudience(to, cc []string) Privacy {
	for _, recipient := range to {
		if recipient == activity.PublicAudience {
			return PrivacyPublic
		}
	}
	for _, recipient := range cc {
		if recipient == activity.PublicAudience {
			return PrivacyUnlisted
		}
	}
	return PrivacyPrivate
}

// Video mirrors a federated video. Local reports whether this node is the
// origin for the video rather than a mirror.
type Video struct {
	ID          uint64  `gorm:"column:id;primaryKey;autoIncrement"`
	URL         string  `gorm:"column:url;size:2000;not null;uniqueIndex:idx_videos_url"`
	UUID        string  `gorm:"column:uuid;size:36;not null;index:idx_videos_uuid"`
	Name        string  `gorm:"column:name;size:320;not null"`
	Description string  `gorm:"column:description;type:text"`
	Support     string  `gorm:"column:support;type:text"`
	Duration    int64   `gorm:"column:duration;not null;default:0"`
	NSFW        bool    `gorm:"column:nsfw;not null;default:false"`
	Views       int64   `gorm:"column:views;not null;default:0"`
	Privacy     Privacy `gorm:"column:privacy;not null;default:3"`
	Local       bool    `gorm:"column:local;not null;default:false"`
}

// TableName provides the explicit table binding for GORM.
func (Video) TableName() string {
	return "videos"
}

// VideoRedundancy records that a remote actor redundantly hosts a video's
// media, keyed by the (video, actor) pair.
type VideoRedundancy struct {
	ID        uint64     `gorm:"column:id;primaryKey;autoIncrement"`
	URL       string     `gorm:"column:url;size:2000;not null"`
	VideoID   uint64     `gorm:"column:video_id;not null;uniqueIndex:idx_redundancies_video_actor,priority:1"`
	ActorID   uint64     `gorm:"column:actor_id;not null;uniqueIndex:idx_redundancies_video_actor,priority:2"`
	FileURL   string     `gorm:"column:file_url;size:2000;not null"`
	SizeBytes int64      `gorm:"column:size_bytes;not null;default:0"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (VideoRedundancy) TableName() string {
	return "video_redundancies"
}
