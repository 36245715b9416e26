package replica

// VideoPlaylist mirrors a federated playlist. Playlists are always owned by
// an account; actors without an account capability cannot own one.
type VideoPlaylist struct {
	ID             uint64  `gorm:"column:id;primaryKey;autoIncrement"`
	URL            string  `gorm:"column:url;size:2000;not null;uniqueIndex:idx_playlists_url"`
	OwnerAccountID uint64  `gorm:"column:owner_account_id;not null;index:idx_playlists_owner"`
	Name           string  `gorm:"column:name;size:320;not null"`
	Description    string  `gorm:"column:description;type:text"`
	Privacy        Privacy `gorm:"column:privacy;not null;default:3"`
}

// TableName provides the explicit table binding for GORM.
func (VideoPlaylist) TableName() string {
	return "video_playlists"
}
