package replica

// ImageRef stores the resolved reference for an actor avatar or banner.
type ImageRef struct {
	URL       string `gorm:"column:url;size:2000"`
	MediaType string `gorm:"column:media_type;size:64"`
	Width     int    `gorm:"column:width"`
	Height    int    `gorm:"column:height"`
}

// IsZero reports whether no image is set.
func (r ImageRef) IsZero() bool {
	return r.URL == ""
}

// Actor mirrors a federated actor this node has seen. Exactly one of the
// Account or Channel associations is populated: individuals and applications
// own an account, groups own a channel.
type Actor struct {
	ID                uint64   `gorm:"column:id;primaryKey;autoIncrement"`
	URL               string   `gorm:"column:url;size:2000;not null;uniqueIndex:idx_actors_url"`
	Type              string   `gorm:"column:type;size:32;not null"`
	PreferredUsername string   `gorm:"column:preferred_username;size:190;not null"`
	Name              string   `gorm:"column:name;size:320"`
	Summary           string   `gorm:"column:summary;type:text"`
	Avatar            ImageRef `gorm:"embedded;embeddedPrefix:avatar_"`
	Banner            ImageRef `gorm:"embedded;embeddedPrefix:banner_"`
	Account           *Account `gorm:"foreignKey:ActorID"`
	Channel           *Channel `gorm:"foreignKey:ActorID"`
}

// TableName provides the explicit table binding for GORM.
func (Actor) TableName() string {
	return "actors"
}

// HasAccount reports whether the actor holds an account capability.
func (a *Actor) HasAccount() bool {
	return a != nil && a.Account != nil
}

// Account is the side entity owned by an individual or application actor.
type Account struct {
	ID          uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	ActorID     uint64 `gorm:"column:actor_id;not null;uniqueIndex:idx_accounts_actor"`
	Name        string `gorm:"column:name;size:320;not null"`
	Description string `gorm:"column:description;type:text"`
}

// TableName provides the explicit table binding for GORM.
func (Account) TableName() string {
	return "accounts"
}

// Channel is the side entity owned by a group actor. Only channels carry a
// support field.
type Channel struct {
	ID          uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	ActorID     uint64 `gorm:"column:actor_id;not null;uniqueIndex:idx_channels_actor"`
	Name        string `gorm:"column:name;size:320;not null"`
	Description string `gorm:"column:description;type:text"`
	Support     string `gorm:"column:support;type:text"`
}

// TableName provides the explicit table binding for GORM.
func (Channel) TableName() string {
	return "video_channels"
}
