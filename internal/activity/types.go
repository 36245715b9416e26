package activity

import (
	"encoding/json"
	"errors"
	"fmt"
)

// PublicAudience is the ActivityStreams collection marking a public recipient set.
const PublicAudience = "https://www.w3.org/ns/activitystreams#Public"

// ErrMalformedObject indicates the activity object payload could not be decoded.
var ErrMalformedObject = errors.New("activity: malformed object payload")

// ObjectKind enumerates the object types this node reconciles.
type ObjectKind string

const (
	// KindVideo identifies a video object.
	KindVideo ObjectKind = "Video"
	// KindPerson identifies an individual actor.
	KindPerson ObjectKind = "Person"
	// KindApplication identifies an automated actor.
	KindApplication ObjectKind = "Application"
	// KindGroup identifies a group actor backing a channel.
	KindGroup ObjectKind = "Group"
	// KindCacheFile identifies a redundancy announcement for a video.
	KindCacheFile ObjectKind = "CacheFile"
	// KindPlaylist identifies an ordered video collection.
	KindPlaylist ObjectKind = "Playlist"
)

// IsActor reports whether the kind names an actor variant.
func (k ObjectKind) IsActor() bool {
	return k == KindPerson || k == KindApplication || k == KindGroup
}

// Activity models an inbound federation activity. The payload is immutable
// once received; object decoding happens per kind at reconciliation time.
type Activity struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Actor  string          `json:"actor"`
	To     []string        `json:"to,omitempty"`
	CC     []string        `json:"cc,omitempty"`
	Object json.RawMessage `json:"object"`
}

// ObjectType decodes only the declared type of the activity's object.
func (a Activity) ObjectType() (ObjectKind, error) {
	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(a.Object, &header); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedObject, err)
	}
	return ObjectKind(header.Type), nil
}

// Audience returns the effective recipient sets for the activity, falling
// back to the object's own sets when the envelope carries none.
func (a Activity) Audience(objectTo, objectCC []string) (to, cc []string) {
	if len(a.To) == 0 && len(a.CC) == 0 {
		return objectTo, objectCC
	}
	return a.To, a.CC
}

// ImageObject references an avatar or banner attachment.
type ImageObject struct {
	Type      string `json:"type"`
	URL       string `json:"url"`
	MediaType string `json:"mediaType,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// VideoObject carries the mutable fields of a federated video.
type VideoObject struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	UUID      string   `json:"uuid"`
	Name      string   `json:"name"`
	Duration  int64    `json:"duration"`
	Content   string   `json:"content,omitempty"`
	Support   string   `json:"support,omitempty"`
	Sensitive bool     `json:"sensitive"`
	Views     int64    `json:"views"`
	To        []string `json:"to,omitempty"`
	CC        []string `json:"cc,omitempty"`
}

// ActorObject carries the mutable profile fields of a federated actor.
type ActorObject struct {
	ID                string       `json:"id"`
	Type              string       `json:"type"`
	PreferredUsername string       `json:"preferredUsername"`
	Name              string       `json:"name,omitempty"`
	Summary           string       `json:"summary,omitempty"`
	Support           string       `json:"support,omitempty"`
	Icon              *ImageObject `json:"icon,omitempty"`
	Image             *ImageObject `json:"image,omitempty"`
}

// CacheFileURL describes the cached media location announced by a peer.
type CacheFileURL struct {
	Href      string `json:"href"`
	MediaType string `json:"mediaType,omitempty"`
	Size      int64  `json:"size,omitempty"`
}

// CacheFileObject announces that the signer redundantly hosts a video.
type CacheFileObject struct {
	ID      string       `json:"id"`
	Type    string       `json:"type"`
	Object  string       `json:"object"`
	Expires string       `json:"expires,omitempty"`
	URL     CacheFileURL `json:"url"`
}

// PlaylistObject carries the mutable fields of a federated playlist.
type PlaylistObject struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Name    string   `json:"name"`
	Content string   `json:"content,omitempty"`
	To      []string `json:"to,omitempty"`
	CC      []string `json:"cc,omitempty"`
}

// VideoObject decodes the activity object as a video payload.
func (a Activity) VideoObject() (VideoObject, error) {
	var obj VideoObject
	if err := json.Unmarshal(a.Object, &obj); err != nil {
		return VideoObject{}, fmt.Errorf("%w: %v", ErrMalformedObject, err)
	}
	return obj, nil
}

// ActorObject decodes the activity object as an actor payload.
func (a Activity) ActorObject() (ActorObject, error) {
	var obj ActorObject
	if err := json.Unmarshal(a.Object, &obj); err != nil {
		return ActorObject{}, fmt.Errorf("%w: %v", ErrMalformedObject, err)
	}
	return obj, nil
}

// CacheFileObject decodes the activity object as a cache-file payload.
func (a Activity) CacheFileObject() (CacheFileObject, error) {
	var obj CacheFileObject
	if err := json.Unmarshal(a.Object, &obj); err != nil {
		return CacheFileObject{}, fmt.Errorf("%w: %v", ErrMalformedObject, err)
	}
	return obj, nil
}

// PlaylistObject decodes the activity object as a playlist payload.
func (a Activity) PlaylistObject() (PlaylistObject, error) {
	var obj PlaylistObject
	if err := json.Unmarshal(a.Object, &obj); err != nil {
		return PlaylistObject{}, fmt.Errorf("%w: %v", ErrMalformedObject, err)
	}
	return obj, nil
}
