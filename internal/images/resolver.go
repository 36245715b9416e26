package images

import (
	"context"
	"fmt"
	"strings"

	"github.com/mckinnon/PeerTube/internal/activity"
)

// Role names which actor image an update refers to.
type Role string

const (
	// RoleAvatar selects the actor's avatar image.
	RoleAvatar Role = "avatar"
	// RoleBanner selects the actor's banner image.
	RoleBanner Role = "banner"
)

// Info is the resolved description of an actor image.
type Info struct {
	URL       string
	MediaType string
	Width     int
	Height    int
}

// Resolver derives image info from the attachments embedded in an actor
// object. Resolution happens before any storage transaction opens so that a
// slow or failing attachment never holds a transaction.
type Resolver struct{}

// NewResolver constructs the default image resolver.
func NewResolver() Resolver {
	return Resolver{}
}

// Resolve returns the image info for the requested role, or nil when the
// actor object carries no attachment for it.
func (Resolver) Resolve(_ context.Context, obj activity.ActorObject, role Role) (*Info, error) {
	var attachment *activity.ImageObject
	switch role {
	case RoleAvatar:
		attachment = obj.Icon
	case RoleBanner:
		attachment = obj.Image
	default:
		return nil, fmt.Errorf("images: unknown role %q", role)
	}

	if attachment == nil {
		return nil, nil
	}
	url := strings.TrimSpace(attachment.URL)
	if url == "" {
		return nil, fmt.Errorf("images: %s attachment has no url", role)
	}
	if attachment.MediaType != "" && !strings.HasPrefix(attachment.MediaType, "image/") {
		return nil, fmt.Errorf("images: %s attachment has media type %q", role, attachment.MediaType)
	}

	return &Info{
		URL:       url,
		MediaType: attachment.MediaType,
		Width:     attachment.Width,
		Height:    attachment.Height,
	}, nil
}
