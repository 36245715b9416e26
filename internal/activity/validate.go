package activity

import "strings"

const maxFieldLength = 5000

// Validator performs structural checks on decoded activity objects before
// any reconciliation side effects. Invalid objects are dropped by callers,
// never retried.
type Validator struct{}

// NewValidator constructs the default object validator.
func NewValidator() Validator {
	return Validator{}
}

// IsValidVideo reports whether the video payload is structurally usable.
func (Validator) IsValidVideo(obj VideoObject) bool {
	if ObjectKind(obj.Type) != KindVideo {
		return false
	}
	if !isUsableID(obj.ID) || strings.TrimSpace(obj.UUID) == "" {
		return false
	}
	if strings.TrimSpace(obj.Name) == "" || len(obj.Name) > maxFieldLength {
		return false
	}
	if obj.Duration < 0 || obj.Views < 0 {
		return false
	}
	return true
}

// IsValidActor reports whether the actor payload is structurally usable.
func (Validator) IsValidActor(obj ActorObject) bool {
	if !ObjectKind(obj.Type).IsActor() {
		return false
	}
	if !isUsableID(obj.ID) {
		return false
	}
	if strings.TrimSpace(obj.PreferredUsername) == "" {
		return false
	}
	if obj.Icon != nil && strings.TrimSpace(obj.Icon.URL) == "" {
		return false
	}
	if obj.Image != nil && strings.TrimSpace(obj.Image.URL) == "" {
		return false
	}
	return true
}

// IsValidCacheFile reports whether the cache-file payload is structurally usable.
func (Validator) IsValidCacheFile(obj CacheFileObject) bool {
	if ObjectKind(obj.Type) != KindCacheFile {
		return false
	}
	if !isUsableID(obj.ID) || !isUsableID(obj.Object) {
		return false
	}
	if strings.TrimSpace(obj.URL.Href) == "" {
		return false
	}
	if obj.URL.Size < 0 {
		return false
	}
	return true
}

// IsValidPlaylist reports whether the playlist payload is structurally usable.
func (Validator) IsValidPlaylist(obj PlaylistObject) bool {
	if ObjectKind(obj.Type) != KindPlaylist {
		return false
	}
	if !isUsableID(obj.ID) {
		return false
	}
	if strings.TrimSpace(obj.Name) == "" || len(obj.Name) > maxFieldLength {
		return false
	}
	return true
}

func isUsableID(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || len(trimmed) > 2000 {
		return false
	}
	return strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://")
}
