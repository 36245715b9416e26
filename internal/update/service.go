package update

import (
	"context"
	"errors"
	"fmt"

	"github.com/mckinnon/PeerTube/internal/activity"
	"github.com/mckinnon/PeerTube/internal/images"
	"github.com/mckinnon/PeerTube/internal/replica"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingSigners    = errors.New("signer resolver is required")
	errMissingVideos     = errors.New("video provider is required")
	errMissingValidator  = errors.New("object validator is required")
	errMissingRedundancy = errors.New("redundancy policy is required")
	errMissingImages     = errors.New("image resolver is required")
	errMissingPlaylists  = errors.New("playlist upserter is required")
	errMissingForwarder  = errors.New("forwarder is required")
	noOpLogger           = zap.NewNop()
)

// ErrMissingAccount indicates the signer lacks the account capability a
// playlist update requires. This is a malformed or malicious notice, never a
// transient condition.
var ErrMissingAccount = errors.New("update: signer has no account")

// ErrMissingSideEntity indicates an actor replica owns neither an account
// nor a channel, which a stored replica must never do.
var ErrMissingSideEntity = errors.New("update: actor has no account or channel")

// ServiceError carries a dotted operation.reason code for update failures.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the dotted operation.reason code.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew      = "update.service.new"
	opHandleUpdate    = "update.handle"
	opUpdateVideo     = "update.video"
	opUpdateActor     = "update.actor"
	opUpdateCacheFile = "update.cache_file"
	opUpdatePlaylist  = "update.playlist"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// SignerResolver loads a fully-populated actor record for a signer URL.
type SignerResolver interface {
	ResolveSigner(ctx context.Context, url string) (*replica.Actor, error)
}

// VideoProvider resolves video replicas, creating them on first sighting.
type VideoProvider interface {
	FetchOrCreate(ctx context.Context, obj activity.VideoObject) (*replica.Video, bool, error)
	FetchOrCreateByURL(ctx context.Context, url string) (*replica.Video, bool, error)
}

// ObjectValidator checks inbound object shapes before any side effects.
type ObjectValidator interface {
	IsValidVideo(obj activity.VideoObject) bool
	IsValidActor(obj activity.ActorObject) bool
	IsValidCacheFile(obj activity.CacheFileObject) bool
	IsValidPlaylist(obj activity.PlaylistObject) bool
}

// RedundancyPolicy decides whether a signer may publish cache-file notices.
type RedundancyPolicy interface {
	IsRedundancyAccepted(ctx context.Context, a activity.Activity, signer *replica.Actor) (bool, error)
}

// ImageResolver derives avatar/banner info from an actor object.
type ImageResolver interface {
	Resolve(ctx context.Context, obj activity.ActorObject, role images.Role) (*images.Info, error)
}

// PlaylistUpserter persists playlist replicas for an owning account.
type PlaylistUpserter interface {
	Upsert(ctx context.Context, obj activity.PlaylistObject, owner *replica.Account, to, cc []string) error
}

// Forwarder re-broadcasts an activity to federation peers, skipping the
// excluded actor URLs.
type Forwarder interface {
	Forward(ctx context.Context, a activity.Activity, exceptActors []string) error
}

// ServiceConfig describes the collaborators the update service requires.
type ServiceConfig struct {
	Database   *gorm.DB
	Signers    SignerResolver
	Videos     VideoProvider
	Validator  ObjectValidator
	Redundancy RedundancyPolicy
	Images     ImageResolver
	Playlists  PlaylistUpserter
	Forwarder  Forwarder
	Logger     *zap.Logger
}

// Service reconciles remote-origin Update activities against local replicas.
type Service struct {
	db         *gorm.DB
	signers    SignerResolver
	videos     VideoProvider
	validator  ObjectValidator
	redundancy RedundancyPolicy
	images     ImageResolver
	playlists  PlaylistUpserter
	forwarder  Forwarder
	logger     *zap.Logger
}

// NewService constructs the update service, validating every dependency.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.Signers == nil {
		return nil, newServiceError(opServiceNew, "missing_signers", errMissingSigners)
	}
	if cfg.Videos == nil {
		return nil, newServiceError(opServiceNew, "missing_videos", errMissingVideos)
	}
	if cfg.Validator == nil {
		return nil, newServiceError(opServiceNew, "missing_validator", errMissingValidator)
	}
	if cfg.Redundancy == nil {
		return nil, newServiceError(opServiceNew, "missing_redundancy", errMissingRedundancy)
	}
	if cfg.Images == nil {
		return nil, newServiceError(opServiceNew, "missing_images", errMissingImages)
	}
	if cfg.Playlists == nil {
		return nil, newServiceError(opServiceNew, "missing_playlists", errMissingPlaylists)
	}
	if cfg.Forwarder == nil {
		return nil, newServiceError(opServiceNew, "missing_forwarder", errMissingForwarder)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		signers:    cfg.Signers,
		videos:     cfg.Videos,
		validator:  cfg.Validator,
		redundancy: cfg.Redundancy,
		images:     cfg.Images,
		playlists:  cfg.Playlists,
		forwarder:  cfg.Forwarder,
		logger:     logger,
	}, nil
}

// HandleUpdate routes an inbound Update activity to the reconciler for its
// object kind. Unknown kinds and unresolvable signers are dropped without
// error; everything dispatched runs under the conflict retry wrapper. The
// caller treats the call as fire-and-forget: outcomes surface only through
// logging and the returned error.
func (s *Service) HandleUpdate(ctx context.Context, a activity.Activity, signer *replica.Actor) error {
	kind, err := a.ObjectType()
	if err != nil {
		s.logger.Debug("dropping update with undecodable object",
			zap.String("activity_id", a.ID),
			zap.Error(err))
		return nil
	}

	switch {
	case kind == activity.KindVideo:
		return s.retry(ctx, opUpdateVideo, func(ctx context.Context) error {
			return s.updateVideo(ctx, a)
		})

	case kind.IsActor():
		full, err := s.signers.ResolveSigner(ctx, a.Actor)
		if errors.Is(err, replica.ErrActorNotFound) {
			s.logger.Debug("dropping actor update from unknown signer",
				zap.String("activity_id", a.ID),
				zap.String("signer_url", a.Actor))
			return nil
		}
		if err != nil {
			s.logError(opHandleUpdate, "signer_resolve_failed", err, zap.String("signer_url", a.Actor))
			return newServiceError(opHandleUpdate, "signer_resolve_failed", err)
		}
		return s.retry(ctx, opUpdateActor, func(ctx context.Context) error {
			return s.updateActor(ctx, a, full)
		})

	case kind == activity.KindCacheFile:
		full, err := s.signers.ResolveSigner(ctx, a.Actor)
		if errors.Is(err, replica.ErrActorNotFound) {
			s.logger.Debug("dropping cache-file update from unknown signer",
				zap.String("activity_id", a.ID),
				zap.String("signer_url", a.Actor))
			return nil
		}
		if err != nil {
			s.logError(opHandleUpdate, "signer_resolve_failed", err, zap.String("signer_url", a.Actor))
			return newServiceError(opHandleUpdate, "signer_resolve_failed", err)
		}
		return s.retry(ctx, opUpdateCacheFile, func(ctx context.Context) error {
			return s.updateCacheFile(ctx, a, full)
		})

	case kind == activity.KindPlaylist:
		return s.retry(ctx, opUpdatePlaylist, func(ctx context.Context) error {
			return s.updatePlaylist(ctx, a, signer)
		})

	default:
		// Peers may federate vocabulary this node does not implement.
		s.logger.Debug("ignoring update for unknown object kind",
			zap.String("activity_id", a.ID),
			zap.String("object_kind", string(kind)))
		return nil
	}
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("update service error", attrs...)
}
