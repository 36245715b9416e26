package update

import (
	"context"
	"errors"

	"github.com/mckinnon/PeerTube/internal/activity"
	"github.com/mckinnon/PeerTube/internal/images"
	"github.com/mckinnon/PeerTube/internal/replica"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ownedEntity is the side entity an actor owns: an account for individuals
// and applications, a channel for groups. Each variant applies only the
// fields it legitimately owns.
type ownedEntity interface {
	applyObject(obj activity.ActorObject)
	save(tx *gorm.DB) error
	capture() func()
}

type accountOwned struct {
	account *replica.Account
}

func (o accountOwned) applyObject(obj activity.ActorObject) {
	o.account.Name = obj.Name
	o.account.Description = obj.Summary
}

func (o accountOwned) save(tx *gorm.DB) error {
	return tx.Save(o.account).Error
}

func (o accountOwned) capture() func() {
	snapshot := replica.TakeSnapshot(o.account)
	return snapshot.Restore
}

type channelOwned struct {
	channel *replica.Channel
}

func (o channelOwned) applyObject(obj activity.ActorObject) {
	o.channel.Name = obj.Name
	o.channel.Description = obj.Summary
	o.channel.Support = obj.Support
}

func (o channelOwned) save(tx *gorm.DB) error {
	return tx.Save(o.channel).Error
}

func (o channelOwned) capture() func() {
	snapshot := replica.TakeSnapshot(o.channel)
	return snapshot.Restore
}

// ownedEntityFor selects the side entity the update's declared kind targets.
func ownedEntityFor(actor *replica.Actor, kind activity.ObjectKind) ownedEntity {
	if kind == activity.KindGroup {
		if actor.Channel == nil {
			return nil
		}
		return channelOwned{channel: actor.Channel}
	}
	if actor.Account == nil {
		return nil
	}
	return accountOwned{account: actor.Account}
}

// updateActor mutates the signer's own replica to match the update's profile
// attributes. Image references resolve before the transaction opens so a
// slow remote attachment never holds it. The actor and its side entity are
// persisted as two saves inside one transaction; snapshots restore both
// in-memory structs when either save fails, then the failure re-raises to
// the retry wrapper.
func (s *Service) updateActor(ctx context.Context, a activity.Activity, actor *replica.Actor) error {
	obj, err := a.ActorObject()
	if err != nil {
		s.logger.Debug("dropping undecodable actor update",
			zap.String("activity_id", a.ID),
			zap.Error(err))
		return nil
	}
	if !s.validator.IsValidActor(obj) {
		s.logger.Debug("dropping invalid actor update",
			zap.String("activity_id", a.ID),
			zap.String("actor_url", obj.ID))
		return nil
	}

	avatar, err := s.images.Resolve(ctx, obj, images.RoleAvatar)
	if err != nil {
		s.logError(opUpdateActor, "avatar_resolve_failed", err, zap.String("actor_url", actor.URL))
		return newServiceError(opUpdateActor, "avatar_resolve_failed", err)
	}
	banner, err := s.images.Resolve(ctx, obj, images.RoleBanner)
	if err != nil {
		s.logError(opUpdateActor, "banner_resolve_failed", err, zap.String("actor_url", actor.URL))
		return newServiceError(opUpdateActor, "banner_resolve_failed", err)
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actorSnapshot := replica.TakeSnapshot(actor)

		owned := ownedEntityFor(actor, activity.ObjectKind(obj.Type))
		if owned == nil {
			s.logError(opUpdateActor, "missing_side_entity", ErrMissingSideEntity,
				zap.String("actor_url", actor.URL),
				zap.String("declared_type", obj.Type))
			return newServiceError(opUpdateActor, "missing_side_entity", ErrMissingSideEntity)
		}
		restoreOwned := owned.capture()
		restore := func() {
			actorSnapshot.Restore()
			restoreOwned()
		}

		actor.Name = obj.Name
		actor.Summary = obj.Summary
		actor.Avatar = imageRefFrom(avatar)
		actor.Banner = imageRefFrom(banner)

		if err := tx.Save(actor).Error; err != nil {
			restore()
			return err
		}

		owned.applyObject(obj)
		if err := owned.save(tx); err != nil {
			restore()
			return err
		}
		return nil
	})
	if txErr != nil {
		if isTransientConflict(txErr) {
			return txErr
		}
		var serviceErr *ServiceError
		if errors.As(txErr, &serviceErr) {
			return txErr
		}
		s.logError(opUpdateActor, "persist_failed", txErr, zap.String("actor_url", actor.URL))
		return newServiceError(opUpdateActor, "persist_failed", txErr)
	}

	s.logger.Debug("actor replica updated",
		zap.String("activity_id", a.ID),
		zap.String("actor_url", actor.URL))
	return nil
}

// imageRefFrom converts resolved image info, clearing the field when the
// update carries no attachment for that role.
func imageRefFrom(info *images.Info) replica.ImageRef {
	if info == nil {
		return replica.ImageRef{}
	}
	return replica.ImageRef{
		URL:       info.URL,
		MediaType: info.MediaType,
		Width:     info.Width,
		Height:    info.Height,
	}
}
