package update

import (
	"context"
	"errors"
	"testing"

	"github.com/mckinnon/PeerTube/internal/activity"
	"github.com/mckinnon/PeerTube/internal/replica"
)

func groupUpdateObject(url string) activity.ActorObject {
	return activity.ActorObject{
		ID:                url,
		Type:              "Group",
		PreferredUsername: "tech",
		Name:              "Tech Weekly",
		Summary:           "new summary",
		Support:           "hello",
	}
}

func TestUpdateActorAppliesGroupProfileAndSupport(t *testing.T) {
	harness := newTestHarness(t)
	url := "https://peer.example/channels/tech"
	seedGroupActor(t, harness.db, url)

	incoming := mustActivity(t, "https://peer.example/activities/1", url, groupUpdateObject(url))
	if err := harness.service.HandleUpdate(context.Background(), incoming, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var storedActor replica.Actor
	if err := harness.db.Where("url = ?", url).Take(&storedActor).Error; err != nil {
		t.Fatalf("failed to load actor: %v", err)
	}
	if storedActor.Name != "Tech Weekly" || storedActor.Summary != "new summary" {
		t.Fatalf("expected updated actor profile, got %+v", storedActor)
	}

	var storedChannel replica.Channel
	if err := harness.db.Where("actor_id = ?", storedActor.ID).Take(&storedChannel).Error; err != nil {
		t.Fatalf("failed to load channel: %v", err)
	}
	if storedChannel.Support != "hello" {
		t.Fatalf("expected channel support %q, got %q", "hello", storedChannel.Support)
	}
	if storedChannel.Name != "Tech Weekly" || storedChannel.Description != "new summary" {
		t.Fatalf("expected updated channel profile, got %+v", storedChannel)
	}
	if storedChannel.ActorID != storedActor.ID {
		t.Fatalf("channel ownership must not change")
	}
}

func TestUpdateActorAppliesPersonImages(t *testing.T) {
	harness := newTestHarness(t)
	url := "https://peer.example/accounts/alice"
	seedPersonActor(t, harness.db, url)

	obj := activity.ActorObject{
		ID:                url,
		Type:              "Person",
		PreferredUsername: "alice",
		Name:              "Alice B",
		Summary:           "refreshed",
		Icon: &activity.ImageObject{
			Type:      "Image",
			URL:       "https://peer.example/avatar-v2.png",
			MediaType: "image/png",
			Width:     256,
			Height:    256,
		},
	}
	incoming := mustActivity(t, "https://peer.example/activities/1", url, obj)
	if err := harness.service.HandleUpdate(context.Background(), incoming, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var storedActor replica.Actor
	if err := harness.db.Where("url = ?", url).Take(&storedActor).Error; err != nil {
		t.Fatalf("failed to load actor: %v", err)
	}
	if storedActor.Avatar.URL != "https://peer.example/avatar-v2.png" || storedActor.Avatar.Width != 256 {
		t.Fatalf("expected upserted avatar, got %+v", storedActor.Avatar)
	}
	if !storedActor.Banner.IsZero() {
		t.Fatalf("update without banner must clear it, got %+v", storedActor.Banner)
	}

	var storedAccount replica.Account
	if err := harness.db.Where("actor_id = ?", storedActor.ID).Take(&storedAccount).Error; err != nil {
		t.Fatalf("failed to load account: %v", err)
	}
	if storedAccount.Name != "Alice B" || storedAccount.Description != "refreshed" {
		t.Fatalf("expected updated account profile, got %+v", storedAccount)
	}
}

func TestUpdateActorRollsBackWhenSideEntitySaveFails(t *testing.T) {
	harness := newTestHarness(t)
	url := "https://peer.example/channels/tech"
	seedGroupActor(t, harness.db, url)
	installFailingTrigger(t, harness.db, "fail_channel_update", "video_channels")

	incoming := mustActivity(t, "https://peer.example/activities/1", url, groupUpdateObject(url))
	if err := harness.service.HandleUpdate(context.Background(), incoming, nil); err == nil {
		t.Fatalf("expected side-entity failure to surface")
	}

	assertGroupUnchanged(t, harness, url)
}

func TestUpdateActorRollsBackWhenActorSaveFails(t *testing.T) {
	harness := newTestHarness(t)
	url := "https://peer.example/channels/tech"
	seedGroupActor(t, harness.db, url)
	installFailingTrigger(t, harness.db, "fail_actor_update", "actors")

	incoming := mustActivity(t, "https://peer.example/activities/1", url, groupUpdateObject(url))
	if err := harness.service.HandleUpdate(context.Background(), incoming, nil); err == nil {
		t.Fatalf("expected actor failure to surface")
	}

	assertGroupUnchanged(t, harness, url)
}

func assertGroupUnchanged(t *testing.T, harness *testHarness, url string) {
	t.Helper()

	var storedActor replica.Actor
	if err := harness.db.Where("url = ?", url).Take(&storedActor).Error; err != nil {
		t.Fatalf("failed to load actor: %v", err)
	}
	if storedActor.Name != "Tech" || storedActor.Summary != "old summary" {
		t.Fatalf("actor must return to pre-notice state, got %+v", storedActor)
	}

	var storedChannel replica.Channel
	if err := harness.db.Where("actor_id = ?", storedActor.ID).Take(&storedChannel).Error; err != nil {
		t.Fatalf("failed to load channel: %v", err)
	}
	if storedChannel.Support != "old" || storedChannel.Description != "old description" {
		t.Fatalf("channel must return to pre-notice state, got %+v", storedChannel)
	}
}

func TestUpdateActorFailsWhenSideEntityMissing(t *testing.T) {
	harness := newTestHarness(t)
	url := "https://peer.example/channels/broken"
	actor := replica.Actor{
		URL:               url,
		Type:              "Group",
		PreferredUsername: "broken",
	}
	if err := harness.db.Create(&actor).Error; err != nil {
		t.Fatalf("failed to seed actor: %v", err)
	}

	incoming := mustActivity(t, "https://peer.example/activities/1", url, groupUpdateObject(url))
	err := harness.service.HandleUpdate(context.Background(), incoming, nil)
	if !errors.Is(err, ErrMissingSideEntity) {
		t.Fatalf("expected ErrMissingSideEntity, got %v", err)
	}
}

func TestUpdateActorDropsUnknownSigner(t *testing.T) {
	harness := newTestHarness(t)
	url := "https://peer.example/accounts/ghost"

	incoming := mustActivity(t, "https://peer.example/activities/1", url, activity.ActorObject{
		ID:                url,
		Type:              "Person",
		PreferredUsername: "ghost",
	})
	if err := harness.service.HandleUpdate(context.Background(), incoming, nil); err != nil {
		t.Fatalf("unknown signer must drop without error, got %v", err)
	}

	var count int64
	if err := harness.db.Model(&replica.Actor{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count actors: %v", err)
	}
	if count != 0 {
		t.Fatalf("drop must not create replicas, found %d", count)
	}
}
