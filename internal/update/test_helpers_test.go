package update

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/mckinnon/PeerTube/internal/activity"
	"github.com/mckinnon/PeerTube/internal/images"
	"github.com/mckinnon/PeerTube/internal/outbox"
	"github.com/mckinnon/PeerTube/internal/redundancy"
	"github.com/mckinnon/PeerTube/internal/replica"
	"gorm.io/gorm"
)

type forwardCall struct {
	activityID string
	except     []string
}

type recordingForwarder struct {
	calls []forwardCall
}

func (f *recordingForwarder) Forward(_ context.Context, a activity.Activity, exceptActors []string) error {
	f.calls = append(f.calls, forwardCall{activityID: a.ID, except: exceptActors})
	return nil
}

type testHarness struct {
	service   *Service
	db        *gorm.DB
	forwarder *recordingForwarder
	policy    *redundancy.Policy
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	dsn := fmt.Sprintf("file:update_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&replica.Actor{},
		&replica.Account{},
		&replica.Channel{},
		&replica.Video{},
		&replica.VideoRedundancy{},
		&replica.VideoPlaylist{},
		&redundancy.AcceptedRedundancy{},
		&outbox.ForwardJob{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	actorStore, err := replica.NewActorStore(replica.ActorStoreConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to construct actor store: %v", err)
	}
	videoStore, err := replica.NewVideoStore(replica.VideoStoreConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to construct video store: %v", err)
	}
	playlistStore, err := replica.NewPlaylistStore(replica.PlaylistStoreConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to construct playlist store: %v", err)
	}
	policy, err := redundancy.NewPolicy(redundancy.PolicyConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to construct redundancy policy: %v", err)
	}

	forwarder := &recordingForwarder{}
	service, err := NewService(ServiceConfig{
		Database:   db,
		Signers:    actorStore,
		Videos:     videoStore,
		Validator:  activity.NewValidator(),
		Redundancy: policy,
		Images:     images.NewResolver(),
		Playlists:  playlistStore,
		Forwarder:  forwarder,
	})
	if err != nil {
		t.Fatalf("failed to construct update service: %v", err)
	}

	return &testHarness{service: service, db: db, forwarder: forwarder, policy: policy}
}

func mustActivity(t *testing.T, id, actorURL string, object any) activity.Activity {
	t.Helper()
	payload, err := json.Marshal(object)
	if err != nil {
		t.Fatalf("failed to marshal object: %v", err)
	}
	return activity.Activity{
		ID:     id,
		Type:   "Update",
		Actor:  actorURL,
		Object: json.RawMessage(payload),
	}
}

func seedPersonActor(t *testing.T, db *gorm.DB, url string) *replica.Actor {
	t.Helper()
	actor := replica.Actor{
		URL:               url,
		Type:              "Person",
		PreferredUsername: "alice",
		Name:              "Alice",
		Summary:           "old summary",
		Account:           &replica.Account{Name: "Alice", Description: "old description"},
	}
	if err := db.Create(&actor).Error; err != nil {
		t.Fatalf("failed to seed person actor: %v", err)
	}
	return &actor
}

func seedGroupActor(t *testing.T, db *gorm.DB, url string) *replica.Actor {
	t.Helper()
	actor := replica.Actor{
		URL:               url,
		Type:              "Group",
		PreferredUsername: "tech",
		Name:              "Tech",
		Summary:           "old summary",
		Channel:           &replica.Channel{Name: "Tech", Description: "old description", Support: "old"},
	}
	if err := db.Create(&actor).Error; err != nil {
		t.Fatalf("failed to seed group actor: %v", err)
	}
	return &actor
}

func seedVideo(t *testing.T, db *gorm.DB, url string, local bool) *replica.Video {
	t.Helper()
	video := replica.Video{
		URL:     url,
		UUID:    "c6dcbf42-16e1-44bf-a609-bbbb0f4da3f9",
		Name:    "stored name",
		Privacy: replica.PrivacyPrivate,
		Local:   local,
	}
	if err := db.Create(&video).Error; err != nil {
		t.Fatalf("failed to seed video: %v", err)
	}
	return &video
}

// installFailingTrigger makes the next UPDATE against the table abort, which
// stands in for a write failing partway through a reconciliation.
func installFailingTrigger(t *testing.T, db *gorm.DB, name, table string) {
	t.Helper()
	stmt := fmt.Sprintf(
		"CREATE TRIGGER %s BEFORE UPDATE ON %s BEGIN SELECT RAISE(ABORT, 'injected write failure'); END;",
		name, table)
	if err := db.Exec(stmt).Error; err != nil {
		t.Fatalf("failed to install trigger: %v", err)
	}
}
