package feed

import (
	"context"
	"time"

	"boorubot/internal/media"

	"github.com/jfk9w-go/telegram-bot-api/ext/receiver"
)

// Refresh accumulates updates produced by a single vendor refresh pass.
// Init unmarshals the stored subscription state, Submit queues one update
// together with the state to persist once the update is delivered.
type Refresh interface {
	Init(ctx context.Context, data any) error
	Submit(ctx context.Context, writeHTML WriteHTML, data any) error
}

type Vendor interface {
	String() string
	Parse(ctx context.Context, ref string, options []string) (*Draft, error)
	Refresh(ctx context.Context, header Header, queue Refresh) error
}

type BeforeResumeListener interface {
	Vendor
	BeforeResume(ctx context.Context, header Header) error
}

type AfterStateListener interface {
	AfterResume(ctx context.Context, sub *Subscription) error
	AfterSuspend(ctx context.Context, sub *Subscription) error
	AfterDelete(ctx context.Context, sub *Subscription) error
	AfterClear(ctx context.Context, feedID ID, pattern string, deleted int64) error
}

type Poller interface {
	Subscribe(ctx context.Context, feedID ID, ref string, options []string) error
	Suspend(ctx context.Context, header Header, err error) error
	Resume(ctx context.Context, header Header) error
	Delete(ctx context.Context, header Header) error
	Clear(ctx context.Context, feedID ID, pattern string) error
}

type Tx interface {
	GetSubscription(header Header) (*Subscription, error)
	DeleteSubscription(header Header) error
	UpdateSubscription(header Header, value any) error
}

type Storage interface {
	Tx(ctx context.Context, tx func(tx Tx) error) error
	GetActiveFeedIDs(ctx context.Context) ([]ID, error)
	GetSubscription(ctx context.Context, header Header) (*Subscription, error)
	CreateSubscription(ctx context.Context, sub *Subscription) error
	ShiftSubscription(ctx context.Context, feedID ID) (*Subscription, error)
	ListSubscriptions(ctx context.Context, feedID ID, active bool) ([]Subscription, error)
	DeleteAllSubscriptions(ctx context.Context, feedID ID, pattern string) (int64, error)
	UpdateSubscription(ctx context.Context, header Header, value any) error
}

type EventStorage interface {
	SaveEvent(ctx context.Context, feedID ID, eventType string, value any) error
	CountEvents(ctx context.Context, feedID ID, since time.Time) (map[string]int64, error)
}

type MediaHashStorage interface {
	IsMediaUnique(ctx context.Context, hash *MediaHash) (bool, error)
}

type TaskExecutor interface {
	Submit(id any, task Task)
}

// Mediator turns a remote post file into a deliverable media reference.
// The returned ref resolves in the background; md5 is the site-reported
// content hash, empty if the site does not expose one, and dedupKey enables
// repost suppression scoped to that feed.
type Mediator interface {
	Mediate(ctx context.Context, file media.Remote, md5 string, dedupKey *ID) receiver.MediaRef
}
