package feed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jfk9w-go/flu/gormf"
	"github.com/jfk9w-go/flu/me3x"
	"github.com/jfk9w-go/telegram-bot-api/ext/html"
	"gopkg.in/guregu/null.v3"
)

// ID is the target chat ID a feed delivers to.
type ID int64

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Header identifies a subscription: a tag query on a given imageboard
// delivered to a given feed.
type Header struct {
	SubID  string `gorm:"primaryKey;column:sub_id"`
	Vendor string `gorm:"primaryKey"`
	FeedID ID     `gorm:"primaryKey"`
}

func (h Header) Labels() me3x.Labels {
	return make(me3x.Labels, 0, 3).
		Add("sub_id", h.SubID).
		Add("vendor", h.Vendor).
		Add("feed_id", h.FeedID)
}

func (h Header) String() string {
	return fmt.Sprintf("%d.%s.%s", h.FeedID, h.Vendor, h.SubID)
}

type Subscription struct {
	Header    `gorm:"embedded"`
	Name      string `gorm:"not null"`
	Data      gormf.JSONB
	UpdatedAt *time.Time
	Error     null.String
}

func (s *Subscription) TableName() string {
	return "feed"
}

// Draft is a parsed but not yet persisted subscription.
type Draft struct {
	SubID string
	Name  string
	Data  any
}

type Event struct {
	Time   time.Time `gorm:"not null;index"`
	Type   string    `gorm:"not null;index:idx_event"`
	FeedID ID        `gorm:"not null;index:idx_event"`
	Data   gormf.JSONB
}

func (e *Event) TableName() string {
	return "event"
}

type WriteHTML func(html *html.Writer) error

type Task func(context.Context) error

// MediaHash is a per-feed media fingerprint used to skip reposts. Value is
// either a perceptual difference hash for images or an md5 of the content.
type MediaHash struct {
	FeedID     ID        `gorm:"primaryKey"`
	URL        string    `gorm:"not null"`
	Type       string    `gorm:"primaryKey;column:hash_type"`
	Value      string    `gorm:"primaryKey;column:hash"`
	FirstSeen  time.Time `gorm:"not null"`
	LastSeen   time.Time `gorm:"not null"`
	Collisions int64     `gorm:"not null"`
}

func (h *MediaHash) TableName() string {
	return "media_hash"
}
