package storage

import (
	"context"
	"time"

	"boorubot/internal/feed"

	"github.com/jfk9w-go/flu/gormf"
	"github.com/jfk9w-go/flu/syncf"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const ServiceID = "core.storage"

type SQL struct {
	Clock syncf.Clock
	DB    *gorm.DB
}

func (s *SQL) GetActiveFeedIDs(ctx context.Context) ([]feed.ID, error) {
	feedIDs := make([]feed.ID, 0)
	return feedIDs, s.DB.WithContext(ctx).
		Model(new(feed.Subscription)).
		Where("error is null").
		Select("distinct feed_id").
		Scan(&feedIDs).
		Error
}

func (s *SQL) GetSubscription(ctx context.Context, header feed.Header) (*feed.Subscription, error) {
	return (&sqlTx{db: s.DB.WithContext(ctx)}).GetSubscription(header)
}

func (s *SQL) CreateSubscription(ctx context.Context, sub *feed.Subscription) error {
	tx := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit("updated_at").
		Create(sub)
	if tx.Error == nil && tx.RowsAffected < 1 {
		return feed.ErrExists
	}

	return tx.Error
}

func (s *SQL) ShiftSubscription(ctx context.Context, feedID feed.ID) (*feed.Subscription, error) {
	var sub feed.Subscription
	err := s.DB.WithContext(ctx).
		Where("feed_id = ? and error is null", feedID).
		Order("updated_at asc nulls first").
		First(&sub).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, feed.ErrNotFound
	}

	return &sub, err
}

func (s *SQL) ListSubscriptions(ctx context.Context, feedID feed.ID, active bool) ([]feed.Subscription, error) {
	var subs []feed.Subscription
	return subs, s.DB.WithContext(ctx).
		Where("feed_id = ? and (error is null) = ?", feedID, active).
		Find(&subs).
		Error
}

func (s *SQL) DeleteAllSubscriptions(ctx context.Context, feedID feed.ID, errorLike string) (int64, error) {
	tx := s.DB.WithContext(ctx).
		Delete(new(feed.Subscription), "feed_id = ? and error like ?", feedID, errorLike)
	return tx.RowsAffected, tx.Error
}

func (s *SQL) UpdateSubscription(ctx context.Context, header feed.Header, value any) error {
	tx := &sqlTx{
		clock: s.Clock,
		db:    s.DB.WithContext(ctx),
	}

	return tx.UpdateSubscription(header, value)
}

func (s *SQL) Tx(ctx context.Context, body func(tx feed.Tx) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return body(&sqlTx{clock: s.Clock, db: tx})
	})
}

func (s *SQL) SaveEvent(ctx context.Context, feedID feed.ID, eventType string, value any) error {
	data, err := gormf.ToJSONB(value)
	if err != nil {
		return err
	}

	event := &feed.Event{
		Time:   s.Clock.Now(),
		Type:   eventType,
		FeedID: feedID,
		Data:   data,
	}

	return s.DB.WithContext(ctx).Create(event).Error
}

func (s *SQL) CountEvents(ctx context.Context, feedID feed.ID, since time.Time) (map[string]int64, error) {
	var rows []struct {
		Type   string
		Events int64
	}

	if err := s.DB.WithContext(ctx).
		Model(new(feed.Event)).
		Where("feed_id = ? and time >= ?", feedID, since).
		Select("type, count(1) as events").
		Group("type").
		Scan(&rows).
		Error; err != nil {
		return nil, err
	}

	stats := make(map[string]int64)
	for _, row := range rows {
		stats[row.Type] = row.Events
	}

	return stats, nil
}

func (s *SQL) IsMediaUnique(ctx context.Context, hash *feed.MediaHash) (bool, error) {
	update := clause.Set{
		clause.Assignment{Column: clause.Column{Name: "collisions"}, Value: gorm.Expr("media_hash.collisions + 1")},
		clause.Assignment{Column: clause.Column{Name: "url"}, Value: hash.URL},
		clause.Assignment{Column: clause.Column{Name: "hash_type"}, Value: hash.Type},
		clause.Assignment{Column: clause.Column{Name: "hash"}, Value: hash.Value},
		clause.Assignment{Column: clause.Column{Name: "last_seen"}, Value: hash.LastSeen},
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(gormf.OnConflictClause(hash, "primaryKey", false, update)).
			Create(hash).
			Error; err != nil {
			return errors.Wrap(err, "create")
		}

		if err := tx.First(hash).Error; err != nil {
			return errors.Wrap(err, "find")
		}

		return nil
	})

	return err == nil && hash.Collisions == 0, err
}

type sqlTx struct {
	clock syncf.Clock
	db    *gorm.DB
}

func (stx *sqlTx) GetSubscription(header feed.Header) (*feed.Subscription, error) {
	var sub feed.Subscription
	err := stx.db.
		Where("lower(sub_id) = lower(?) and vendor = ? and feed_id = ?", header.SubID, header.Vendor, header.FeedID).
		First(&sub).
		Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, feed.ErrNotFound
	}

	return &sub, err
}

func (stx *sqlTx) DeleteSubscription(header feed.Header) error {
	tx := stx.db.Delete(&feed.Subscription{Header: header})
	if tx.Error == nil && tx.RowsAffected < 1 {
		return feed.ErrNotFound
	}

	return tx.Error
}

func (stx *sqlTx) UpdateSubscription(header feed.Header, value any) error {
	tx := stx.db.
		Model(new(feed.Subscription)).
		Where("sub_id = ? and vendor = ? and feed_id = ?",
			header.SubID, header.Vendor, header.FeedID)

	updates := make(map[string]any)
	updates["updated_at"] = stx.clock.Now()
	switch value := value.(type) {
	case nil:
		tx = tx.Where("error is not null")
		updates["error"] = nil
	case gormf.JSONB:
		tx = tx.Where("error is null")
		updates["data"] = value
	case error:
		tx = tx.Where("error is null")
		updates["error"] = value.Error()
	default:
		return errors.Errorf("invalid update value type: %T", value)
	}

	tx = tx.UpdateColumns(updates)
	if tx.Error == nil && tx.RowsAffected < 1 {
		return feed.ErrNotFound
	}

	return tx.Error
}
