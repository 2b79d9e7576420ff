package mediator

import (
	"context"
	"mime"
	"sync"
	"time"

	"boorubot/internal/feed"
	"boorubot/internal/media"
	"boorubot/internal/media/backend"
	"boorubot/internal/media/compat"

	"github.com/jfk9w-go/flu"
	"github.com/jfk9w-go/flu/logf"
	"github.com/jfk9w-go/flu/me3x"
	"github.com/jfk9w-go/flu/syncf"
	telegram "github.com/jfk9w-go/telegram-bot-api"
	"github.com/jfk9w-go/telegram-bot-api/ext/receiver"
	"github.com/pkg/errors"
)

const ServiceID = "core.mediator"

var errDuplicate = errors.New("duplicate")

type Impl struct {
	Clock      syncf.Clock
	Storage    feed.MediaHashStorage
	Downloader media.Downloader
	Metrics    me3x.Registry
	Locker     syncf.Locker
	Timeout    time.Duration

	transcoders compat.Transcoders
	dispatcher  *compat.Dispatcher
	ctx         context.Context
	cancel      func()
	work        syncf.WaitGroup
	once        sync.Once
}

func (m *Impl) String() string {
	return ServiceID
}

func (m *Impl) init() {
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.dispatcher = compat.NewDispatcher(m.transcoders, backend.ImageCodec{})
}

// RegisterTranscoder appends a video backend to the fallback chain. Must be
// called before the first Mediate.
func (m *Impl) RegisterTranscoder(transcoder compat.Transcoder) {
	m.transcoders = append(m.transcoders, transcoder)
}

func (m *Impl) Mediate(ctx context.Context, file media.Remote, md5 string, dedupKey *feed.ID) receiver.MediaRef {
	m.once.Do(m.init)
	if file.Downloader == nil {
		file.Downloader = m.Downloader
	}

	return syncf.AsyncWith[*receiver.Media](m.ctx, m.work.Spawn, func(ctx context.Context) (*receiver.Media, error) {
		ctx, cancel := m.Locker.Lock(ctx)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		defer cancel()
		ctx, cancelTimeout := context.WithTimeout(ctx, m.Timeout)
		defer cancelTimeout()

		logf.Get(m).Tracef(ctx, "mediating [%s]", file.URL)
		startTime := m.Clock.Now()
		result, err := m.mediate(ctx, file, md5, dedupKey)
		logf.Get(m).Resultf(ctx, logf.Debug, logf.Warn,
			"mediated [%s] in %s: %v", file.URL, m.Clock.Now().Sub(startTime), err)

		m.incrementCounter(&file, dedupKey, err)
		if errors.Is(err, errDuplicate) {
			return nil, nil
		}

		return result, err
	})
}

func (m *Impl) mediate(ctx context.Context, file media.Remote, md5 string, dedupKey *feed.ID) (*receiver.Media, error) {
	var desc media.Descriptor = &file
	if dedupKey != nil {
		unique, measured, err := m.dedup(ctx, &file, md5, *dedupKey)
		if err != nil {
			return nil, err
		}

		if !unique {
			return nil, errDuplicate
		}

		if measured != nil {
			desc = measured
		}
	}

	resolved, kind, err := m.dispatcher.MakeCompatible(ctx, desc, false)
	if err != nil {
		return nil, err
	}

	if resolved == nil {
		return nil, errors.Errorf("no compatible representation as %s", kind)
	}

	switch resolved := resolved.(type) {
	case *media.Blob:
		return &receiver.Media{
			MIMEType: mimeTypeOf(kind, resolved.Ext()),
			Input:    resolved.Body,
		}, nil
	case *media.Remote:
		return &receiver.Media{
			MIMEType: mimeTypeOf(kind, resolved.Ext()),
			Input:    flu.URL(resolved.URL),
		}, nil
	default:
		return nil, errors.Errorf("unexpected descriptor %T", resolved)
	}
}

// dedup fingerprints the file and checks the per-feed hash storage. The
// site-reported md5 is preferred; without one the file is downloaded and
// hashed locally, and the downloaded blob is returned for reuse so the
// compatibility check does not fetch it again.
func (m *Impl) dedup(ctx context.Context, file *media.Remote, md5 string, dedupKey feed.ID) (bool, *media.Blob, error) {
	now := m.Clock.Now()
	hash := &feed.MediaHash{
		FeedID:    dedupKey,
		URL:       file.URL,
		FirstSeen: now,
		LastSeen:  now,
	}

	var blob *media.Blob
	if md5 != "" {
		hash.Type = "md5"
		hash.Value = md5
	} else {
		var err error
		blob, err = media.Materialize(ctx, file)
		if err != nil {
			return false, nil, err
		}

		if readImage, ok := imageExts[blob.Ext()]; ok {
			err = hashImage(blob.Body, hash, readImage)
		} else {
			err = hashAny(blob.Body, hash)
		}

		logf.Get(m).Resultf(ctx, logf.Debug, logf.Warn, "hash media [%s => %s]: %v", hash.URL, hash.Value, err)
		if err != nil {
			return false, nil, err
		}
	}

	unique, err := m.Storage.IsMediaUnique(ctx, hash)
	return unique, blob, err
}

func (m *Impl) incrementCounter(file *media.Remote, dedupKey *feed.ID, err error) {
	switch {
	case errors.Is(err, errDuplicate):
		labels := make(me3x.Labels, 0, 1).
			Add("feed_id", *dedupKey)
		m.Metrics.Counter("duplicate", labels).Inc()
	case err != nil:
		labels := make(me3x.Labels, 0, 1).
			Add("ext", file.Ext())
		m.Metrics.Counter("failed", labels).Inc()
	default:
		labels := make(me3x.Labels, 0, 1).
			Add("ext", file.Ext())
		m.Metrics.Counter("ok", labels).Inc()
	}
}

// mimeTypeOf picks the MIME type matching the delivery kind decided by the
// compatibility engine. The receiver maps it back via
// telegram.MediaTypeByMIMEType, so the values must round-trip: in
// particular image/gif is the only type mapped to Animation even though the
// payload is a soundless MP4.
func mimeTypeOf(kind telegram.MediaType, ext string) string {
	switch kind {
	case telegram.Photo:
		if ext == "png" {
			return "image/png"
		}

		return "image/jpeg"
	case telegram.Video:
		return "video/mp4"
	case telegram.Animation:
		return "image/gif"
	default:
		if mimeType := mime.TypeByExtension("." + ext); mimeType != "" {
			return mimeType
		}

		return "application/octet-stream"
	}
}

func (m *Impl) Close() error {
	if m.cancel != nil {
		m.cancel()
		m.work.Wait()
	}

	return nil
}
