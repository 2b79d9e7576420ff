package compat

import (
	"context"
	"io"

	"boorubot/internal/media"

	"github.com/jfk9w-go/flu"
	"github.com/jfk9w-go/flu/logf"
	telegram "github.com/jfk9w-go/telegram-bot-api"
)

const (
	// stillFrameChunkSize is the window growth step when extracting a frame
	// from a partially downloaded remote video.
	stillFrameChunkSize = 1 << 20

	maxStillFrameAttempts = 8
)

// VideoPolicy prepares videos for inline playback. Containers Telegram will
// not stream by URL are downloaded first, playable files are remuxed with
// the moov atom up front, everything else is transcoded to H.264. Videos too
// large even for a document degrade to a still frame delivered as a photo.
type VideoPolicy struct {
	Document   DocumentPolicy
	Transcoder Transcoder
}

func (p *VideoPolicy) String() string {
	return "compat.video"
}

func (p *VideoPolicy) MakeCompatible(ctx context.Context, file media.Descriptor, forceDownload bool) (media.Descriptor, telegram.MediaType, error) {
	switch file.FileMeta().Ext() {
	case "mkv", "webm":
		forceDownload = true
	}

	resolved, _, err := p.Document.MakeCompatible(ctx, file, forceDownload)
	if err != nil {
		return nil, telegram.Video, err
	}

	if resolved == nil {
		return p.degradeToStillFrame(ctx, file)
	}

	if remote, ok := resolved.(*media.Remote); ok {
		return remote, telegram.Video, nil
	}

	blob := resolved.(*media.Blob)
	var body flu.Bytes
	switch blob.Ext() {
	case "mp4", "mkv":
		body, err = p.Transcoder.Faststart(ctx, blob.Body)
	default:
		body, err = p.Transcoder.TranscodeH264(ctx, blob.Body)
	}

	if err != nil || len(body) == 0 {
		logf.Get(p).Warnf(ctx, "transcode [%s]: %v", blob.Name, err)
		return nil, telegram.Video, nil
	}

	meta := blob.Meta.WithExt("mp4")
	meta.Size = int64(len(body))
	if meta.Size > telegram.Video.AttachMaxSize() {
		return p.degradeToStillFrame(ctx, file)
	}

	return &media.Blob{Meta: meta, Body: body}, telegram.Video, nil
}

// degradeToStillFrame extracts the first video frame and returns it as a
// photo. For remote files the frame is cut from a growing prefix of the
// download, retrying with a larger window while the container headers are
// still incomplete.
func (p *VideoPolicy) degradeToStillFrame(ctx context.Context, file media.Descriptor) (media.Descriptor, telegram.MediaType, error) {
	meta := file.FileMeta()
	var frame flu.Bytes
	switch file := file.(type) {
	case *media.Blob:
		var err error
		frame, err = p.Transcoder.FirstFrame(ctx, file.Body)
		if err != nil || len(frame) == 0 {
			logf.Get(p).Warnf(ctx, "still frame [%s]: %v", meta.Name, err)
			return nil, telegram.Video, nil
		}

	case *media.Remote:
		chunks, err := file.Downloader.Chunks(ctx, file.URL, stillFrameChunkSize)
		if err != nil {
			return nil, telegram.Video, err
		}
		defer chunks.Close()

		for attempt := 0; attempt < maxStillFrameAttempts; attempt++ {
			window, err := chunks.Next(ctx)
			if err == io.EOF {
				break
			} else if err != nil {
				return nil, telegram.Video, err
			}

			frame, err = p.Transcoder.FirstFrame(ctx, window)
			if err == nil && len(frame) > 0 {
				break
			}

			frame = nil
		}

		if len(frame) == 0 {
			logf.Get(p).Warnf(ctx, "still frame [%s]: no frame in first %d bytes", meta.Name, maxStillFrameAttempts*stillFrameChunkSize)
			return nil, telegram.Video, nil
		}

	default:
		return nil, telegram.Video, nil
	}

	logf.Get(p).Debugf(ctx, "degraded [%s] to still frame", meta.Name)
	frameMeta := meta.WithExt("jpg")
	frameMeta.Size = int64(len(frame))
	return &media.Blob{Meta: frameMeta, Body: frame}, telegram.Photo, nil
}
