package compat

import (
	"context"

	"boorubot/internal/media"

	"github.com/jfk9w-go/flu/logf"
	telegram "github.com/jfk9w-go/telegram-bot-api"
)

// AnimationPolicy rides on the video policy, since Telegram animations are
// soundless MP4s underneath. A still frame is no substitute for an
// animation, so any outcome other than a playable video is a rejection.
type AnimationPolicy struct {
	Video      *VideoPolicy
	Transcoder Transcoder
}

func (p *AnimationPolicy) String() string {
	return "compat.animation"
}

func (p *AnimationPolicy) MakeCompatible(ctx context.Context, file media.Descriptor, forceDownload bool) (media.Descriptor, telegram.MediaType, error) {
	resolved, kind, err := p.Video.MakeCompatible(ctx, file, forceDownload)
	if err != nil {
		return nil, telegram.Animation, err
	}

	if resolved == nil || kind != telegram.Video {
		return nil, telegram.Animation, nil
	}

	if remote, ok := resolved.(*media.Remote); ok {
		return remote, telegram.Animation, nil
	}

	blob := resolved.(*media.Blob)
	body, err := p.Transcoder.StripAudio(ctx, blob.Body)
	if err != nil || len(body) == 0 {
		logf.Get(p).Warnf(ctx, "strip audio [%s]: %v", blob.Name, err)
		return nil, telegram.Animation, nil
	}

	meta := blob.Meta
	meta.Size = int64(len(body))
	return &media.Blob{Meta: meta, Body: body}, telegram.Animation, nil
}
