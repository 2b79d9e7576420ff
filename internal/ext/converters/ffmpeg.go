package converters

import (
	"context"

	"boorubot/internal/media/backend"

	"github.com/jfk9w-go/flu/apfel"
)

// FFmpeg exposes the local ffmpeg backend as a registrable transcoder.
type FFmpeg[C any] struct {
	backend.FFmpeg
}

func (c FFmpeg[C]) String() string {
	return "converters.ffmpeg"
}

func (c *FFmpeg[C]) Include(ctx context.Context, app apfel.MixinApp[C]) error {
	return nil
}
