// Package compat decides whether a file can be delivered to Telegram and
// transforms it until it can. Each media kind has its own policy; policies
// delegate to each other as subroutines (video falls back to document,
// animation rides on video) instead of inheriting behavior.
package compat

import (
	"context"
	"image"

	"boorubot/internal/media"

	"github.com/jfk9w-go/flu"
	telegram "github.com/jfk9w-go/telegram-bot-api"
)

// Policy is the shared decision contract. A nil descriptor in the result
// means the file cannot be made compatible with the returned kind under any
// strategy; err is reserved for infrastructure failures (network, codec
// invocation), never for expected rejections. A non-nil result descriptor
// always fits the upload ceiling of the kind it is returned with, and the
// caller's descriptor is never mutated.
type Policy interface {
	MakeCompatible(ctx context.Context, file media.Descriptor, forceDownload bool) (media.Descriptor, telegram.MediaType, error)
}

// Transcoder is the video backend capability consumed by the video and
// animation policies. Implemented by backend.FFmpeg and remote converters.
type Transcoder interface {
	Faststart(ctx context.Context, in flu.Input) (flu.Bytes, error)
	TranscodeH264(ctx context.Context, in flu.Input) (flu.Bytes, error)
	StripAudio(ctx context.Context, in flu.Input) (flu.Bytes, error)
	FirstFrame(ctx context.Context, in flu.Input) (flu.Bytes, error)
}

// ImageCodec is the image backend capability consumed by the image policy.
// Implemented by backend.ImageCodec.
type ImageCodec interface {
	Decode(in flu.Input) (image.Image, error)
	Geometry(in flu.Input) (width, height int, err error)
	Flatten(img image.Image) image.Image
	Resize(img image.Image, ratio float64) image.Image
	Encode(img image.Image, ext string) (flu.Bytes, error)
}

// Dispatcher routes a descriptor to the policy matching its media kind.
// It holds no state and performs no I/O of its own.
type Dispatcher struct {
	Image     Policy
	Video     Policy
	Animation Policy
	Document  Policy
}

// NewDispatcher wires the four policies over the provided backends.
func NewDispatcher(transcoder Transcoder, codec ImageCodec) *Dispatcher {
	document := DocumentPolicy{}
	video := &VideoPolicy{Document: document, Transcoder: transcoder}
	return &Dispatcher{
		Image:     &ImagePolicy{Codec: codec},
		Video:     video,
		Animation: &AnimationPolicy{Video: video, Transcoder: transcoder},
		Document:  document,
	}
}

func (d *Dispatcher) MakeCompatible(ctx context.Context, file media.Descriptor, forceDownload bool) (media.Descriptor, telegram.MediaType, error) {
	switch file.FileMeta().Kind() {
	case media.KindImage:
		return d.Image.MakeCompatible(ctx, file, forceDownload)
	case media.KindVideo:
		return d.Video.MakeCompatible(ctx, file, forceDownload)
	case media.KindAnimation:
		return d.Animation.MakeCompatible(ctx, file, forceDownload)
	default:
		return d.Document.MakeCompatible(ctx, file, forceDownload)
	}
}

// oversized reports whether the file exceeds the ceilings of the given kind:
// the upload ceiling always, and additionally the URL ceiling while the file
// is still remote (Telegram fetches remote files itself and enforces the
// lower limit).
func oversized(file media.Descriptor, kind telegram.MediaType) bool {
	meta := file.FileMeta()
	if meta.Size > kind.AttachMaxSize() {
		return true
	}

	if _, ok := file.(*media.Remote); ok && meta.Size > kind.RemoteMaxSize() {
		return true
	}

	return false
}
