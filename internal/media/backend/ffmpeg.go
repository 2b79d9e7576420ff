// Package backend wraps the external capabilities the compatibility engine
// orchestrates: ffmpeg/ffprobe process invocations and the image codec.
package backend

import (
	"context"
	"os"

	"github.com/jfk9w-go/flu"
	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// FFmpeg invokes ffmpeg with input on stdin and output into a temporary
// file, since the mp4 muxer requires seekable output. Every call spawns one
// process and reads its output to completion; there is no streaming
// transcode. A failed or empty result is reported to the caller, which must
// check for emptiness.
type FFmpeg struct{}

func (f FFmpeg) String() string {
	return "backend.ffmpeg"
}

func (f FFmpeg) run(in flu.Input, args ffmpeg.KwArgs) (flu.Bytes, error) {
	reader, err := in.Reader()
	if err != nil {
		return nil, errors.Wrap(err, "open input")
	}

	defer flu.CloseQuietly(reader)
	tmp, err := os.CreateTemp("", "ffmpeg-*.out")
	if err != nil {
		return nil, errors.Wrap(err, "create output file")
	}

	defer os.Remove(tmp.Name())
	flu.CloseQuietly(tmp)

	if err := ffmpeg.Input("pipe:0").
		Output(tmp.Name(), args).
		WithInput(reader).
		OverWriteOutput().
		Run(); err != nil {
		return nil, errors.Wrap(err, "ffmpeg")
	}

	out, err := os.ReadFile(tmp.Name())
	if err != nil {
		return nil, errors.Wrap(err, "read output")
	}

	return out, nil
}

// Faststart remuxes an mp4-family container, relocating metadata to the
// front for progressive playback. Streams are copied, not re-encoded.
func (f FFmpeg) Faststart(_ context.Context, in flu.Input) (flu.Bytes, error) {
	return f.run(in, ffmpeg.KwArgs{
		"c":        "copy",
		"movflags": "+faststart",
		"f":        "mp4",
	})
}

// TranscodeH264 re-encodes any video into H.264 in an mp4 container.
// Odd dimensions break some encoders, so the scale filter forces them even;
// yuv420p is the pixel format every player understands.
func (f FFmpeg) TranscodeH264(_ context.Context, in flu.Input) (flu.Bytes, error) {
	return f.run(in, ffmpeg.KwArgs{
		"vf":       "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"c:v":      "libx264",
		"pix_fmt":  "yuv420p",
		"movflags": "+faststart",
		"f":        "mp4",
	})
}

// StripAudio drops all audio streams, copying the video stream as is.
func (f FFmpeg) StripAudio(_ context.Context, in flu.Input) (flu.Bytes, error) {
	return f.run(in, ffmpeg.KwArgs{
		"map":      "0:v:0",
		"c:v":      "copy",
		"movflags": "+faststart",
		"f":        "mp4",
	})
}

// FirstFrame extracts the first decodable video frame as a JPEG image.
func (f FFmpeg) FirstFrame(_ context.Context, in flu.Input) (flu.Bytes, error) {
	return f.run(in, ffmpeg.KwArgs{
		"frames:v": 1,
		"c:v":      "mjpeg",
		"f":        "image2",
	})
}
