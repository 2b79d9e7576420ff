package converters

import (
	"context"
	"net/http"

	aconvert "github.com/jfk9w-go/aconvert-api"
	"github.com/jfk9w-go/flu"
	"github.com/jfk9w-go/flu/apfel"
	"github.com/jfk9w-go/flu/httpf"
	"github.com/jfk9w-go/flu/logf"
	"github.com/pkg/errors"
)

// Aconvert converts videos via aconvert.com, covering setups without a
// local ffmpeg. The service re-encodes rather than remuxes, so Faststart
// degenerates into a full transcode; audio stripping and frame extraction
// are not supported and always fail, letting another chain member handle
// them.
type Aconvert[C aconvert.Context] struct {
	*aconvert.Client[C]
}

func (c Aconvert[C]) String() string {
	return "converters.aconvert"
}

func (c *Aconvert[C]) Include(ctx context.Context, app apfel.MixinApp[C]) error {
	var client aconvert.Client[C]
	if err := app.Use(ctx, &client, false); err != nil {
		return err
	}

	c.Client = &client
	return nil
}

func (c *Aconvert[C]) Faststart(ctx context.Context, in flu.Input) (flu.Bytes, error) {
	return c.TranscodeH264(ctx, in)
}

func (c *Aconvert[C]) TranscodeH264(ctx context.Context, in flu.Input) (flu.Bytes, error) {
	resp, err := c.Client.Convert(ctx, in, make(aconvert.Options).TargetFormat("mp4"))
	logf.Get(c).Resultf(ctx, logf.Debug, logf.Warn, "convert %s: %v", flu.Readable(in), err)
	if err != nil {
		return nil, err
	}

	var buf flu.ByteBuffer
	if err := httpf.GET(resp.URL()).
		Exchange(ctx, c.Client).
		CheckStatus(http.StatusOK).
		CopyBody(&buf).
		Error(); err != nil {
		return nil, errors.Wrap(err, "download result")
	}

	return buf.Bytes(), nil
}

func (c *Aconvert[C]) StripAudio(ctx context.Context, in flu.Input) (flu.Bytes, error) {
	return nil, errors.New("strip audio is not supported")
}

func (c *Aconvert[C]) FirstFrame(ctx context.Context, in flu.Input) (flu.Bytes, error) {
	return nil, errors.New("frame extraction is not supported")
}
