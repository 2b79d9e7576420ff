package compat

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"io"
	"testing"

	"boorubot/internal/media"

	"github.com/jfk9w-go/flu"
	telegram "github.com/jfk9w-go/telegram-bot-api"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type fakeDownloader struct {
	body  flu.Bytes
	err   error
	calls int
}

func (d *fakeDownloader) Download(ctx context.Context, url string) (flu.Bytes, error) {
	d.calls++
	return d.body, d.err
}

func (d *fakeDownloader) Chunks(ctx context.Context, url string, chunkSize int64) (*media.ChunkReader, error) {
	if d.err != nil {
		return nil, d.err
	}

	return media.NewChunkReader(bytes.NewReader(d.body), chunkSize), nil
}

type stubTranscoder struct {
	faststart, transcode, strip, frame flu.Bytes
	err                                error
	frameMinBytes                      int
	calls                              []string
}

func (s *stubTranscoder) Faststart(_ context.Context, in flu.Input) (flu.Bytes, error) {
	s.calls = append(s.calls, "faststart")
	return s.faststart, s.err
}

func (s *stubTranscoder) TranscodeH264(_ context.Context, in flu.Input) (flu.Bytes, error) {
	s.calls = append(s.calls, "transcode")
	return s.transcode, s.err
}

func (s *stubTranscoder) StripAudio(_ context.Context, in flu.Input) (flu.Bytes, error) {
	s.calls = append(s.calls, "strip")
	return s.strip, s.err
}

func (s *stubTranscoder) FirstFrame(_ context.Context, in flu.Input) (flu.Bytes, error) {
	s.calls = append(s.calls, "frame")
	if s.err != nil {
		return nil, s.err
	}

	if inputLen(in) < s.frameMinBytes {
		return nil, errors.New("moov atom not found")
	}

	return s.frame, nil
}

func inputLen(in flu.Input) int {
	reader, err := in.Reader()
	if err != nil {
		return 0
	}

	data, _ := io.ReadAll(reader)
	return len(data)
}

// boundsImage carries geometry without backing pixels so tests can describe
// huge images cheaply.
type boundsImage image.Rectangle

func (i boundsImage) ColorModel() color.Model { return color.NRGBAModel }
func (i boundsImage) Bounds() image.Rectangle { return image.Rectangle(i) }
func (i boundsImage) At(x, y int) color.Color { return color.NRGBA{} }

func sized(width, height int) image.Image {
	return boundsImage(image.Rect(0, 0, width, height))
}

type stubCodec struct {
	img        image.Image
	encoded    flu.Bytes
	flattened  bool
	encodeExts []string
	resizes    int
}

func (s *stubCodec) Decode(in flu.Input) (image.Image, error) {
	return s.img, nil
}

func (s *stubCodec) Geometry(in flu.Input) (width, height int, err error) {
	bounds := s.img.Bounds()
	return bounds.Dx(), bounds.Dy(), nil
}

func (s *stubCodec) Flatten(img image.Image) image.Image {
	s.flattened = true
	return img
}

func (s *stubCodec) Resize(img image.Image, ratio float64) image.Image {
	s.resizes++
	bounds := img.Bounds()
	return sized(int(float64(bounds.Dx())*ratio), int(float64(bounds.Dy())*ratio))
}

func (s *stubCodec) Encode(img image.Image, ext string) (flu.Bytes, error) {
	s.encodeExts = append(s.encodeExts, ext)
	return s.encoded, nil
}

func blobOf(name string, size int64, width, height int) *media.Blob {
	return &media.Blob{
		Meta: media.Meta{Name: name, Size: size, Width: width, Height: height},
		Body: flu.Bytes(make([]byte, 1)),
	}
}

func remoteOf(name string, size int64, downloader media.Downloader) *media.Remote {
	return &media.Remote{
		Meta:       media.Meta{Name: name, Size: size},
		URL:        "http://example.com/" + name,
		Downloader: downloader,
	}
}

func TestDocumentPolicy_PassThrough(t *testing.T) {
	file := blobOf("a.bin", 1<<10, 0, 0)
	resolved, kind, err := DocumentPolicy{}.MakeCompatible(context.Background(), file, false)
	assert.NoError(t, err)
	assert.Equal(t, telegram.Document, kind)
	assert.Same(t, media.Descriptor(file), resolved)
}

func TestDocumentPolicy_RejectsOversized(t *testing.T) {
	file := blobOf("a.bin", telegram.Document.AttachMaxSize()+1, 0, 0)
	resolved, kind, err := DocumentPolicy{}.MakeCompatible(context.Background(), file, false)
	assert.NoError(t, err)
	assert.Equal(t, telegram.Document, kind)
	assert.Nil(t, resolved)
}

func TestDocumentPolicy_KeepsSmallRemote(t *testing.T) {
	downloader := new(fakeDownloader)
	file := remoteOf("a.bin", 1<<10, downloader)
	resolved, kind, err := DocumentPolicy{}.MakeCompatible(context.Background(), file, false)
	assert.NoError(t, err)
	assert.Equal(t, telegram.Document, kind)
	assert.Same(t, media.Descriptor(file), resolved)
	assert.Zero(t, downloader.calls)
}

func TestDocumentPolicy_DownloadsLargeRemote(t *testing.T) {
	downloader := &fakeDownloader{body: make(flu.Bytes, 10)}
	file := remoteOf("a.bin", telegram.Document.RemoteMaxSize()+1, downloader)
	resolved, kind, err := DocumentPolicy{}.MakeCompatible(context.Background(), file, false)
	assert.NoError(t, err)
	assert.Equal(t, telegram.Document, kind)
	if blob, ok := resolved.(*media.Blob); assert.True(t, ok) {
		assert.Equal(t, int64(10), blob.Size)
	}

	assert.Equal(t, 1, downloader.calls)
}

func TestDocumentPolicy_ForceDownload(t *testing.T) {
	downloader := &fakeDownloader{body: make(flu.Bytes, 10)}
	file := remoteOf("a.bin", 1<<10, downloader)
	resolved, _, err := DocumentPolicy{}.MakeCompatible(context.Background(), file, true)
	assert.NoError(t, err)
	assert.IsType(t, new(media.Blob), resolved)
	assert.Equal(t, 1, downloader.calls)
}

func TestImagePolicy_PassThrough(t *testing.T) {
	policy := &ImagePolicy{Codec: &stubCodec{img: sized(100, 80)}}
	file := blobOf("a.jpg", 1<<10, 100, 80)
	resolved, kind, err := policy.MakeCompatible(context.Background(), file, false)
	assert.NoError(t, err)
	assert.Equal(t, telegram.Photo, kind)
	assert.Same(t, media.Descriptor(file), resolved)
}

func TestImagePolicy_MeasuresUnknownGeometry(t *testing.T) {
	downloader := &fakeDownloader{body: make(flu.Bytes, 10)}
	policy := &ImagePolicy{Codec: &stubCodec{img: sized(120, 90)}}
	file := remoteOf("a.jpg", 1<<10, downloader)
	resolved, kind, err := policy.MakeCompatible(context.Background(), file, false)
	assert.NoError(t, err)
	assert.Equal(t, telegram.Photo, kind)
	if assert.NotNil(t, resolved) {
		assert.Equal(t, 120, resolved.FileMeta().Width)
		assert.Equal(t, 90, resolved.FileMeta().Height)
	}

	assert.Equal(t, 1, downloader.calls)
}

func TestImagePolicy_ExtremeRatioBecomesDocument(t *testing.T) {
	policy := &ImagePolicy{Codec: new(stubCodec)}
	file := blobOf("a.jpg", 1<<10, 2000, 50)
	resolved, kind, err := policy.MakeCompatible(context.Background(), file, false)
	assert.NoError(t, err)
	assert.Equal(t, telegram.Document, kind)
	assert.Same(t, media.Descriptor(file), resolved)
}

func TestImagePolicy_ConvertsWEBP(t *testing.T) {
	codec := &stubCodec{img: sized(100, 80), encoded: make(flu.Bytes, 42)}
	policy := &ImagePolicy{Codec: codec}
	file := blobOf("pic.webp", 1<<10, 100, 80)
	resolved, kind, err := policy.MakeCompatible(context.Background(), file, false)
	assert.NoError(t, err)
	assert.Equal(t, telegram.Photo, kind)
	if assert.NotNil(t, resolved) {
		assert.Equal(t, "pic.jpg", resolved.FileMeta().Name)
		assert.Equal(t, int64(42), resolved.FileMeta().Size)
	}

	assert.True(t, codec.flattened)
	assert.Equal(t, []string{"jpg"}, codec.encodeExts)
}

func TestImagePolicy_CorrectsOversizedDimensions(t *testing.T) {
	codec := &stubCodec{img: sized(20000, 20000), encoded: make(flu.Bytes, 42)}
	policy := &ImagePolicy{Codec: codec}
	file := blobOf("a.jpg", 1<<10, 20000, 20000)
	resolved, kind, err := policy.MakeCompatible(context.Background(), file, false)
	assert.NoError(t, err)
	assert.Equal(t, telegram.Photo, kind)
	if assert.NotNil(t, resolved) {
		meta := resolved.FileMeta()
		assert.LessOrEqual(t, meta.Width+meta.Height, maxImageSizeSum)
	}

	assert.Equal(t, 1, codec.resizes)
}

func TestImagePolicy_ShrinkTerminates(t *testing.T) {
	codec := &stubCodec{
		img:     sized(1000, 800),
		encoded: make(flu.Bytes, telegram.Photo.AttachMaxSize()+1),
	}

	policy := &ImagePolicy{Codec: codec}
	file := blobOf("a.jpg", telegram.Photo.AttachMaxSize()+1, 1000, 800)
	resolved, kind, err := policy.MakeCompatible(context.Background(), file, false)
	assert.NoError(t, err)
	assert.Equal(t, telegram.Photo, kind)
	assert.Nil(t, resolved)
	assert.LessOrEqual(t, codec.resizes, maxShrinkSteps)
}

func TestVideoPolicy_Faststart(t *testing.T) {
	transcoder := &stubTranscoder{faststart: make(flu.Bytes, 42)}
	policy := &VideoPolicy{Transcoder: transcoder}
	resolved, kind, err := policy.MakeCompatible(context.Background(), blobOf("v.mp4", 1<<10, 0, 0), false)
	assert.NoError(t, err)
	assert.Equal(t, telegram.Video, kind)
	if assert.NotNil(t, resolved) {
		assert.Equal(t, "v.mp4", resolved.FileMeta().Name)
		assert.Equal(t, int64(42), resolved.FileMeta().Size)
	}

	assert.Equal(t, []string{"faststart"}, transcoder.calls)
}

func TestVideoPolicy_TranscodesWebm(t *testing.T) {
	transcoder := &stubTranscoder{transcode: make(flu.Bytes, 42)}
	policy := &VideoPolicy{Transcoder: transcoder}
	resolved, kind, err := policy.MakeCompatible(context.Background(), blobOf("v.webm", 1<<10, 0, 0), false)
	assert.NoError(t, err)
	assert.Equal(t, telegram.Video, kind)
	if assert.NotNil(t, resolved) {
		assert.Equal(t, "v.mp4", resolved.FileMeta().Name)
	}

	assert.Equal(t, []string{"transcode"}, transcoder.calls)
}

func TestVideoPolicy_RemotePassThrough(t *testing.T) {
	downloader := new(fakeDownloader)
	policy := &VideoPolicy{Transcoder: new(stubTranscoder)}
	file := remoteOf("v.mp4", 1<<10, downloader)
	resolved, kind, err := policy.MakeCompatible(context.Background(), file, false)
	assert.NoError(t, err)
	assert.Equal(t, telegram.Video, kind)
	assert.Same(t, media.Descriptor(file), resolved)
	assert.Zero(t, downloader.calls)
}

func TestVideoPolicy_ForceDownloadsWebm(t *testing.T) {
	downloader := &fakeDownloader{body: make(flu.Bytes, 10)}
	transcoder := &stubTranscoder{transcode: make(flu.Bytes, 42)}
	policy := &VideoPolicy{Transcoder: transcoder}
	resolved, kind, err := policy.MakeCompatible(context.Background(), remoteOf("v.webm", 1<<10, downloader), false)
	assert.NoError(t, err)
	assert.Equal(t, telegram.Video, kind)
	assert.IsType(t, new(media.Blob), resolved)
	assert.Equal(t, 1, downloader.calls)
	assert.Equal(t, []string{"transcode"}, transcoder.calls)
}

func TestVideoPolicy_TranscodeFailureRejects(t *testing.T) {
	transcoder := &stubTranscoder{err: errors.New("exit status 1")}
	policy := &VideoPolicy{Transcoder: transcoder}
	resolved, kind, err := policy.MakeCompatible(context.Background(), blobOf("v.mp4", 1<<10, 0, 0), false)
	assert.NoError(t, err)
	assert.Equal(t, telegram.Video, kind)
	assert.Nil(t, resolved)
}

func TestVideoPolicy_OversizedDegradesToStillFrame(t *testing.T) {
	downloader := &fakeDownloader{body: make(flu.Bytes, 3<<20)}
	transcoder := &stubTranscoder{frame: make(flu.Bytes, 42), frameMinBytes: 3 << 19}
	policy := &VideoPolicy{Transcoder: transcoder}
	file := remoteOf("v.mp4", telegram.Document.AttachMaxSize()+1, downloader)
	file.Width, file.Height = 1920, 1080
	resolved, kind, err := policy.MakeCompatible(context.Background(), file, false)
	assert.NoError(t, err)
	assert.Equal(t, telegram.Photo, kind)
	if assert.NotNil(t, resolved) {
		assert.Equal(t, "v.jpg", resolved.FileMeta().Name)
		assert.Equal(t, int64(42), resolved.FileMeta().Size)
	}

	assert.Equal(t, []string{"frame", "frame"}, transcoder.calls)
}

func TestVideoPolicy_StillFrameFailureRejects(t *testing.T) {
	downloader := &fakeDownloader{body: make(flu.Bytes, 10)}
	transcoder := &stubTranscoder{frameMinBytes: 1 << 10}
	policy := &VideoPolicy{Transcoder: transcoder}
	file := remoteOf("v.mp4", telegram.Document.AttachMaxSize()+1, downloader)
	resolved, kind, err := policy.MakeCompatible(context.Background(), file, false)
	assert.NoError(t, err)
	assert.Equal(t, telegram.Video, kind)
	assert.Nil(t, resolved)
}

func TestAnimationPolicy_StripsAudio(t *testing.T) {
	transcoder := &stubTranscoder{transcode: make(flu.Bytes, 42), strip: make(flu.Bytes, 41)}
	policy := &AnimationPolicy{
		Video:      &VideoPolicy{Transcoder: transcoder},
		Transcoder: transcoder,
	}

	resolved, kind, err := policy.MakeCompatible(context.Background(), blobOf("a.gif", 1<<10, 0, 0), false)
	assert.NoError(t, err)
	assert.Equal(t, telegram.Animation, kind)
	if assert.NotNil(t, resolved) {
		assert.Equal(t, int64(41), resolved.FileMeta().Size)
	}

	assert.Equal(t, []string{"transcode", "strip"}, transcoder.calls)
}

func TestAnimationPolicy_RemotePassThrough(t *testing.T) {
	transcoder := new(stubTranscoder)
	policy := &AnimationPolicy{
		Video:      &VideoPolicy{Transcoder: transcoder},
		Transcoder: transcoder,
	}

	file := remoteOf("a.gif", 1<<10, new(fakeDownloader))
	resolved, kind, err := policy.MakeCompatible(context.Background(), file, false)
	assert.NoError(t, err)
	assert.Equal(t, telegram.Animation, kind)
	assert.Same(t, media.Descriptor(file), resolved)
	assert.Empty(t, transcoder.calls)
}

func TestAnimationPolicy_RejectsStillFrame(t *testing.T) {
	downloader := &fakeDownloader{body: make(flu.Bytes, 1<<20)}
	transcoder := &stubTranscoder{frame: make(flu.Bytes, 42)}
	policy := &AnimationPolicy{
		Video:      &VideoPolicy{Transcoder: transcoder},
		Transcoder: transcoder,
	}

	file := remoteOf("a.gif", telegram.Document.AttachMaxSize()+1, downloader)
	resolved, kind, err := policy.MakeCompatible(context.Background(), file, false)
	assert.NoError(t, err)
	assert.Equal(t, telegram.Animation, kind)
	assert.Nil(t, resolved)
}

type markerPolicy struct {
	kind telegram.MediaType
}

func (p markerPolicy) MakeCompatible(ctx context.Context, file media.Descriptor, forceDownload bool) (media.Descriptor, telegram.MediaType, error) {
	return file, p.kind, nil
}

func TestDispatcher_RoutesByKind(t *testing.T) {
	dispatcher := &Dispatcher{
		Image:     markerPolicy{telegram.Photo},
		Video:     markerPolicy{telegram.Video},
		Animation: markerPolicy{telegram.Animation},
		Document:  markerPolicy{telegram.Document},
	}

	for name, expected := range map[string]telegram.MediaType{
		"a.jpg":  telegram.Photo,
		"a.png":  telegram.Photo,
		"a.webp": telegram.Photo,
		"a.mp4":  telegram.Video,
		"a.webm": telegram.Video,
		"a.gif":  telegram.Animation,
		"a.bin":  telegram.Document,
		"a":      telegram.Document,
	} {
		_, kind, err := dispatcher.MakeCompatible(context.Background(), blobOf(name, 1, 0, 0), false)
		assert.NoError(t, err)
		assert.Equal(t, expected, kind, name)
	}
}
