package media

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/jfk9w-go/flu"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	for ext, expected := range map[string]Kind{
		"jpg":  KindImage,
		"jpeg": KindImage,
		"png":  KindImage,
		"webp": KindImage,
		"mp4":  KindVideo,
		"mkv":  KindVideo,
		"webm": KindVideo,
		"gif":  KindAnimation,
		"zip":  KindDocument,
		"":     KindDocument,
	} {
		assert.Equal(t, expected, KindOf(ext), ext)
	}
}

func TestMeta_Ext(t *testing.T) {
	assert.Equal(t, "jpg", Meta{Name: "a.jpg"}.Ext())
	assert.Equal(t, "jpg", Meta{Name: "A.JPG"}.Ext())
	assert.Equal(t, "", Meta{Name: "noext"}.Ext())
	assert.Equal(t, "webm", Meta{Name: "dir.v1/clip.webm"}.Ext())
}

func TestMeta_WithExt(t *testing.T) {
	meta := Meta{Name: "pic.webp", Size: 10, Width: 1, Height: 2}
	converted := meta.WithExt("jpg")
	assert.Equal(t, "pic.jpg", converted.Name)
	assert.Equal(t, meta.Size, converted.Size)
	assert.Equal(t, "pic.webp", meta.Name)
	assert.Equal(t, "noext.jpg", Meta{Name: "noext"}.WithExt("jpg").Name)
}

type constDownloader flu.Bytes

func (d constDownloader) Download(ctx context.Context, url string) (flu.Bytes, error) {
	return flu.Bytes(d), nil
}

func (d constDownloader) Chunks(ctx context.Context, url string, chunkSize int64) (*ChunkReader, error) {
	return NewChunkReader(bytes.NewReader(d), chunkSize), nil
}

func TestMaterialize_Blob(t *testing.T) {
	blob := &Blob{Meta: Meta{Name: "a.bin", Size: 3}, Body: flu.Bytes("abc")}
	materialized, err := Materialize(context.Background(), blob)
	assert.NoError(t, err)
	assert.Same(t, blob, materialized)
}

func TestMaterialize_Remote(t *testing.T) {
	remote := &Remote{
		Meta:       Meta{Name: "a.bin", Size: 100, Width: 3, Height: 4},
		URL:        "http://example.com/a.bin",
		Downloader: constDownloader("abcde"),
	}

	blob, err := Materialize(context.Background(), remote)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), blob.Size)
	assert.Equal(t, 3, blob.Width)
	assert.Equal(t, 4, blob.Height)
}

func TestChunkReader(t *testing.T) {
	reader := NewChunkReader(bytes.NewReader([]byte("abcdefgh")), 3)
	ctx := context.Background()

	window, err := reader.Next(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "abc", string(window))

	window, err = reader.Next(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "abcdef", string(window))

	window, err = reader.Next(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "abcdefgh", string(window))

	_, err = reader.Next(ctx)
	assert.Equal(t, io.EOF, err)
}

func TestChunkReader_Close(t *testing.T) {
	reader := NewChunkReader(bytes.NewReader([]byte("abcdefgh")), 3)
	assert.NoError(t, reader.Close())
	_, err := reader.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}
