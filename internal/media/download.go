package media

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/jfk9w-go/flu"
	"github.com/jfk9w-go/flu/backoff"
	"github.com/jfk9w-go/flu/httpf"
	"github.com/pkg/errors"
)

// Downloader is the download capability bound to remote descriptors.
type Downloader interface {

	// Download fetches the full content at url. It either completes or
	// fails; no partial results are exposed.
	Download(ctx context.Context, url string) (flu.Bytes, error)

	// Chunks opens the content at url for incremental consumption.
	// The returned sequence is finite and forward-only; every call to
	// Chunks restarts from the beginning. The consumer may stop early
	// via Close without fetching the remainder.
	Chunks(ctx context.Context, url string, chunkSize int64) (*ChunkReader, error)
}

// HTTPDownloader downloads via an HTTP client with constant-backoff retries.
type HTTPDownloader struct {
	Client  httpf.Client
	Retries int
}

func (d *HTTPDownloader) client() httpf.Client {
	if d.Client != nil {
		return d.Client
	}

	return http.DefaultClient
}

func (d *HTTPDownloader) Download(ctx context.Context, url string) (flu.Bytes, error) {
	buf := new(flu.ByteBuffer)
	if err := (backoff.Retry{
		Retries: d.Retries,
		Backoff: backoff.Const(time.Second),
		Body: func(ctx context.Context) error {
			return httpf.GET(url).
				Exchange(ctx, d.client()).
				CheckStatus(http.StatusOK).
				CopyBody(buf).
				Error()
		},
	}).Do(ctx); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (d *HTTPDownloader) Chunks(ctx context.Context, url string, chunkSize int64) (*ChunkReader, error) {
	if chunkSize <= 0 {
		return nil, errors.Errorf("invalid chunk size: %d", chunkSize)
	}

	body, err := httpf.GET(url).
		Exchange(ctx, d.client()).
		CheckStatus(http.StatusOK).
		Reader()
	if err != nil {
		return nil, errors.Wrap(err, "open body")
	}

	return NewChunkReader(body, chunkSize), nil
}

// ChunkReader yields successive windows of remote content. Each Next call
// extends the buffered window by up to chunkSize bytes and returns the
// whole window so far, so a consumer retrying a decode always sees all
// bytes fetched up to that point. The underlying stream is closed on
// end-of-stream, on error and on Close.
type ChunkReader struct {
	body      io.Reader
	chunkSize int64
	buf       bytes.Buffer
	done      bool
}

// NewChunkReader wraps an open stream. If body is an io.Closer it will be
// closed by the reader.
func NewChunkReader(body io.Reader, chunkSize int64) *ChunkReader {
	return &ChunkReader{body: body, chunkSize: chunkSize}
}

func (c *ChunkReader) Next(ctx context.Context) (flu.Bytes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.done {
		return nil, io.EOF
	}

	n, err := io.CopyN(&c.buf, c.body, c.chunkSize)
	switch {
	case err == io.EOF:
		_ = c.Close()
		if n == 0 {
			return nil, io.EOF
		}
	case err != nil:
		_ = c.Close()
		return nil, err
	}

	return flu.Bytes(c.buf.Bytes()), nil
}

func (c *ChunkReader) Close() error {
	c.done = true
	if closer, ok := c.body.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}
