package media

import (
	"context"
	"path"
	"strings"

	"github.com/jfk9w-go/flu"
	"github.com/pkg/errors"
)

// Meta describes the declared properties of a file.
type Meta struct {
	// Name is the file name with extension.
	Name string
	// Size is the content size in bytes, or a non-positive value when unknown.
	Size int64
	// Width and Height are the media geometry, or zero when unknown or
	// not applicable.
	Width  int
	Height int
}

// Ext returns the lowercased file extension without the leading period.
func (m Meta) Ext() string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(m.Name), "."))
}

// Kind classifies the file by its extension.
func (m Meta) Kind() Kind {
	return KindOf(m.Ext())
}

// WithExt returns a copy of the Meta with the file extension replaced.
func (m Meta) WithExt(ext string) Meta {
	name := m.Name
	if old := path.Ext(name); old != "" {
		name = name[:len(name)-len(old)]
	}

	m.Name = name + "." + ext
	return m
}

// RatioWH is the width-to-height ratio.
// Callers must ensure Height is not zero.
func (m Meta) RatioWH() float64 {
	return float64(m.Width) / float64(m.Height)
}

// RatioHW is the height-to-width ratio.
// Callers must ensure Width is not zero.
func (m Meta) RatioHW() float64 {
	return float64(m.Height) / float64(m.Width)
}

// SizeSum is the sum of width and height.
func (m Meta) SizeSum() int {
	return m.Width + m.Height
}

// Descriptor is a reference to a media artifact: either a *Blob already
// materialized, or a *Remote which can be fetched on demand. The set of
// implementations is closed; decision points switch over the two variants
// exhaustively.
type Descriptor interface {
	// FileMeta returns the descriptor's metadata.
	FileMeta() *Meta

	descriptor()
}

// Blob is a materialized file. Its Size is exact and final.
type Blob struct {
	Meta
	Body flu.Input
}

func (b *Blob) FileMeta() *Meta { return &b.Meta }
func (b *Blob) descriptor()     {}

// Remote references bytes not yet fetched.
type Remote struct {
	Meta
	URL        string
	Downloader Downloader
}

func (r *Remote) FileMeta() *Meta { return &r.Meta }
func (r *Remote) descriptor()     {}

// Materialize returns a Blob for the descriptor, performing exactly one
// network fetch when it is remote and none when it is already a Blob.
// The downloaded size replaces the declared one, and the URL is dropped.
func Materialize(ctx context.Context, d Descriptor) (*Blob, error) {
	switch d := d.(type) {
	case *Blob:
		return d, nil
	case *Remote:
		if d.Downloader == nil {
			return nil, errors.New("no download capability")
		}

		body, err := d.Downloader.Download(ctx, d.URL)
		if err != nil {
			return nil, errors.Wrap(err, "download")
		}

		meta := d.Meta
		meta.Size = int64(len(body))
		return &Blob{Meta: meta, Body: body}, nil
	default:
		return nil, errors.Errorf("unexpected descriptor %T", d)
	}
}
