package compat

import (
	"context"

	"boorubot/internal/media"

	telegram "github.com/jfk9w-go/telegram-bot-api"
	"github.com/pkg/errors"
)

const (
	// maxImageRatio is the width to height (or height to width) ratio above
	// which Telegram truncates the photo preview beyond recognition, so the
	// image is sent as a document instead.
	maxImageRatio = 20

	// maxImageSizeSum bounds width + height of a photo.
	maxImageSizeSum = 10000

	// minImageSizeSum is the floor below which further shrinking is
	// pointless and the image is rejected.
	minImageSizeSum = 64

	shrinkStepRatio = 0.9
	maxShrinkSteps  = 50
)

// ImagePolicy prepares images for delivery as photos. WEBP is converted to
// JPEG with transparency flattened on white, extremely elongated images fall
// back to documents, and anything over the photo ceilings is shrunk and
// re-encoded until it fits or hits the size floor.
type ImagePolicy struct {
	Codec ImageCodec
}

func (p *ImagePolicy) MakeCompatible(ctx context.Context, file media.Descriptor, forceDownload bool) (media.Descriptor, telegram.MediaType, error) {
	meta := file.FileMeta()
	if meta.Width <= 0 || meta.Height <= 0 {
		blob, err := p.measured(ctx, file)
		if err != nil {
			return nil, telegram.Photo, err
		}

		file, meta = blob, blob.FileMeta()
	}

	if meta.Width <= 0 || meta.Height <= 0 {
		return nil, telegram.Photo, nil
	}

	if meta.Ext() == "webp" {
		blob, err := p.convertToJPEG(ctx, file)
		if err != nil {
			return nil, telegram.Photo, err
		}

		file, meta = blob, blob.FileMeta()
	}

	if meta.RatioWH() >= maxImageRatio || meta.RatioHW() >= maxImageRatio {
		return p.fallbackToDocument(ctx, file, forceDownload)
	}

	if meta.SizeSum() <= maxImageSizeSum && !oversized(file, telegram.Photo) {
		remote, isRemote := file.(*media.Remote)
		if !isRemote || !forceDownload {
			return file, telegram.Photo, nil
		}

		blob, err := media.Materialize(ctx, remote)
		if err != nil {
			return nil, telegram.Photo, err
		}

		if blob.Size <= telegram.Photo.AttachMaxSize() {
			return blob, telegram.Photo, nil
		}

		file = blob
	}

	return p.shrinkToFit(ctx, file, telegram.Photo, true)
}

// fallbackToDocument applies document ceilings to an image which cannot be a
// photo. Unlike DocumentPolicy it does not give up on oversized files since
// an image can still be shrunk.
func (p *ImagePolicy) fallbackToDocument(ctx context.Context, file media.Descriptor, forceDownload bool) (media.Descriptor, telegram.MediaType, error) {
	if !oversized(file, telegram.Document) {
		remote, isRemote := file.(*media.Remote)
		if !isRemote || !forceDownload {
			return file, telegram.Document, nil
		}

		blob, err := media.Materialize(ctx, remote)
		if err != nil {
			return nil, telegram.Document, err
		}

		if blob.Size <= telegram.Document.AttachMaxSize() {
			return blob, telegram.Document, nil
		}

		file = blob
	}

	return p.shrinkToFit(ctx, file, telegram.Document, false)
}

func (p *ImagePolicy) measured(ctx context.Context, file media.Descriptor) (*media.Blob, error) {
	blob, err := media.Materialize(ctx, file)
	if err != nil {
		return nil, err
	}

	width, height, err := p.Codec.Geometry(blob.Body)
	if err != nil {
		return nil, errors.Wrap(err, "measure")
	}

	blob.Width, blob.Height = width, height
	return blob, nil
}

func (p *ImagePolicy) convertToJPEG(ctx context.Context, file media.Descriptor) (*media.Blob, error) {
	blob, err := media.Materialize(ctx, file)
	if err != nil {
		return nil, err
	}

	img, err := p.Codec.Decode(blob.Body)
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	body, err := p.Codec.Encode(p.Codec.Flatten(img), "jpg")
	if err != nil {
		return nil, errors.Wrap(err, "encode")
	}

	meta := blob.Meta.WithExt("jpg")
	meta.Size = int64(len(body))
	return &media.Blob{Meta: meta, Body: body}, nil
}

// shrinkToFit scales the image down step by step, re-encoding and
// re-measuring the result each time, until it fits the ceilings of the
// target kind. The step ratio is 0.9 unless the dimension bound is the
// violated one, in which case a single corrective step is computed from it.
func (p *ImagePolicy) shrinkToFit(ctx context.Context, file media.Descriptor, kind telegram.MediaType, limitSizeSum bool) (media.Descriptor, telegram.MediaType, error) {
	blob, err := media.Materialize(ctx, file)
	if err != nil {
		return nil, kind, err
	}

	img, err := p.Codec.Decode(blob.Body)
	if err != nil {
		return nil, kind, errors.Wrap(err, "decode")
	}

	meta := blob.Meta
	for step := 0; step < maxShrinkSteps; step++ {
		ratio := shrinkStepRatio
		if limitSizeSum && meta.SizeSum() > maxImageSizeSum {
			ratio = float64(maxImageSizeSum) / float64(meta.SizeSum())
		}

		img = p.Codec.Resize(img, ratio)
		bounds := img.Bounds()
		meta.Width, meta.Height = bounds.Dx(), bounds.Dy()
		if meta.SizeSum() < minImageSizeSum {
			return nil, kind, nil
		}

		body, err := p.Codec.Encode(img, meta.Ext())
		if err != nil {
			return nil, kind, errors.Wrap(err, "encode")
		}

		meta.Size = int64(len(body))
		if meta.Size <= kind.AttachMaxSize() && (!limitSizeSum || meta.SizeSum() <= maxImageSizeSum) {
			return &media.Blob{Meta: meta, Body: body}, kind, nil
		}
	}

	return nil, kind, nil
}
