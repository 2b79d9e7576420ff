package backend

import (
	"bytes"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/jfk9w-go/flu"
	"github.com/pkg/errors"

	// register the webp decoder: boorus serve webp originals which must be
	// converted before Telegram accepts them as photos
	_ "golang.org/x/image/webp"
)

// ImageCodec decodes, transforms and re-encodes images in memory.
type ImageCodec struct{}

func (c ImageCodec) String() string {
	return "backend.image"
}

// Decode reads an image of any registered format (jpeg, png, gif, webp).
func (c ImageCodec) Decode(in flu.Input) (image.Image, error) {
	reader, err := in.Reader()
	if err != nil {
		return nil, errors.Wrap(err, "open input")
	}

	defer flu.CloseQuietly(reader)
	img, err := imaging.Decode(reader)
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}

	return img, nil
}

// Geometry reads only the dimensions of an encoded image.
func (c ImageCodec) Geometry(in flu.Input) (width, height int, err error) {
	reader, err := in.Reader()
	if err != nil {
		return 0, 0, errors.Wrap(err, "open input")
	}

	defer flu.CloseQuietly(reader)
	config, _, err := image.DecodeConfig(reader)
	if err != nil {
		return 0, 0, errors.Wrap(err, "decode image config")
	}

	return config.Width, config.Height, nil
}

// Flatten composites the image over a white background.
// JPEG has no alpha channel, so transparency must be resolved before
// converting to it.
func (c ImageCodec) Flatten(img image.Image) image.Image {
	bounds := img.Bounds()
	background := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	return imaging.Overlay(background, img, image.Pt(0, 0), 1.0)
}

// Resize scales the image by ratio, truncating the resulting dimensions.
func (c ImageCodec) Resize(img image.Image, ratio float64) image.Image {
	bounds := img.Bounds()
	width := int(float64(bounds.Dx()) * ratio)
	height := int(float64(bounds.Dy()) * ratio)
	return imaging.Resize(img, width, height, imaging.Lanczos)
}

// Encode serializes the image into the format matching ext.
func (c ImageCodec) Encode(img image.Image, ext string) (flu.Bytes, error) {
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return nil, errors.Wrapf(err, "format for %s", ext)
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, format); err != nil {
		return nil, errors.Wrapf(err, "encode %s", ext)
	}

	return buf.Bytes(), nil
}
