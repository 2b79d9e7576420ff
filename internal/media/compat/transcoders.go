package compat

import (
	"context"

	"github.com/jfk9w-go/flu"
	"github.com/pkg/errors"
)

// Transcoders is an ordered fallback chain. Each operation is attempted on
// every backend in turn until one succeeds; the last error is returned when
// all fail.
type Transcoders []Transcoder

func (ts Transcoders) Faststart(ctx context.Context, in flu.Input) (flu.Bytes, error) {
	return ts.each(func(t Transcoder) (flu.Bytes, error) { return t.Faststart(ctx, in) })
}

func (ts Transcoders) TranscodeH264(ctx context.Context, in flu.Input) (flu.Bytes, error) {
	return ts.each(func(t Transcoder) (flu.Bytes, error) { return t.TranscodeH264(ctx, in) })
}

func (ts Transcoders) StripAudio(ctx context.Context, in flu.Input) (flu.Bytes, error) {
	return ts.each(func(t Transcoder) (flu.Bytes, error) { return t.StripAudio(ctx, in) })
}

func (ts Transcoders) FirstFrame(ctx context.Context, in flu.Input) (flu.Bytes, error) {
	return ts.each(func(t Transcoder) (flu.Bytes, error) { return t.FirstFrame(ctx, in) })
}

func (ts Transcoders) each(op func(t Transcoder) (flu.Bytes, error)) (flu.Bytes, error) {
	err := errors.New("no transcoders registered")
	for _, t := range ts {
		var out flu.Bytes
		out, err = op(t)
		if err == nil && len(out) > 0 {
			return out, nil
		}

		if err == nil {
			err = errors.New("empty output")
		}
	}

	return nil, err
}
