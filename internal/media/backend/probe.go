package backend

import (
	"encoding/json"

	"github.com/jfk9w-go/flu"
	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Probe measures the geometry of a materialized video blob via ffprobe.
func (f FFmpeg) Probe(in flu.Input) (width, height int, err error) {
	reader, err := in.Reader()
	if err != nil {
		return 0, 0, errors.Wrap(err, "open input")
	}

	defer flu.CloseQuietly(reader)
	raw, err := ffmpeg.ProbeReader(reader)
	if err != nil {
		return 0, 0, errors.Wrap(err, "ffprobe")
	}

	var output probeOutput
	if err := json.Unmarshal([]byte(raw), &output); err != nil {
		return 0, 0, errors.Wrap(err, "decode ffprobe output")
	}

	for _, stream := range output.Streams {
		if stream.CodecType == "video" && stream.Width > 0 {
			return stream.Width, stream.Height, nil
		}
	}

	return 0, 0, errors.New("no video stream found")
}
