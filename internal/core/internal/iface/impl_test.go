package iface

import (
	"testing"

	"boorubot/internal/feed"

	telegram "github.com/jfk9w-go/telegram-bot-api"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestHeaderRoundTrip(t *testing.T) {
	header := feed.Header{SubID: "landscape scenery", Vendor: "danbooru", FeedID: -1001}
	arg := formatHeader(header)
	assert.Equal(t, "-1001+danbooru+landscape scenery", arg)

	parsed, err := new(Impl).parseHeader(&telegram.Command{Args: []string{arg}}, 0)
	assert.Nil(t, err)
	assert.Equal(t, header, parsed)
}

func TestParseHeader_Invalid(t *testing.T) {
	impl := new(Impl)

	_, err := impl.parseHeader(&telegram.Command{Args: []string{"danbooru+scenery"}}, 0)
	assert.True(t, errors.Is(err, ErrInvalidHeader))

	_, err = impl.parseHeader(&telegram.Command{Args: []string{"abc+danbooru+scenery"}}, 0)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidHeader))
}
