package booru

import (
	"context"
	"testing"

	"boorubot/internal/3rdparty/booru"
	"boorubot/internal/feed"
	"boorubot/internal/media"

	"github.com/jfk9w-go/flu/colf"
	"github.com/jfk9w-go/flu/syncf"
	"github.com/jfk9w-go/telegram-bot-api/ext/receiver"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type fakeClient struct {
	posts   []booru.Post
	err     error
	queries []string
}

func (c *fakeClient) Posts(ctx context.Context, tags string, limit int) ([]booru.Post, error) {
	c.queries = append(c.queries, tags)
	if c.err != nil {
		return nil, c.err
	}

	if limit < len(c.posts) {
		return c.posts[:limit], nil
	}

	return c.posts, nil
}

type fakeMediator struct {
	md5s []string
	urls []string
}

func (m *fakeMediator) Mediate(ctx context.Context, file media.Remote, md5 string, dedupKey *feed.ID) receiver.MediaRef {
	m.md5s = append(m.md5s, md5)
	m.urls = append(m.urls, file.URL)
	return syncf.Lazy(func(ctx context.Context) (*receiver.Media, error) {
		return nil, nil
	})
}

type fakeQueue struct {
	data    Data
	offsets []int64
}

func (q *fakeQueue) Init(ctx context.Context, data any) error {
	*(data.(*Data)) = q.data
	return nil
}

func (q *fakeQueue) Submit(ctx context.Context, writeHTML feed.WriteHTML, data any) error {
	q.offsets = append(q.offsets, data.(*Data).Offset)
	return nil
}

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "landscape scenery", normalizeQuery([]string{"Scenery", "landscape", " scenery ", ""}))
	assert.Equal(t, "", normalizeQuery(nil))
}

func TestVendor_ParseRef(t *testing.T) {
	vendor := &Vendor{
		ID:    "danbooru",
		Hosts: colf.Set[string]{"danbooru.donmai.us": true},
	}

	tags, ok := vendor.parseRef("danbooru:scenery+landscape")
	assert.True(t, ok)
	assert.Equal(t, []string{"scenery", "landscape"}, tags)

	tags, ok = vendor.parseRef("https://www.danbooru.donmai.us/posts?tags=scenery+landscape")
	assert.True(t, ok)
	assert.Equal(t, []string{"scenery", "landscape"}, tags)

	_, ok = vendor.parseRef("https://danbooru.donmai.us/posts")
	assert.False(t, ok)

	_, ok = vendor.parseRef("https://example.com/posts?tags=scenery")
	assert.False(t, ok)

	_, ok = vendor.parseRef("yandere:scenery")
	assert.False(t, ok)
}

func TestVendor_Parse(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &fakeClient{posts: []booru.Post{{ID: 1}}}
	vendor := &Vendor{ID: "danbooru", Client: client}

	draft, err := vendor.Parse(ctx, "https://example.com", nil)
	assert.Nil(t, draft)
	assert.Nil(t, err)

	_, err = vendor.Parse(ctx, "danbooru: ", nil)
	assert.Error(t, err)

	draft, err = vendor.Parse(ctx, "danbooru:scenery", []string{"rating:safe"})
	assert.Nil(t, err)
	assert.Equal(t, "rating:safe scenery", draft.SubID)
	assert.Equal(t, []string{"rating:safe scenery"}, client.queries)

	client.posts = nil
	_, err = vendor.Parse(ctx, "danbooru:scenery", nil)
	assert.Error(t, err)

	client.err = errors.New("503")
	_, err = vendor.Parse(ctx, "danbooru:scenery", nil)
	assert.Error(t, err)
}

func TestVendor_Refresh(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &fakeClient{posts: []booru.Post{
		{ID: 5, MD5: "e", FileURL: "https://files/5.png"},
		{ID: 4, MD5: "d", FileURL: "https://files/4.png"},
		{ID: 3, MD5: "c", FileURL: "https://files/3.png"},
		{ID: 2, MD5: "b", FileURL: "https://files/2.png"},
	}}

	mediator := &fakeMediator{}
	vendor := &Vendor{ID: "danbooru", Client: client, Mediator: mediator}
	queue := &fakeQueue{data: Data{Tags: "scenery", Offset: 3}}
	header := feed.Header{SubID: "scenery", Vendor: "danbooru", FeedID: 123}

	assert.Nil(t, vendor.Refresh(ctx, header, queue))
	assert.Equal(t, []string{"scenery"}, client.queries)
	assert.Equal(t, []int64{4, 5}, queue.offsets)
	assert.Equal(t, []string{"d", "e"}, mediator.md5s)
	assert.Equal(t, []string{"https://files/4.png", "https://files/5.png"}, mediator.urls)
}
