package booru

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"boorubot/internal/3rdparty/booru"
	"boorubot/internal/feed"
	"boorubot/internal/media"
	"boorubot/internal/util"

	"github.com/jfk9w-go/flu/colf"
	tghtml "github.com/jfk9w-go/telegram-bot-api/ext/html"
	"github.com/jfk9w-go/telegram-bot-api/ext/output"
	"github.com/pkg/errors"
)

const (
	defaultPageSize = 20
	maxCaptionTags  = 6
)

// Vendor is a tag-query feed over a single imageboard. Site specifics live
// in the Client; the vendor only normalizes queries, pages through new
// posts and renders captions.
type Vendor struct {
	// ID doubles as the ref prefix in "ID:tag1+tag2" subscription strings.
	ID       string
	Hosts    colf.Set[string]
	Client   booru.Interface
	Mediator feed.Mediator
	PageSize int
}

func (v *Vendor) Parse(ctx context.Context, ref string, options []string) (*feed.Draft, error) {
	tags, ok := v.parseRef(ref)
	if !ok {
		return nil, nil
	}

	tags = append(tags, options...)
	query := normalizeQuery(tags)
	if query == "" {
		return nil, errors.New("empty tag query")
	}

	posts, err := v.Client.Posts(ctx, query, 1)
	if err != nil {
		return nil, errors.Wrap(err, "check tags")
	}

	if len(posts) == 0 {
		return nil, errors.Errorf("no posts match [%s]", query)
	}

	return &feed.Draft{
		SubID: query,
		Name:  query,
		Data:  &Data{Tags: query},
	}, nil
}

func (v *Vendor) Refresh(ctx context.Context, header feed.Header, queue feed.Refresh) error {
	data := new(Data)
	if err := queue.Init(ctx, data); err != nil {
		return err
	}

	limit := v.PageSize
	if limit <= 0 {
		limit = defaultPageSize
	}

	posts, err := v.Client.Posts(ctx, data.Tags, limit)
	if err != nil {
		return errors.Wrap(err, "get posts")
	}

	// newest first from the API, delivered oldest first
	for i := len(posts) - 1; i >= 0; i-- {
		post := &posts[i]
		if post.ID <= data.Offset {
			continue
		}

		writeHTML := v.processPost(ctx, header, post)
		data.Offset = post.ID
		if err := queue.Submit(ctx, writeHTML, data); err != nil {
			return err
		}
	}

	return nil
}

func (v *Vendor) processPost(ctx context.Context, header feed.Header, post *booru.Post) feed.WriteHTML {
	file := media.Remote{
		Meta: media.Meta{
			Name:   post.FileName(),
			Size:   post.FileSize,
			Width:  post.Width,
			Height: post.Height,
		},
		URL: post.FileURL,
	}

	dedupKey := header.FeedID
	ref := v.Mediator.Mediate(ctx, file, post.MD5, &dedupKey)

	pageURL := post.PageURL
	tags := strings.Fields(post.Tags)
	if len(tags) > maxCaptionTags {
		tags = tags[:maxCaptionTags]
	}

	return func(html *tghtml.Writer) error {
		if _, ok := html.Out.(*output.Paged); ok {
			html = html.WithContext(output.With(html.Context(), tghtml.DefaultMaxCaptionSize, 1))
		}

		html.Link("[link]", pageURL)
		for _, tag := range tags {
			html.Text(" ").Text(util.Hashtag(tag))
		}

		html.Media(pageURL, ref, true, true)
		return nil
	}
}

func (v *Vendor) parseRef(ref string) ([]string, bool) {
	if tags, ok := strings.CutPrefix(ref, v.ID+":"); ok {
		return splitTags(tags), true
	}

	u, err := url.Parse(ref)
	if err != nil || !v.Hosts[strings.TrimPrefix(u.Host, "www.")] {
		return nil, false
	}

	tags := u.Query().Get("tags")
	if tags == "" {
		return nil, false
	}

	return splitTags(tags), true
}

func splitTags(str string) []string {
	return strings.FieldsFunc(str, func(r rune) bool {
		return r == '+' || r == ' '
	})
}

// normalizeQuery lowercases, deduplicates and sorts tags so that
// equivalent queries map to the same subscription ID.
func normalizeQuery(tags []string) string {
	unique := make(colf.Set[string], len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			unique[tag] = true
		}
	}

	sorted := make([]string, 0, len(unique))
	for tag := range unique {
		sorted = append(sorted, tag)
	}

	sort.Strings(sorted)
	return strings.Join(sorted, " ")
}
