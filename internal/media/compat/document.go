package compat

import (
	"context"

	"boorubot/internal/media"

	telegram "github.com/jfk9w-go/telegram-bot-api"
)

// DocumentPolicy handles files with no richer representation. Documents are
// never transformed: a file over the upload ceiling is rejected outright,
// and a remote file over the URL ceiling is merely downloaded so it can be
// attached instead of passed by URL.
type DocumentPolicy struct{}

func (p DocumentPolicy) MakeCompatible(ctx context.Context, file media.Descriptor, forceDownload bool) (media.Descriptor, telegram.MediaType, error) {
	if file.FileMeta().Size > telegram.Document.AttachMaxSize() {
		return nil, telegram.Document, nil
	}

	if remote, ok := file.(*media.Remote); ok {
		if forceDownload || remote.Size > telegram.Document.RemoteMaxSize() {
			blob, err := media.Materialize(ctx, file)
			if err != nil {
				return nil, telegram.Document, err
			}

			if blob.Size > telegram.Document.AttachMaxSize() {
				return nil, telegram.Document, nil
			}

			return blob, telegram.Document, nil
		}
	}

	return file, telegram.Document, nil
}
