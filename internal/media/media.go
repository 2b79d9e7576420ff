// Package media contains the file descriptor model shared by the
// compatibility engine and everything that feeds files into it.
//
// A descriptor is either a Blob (bytes already in hand) or a Remote
// (a URL plus a download capability). Declared metadata on a Remote comes
// from a third-party API and may be absent or wrong; it becomes
// authoritative only after the file is materialized.
package media

// Kind is the media classification derived from a file extension.
// It drives policy dispatch and nothing else.
type Kind string

const (
	KindImage     Kind = "image"
	KindVideo     Kind = "video"
	KindAnimation Kind = "animation"
	KindDocument  Kind = "document"
)

var extKinds = map[string]Kind{
	"jpg":  KindImage,
	"jpeg": KindImage,
	"png":  KindImage,
	"webp": KindImage,
	"mp4":  KindVideo,
	"mkv":  KindVideo,
	"webm": KindVideo,
	"gif":  KindAnimation,
}

// KindOf classifies a file extension (without the leading period).
// Unknown extensions are documents.
func KindOf(ext string) Kind {
	if kind, ok := extKinds[ext]; ok {
		return kind
	}

	return KindDocument
}
