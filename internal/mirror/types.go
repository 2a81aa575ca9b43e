package mirror

import (
	"context"
	"time"
)

// MediaKind distinguishes the two attachment families the destination accepts.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// SourcePost is one post fetched from the source platform. Immutable once
// fetched; the ID is stable across fetches and keys the ledger.
type SourcePost struct {
	ID          string
	CreatedAt   time.Time
	Content     string // raw rich-text markup as served by the source
	Attachments []MediaAttachment
}

// MediaAttachment references one remote media resource on a source post.
type MediaAttachment struct {
	Kind    MediaKind
	URL     string
	AltText string
}

// NormalizedMedia is media that already satisfies the destination's size and
// format constraints. Only the normalizers construct it.
type NormalizedMedia struct {
	Kind    MediaKind
	Bytes   []byte
	MIME    string
	AltText string
	Width   int64
	Height  int64
}

// Facet annotates a byte range of plain text. Exactly one of Link, Mention,
// or Tag is the primary target; a Mention may carry Link as a fallback for
// handles that do not resolve on the destination network.
type Facet struct {
	ByteStart int
	ByteEnd   int
	Link      string
	Mention   string
	Tag       string
}

// RichContent is destination-ready plain text plus its facets. Facet ranges
// are ordered, non-overlapping, and within the UTF-8 byte bounds of Text.
type RichContent struct {
	Text   string
	Facets []Facet
}

// EmbedSpec is the non-text payload of a destination post. Video and Images
// never coexist; a zero EmbedSpec means text-only.
type EmbedSpec struct {
	Images []NormalizedMedia
	Video  *NormalizedMedia
}

// Empty reports whether the post carries no media at all.
func (e EmbedSpec) Empty() bool {
	return e.Video == nil && len(e.Images) == 0
}

// Source fetches recent posts from the origin platform.
type Source interface {
	Name() string
	RecentPosts(ctx context.Context, limit int) ([]SourcePost, error)
}

// Publisher submits a finished post to the destination platform, uploading
// any embedded media first. Returns a reference to the created post.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, content RichContent, embed EmbedSpec) (string, error)
}

// Ledger is the durable set of source-post IDs already mirrored. Add is only
// called once a post's outcome is final.
type Ledger interface {
	Has(id string) (bool, error)
	Add(id string) error
	Close() error
}

// MediaFetcher retrieves a remote media resource into memory.
type MediaFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ImageNormalizer re-encodes an image to satisfy the destination's byte and
// format budget, or fails.
type ImageNormalizer interface {
	Normalize(data []byte) (NormalizedMedia, error)
}

// VideoNormalizer transcodes a video to satisfy the destination's byte
// budget, or fails.
type VideoNormalizer interface {
	Normalize(ctx context.Context, data []byte) (NormalizedMedia, error)
}

// ContentTransformer converts source markup into destination-ready text.
type ContentTransformer interface {
	Transform(markup string) (RichContent, error)
}
