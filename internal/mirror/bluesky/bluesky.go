package bluesky

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"

	"github.com/blacktop/skymirror/internal/logutil"
	"github.com/blacktop/skymirror/internal/mirror"
)

const (
	envHandle      = "SKYMIRROR_BLUESKY_HANDLE"
	envAppPassword = "SKYMIRROR_BLUESKY_APP_PASSWORD"
	envPDSURL      = "SKYMIRROR_BLUESKY_PDS_URL"

	providerName   = "bluesky"
	requestTimeout = 30 * time.Second
)

// Config allows the caller to supply defaults prior to reading environment variables.
type Config struct {
	PDSURL string
}

// Client publishes mirrored posts to a Bluesky account.
type Client struct {
	client *xrpc.Client
}

// New constructs a Bluesky publisher and authenticates a session.
func New(ctx context.Context, base Config) (*Client, error) {
	cfg, err := loadConfig(base)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: requestTimeout}
	userAgent := "skymirror/1"
	xrpcClient := &xrpc.Client{
		Client:    httpClient,
		Host:      cfg.PDSURL,
		UserAgent: &userAgent,
	}

	session, err := atproto.ServerCreateSession(ctx, xrpcClient, &atproto.ServerCreateSession_Input{
		Identifier: cfg.Handle,
		Password:   cfg.AppPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	xrpcClient.Auth = &xrpc.AuthInfo{
		AccessJwt:  session.AccessJwt,
		RefreshJwt: session.RefreshJwt,
		Handle:     session.Handle,
		Did:        session.Did,
	}

	return &Client{client: xrpcClient}, nil
}

// Name identifies the provider.
func (c *Client) Name() string { return providerName }

// Publish uploads the embed's media and creates the post record. Returns the
// at:// URI of the new post.
func (c *Client) Publish(ctx context.Context, content mirror.RichContent, embed mirror.EmbedSpec) (string, error) {
	post := &bsky.FeedPost{
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Text:      content.Text,
		Facets:    c.buildFacets(ctx, content.Facets),
	}

	postEmbed, err := c.buildEmbed(ctx, embed)
	if err != nil {
		return "", mirror.PublishError{Provider: providerName, Err: err}
	}
	post.Embed = postEmbed

	resp, err := atproto.RepoCreateRecord(ctx, c.client, &atproto.RepoCreateRecord_Input{
		Collection: "app.bsky.feed.post",
		Repo:       c.client.Auth.Did,
		Record: &util.LexiconTypeDecoder{
			Val: post,
		},
	})
	if err != nil {
		return "", mirror.PublishError{Provider: providerName, Err: fmt.Errorf("create record: %w", err)}
	}

	return resp.Uri, nil
}

// buildFacets maps facets onto the destination lexicon. Mention handles are
// resolved to DIDs here; a handle unknown to the network downgrades to the
// facet's fallback link, or disappears entirely, keeping the text intact.
func (c *Client) buildFacets(ctx context.Context, facets []mirror.Facet) []*bsky.RichtextFacet {
	var out []*bsky.RichtextFacet
	for _, f := range facets {
		var feature *bsky.RichtextFacet_Features_Elem
		switch {
		case f.Mention != "":
			feature = c.mentionFeature(ctx, f)
		case f.Link != "":
			feature = linkFeature(f.Link)
		case f.Tag != "":
			feature = &bsky.RichtextFacet_Features_Elem{
				RichtextFacet_Tag: &bsky.RichtextFacet_Tag{Tag: f.Tag},
			}
		}
		if feature == nil {
			continue
		}
		out = append(out, &bsky.RichtextFacet{
			Index: &bsky.RichtextFacet_ByteSlice{
				ByteStart: int64(f.ByteStart),
				ByteEnd:   int64(f.ByteEnd),
			},
			Features: []*bsky.RichtextFacet_Features_Elem{feature},
		})
	}
	return out
}

func (c *Client) mentionFeature(ctx context.Context, f mirror.Facet) *bsky.RichtextFacet_Features_Elem {
	resp, err := atproto.IdentityResolveHandle(ctx, c.client, f.Mention)
	if err == nil && resp.Did != "" {
		return &bsky.RichtextFacet_Features_Elem{
			RichtextFacet_Mention: &bsky.RichtextFacet_Mention{Did: resp.Did},
		}
	}
	logutil.Debugf("mention %q does not resolve, falling back to link", f.Mention)
	if f.Link != "" {
		return linkFeature(f.Link)
	}
	return nil
}

func linkFeature(uri string) *bsky.RichtextFacet_Features_Elem {
	return &bsky.RichtextFacet_Features_Elem{
		RichtextFacet_Link: &bsky.RichtextFacet_Link{Uri: uri},
	}
}

func (c *Client) buildEmbed(ctx context.Context, embed mirror.EmbedSpec) (*bsky.FeedPost_Embed, error) {
	switch {
	case embed.Video != nil:
		blob, err := c.uploadBlob(ctx, embed.Video.Bytes)
		if err != nil {
			return nil, err
		}
		video := &bsky.EmbedVideo{Video: blob}
		if alt := embed.Video.AltText; alt != "" {
			video.Alt = &alt
		}
		return &bsky.FeedPost_Embed{EmbedVideo: video}, nil

	case len(embed.Images) > 0:
		images := make([]*bsky.EmbedImages_Image, 0, len(embed.Images))
		for _, img := range embed.Images {
			blob, err := c.uploadBlob(ctx, img.Bytes)
			if err != nil {
				return nil, err
			}
			item := &bsky.EmbedImages_Image{
				Alt:   img.AltText,
				Image: blob,
			}
			if img.Width > 0 && img.Height > 0 {
				item.AspectRatio = &bsky.EmbedDefs_AspectRatio{Width: img.Width, Height: img.Height}
			}
			images = append(images, item)
		}
		return &bsky.FeedPost_Embed{
			EmbedImages: &bsky.EmbedImages{Images: images},
		}, nil
	}

	return nil, nil
}

func (c *Client) uploadBlob(ctx context.Context, data []byte) (*util.LexBlob, error) {
	resp, err := atproto.RepoUploadBlob(ctx, c.client, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("upload blob: %w", err)
	}
	if resp.Blob == nil {
		return nil, fmt.Errorf("upload blob: empty response")
	}
	logutil.Debugf("uploaded blob: %d bytes", len(data))
	return resp.Blob, nil
}

// ProviderConfig merges defaults with environment-defined values.
type ProviderConfig struct {
	Handle      string
	AppPassword string
	PDSURL      string
}

func loadConfig(base Config) (ProviderConfig, error) {
	cfg := ProviderConfig{
		Handle:      strings.TrimSpace(os.Getenv(envHandle)),
		AppPassword: strings.TrimSpace(os.Getenv(envAppPassword)),
		PDSURL:      strings.TrimSpace(os.Getenv(envPDSURL)),
	}

	if cfg.PDSURL == "" {
		cfg.PDSURL = strings.TrimSpace(base.PDSURL)
	}
	if cfg.PDSURL == "" {
		cfg.PDSURL = "https://bsky.social"
	}

	var missing []string
	if cfg.Handle == "" {
		missing = append(missing, envHandle)
	}
	if cfg.AppPassword == "" {
		missing = append(missing, envAppPassword)
	}

	if len(missing) > 0 {
		return ProviderConfig{}, mirror.MissingEnvError{Provider: providerName, Variables: missing}
	}

	return cfg, nil
}
