package mastodon

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	mastodonapi "github.com/mattn/go-mastodon"

	"github.com/blacktop/skymirror/internal/logutil"
	"github.com/blacktop/skymirror/internal/mirror"
)

const (
	envServer      = "SKYMIRROR_MASTODON_SERVER"
	envAccountID   = "SKYMIRROR_MASTODON_ACCOUNT_ID"
	envAccessToken = "SKYMIRROR_MASTODON_ACCESS_TOKEN"

	providerName   = "mastodon"
	requestTimeout = 30 * time.Second
)

// Config contains the settings needed to read from a Mastodon server.
type Config struct {
	Server      string
	AccountID   string
	AccessToken string
}

// Client reads recent statuses for one account.
type Client struct {
	client    *mastodonapi.Client
	accountID mastodonapi.ID
}

// New constructs a Mastodon source based on environment configuration.
func New() (*Client, error) {
	cfg, err := loadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	mastodonClient := mastodonapi.NewClient(&mastodonapi.Config{
		Server:      cfg.Server,
		AccessToken: cfg.AccessToken,
	})
	mastodonClient.Timeout = requestTimeout

	return &Client{
		client:    mastodonClient,
		accountID: mastodonapi.ID(cfg.AccountID),
	}, nil
}

// Name identifies the provider.
func (c *Client) Name() string { return providerName }

// RecentPosts fetches the account's recent statuses, excluding replies and
// boosts, newest first as the API serves them.
func (c *Client) RecentPosts(ctx context.Context, limit int) ([]mirror.SourcePost, error) {
	statuses, err := c.client.GetAccountStatuses(ctx, c.accountID, &mastodonapi.Pagination{Limit: int64(limit)})
	if err != nil {
		return nil, mirror.FetchError{Err: fmt.Errorf("get account statuses: %w", err)}
	}

	posts := make([]mirror.SourcePost, 0, len(statuses))
	for _, status := range statuses {
		if status == nil || status.Reblog != nil || status.InReplyToID != nil {
			continue
		}
		posts = append(posts, toSourcePost(status))
	}

	logutil.Debugf("fetched %d statuses, %d original posts", len(statuses), len(posts))
	return posts, nil
}

func toSourcePost(status *mastodonapi.Status) mirror.SourcePost {
	post := mirror.SourcePost{
		ID:        string(status.ID),
		CreatedAt: status.CreatedAt,
		Content:   status.Content,
	}

	for _, att := range status.MediaAttachments {
		kind, ok := attachmentKind(att.Type)
		if !ok {
			logutil.Debugf("ignoring %q attachment on status %s", att.Type, status.ID)
			continue
		}
		url := att.URL
		if url == "" {
			url = att.RemoteURL
		}
		if url == "" {
			continue
		}
		post.Attachments = append(post.Attachments, mirror.MediaAttachment{
			Kind:    kind,
			URL:     url,
			AltText: strings.TrimSpace(att.Description),
		})
	}

	return post
}

func attachmentKind(mediaType string) (mirror.MediaKind, bool) {
	switch mediaType {
	case "image":
		return mirror.MediaImage, true
	case "video", "gifv":
		return mirror.MediaVideo, true
	default:
		return "", false
	}
}

func loadConfigFromEnv() (Config, error) {
	cfg := Config{
		Server:      strings.TrimSpace(os.Getenv(envServer)),
		AccountID:   strings.TrimSpace(os.Getenv(envAccountID)),
		AccessToken: strings.TrimSpace(os.Getenv(envAccessToken)),
	}

	var missing []string
	if cfg.Server == "" {
		missing = append(missing, envServer)
	}
	if cfg.AccountID == "" {
		missing = append(missing, envAccountID)
	}
	if cfg.AccessToken == "" {
		missing = append(missing, envAccessToken)
	}

	if len(missing) > 0 {
		return Config{}, mirror.MissingEnvError{Provider: providerName, Variables: missing}
	}

	return cfg, nil
}
