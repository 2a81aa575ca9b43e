package mastodon

import (
	"testing"
	"time"

	mastodonapi "github.com/mattn/go-mastodon"
	"github.com/stretchr/testify/require"

	"github.com/blacktop/skymirror/internal/mirror"
)

func TestToSourcePostMapsAttachments(t *testing.T) {
	created := time.Date(2025, 7, 4, 9, 0, 0, 0, time.UTC)
	status := &mastodonapi.Status{
		ID:        "115000",
		CreatedAt: created,
		Content:   "<p>hi</p>",
		MediaAttachments: []mastodonapi.Attachment{
			{Type: "image", URL: "https://files.example/1.png", Description: " a cat "},
			{Type: "gifv", URL: "https://files.example/2.mp4"},
			{Type: "video", RemoteURL: "https://files.example/3.mp4"},
			{Type: "audio", URL: "https://files.example/4.mp3"},
			{Type: "image"}, // no usable URL
		},
	}

	post := toSourcePost(status)
	require.Equal(t, "115000", post.ID)
	require.Equal(t, created, post.CreatedAt)
	require.Equal(t, "<p>hi</p>", post.Content)

	require.Len(t, post.Attachments, 3)
	require.Equal(t, mirror.MediaImage, post.Attachments[0].Kind)
	require.Equal(t, "a cat", post.Attachments[0].AltText)
	require.Equal(t, mirror.MediaVideo, post.Attachments[1].Kind)
	require.Equal(t, mirror.MediaVideo, post.Attachments[2].Kind)
	require.Equal(t, "https://files.example/3.mp4", post.Attachments[2].URL)
}

func TestAttachmentKind(t *testing.T) {
	cases := []struct {
		in   string
		kind mirror.MediaKind
		ok   bool
	}{
		{"image", mirror.MediaImage, true},
		{"video", mirror.MediaVideo, true},
		{"gifv", mirror.MediaVideo, true},
		{"audio", "", false},
		{"unknown", "", false},
	}
	for _, tc := range cases {
		kind, ok := attachmentKind(tc.in)
		require.Equal(t, tc.ok, ok, tc.in)
		require.Equal(t, tc.kind, kind, tc.in)
	}
}

func TestLoadConfigFromEnvReportsAllMissing(t *testing.T) {
	t.Setenv(envServer, "")
	t.Setenv(envAccountID, "")
	t.Setenv(envAccessToken, "")

	_, err := loadConfigFromEnv()
	var missing mirror.MissingEnvError
	require.ErrorAs(t, err, &missing)
	require.Len(t, missing.Variables, 3)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv(envServer, "https://example.social")
	t.Setenv(envAccountID, "42")
	t.Setenv(envAccessToken, " token ")

	cfg, err := loadConfigFromEnv()
	require.NoError(t, err)
	require.Equal(t, "https://example.social", cfg.Server)
	require.Equal(t, "42", cfg.AccountID)
	require.Equal(t, "token", cfg.AccessToken)
}
