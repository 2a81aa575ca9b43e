package mirror

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/blacktop/skymirror/internal/logutil"
)

// DefaultFetchLimit bounds the recent-post window requested from the source.
const DefaultFetchLimit = 20

// Stats summarizes one sync pass.
type Stats struct {
	Fetched   int // posts returned by the source
	New       int // posts not yet in the ledger
	Published int // posts published (or that would be, under dry-run)
	Skipped   int // posts decided unpublishable and committed without publishing
	Failed    int // posts left uncommitted for retry on the next run
}

// Orchestrator drives one batch pass: fetch candidates, filter against the
// ledger, and per post transform, normalize media, publish, and commit.
// Posts are processed sequentially and independently; a per-post failure
// never aborts the run.
type Orchestrator struct {
	Source    Source
	Publisher Publisher
	Ledger    Ledger
	Fetcher   MediaFetcher
	Images    ImageNormalizer
	Videos    VideoNormalizer
	Transform ContentTransformer

	Limit  int
	DryRun bool
}

// Run executes a single sync pass. Only a failure to fetch the candidate
// window is fatal; everything downstream degrades per attachment or per post.
func (o *Orchestrator) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	limit := o.Limit
	if limit <= 0 {
		limit = DefaultFetchLimit
	}

	posts, err := o.Source.RecentPosts(ctx, limit)
	if err != nil {
		return stats, fmt.Errorf("fetch recent posts: %w", err)
	}
	stats.Fetched = len(posts)

	candidates, err := o.filter(posts)
	if err != nil {
		return stats, err
	}
	stats.New = len(candidates)
	if len(candidates) == 0 {
		logutil.Infof("no new posts")
		return stats, nil
	}

	for _, post := range candidates {
		o.processPost(ctx, post, &stats)
	}

	return stats, nil
}

// filter drops ledger members and orders the remainder oldest-first, so a
// partial run never leaves earlier content permanently behind later content.
func (o *Orchestrator) filter(posts []SourcePost) ([]SourcePost, error) {
	candidates := make([]SourcePost, 0, len(posts))
	for _, post := range posts {
		seen, err := o.Ledger.Has(post.ID)
		if err != nil {
			return nil, fmt.Errorf("ledger membership check: %w", err)
		}
		if seen {
			continue
		}
		candidates = append(candidates, post)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].ID < candidates[j].ID
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	return candidates, nil
}

func (o *Orchestrator) processPost(ctx context.Context, post SourcePost, stats *Stats) {
	content, err := o.Transform.Transform(post.Content)
	if err != nil {
		var rejected ContentRejected
		if errors.As(err, &rejected) {
			// Decision is final: record the post so it is never retried.
			logutil.Infof("skipping post %s: %v", post.ID, err)
			if o.DryRun {
				stats.Skipped++
				return
			}
			if err := o.Ledger.Add(post.ID); err != nil {
				logutil.Errorf("post %s skipped but not recorded: %v", post.ID, err)
				stats.Failed++
				return
			}
			stats.Skipped++
			return
		}
		logutil.Errorf("transform post %s: %v", post.ID, err)
		stats.Failed++
		return
	}

	embed := BuildEmbed(o.normalizeAttachments(ctx, post))

	if o.DryRun {
		logutil.Infof("[dry-run] would publish post %s: %q (images=%d video=%v)",
			post.ID, content.Text, len(embed.Images), embed.Video != nil)
		stats.Published++
		return
	}

	uri, err := o.Publisher.Publish(ctx, content, embed)
	if err != nil {
		// Left out of the ledger on purpose: retried next run.
		logutil.Errorf("publish post %s: %v", post.ID, err)
		stats.Failed++
		return
	}

	// Commit before anything else happens to this post, so a crash after
	// publish cannot replay it.
	if err := o.Ledger.Add(post.ID); err != nil {
		logutil.Errorf("post %s published as %s but not recorded: %v", post.ID, uri, err)
		stats.Failed++
		return
	}

	logutil.Infof("mirrored post %s to %s", post.ID, uri)
	stats.Published++
}

// normalizeAttachments fetches and normalizes each attachment in arrival
// order. A failing attachment is logged and dropped; the post goes on
// without it.
func (o *Orchestrator) normalizeAttachments(ctx context.Context, post SourcePost) []NormalizedMedia {
	var media []NormalizedMedia
	for _, att := range post.Attachments {
		normalized, err := o.normalizeAttachment(ctx, att)
		if err != nil {
			logutil.Warnf("dropping %s attachment of post %s: %v", att.Kind, post.ID, err)
			continue
		}
		media = append(media, normalized)
	}
	return media
}

func (o *Orchestrator) normalizeAttachment(ctx context.Context, att MediaAttachment) (NormalizedMedia, error) {
	data, err := o.Fetcher.Fetch(ctx, att.URL)
	if err != nil {
		return NormalizedMedia{}, err
	}

	var normalized NormalizedMedia
	switch att.Kind {
	case MediaImage:
		normalized, err = o.Images.Normalize(data)
	case MediaVideo:
		normalized, err = o.Videos.Normalize(ctx, data)
	default:
		err = fmt.Errorf("unsupported attachment kind %q", att.Kind)
	}
	if err != nil {
		return NormalizedMedia{}, err
	}

	normalized.AltText = att.AltText
	return normalized, nil
}
