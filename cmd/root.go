/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blacktop/skymirror/internal/content"
	"github.com/blacktop/skymirror/internal/ledger"
	"github.com/blacktop/skymirror/internal/logutil"
	"github.com/blacktop/skymirror/internal/media"
	"github.com/blacktop/skymirror/internal/mirror"
	"github.com/blacktop/skymirror/internal/mirror/bluesky"
	"github.com/blacktop/skymirror/internal/mirror/mastodon"
)

var (
	limitFlag  int
	ledgerPath string
	dryRun     bool
	verbose    bool
)

const (
	defaultBlueskyPDSURL = "https://bsky.social"
	defaultLedgerPath    = "skymirror.ledger.json"

	envLedgerPath   = "SKYMIRROR_LEDGER_PATH"
	envVideoProfile = "SKYMIRROR_VIDEO_PROFILE"
	envURLDenylist  = "SKYMIRROR_URL_DENYLIST"
)

// Execute runs the root command.
func Execute() error {
	return newRootCommand().Execute()
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skymirror",
		Short: "Mirror recent Mastodon posts to Bluesky",
		Long: "skymirror runs one batch pass: it fetches an account's recent Mastodon posts, " +
			"normalizes their media for Bluesky's limits, and publishes whatever has not been " +
			"mirrored yet. Intended to be invoked from a scheduler; overlapping runs are not supported.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRoot,
		Example: `  skymirror
  skymirror --dry-run --verbose
  skymirror --limit 5 --ledger /var/lib/skymirror/ledger.json`,
	}

	cmd.Flags().IntVarP(&limitFlag, "limit", "n", mirror.DefaultFetchLimit, "How many recent posts to consider")
	cmd.Flags().StringVar(&ledgerPath, "ledger", "", "Ledger path (.json for a file, .db/.sqlite for SQLite)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run the pipeline without publishing or recording anything")
	cmd.Flags().BoolVarP(&verbose, "verbose", "V", false, "Enable debug logging")
	cmd.Flags().SortFlags = false

	return cmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logutil.SetVerbose(verbose)

	source, err := mastodon.New()
	if err != nil {
		return err
	}

	// Dry runs skip destination auth entirely; the orchestrator never
	// touches the publisher in that mode.
	var publisher mirror.Publisher
	if !dryRun {
		publisher, err = bluesky.New(ctx, bluesky.Config{PDSURL: defaultBlueskyPDSURL})
		if err != nil {
			return err
		}
	}

	store, err := openLedger(resolveLedgerPath())
	if err != nil {
		return err
	}
	defer store.Close()

	videos := media.NewVideoNormalizer(&media.LocalExecutor{})
	if path := strings.TrimSpace(os.Getenv(envVideoProfile)); path != "" {
		profile, err := media.LoadEncodeProfile(path)
		if err != nil {
			return err
		}
		videos.Profile = profile
	}

	orch := &mirror.Orchestrator{
		Source:    source,
		Publisher: publisher,
		Ledger:    store,
		Fetcher:   media.NewFetcher(),
		Images:    media.NewImageNormalizer(),
		Videos:    videos,
		Transform: content.NewTransformer(urlDenylist()...),
		Limit:     limitFlag,
		DryRun:    dryRun,
	}

	stats, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	logutil.Infof("run complete: fetched=%d new=%d published=%d skipped=%d failed=%d",
		stats.Fetched, stats.New, stats.Published, stats.Skipped, stats.Failed)
	return nil
}

func resolveLedgerPath() string {
	if ledgerPath != "" {
		return ledgerPath
	}
	if path := strings.TrimSpace(os.Getenv(envLedgerPath)); path != "" {
		return path
	}
	return defaultLedgerPath
}

func openLedger(path string) (mirror.Ledger, error) {
	switch {
	case strings.HasSuffix(path, ".db"), strings.HasSuffix(path, ".sqlite"):
		return ledger.OpenSQLite(path)
	default:
		return ledger.OpenFile(path), nil
	}
}

func urlDenylist() []string {
	raw := strings.TrimSpace(os.Getenv(envURLDenylist))
	if raw == "" {
		return []string{"https://twitter.com/", "https://x.com/"}
	}
	var patterns []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}
