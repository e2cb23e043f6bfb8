package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"articlecast/app"
	"articlecast/config"
	"articlecast/confirm"
	"articlecast/feedwatch"
)

// feedPresets maps short names to well known feeds so the watcher can
// be pointed at a source without remembering its URL.
var feedPresets = map[string]string{
	"cna": "https://www.channelnewsasia.com/api/v1/rss-outbound-feed?_format=xml",
	"st":  "https://www.straitstimes.com/news/singapore/rss.xml",
	"hn":  "https://hnrss.org/frontpage",
	"tr":  "https://www.technologyreview.com/feed/",
}

var watchCmd = &cobra.Command{
	Use:   "watch <feed-url-or-preset>",
	Short: "Poll a feed and produce a video for every new article",
	Long: `Polls an RSS/Atom feed and runs the pipeline for each new item.
Confirmation gates auto-approve since nobody is at the terminal.

Presets: ` + presetNames(),
	Args: cobra.ExactArgs(1),
	RunE: watchMain,
}

func watchMain(cmd *cobra.Command, args []string) error {
	settings := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feedURL := resolveFeedURL(args[0])
	factory, err := app.NewFactory(ctx, settings)
	if err != nil {
		return err
	}

	watcher := feedwatch.NewWatcher(feedURL, func(ctx context.Context, url string) error {
		p, ledger, err := factory.NewPipeline(ctx, url, "", app.JobOptions{
			Confirm: confirm.Auto{},
		})
		if err != nil {
			return err
		}
		if err := p.Run(ctx, 0); err != nil {
			return err
		}
		log.Printf("Job %s done\n%s", p.JobID(), ledger.Summary())
		return nil
	})

	if err := watcher.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// resolveFeedURL maps a preset name to its feed, passing URLs through.
func resolveFeedURL(arg string) string {
	if url, ok := feedPresets[strings.ToLower(arg)]; ok {
		return url
	}
	return arg
}

func presetNames() string {
	names := make([]string, 0, len(feedPresets))
	for name := range feedPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
