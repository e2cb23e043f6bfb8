// Package feedwatch polls an RSS/Atom feed and enqueues new articles
// as pipeline jobs.
package feedwatch

import (
	"context"
	"log"
	"time"

	"github.com/mmcdole/gofeed"

	"articlecast/config"
)

// RunFunc produces a video for one article URL.
type RunFunc func(ctx context.Context, url string) error

// Watcher polls one feed. Seen links are tracked in memory; restarting
// the watcher re-reads the feed but completed jobs resume from their
// checkpoints, so duplicate work stays cheap.
type Watcher struct {
	feedURL  string
	interval time.Duration
	maxItems int
	run      RunFunc
	seen     map[string]bool
}

func NewWatcher(feedURL string, run RunFunc) *Watcher {
	return &Watcher{
		feedURL:  feedURL,
		interval: config.FeedPollInterval,
		maxItems: config.FeedMaxItems,
		run:      run,
		seen:     map[string]bool{},
	}
}

// Watch polls until the context ends. The first poll only primes the
// seen set so a fresh watcher does not replay the feed's backlog.
func (w *Watcher) Watch(ctx context.Context) error {
	log.Printf("Watching feed %s every %s", w.feedURL, w.interval)

	w.poll(ctx, true)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.poll(ctx, false)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Watcher) poll(ctx context.Context, primeOnly bool) {
	parser := gofeed.NewParser()
	feed, err := parser.ParseURLWithContext(w.feedURL, ctx)
	if err != nil {
		log.Printf("Warning: feed poll failed: %v", err)
		return
	}

	count := len(feed.Items)
	if count > w.maxItems {
		count = w.maxItems
	}

	for i := 0; i < count; i++ {
		item := feed.Items[i]
		if item.Link == "" || w.seen[item.Link] {
			continue
		}
		w.seen[item.Link] = true
		if primeOnly {
			continue
		}

		log.Printf("New feed item: %s", item.Title)
		if err := w.run(ctx, item.Link); err != nil {
			log.Printf("Warning: job for %s failed: %v", item.Link, err)
		}
	}
}
