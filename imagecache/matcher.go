package imagecache

import (
	"context"
	"os"
	"sort"
	"strings"
)

// Match pairs a cached entry with its similarity to the query prompt.
type Match struct {
	Entry      Entry
	Similarity float64
}

// Index answers similarity queries over a Store.
type Index struct {
	store Store
}

func NewIndex(store Store) *Index {
	return &Index{store: store}
}

// Store exposes the backing store, for direct appends.
func (x *Index) Store() Store { return x.store }

const tokenStrip = ".,;:()[]\"'"

// tokenize splits a prompt into its significant lowercase words. Very
// short tokens carry no signal for prompt similarity and are dropped.
func tokenize(prompt string) map[string]bool {
	tokens := map[string]bool{}
	for _, f := range strings.Fields(strings.ToLower(prompt)) {
		f = strings.Trim(f, tokenStrip)
		if len([]rune(f)) <= 2 {
			continue
		}
		tokens[f] = true
	}
	return tokens
}

// jaccard returns |a∩b| / |a∪b|, or 0 when either set is empty.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// FindSimilar returns up to limit cached entries whose prompt scores at
// least threshold against the query, best first. Ties keep insertion
// order. Entries whose image file no longer exists are skipped but left
// in the index.
func (x *Index) FindSimilar(ctx context.Context, prompt string, threshold float64, limit int) ([]Match, error) {
	entries, err := x.store.Entries(ctx)
	if err != nil {
		return nil, err
	}
	query := tokenize(prompt)

	var matches []Match
	for _, e := range entries {
		sim := jaccard(query, tokenize(e.Prompt))
		if sim < threshold {
			continue
		}
		if _, err := os.Stat(e.ImagePath); err != nil {
			continue
		}
		matches = append(matches, Match{Entry: e, Similarity: sim})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// ClearMissing drops every entry whose image file is gone and returns
// how many were removed. This is the only operation that shrinks the index.
func (x *Index) ClearMissing(ctx context.Context) (int, error) {
	entries, err := x.store.Entries(ctx)
	if err != nil {
		return 0, err
	}
	var stale []int64
	for _, e := range entries {
		if _, err := os.Stat(e.ImagePath); err != nil {
			stale = append(stale, e.ID)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := x.store.Remove(ctx, stale); err != nil {
		return 0, err
	}
	return len(stale), nil
}
