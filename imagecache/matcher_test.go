package imagecache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}

func newTestIndex(t *testing.T) (*Index, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "index.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return NewIndex(store), dir
}

func TestTokenize(t *testing.T) {
	cases := []struct {
		name   string
		prompt string
		want   []string
	}{
		{"lowercases", "A Red FOX", []string{"red", "fox"}},
		{"strips punctuation", "fox, (running) \"fast\".", []string{"fox", "running", "fast"}},
		{"drops short tokens", "a an of fox", []string{"fox"}},
		{"empty", "", nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := tokenize(c.prompt)
			if len(got) != len(c.want) {
				t.Fatalf("tokenize(%q) = %v; want %v", c.prompt, got, c.want)
			}
			for _, w := range c.want {
				if !got[w] {
					t.Fatalf("tokenize(%q) missing %q", c.prompt, w)
				}
			}
		})
	}
}

func TestJaccard(t *testing.T) {
	a := tokenize("red fox running")
	b := tokenize("red fox sleeping")
	// intersection 2, union 4
	if got := jaccard(a, b); got != 0.5 {
		t.Fatalf("jaccard = %v; want 0.5", got)
	}
	if got := jaccard(a, a); got != 1.0 {
		t.Fatalf("jaccard with itself = %v; want 1", got)
	}
	if got := jaccard(a, map[string]bool{}); got != 0.0 {
		t.Fatalf("jaccard with empty set = %v; want 0", got)
	}
	if got := jaccard(map[string]bool{}, map[string]bool{}); got != 0.0 {
		t.Fatalf("jaccard of two empty sets = %v; want 0", got)
	}
}

func TestFindSimilarThresholdAndOrder(t *testing.T) {
	idx, dir := newTestIndex(t)
	ctx := context.Background()

	entries := []Entry{
		{Prompt: "red fox running through forest", ImagePath: writeImage(t, dir, "a.png")},
		{Prompt: "red fox running through snow", ImagePath: writeImage(t, dir, "b.png")},
		{Prompt: "blue whale swimming deep ocean", ImagePath: writeImage(t, dir, "c.png")},
	}
	for _, e := range entries {
		if _, err := idx.Store().Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	matches, err := idx.FindSimilar(ctx, "red fox running through forest", 0.5, 5)
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches; want 2", len(matches))
	}
	if matches[0].Similarity != 1.0 {
		t.Fatalf("best match similarity = %v; want 1", matches[0].Similarity)
	}
	if matches[0].Similarity < matches[1].Similarity {
		t.Fatal("matches not sorted best first")
	}
}

func TestFindSimilarSkipsMissingFiles(t *testing.T) {
	idx, dir := newTestIndex(t)
	ctx := context.Background()

	alive := writeImage(t, dir, "alive.png")
	gone := filepath.Join(dir, "gone.png")
	for _, e := range []Entry{
		{Prompt: "red fox running", ImagePath: gone},
		{Prompt: "red fox running", ImagePath: alive},
	} {
		if _, err := idx.Store().Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	matches, err := idx.FindSimilar(ctx, "red fox running", 0.8, 5)
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches; want 1", len(matches))
	}
	if matches[0].Entry.ImagePath != alive {
		t.Fatalf("matched the missing file: %s", matches[0].Entry.ImagePath)
	}

	// Skipping does not shrink the index.
	entries, err := idx.Store().Entries(ctx)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("index shrank to %d entries", len(entries))
	}
}

func TestFindSimilarLimit(t *testing.T) {
	idx, dir := newTestIndex(t)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		e := Entry{Prompt: "red fox running", ImagePath: writeImage(t, dir, filepath.Base(t.Name())+string(rune('a'+i))+".png")}
		if _, err := idx.Store().Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	matches, err := idx.FindSimilar(ctx, "red fox running", 0.8, 3)
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("got %d matches; want the limit of 3", len(matches))
	}
}

func TestClearMissing(t *testing.T) {
	idx, dir := newTestIndex(t)
	ctx := context.Background()

	alive := writeImage(t, dir, "alive.png")
	for _, e := range []Entry{
		{Prompt: "one", ImagePath: filepath.Join(dir, "gone1.png")},
		{Prompt: "two", ImagePath: alive},
		{Prompt: "three", ImagePath: filepath.Join(dir, "gone2.png")},
	} {
		if _, err := idx.Store().Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	removed, err := idx.ClearMissing(ctx)
	if err != nil {
		t.Fatalf("ClearMissing: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed %d entries; want 2", removed)
	}
	entries, err := idx.Store().Entries(ctx)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 || entries[0].ImagePath != alive {
		t.Fatalf("unexpected surviving entries: %+v", entries)
	}
}

func TestAppendIsAppendOnly(t *testing.T) {
	idx, dir := newTestIndex(t)
	ctx := context.Background()

	img := writeImage(t, dir, "dup.png")
	// The same prompt appended twice stays as two entries.
	e := Entry{Prompt: "red fox running", ImagePath: img}
	id1, err := idx.Store().Append(ctx, e)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	id2, err := idx.Store().Append(ctx, e)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if id2 <= id1 {
		t.Fatalf("ids not increasing: %d then %d", id1, id2)
	}
	entries, err := idx.Store().Entries(ctx)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("duplicate prompt was merged: %d entries", len(entries))
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.json")
	ctx := context.Background()

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := store.Append(ctx, Entry{Prompt: "p", ImagePath: writeImage(t, dir, "x.png")}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	entries, err := reopened.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Prompt != "p" {
		t.Fatalf("entries after reopen: %+v", entries)
	}
}
