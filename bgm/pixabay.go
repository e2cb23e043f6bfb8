// Package bgm selects and materializes a background track matching the
// scenario's dominant stage.
package bgm

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"articlecast/config"
)

const (
	pixabayMusicAPI = "https://pixabay.com/api/music/"
	searchPerPage   = 10
	// silentDurationSec covers the longest render plus headroom.
	silentDurationSec = 330
)

// PixabaySelector searches the Pixabay Music API for a track and
// downloads it to a local cache. Every failure degrades to a silent
// track so the pipeline never stalls on music.
type PixabaySelector struct {
	apiKey   string
	endpoint string
	client   *http.Client
	rand     *rand.Rand
}

func NewPixabaySelector(apiKey string) *PixabaySelector {
	return &PixabaySelector{
		apiKey: apiKey,
		client: &http.Client{Timeout: 60 * time.Second},
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Select searches by the stage's keyword and returns an audio URL.
// An empty URL means no track was found; Fetch substitutes silence.
func (p *PixabaySelector) Select(ctx context.Context, stage string) (string, error) {
	keyword, ok := config.BGMStageKeywords[stage]
	if !ok {
		keyword = config.BGMStageKeywords["core"]
	}
	log.Printf("Searching music for stage %q with keyword %q", stage, keyword)

	tracks, err := p.search(ctx, keyword)
	if err != nil {
		log.Printf("Warning: music search failed: %v", err)
	}
	if len(tracks) == 0 {
		// Retry with the first word only; compound keywords over-filter.
		simple := strings.Fields(keyword)
		if len(simple) > 0 {
			tracks, err = p.search(ctx, simple[0])
			if err != nil {
				log.Printf("Warning: music search retry failed: %v", err)
			}
		}
	}
	if len(tracks) == 0 {
		log.Printf("Warning: no music found, a silent track will be used")
		return "", nil
	}

	// Pick among the top hits so repeated runs vary the soundtrack.
	pool := tracks
	if len(pool) > 5 {
		pool = pool[:5]
	}
	track := pool[p.rand.Intn(len(pool))]
	audioURL := extractAudioURL(track)
	if audioURL == "" {
		log.Printf("Warning: could not extract an audio URL from the selected track")
	}
	return audioURL, nil
}

func (p *PixabaySelector) search(ctx context.Context, keyword string) ([]map[string]any, error) {
	if p.apiKey == "" {
		log.Printf("Warning: no Pixabay API key configured, skipping music search")
		return nil, nil
	}
	endpoint := p.endpoint
	if endpoint == "" {
		endpoint = pixabayMusicAPI
	}

	q := url.Values{}
	q.Set("key", p.apiKey)
	q.Set("q", keyword)
	q.Set("per_page", fmt.Sprint(searchPerPage))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pixabay error: status %d", resp.StatusCode)
	}

	var parsed struct {
		Hits []map[string]any `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode pixabay response: %w", err)
	}
	return parsed.Hits, nil
}

// extractAudioURL tries the known URL fields of a track object. The
// field name has changed across API revisions, so several candidates
// are probed, including one level of nesting.
func extractAudioURL(track map[string]any) string {
	candidates := []string{"audio", "preview_url", "download_url", "url"}
	for _, key := range candidates {
		switch v := track[key].(type) {
		case string:
			if strings.HasPrefix(v, "http") {
				return v
			}
		case map[string]any:
			for _, sub := range []string{"url", "download_url", "preview_url"} {
				if inner, ok := v[sub].(string); ok && strings.HasPrefix(inner, "http") {
					return inner
				}
			}
		}
	}
	return ""
}

// Fetch downloads the track into cacheDir, reusing a hash-named cache
// file for repeated URLs. An empty URL or a failed download yields a
// generated silent track.
func (p *PixabaySelector) Fetch(ctx context.Context, audioURL, cacheDir string) (string, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create music cache dir: %w", err)
	}
	if audioURL == "" {
		return silentTrack(cacheDir)
	}

	sum := md5.Sum([]byte(audioURL))
	cachePath := filepath.Join(cacheDir, fmt.Sprintf("bgm_%s.mp3", hex.EncodeToString(sum[:])[:16]))
	if info, err := os.Stat(cachePath); err == nil && info.Size() > 0 {
		return cachePath, nil
	}

	log.Printf("Downloading music from %s", audioURL)
	req, err := http.NewRequestWithContext(ctx, "GET", audioURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		log.Printf("Warning: music download failed: %v", err)
		return silentTrack(cacheDir)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("Warning: music download got status %d", resp.StatusCode)
		return silentTrack(cacheDir)
	}

	out, err := os.Create(cachePath)
	if err != nil {
		return "", fmt.Errorf("create music cache file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(cachePath)
		log.Printf("Warning: music download interrupted: %v", err)
		return silentTrack(cacheDir)
	}
	out.Close()
	return cachePath, nil
}

// silentTrack renders a silent mp3 once per cache dir so music
// failures never stop a render.
func silentTrack(cacheDir string) (string, error) {
	path := filepath.Join(cacheDir, "silent_bgm.mp3")
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return path, nil
	}

	err := ffmpeg.Input("anullsrc=r=44100:cl=stereo",
		ffmpeg.KwArgs{"f": "lavfi", "t": fmt.Sprint(silentDurationSec)}).
		Output(path, ffmpeg.KwArgs{"b:a": "64k"}).
		OverWriteOutput().
		Run()
	if err != nil {
		return "", fmt.Errorf("generate silent track: %w", err)
	}
	return path, nil
}
