package tts

import (
	"encoding/json"
	"log"
	"math"
	"os"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"articlecast/types"
)

// emptyFallbackSec stands in for scenes whose narration produced no audio.
const emptyFallbackSec = 2.0

// Corrector overwrites planned scene durations with measured audio
// lengths. The corrected values drive image display time and subtitle
// timing during composition.
type Corrector struct{}

func NewCorrector() *Corrector { return &Corrector{} }

// Correct pairs scenes with audio paths positionally and returns
// updated copies. A length mismatch is handled by the shorter side.
func (Corrector) Correct(scenes []types.Scene, audioPaths []string) []types.Scene {
	n := len(scenes)
	if len(audioPaths) != n {
		log.Printf("Warning: %d scenes but %d audio files, correcting the overlap only", n, len(audioPaths))
		if len(audioPaths) < n {
			n = len(audioPaths)
		}
	}

	corrected := make([]types.Scene, len(scenes))
	copy(corrected, scenes)

	var total float64
	for i := 0; i < n; i++ {
		dur := audioDuration(audioPaths[i])
		if dur <= 0 {
			dur = emptyFallbackSec
		}
		corrected[i].DurationSec = math.Round(dur*1000) / 1000
		total += corrected[i].DurationSec
	}
	log.Printf("Corrected %d scene durations, %.1fs total", n, total)
	return corrected
}

// audioDuration probes the file with ffprobe, falling back to a
// bitrate-based size estimate when probing fails.
func audioDuration(path string) float64 {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return 0.0
	}

	if raw, err := ffmpeg.Probe(path); err == nil {
		var parsed struct {
			Format struct {
				Duration string `json:"duration"`
			} `json:"format"`
		}
		if json.Unmarshal([]byte(raw), &parsed) == nil {
			if dur, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil && dur > 0 {
				return dur
			}
		}
	}

	// Assume 128kbps mp3.
	estimated := float64(info.Size()) / (128 * 1000 / 8)
	log.Printf("Warning: could not probe %s, estimating %.1fs from size", path, estimated)
	return estimated
}
