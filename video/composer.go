// Package video renders the final videos from scene images, narration
// audio and a background track.
package video

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"articlecast/config"
	"articlecast/pipeline"
	"articlecast/types"
)

// Composer renders landscape and shorts cuts with ffmpeg. Segments are
// rendered per scene and concatenated, then music and subtitles are
// applied in a final pass.
type Composer struct {
	// TempDir holds intermediate segments; defaults to os.TempDir().
	TempDir string
}

func NewComposer() *Composer { return &Composer{} }

func (c *Composer) tempDir() string {
	if c.TempDir != "" {
		return c.TempDir
	}
	return os.TempDir()
}

// ComposeLandscape renders a 16:9 cut. Scenes pair positionally with
// image and audio paths.
func (c *Composer) ComposeLandscape(ctx context.Context, in pipeline.CompositionInput) (string, error) {
	if len(in.Scenes) == 0 {
		return "", fmt.Errorf("no scenes to compose")
	}
	if len(in.ImagePaths) < len(in.Scenes) || len(in.AudioPaths) < len(in.Scenes) {
		return "", fmt.Errorf("composition inputs misaligned: %d scenes, %d images, %d audio clips",
			len(in.Scenes), len(in.ImagePaths), len(in.AudioPaths))
	}

	pairs := make([]segmentSource, len(in.Scenes))
	for i, s := range in.Scenes {
		pairs[i] = segmentSource{scene: s, image: in.ImagePaths[i], audio: in.AudioPaths[i]}
	}
	return c.render(ctx, pairs, in, false)
}

// ComposeShorts renders a 9:16 cut from the shorts scene selection.
// Shorts scenes keep their long-form scene ids, which index into the
// full image and audio lists. An id without a matching asset fails the
// render rather than silently pairing the wrong image.
func (c *Composer) ComposeShorts(ctx context.Context, in pipeline.CompositionInput) (string, error) {
	if len(in.Scenes) == 0 {
		return "", fmt.Errorf("no scenes to compose")
	}

	pairs := make([]segmentSource, len(in.Scenes))
	for i, s := range in.Scenes {
		idx := s.SceneID - 1
		if idx < 0 || idx >= len(in.ImagePaths) || idx >= len(in.AudioPaths) {
			return "", fmt.Errorf("shorts scene %d has no matching image or audio (have %d images, %d clips)",
				s.SceneID, len(in.ImagePaths), len(in.AudioPaths))
		}
		pairs[i] = segmentSource{scene: s, image: in.ImagePaths[idx], audio: in.AudioPaths[idx]}
	}
	return c.render(ctx, pairs, in, true)
}

type segmentSource struct {
	scene types.Scene
	image string
	audio string
}

func (c *Composer) render(ctx context.Context, pairs []segmentSource, in pipeline.CompositionInput, shorts bool) (string, error) {
	workDir, err := os.MkdirTemp(c.tempDir(), "compose-*")
	if err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	listPath, err := c.renderSegments(ctx, pairs, workDir, shorts)
	if err != nil {
		return "", err
	}

	basePath := filepath.Join(workDir, "concat.mp4")
	if err := concatSegments(listPath, basePath); err != nil {
		return "", err
	}

	if err := c.finalPass(pairs, basePath, in, shorts); err != nil {
		return "", err
	}
	log.Printf("Composed %s (%d scenes)", in.OutputPath, len(pairs))
	return in.OutputPath, nil
}

// renderSegments writes one clip per scene and a concat list file.
func (c *Composer) renderSegments(ctx context.Context, pairs []segmentSource, workDir string, shorts bool) (string, error) {
	var list strings.Builder
	for i, p := range pairs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		segPath := filepath.Join(workDir, fmt.Sprintf("seg_%03d.mp4", i))
		if err := renderSegment(p, segPath, shorts); err != nil {
			return "", fmt.Errorf("scene %d: %w", p.scene.SceneID, err)
		}
		fmt.Fprintf(&list, "file '%s'\n", filepath.ToSlash(segPath))
	}

	listPath := filepath.Join(workDir, "segments.txt")
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return "", fmt.Errorf("write concat list: %w", err)
	}
	return listPath, nil
}

// renderSegment loops a still image for the scene duration over its
// narration audio.
func renderSegment(p segmentSource, outputPath string, shorts bool) error {
	dur := p.scene.DurationSec
	if dur <= 0 {
		dur = 2.0
	}

	image := ffmpeg.Input(p.image, ffmpeg.KwArgs{"loop": "1", "t": fmt.Sprintf("%.3f", dur)})
	frame := image.Filter("scale", ffmpeg.Args{geometryFilter(shorts)}).
		Filter("setsar", ffmpeg.Args{"1"})
	if shorts {
		frame = frame.Filter("crop", ffmpeg.Args{fmt.Sprintf("%d:%d", shortsWidth(), shortsHeight())})
	}

	kwargs := ffmpeg.KwArgs{
		"c:v":    config.VideoCodec,
		"r":      fmt.Sprint(config.VideoFPS),
		"preset": config.VideoPreset,
		"t":      fmt.Sprintf("%.3f", dur),
	}

	// Zero-length narration gets a silent audio bed so the concat
	// streams stay uniform.
	audio := audioStream(p.audio, dur)

	err := ffmpeg.Output([]*ffmpeg.Stream{frame, audio}, outputPath, kwargs).
		OverWriteOutput().
		Run()
	if err != nil {
		return fmt.Errorf("ffmpeg segment render failed: %w", err)
	}
	return nil
}

func audioStream(path string, dur float64) *ffmpeg.Stream {
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		return ffmpeg.Input("anullsrc=r=44100:cl=stereo",
			ffmpeg.KwArgs{"f": "lavfi", "t": fmt.Sprintf("%.3f", dur)})
	}
	return ffmpeg.Input(path)
}

func concatSegments(listPath, outputPath string) error {
	err := ffmpeg.Input(listPath, ffmpeg.KwArgs{"f": "concat", "safe": "0"}).
		Output(outputPath, ffmpeg.KwArgs{"c": "copy"}).
		OverWriteOutput().
		Run()
	if err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w", err)
	}
	return nil
}

// finalPass mixes the background track under the narration, burns
// subtitles, and for shorts draws the title across the top.
func (c *Composer) finalPass(pairs []segmentSource, basePath string, in pipeline.CompositionInput, shorts bool) error {
	srtPath := basePath + ".srt"
	if err := writeSRT(pairs, srtPath); err != nil {
		return err
	}
	defer os.Remove(srtPath)

	base := ffmpeg.Input(basePath)
	vid := base.Video().Filter("subtitles", ffmpeg.Args{subtitleFilterArg(srtPath)})
	if shorts && in.Title != "" {
		vid = vid.Filter("drawtext", ffmpeg.Args{titleDrawArg(in.Title)})
	}

	audio := base.Audio()
	if in.BGMPath != "" {
		music := ffmpeg.Input(in.BGMPath, ffmpeg.KwArgs{"stream_loop": "-1"}).
			Audio().
			Filter("volume", ffmpeg.Args{fmt.Sprintf("%.2f", config.BGMVolumeRatio)})
		audio = ffmpeg.Filter([]*ffmpeg.Stream{audio, music}, "amix",
			ffmpeg.Args{}, ffmpeg.KwArgs{"inputs": "2", "duration": "first"})
	}

	err := ffmpeg.Output([]*ffmpeg.Stream{vid, audio}, in.OutputPath, ffmpeg.KwArgs{
		"c:v":    config.VideoCodec,
		"c:a":    config.AudioCodec,
		"b:v":    config.VideoBitrate,
		"b:a":    config.AudioBitrate,
		"preset": config.VideoPreset,
	}).OverWriteOutput().Run()
	if err != nil {
		return fmt.Errorf("ffmpeg final pass failed: %w", err)
	}
	return nil
}

// writeSRT emits one cue per scene from its text overlay, timed by the
// corrected scene durations.
func writeSRT(pairs []segmentSource, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer file.Close()

	cursor := 0.0
	cue := 1
	for _, p := range pairs {
		start := cursor
		cursor += p.scene.DurationSec
		if strings.TrimSpace(p.scene.TextOverlay) == "" {
			continue
		}
		fmt.Fprintf(file, "%d\n%s --> %s\n%s\n\n",
			cue, formatTimestamp(start), formatTimestamp(cursor), p.scene.TextOverlay)
		cue++
	}
	return nil
}

func formatTimestamp(seconds float64) string {
	hours := int(seconds / 3600)
	minutes := int(seconds/60) % 60
	secs := int(seconds) % 60
	millis := int((seconds - float64(int(seconds))) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

func subtitleFilterArg(srtPath string) string {
	style := "FontName=Impact," +
		"FontSize=28," +
		"PrimaryColour=&H00FFFF," +
		"OutlineColour=&H000000," +
		"BorderStyle=3," +
		"Outline=3," +
		"Shadow=0," +
		"Alignment=2," +
		"Bold=1"
	escaped := strings.ReplaceAll(filepath.ToSlash(srtPath), ":", "\\:")
	return fmt.Sprintf("%s:force_style='%s'", escaped, style)
}

func titleDrawArg(title string) string {
	escaped := strings.ReplaceAll(title, "'", "\\'")
	return fmt.Sprintf("text='%s':fontsize=48:fontcolor=white:borderw=3:bordercolor=black:x=(w-text_w)/2:y=h*0.08", escaped)
}

func geometryFilter(shorts bool) string {
	if shorts {
		// Scale up so the center crop to 9:16 has full height coverage.
		return fmt.Sprintf("-2:%d", shortsHeight())
	}
	return fmt.Sprintf("%d:%d", config.VideoWidth, config.VideoHeight)
}

// Shorts render at 9:16 by swapping the landscape frame dimensions.
func shortsWidth() int  { return config.VideoHeight }
func shortsHeight() int { return config.VideoWidth }
