// Package thumbnail produces the four upload thumbnails: one base
// image per orientation, overlaid with the localized titles.
package thumbnail

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"articlecast/costs"
	"articlecast/image"
	"articlecast/scenario"
	"articlecast/types"
)

const promptSystem = `You are a YouTube thumbnail designer.
Given a video title and its opening scenes, write ONE English image
prompt for a bold, curiosity-driving thumbnail illustration.
No real person names. No text in the image.
Return ONLY the prompt string. No quotes. No JSON.`

// Builder generates thumbnail base images through the image engine and
// burns title text with ffmpeg.
type Builder struct {
	text   scenario.Engine
	images image.Engine
	ledger *costs.Ledger
}

func NewBuilder(text scenario.Engine, images image.Engine, ledger *costs.Ledger) *Builder {
	return &Builder{text: text, images: images, ledger: ledger}
}

// Build renders landscape and shorts bases from one generated prompt,
// then overlays each title, producing the four keyed outputs.
func (b *Builder) Build(ctx context.Context, titleKO, titleEN string, scenes []types.Scene, outputDir string) (map[string]string, error) {
	prompt, err := b.generatePrompt(ctx, titleKO, titleEN, scenes)
	if err != nil {
		return nil, err
	}

	landscapeBase := filepath.Join(outputDir, "base_landscape.png")
	if err := b.images.Generate(ctx, prompt+", wide 16:9 composition", landscapeBase); err != nil {
		return nil, fmt.Errorf("landscape base: %w", err)
	}
	shortsBase := filepath.Join(outputDir, "base_shorts.png")
	if err := b.images.Generate(ctx, prompt+", tall 9:16 composition", shortsBase); err != nil {
		return nil, fmt.Errorf("shorts base: %w", err)
	}

	variants := []struct {
		key   string
		base  string
		title string
	}{
		{"landscape_ko", landscapeBase, titleKO},
		{"landscape_en", landscapeBase, titleEN},
		{"shorts_ko", shortsBase, titleKO},
		{"shorts_en", shortsBase, titleEN},
	}

	out := make(map[string]string, len(variants))
	for _, v := range variants {
		path := filepath.Join(outputDir, v.key+".png")
		if err := overlayTitle(v.base, v.title, path); err != nil {
			return nil, fmt.Errorf("thumbnail %s: %w", v.key, err)
		}
		out[v.key] = path
	}
	log.Printf("Built %d thumbnails", len(out))
	return out, nil
}

func (b *Builder) generatePrompt(ctx context.Context, titleKO, titleEN string, scenes []types.Scene) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title (ko): %s\n", titleKO)
	if titleEN != "" {
		fmt.Fprintf(&sb, "Title (en): %s\n", titleEN)
	}
	for i, s := range scenes {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&sb, "Scene %d [%s]: %s\n", s.SceneID, s.Stage, s.Narration)
	}

	raw, usage, err := b.text.Complete(ctx, promptSystem, sb.String())
	if err != nil {
		return "", fmt.Errorf("thumbnail prompt: %w", err)
	}
	if b.ledger != nil {
		b.ledger.AddText(usage.InputTokens, usage.OutputTokens)
	}

	prompt := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`))
	if prompt == "" {
		return "", fmt.Errorf("engine returned an empty thumbnail prompt")
	}
	return prompt, nil
}

// overlayTitle burns the title across the lower third of the base image.
func overlayTitle(basePath, title, outputPath string) error {
	escaped := strings.ReplaceAll(title, "'", "\\'")
	draw := fmt.Sprintf("text='%s':fontsize=64:fontcolor=white:borderw=4:bordercolor=black:x=(w-text_w)/2:y=h*0.75", escaped)

	err := ffmpeg.Input(basePath).
		Filter("drawtext", ffmpeg.Args{draw}).
		Output(outputPath, ffmpeg.KwArgs{"frames:v": "1"}).
		OverWriteOutput().
		Run()
	if err != nil {
		return fmt.Errorf("ffmpeg drawtext failed: %w", err)
	}
	return nil
}
