package image

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"articlecast/config"
	"articlecast/imagecache"
	"articlecast/types"
)

// ReuseFunc decides whether a cached image may stand in for a scene's
// prompt. It receives the scene id, the full prompt and the candidate
// path. Returning true reuses the cached file.
type ReuseFunc func(sceneID int, prompt, existingPath string) bool

// ProgressFunc reports batch progress as completed scenes out of total.
type ProgressFunc func(completed, total int)

// BatchProcessor renders one image per scene through an Engine, in
// batches, consulting the cache index before each generation.
type BatchProcessor struct {
	engine      Engine
	index       *imagecache.Index
	styleAnchor string
	jobID       string

	BatchSize  int
	MaxWorkers int
	Threshold  float64

	Reuse    ReuseFunc
	Progress ProgressFunc
}

// NewBatchProcessor wires a processor with the default batch geometry.
// index may be nil, disabling cache lookups and recording.
func NewBatchProcessor(engine Engine, index *imagecache.Index, jobID string) *BatchProcessor {
	return &BatchProcessor{
		engine:      engine,
		index:       index,
		styleAnchor: config.StyleAnchorDefault,
		jobID:       jobID,
		BatchSize:   config.ImageBatchSize,
		MaxWorkers:  config.ImageMaxWorkers,
		Threshold:   config.ImageSimilarityThreshold,
	}
}

// GenerateAll renders every scene's image and returns paths keyed by
// scene id. Scenes that fail are logged and left out of the result, so
// one bad prompt does not sink the batch.
func (b *BatchProcessor) GenerateAll(ctx context.Context, scenes []types.Scene, outputDir string) (map[int]string, error) {
	total := len(scenes)
	result := make(map[int]string, total)
	batches := partition(scenes, b.BatchSize)

	log.Printf("Generating %d images in %d batches", total, len(batches))

	completed := 0
	for i, batch := range batches {
		log.Printf("Batch %d/%d (%d images)", i+1, len(batches), len(batch))

		var batchResult map[int]string
		if b.engine.Mode() == ModeRemoteParallel {
			batchResult = b.processParallel(ctx, batch, outputDir)
		} else {
			batchResult = b.processSequential(ctx, batch, outputDir)
		}
		for id, path := range batchResult {
			result[id] = path
		}
		completed += len(batch)
		if b.Progress != nil {
			b.Progress(completed, total)
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
	}

	log.Printf("Image generation done: %d/%d succeeded", len(result), total)
	return result, nil
}

func (b *BatchProcessor) processParallel(ctx context.Context, batch []types.Scene, outputDir string) map[int]string {
	result := make(map[int]string, len(batch))
	var mu sync.Mutex
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, b.MaxWorkers)

	for _, scene := range batch {
		wg.Add(1)
		go func(scene types.Scene) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			path, err := b.generateOne(ctx, scene, outputDir)
			if err != nil {
				log.Printf("Warning: scene %d image generation failed: %v", scene.SceneID, err)
				return
			}
			mu.Lock()
			result[scene.SceneID] = path
			mu.Unlock()
		}(scene)
	}
	wg.Wait()
	return result
}

func (b *BatchProcessor) processSequential(ctx context.Context, batch []types.Scene, outputDir string) map[int]string {
	result := make(map[int]string, len(batch))
	for _, scene := range batch {
		path, err := b.generateOne(ctx, scene, outputDir)
		if err != nil {
			log.Printf("Warning: scene %d image generation failed: %v", scene.SceneID, err)
			continue
		}
		result[scene.SceneID] = path
	}
	return result
}

// generateOne anchors the prompt, consults the cache, and only calls
// the engine when no approved reuse candidate exists.
func (b *BatchProcessor) generateOne(ctx context.Context, scene types.Scene, outputDir string) (string, error) {
	prompt := b.applyAnchor(scene.ImagePrompt)

	if b.index != nil && b.Reuse != nil {
		matches, err := b.index.FindSimilar(ctx, prompt, b.Threshold, config.ImageCacheSearchLimit)
		if err != nil {
			log.Printf("Warning: cache lookup failed for scene %d: %v", scene.SceneID, err)
		} else if len(matches) > 0 {
			best := matches[0]
			log.Printf("Scene %d has a cached match at %.1f%% similarity", scene.SceneID, best.Similarity*100)
			if b.Reuse(scene.SceneID, prompt, best.Entry.ImagePath) {
				log.Printf("Scene %d reuses cached image %s", scene.SceneID, best.Entry.ImagePath)
				return best.Entry.ImagePath, nil
			}
		}
	}

	outputPath := filepath.Join(outputDir, fmt.Sprintf("scene_%03d.png", scene.SceneID))
	if err := b.engine.Generate(ctx, prompt, outputPath); err != nil {
		return "", err
	}

	if b.index != nil {
		if _, err := b.index.Store().Append(ctx, imagecache.Entry{
			Prompt:    prompt,
			ImagePath: outputPath,
			JobID:     b.jobID,
		}); err != nil {
			log.Printf("Warning: failed to record scene %d in cache: %v", scene.SceneID, err)
		}
	}
	return outputPath, nil
}

// applyAnchor appends the style anchor unless the prompt already ends
// with it.
func (b *BatchProcessor) applyAnchor(prompt string) string {
	if b.styleAnchor == "" {
		return prompt
	}
	if len(prompt) >= len(b.styleAnchor) && prompt[len(prompt)-len(b.styleAnchor):] == b.styleAnchor {
		return prompt
	}
	if prompt == "" {
		return b.styleAnchor
	}
	return prompt + ", " + b.styleAnchor
}

// partition splits scenes into consecutive batches of at most size,
// preserving order.
func partition(scenes []types.Scene, size int) [][]types.Scene {
	if size <= 0 {
		size = config.ImageBatchSize
	}
	var batches [][]types.Scene
	for start := 0; start < len(scenes); start += size {
		end := start + size
		if end > len(scenes) {
			end = len(scenes)
		}
		batches = append(batches, scenes[start:end])
	}
	return batches
}
