// Package image renders scene illustrations in batches, reusing cached
// images for prompts the cache has seen before.
package image

import "context"

// Mode tells the batch processor how an engine may be driven.
type Mode int

const (
	// ModeRemoteParallel engines are hosted APIs; requests within a
	// batch run concurrently up to the worker cap.
	ModeRemoteParallel Mode = iota
	// ModeLocalSequential engines own local GPU memory; requests run
	// one at a time.
	ModeLocalSequential
)

// Engine renders one image for a prompt and writes it to outputPath.
type Engine interface {
	Generate(ctx context.Context, prompt, outputPath string) error
	Mode() Mode
}
