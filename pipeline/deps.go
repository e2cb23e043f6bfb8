package pipeline

import (
	"context"

	"articlecast/costs"
	"articlecast/types"
)

// Scraper fetches a page and returns its readable text and detected language.
type Scraper interface {
	Scrape(ctx context.Context, url, focus string) (text, lang string, err error)
}

// ScenarioGenerator produces a validated scenario from page text.
type ScenarioGenerator interface {
	Generate(ctx context.Context, pageText, focus string) (types.Scenario, error)
}

// ShortsBuilder condenses a long-form scenario into a shorts cut.
// Scene ids of the surviving scenes are preserved.
type ShortsBuilder interface {
	Build(scenes []types.Scene) []types.Scene
}

// Translator localizes scene narrations and overlays plus the title.
type Translator interface {
	Translate(ctx context.Context, scenes []types.Scene, title string) ([]types.Scene, string, error)
}

// ImageBatcher renders one image per scene and returns paths keyed by scene id.
type ImageBatcher interface {
	GenerateAll(ctx context.Context, scenes []types.Scene, outputDir string) (map[int]string, error)
}

// SpeechSynthesizer renders narration audio per scene, in scene order.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, scenes []types.Scene, lang, outputDir string) ([]string, error)
}

// DurationCorrector replaces planned scene durations with measured audio lengths.
type DurationCorrector interface {
	Correct(scenes []types.Scene, audioPaths []string) []types.Scene
}

// BGMSelector picks a track for the scenario's dominant stage and
// materializes it on disk.
type BGMSelector interface {
	Select(ctx context.Context, stage string) (url string, err error)
	Fetch(ctx context.Context, url, cacheDir string) (path string, err error)
}

// CompositionInput carries everything a render needs.
type CompositionInput struct {
	Scenes     []types.Scene
	ImagePaths []string
	AudioPaths []string
	BGMPath    string
	OutputPath string
	Title      string
	Lang       string
}

// Composer renders the final videos.
type Composer interface {
	ComposeLandscape(ctx context.Context, in CompositionInput) (string, error)
	ComposeShorts(ctx context.Context, in CompositionInput) (string, error)
}

// ThumbnailBuilder produces the four thumbnails, keyed
// "landscape_ko", "landscape_en", "shorts_ko", "shorts_en".
type ThumbnailBuilder interface {
	Build(ctx context.Context, titleKO, titleEN string, scenes []types.Scene, outputDir string) (map[string]string, error)
}

// MetadataBuilder derives upload metadata from the run state.
type MetadataBuilder interface {
	Build(st *State, lang string, shorts bool) types.VideoMetadata
}

// Uploader publishes one video and returns its platform id.
type Uploader interface {
	Upload(ctx context.Context, videoPath, thumbnailPath string, meta types.VideoMetadata) (videoID string, err error)
}

// HistoryRecorder persists completed runs for later listing.
type HistoryRecorder interface {
	RecordCompleted(ctx context.Context, jobID string, st *State, totalCost float64) error
	MarkUploaded(ctx context.Context, jobID string, videoIDs []string) error
}

// Archiver copies the finished output directory to remote storage.
type Archiver interface {
	Archive(ctx context.Context, localDir, remotePrefix string) error
}

// Confirmer answers the pipeline's two confirmation gates.
type Confirmer interface {
	Confirm(ctx context.Context, message string, data map[string]any) (bool, error)
}

// ProgressFunc reports stage progress. pct is 0 at start, 1 at completion.
type ProgressFunc func(step, total int, desc string, pct float64)

// Deps wires a pipeline. Checkpoints, Ledger, Confirm and the stage
// collaborators up to Composer are required. History, Archive and
// Uploader may be nil, in which case their stages degrade to logging.
type Deps struct {
	Scrape     Scraper
	Scenario   ScenarioGenerator
	Shorts     ShortsBuilder
	Translate  Translator
	Images     ImageBatcher
	Speech     SpeechSynthesizer
	Durations  DurationCorrector
	BGM        BGMSelector
	Compose    Composer
	Thumbnails ThumbnailBuilder
	Metadata   MetadataBuilder
	Upload     Uploader
	History    HistoryRecorder
	Archive    Archiver

	Confirm     Confirmer
	Progress    ProgressFunc
	Checkpoints *CheckpointStore
	Ledger      *costs.Ledger

	// OutputRoot is the directory run outputs are created under.
	OutputRoot string
}
