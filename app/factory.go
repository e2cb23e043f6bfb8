// Package app wires configuration into runnable pipelines. The CLI and
// the API server both build their jobs through the Factory so engine
// selection stays in one place.
package app

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"articlecast/archive"
	"articlecast/bgm"
	"articlecast/config"
	"articlecast/costs"
	"articlecast/history"
	"articlecast/image"
	"articlecast/imagecache"
	"articlecast/pipeline"
	"articlecast/scenario"
	"articlecast/scraper"
	"articlecast/thumbnail"
	"articlecast/tts"
	"articlecast/uploader"
	"articlecast/video"
)

// Factory builds pipelines from settings. The checkpoint store and the
// image cache index are shared by every job it produces.
type Factory struct {
	settings    config.Settings
	checkpoints *pipeline.CheckpointStore
	index       *imagecache.Index
	history     *history.RedisStore
	archiver    pipeline.Archiver
}

// NewFactory opens the shared stores. Optional backends (Redis history,
// S3 archive) are wired only when configured; a missing backend logs
// and degrades rather than failing startup.
func NewFactory(ctx context.Context, settings config.Settings) (*Factory, error) {
	checkpoints, err := pipeline.NewCheckpointStore(filepath.Join(settings.CacheDir, "checkpoints"))
	if err != nil {
		return nil, err
	}

	var store imagecache.Store
	if settings.RedisAddr != "" {
		store, err = imagecache.NewRedisStore(settings.RedisAddr, settings.RedisPassword, settings.RedisDB)
		if err != nil {
			log.Printf("Warning: image cache falling back to file store: %v", err)
			store = nil
		}
	}
	if store == nil {
		store, err = imagecache.NewFileStore(filepath.Join(settings.CacheDir, "imagecache.json"))
		if err != nil {
			return nil, err
		}
	}

	f := &Factory{
		settings:    settings,
		checkpoints: checkpoints,
		index:       imagecache.NewIndex(store),
	}

	if settings.RedisAddr != "" {
		hist, err := history.NewRedisStore(settings.RedisAddr, settings.RedisPassword, settings.RedisDB)
		if err != nil {
			log.Printf("Warning: run history disabled: %v", err)
		} else {
			f.history = hist
		}
	}
	if settings.S3Bucket != "" {
		arch, err := archive.NewS3Archiver(ctx, archive.S3Config{
			Bucket:       settings.S3Bucket,
			Region:       settings.S3Region,
			Prefix:       settings.S3Prefix,
			UsePathStyle: settings.S3UsePathStyle,
		})
		if err != nil {
			log.Printf("Warning: output archiving disabled: %v", err)
		} else {
			f.archiver = arch
		}
	}
	return f, nil
}

// Checkpoints exposes the shared checkpoint store.
func (f *Factory) Checkpoints() *pipeline.CheckpointStore { return f.checkpoints }

// Index exposes the shared image cache index.
func (f *Factory) Index() *imagecache.Index { return f.index }

// History returns the run history store, or nil when not configured.
func (f *Factory) History() *history.RedisStore { return f.history }

// JobOptions carries the per-job callbacks.
type JobOptions struct {
	Confirm  pipeline.Confirmer
	Progress pipeline.ProgressFunc
	Reuse    image.ReuseFunc
}

// NewPipeline assembles a pipeline for one URL. The returned ledger is
// job-local.
func (f *Factory) NewPipeline(ctx context.Context, url, focus string, opts JobOptions) (*pipeline.Pipeline, *costs.Ledger, error) {
	s := f.settings
	ledger := costs.NewLedger(costs.DefaultPrices(), s.ImageQuality == "hd")

	textEngine, err := f.textEngine()
	if err != nil {
		return nil, nil, err
	}
	imageEngine, err := f.imageEngine(ledger)
	if err != nil {
		return nil, nil, err
	}
	speech := f.speechEngine(ledger)

	batcher := image.NewBatchProcessor(imageEngine, f.index, pipeline.JobID(url))
	batcher.Reuse = opts.Reuse

	var upload pipeline.Uploader
	if s.YouTubeCredentialsFile != "" {
		yt, err := uploader.NewYouTube(ctx, s.YouTubeCredentialsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("youtube uploader: %w", err)
		}
		upload = yt
	} else {
		log.Printf("Warning: no YouTube credentials configured, uploads will be skipped")
		upload = uploader.Disabled{}
	}

	deps := pipeline.Deps{
		Scrape:     scraper.New(),
		Scenario:   scenario.NewGenerator(textEngine, ledger),
		Shorts:     scenario.NewShortsBuilder(),
		Translate:  scenario.NewTranslator(textEngine, ledger),
		Images:     batcher,
		Speech:     speech,
		Durations:  tts.NewCorrector(),
		BGM:        bgm.NewPixabaySelector(s.PixabayAPIKey),
		Compose:    video.NewComposer(),
		Thumbnails: thumbnail.NewBuilder(textEngine, imageEngine, ledger),
		Metadata:   uploader.NewMetadata(),
		Upload:     upload,
		Archive:    f.archiver,

		Confirm:     opts.Confirm,
		Progress:    opts.Progress,
		Checkpoints: f.checkpoints,
		Ledger:      ledger,
		OutputRoot:  s.OutputRoot,
	}
	if f.history != nil {
		deps.History = f.history
	}

	return pipeline.New(url, focus, deps), ledger, nil
}

func (f *Factory) textEngine() (scenario.Engine, error) {
	s := f.settings
	if s.CohereAPIKey != "" {
		return scenario.NewCohereEngine(s.CohereAPIKey, s.CohereModel), nil
	}
	if s.OllamaURL != "" {
		log.Printf("Warning: no Cohere key, using local Ollama at %s", s.OllamaURL)
		return scenario.NewOllamaEngine(s.OllamaURL, s.OllamaModel), nil
	}
	return nil, fmt.Errorf("no text engine configured: set COHERE_API_KEY or OLLAMA_URL")
}

func (f *Factory) imageEngine(ledger *costs.Ledger) (image.Engine, error) {
	s := f.settings
	if s.SDWebUIURL != "" {
		return image.NewSDEngine(s.SDWebUIURL), nil
	}
	if s.OpenAIAPIKey != "" {
		return image.NewDallEEngine(s.OpenAIAPIKey, s.ImageQuality, ledger), nil
	}
	return nil, fmt.Errorf("no image engine configured: set SD_WEBUI_URL or OPENAI_API_KEY")
}

func (f *Factory) speechEngine(ledger *costs.Ledger) pipeline.SpeechSynthesizer {
	s := f.settings
	if s.LocalTTSURL != "" {
		return tts.NewLocalEngine(s.LocalTTSURL)
	}
	return tts.NewOpenAIEngine(s.OpenAIAPIKey, s.TTSVoice, ledger)
}
