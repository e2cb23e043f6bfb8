// Package pipeline runs the eleven stage article-to-video workflow and
// checkpoints progress after every completed stage so interrupted runs
// resume where they stopped.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync/atomic"

	"articlecast/config"
	"articlecast/types"
)

// TotalSteps is the number of pipeline stages.
const TotalSteps = 11

// ErrAborted is returned when a confirmation gate is declined. The
// checkpoint is left as it was, so the run can be retried later.
var ErrAborted = errors.New("pipeline aborted at confirmation gate")

// ErrStopped is returned when Stop was requested between stages.
var ErrStopped = errors.New("pipeline stopped")

var titleSanitizer = regexp.MustCompile(`[\\/:*?"<>|]`)

// Pipeline executes one job. Not safe for concurrent Run calls.
type Pipeline struct {
	deps   Deps
	jobID  string
	state  *State
	stop   atomic.Bool
	stopCh chan struct{}
}

// New builds a pipeline for a source URL. If a checkpoint exists for
// the URL, its state is restored; otherwise a fresh state is created.
func New(url, focus string, deps Deps) *Pipeline {
	jobID := JobID(url)
	st := NewState(url, focus)
	if cp, ok := deps.Checkpoints.Load(jobID); ok && cp.State != nil {
		st = cp.State
	}
	if st.ThumbnailPaths == nil {
		st.ThumbnailPaths = map[string]string{}
	}
	return &Pipeline{deps: deps, jobID: jobID, state: st, stopCh: make(chan struct{})}
}

// JobID returns the checkpoint key this pipeline runs under.
func (p *Pipeline) JobID() string { return p.jobID }

// State exposes the run state, for status reporting.
func (p *Pipeline) State() *State { return p.state }

// Stop requests a clean halt. The run ends before the next stage
// starts, and any confirmation gate, parked or yet to open, declines.
func (p *Pipeline) Stop() {
	if p.stop.CompareAndSwap(false, true) {
		close(p.stopCh)
	}
}

// confirmGate opens an operator gate unless a stop was requested.
// A stop arriving while the gate is parked declines it as well.
func (p *Pipeline) confirmGate(ctx context.Context, message string, data map[string]any) (bool, error) {
	if p.stop.Load() {
		log.Printf("Stop requested, declining gate: %s", message)
		return false, nil
	}
	gateCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-p.stopCh:
			cancel()
		case <-gateCtx.Done():
		}
	}()
	ok, err := p.deps.Confirm.Confirm(gateCtx, message, data)
	if p.stop.Load() {
		log.Printf("Stop requested, declining gate: %s", message)
		return false, nil
	}
	return ok, err
}

type stage struct {
	num  int
	desc string
	run  func(context.Context) error
}

// Run executes stages fromStep..11. fromStep 0 resumes from the
// checkpoint, starting after the last completed stage.
func (p *Pipeline) Run(ctx context.Context, fromStep int) error {
	if fromStep <= 0 {
		fromStep = 1
		if cp, ok := p.deps.Checkpoints.Load(p.jobID); ok {
			fromStep = cp.LastCompletedStep + 1
		}
	}
	log.Printf("Pipeline starting for %s (job %s, from step %d)", p.state.URL, p.jobID, fromStep)

	stages := []stage{
		{1, "scrape article", p.stepScrape},
		{2, "generate scenario", p.stepScenario},
		{3, "build shorts scenario", p.stepShorts},
		{4, "translate", p.stepTranslate},
		{5, "generate images", p.stepImages},
		{6, "synthesize speech", p.stepSpeech},
		{7, "select background music", p.stepBGM},
		{8, "compose videos", p.stepCompose},
		{9, "build thumbnails", p.stepThumbnails},
		{10, "save results", p.stepSave},
		{11, "upload", p.stepUpload},
	}

	for _, s := range stages {
		if s.num < fromStep {
			continue
		}
		if p.stop.Load() {
			log.Printf("Pipeline stopped before step %d", s.num)
			return ErrStopped
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		p.notify(s.num, s.desc, 0.0)
		log.Printf("Step %d/%d: %s", s.num, TotalSteps, s.desc)

		if err := s.run(ctx); err != nil {
			if errors.Is(err, ErrAborted) {
				log.Printf("Pipeline aborted by operator at step %d", s.num)
				return ErrAborted
			}
			p.deps.Checkpoints.Save(p.jobID, Checkpoint{
				LastCompletedStep: s.num - 1,
				State:             p.state,
			})
			return fmt.Errorf("step %d (%s): %w", s.num, s.desc, err)
		}

		p.deps.Checkpoints.Save(p.jobID, Checkpoint{
			LastCompletedStep: s.num,
			State:             p.state,
		})
		p.notify(s.num, s.desc, 1.0)
	}

	log.Printf("Pipeline finished for %s, total cost $%.4f", p.state.URL, p.deps.Ledger.Total())
	return nil
}

func (p *Pipeline) notify(step int, desc string, pct float64) {
	if p.deps.Progress != nil {
		p.deps.Progress(step, TotalSteps, desc, pct)
	}
}

func (p *Pipeline) stepScrape(ctx context.Context) error {
	text, lang, err := p.deps.Scrape.Scrape(ctx, p.state.URL, p.state.Focus)
	if err != nil {
		return err
	}
	p.state.PageText = text
	p.state.PageLang = lang
	log.Printf("Detected language %s, %d characters of text", lang, len(text))
	return nil
}

func (p *Pipeline) stepScenario(ctx context.Context) error {
	scenario, err := p.deps.Scenario.Generate(ctx, p.state.PageText, p.state.Focus)
	if err != nil {
		return err
	}

	ok, err := p.confirmGate(ctx, "Scenario ready, review before continuing", map[string]any{
		"scenario": scenario.Scenes,
		"title_ko": scenario.Title,
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrAborted
	}

	p.state.ScenarioKO = scenario.Scenes
	p.state.TitleKO = scenario.Title
	return nil
}

func (p *Pipeline) stepShorts(ctx context.Context) error {
	p.state.ShortsKO = p.deps.Shorts.Build(p.state.ScenarioKO)
	return nil
}

func (p *Pipeline) stepTranslate(ctx context.Context) error {
	scenes, title, err := p.deps.Translate.Translate(ctx, p.state.ScenarioKO, p.state.TitleKO)
	if err != nil {
		return err
	}
	p.state.ScenarioEN = scenes
	p.state.TitleEN = title

	shorts, _, err := p.deps.Translate.Translate(ctx, p.state.ShortsKO, p.state.TitleKO)
	if err != nil {
		return err
	}
	p.state.ShortsEN = shorts
	return nil
}

func (p *Pipeline) stepImages(ctx context.Context) error {
	// Image prompts are shared across languages, so the original
	// scenario drives generation for both cuts.
	dir, err := p.ensureOutputDir()
	if err != nil {
		return err
	}
	sceneDir := filepath.Join(dir, "scenes")
	if err := os.MkdirAll(sceneDir, 0o755); err != nil {
		return fmt.Errorf("create scene dir: %w", err)
	}

	byID, err := p.deps.Images.GenerateAll(ctx, p.state.ScenarioKO, sceneDir)
	if err != nil {
		return err
	}

	ids := make([]int, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	paths := make([]string, 0, len(ids))
	for _, id := range ids {
		paths = append(paths, byID[id])
	}
	p.state.ImagePaths = paths
	return nil
}

func (p *Pipeline) stepSpeech(ctx context.Context) error {
	dir, err := p.ensureOutputDir()
	if err != nil {
		return err
	}
	koDir := filepath.Join(dir, "audio", "ko")
	enDir := filepath.Join(dir, "audio", "en")
	for _, d := range []string{koDir, enDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create audio dir: %w", err)
		}
	}

	koPaths, err := p.deps.Speech.Synthesize(ctx, p.state.ScenarioKO, "ko", koDir)
	if err != nil {
		return err
	}
	enPaths, err := p.deps.Speech.Synthesize(ctx, p.state.ScenarioEN, "en", enDir)
	if err != nil {
		return err
	}

	p.state.ScenarioKO = p.deps.Durations.Correct(p.state.ScenarioKO, koPaths)
	p.state.ScenarioEN = p.deps.Durations.Correct(p.state.ScenarioEN, enPaths)
	p.state.AudioKOPaths = koPaths
	p.state.AudioENPaths = enPaths
	return nil
}

func (p *Pipeline) stepBGM(ctx context.Context) error {
	dominant := dominantStage(p.state.ScenarioKO)
	url, err := p.deps.BGM.Select(ctx, dominant)
	if err != nil {
		return err
	}

	dir, err := p.ensureOutputDir()
	if err != nil {
		return err
	}
	path, err := p.deps.BGM.Fetch(ctx, url, filepath.Join(dir, "bgm"))
	if err != nil {
		return err
	}
	p.state.BGMPath = path
	return nil
}

func (p *Pipeline) stepCompose(ctx context.Context) error {
	dir, err := p.ensureOutputDir()
	if err != nil {
		return err
	}
	videoDir := filepath.Join(dir, "videos")
	if err := os.MkdirAll(videoDir, 0o755); err != nil {
		return fmt.Errorf("create video dir: %w", err)
	}

	renders := []struct {
		scenes []types.Scene
		audio  []string
		out    string
		title  string
		lang   string
		shorts bool
		dest   *string
	}{
		{p.state.ScenarioKO, p.state.AudioKOPaths, "landscape_ko.mp4", p.state.TitleKO, "ko", false, &p.state.VideoLandscapeKO},
		{p.state.ScenarioEN, p.state.AudioENPaths, "landscape_en.mp4", p.state.TitleEN, "en", false, &p.state.VideoLandscapeEN},
		{p.state.ShortsKO, p.state.AudioKOPaths, "shorts_ko.mp4", p.state.TitleKO, "ko", true, &p.state.VideoShortsKO},
		{p.state.ShortsEN, p.state.AudioENPaths, "shorts_en.mp4", p.state.TitleEN, "en", true, &p.state.VideoShortsEN},
	}

	for _, r := range renders {
		in := CompositionInput{
			Scenes:     r.scenes,
			ImagePaths: p.state.ImagePaths,
			AudioPaths: r.audio,
			BGMPath:    p.state.BGMPath,
			OutputPath: filepath.Join(videoDir, r.out),
			Title:      r.title,
			Lang:       r.lang,
		}
		var (
			path string
			err  error
		)
		if r.shorts {
			path, err = p.deps.Compose.ComposeShorts(ctx, in)
		} else {
			path, err = p.deps.Compose.ComposeLandscape(ctx, in)
		}
		if err != nil {
			return err
		}
		*r.dest = path
	}
	return nil
}

func (p *Pipeline) stepThumbnails(ctx context.Context) error {
	dir, err := p.ensureOutputDir()
	if err != nil {
		return err
	}
	thumbDir := filepath.Join(dir, "thumbnails")
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		return fmt.Errorf("create thumbnail dir: %w", err)
	}

	paths, err := p.deps.Thumbnails.Build(ctx, p.state.TitleKO, p.state.TitleEN, p.state.ScenarioKO, thumbDir)
	if err != nil {
		return err
	}
	p.state.ThumbnailPaths = paths
	return nil
}

func (p *Pipeline) stepSave(ctx context.Context) error {
	dir, err := p.ensureOutputDir()
	if err != nil {
		return err
	}
	log.Printf("Outputs saved under %s", dir)

	if p.deps.Archive != nil {
		if err := p.deps.Archive.Archive(ctx, dir, p.jobID); err != nil {
			log.Printf("Warning: failed to archive outputs: %v", err)
		}
	}
	if p.deps.History != nil {
		if err := p.deps.History.RecordCompleted(ctx, p.jobID, p.state, p.deps.Ledger.Total()); err != nil {
			log.Printf("Warning: failed to record run history: %v", err)
		}
	}
	return nil
}

func (p *Pipeline) stepUpload(ctx context.Context) error {
	ok, err := p.confirmGate(ctx, "Final check before uploading 4 videos", map[string]any{
		"video_landscape_ko": p.state.VideoLandscapeKO,
		"video_landscape_en": p.state.VideoLandscapeEN,
		"video_shorts_ko":    p.state.VideoShortsKO,
		"video_shorts_en":    p.state.VideoShortsEN,
		"thumbnails":         p.state.ThumbnailPaths,
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrAborted
	}

	if p.deps.Upload == nil {
		log.Printf("Warning: no uploader configured, skipping upload")
		return nil
	}

	uploads := []struct {
		lang     string
		video    string
		thumbKey string
		shorts   bool
	}{
		{"ko", p.state.VideoLandscapeKO, "landscape_ko", false},
		{"ko", p.state.VideoShortsKO, "shorts_ko", true},
		{"en", p.state.VideoLandscapeEN, "landscape_en", false},
		{"en", p.state.VideoShortsEN, "shorts_en", true},
	}

	var ids []string
	for _, u := range uploads {
		meta := p.deps.Metadata.Build(p.state, u.lang, u.shorts)
		id, err := p.deps.Upload.Upload(ctx, u.video, p.state.ThumbnailPaths[u.thumbKey], meta)
		if err != nil {
			return fmt.Errorf("upload %s (%s): %w", u.thumbKey, u.lang, err)
		}
		ids = append(ids, id)
		log.Printf("Uploaded %s as %s", u.thumbKey, id)
	}
	p.state.UploadedVideoIDs = ids

	if p.deps.History != nil {
		if err := p.deps.History.MarkUploaded(ctx, p.jobID, ids); err != nil {
			log.Printf("Warning: failed to mark history uploaded: %v", err)
		}
	}
	return nil
}

// ensureOutputDir resolves (and creates) the run's output directory
// from the sanitized title. The path is cached in state so every stage
// after the first call sees the same directory even if the title changes.
func (p *Pipeline) ensureOutputDir() (string, error) {
	if p.state.OutputDir != "" {
		return p.state.OutputDir, nil
	}
	title := p.state.TitleKO
	if title == "" {
		title = config.UntitledDirName
	}
	safe := titleSanitizer.ReplaceAllString(title, "_")
	if runes := []rune(safe); len(runes) > config.MaxTitleRunes {
		safe = string(runes[:config.MaxTitleRunes])
	}
	dir := filepath.Join(p.deps.OutputRoot, safe)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	p.state.OutputDir = dir
	return dir, nil
}

// dominantStage returns the most frequent stage of a scenario, or
// "core" when the scenario is empty.
func dominantStage(scenes []types.Scene) string {
	counts := map[string]int{}
	for _, s := range scenes {
		counts[string(s.Stage)]++
	}
	best, bestN := string(types.StageCore), 0
	for _, st := range types.StageOrder {
		if n := counts[string(st)]; n > bestN {
			best, bestN = string(st), n
		}
	}
	return best
}
