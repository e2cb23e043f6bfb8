package config

import "time"

// Scenario Constants
const (
	// TargetDurationSec is the target total length of the long-form scenario
	TargetDurationSec = 300.0

	// ShortsDurationSec is the maximum total length of the shorts scenario
	ShortsDurationSec = 60.0

	// DurationToleranceSec is the accepted deviation from TargetDurationSec
	// before the validator rescales scene durations
	DurationToleranceSec = 10.0

	// SceneMinSec and SceneMaxSec clamp a single scene's duration after rescaling
	SceneMinSec = 2.0
	SceneMaxSec = 6.0

	// TargetScenes is the scene count requested from the scenario engine
	TargetScenes = 80

	// TranslateChunkScenes is the number of scenes translated per engine call
	TranslateChunkScenes = 20

	// ScenarioMaxRetries is how many times generation is retried when the
	// validator rejects the output
	ScenarioMaxRetries = 3
)

// Image Generation Constants
const (
	// ImageBatchSize is the number of scenes submitted to the engine per batch
	ImageBatchSize = 10

	// ImageMaxWorkers caps concurrent remote generations within one batch,
	// sized to stay under the remote engine's rate limit
	ImageMaxWorkers = 5

	// ImageSimilarityThreshold is the Jaccard score above which a cached
	// image is offered for reuse
	ImageSimilarityThreshold = 0.80

	// ImageCacheSearchLimit caps how many reuse candidates a lookup returns
	ImageCacheSearchLimit = 5
)

// Video Output Constants
const (
	VideoWidth   = 1920
	VideoHeight  = 1080
	VideoFPS     = 24
	VideoBitrate = "4000k"
	VideoCodec   = "libx264"
	AudioCodec   = "aac"
	AudioBitrate = "192k"
	VideoPreset  = "fast"

	// BGMVolumeRatio is the background track volume relative to narration
	BGMVolumeRatio = 0.15
)

// Title and Path Constants
const (
	// MaxTitleRunes caps the sanitized title used for the output directory name
	MaxTitleRunes = 80

	// UntitledDirName is used when the output directory must be resolved
	// before a title exists
	UntitledDirName = "untitled"
)

// Unit Prices (USD)
const (
	CostTextInputPer1K   = 0.005
	CostTextOutputPer1K  = 0.015
	CostImageHD          = 0.080
	CostImageStandard    = 0.040
	CostSpeechPer1KChars = 0.015
)

// YouTube Constants
const (
	// YouTubeCategoryID for People & Blogs
	YouTubeCategoryID = "22"

	// YouTubePrivacyStatus sets uploaded video visibility
	YouTubePrivacyStatus = "public"
)

// Feed Watcher Constants
const (
	// FeedPollInterval is how often the watcher re-reads the feed
	FeedPollInterval = 15 * time.Minute

	// FeedMaxItems caps how many items of a feed are considered per poll
	FeedMaxItems = 10
)

// StyleAnchorDefault is appended to every image prompt so the whole video
// keeps one consistent look even when scene prompts vary.
const StyleAnchorDefault = "clean cartoon illustration style, " +
	"minimal and modern design, " +
	"black and white line art with selective color accent, " +
	"flat design, simple shapes, white background, high contrast, editorial style"

// BGMStageKeywords maps a scenario's dominant stage to a music search keyword.
var BGMStageKeywords = map[string]string{
	"hook":    "dramatic intense",
	"problem": "dramatic intense",
	"core":    "energetic upbeat",
	"twist":   "dramatic intense",
	"cta":     "motivational",
}

// ShortsStageBudget caps how many scenes of each stage survive into the
// shorts scenario. Low budgets keep the tempo fast.
var ShortsStageBudget = map[string]int{
	"hook":    5,
	"problem": 3,
	"core":    6,
	"twist":   3,
	"cta":     2,
}
