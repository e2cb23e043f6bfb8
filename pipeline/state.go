package pipeline

import "articlecast/types"

// State is the shared result record the stages write into. It is
// persisted verbatim inside every checkpoint, so field tags are stable.
type State struct {
	URL   string `json:"url"`
	Focus string `json:"focus"`

	PageText string `json:"page_text"`
	PageLang string `json:"page_lang"`

	ScenarioKO []types.Scene `json:"scenario_ko"`
	ScenarioEN []types.Scene `json:"scenario_en"`
	ShortsKO   []types.Scene `json:"shorts_scenario_ko"`
	ShortsEN   []types.Scene `json:"shorts_scenario_en"`

	TitleKO string `json:"youtube_title_ko"`
	TitleEN string `json:"youtube_title_en"`

	ImagePaths   []string `json:"image_paths"`
	AudioKOPaths []string `json:"audio_ko_paths"`
	AudioENPaths []string `json:"audio_en_paths"`
	BGMPath      string   `json:"bgm_path"`

	VideoLandscapeKO string `json:"video_landscape_ko"`
	VideoLandscapeEN string `json:"video_landscape_en"`
	VideoShortsKO    string `json:"video_shorts_ko"`
	VideoShortsEN    string `json:"video_shorts_en"`

	ThumbnailPaths map[string]string `json:"thumbnail_paths"`
	OutputDir      string            `json:"output_dir"`

	UploadedVideoIDs []string `json:"uploaded_video_ids,omitempty"`
}

// NewState returns the empty record a fresh run starts from.
func NewState(url, focus string) *State {
	return &State{
		URL:            url,
		Focus:          focus,
		ThumbnailPaths: map[string]string{},
	}
}
