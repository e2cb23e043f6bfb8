package types

// VideoMetadata carries everything the uploader needs to publish one video.
type VideoMetadata struct {
	Title         string
	Description   string
	Tags          []string
	CategoryID    string
	PrivacyStatus string
	Language      string
}
