// Package uploader publishes finished videos to YouTube and builds
// their localized metadata.
package uploader

import (
	"context"
	"fmt"
	"log"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"articlecast/types"
)

// YouTube uploads through a service account.
type YouTube struct {
	service *youtube.Service
}

func NewYouTube(ctx context.Context, serviceAccountFile string) (*YouTube, error) {
	data, err := os.ReadFile(serviceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read service account file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(data, youtube.YoutubeUploadScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account: %w", err)
	}
	client := config.Client(ctx)

	service, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create YouTube service: %w", err)
	}
	return &YouTube{service: service}, nil
}

// Upload publishes one video and, when a thumbnail is given, sets it.
// A failed thumbnail set does not fail the upload.
func (u *YouTube) Upload(ctx context.Context, videoPath, thumbnailPath string, meta types.VideoMetadata) (string, error) {
	file, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("failed to open video file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat video file: %w", err)
	}
	log.Printf("Uploading %s (%.2f MB)", videoPath, float64(info.Size())/(1024*1024))

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                meta.Title,
			Description:          meta.Description,
			Tags:                 meta.Tags,
			CategoryId:           meta.CategoryID,
			DefaultAudioLanguage: meta.Language,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           meta.PrivacyStatus,
			SelfDeclaredMadeForKids: false,
		},
	}

	call := u.service.Videos.Insert([]string{"snippet", "status"}, video).
		Media(file).
		Context(ctx)
	response, err := call.Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload video: %w", err)
	}

	if thumbnailPath != "" {
		if err := u.setThumbnail(ctx, response.Id, thumbnailPath); err != nil {
			log.Printf("Warning: failed to set thumbnail for %s: %v", response.Id, err)
		}
	}

	log.Printf("Uploaded https://youtube.com/watch?v=%s", response.Id)
	return response.Id, nil
}

func (u *YouTube) setThumbnail(ctx context.Context, videoID, thumbnailPath string) error {
	file, err := os.Open(thumbnailPath)
	if err != nil {
		return fmt.Errorf("failed to open thumbnail: %w", err)
	}
	defer file.Close()

	_, err = u.service.Thumbnails.Set(videoID).Media(file).Context(ctx).Do()
	return err
}

// Disabled is an uploader stand-in for runs without credentials. It
// logs and returns a placeholder id so unattended runs end cleanly.
type Disabled struct{}

func (Disabled) Upload(ctx context.Context, videoPath, thumbnailPath string, meta types.VideoMetadata) (string, error) {
	log.Printf("Warning: upload disabled, skipping %s (%s)", videoPath, meta.Title)
	return "disabled", nil
}
