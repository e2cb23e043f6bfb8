package uploader

import (
	"fmt"

	"articlecast/config"
	"articlecast/pipeline"
	"articlecast/types"
)

// Metadata builds localized upload metadata from the run state.
type Metadata struct{}

func NewMetadata() *Metadata { return &Metadata{} }

func (Metadata) Build(st *pipeline.State, lang string, shorts bool) types.VideoMetadata {
	title := st.TitleKO
	if lang == "en" {
		title = st.TitleEN
	}
	if shorts {
		title = title + " #Shorts"
	}
	if runes := []rune(title); len(runes) > 100 {
		title = string(runes[:97]) + "..."
	}

	var description string
	if lang == "ko" {
		description = fmt.Sprintf(
			"%s\n\n"+
				"원문 기사: %s\n\n"+
				"매일 새로운 이야기를 전해드립니다. 구독과 알림 설정!\n"+
				"#뉴스 #이슈 #정보",
			st.TitleKO, st.URL,
		)
	} else {
		description = fmt.Sprintf(
			"%s\n\n"+
				"Source article: %s\n\n"+
				"New stories every day. Subscribe for more!\n"+
				"#news #stories #explained",
			st.TitleEN, st.URL,
		)
	}
	if shorts {
		description += "\n#Shorts"
	}

	tags := []string{"news", "article", "explained"}
	if lang == "ko" {
		tags = []string{"뉴스", "이슈", "정보", "요약"}
	}
	if shorts {
		tags = append(tags, "shorts")
	}

	return types.VideoMetadata{
		Title:         title,
		Description:   description,
		Tags:          tags,
		CategoryID:    config.YouTubeCategoryID,
		PrivacyStatus: config.YouTubePrivacyStatus,
		Language:      lang,
	}
}
