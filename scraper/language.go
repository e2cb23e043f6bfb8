package scraper

import (
	"strings"
	"unicode"
)

// Korean unicode ranges: syllables, jamo, compatibility jamo.
var koreanRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x1100, Hi: 0x11ff, Stride: 1},
		{Lo: 0x3131, Hi: 0x318e, Stride: 1},
		{Lo: 0xac00, Hi: 0xd7a3, Stride: 1},
	},
}

// koThreshold is deliberately low: Korean articles quote English names
// and numbers freely, so even a modest hangul share means a Korean page.
const koThreshold = 0.10

// DetectLanguage classifies text as "ko" or "en" by Korean character
// ratio. Short or empty text defaults to "en".
func DetectLanguage(text string) string {
	if len(strings.TrimSpace(text)) < 10 {
		return "en"
	}
	if koreanRatio(text) >= koThreshold {
		return "ko"
	}
	return "en"
}

// koreanRatio returns the share of Korean characters among all
// non-whitespace characters.
func koreanRatio(text string) float64 {
	total, korean := 0, 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.Is(koreanRanges, r) {
			korean++
		}
	}
	if total == 0 {
		return 0.0
	}
	return float64(korean) / float64(total)
}
