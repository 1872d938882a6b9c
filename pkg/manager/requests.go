package manager

import (
	"strings"

	"github.com/codeready-toolchain/subtitlebus/pkg/subtitle"
)

// DownloadRequest is the body of POST /subtitles/download.
type DownloadRequest struct {
	VideoURL         string   `json:"video_url"`
	VideoTitle       string   `json:"video_title"`
	Language         string   `json:"language"`
	TargetLanguage   string   `json:"target_language,omitempty"`
	CatalogueID      string   `json:"catalogue_id,omitempty"`
	PreferredSources []string `json:"preferred_sources,omitempty"`
}

func (r DownloadRequest) validate() error {
	if r.VideoURL == "" {
		return NewValidationError("video_url", "must not be empty")
	}
	if !hasValidVideoURLScheme(r.VideoURL) {
		return NewValidationError("video_url", "must start with http://, https://, or file://")
	}
	if r.VideoTitle == "" {
		return NewValidationError("video_title", "must not be empty")
	}
	if len(r.VideoTitle) > 500 {
		return NewValidationError("video_title", "must be at most 500 characters")
	}
	if !subtitle.ValidLanguageCode(r.Language) {
		return NewValidationError("language", "must be exactly two lowercase letters")
	}
	if r.TargetLanguage != "" && !subtitle.ValidLanguageCode(r.TargetLanguage) {
		return NewValidationError("target_language", "must be exactly two lowercase letters")
	}
	if r.TargetLanguage != "" && r.TargetLanguage == r.Language {
		return NewValidationError("target_language", "must differ from language")
	}
	return nil
}

// TranslateRequest is the body of POST /subtitles/translate.
type TranslateRequest struct {
	SubtitlePath   string `json:"subtitle_path"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	VideoTitle     string `json:"video_title,omitempty"`
}

func (r TranslateRequest) validate() error {
	if r.SubtitlePath == "" {
		return NewValidationError("subtitle_path", "must not be empty")
	}
	if !subtitle.ValidLanguageCode(r.SourceLanguage) {
		return NewValidationError("source_language", "must be exactly two lowercase letters")
	}
	if !subtitle.ValidLanguageCode(r.TargetLanguage) {
		return NewValidationError("target_language", "must be exactly two lowercase letters")
	}
	if r.SourceLanguage == r.TargetLanguage {
		return NewValidationError("target_language", "must differ from source_language")
	}
	return nil
}

// JellyfinWebhook is the body of POST /webhooks/jellyfin.
type JellyfinWebhook struct {
	Event       string `json:"event"`
	ItemType    string `json:"item_type"`
	ItemName    string `json:"item_name"`
	ItemPath    string `json:"item_path,omitempty"`
	ItemID      string `json:"item_id,omitempty"`
	LibraryName string `json:"library_name,omitempty"`
	VideoURL    string `json:"video_url,omitempty"`
}

// isRelevant reports whether the webhook names a video item being
// added or updated; everything else is ignored.
func (w JellyfinWebhook) isRelevant() bool {
	if !strings.EqualFold(w.ItemType, "movie") && !strings.EqualFold(w.ItemType, "episode") {
		return false
	}
	switch strings.ToLower(w.Event) {
	case "library.new", "item.added", "item.updated":
		return true
	default:
		return false
	}
}

func (w JellyfinWebhook) resolveVideoURL() string {
	if w.VideoURL != "" {
		return w.VideoURL
	}
	if w.ItemPath != "" {
		return "file://" + w.ItemPath
	}
	return ""
}

func hasValidVideoURLScheme(url string) bool {
	return strings.HasPrefix(url, "http://") ||
		strings.HasPrefix(url, "https://") ||
		strings.HasPrefix(url, "file://")
}
