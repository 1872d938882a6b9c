package subtitle

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// IsLocalFile reports whether videoURL names a path on the local
// filesystem, as opposed to a remote http(s) URL. A bare path (no scheme)
// and a "file://" URL both count as local.
func IsLocalFile(videoURL string) bool {
	if strings.HasPrefix(videoURL, "http://") || strings.HasPrefix(videoURL, "https://") {
		return false
	}
	return true
}

// LocalPath strips a "file://" prefix if present, returning the plain
// filesystem path for a local video URL.
func LocalPath(videoURL string) string {
	return strings.TrimPrefix(videoURL, "file://")
}

// OutputPath derives the subtitle path the downloader writes a fetched
// subtitle to: "<video_dir>/<video_stem>.<lang>.srt", next to the source
// video.
func OutputPath(videoURL, language string) string {
	path := LocalPath(videoURL)
	dir := filepath.Dir(path)
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(dir, fmt.Sprintf("%s.%s.srt", stem, language))
}

// isoCodeBetweenDots matches a 2-letter lowercase ISO code surrounded by
// dots near the end of a filename, e.g. the ".en." in "movie.en.srt".
var isoCodeBetweenDots = regexp.MustCompile(`\.([a-z]{2})\.srt$`)

// TranslatedPath derives the output path for a translated subtitle from its
// source path: if the source filename ends with a recognised 2-letter ISO
// code between two dots (e.g. "movie.en.srt"), that code is replaced with
// targetLang; otherwise ".{targetLang}" is inserted before the extension
// (e.g. "movie.srt" becomes "movie.fr.srt").
func TranslatedPath(sourcePath, targetLang string) string {
	if isoCodeBetweenDots.MatchString(sourcePath) {
		return isoCodeBetweenDots.ReplaceAllString(sourcePath, "."+targetLang+".srt")
	}
	ext := filepath.Ext(sourcePath)
	base := strings.TrimSuffix(sourcePath, ext)
	return fmt.Sprintf("%s.%s%s", base, targetLang, ext)
}

// CheckpointPath derives the on-disk path for a translation checkpoint.
func CheckpointPath(dir, jobID, targetLang string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%s.checkpoint.json", jobID, targetLang))
}
