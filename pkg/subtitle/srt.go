package subtitle

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// timestampPattern matches an SRT timing line: "HH:MM:SS,mmm --> HH:MM:SS,mmm".
var timestampPattern = regexp.MustCompile(
	`^(\d{2}:\d{2}:\d{2},\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2},\d{3})`,
)

// Parse reads SRT content into an ordered list of segments. A block is:
// an integer index line, a timing line, one or more text lines, then a
// blank line (or end of file).
//
// A block whose timing line doesn't match the expected format is skipped
// entirely (with a warning) rather than failing the whole file; an index
// line that isn't a valid integer is likewise skipped. This is deliberate:
// one corrupt block must not discard an otherwise-usable subtitle file.
func Parse(content string) Segments {
	lines := strings.Split(strings.TrimSpace(content), "\n")

	var segments Segments
	i := 0
	for i < len(lines) {
		if strings.TrimSpace(lines[i]) == "" {
			i++
			continue
		}

		index, err := strconv.Atoi(strings.TrimSpace(lines[i]))
		if err != nil {
			slog.Warn("skipping line that is not a valid subtitle index", "line", i, "content", lines[i])
			i++
			continue
		}
		i++

		if i >= len(lines) {
			break
		}

		match := timestampPattern.FindStringSubmatch(lines[i])
		if match == nil {
			slog.Warn("skipping block with malformed timing line", "line", i, "content", lines[i])
			i++
			continue
		}
		start, end := match[1], match[2]
		i++

		var textLines []string
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			textLines = append(textLines, strings.TrimSpace(lines[i]))
			i++
		}

		if len(textLines) == 0 {
			continue
		}

		segments = append(segments, Segment{
			Index: index,
			Start: start,
			End:   end,
			Text:  strings.Join(textLines, "\n"),
		})
	}

	return segments
}

// Format renders segments back to SRT text.
func Format(segments Segments) string {
	blocks := make([]string, len(segments))
	for i, seg := range segments {
		blocks[i] = fmt.Sprintf("%d\n%s --> %s\n%s\n", seg.Index, seg.Start, seg.End, seg.Text)
	}
	return strings.Join(blocks, "\n")
}

// MergeTranslations produces a new Segments list with each segment's text
// replaced by the corresponding translation, preserving index and timing.
// Translated text is trimmed of surrounding whitespace.
func MergeTranslations(segments Segments, translations []string) (Segments, error) {
	if len(segments) != len(translations) {
		return nil, fmt.Errorf("subtitle: segment count (%d) doesn't match translation count (%d)", len(segments), len(translations))
	}
	out := make(Segments, len(segments))
	for i, seg := range segments {
		out[i] = Segment{
			Index: seg.Index,
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(translations[i]),
		}
	}
	return out, nil
}

// Chunk splits segments into chunks of at most maxSegments, in order.
// Returns nil for an empty input and an error if maxSegments < 1.
func Chunk(segments Segments, maxSegments int) ([]Segments, error) {
	if maxSegments < 1 {
		return nil, fmt.Errorf("subtitle: maxSegments must be at least 1, got %d", maxSegments)
	}
	if len(segments) == 0 {
		return nil, nil
	}

	var chunks []Segments
	for i := 0; i < len(segments); i += maxSegments {
		end := i + maxSegments
		if end > len(segments) {
			end = len(segments)
		}
		chunks = append(chunks, segments[i:end])
	}
	return chunks, nil
}
