package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrMalformedResponse is returned when the robust parser cannot recover
// as many translated objects as the chunk it was asked to translate had
// texts for.
var ErrMalformedResponse = errors.New("llm: malformed translation response")

// translatedItem is one element of the `[{"id":i,"text":…}, …]` shape
// the translation prompt asks for.
type translatedItem struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// ParseTranslationResponse recovers translated texts from a completion
// response that is nominally a JSON array of {"id","text"} objects but
// may have trailing garbage after the array, a stray duplicated
// closing brace, or be truncated mid-stream. Rather than requiring the
// whole response to be valid JSON, it scans for balanced top-level
// `{...}` objects wherever they occur and parses each independently,
// recovering the longest valid prefix.
//
// want is the number of items expected (the chunk size). If fewer
// complete, parseable objects are recovered than want, the chunk is
// considered failed.
func ParseTranslationResponse(body string, want int) ([]string, error) {
	objects := extractObjects(body)

	items := make([]translatedItem, 0, len(objects))
	for _, raw := range objects {
		var item translatedItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			// A malformed object ends the valid prefix; stop
			// recovering here rather than skip past it, since a
			// truncated stream's tail is typically garbage too.
			break
		}
		items = append(items, item)
	}

	if len(items) < want {
		return nil, fmt.Errorf("%w: recovered %d of %d expected translations", ErrMalformedResponse, len(items), want)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Text
	}
	return texts, nil
}

// extractObjects scans body for top-level balanced {...} substrings,
// tolerant of string contents containing braces and of trailing
// garbage (including a stray duplicated closing brace) after the last
// valid object.
func extractObjects(body string) []string {
	var objects []string

	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(body); i++ {
		c := body[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					objects = append(objects, body[start:i+1])
					start = -1
				}
			}
			// A stray extra '}' with depth already 0 is exactly the
			// "double closing brace" case; ignored rather than erroring.
		}
	}

	return objects
}
