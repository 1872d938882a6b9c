package subtitle

import "strings"

// threeToTwo maps the catalogue's ISO 639-2 (3-letter) codes to the
// ISO 639-1 (2-letter) codes used everywhere else in the system. Not
// exhaustive; unknown codes fall back to their first two letters (see
// NormalizeLanguage).
var threeToTwo = map[string]string{
	"eng": "en",
	"spa": "es",
	"fre": "fr",
	"fra": "fr",
	"ger": "de",
	"deu": "de",
	"ita": "it",
	"por": "pt",
	"rus": "ru",
	"jpn": "ja",
	"chi": "zh",
	"zho": "zh",
	"kor": "ko",
	"ara": "ar",
	"heb": "he",
	"hin": "hi",
	"dut": "nl",
	"nld": "nl",
	"pol": "pl",
	"tur": "tr",
	"swe": "sv",
	"dan": "da",
	"nor": "no",
	"fin": "fi",
	"gre": "el",
	"ell": "el",
	"cze": "cs",
	"ces": "cs",
	"hun": "hu",
	"rum": "ro",
	"ron": "ro",
	"tha": "th",
	"vie": "vi",
	"ukr": "uk",
	"ind": "id",
}

// NormalizeLanguage converts a catalogue language code to 2-letter ISO 639-1.
// Codes already 2 letters pass through unchanged (lowercased). Unknown
// 3-letter codes fall back to their first two letters, with ok=false so the
// caller can log a warning as the design calls for.
func NormalizeLanguage(code string) (normalized string, ok bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if len(code) == 2 {
		return code, true
	}
	if mapped, found := threeToTwo[code]; found {
		return mapped, true
	}
	if len(code) >= 2 {
		return code[:2], false
	}
	return code, false
}

// ValidLanguageCode reports whether code is exactly two lowercase ASCII
// letters, the format required at every HTTP and event-bus boundary.
func ValidLanguageCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
