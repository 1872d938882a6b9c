package subtitle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeLanguagePassesThroughTwoLetterCodes(t *testing.T) {
	normalized, ok := NormalizeLanguage("EN")
	require.True(t, ok)
	require.Equal(t, "en", normalized)
}

func TestNormalizeLanguageMapsKnownThreeLetterCodes(t *testing.T) {
	normalized, ok := NormalizeLanguage("fre")
	require.True(t, ok)
	require.Equal(t, "fr", normalized)

	normalized, ok = NormalizeLanguage("fra")
	require.True(t, ok)
	require.Equal(t, "fr", normalized)
}

func TestNormalizeLanguageFallsBackForUnknownCodes(t *testing.T) {
	normalized, ok := NormalizeLanguage("xyz")
	require.False(t, ok)
	require.Equal(t, "xy", normalized)
}

func TestValidLanguageCode(t *testing.T) {
	require.True(t, ValidLanguageCode("en"))
	require.False(t, ValidLanguageCode("eng"))
	require.False(t, ValidLanguageCode("EN"))
	require.False(t, ValidLanguageCode(""))
}
