package llm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTranslationResponseWellFormed(t *testing.T) {
	body := `[{"id":1,"text":"Bonjour"},{"id":2,"text":"Salut"}]`
	texts, err := ParseTranslationResponse(body, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"Bonjour", "Salut"}, texts)
}

func TestParseTranslationResponseToleratesTrailingGarbage(t *testing.T) {
	body := `[{"id":1,"text":"Bonjour"},{"id":2,"text":"Salut"}]` + "\n\nThanks for using the API!"
	texts, err := ParseTranslationResponse(body, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"Bonjour", "Salut"}, texts)
}

func TestParseTranslationResponseToleratesDoubleClosingBrace(t *testing.T) {
	body := `[{"id":1,"text":"Bonjour"}},{"id":2,"text":"Salut"}]`
	texts, err := ParseTranslationResponse(body, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"Bonjour", "Salut"}, texts)
}

func TestParseTranslationResponseOutOfOrderIDsAreSorted(t *testing.T) {
	body := `[{"id":2,"text":"Salut"},{"id":1,"text":"Bonjour"}]`
	texts, err := ParseTranslationResponse(body, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"Bonjour", "Salut"}, texts)
}

func TestParseTranslationResponseFailsOnTruncationBelowWantCount(t *testing.T) {
	body := `[{"id":1,"text":"Bonjour"},{"id":2,"tex`
	_, err := ParseTranslationResponse(body, 2)
	require.Error(t, err)
}

func TestParseTranslationResponseRecoversPrefixBeforeTruncation(t *testing.T) {
	body := `[{"id":1,"text":"Bonjour"},{"id":2,"text":"Salut"},{"id":3,"tex`
	texts, err := ParseTranslationResponse(body, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"Bonjour", "Salut"}, texts)
}

func TestParseTranslationResponseHandlesBracesWithinText(t *testing.T) {
	body := `[{"id":1,"text":"He said \"{hi}\""}]`
	texts, err := ParseTranslationResponse(body, 1)
	require.NoError(t, err)
	require.Equal(t, []string{`He said "{hi}"`}, texts)
}
