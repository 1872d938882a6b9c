package llm

import "context"

// Fake is a scripted Provider for tests: it returns canned raw
// response bodies fed through the same robust parser the real
// provider uses, so callers can exercise malformed-JSON recovery
// without a network call.
type Fake struct {
	// Responses is consumed in order, one raw body per Translate call.
	Responses []string
	calls     int
	Err       error
}

func (f *Fake) Translate(ctx context.Context, chunk []string, sourceLang, targetLang string) ([]string, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if f.calls >= len(f.Responses) {
		return nil, context.DeadlineExceeded
	}
	body := f.Responses[f.calls]
	f.calls++
	return ParseTranslationResponse(body, len(chunk))
}
