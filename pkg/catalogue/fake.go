package catalogue

import "context"

// Fake is an in-memory Client for tests. Results are pre-seeded by
// language key; errors can be scripted per method.
type Fake struct {
	ByFingerprint map[string]*Result
	ByMetadata    map[string]*Result

	FingerprintErr error
	MetadataErr    error
	DownloadErr    error

	Downloaded map[string][]byte
}

// NewFake returns an empty Fake ready for seeding.
func NewFake() *Fake {
	return &Fake{
		ByFingerprint: map[string]*Result{},
		ByMetadata:    map[string]*Result{},
		Downloaded:    map[string][]byte{},
	}
}

func (f *Fake) SearchByFingerprint(ctx context.Context, fingerprint string, size int64, language string) (*Result, error) {
	if f.FingerprintErr != nil {
		return nil, f.FingerprintErr
	}
	result, ok := f.ByFingerprint[fingerprint+":"+language]
	if !ok {
		return nil, ErrNotFound
	}
	return result, nil
}

func (f *Fake) SearchByMetadata(ctx context.Context, catalogueID, title, language string) (*Result, error) {
	if f.MetadataErr != nil {
		return nil, f.MetadataErr
	}
	if result, ok := f.ByMetadata[catalogueID+":"+language]; ok {
		return result, nil
	}
	if result, ok := f.ByMetadata[title+":"+language]; ok {
		return result, nil
	}
	return nil, ErrNotFound
}

func (f *Fake) Download(ctx context.Context, result *Result) ([]byte, error) {
	if f.DownloadErr != nil {
		return nil, f.DownloadErr
	}
	body, ok := f.Downloaded[result.ID]
	if !ok {
		return []byte("fake subtitle body"), nil
	}
	return body, nil
}
