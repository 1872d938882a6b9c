package catalogue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// HTTPClient is the one concrete Client wired against a real
// transport: a JSON REST API fronted by an API key and a client-side
// rate limiter (the catalogue's own limit is enforced server-side;
// this limiter just avoids hammering it into a 429 in the first
// place).
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPClient builds a catalogue client against baseURL. timeout
// bounds every individual request.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(5), 10),
	}
}

type searchResponse struct {
	ID           string `json:"id"`
	Language     string `json:"language"`
	DownloadURL  string `json:"download_url"`
	ReleaseTitle string `json:"release_title"`
}

func (c *HTTPClient) SearchByFingerprint(ctx context.Context, fingerprint string, size int64, language string) (*Result, error) {
	q := url.Values{}
	q.Set("fingerprint", fingerprint)
	q.Set("size", fmt.Sprintf("%d", size))
	q.Set("language", language)
	return c.search(ctx, "/search/fingerprint", q)
}

func (c *HTTPClient) SearchByMetadata(ctx context.Context, catalogueID, title, language string) (*Result, error) {
	if catalogueID == "" && title == "" {
		return nil, fmt.Errorf("catalogue: metadata search requires a catalogue id or a title")
	}
	q := url.Values{}
	if catalogueID != "" {
		q.Set("catalogue_id", catalogueID)
	}
	if title != "" {
		q.Set("title", title)
	}
	q.Set("language", language)
	return c.search(ctx, "/search/metadata", q)
}

func (c *HTTPClient) search(ctx context.Context, path string, query url.Values) (*Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("catalogue: rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("catalogue: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAPI, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrAuthentication
	default:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrAPI, resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrAPI, err)
	}

	return &Result{
		ID:           decoded.ID,
		Language:     decoded.Language,
		DownloadURL:  decoded.DownloadURL,
		ReleaseTitle: decoded.ReleaseTitle,
	}, nil
}

func (c *HTTPClient) Download(ctx context.Context, result *Result) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("catalogue: rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, result.DownloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("catalogue: build download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAPI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: download returned status %d", ErrAPI, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("catalogue: read download body: %w", err)
	}
	return body, nil
}
