package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxDocumentBytes caps how much of a report any source may return.
const maxDocumentBytes = 10 << 20

// HTTPTextSource fetches free-text threat reports (advisories, blog
// posts, pastes) over HTTP for the harvester to scan.
type HTTPTextSource struct {
	client     *http.Client
	url        string
	sourceName string
}

func NewHTTPTextSource(client *http.Client, sourceName string, url string) *HTTPTextSource {
	return &HTTPTextSource{
		client:     client,
		sourceName: sourceName,
		url:        url,
	}
}

func (s *HTTPTextSource) Name() string {
	return s.sourceName
}

func (s *HTTPTextSource) FetchText(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch report from %s: %s", s.url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return "", fmt.Errorf("reading report body: %w", err)
	}

	return string(body), nil
}
