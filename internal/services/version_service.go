package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const versionCacheTTL = 15 * time.Minute

// VersionService looks up the latest published release for the update
// notice. The lookup is cached and strictly non-critical: failures degrade
// to "no latest version known".
type VersionService struct {
	current    string
	url        string
	httpClient *http.Client

	mu        sync.Mutex
	latest    *string
	expiresAt time.Time
}

func NewVersionService(current, url string) *VersionService {
	return &VersionService{
		current:    current,
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *VersionService) Current() string {
	return s.current
}

// Latest returns the most recent release tag, or nil when the registry is
// unreachable or has not been checked successfully yet.
func (s *VersionService) Latest(ctx context.Context) *string {
	if s.url == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Now().Before(s.expiresAt) {
		return s.latest
	}

	tag, err := s.fetch(ctx)
	if err != nil {
		// Keep a failed lookup cached too, so a dead registry is not
		// re-polled on every request.
		s.latest = nil
		s.expiresAt = time.Now().Add(versionCacheTTL)
		return nil
	}

	s.latest = &tag
	s.expiresAt = time.Now().Add(versionCacheTTL)
	return s.latest
}

func (s *VersionService) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("release registry returned status %d", resp.StatusCode)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", err
	}
	if release.TagName == "" {
		return "", fmt.Errorf("release registry returned no tag")
	}
	return release.TagName, nil
}
