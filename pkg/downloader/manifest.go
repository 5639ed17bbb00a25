package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	jpdicterrors "github.com/birchill/hikibiki-data/pkg/errors"
	"github.com/birchill/hikibiki-data/pkg/types"
)

// manifestEntry is one (series, major version) row of the version
// manifest.
type manifestEntry struct {
	Major           int    `json:"major"`
	Minor           int    `json:"minor"`
	Patch           int    `json:"patch"`
	Snapshot        int    `json:"snapshot"`
	DateOfCreation  string `json:"dateOfCreation"`
	DatabaseVersion string `json:"databaseVersion,omitempty"`
}

func (e manifestEntry) valid() bool {
	return e.DateOfCreation != ""
}

// manifest is keyed by series name, then by major version as a string
// (JSON object keys are always strings).
type manifest map[string]map[string]manifestEntry

// manifestCache fetches and caches the version manifest per language.
// forceFetch bypasses the cache for that language, per §4.2 step 1.
type manifestCache struct {
	baseURL string
	client  *http.Client

	mu    sync.Mutex
	byLang map[string]manifest
}

func newManifestCache(baseURL string, client *http.Client) *manifestCache {
	return &manifestCache{
		baseURL: baseURL,
		client:  client,
		byLang:  make(map[string]manifest),
	}
}

func (c *manifestCache) fetch(ctx context.Context, lang string, forceFetch bool) (manifest, error) {
	c.mu.Lock()
	if !forceFetch {
		if m, ok := c.byLang[lang]; ok {
			c.mu.Unlock()
			return m, nil
		}
	}
	c.mu.Unlock()

	url := fmt.Sprintf("%sjpdict-rc-%s-version.json", c.baseURL, lang)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, jpdicterrors.WithSeries(lang, fmt.Errorf("%w: %v", jpdicterrors.ErrManifestNotAccessible, err))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jpdicterrors.ErrManifestNotAccessible, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, jpdicterrors.ErrManifestNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", jpdicterrors.ErrManifestNotAccessible, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jpdicterrors.ErrManifestNotAccessible, err)
	}

	var m manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", jpdicterrors.ErrManifestInvalid, err)
	}

	c.mu.Lock()
	c.byLang[lang] = m
	c.mu.Unlock()

	return m, nil
}

// entryFor locates manifest[series][majorVersion] and validates its shape,
// per §4.2 step 2.
func entryFor(m manifest, series types.Series, majorVersion int) (manifestEntry, error) {
	bySeries, ok := m[series.String()]
	if !ok {
		return manifestEntry{}, jpdicterrors.ErrMajorVersionNotFound
	}
	entry, ok := bySeries[fmt.Sprintf("%d", majorVersion)]
	if !ok {
		return manifestEntry{}, jpdicterrors.ErrMajorVersionNotFound
	}
	if !entry.valid() {
		return manifestEntry{}, jpdicterrors.ErrManifestInvalid
	}
	return entry, nil
}
