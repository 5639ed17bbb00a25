package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	jpdicterrors "github.com/birchill/hikibiki-data/pkg/errors"
	"github.com/birchill/hikibiki-data/pkg/types"
)

func TestManifestCacheFetchIsCachedUntilForceFetch(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"kanji":{"3":{"major":3,"minor":0,"patch":1,"snapshot":0,"dateOfCreation":"2024-01-01"}}}`))
	}))
	defer server.Close()

	cache := newManifestCache(server.URL+"/", server.Client())
	ctx := context.Background()

	if _, err := cache.fetch(ctx, "en", false); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := cache.fetch(ctx, "en", false); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (cached)", calls)
	}

	if _, err := cache.fetch(ctx, "en", true); err != nil {
		t.Fatalf("fetch with forceFetch: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (forceFetch bypasses cache)", calls)
	}
}

func TestManifestCacheFetchNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cache := newManifestCache(server.URL+"/", server.Client())
	_, err := cache.fetch(context.Background(), "en", false)
	if err != jpdicterrors.ErrManifestNotFound {
		t.Errorf("err = %v, want ErrManifestNotFound", err)
	}
}

func TestEntryForMissingMajorVersion(t *testing.T) {
	m := manifest{"kanji": {"3": manifestEntry{Major: 3, DateOfCreation: "2024-01-01"}}}
	_, err := entryFor(m, types.SeriesKanji, 4)
	if err != jpdicterrors.ErrMajorVersionNotFound {
		t.Errorf("err = %v, want ErrMajorVersionNotFound", err)
	}
}

func TestEntryForMalformedEntry(t *testing.T) {
	m := manifest{"kanji": {"3": manifestEntry{Major: 3}}}
	_, err := entryFor(m, types.SeriesKanji, 3)
	if err != jpdicterrors.ErrManifestInvalid {
		t.Errorf("err = %v, want ErrManifestInvalid", err)
	}
}
