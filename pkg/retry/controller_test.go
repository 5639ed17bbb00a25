package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/birchill/hikibiki-data/pkg/downloader"
	jpdicterrors "github.com/birchill/hikibiki-data/pkg/errors"
	"github.com/birchill/hikibiki-data/pkg/jpdict"
	"github.com/birchill/hikibiki-data/pkg/reducer"
	"github.com/birchill/hikibiki-data/pkg/store"
	"github.com/birchill/hikibiki-data/pkg/types"
)

// stubStore is a minimal store.Store double; every Facade.Update call in
// this file's tests fails or succeeds purely based on what the HTTP
// fixture server returns, so the store side just needs to not error.
type stubStore struct{}

func (stubStore) Open(ctx context.Context, schemaVersion int) error { return nil }
func (stubStore) Close() error                                      { return nil }
func (stubStore) Destroy(ctx context.Context) error                 { return nil }
func (stubStore) State() store.State                                { return store.StateOpen }
func (stubStore) GetDataVersion(ctx context.Context, series types.Series) (types.Version, bool, error) {
	return types.Version{}, false, nil
}
func (stubStore) ClearTable(ctx context.Context, series types.Series) error { return nil }
func (stubStore) BulkUpdateTable(ctx context.Context, in store.BulkUpdateInput) error {
	if in.OnProgress != nil {
		in.OnProgress(len(in.Put), len(in.Put))
	}
	return nil
}
func (stubStore) GetKanji(ctx context.Context, codePoints []int32) ([]types.KanjiEntry, error) {
	return nil, nil
}
func (stubStore) GetRadicals(ctx context.Context) ([]types.RadicalEntry, error) { return nil, nil }
func (stubStore) GetNames(ctx context.Context, query string) ([]types.NameEntry, error) {
	return nil, nil
}
func (stubStore) GetNamesByHiragana(ctx context.Context, normalized string) ([]types.NameEntry, error) {
	return nil, nil
}

// flakyManifestServer serves a valid manifest (for every series/major
// version the facade's majorVersions map requests) on the
// (failUntil+1)th request onward, a 500 before that.
func flakyManifestServer(t *testing.T, failUntil int32) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32

	manifest := `{
		"kanji":    {"4": {"major":4,"minor":0,"patch":0,"snapshot":0,"dateOfCreation":"2024-01-01"}},
		"radicals": {"4": {"major":4,"minor":0,"patch":0,"snapshot":0,"dateOfCreation":"2024-01-01"}},
		"names":    {"3": {"major":3,"minor":0,"patch":0,"snapshot":0,"dateOfCreation":"2024-01-01"}},
		"words":    {"2": {"major":2,"minor":0,"patch":0,"snapshot":0,"dateOfCreation":"2024-01-01"}}
	}`

	mux := http.NewServeMux()
	mux.HandleFunc("/jpdict-rc-en-version.json", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= failUntil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(manifest))
	})
	empty := func(major, minor, patch int) string {
		return fmt.Sprintf(`{"type":"header","version":{"major":%d,"minor":%d,"patch":%d,"dateOfCreation":"2024-01-01"},"records":0}`, major, minor, patch)
	}
	mux.HandleFunc("/kanji-rc-en-4.0.0-full.ljson", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(empty(4, 0, 0)))
	})
	mux.HandleFunc("/radicals-rc-en-4.0.0-full.ljson", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(empty(4, 0, 0)))
	})
	mux.HandleFunc("/names-rc-en-3.0.0-full.ljson", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(empty(3, 0, 0)))
	})
	mux.HandleFunc("/words-rc-en-2.0.0-full.ljson", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(empty(2, 0, 0)))
	})
	return httptest.NewServer(mux), &calls
}

func TestControllerRetriesRetriableErrorThenSucceeds(t *testing.T) {
	server, _ := flakyManifestServer(t, 2)
	defer server.Close()

	dl := downloader.New(downloader.Config{BaseURL: server.URL + "/", Client: server.Client()})
	facade := jpdict.New(jpdict.Config{Store: stubStore{}, Downloader: dl, SchemaVersion: 1})

	var errs []error
	var mu sync.Mutex
	c := New(Config{
		Facade: facade,
		Lang:   "en",
		OnError: func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		},
	})
	c.backoffInitial = 10 * time.Millisecond
	c.Start()
	defer c.Stop()

	if !c.ForceUpdate() {
		t.Fatal("ForceUpdate returned false on an idle controller")
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the controller to recover")
		case <-time.After(5 * time.Millisecond):
		}
		mu.Lock()
		n := len(errs)
		mu.Unlock()
		if n > 0 {
			t.Fatalf("OnError invoked for a retriable error: %v", errs)
		}
		if allSeriesFinished(facade) {
			// Every series is idle with a LastCheck, which only a
			// successful pass produces; the retriable 500s are behind us.
			return
		}
	}
}

// allSeriesFinished reports whether every series' reducer state is idle
// with a LastCheck set.
func allSeriesFinished(f *jpdict.Facade) bool {
	for _, s := range types.AllSeries {
		st := f.SeriesUpdateState(s)
		if st.Status != reducer.StatusIdle || st.LastCheck == nil {
			return false
		}
	}
	return true
}

// TestControllerSurfacesNonRetriableErrorOnce uses a manifest that
// simply omits every series, which the downloader reports as
// ErrMajorVersionNotFound — a protocol error, not retriable — so the
// controller must surface it on the very first attempt.
func TestControllerSurfacesNonRetriableErrorOnce(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/jpdict-rc-en-version.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dl := downloader.New(downloader.Config{BaseURL: server.URL + "/", Client: server.Client()})
	facade := jpdict.New(jpdict.Config{Store: stubStore{}, Downloader: dl, SchemaVersion: 1})

	errCh := make(chan error, 1)
	c := New(Config{
		Facade:  facade,
		Lang:    "en",
		OnError: func(err error) { errCh <- err },
	})
	c.Start()
	defer c.Stop()
	c.ForceUpdate()

	select {
	case err := <-errCh:
		if !errors.Is(err, jpdicterrors.ErrMajorVersionNotFound) {
			t.Errorf("got %v, want ErrMajorVersionNotFound", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnError was never called for a missing manifest entry")
	}
}

// TestForceUpdateCoalescesAndBlocksWhileBusy drives the controller's
// internal busy flags directly, since the exact moment a real Facade
// call is "running" is otherwise racy to observe from outside.
func TestForceUpdateCoalescesAndBlocksWhileBusy(t *testing.T) {
	c := New(Config{})
	defer close(c.forceCh)

	if !c.ForceUpdate() {
		t.Fatal("first ForceUpdate on an idle controller should succeed")
	}
	if c.ForceUpdate() {
		t.Fatal("a second ForceUpdate should coalesce with the pending one, not succeed")
	}
	<-c.forceCh // drain so the channel is empty again

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()
	if c.ForceUpdate() {
		t.Fatal("ForceUpdate should be blocked while an attempt is running")
	}
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	c.mu.Lock()
	c.inFirstRetry = true
	c.mu.Unlock()
	if c.ForceUpdate() {
		t.Fatal("ForceUpdate should be blocked during the immediate first retry")
	}
	c.mu.Lock()
	c.inFirstRetry = false
	c.mu.Unlock()

	if !c.ForceUpdate() {
		t.Fatal("ForceUpdate should succeed again once neither flag is set")
	}
}
