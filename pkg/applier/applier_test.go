package applier

import (
	"context"
	"errors"
	"testing"

	"github.com/birchill/hikibiki-data/pkg/downloader"
	"github.com/birchill/hikibiki-data/pkg/reducer"
	"github.com/birchill/hikibiki-data/pkg/store"
	"github.com/birchill/hikibiki-data/pkg/types"
)

var errBoom = errors.New("boom")

// fakeStore is a minimal store.Store double that just records the calls
// Applier makes, so these tests don't need a real bbolt file.
type fakeStore struct {
	bulkUpdates []store.BulkUpdateInput
	failNext    error
}

func (f *fakeStore) Open(ctx context.Context, schemaVersion int) error { return nil }
func (f *fakeStore) Close() error                                      { return nil }
func (f *fakeStore) Destroy(ctx context.Context) error                 { return nil }
func (f *fakeStore) State() store.State                                { return store.StateOpen }
func (f *fakeStore) GetDataVersion(ctx context.Context, series types.Series) (types.Version, bool, error) {
	return types.Version{}, false, nil
}
func (f *fakeStore) ClearTable(ctx context.Context, series types.Series) error { return nil }
func (f *fakeStore) BulkUpdateTable(ctx context.Context, in store.BulkUpdateInput) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	if in.OnProgress != nil {
		in.OnProgress(len(in.Put), len(in.Put))
	}
	f.bulkUpdates = append(f.bulkUpdates, in)
	return nil
}
func (f *fakeStore) GetKanji(ctx context.Context, codePoints []int32) ([]types.KanjiEntry, error) {
	return nil, nil
}
func (f *fakeStore) GetRadicals(ctx context.Context) ([]types.RadicalEntry, error) { return nil, nil }
func (f *fakeStore) GetNames(ctx context.Context, query string) ([]types.NameEntry, error) {
	return nil, nil
}
func (f *fakeStore) GetNamesByHiragana(ctx context.Context, normalized string) ([]types.NameEntry, error) {
	return nil, nil
}

// feed builds a pre-loaded Stream so tests can drive Applier.Run without
// a real HTTP round trip.
func feed(events []downloader.Event, streamErr error) *downloader.Stream {
	return downloader.NewTestStream(events, streamErr)
}

func drainActions(t *testing.T, ch <-chan reducer.Action) []reducer.Action {
	t.Helper()
	var out []reducer.Action
	for a := range ch {
		out = append(out, a)
	}
	return out
}

func TestApplierFullSnapshotCommitsOneBulkUpdate(t *testing.T) {
	fs := &fakeStore{}
	a, err := New(fs, types.SeriesKanji)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	entryRaw := []byte(`{"c":26085,"on":["ニチ"],"kun":["ひ"]}`)
	stream := feed([]downloader.Event{
		{Kind: downloader.EventVersion, Version: types.Version{Major: 3, Minor: 0, Patch: 0}, Partial: false},
		{Kind: downloader.EventEntry, Raw: entryRaw},
		{Kind: downloader.EventProgress, Loaded: 1, Total: 1},
		{Kind: downloader.EventVersionEnd},
	}, nil)

	done := make(chan []reducer.Action, 1)
	go func() { done <- drainActions(t, a.Actions()) }()

	if err := a.Run(context.Background(), stream); err != nil {
		t.Fatalf("Run: %v", err)
	}
	actions := <-done

	if len(fs.bulkUpdates) != 1 {
		t.Fatalf("bulkUpdates = %d, want 1", len(fs.bulkUpdates))
	}
	update := fs.bulkUpdates[0]
	if !update.Drop.All {
		t.Error("full snapshot should drop all existing keys")
	}
	if len(update.Put) != 1 {
		t.Errorf("Put = %d records, want 1", len(update.Put))
	}

	var kinds []reducer.ActionKind
	for _, act := range actions {
		kinds = append(kinds, act.Kind)
	}
	want := []reducer.ActionKind{
		reducer.ActionStartDownload, reducer.ActionProgress, reducer.ActionFinishDownload,
		reducer.ActionProgress, reducer.ActionFinishPatch, reducer.ActionFinish,
	}
	if len(kinds) != len(want) {
		t.Fatalf("actions = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("actions[%d] = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestApplierDeletionDuringFullSnapshotIsViolation(t *testing.T) {
	fs := &fakeStore{}
	a, _ := New(fs, types.SeriesKanji)

	stream := feed([]downloader.Event{
		{Kind: downloader.EventVersion, Version: types.Version{Major: 3}, Partial: false},
		{Kind: downloader.EventDeletion, Raw: []byte(`{"c":26085,"deleted":true}`)},
	}, nil)

	go drainActions(t, a.Actions())

	if err := a.Run(context.Background(), stream); err == nil {
		t.Fatal("expected a protocol-violation error, got nil")
	}
}

func TestApplierUnclosedVersionAtStreamEndIsViolation(t *testing.T) {
	fs := &fakeStore{}
	a, _ := New(fs, types.SeriesKanji)

	stream := feed([]downloader.Event{
		{Kind: downloader.EventVersion, Version: types.Version{Major: 3}, Partial: false},
	}, nil)

	go drainActions(t, a.Actions())

	if err := a.Run(context.Background(), stream); err == nil {
		t.Fatal("expected an unclosed-version error, got nil")
	}
}

func TestApplierSecondVersionBeforeCloseIsViolation(t *testing.T) {
	fs := &fakeStore{}
	a, _ := New(fs, types.SeriesKanji)

	stream := feed([]downloader.Event{
		{Kind: downloader.EventVersion, Version: types.Version{Major: 3, Patch: 0}},
		{Kind: downloader.EventVersion, Version: types.Version{Major: 3, Patch: 1}},
	}, nil)

	go drainActions(t, a.Actions())

	if err := a.Run(context.Background(), stream); err == nil {
		t.Fatal("expected an unclosed-version error, got nil")
	}
}

func TestApplierBulkUpdateFailurePropagatesAndStopsProcessing(t *testing.T) {
	fs := &fakeStore{failNext: errBoom}
	a, _ := New(fs, types.SeriesKanji)

	stream := feed([]downloader.Event{
		{Kind: downloader.EventVersion, Version: types.Version{Major: 3}},
		{Kind: downloader.EventVersionEnd},
	}, nil)

	go drainActions(t, a.Actions())

	if err := a.Run(context.Background(), stream); err == nil {
		t.Fatal("expected the bulk-update failure to propagate")
	}
}
