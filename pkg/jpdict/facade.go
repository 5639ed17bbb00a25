// Package jpdict is the Database Facade (§4.5): it owns the Store, the
// Downloader, the per-series Applier registry and the event broker,
// projecting raw reducer Actions into observable per-series update state
// and answering GetKanji/GetNames queries against the committed tables.
package jpdict

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/birchill/hikibiki-data/pkg/applier"
	"github.com/birchill/hikibiki-data/pkg/downloader"
	"github.com/birchill/hikibiki-data/pkg/events"
	jpdicterrors "github.com/birchill/hikibiki-data/pkg/errors"
	"github.com/birchill/hikibiki-data/pkg/log"
	"github.com/birchill/hikibiki-data/pkg/reducer"
	"github.com/birchill/hikibiki-data/pkg/store"
	"github.com/birchill/hikibiki-data/pkg/types"
)

// majorGroups partitions the four series into the fan-out groups that
// run concurrently; series within one group update sequentially so a
// kanji-group update never races the radicals table it depends on.
var majorGroups = [][]types.Series{
	{types.SeriesKanji, types.SeriesRadicals},
	{types.SeriesNames},
	{types.SeriesWords},
}

// majorVersions pins the manifest major version requested per series.
// Each series' wire shape (pkg/seriesspec) is tied to one major version;
// a future breaking shape change bumps its entry here rather than
// threading a major version through every caller.
var majorVersions = map[types.Series]int{
	types.SeriesKanji:    4,
	types.SeriesRadicals: 4,
	types.SeriesNames:    3,
	types.SeriesWords:    2,
}

// Config configures a Facade.
type Config struct {
	Store      store.Store
	Downloader *downloader.Downloader
	Broker     *events.Broker
	SchemaVersion int
}

// Facade is the single entry point a consumer (cmd/jpdictsync, or the
// retry wrapper in pkg/retry) uses to drive syncs and run queries.
type Facade struct {
	store         store.Store
	downloader    *downloader.Downloader
	registry      *applier.Registry
	broker        *events.Broker
	schemaVersion int
	logger        zerolog.Logger

	// updateMu guards the in-flight-update bookkeeping below, realizing
	// §4.5's update() coalescing: an overlapping call for the same
	// language joins the call already running; a call for a different
	// language cancels it and waits for it to unwind before restarting.
	updateMu     sync.Mutex
	updateLang   string
	updateCancel context.CancelFunc
	updateDone   chan struct{}
	updateErr    error

	statesMu sync.RWMutex
	states   map[types.Series]reducer.State

	radicalsMu sync.Mutex
	radicals   *radicalMaps
}

// New constructs a Facade from cfg.
func New(cfg Config) *Facade {
	states := make(map[types.Series]reducer.State, len(types.AllSeries))
	for _, s := range types.AllSeries {
		states[s] = reducer.Idle()
	}
	return &Facade{
		store:         cfg.Store,
		downloader:    cfg.Downloader,
		registry:      applier.NewRegistry(),
		broker:        cfg.Broker,
		schemaVersion: cfg.SchemaVersion,
		logger:        log.WithComponent("jpdict"),
		states:        states,
	}
}

// Open opens the backing store at the facade's configured schema
// version.
func (f *Facade) Open(ctx context.Context) error {
	return f.store.Open(ctx, f.schemaVersion)
}

// Close releases the store handle.
func (f *Facade) Close() error {
	return f.store.Close()
}

// StoreState satisfies metrics.StateSource.
func (f *Facade) StoreState() store.State {
	return f.store.State()
}

// SeriesUpdateState satisfies metrics.StateSource.
func (f *Facade) SeriesUpdateState(series types.Series) reducer.State {
	f.statesMu.RLock()
	defer f.statesMu.RUnlock()
	return f.states[series]
}

// Update runs a full sync pass: every major group runs concurrently,
// with the series inside one group updated one at a time, per §4.5's
// fan-out rule. ForceFetch bypasses the cached manifest for lang.
//
// A call that overlaps one already in flight for the same lang joins
// it and returns its outcome rather than starting a second pass. A
// call for a different lang cancels the in-flight pass, waits for it
// to unwind, then restarts with the new language. Canceling ctx cancels
// the pass this call started.
func (f *Facade) Update(ctx context.Context, lang string, forceFetch bool) error {
	for {
		f.updateMu.Lock()
		if f.updateCancel == nil {
			break
		}
		if f.updateLang == lang {
			done := f.updateDone
			f.updateMu.Unlock()
			select {
			case <-done:
				f.updateMu.Lock()
				err := f.updateErr
				f.updateMu.Unlock()
				return err
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		cancel, done := f.updateCancel, f.updateDone
		f.updateMu.Unlock()
		cancel()
		<-done
	}

	updateCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	f.updateLang = lang
	f.updateCancel = cancel
	f.updateDone = done
	f.updateMu.Unlock()

	err := f.runUpdate(updateCtx, lang, forceFetch)

	f.updateMu.Lock()
	f.updateErr = err
	f.updateLang = ""
	f.updateCancel = nil
	f.updateDone = nil
	f.updateMu.Unlock()
	close(done)
	cancel()

	return err
}

// runUpdate fans out the majorGroups and runs each group's series
// sequentially, under the shared update context Update manages.
func (f *Facade) runUpdate(ctx context.Context, lang string, forceFetch bool) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, group := range majorGroups {
		group := group
		g.Go(func() error {
			for _, series := range group {
				if err := f.updateSeries(gctx, series, lang, forceFetch); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// CancelUpdate aborts any in-flight update for series, if one exists.
func (f *Facade) CancelUpdate(series types.Series) bool {
	return f.registry.CancelActive(f.store, series)
}

// updateSeries drives one series' worth of download-and-apply,
// projecting the applier's actions into observable state as they arrive
// and publishing a stateupdated event after each transition.
func (f *Facade) updateSeries(ctx context.Context, series types.Series, lang string, forceFetch bool) error {
	current, hasCurrent, err := f.store.GetDataVersion(ctx, series)
	if err != nil {
		return jpdicterrors.WithSeries(series.String(), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := f.registry.Acquire(f.store, series, cancel); err != nil {
		return err
	}
	defer f.registry.Release(f.store, series)

	f.setState(series, reducer.Reduce(f.SeriesUpdateState(series), reducer.Action{Kind: reducer.ActionStart}))

	a, err := applier.New(f.store, series)
	if err != nil {
		return jpdicterrors.WithSeries(series.String(), err)
	}

	stream, err := f.downloader.Download(ctx, downloader.Request{
		Series:       series,
		MajorVersion: majorVersions[series],
		Lang:         lang,
		Current:      current,
		HasCurrent:   hasCurrent,
		ForceFetch:   forceFetch,
	})
	if err != nil {
		f.finishWithError(series, err, false)
		return jpdicterrors.WithSeries(series.String(), err)
	}

	done := make(chan struct{})
	committed := false
	go func() {
		defer close(done)
		for action := range a.Actions() {
			if action.Kind == reducer.ActionFinishPatch {
				committed = true
			}
			f.setState(series, reducer.Reduce(f.SeriesUpdateState(series), action))
		}
	}()

	runErr := a.Run(ctx, stream)
	<-done

	if runErr != nil {
		f.finishWithError(series, runErr, committed)
		return jpdicterrors.WithSeries(series.String(), runErr)
	}

	if series == types.SeriesRadicals {
		f.invalidateRadicalMaps()
	}

	return nil
}

// finishWithError folds an error action into series' state; CheckDate is
// set only when committed reports that a patch was applied first.
func (f *Facade) finishWithError(series types.Series, err error, committed bool) {
	var checkDate *int64
	if committed {
		now := time.Now().UnixMilli()
		checkDate = &now
	}
	f.setState(series, reducer.Reduce(f.SeriesUpdateState(series), reducer.Action{
		Kind:      reducer.ActionError,
		Retriable: jpdicterrors.Retriable(err),
		CheckDate: checkDate,
	}))
}

func (f *Facade) setState(series types.Series, next reducer.State) {
	f.statesMu.Lock()
	f.states[series] = next
	f.statesMu.Unlock()

	if f.broker != nil {
		f.broker.Publish(&events.Event{
			Topic:  events.TopicStateUpdated,
			Series: series,
			Metadata: map[string]string{
				"status": next.Status.String(),
			},
		})
	}
}
