// Package applier consumes one Downloader event stream end-to-end per
// §4.3, accumulating put/drop buffers per file, driving a single atomic
// Store.BulkUpdateTable per file boundary, and emitting reducer Actions
// so a caller (pkg/jpdict) can project update-state without re-deriving
// it from the raw event stream itself.
package applier

import (
	"context"
	"fmt"
	"time"

	jpdicterrors "github.com/birchill/hikibiki-data/pkg/errors"
	"github.com/birchill/hikibiki-data/pkg/downloader"
	"github.com/birchill/hikibiki-data/pkg/reducer"
	"github.com/birchill/hikibiki-data/pkg/seriesspec"
	"github.com/birchill/hikibiki-data/pkg/store"
	"github.com/birchill/hikibiki-data/pkg/types"
)

// Applier drives one series' worth of Store writes from a Downloader
// stream, emitting Actions the reducer can fold into update state.
type Applier struct {
	store   store.Store
	series  types.Series
	spec    seriesspec.Spec
	actions chan reducer.Action
}

// New constructs an Applier for series, backed by st.
func New(st store.Store, series types.Series) (*Applier, error) {
	spec, err := seriesspec.ForSeries(series)
	if err != nil {
		return nil, err
	}
	return &Applier{
		store:   st,
		series:  series,
		spec:    spec,
		actions: make(chan reducer.Action, 16),
	}, nil
}

// Actions returns the channel of reducer Actions emitted while Run is in
// flight. Closed when Run returns.
func (a *Applier) Actions() <-chan reducer.Action {
	return a.actions
}

// Run consumes stream to completion (or failure), writing to the store at
// each file boundary. Returns the first error encountered, or nil if
// every planned file applied cleanly and the stream ended without an
// unclosed version.
func (a *Applier) Run(ctx context.Context, stream *downloader.Stream) error {
	defer close(a.actions)

	var (
		put        []store.Record
		drop       []string
		current    types.Version
		hasCurrent bool
		partial    bool
	)

	for ev := range stream.Events() {
		switch ev.Kind {
		case downloader.EventVersion:
			if hasCurrent {
				return jpdicterrors.WithSeries(a.series.String(), jpdicterrors.ErrUnclosedVersion)
			}
			current = ev.Version
			hasCurrent = true
			partial = ev.Partial
			a.emit(reducer.Action{Kind: reducer.ActionStartDownload, Version: current})

		case downloader.EventEntry:
			rec, err := a.spec.ToRecord(ev.Raw)
			if err != nil {
				return jpdicterrors.WithSeries(a.series.String(), err)
			}
			put = append(put, rec)

		case downloader.EventDeletion:
			if !partial {
				return jpdicterrors.WithSeries(a.series.String(), jpdicterrors.ErrDeletionInSnapshot)
			}
			key, err := a.spec.DeletionKey(ev.Raw)
			if err != nil {
				return jpdicterrors.WithSeries(a.series.String(), err)
			}
			drop = append(drop, key)

		case downloader.EventProgress:
			a.emit(reducer.Action{Kind: reducer.ActionProgress, Progress: reducer.Progress{Loaded: ev.Loaded, Total: ev.Total}})

		case downloader.EventVersionEnd:
			a.emit(reducer.Action{Kind: reducer.ActionFinishDownload, Version: current})

			dropSpec := store.DropAllKeys
			if partial {
				dropSpec = store.Drop{Keys: drop}
			}

			err := a.store.BulkUpdateTable(ctx, store.BulkUpdateInput{
				Series:     a.series,
				Put:        put,
				Drop:       dropSpec,
				Version:    current,
				HasVersion: true,
				OnProgress: func(processed, total int) {
					a.emit(reducer.Action{Kind: reducer.ActionProgress, Progress: reducer.Progress{Loaded: processed, Total: total}})
				},
			})
			if err != nil {
				return jpdicterrors.WithSeries(a.series.String(), err)
			}

			a.emit(reducer.Action{Kind: reducer.ActionFinishPatch, Version: current})
			put, drop = nil, nil
			hasCurrent, partial = false, false
		}
	}

	if err := stream.Err(); err != nil {
		return jpdicterrors.WithSeries(a.series.String(), err)
	}
	if hasCurrent {
		return jpdicterrors.WithSeries(a.series.String(), fmt.Errorf("%w: stream ended mid-file", jpdicterrors.ErrUnclosedVersion))
	}

	now := time.Now().UnixMilli()
	a.emit(reducer.Action{Kind: reducer.ActionFinish, CheckDate: &now})
	return nil
}

func (a *Applier) emit(action reducer.Action) {
	a.actions <- action
}
