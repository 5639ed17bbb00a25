package metrics

import (
	"time"

	"github.com/birchill/hikibiki-data/pkg/reducer"
	"github.com/birchill/hikibiki-data/pkg/store"
	"github.com/birchill/hikibiki-data/pkg/types"
)

// StateSource is the subset of the Database Facade the collector needs;
// satisfied by *jpdict.Facade. Kept as a narrow interface here (rather
// than importing pkg/jpdict directly) so metrics has no dependency on
// the facade's orchestration internals.
type StateSource interface {
	StoreState() store.State
	SeriesUpdateState(series types.Series) reducer.State
}

// Collector periodically samples a StateSource into the package's
// Prometheus gauges.
type Collector struct {
	source StateSource
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector for source.
func NewCollector(source StateSource) *Collector {
	return &Collector{
		source: source,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics every 15 seconds, with an immediate
// first collection.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectStoreState()
	c.collectSeriesStates()
}

func (c *Collector) collectStoreState() {
	current := c.source.StoreState()
	for _, s := range []store.State{store.StateIdle, store.StateOpening, store.StateOpen, store.StateError, store.StateDeleting} {
		v := 0.0
		if s == current {
			v = 1.0
		}
		StoreState.WithLabelValues(s.String()).Set(v)
	}
}

func (c *Collector) collectSeriesStates() {
	for _, series := range types.AllSeries {
		state := c.source.SeriesUpdateState(series)
		for _, s := range []reducer.Status{reducer.StatusIdle, reducer.StatusChecking, reducer.StatusDownloading, reducer.StatusUpdatingDB} {
			v := 0.0
			if s == state.Status {
				v = 1.0
			}
			UpdateStateTotal.WithLabelValues(series.String(), s.String()).Set(v)
		}
	}
}
