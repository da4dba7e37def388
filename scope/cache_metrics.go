package scope

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// InstrumentedCache wraps a Cache and counts lookups.
type InstrumentedCache struct {
	Cache

	hits   prometheus.Counter
	misses prometheus.Counter
	stores prometheus.Counter
}

// NewInstrumentedCache registers cache metrics with reg and returns wrapped
// cache. Passing nil registerer keeps metrics unregistered, which is handy in
// tests.
func NewInstrumentedCache(c Cache, reg prometheus.Registerer) (*InstrumentedCache, error) {
	ic := &InstrumentedCache{
		Cache: c,
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ncss",
			Subsystem: "path_cache",
			Name:      "hits_total",
			Help:      "Number of path lookups served from cache.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ncss",
			Subsystem: "path_cache",
			Name:      "misses_total",
			Help:      "Number of path lookups which required building a new path.",
		}),
		stores: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ncss",
			Subsystem: "path_cache",
			Name:      "stores_total",
			Help:      "Number of paths stored in cache.",
		}),
	}
	entries := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "ncss",
		Subsystem: "path_cache",
		Name:      "entries",
		Help:      "Number of distinct paths held by cache.",
	}, func() float64 { return float64(c.Len()) })

	if reg != nil {
		for _, col := range []prometheus.Collector{ic.hits, ic.misses, ic.stores, entries} {
			if err := reg.Register(col); err != nil {
				return nil, fmt.Errorf("unable to register path cache metrics: %w", err)
			}
		}
	}
	return ic, nil
}

func (c *InstrumentedCache) Get(key string) (Path, bool) {
	p, ok := c.Cache.Get(key)
	if ok {
		c.hits.Inc()
	} else {
		c.misses.Inc()
	}
	return p, ok
}

// Put counts only paths which actually went into the cache.
func (c *InstrumentedCache) Put(key string, p Path) Path {
	stored := c.Cache.Put(key, p)
	if samePath(stored, p) {
		c.stores.Inc()
	}
	return stored
}

func samePath(a, b Path) bool {
	return len(a) == len(b) && (len(a) == 0 || &a[0] == &b[0])
}
