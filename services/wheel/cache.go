package wheel

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{Name: "wheel_prize_cache_hits_total"})
	cacheMiss = promauto.NewCounter(prometheus.CounterOpts{Name: "wheel_prize_cache_miss_total"})

	spinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wheel_spins_total",
		Help: "Successful wheel spins by prize type.",
	}, []string{"prize_type"})
)

// PrizeCache holds the ordered prize list. Loads are collapsed with
// singleflight and a load that started before an Invalidate is discarded.
type PrizeCache struct {
	mu       sync.RWMutex
	prizes   []*WheelPrize
	loadedAt time.Time
	gen      uint64
	ttl      time.Duration
	group    singleflight.Group
}

func NewPrizeCache(ttl time.Duration) *PrizeCache {
	return &PrizeCache{ttl: ttl}
}

func (c *PrizeCache) Get() ([]*WheelPrize, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.prizes == nil || (c.ttl > 0 && time.Since(c.loadedAt) > c.ttl) {
		return nil, false
	}
	return c.prizes, true
}

func (c *PrizeCache) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

func (c *PrizeCache) set(gen uint64, prizes []*WheelPrize) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	if prizes == nil {
		prizes = []*WheelPrize{}
	}
	c.prizes = prizes
	c.loadedAt = time.Now()
}

func (c *PrizeCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.prizes = nil
}

func (c *PrizeCache) Load(ctx context.Context, loader func(context.Context) ([]*WheelPrize, error)) ([]*WheelPrize, error) {
	if prizes, ok := c.Get(); ok {
		cacheHits.Inc()
		return prizes, nil
	}
	cacheMiss.Inc()

	v, err, _ := c.group.Do("prizes", func() (any, error) {
		gen := c.generation()
		prizes, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		c.set(gen, prizes)
		return prizes, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*WheelPrize), nil
}
