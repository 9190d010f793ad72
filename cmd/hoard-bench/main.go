// Command hoard-bench drives concurrent load against a cache and reports
// throughput and hit rates per eviction strategy.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mirkobrombin/go-hoard/v1/cache"
	"github.com/mirkobrombin/go-hoard/v1/stats"
)

var (
	workers  = flag.Int("workers", 8, "number of concurrent workers")
	keyspace = flag.Int("keyspace", 4096, "number of distinct keys")
	maxSize  = flag.Int("maxsize", 1024, "cache capacity")
	ttl      = flag.Duration("ttl", 0, "default TTL (0 disables expiration)")
	duration = flag.Duration("duration", 5*time.Second, "run time per strategy")
	setRatio = flag.Int("set-ratio", 25, "percentage of operations that are writes")
	metrics  = flag.String("metrics", "", "address to expose Prometheus metrics on (empty disables)")
)

func main() {
	flag.Parse()
	ctx := context.Background()

	reg := stats.NewRegistry()
	if *metrics != "" {
		go func() {
			http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			log.Fatal(http.ListenAndServe(*metrics, nil))
		}()
	}

	strategies := []cache.Strategy{
		cache.FIFOStrategy,
		cache.LIFOStrategy,
		cache.LRUStrategy,
		cache.MRUStrategy,
		cache.LFUStrategy,
		cache.RRStrategy,
	}

	keys := make([]string, *keyspace)
	for i := range keys {
		keys[i] = fmt.Sprintf("key:%d", i)
	}

	for _, s := range strategies {
		tracker := stats.NewTracker()
		if *metrics != "" {
			stats.Register(reg, s.String(), tracker)
		}
		c, err := cache.New(
			cache.WithStrategy[int](s),
			cache.WithMaxSize[int](*maxSize),
			cache.WithTTL[int](*ttl),
			cache.WithStats[int](tracker),
		)
		if err != nil {
			log.Fatalf("building %s cache: %v", s, err)
		}

		start := time.Now()
		deadline := start.Add(*duration)
		var ops int64
		var mu sync.Mutex
		var wg sync.WaitGroup
		for w := 0; w < *workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				local := int64(0)
				for time.Now().Before(deadline) {
					key := keys[rand.Intn(len(keys))]
					if rand.Intn(100) < *setRatio {
						_ = c.Set(ctx, key, 1)
					} else {
						_, _, _ = c.Get(ctx, key)
					}
					local++
				}
				mu.Lock()
				ops += local
				mu.Unlock()
			}()
		}
		wg.Wait()

		elapsed := time.Since(start)
		info := tracker.Info()
		fmt.Printf("%-4s  %12.0f ops/s  hit_rate=%.3f  evictions=%d  entries=%d\n",
			s, float64(ops)/elapsed.Seconds(), info.HitRate(), info.Evictions, c.Size())
	}
}
