// Command bench runs a synthetic TTL workload against the cache and exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/qsync/cache"
	pmet "github.com/IvanBrykalov/qsync/metrics/prom"
)

func main() {
	// ---- Flags ----
	var (
		shards   = flag.Int("shards", 0, "number of shards (0=auto)")
		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 80, "read percentage [0..100]")
		keys     = flag.Int("keys", 100_000, "keyspace size")
		ttlMin   = flag.Duration("ttl-min", 50*time.Millisecond, "minimum entry TTL")
		ttlMax   = flag.Duration("ttl-max", 2*time.Second, "maximum entry TTL")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "random seed")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr; empty = disabled")
		logLevel    = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Str("cmd", "bench").Logger()
	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		log.Fatal().Err(err).Str("level", *logLevel).Msg("bad -log-level")
	}
	log = log.Level(lvl)

	if *ttlMin <= 0 || *ttlMax < *ttlMin {
		log.Fatal().Dur("ttl-min", *ttlMin).Dur("ttl-max", *ttlMax).Msg("need 0 < ttl-min <= ttl-max")
	}
	if *keys <= 0 {
		log.Fatal().Int("keys", *keys).Msg("keyspace must be positive")
	}

	// ---- pprof + Prometheus (both on DefaultServeMux) ----
	if *pprofAddr != "" {
		go serve(log, "pprof", *pprofAddr)
	}
	opt := cache.Options[string, string]{
		Shards:   *shards,
		SizeHint: *keys,
		Logger:   &log,
	}
	if *metricsAddr != "" {
		opt.Metrics = pmet.New(nil, "qsync", "bench", nil)
		http.Handle("/metrics", promhttp.Handler())
		go serve(log, "metrics", *metricsAddr)
	}

	c := cache.New[string, string](opt)
	defer func() { _ = c.Close() }()

	// ---- Snapshot flags for goroutines ----
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}
	ttlSpan := int64(*ttlMax - *ttlMin)
	readPctVal := *readPct
	keysN := *keys
	seedBase := *seed

	// ---- Load generation ----
	var reads, writes, hits, total atomic.Uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	log.Info().
		Int("workers", workersN).
		Int("keys", keysN).
		Dur("duration", *duration).
		Msg("starting workload")

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workersN; w++ {
		w := w // per-iteration copy (go < 1.22 loop semantics)
		g.Go(func() error {
			// rand.Rand is NOT goroutine-safe: one per worker.
			r := rand.New(rand.NewSource(seedBase + int64(w)*9973))
			for gctx.Err() == nil {
				total.Add(1)
				k := "k:" + strconv.Itoa(r.Intn(keysN))
				if r.Intn(100) < readPctVal {
					reads.Add(1)
					if _, ok := c.Get(k); ok {
						hits.Add(1)
					}
					continue
				}
				writes.Add(1)
				ttl := *ttlMin
				if ttlSpan > 0 {
					ttl += time.Duration(r.Int63n(ttlSpan))
				}
				c.Put(k, "v"+strconv.Itoa(r.Int()), ttl)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("worker failed")
	}
	elapsed := time.Since(start)

	// ---- Report ----
	ops := total.Load()
	readsN := reads.Load()
	hitRate := 0.0
	if readsN > 0 {
		hitRate = float64(hits.Load()) / float64(readsN) * 100
	}
	st := c.Stats()

	fmt.Printf("shards=%d workers=%d keys=%d ttl=[%v..%v] dur=%v seed=%d\n",
		*shards, workersN, keysN, *ttlMin, *ttlMax, elapsed, seedBase)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d  hit-rate=%.2f%%\n",
		ops, float64(ops)/elapsed.Seconds(), readsN, writes.Load(), hitRate)
	fmt.Printf("entries=%d pending=%d expired=%d removed=%d faults=%d\n",
		st.Entries, st.Pending, st.Expired, st.Removed, st.Faults)
}

func serve(log zerolog.Logger, name, addr string) {
	log.Info().Str("addr", addr).Msgf("%s: serving", name)
	if err := http.ListenAndServe(addr, nil); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Str("server", name).Msg("listener stopped")
	}
}
