// Command kvcache-bench drives a shared KV block cache with a mixed
// lookup/store/load workload and reports throughput, hit rate and latency.
//
// The object store backend is selectable: an in-process memory store for
// engine-only numbers, a MinIO endpoint, or any S3-compatible endpoint via
// the AWS SDK. S3 connection settings come from the KVC_* environment
// variables (see kvcachego.Config) with flags taking precedence.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hupe1980/kvcachego"
	"github.com/hupe1980/kvcachego/metricsprom"
	"github.com/hupe1980/kvcachego/objstore"
	"github.com/hupe1980/kvcachego/objstore/miniostore"
	"github.com/hupe1980/kvcachego/objstore/s3store"
	"github.com/hupe1980/kvcachego/testutil"
)

const maxToken = 100_000

type benchConfig struct {
	iterations    int
	workers       int
	numPrefixes   int
	maxBlocks     int
	reuseProb     float64
	blockSize     uint
	avgBlockBytes uint
	capacityBytes uint64

	store       string
	bucket      string
	rateLimit   float64
	metricsAddr string
	seed        int64
	verbose     bool
}

type stats struct {
	ops         atomic.Int64
	hits        atomic.Int64
	bytesStored atomic.Int64
	loadNanos   atomic.Int64
	loads       atomic.Int64
	storeNanos  atomic.Int64
	stores      atomic.Int64
}

func main() {
	var bc benchConfig
	flag.IntVar(&bc.iterations, "iterations", 50_000, "total operations across all workers")
	flag.IntVar(&bc.workers, "workers", 8, "concurrent workers")
	flag.IntVar(&bc.numPrefixes, "prefixes", 10_000, "size of the shared prefix pool")
	flag.IntVar(&bc.maxBlocks, "max-blocks", 8, "maximum blocks per generated sequence")
	flag.Float64Var(&bc.reuseProb, "reuse-prob", 0.30, "probability of reusing a pooled prefix")
	flag.UintVar(&bc.blockSize, "block-size", 256, "tokens per block")
	flag.UintVar(&bc.avgBlockBytes, "block-bytes", 1<<20, "payload bytes per stored block")
	flag.Uint64Var(&bc.capacityBytes, "capacity-bytes", 10<<30, "cache capacity in bytes")
	flag.StringVar(&bc.store, "store", "memory", "object store backend: memory | minio | s3")
	flag.StringVar(&bc.bucket, "bucket", "", "bucket name (minio and s3 backends)")
	flag.Float64Var(&bc.rateLimit, "rate-limit", 0, "object store ops per second, 0 disables")
	flag.StringVar(&bc.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9091")
	flag.Int64Var(&bc.seed, "seed", 0, "seed for the prefix pool")
	flag.BoolVar(&bc.verbose, "v", false, "debug logging")
	flag.Parse()

	if err := run(context.Background(), bc); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, bc benchConfig) error {
	cfg := kvcachego.DefaultConfig()
	cfg.BlockSizeTokens = uint32(bc.blockSize)
	cfg.CapacityBytes = bc.capacityBytes
	cfg.ApplyEnvDefaults()
	if bc.bucket != "" {
		cfg.S3Bucket = bc.bucket
	}

	store, err := buildStore(ctx, bc, cfg)
	if err != nil {
		return err
	}

	opts := []kvcachego.Option{}
	if bc.verbose {
		opts = append(opts, kvcachego.WithLogger(kvcachego.NewTextLogger(slog.LevelDebug)))
	}
	if bc.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, kvcachego.WithMetricsCollector(
			metricsprom.New(reg, "kvcache", "bench", nil),
		))
		go serveMetrics(bc.metricsAddr, reg)
	}

	cache, err := kvcachego.New(cfg, store, opts...)
	if err != nil {
		return err
	}
	defer cache.Close()

	fmt.Printf("Generating %d prefixes...\n", bc.numPrefixes)
	rng := testutil.NewRNG(bc.seed)
	prefixes := rng.TokenPool(bc.numPrefixes, bc.maxBlocks, uint32(bc.blockSize), maxToken)

	fmt.Printf("Starting %d workers for %d total iterations against %q...\n",
		bc.workers, bc.iterations, bc.store)

	var st stats
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < bc.workers; w++ {
		workerID := w
		g.Go(func() error {
			return worker(ctx, cache, bc, &st, prefixes, workerID)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	report(&st, time.Since(start), cache)
	return nil
}

func buildStore(ctx context.Context, bc benchConfig, cfg kvcachego.Config) (objstore.ObjectStore, error) {
	var store objstore.ObjectStore

	switch bc.store {
	case "memory":
		store = objstore.NewMemoryStore()
	case "minio":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("minio backend requires -bucket or KVC_S3_BUCKET")
		}
		client, err := miniostore.NewClient(miniostore.Options{
			Endpoint:        trimScheme(cfg.S3Endpoint),
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Region:          cfg.S3Region,
		})
		if err != nil {
			return nil, err
		}
		store = miniostore.NewStore(client, cfg.S3Bucket)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 backend requires -bucket or KVC_S3_BUCKET")
		}
		client, err := s3store.NewClient(ctx, s3store.Options{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			UsePathStyle:    cfg.PathStyle(),
		})
		if err != nil {
			return nil, err
		}
		store = s3store.NewStore(client, cfg.S3Bucket)
	default:
		return nil, fmt.Errorf("unknown store backend %q", bc.store)
	}

	if bc.rateLimit > 0 {
		store = objstore.RateLimited(store, rate.NewLimiter(rate.Limit(bc.rateLimit), int(bc.rateLimit)))
	}
	return store, nil
}

func worker(ctx context.Context, cache *kvcachego.KVCache, bc benchConfig, st *stats, prefixes [][]uint32, id int) error {
	rng := testutil.NewRNG(int64(id))
	blockSize := uint32(bc.blockSize)
	iters := bc.iterations / bc.workers

	for i := 0; i < iters; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		var tokens []uint32
		if rng.Float64() < bc.reuseProb {
			tokens = prefixes[rng.Intn(len(prefixes))]
		} else {
			tokens = rng.TokenSequence(1+rng.Intn(bc.maxBlocks), blockSize, maxToken)
		}

		res := cache.Lookup(tokens)
		st.ops.Add(1)
		if res.MatchedTokens > 0 {
			st.hits.Add(1)
		}

		fullBlocks := uint32(len(tokens)) / blockSize
		matchedBlocks := res.MatchedTokens / blockSize

		if matchedBlocks < fullBlocks {
			payload := testutil.Payload(int(bc.avgBlockBytes), byte(id))
			start := time.Now()
			if cache.Store(ctx, tokens, matchedBlocks, payload) {
				st.bytesStored.Add(int64(len(payload)))
			}
			st.storeNanos.Add(time.Since(start).Nanoseconds())
			st.stores.Add(1)
		}

		if len(res.Handles) > 0 {
			ref := res.Handles[rng.Intn(len(res.Handles))]
			start := time.Now()
			cache.Load(ctx, ref)
			st.loadNanos.Add(time.Since(start).Nanoseconds())
			st.loads.Add(1)
		}
	}
	return nil
}

func report(st *stats, elapsed time.Duration, cache *kvcachego.KVCache) {
	ops := st.ops.Load()
	hits := st.hits.Load()

	fmt.Println("--- Results ---")
	fmt.Printf("Elapsed:        %.2fs\n", elapsed.Seconds())
	fmt.Printf("Operations:     %d (%.0f ops/s)\n", ops, float64(ops)/elapsed.Seconds())
	fmt.Printf("Hit rate:       %.1f%%\n", 100*float64(hits)/float64(max(ops, 1)))
	fmt.Printf("Bytes stored:   %d\n", st.bytesStored.Load())
	fmt.Printf("Used bytes:     %d / %d\n", cache.UsedBytes(), cache.CapacityBytes())
	if n := st.stores.Load(); n > 0 {
		fmt.Printf("Avg store:      %.2fms\n", float64(st.storeNanos.Load())/float64(n)/1e6)
	}
	if n := st.loads.Load(); n > 0 {
		fmt.Printf("Avg load:       %.2fms\n", float64(st.loadNanos.Load())/float64(n)/1e6)
	}
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
	}
}

// trimScheme strips http:// or https:// for the minio client, which wants a
// bare host:port.
func trimScheme(endpoint string) string {
	for _, p := range []string{"http://", "https://"} {
		if len(endpoint) > len(p) && endpoint[:len(p)] == p {
			return endpoint[len(p):]
		}
	}
	return endpoint
}
