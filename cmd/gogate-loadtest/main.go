package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/redis/go-redis/v9"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/directory"
)

func main() {
	var (
		users       = flag.Int("users", 10000, "number of directory users to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "loadtest:", "cache key prefix")
		latency     = flag.Duration("directory-latency", time.Millisecond, "simulated directory round trip")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	dir := &slowDirectory{Memory: directory.NewMemory(), delay: *latency}

	cfg := goGate.DefaultConfig()
	cfg.JWT.Secret = []byte(uuid.NewString() + uuid.NewString())
	cfg.JWT.Issuer = "gogate-loadtest"
	cfg.JWT.Audience = "gogate-loadtest"
	cfg.Gate.KeyPrefix = *prefix

	engine, err := goGate.New().
		WithConfig(cfg).
		WithRedis(client).
		WithDirectory(dir).
		WithLogger(hclog.New(&hclog.LoggerOptions{Level: hclog.Warn})).
		WithLatencyHistograms(true).
		WithoutPasswordLogin().
		BuildContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	tokens := make([]string, *users)
	fmt.Printf("seeding %d users...\n", *users)
	startSeed := time.Now()
	for i := range tokens {
		u := goGate.User{
			ID:       fmt.Sprintf("user-%d", i),
			Email:    fmt.Sprintf("user-%d@example.com", i),
			Role:     "member",
			Verified: true,
			Active:   true,
		}
		if err := dir.Put(directory.User{ID: u.ID, Email: u.Email, Role: u.Role, Verified: true, Active: true}); err != nil {
			fmt.Fprintf(os.Stderr, "seed directory: %v\n", err)
			os.Exit(1)
		}
		if tokens[i], err = engine.Issue(ctx, u); err != nil {
			fmt.Fprintf(os.Stderr, "issue: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	warm := runPhase(*ops, *concurrency, len(tokens), func(idx int) error {
		_, err := engine.Authenticate(ctx, tokens[idx], goGate.AuthOptions{})
		return err
	})

	flushed := engine.FlushSnapshots(ctx)
	readsBefore := dir.reads.Load()
	cold := runPhase(*ops, *concurrency, len(tokens), func(idx int) error {
		_, err := engine.Authenticate(ctx, tokens[idx], goGate.AuthOptions{})
		return err
	})
	coldReads := dir.reads.Load() - readsBefore

	revokeCount := len(tokens) / 10
	for i := 0; i < revokeCount; i++ {
		_ = engine.Revoke(ctx, tokens[i])
	}
	revoked := runPhase(*ops, *concurrency, revokeCount, func(idx int) error {
		_, err := engine.Authenticate(ctx, tokens[idx], goGate.AuthOptions{})
		if errors.Is(err, goGate.ErrTokenRevoked) {
			return nil
		}
		if err == nil {
			return errors.New("revoked token admitted")
		}
		return err
	})

	fmt.Println("---- results ----")
	printStats("authenticate-warm", warm)
	printStats("authenticate-cold", cold)
	printStats("authenticate-revoked", revoked)
	fmt.Printf("snapshots flushed=%d directory reads during cold phase=%d shared=%d\n",
		flushed, coldReads, engine.MetricsSnapshot().Counters[goGate.MetricDirectoryLookupShared])
}

// slowDirectory adds a fixed delay to FindByID to model a remote store.
type slowDirectory struct {
	*directory.Memory
	delay time.Duration
	reads atomic.Int64
}

func (d *slowDirectory) FindByID(ctx context.Context, id string) (directory.User, error) {
	d.reads.Add(1)
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return directory.User{}, ctx.Err()
		}
	}
	return d.Memory.FindByID(ctx, id)
}

func runPhase(ops, concurrency, keyspace int, op func(idx int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(keyspace)
				t0 := time.Now()
				err := op(idx)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
