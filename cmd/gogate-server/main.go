// Command gogate-server runs a small HTTP API guarded by the session gate.
//
// Configuration comes from the environment (see goGate.LoadConfigFromEnv).
// Without REDIS_HOST an embedded miniredis is started; without DATABASE_URL an
// in-memory directory seeded with one demo account is used.
//
//	JWT_SECRET=... JWT_ISSUER=demo JWT_AUDIENCE=demo go run ./cmd/gogate-server
//
//	curl -s -X POST localhost:8080/login -d '{"email":"ada@example.com","password":"correct-horse"}'
//	curl -s localhost:8080/me -H "Authorization: Bearer <TOKEN>"
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hashicorp/go-hclog"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/cache"
	"github.com/MrEthical07/goGate/directory"
)

func main() {
	var (
		listen       = flag.String("listen", ":8080", "HTTP listen address")
		databaseURL  = flag.String("database-url", os.Getenv("DATABASE_URL"), "postgres DSN; empty uses an in-memory directory")
		usersTable   = flag.String("users-table", directory.DefaultTable, "postgres users table")
		demoEmail    = flag.String("demo-email", "ada@example.com", "in-memory directory account email")
		demoPassword = flag.String("demo-password", "correct-horse", "in-memory directory account password")
		logLevel     = flag.String("log-level", "info", "trace, debug, info, warn or error")
	)
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "gogate-server",
		Level: hclog.LevelFromString(*logLevel),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, options{
		listen:       *listen,
		databaseURL:  *databaseURL,
		usersTable:   *usersTable,
		demoEmail:    *demoEmail,
		demoPassword: *demoPassword,
	}); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

type options struct {
	listen       string
	databaseURL  string
	usersTable   string
	demoEmail    string
	demoPassword string
}

func run(ctx context.Context, logger hclog.Logger, opts options) error {
	cfg, err := goGate.LoadConfigFromEnv()
	if err != nil {
		return err
	}

	builder := goGate.New().WithLogger(logger)

	if _, ok := os.LookupEnv(goGate.EnvRedisHost); ok {
		builder.WithRedisAddr()
	} else {
		mr, err := miniredis.Run()
		if err != nil {
			return err
		}
		defer mr.Close()
		logger.Warn("REDIS_HOST not set; using embedded miniredis", "addr", mr.Addr())

		client := cache.NewRedisClient(cache.RedisOptions{Addr: mr.Addr()})
		defer func() { _ = client.Close() }()
		builder.WithRedis(client)
	}

	var memory *directory.Memory
	if opts.databaseURL != "" {
		db, err := directory.OpenPostgres(ctx, opts.databaseURL)
		if err != nil {
			return err
		}
		pg := directory.NewPostgres(db, opts.usersTable)
		defer func() { _ = pg.Close() }()
		builder.WithDirectory(pg)
	} else {
		memory = directory.NewMemory()
		builder.WithDirectory(memory)
	}

	engine, err := builder.WithConfig(cfg).BuildContext(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	if memory != nil {
		if err := seedDemoUser(engine, memory, opts.demoEmail, opts.demoPassword); err != nil {
			return err
		}
		logger.Info("seeded in-memory directory", "email", opts.demoEmail)
	}

	for _, w := range engine.SecurityReport().Warnings {
		logger.Warn("security posture", "warning", w)
	}

	srv := &http.Server{
		Addr:              opts.listen,
		Handler:           newRouter(engine, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", opts.listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func seedDemoUser(engine *goGate.Engine, memory *directory.Memory, email, plaintext string) error {
	hash, err := engine.HashPassword(plaintext)
	if err != nil {
		return err
	}
	return memory.Put(directory.User{
		ID:           "user-1",
		Email:        email,
		Name:         "Ada Lovelace",
		Role:         "admin",
		PasswordHash: hash,
		Verified:     true,
		Active:       true,
	})
}
