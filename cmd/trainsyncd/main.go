// Command trainsyncd runs the training-tracker sync engine: it reconciles
// the local record store with the remote document database on session events
// and on a periodic ticker, and serves prometheus metrics.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	surrealdb "github.com/surrealdb/surrealdb.go"
	"go.uber.org/zap"

	"github.com/peakform/trainsync/internal/localstore/sqlite"
	"github.com/peakform/trainsync/internal/media"
	"github.com/peakform/trainsync/internal/remote/blob"
	"github.com/peakform/trainsync/internal/remote/surreal"
	"github.com/peakform/trainsync/internal/session"
	"github.com/peakform/trainsync/internal/social"
	syncer "github.com/peakform/trainsync/internal/sync"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses configuration, opens the local store and remote backends, and
// runs sync cycles until terminated.
func main() {
	dbPath := flag.String("db", "trainsync.db", "local store path (sqlite)")
	surrealURL := flag.String("surreal-url", "ws://localhost:8000/rpc", "SurrealDB RPC endpoint")
	surrealUser := flag.String("surreal-user", "root", "SurrealDB user")
	surrealPass := flag.String("surreal-pass", "root", "SurrealDB password")
	surrealNS := flag.String("surreal-ns", "trainsync", "SurrealDB namespace")
	surrealDB := flag.String("surreal-db", "trainsync", "SurrealDB database")
	minioEndpoint := flag.String("minio-endpoint", "localhost:9000", "object storage endpoint")
	minioAccess := flag.String("minio-access-key", "", "object storage access key")
	minioSecret := flag.String("minio-secret-key", "", "object storage secret key")
	minioBucket := flag.String("minio-bucket", "trainsync-media", "media bucket")
	minioSecure := flag.Bool("minio-secure", false, "object storage TLS")
	jwtKey := flag.String("jwt-key", "", "HS256 session-token key (required)")
	tokenFile := flag.String("token-file", "", "path to the provider session token")
	interval := flag.Duration("sync-interval", 5*time.Minute, "periodic re-sync interval")
	metricsAddr := flag.String("metrics-addr", ":9102", "prometheus listen address, empty to disable")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
	)

	if *jwtKey == "" {
		logger.Fatal("missing session-token key (--jwt-key)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local store
	store, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		logger.Fatal("open local store", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	// Remote document database
	db, err := surrealdb.New(*surrealURL)
	if err != nil {
		logger.Fatal("connect surrealdb", zap.Error(err))
	}
	defer db.Close()
	if _, err := db.Signin(map[string]any{"user": *surrealUser, "pass": *surrealPass}); err != nil {
		logger.Fatal("surrealdb signin", zap.Error(err))
	}
	if _, err := db.Use(*surrealNS, *surrealDB); err != nil {
		logger.Fatal("surrealdb use", zap.Error(err))
	}
	docs := surreal.New(db, logger)

	// Blob storage
	mc, err := minio.New(*minioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(*minioAccess, *minioSecret, ""),
		Secure: *minioSecure,
	})
	if err != nil {
		logger.Fatal("connect object storage", zap.Error(err))
	}
	blobs := blob.New(mc, *minioBucket)

	// Services
	pipeline := media.New(store, docs, blobs, logger)
	projector := social.NewProjector(docs, logger)
	coordinator := syncer.NewCoordinator(
		syncer.NewIdentifierManager(store, logger),
		syncer.NewDeduplicator(store, logger),
		syncer.NewMerger(store, docs, logger),
		syncer.NewUploader(store, docs, pipeline, projector, logger),
		docs,
		logger,
	)

	watcher := session.NewWatcher([]byte(*jwtKey))
	if *tokenFile != "" {
		if tok, err := os.ReadFile(*tokenFile); err == nil {
			if _, err := watcher.SignIn(strings.TrimSpace(string(tok))); err != nil {
				logger.Warn("stored session token rejected", zap.Error(err))
			}
		}
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			logger.Info("metrics listening", zap.String("addr", *metricsAddr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
	}

	runCycle := func() {
		u := watcher.Current()
		if u == nil {
			return // no user, no sync
		}
		if !coordinator.RunCycle(ctx, u.ID) {
			logger.Debug("cycle trigger dropped")
		}
	}

	runCycle()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown complete")
			return
		case ev := <-watcher.Events():
			if ev.User != nil {
				logger.Info("signed in", zap.String("user", ev.User.ID))
				runCycle()
			} else {
				logger.Info("signed out")
			}
		case <-ticker.C:
			runCycle()
		}
	}
}
