package main

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/tdewolff/minify"
	"github.com/tdewolff/minify/css"
	"github.com/tdewolff/minify/html"
	"github.com/tdewolff/minify/js"
	"github.com/urfave/negroni/v2"
	"go.etcd.io/bbolt"

	"fknsrs.biz/p/ytwarehouse/handlers"
	"fknsrs.biz/p/ytwarehouse/internal/collector"
	"fknsrs.biz/p/ytwarehouse/internal/config"
	"fknsrs.biz/p/ytwarehouse/internal/configreader"
	"fknsrs.biz/p/ytwarehouse/internal/ctxclock"
	"fknsrs.biz/p/ytwarehouse/internal/ctxconfig"
	"fknsrs.biz/p/ytwarehouse/internal/ctxdb"
	"fknsrs.biz/p/ytwarehouse/internal/ctxhttpclient"
	"fknsrs.biz/p/ytwarehouse/internal/ctxjobqueue"
	"fknsrs.biz/p/ytwarehouse/internal/ctxlogger"
	"fknsrs.biz/p/ytwarehouse/internal/ctxtemplate"
	"fknsrs.biz/p/ytwarehouse/internal/httpcache"
	"fknsrs.biz/p/ytwarehouse/internal/jobqueue"
	"fknsrs.biz/p/ytwarehouse/internal/logrusstackhook"
	"fknsrs.biz/p/ytwarehouse/internal/sqllogger"
	"fknsrs.biz/p/ytwarehouse/internal/templatecollection"
	"fknsrs.biz/p/ytwarehouse/internal/warehouse"
	"fknsrs.biz/p/ytwarehouse/internal/ytapi"
	"fknsrs.biz/p/ytwarehouse/internal/ytutil"
)

var cfg = config.Config{
	LogLevel:            logrus.InfoLevel,
	LogDebugLevels:      config.LevelList{logrus.DebugLevel, logrus.TraceLevel},
	LogQueries:          config.LogQueries{Enabled: true, SlowerThan: time.Millisecond * 100},
	ApplicationAddr:     ":8080",
	ApplicationMinify:   true,
	DatabaseDriver:      "sqlite3",
	ApplicationDatabase: "warehouse.db",
	YouTubeAPIEndpoint:  ytapi.DefaultEndpoint,
	FetchConcurrency:    1,
	HTTPCacheMaxAge:     config.Duration(time.Hour * 24),
	BackgroundWorkers:   1,
}

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

func init() {
	for _, configPath := range []string{"config.toml", "config.yaml", "config.yml"} {
		if st, err := os.Stat(configPath); err == nil && st != nil && !st.IsDir() {
			cfg.Config = configPath
		}
	}
}

var baseDrivers = map[string]driver.Driver{
	warehouse.SQLite.Name:   &sqlite3.SQLiteDriver{},
	warehouse.Postgres.Name: &pq.Driver{},
}

// registerLoggedDriver wraps the driver for dialect in the query logger and
// returns the name to open it with.
func registerLoggedDriver(dialect warehouse.Dialect, logQueries config.LogQueries) string {
	if !logQueries.Enabled {
		return dialect.Name
	}

	filter := sqllogger.Filter{SlowerThan: logQueries.SlowerThan}
	if logQueries.Basic {
		filter = sqllogger.BasicFilter(logQueries.SlowerThan)
	}

	// the job queue polls constantly
	filter.IgnoreCallers = []string{
		"fknsrs.biz/p/ytwarehouse/internal/jobqueue.findNext",
	}

	name := dialect.Name + ":logged"
	sql.Register(name, sqllogger.New(baseDrivers[dialect.Name], filter))

	return name
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := configreader.Read(os.Args[0], os.Args[1:], os.Environ(), &cfg); err != nil {
		panic(err)
	}

	ctx = ctxconfig.WithConfig(ctx, cfg)
	ctx = ctxclock.WithClock(ctx, ctxclock.RealClock{})

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	logger.SetLevel(cfg.LogLevel)
	if len(cfg.LogDebugLevels) > 0 {
		logger.AddHook(logrusstackhook.NewStackHook(cfg.LogDebugLevels, nil))
	}

	logger.WithFields(logrus.Fields{
		"config.config":               cfg.Config,
		"config.env_file":             cfg.EnvFile,
		"config.log_level":            cfg.LogLevel,
		"config.log_debug_levels":     cfg.LogDebugLevels,
		"config.log_queries":          cfg.LogQueries,
		"config.application_addr":     cfg.ApplicationAddr,
		"config.application_minify":   cfg.ApplicationMinify,
		"config.database_driver":      cfg.DatabaseDriver,
		"config.youtube_api_endpoint": cfg.YouTubeAPIEndpoint,
		"config.fetch_concurrency":    cfg.FetchConcurrency,
		"config.http_cache_path":      cfg.HTTPCachePath,
		"config.http_cache_redis":     cfg.HTTPCacheRedis != "",
		"config.http_cache_max_age":   cfg.HTTPCacheMaxAge,
		"config.background_workers":   cfg.BackgroundWorkers,
	}).Info("program starting")

	ctx = ctxlogger.WithLogger(ctx, logger)

	if err := run(ctx); err != nil {
		logger.WithError(err).Fatal("program failed")
	}
}

func run(ctx context.Context) error {
	l := ctxlogger.GetLogger(ctx)

	dialect, err := warehouse.DialectFor(cfg.DatabaseDriver)
	if err != nil {
		return err
	}

	if cfg.InitSchema || cfg.Collect != "" {
		if err := warehouse.EnsureDatabase(ctx, dialect, cfg.ApplicationDatabase); err != nil {
			return err
		}
	}

	store, err := warehouse.Open(ctx, registerLoggedDriver(dialect, cfg.LogQueries), dialect, cfg.ApplicationDatabase)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx = ctxdb.WithStore(ctx, store)

	if cfg.InitSchema || cfg.Collect != "" {
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}

		l.WithField("dialect", dialect.Name).Info("schema is ready")
	}

	if cfg.InitSchema {
		return nil
	}

	var cache httpcache.Storage

	switch {
	case cfg.HTTPCacheRedis != "":
		s, err := httpcache.NewRedisStorageFromURL(cfg.HTTPCacheRedis)
		if err != nil {
			return err
		}
		defer s.Close()

		cache = s
	case cfg.HTTPCachePath != "":
		cacheDB, err := bbolt.Open(cfg.HTTPCachePath, 0600, &bbolt.Options{Timeout: time.Second * 5})
		if err != nil {
			return fmt.Errorf("could not open http cache: %w", err)
		}
		defer cacheDB.Close()

		cache = httpcache.NewBBoltStorage(cacheDB)
	}

	httpClient := &http.Client{Timeout: time.Minute}
	if cache != nil {
		httpClient.Transport = httpcache.NewTransport(nil, cache, time.Duration(cfg.HTTPCacheMaxAge))
	}

	ctx = ctxhttpclient.WithHTTPClient(ctx, httpClient)

	c := collector.New(ytapi.NewClient(cfg.YouTubeAPIKey, cfg.YouTubeAPIEndpoint, cfg.FetchConcurrency), store)

	if cfg.Collect != "" {
		channelID, err := ytutil.FindChannelID(ctx, cfg.Collect)
		if err != nil {
			return err
		}

		summary, err := c.CollectAll(ctx, channelID)
		if err != nil {
			return err
		}

		fmt.Println(summary)

		return nil
	}

	w := jobqueue.NewWorker(nil)
	if err := w.RegisterAll(c.WorkerFunctions()); err != nil {
		return err
	}

	ctx = ctxjobqueue.WithWorker(ctx, w)

	workers := []worker{
		{
			name: "application",
			run: func(ctx context.Context) error {
				return runApplicationWorker(ctx, cfg.ApplicationAddr)
			},
		},
	}

	for i := 0; i < cfg.BackgroundWorkers; i++ {
		workers = append(workers, worker{
			name: fmt.Sprintf("job_queue.%d", i),
			run:  runJobQueueWorker,
		})
	}

	return runAllWorkers(ctx, workers)
}

type worker struct {
	name string
	run  func(ctx context.Context) error
}

// runAllWorkers keeps every worker running until ctx is cancelled. A worker
// that fails cancels the others, and they all start again a second later.
func runAllWorkers(ctx context.Context, workers []worker) error {
	done := make(chan error, len(workers))
	cancellers := make([]context.CancelCauseFunc, len(workers))

	var rw sync.RWMutex

	for id, w := range workers {
		go func(id int, w worker) {
			for {
				l := ctxlogger.GetLogger(ctx).WithFields(logrus.Fields{
					"worker.id":   id + 1,
					"worker.name": w.name,
				})

				wctx, cancel := context.WithCancelCause(ctxlogger.WithLogger(ctx, l))

				rw.Lock()
				cancellers[id] = cancel
				rw.Unlock()

				err := w.run(wctx)
				cancel(nil)

				if ctx.Err() != nil {
					if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
						done <- fmt.Errorf("worker %d (%s): %w", id+1, w.name, err)
					} else {
						done <- nil
					}

					return
				}

				if err != nil {
					l.WithError(err).Error("worker failed")

					rw.RLock()
					for _, fn := range cancellers {
						if fn == nil {
							continue
						}

						fn(fmt.Errorf("worker %d (%s) failed: %w", id+1, w.name, err))
					}
					rw.RUnlock()
				} else {
					l.Info("worker restarted")
				}

				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
			}
		}(id, w)
	}

	var errs []error
	for range workers {
		if err := <-done; err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func directoryExists(name string) bool {
	st, err := os.Stat(name)
	if err != nil {
		return false
	}
	return st.IsDir()
}

func runApplicationWorker(ctx context.Context, addr string) error {
	l := ctxlogger.GetLogger(ctx)

	l.WithFields(logrus.Fields{
		"args.addr": addr,
	}).Info("running application worker")

	var templates templatecollection.Collection

	if directoryExists("templates") {
		l.Info("using live filesystem for templates")
		c, err := templatecollection.NewLive(os.DirFS("templates"), templatecollection.Funcs())
		if err != nil {
			return fmt.Errorf("runApplicationWorker: %w", err)
		}
		templates = c
	} else {
		l.Info("using embedded filesystem for templates")
		c, err := templatecollection.NewCached(templateFS, templatecollection.Funcs())
		if err != nil {
			return fmt.Errorf("runApplicationWorker: %w", err)
		}
		templates = c
	}

	m := mux.NewRouter()

	handlers.AddRoutes(m)

	if directoryExists("static") {
		l.Info("using live filesystem for static files")
		m.Methods(http.MethodGet).PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))
	} else {
		l.Info("using embedded filesystem for static files")
		staticFiles, err := fs.Sub(staticFS, "static")
		if err != nil {
			return fmt.Errorf("runApplicationWorker: %w", err)
		}
		m.Methods(http.MethodGet).PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(staticFiles))))
	}

	min := minify.New()
	min.Add("text/html", html.DefaultMinifier)
	min.Add("text/css", css.DefaultMinifier)
	min.Add("application/javascript", js.DefaultMinifier)

	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.UseFunc(ctxlogger.Register(l))
	n.UseFunc(ctxconfig.Register(ctxconfig.GetConfig(ctx)))
	n.UseFunc(ctxclock.Register(ctxclock.GetClock(ctx)))
	n.UseFunc(ctxtemplate.Register(templates))
	n.UseFunc(ctxdb.Register(ctxdb.GetStore(ctx)))
	n.UseFunc(ctxhttpclient.Register(ctxhttpclient.GetHTTPClient(ctx)))
	n.UseFunc(ctxjobqueue.Register(ctxjobqueue.GetWorker(ctx)))
	n.UseFunc(ctxlogger.Log())
	n.UseFunc(handlers.Messages())

	if cfg.ApplicationMinify {
		n.UseFunc(func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
			// event streams have to reach the browser as they're written
			if strings.ToLower(r.Header.Get("connection")) != "upgrade" && r.URL.Path != "/jobs/updates" {
				mw := min.ResponseWriter(rw, r)
				defer mw.Close()
				rw = mw
			}

			next(rw, r)
		})
	}

	n.UseHandler(m)

	s := &http.Server{
		Addr:        addr,
		Handler:     n,
		BaseContext: func(l net.Listener) context.Context { return ctx },
	}

	errs := make(chan error, 1)
	go func() {
		l.Info("starting server")
		errs <- s.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		return s.Shutdown(shutdownCtx)
	}
}

func runJobQueueWorker(ctx context.Context) error {
	w := ctxjobqueue.GetWorker(ctx)
	if w == nil {
		return ctxjobqueue.ErrNoWorker
	}

	ctxlogger.GetLogger(ctx).WithFields(logrus.Fields{
		"queue_names": w.GetQueueNames(),
	}).Info("running job queue worker")

	return w.Run(ctx)
}
