package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"campus-market/internal/auth"
	"campus-market/internal/cache"
	"campus-market/internal/catalog"
	"campus-market/internal/config"
	"campus-market/internal/db"
	"campus-market/internal/events"
	"campus-market/internal/featureflags"
	"campus-market/internal/fulltext"
	mw "campus-market/internal/http/middleware"
	"campus-market/internal/livesearch"
	"campus-market/internal/logger"
	"campus-market/internal/media"
	"campus-market/internal/metrics"
)

// kinds restricts {kind} to the listing collections.
const kinds = "{kind:products|services|demands}"

func main() {
	// 0) Configuration and logger
	cfg, err := config.Load(os.Getenv("MARKET_CONFIG_PATH"))
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	logger.SetEncoding(cfg.Log.Encoding)
	logger.Init(cfg.Log.Level)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1) DB init
	sqlDB, err := db.Init(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}
	defer sqlDB.Close()
	if cfg.Database.Migrate {
		if err := db.Migrate(ctx, sqlDB); err != nil {
			log.Fatalf("database migration failed: %v", err)
		}
	}

	// 2) Feature flags init (non-fatal)
	flagCtx, cancel := context.WithTimeout(ctx, cfg.Flags.SetupTimeout)
	if err := featureflags.Init(flagCtx, cfg.Flags.RolloutKey); err != nil {
		logger.Warnf("feature flags init warning: %v", err)
	} else {
		logger.Infof("feature flags ready: offline=%v, logLevel=%s, serverSearch=%v",
			featureflags.Values().Offline.IsEnabled(nil),
			featureflags.Values().LogLevel.GetValue(nil),
			featureflags.Values().ServerSearch.IsEnabled(nil))
		logger.SetLevel(featureflags.Values().LogLevel.GetValue(nil))
	}
	cancel()
	defer featureflags.Shutdown()
	logger.Infof("log level set to %s", logger.GetLevel())

	// 2a) Watch the log level flag for flips
	go func() {
		prev := featureflags.Values().LogLevel.GetValue(nil)
		ticker := time.NewTicker(cfg.Flags.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			cur := featureflags.Values().LogLevel.GetValue(nil)
			if cur != prev {
				logger.SetLevel(cur)
				logger.Infof("log level changed to %s", logger.GetLevel())
				prev = cur
			}
		}
	}()

	// 3) Collaborators
	m := metrics.New("market")

	publisher, err := events.Connect(cfg.NATS)
	if err != nil {
		logger.Warnf("nats unavailable, events disabled: %v", err)
		publisher = events.Noop{}
	}
	defer publisher.Close()

	searchCache, err := cache.Connect(ctx, cfg.Redis)
	if err != nil {
		logger.Warnf("redis unavailable, search cache disabled: %v", err)
		searchCache = cache.Noop{}
	}
	defer searchCache.Close()

	uploads, err := media.Connect(ctx, cfg.Media)
	if err != nil {
		logger.Warnf("media storage unavailable, uploads disabled: %v", err)
	}

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("auth.jwt_secret (JWT_SECRET) must be set")
	}
	tokens := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	catalogStore := catalog.NewStore(sqlDB)
	catalogHandler := catalog.NewHandler(catalogStore,
		catalog.WithPageLimits(cfg.HTTP.PageLimit, cfg.HTTP.MaxPageLimit),
		catalog.WithEvents(publisher),
		catalog.WithMetrics(m),
	)
	google := auth.NewGoogle(cfg.Auth.GoogleClientID, cfg.Auth.GoogleClientSecret,
		cfg.Auth.GoogleRedirectURL, cfg.Auth.AllowedDomain, catalogStore, tokens)

	serverSearch := fulltext.NewService(sqlDB, m)
	localSearch := fulltext.NewLocal(catalogStore, m)
	useServerSearch := func() bool { return featureflags.Values().ServerSearch.IsEnabled(nil) }
	searcher := func() fulltext.Searcher {
		if useServerSearch() {
			return serverSearch
		}
		return localSearch
	}
	searchHandler := fulltext.NewHandler(serverSearch, localSearch, useServerSearch, searchCache, cfg.Search.CacheTTL, m)
	limiter := mw.NewRateLimiter(cfg.Search.RatePerSecond, cfg.Search.Burst, 10*time.Minute)
	if err := limiter.TrustProxies(cfg.HTTP.TrustedProxies...); err != nil {
		log.Fatalf("http.trusted_proxies: %v", err)
	}

	// 4) Router
	r := mux.NewRouter()

	// 4a) Offline kill-switch, request log, metrics and optional identity
	r.Use(mw.OfflineGate("/health", "/ready"))
	r.Use(mw.LogRequests(mw.WithSkips("/health", "/ready", "/metrics")))
	r.Use(mw.Instrument(m))
	r.Use(mw.OptionalUser(tokens))

	// 5) Health endpoints
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := sqlDB.PingContext(r.Context()); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}).Methods(http.MethodGet)

	// 6) Inspect current flag values, metrics
	r.HandleFunc("/_flags", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(featureflags.Snapshot())
	}).Methods(http.MethodGet)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	// 7) Sign-in
	r.HandleFunc("/auth/google/login", google.Login).Methods(http.MethodGet)
	r.HandleFunc("/auth/google/callback", google.Callback).Methods(http.MethodGet)

	// 8) Search
	r.HandleFunc("/api/search", limiter.Limit(searchHandler.Search)).Methods(http.MethodGet)
	r.HandleFunc("/api/suggestions", limiter.Limit(catalogHandler.Suggestions)).Methods(http.MethodGet)
	r.Handle("/ws/search", livesearch.NewHandler(searcher, cfg.Search.Debounce, m)).Methods(http.MethodGet)

	// 9) Listings. Reads are public; writes need a signed-in owner.
	r.HandleFunc("/api/uploads", mw.RequireUser(tokens, media.Handler(uploads))).Methods(http.MethodPost)
	r.HandleFunc("/api/me/"+kinds, mw.RequireUser(tokens, catalogHandler.Mine)).Methods(http.MethodGet)
	r.HandleFunc("/api/"+kinds+"/browse", catalogHandler.Browse).Methods(http.MethodGet)
	r.HandleFunc("/api/"+kinds, catalogHandler.List).Methods(http.MethodGet)
	r.HandleFunc("/api/"+kinds, mw.RequireUser(tokens, catalogHandler.Create)).Methods(http.MethodPost)
	r.HandleFunc("/api/"+kinds+"/{id}", catalogHandler.Get).Methods(http.MethodGet)
	r.HandleFunc("/api/"+kinds+"/{id}", mw.RequireUser(tokens, catalogHandler.Update)).Methods(http.MethodPut)
	r.HandleFunc("/api/"+kinds+"/{id}", mw.RequireUser(tokens, catalogHandler.Delete)).Methods(http.MethodDelete)

	s := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	go func() {
		logger.Infof("campus-market listening on %s", s.Addr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancelShutdown()
	if err := s.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}
