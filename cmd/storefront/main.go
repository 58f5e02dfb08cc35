package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/sirupsen/logrus"

	"course-storefront/internal/api"
	"course-storefront/internal/catalog"
	"course-storefront/internal/config"
	"course-storefront/internal/httpx"
	"course-storefront/internal/metrics"
	"course-storefront/internal/providers"
	"course-storefront/internal/providers/marketplace"
	"course-storefront/internal/providers/skillsfuture"
	"course-storefront/internal/rate"
	"course-storefront/internal/session"
)

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if err := Run(logger); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	cfg := config.Load()
	if err := configureLogger(logger, cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	logger.Infof("starting storefront")
	defer logger.Info("shutdown complete")

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	hc := httpx.NewClient(httpx.ClientOptions{
		Timeout:   cfg.HTTPTimeout,
		RateRPS:   cfg.HTTPRateRPS,
		RateBurst: cfg.HTTPRateBurst,
	})
	market := marketplace.New(cfg.MarketplaceBaseURL, hc)
	market.Retry = market.Retry.WithAttempts(cfg.HTTPMaxAttempts)
	directory := skillsfuture.New(cfg.MarketplaceBaseURL, hc)
	directory.Retry = directory.Retry.WithAttempts(cfg.HTTPMaxAttempts)

	internal := providers.Internal{C: market, AssetBaseURL: cfg.MarketplaceAssetBaseURL}
	external := providers.External{
		C:             directory,
		AssetBaseURL:  cfg.SkillsFutureAssetBaseURL,
		DetailBaseURL: cfg.SkillsFutureDetailBaseURL,
	}

	m := metrics.New()
	catalogs := catalog.NewRegistry(func() *catalog.Catalog {
		return catalog.New(internal, external, catalog.Options{
			PageSize:      cfg.CatalogPageSize,
			ReviewWorkers: cfg.CatalogReviewWorkers,
			Reviews:       providers.Reviews{C: market},
			Observe:       m.ObserveFetch,
			Log:           logger.WithField("component", "catalog"),
		})
	}, cfg.SessionLifetime)
	m.Gauge("storefront_live_catalogs", "Catalogs currently held for browsers.", func() float64 {
		return float64(catalogs.Len())
	})
	go catalogs.Run(ctx, 5*time.Minute)

	var store scs.Store
	if cfg.SessionRedisAddr != "" {
		rdb, err := session.NewRedisClient(cfg.SessionRedisAddr, cfg.SessionRedisPassword, cfg.SessionRedisDB)
		if err != nil {
			return fmt.Errorf("failed to connect session redis: %w", err)
		}
		defer rdb.Close()
		store = session.NewRedisStore(rdb)
		logger.WithField("addr", cfg.SessionRedisAddr).Info("sessions stored in redis")
	}
	sessions := session.NewManager(cfg.SessionLifetime, cfg.SessionCookieSecure, store)

	var forms *rate.Limiter
	if cfg.FormRateRPS > 0 {
		forms = rate.NewLimiter(cfg.FormRateBurst, 10*time.Minute, cfg.FormRateRPS)
		go forms.Run(ctx)
	}

	mux := api.APIMux(api.APIConfig{
		CorsOrigin:        cfg.CorsOrigin,
		Log:               logger,
		Sessions:          sessions,
		Catalogs:          catalogs,
		Marketplace:       market,
		Courses:           internal,
		ExternalDetailURL: external.FallbackURL,
		FormLimiter:       forms,
		Metrics:           m,
	})

	srv := http.Server{
		Handler:      mux,
		Addr:         cfg.Addr,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)
		stop()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}
	return nil
}

// configureLogger applies the level and the "json" or "text" format.
func configureLogger(logger *logrus.Logger, level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	logger.SetLevel(lvl)

	switch format {
	case "json", "":
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}
