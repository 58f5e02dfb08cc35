package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"course-storefront/internal/catalog"
	"course-storefront/internal/config"
	"course-storefront/internal/domain"
	"course-storefront/internal/export"
	"course-storefront/internal/httpx"
	"course-storefront/internal/providers"
	"course-storefront/internal/providers/marketplace"
	"course-storefront/internal/providers/skillsfuture"
	"course-storefront/internal/sftpclient"
)

func main() {
	var (
		outPath    = flag.String("out", "COURSE-CATALOG.csv", "output csv path")
		keyword    = flag.String("keyword", "", "catalog search keyword")
		maxPages   = flag.Int("max-pages", 5, "max external directory pages to read (0 = all)")
		noReviews  = flag.Bool("no-reviews", false, "skip review hydration (rating columns stay empty)")
		uploadSFTP = flag.Bool("sftp", false, "upload the generated CSV via SFTP")
	)
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	rootCtx, rootCancel := context.WithTimeout(context.Background(), time.Hour)
	defer rootCancel()

	cfg := config.Load()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	if dir := filepath.Dir(*outPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal(err)
		}
	}

	hc := httpx.NewClient(httpx.ClientOptions{
		Timeout:   cfg.HTTPTimeout,
		RateRPS:   cfg.HTTPRateRPS,
		RateBurst: cfg.HTTPRateBurst,
	})
	market := marketplace.New(cfg.MarketplaceBaseURL, hc)
	directory := skillsfuture.New(cfg.MarketplaceBaseURL, hc)

	opts := catalog.Options{
		PageSize:      cfg.CatalogPageSize,
		ReviewWorkers: cfg.CatalogReviewWorkers,
		Log:           log,
	}
	if !*noReviews {
		opts.Reviews = providers.Reviews{C: market}
	}
	cat := catalog.New(
		providers.Internal{C: market, AssetBaseURL: cfg.MarketplaceAssetBaseURL},
		providers.External{C: directory, AssetBaseURL: cfg.SkillsFutureAssetBaseURL, DetailBaseURL: cfg.SkillsFutureDetailBaseURL},
		opts,
	)

	courses, pages, err := collect(rootCtx, cat, *keyword, *maxPages)
	if err != nil {
		if len(courses) == 0 {
			log.Fatal(err)
		}
		log.WithError(err).Warnf("stopped after %d pages, exporting what was fetched", pages)
	}

	if err := export.WriteCatalogCSVFile(*outPath, courses); err != nil {
		log.Fatal(err)
	}

	log.WithFields(logrus.Fields{
		"out":      *outPath,
		"courses":  len(courses),
		"pages":    pages,
		"internal": countSource(courses, domain.SourceInternal),
		"external": countSource(courses, domain.SourceExternal),
	}).Info("catalog exported")

	if *uploadSFTP {
		remoteName := filepath.Base(*outPath)

		upCfg := sftpclient.Config{
			Host:                  cfg.SFTPHost,
			Port:                  cfg.SFTPPort,
			User:                  cfg.SFTPUser,
			Pass:                  cfg.SFTPPass,
			RemoteDir:             cfg.SFTPDir,
			KnownHosts:            cfg.SFTPKnownHosts,
			InsecureIgnoreHostKey: cfg.SFTPInsecureIgnoreHostKey,
		}

		upCtx, upCancel := context.WithTimeout(rootCtx, 5*time.Minute)
		defer upCancel()

		if err := sftpclient.UploadFile(upCtx, upCfg, *outPath, remoteName); err != nil {
			log.Fatal(err)
		}
		log.Infof("uploaded to sftp://%s:%d%s/%s", upCfg.Host, upCfg.Port, upCfg.RemoteDir, remoteName)
	}
}

// collect pages through cat until the directory runs out or maxPages pages
// have been read. On error the courses held so far are returned with it.
func collect(ctx context.Context, cat *catalog.Catalog, keyword string, maxPages int) ([]domain.Course, int, error) {
	var held []domain.Course
	for page := 1; maxPages <= 0 || page <= maxPages; page++ {
		courses, hasMore, err := cat.FetchPage(ctx, page, keyword)
		if err != nil {
			return held, page - 1, err
		}
		held = courses
		if !hasMore {
			return held, page, nil
		}
	}
	return held, maxPages, nil
}

func countSource(courses []domain.Course, src domain.Source) int {
	n := 0
	for _, c := range courses {
		if c.Source == src {
			n++
		}
	}
	return n
}
