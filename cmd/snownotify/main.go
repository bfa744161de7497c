package main

import (
	"context"
	"flag"
	"net/http"
	"net/url"
	"os"

	// Autoloads .env file to supply environment variables
	_ "github.com/joho/godotenv/autoload"

	"snownotify/internal/advisor"
	"snownotify/internal/cache"
	"snownotify/internal/catalog"
	"snownotify/internal/client"
	"snownotify/internal/config"
	"snownotify/internal/forecast"
	"snownotify/internal/logger"
	"snownotify/internal/telegram"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "print the message without sending it")
	force := flag.Bool("force", false, "run even outside the season (Nov-Mar)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.NewLogger("info").WithError(err).Error("loading configuration")
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.LogLevel)

	loc, err := cfg.Location()
	if err != nil {
		log.WithError(err).Error("resolving timezone")
		os.Exit(1)
	}

	cat, err := catalog.Load(cfg.ResortsPath)
	if err != nil {
		log.WithError(err).Error("loading resort catalog")
		os.Exit(1)
	}
	if cat.Skipped > 0 {
		log.WithFields(map[string]interface{}{"loaded": len(cat.Resorts), "skipped": cat.Skipped}).
			Warn("skipped invalid catalog entries")
	} else {
		log.WithField("loaded", len(cat.Resorts)).Info("catalog loaded")
	}

	ctx := context.Background()

	var cc cache.Cache
	if cfg.RedisURL != "" {
		cc, err = cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("forecast cache unavailable, fetching directly")
			cc = nil
		}
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	forecastURL, err := url.Parse(cfg.ForecastURL)
	if err != nil {
		log.WithError(err).Error("parsing forecast URL")
		os.Exit(1)
	}
	fetcher := forecast.NewFetcher(client.NewClient(forecastURL, httpClient), cc, log)

	var notifier advisor.Notifier
	if !*dryRun {
		telegramURL, err := url.Parse(cfg.TelegramURL)
		if err != nil {
			log.WithError(err).Error("parsing telegram URL")
			os.Exit(1)
		}
		notifier, err = telegram.New(telegramURL, httpClient, cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.WithError(err).Error("configuring notifier")
			os.Exit(1)
		}
	}

	a := &advisor.Advisor{
		Catalog:      cat,
		Fetcher:      fetcher,
		Notifier:     notifier,
		Log:          log,
		Location:     loc,
		Timezone:     cfg.Timezone,
		ForecastDays: cfg.ForecastDays,
		Out:          os.Stdout,
	}

	outcome, err := a.Run(ctx, advisor.Options{DryRun: *dryRun, Force: *force})
	if err != nil {
		log.WithError(err).Error("advisory run failed")
		os.Exit(1)
	}
	log.WithField("outcome", outcome.String()).Info("run complete")
}
