package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/quantonganh/newsletter"
	"github.com/quantonganh/newsletter/bolt"
	"github.com/quantonganh/newsletter/digest"
	"github.com/quantonganh/newsletter/email"
	"github.com/quantonganh/newsletter/feed"
	"github.com/quantonganh/newsletter/http"
	"github.com/quantonganh/newsletter/rabbitmq"
	"github.com/quantonganh/newsletter/sqlite"
	"github.com/quantonganh/newsletter/subscription"
)

func main() {
	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Logger()

	config, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot load config")
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn: config.Sentry.DSN,
	}); err != nil {
		logger.Fatal().Err(err).Msg("sentry.Init")
	}
	defer sentry.Flush(2 * time.Second)

	a := newApp(config, logger)

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background()))
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
	}()

	if err := a.Run(ctx); err != nil {
		_ = a.Close()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	<-ctx.Done()

	if err := a.Close(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*newsletter.Config, error) {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	viper.SetDefault("http.addr", ":8080")
	viper.SetDefault("db.type", "sqlite")
	viper.SetDefault("db.path", "newsletter.db")
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("smtp.timeout", "30s")
	viper.SetDefault("newsletter.resubscribepolicy", string(newsletter.ResubscribeKeep))
	viper.SetDefault("feed.timeout", "10s")
	viper.SetDefault("digest.concurrency", 4)
	viper.SetDefault("digest.trackingparam", "newsletter")
	viper.SetDefault("digest.topic", "newsletter.digest")

	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "viper.ReadInConfig")
	}

	var config *newsletter.Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "viper.Unmarshal")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

type app struct {
	config     *newsletter.Config
	logger     zerolog.Logger
	db         newsletter.Database
	store      newsletter.SubscriberStore
	httpServer *http.Server
	scheduler  *digest.Scheduler
	queue      *rabbitmq.QueueService
}

func newApp(config *newsletter.Config, logger zerolog.Logger) *app {
	a := &app{
		config:     config,
		logger:     logger,
		httpServer: http.NewServer(logger),
	}

	switch config.DB.Type {
	case "bolt":
		db := bolt.NewDB(config.DB.Path)
		a.db, a.store = db, bolt.NewSubscriberStore(db)
	default:
		db := sqlite.NewDB(config.DB.Path)
		a.db, a.store = db, sqlite.NewSubscriberStore(db)
	}

	return a
}

func (a *app) Run(ctx context.Context) error {
	if err := a.db.Open(); err != nil {
		return err
	}

	a.httpServer.Addr = a.config.HTTP.Addr
	a.httpServer.Domain = a.config.HTTP.Domain
	a.httpServer.FeedURL = a.config.Digest.FeedURL
	a.httpServer.KeyHash = a.config.Digest.KeyHash

	if err := a.httpServer.Open(); err != nil {
		return err
	}

	baseURL := a.config.BaseURL
	mailer := email.NewMailer(a.config)
	composer := email.NewComposer(a.config)

	a.httpServer.SubscriptionService = subscription.NewService(a.store, mailer, composer, baseURL, a.config.Newsletter.ResubscribePolicy)

	dispatcher, err := digest.NewDispatcher(a.store, mailer, feed.NewReader(a.config.Feed.Timeout), composer, digest.Options{
		Window:        a.config.Digest.Window,
		Concurrency:   a.config.Digest.Concurrency,
		TrackingParam: a.config.Digest.TrackingParam,
		BaseURL:       baseURL,
	})
	if err != nil {
		return err
	}
	a.httpServer.DigestService = dispatcher

	if spec := a.config.Digest.Cron.Spec; spec != "" {
		a.scheduler, err = digest.NewScheduler(dispatcher, a.config.Digest.FeedURL, spec, a.logger)
		if err != nil {
			return err
		}
		a.scheduler.Start()
	}

	if url := a.config.AMQP.URL; url != "" {
		a.queue, err = rabbitmq.NewQueueService(url)
		if err != nil {
			return err
		}

		consumer := digest.NewConsumer(a.queue, dispatcher, a.config.Digest.FeedURL, a.config.Digest.KeyHash)
		go func() {
			if err := consumer.Run(ctx, a.config.Digest.Topic); err != nil {
				a.logger.Error().Err(err).Msg("digest consumer stopped")
				sentry.CaptureException(err)
			}
		}()
	}

	a.logger.Info().Str("url", a.httpServer.URL()).Str("db", a.config.DB.Type).Msg("newsletter started")

	return nil
}

func (a *app) Close() error {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	if a.queue != nil {
		if err := a.queue.Close(); err != nil {
			return err
		}
	}

	if a.httpServer != nil {
		if err := a.httpServer.Close(); err != nil {
			return err
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return err
		}
	}

	return nil
}
