package cmd

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-passes/app/cache"
	"github.com/vibast-solutions/ms-go-passes/app/factory"
	"github.com/vibast-solutions/ms-go-passes/app/metrics"
	"github.com/vibast-solutions/ms-go-passes/app/notify"
	"github.com/vibast-solutions/ms-go-passes/app/provider"
	"github.com/vibast-solutions/ms-go-passes/app/qrcode"
	"github.com/vibast-solutions/ms-go-passes/app/repository"
	"github.com/vibast-solutions/ms-go-passes/app/service"
	"github.com/vibast-solutions/ms-go-passes/app/token"
	"github.com/vibast-solutions/ms-go-passes/config"
)

func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}
	return cfg
}

func mustOpenDB(cfg *config.Config) *sql.DB {
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}
	return db
}

func mustCreatePaymentService() (*config.Config, *service.PaymentService, func()) {
	cfg := mustLoadConfig()
	if err := cfg.RequireSigningSecret(); err != nil {
		logrus.WithError(err).Fatal("Refusing to start without a pass signing secret")
	}

	signer, err := token.NewSigner(cfg.Token.SigningSecret)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize token signer")
	}

	db := mustOpenDB(cfg)
	closers := []func(){
		func() {
			if err := db.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close database")
			}
		},
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	deps := service.Dependencies{
		Payments:   repository.NewPaymentRepository(db),
		Passes:     repository.NewPassRepository(db),
		Teams:      repository.NewTeamRepository(db),
		Events:     repository.NewPaymentEventRepository(db),
		Deliveries: repository.NewWebhookDeliveryRepository(db),
		Gateway: provider.NewCashfreeGateway(provider.CashfreeConfig{
			BaseURL:       cfg.Gateway.BaseURL,
			AppID:         cfg.Gateway.AppID,
			SecretKey:     cfg.Gateway.SecretKey,
			WebhookSecret: cfg.Gateway.WebhookSecret,
			APIVersion:    cfg.Gateway.APIVersion,
			HTTPTimeout:   cfg.Gateway.HTTPTimeout,
		}),
		Signer:  signer,
		QR:      qrcode.NewRenderer(0),
		Metrics: m,
		Logger:  factory.NewModuleLogger("payment-service"),
		Pricing: cfg.Pricing,
		Jobs:    cfg.Jobs,
		Orders:  cfg.Gateway,
		Token:   cfg.Token,
	}

	if passCache, closeCache := newPassCache(cfg); passCache != nil {
		deps.Cache = passCache
		closers = append(closers, closeCache)
	}

	dispatcher, closeNotifier := newDispatcher(cfg, db, m)
	deps.Notifier = dispatcher
	closers = append(closers, closeNotifier)

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	return cfg, service.NewPaymentService(deps), cleanup
}

// newPassCache returns nil when no redis URL is configured or redis is
// unreachable at startup; issuance then reads the passes table directly.
func newPassCache(cfg *config.Config) (*cache.PassCache, func()) {
	if cfg.Redis.URL == "" {
		return nil, nil
	}

	client := cache.NewRedisClient(cfg.Redis.URL)
	passCache := cache.NewPassCache(client, cfg.Redis.PassTTL)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := passCache.Ping(ctx); err != nil {
		logrus.WithError(err).Warn("Redis unavailable, pass cache disabled")
		_ = client.Close()
		return nil, nil
	}

	return passCache, func() {
		if err := client.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close redis client")
		}
	}
}

func newDispatcher(cfg *config.Config, db *sql.DB, m *metrics.Metrics) (*notify.Dispatcher, func()) {
	logger := factory.NewModuleLogger("notify")
	opts := notify.DispatcherOptions{
		Users:        repository.NewUserRepository(db),
		PDF:          notify.NewPassRenderer(cfg.App.EventName),
		Metrics:      m,
		Logger:       logger,
		PublicURL:    cfg.App.PublicURL,
		EmailTimeout: cfg.SMTP.SendTimeout,
	}
	cleanup := func() {}

	if cfg.SMTP.Host != "" {
		mailer, err := notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
		})
		if err != nil {
			logger.WithError(err).Warn("Email notifications disabled")
		} else {
			opts.Mailer = mailer
		}
	}

	if cfg.PubNub.PublishKey != "" && cfg.PubNub.SubscribeKey != "" {
		opts.Realtime = notify.NewPubNubPublisher(notify.PubNubConfig{
			PublishKey:   cfg.PubNub.PublishKey,
			SubscribeKey: cfg.PubNub.SubscribeKey,
			UserID:       cfg.PubNub.UserID,
		})
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher := notify.NewKafkaPublisher(notify.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.PassTopic, cfg.Kafka.WriteAfter))
		opts.Events = publisher
		cleanup = func() {
			if err := publisher.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close kafka writer")
			}
		}
	}

	return notify.NewDispatcher(opts), cleanup
}
