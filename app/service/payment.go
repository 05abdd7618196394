package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-passes/app/entity"
	"github.com/vibast-solutions/ms-go-passes/app/metrics"
	"github.com/vibast-solutions/ms-go-passes/app/notify"
	"github.com/vibast-solutions/ms-go-passes/app/provider"
	"github.com/vibast-solutions/ms-go-passes/app/token"
	"github.com/vibast-solutions/ms-go-passes/config"
)

const (
	defaultBatchSize       = int32(100)
	defaultReconcileMaxAge = 72 * time.Hour
)

const (
	SourceOrder        = "order"
	SourceWebhook      = "webhook"
	SourceClientVerify = "client_verify"
	SourceOperator     = "operator"
	SourceSweep        = "sweep"
)

type paymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByOrderID(ctx context.Context, orderID string) (*entity.Payment, error)
	MarkSuccess(ctx context.Context, orderID string, now time.Time) (bool, error)
	ListForReconcile(ctx context.Context, notBefore, before time.Time, limit int32) ([]*entity.Payment, error)
}

type passRepository interface {
	Create(ctx context.Context, pass *entity.Pass) error
	FindByID(ctx context.Context, id string) (*entity.Pass, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*entity.Pass, error)
}

type teamRepository interface {
	Create(ctx context.Context, team *entity.Team) error
	FindByID(ctx context.Context, id string) (*entity.Team, error)
	MarkIssued(ctx context.Context, teamID, passID, paymentStatus string, now time.Time) error
}

type paymentEventRepository interface {
	Create(ctx context.Context, event *entity.PaymentEvent) error
}

type webhookDeliveryRepository interface {
	Create(ctx context.Context, delivery *entity.WebhookDelivery) error
}

type passCache interface {
	Get(ctx context.Context, orderID string) (*entity.Pass, error)
	Set(ctx context.Context, pass *entity.Pass) error
}

type passNotifier interface {
	NotifyPassIssued(ctx context.Context, n notify.PassIssuedNotification)
}

type tokenSigner interface {
	Sign(passID string, expiryDays int) string
}

type qrRenderer interface {
	Render(content string) (string, error)
}

// Dependencies groups everything PaymentService needs. Cache, Notifier and
// Metrics are optional.
type Dependencies struct {
	Payments   paymentRepository
	Passes     passRepository
	Teams      teamRepository
	Events     paymentEventRepository
	Deliveries webhookDeliveryRepository
	Gateway    provider.Gateway
	Signer     tokenSigner
	QR         qrRenderer
	Cache      passCache
	Notifier   passNotifier
	Metrics    *metrics.Metrics
	Logger     logrus.FieldLogger

	Pricing config.PricingConfig
	Jobs    config.JobsConfig
	Orders  config.GatewayConfig
	Token   config.TokenConfig
}

type PaymentService struct {
	paymentRepo  paymentRepository
	passRepo     passRepository
	teamRepo     teamRepository
	eventRepo    paymentEventRepository
	deliveryRepo webhookDeliveryRepository
	gateway      provider.Gateway
	signer       tokenSigner
	qr           qrRenderer
	cache        passCache
	notifier     passNotifier
	metrics      *metrics.Metrics
	logger       logrus.FieldLogger

	pricing  config.PricingConfig
	jobsCfg  config.JobsConfig
	orderCfg config.GatewayConfig
	tokenCfg config.TokenConfig

	now func() time.Time
}

func NewPaymentService(deps Dependencies) *PaymentService {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.WithField("module", "payment-service")
	}

	return &PaymentService{
		paymentRepo:  deps.Payments,
		passRepo:     deps.Passes,
		teamRepo:     deps.Teams,
		eventRepo:    deps.Events,
		deliveryRepo: deps.Deliveries,
		gateway:      deps.Gateway,
		signer:       deps.Signer,
		qr:           deps.QR,
		cache:        deps.Cache,
		notifier:     deps.Notifier,
		metrics:      deps.Metrics,
		logger:       logger,
		pricing:      deps.Pricing,
		jobsCfg:      deps.Jobs,
		orderCfg:     deps.Orders,
		tokenCfg:     deps.Token,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *PaymentService) batchSize() int32 {
	if s.jobsCfg.JobBatchSize > 0 {
		return s.jobsCfg.JobBatchSize
	}
	return defaultBatchSize
}

func (s *PaymentService) reconcileMaxAge() time.Duration {
	if s.jobsCfg.ReconcileMaxAge > 0 {
		return s.jobsCfg.ReconcileMaxAge
	}
	return defaultReconcileMaxAge
}

func (s *PaymentService) expiryDays() int {
	if s.tokenCfg.ExpiryDays > 0 {
		return s.tokenCfg.ExpiryDays
	}
	return token.DefaultExpiryDays
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
