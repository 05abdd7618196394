package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-passes/app/entity"
	"github.com/vibast-solutions/ms-go-passes/app/notify"
	"github.com/vibast-solutions/ms-go-passes/app/provider"
	"github.com/vibast-solutions/ms-go-passes/app/repository"
	"github.com/vibast-solutions/ms-go-passes/config"
)

type servicePaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*entity.Payment
	findErr  error
	passes   *servicePassRepo
}

func newServicePaymentRepo() *servicePaymentRepo {
	return &servicePaymentRepo{payments: map[string]*entity.Payment{}}
}

func (r *servicePaymentRepo) Create(_ context.Context, payment *entity.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[payment.OrderID]; ok {
		return repository.ErrPaymentAlreadyExists
	}
	copyItem := *payment
	r.payments[payment.OrderID] = &copyItem
	return nil
}

func (r *servicePaymentRepo) FindByOrderID(_ context.Context, orderID string) (*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	item, ok := r.payments[orderID]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *servicePaymentRepo) MarkSuccess(_ context.Context, orderID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.payments[orderID]
	if !ok {
		return false, repository.ErrPaymentNotFound
	}
	if item.Status != entity.PaymentStatusPending {
		return false, nil
	}
	item.Status = entity.PaymentStatusSuccess
	item.UpdatedAt = now
	return true, nil
}

func (r *servicePaymentRepo) ListForReconcile(_ context.Context, notBefore, before time.Time, limit int32) ([]*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*entity.Payment, 0)
	for _, item := range r.payments {
		if item.Status == entity.PaymentStatusPending && (item.CreatedAt.After(before) || item.CreatedAt.Before(notBefore)) {
			continue
		}
		if r.passes != nil {
			if existing, _ := r.passes.FindByPaymentID(context.Background(), item.OrderID); existing != nil {
				continue
			}
		}
		copyItem := *item
		items = append(items, &copyItem)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].IsSuccess() != items[j].IsSuccess() {
			return items[i].IsSuccess()
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if int32(len(items)) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r *servicePaymentRepo) status(orderID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item, ok := r.payments[orderID]; ok {
		return item.Status
	}
	return ""
}

// servicePassRepo enforces one pass per payment id like the unique index.
type servicePassRepo struct {
	mu        sync.Mutex
	byID      map[string]*entity.Pass
	byPayment map[string]string
	createErr error
	creates   int
}

func newServicePassRepo() *servicePassRepo {
	return &servicePassRepo{byID: map[string]*entity.Pass{}, byPayment: map[string]string{}}
}

func (r *servicePassRepo) Create(_ context.Context, pass *entity.Pass) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.byPayment[pass.PaymentID]; ok {
		return repository.ErrPassAlreadyExists
	}
	copyItem := *pass
	r.byID[pass.ID] = &copyItem
	r.byPayment[pass.PaymentID] = pass.ID
	return nil
}

func (r *servicePassRepo) FindByID(_ context.Context, id string) (*entity.Pass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *servicePassRepo) FindByPaymentID(_ context.Context, paymentID string) (*entity.Pass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byPayment[paymentID]
	if !ok {
		return nil, nil
	}
	copyItem := *r.byID[id]
	return &copyItem, nil
}

func (r *servicePassRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

type serviceTeamRepo struct {
	mu        sync.Mutex
	teams     map[string]*entity.Team
	updateErr error
	updates   int
}

func newServiceTeamRepo() *serviceTeamRepo {
	return &serviceTeamRepo{teams: map[string]*entity.Team{}}
}

func (r *serviceTeamRepo) Create(_ context.Context, team *entity.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teams[team.ID]; ok {
		return repository.ErrTeamAlreadyExists
	}
	copyItem := *team
	r.teams[team.ID] = &copyItem
	return nil
}

func (r *serviceTeamRepo) FindByID(_ context.Context, id string) (*entity.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.teams[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *serviceTeamRepo) MarkIssued(_ context.Context, teamID, passID, paymentStatus string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	if r.updateErr != nil {
		return r.updateErr
	}
	item, ok := r.teams[teamID]
	if !ok {
		return repository.ErrTeamNotFound
	}
	item.PassID = &passID
	item.PaymentStatus = paymentStatus
	item.UpdatedAt = now
	return nil
}

type serviceEventRepo struct {
	mu     sync.Mutex
	events []*entity.PaymentEvent
}

func (r *serviceEventRepo) Create(_ context.Context, event *entity.PaymentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copyItem := *event
	r.events = append(r.events, &copyItem)
	return nil
}

func (r *serviceEventRepo) ofType(eventType string) []*entity.PaymentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.PaymentEvent, 0)
	for _, e := range r.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type serviceDeliveryRepo struct {
	mu         sync.Mutex
	deliveries []*entity.WebhookDelivery
}

func (r *serviceDeliveryRepo) Create(_ context.Context, delivery *entity.WebhookDelivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copyItem := *delivery
	r.deliveries = append(r.deliveries, &copyItem)
	return nil
}

func (r *serviceDeliveryRepo) last() *entity.WebhookDelivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.deliveries) == 0 {
		return nil
	}
	return r.deliveries[len(r.deliveries)-1]
}

type fakeGateway struct {
	mu           sync.Mutex
	orderStatus  string
	payments     []*provider.OrderPayment
	statusErr    error
	createErr    error
	validSig     string
	statusCalls  int
	createInputs []*provider.CreateOrderInput
}

func (g *fakeGateway) CreateOrder(_ context.Context, input *provider.CreateOrderInput) (*provider.CreateOrderOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createInputs = append(g.createInputs, input)
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &provider.CreateOrderOutput{GatewayOrderID: input.OrderID, PaymentSessionID: "session_" + input.OrderID}, nil
}

func (g *fakeGateway) GetOrderStatus(_ context.Context, orderID string) (*provider.OrderStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusCalls++
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	return &provider.OrderStatus{OrderID: orderID, Status: g.orderStatus}, nil
}

func (g *fakeGateway) GetOrderPayments(_ context.Context, _ string) ([]*provider.OrderPayment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.payments, nil
}

func (g *fakeGateway) VerifyWebhookSignature(_ string, _ []byte, signature string) bool {
	return signature != "" && signature == g.validSig
}

type fakeSigner struct{}

func (fakeSigner) Sign(passID string, _ int) string {
	return passID + ":0.sig"
}

type fakeQR struct {
	err error
}

func (q fakeQR) Render(content string) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	return "data:image/png;base64," + content, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notify.PassIssuedNotification
}

func (n *fakeNotifier) NotifyPassIssued(_ context.Context, msg notify.PassIssuedNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, msg)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type fakeCache struct {
	mu     sync.Mutex
	items  map[string]*entity.Pass
	getErr error
}

func (c *fakeCache) Get(_ context.Context, orderID string) (*entity.Pass, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.items[orderID], nil
}

func (c *fakeCache) Set(_ context.Context, pass *entity.Pass) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = map[string]*entity.Pass{}
	}
	c.items[pass.PaymentID] = pass
	return nil
}

type testEnv struct {
	svc        *PaymentService
	payments   *servicePaymentRepo
	passes     *servicePassRepo
	teams      *serviceTeamRepo
	events     *serviceEventRepo
	deliveries *serviceDeliveryRepo
	gateway    *fakeGateway
	notifier   *fakeNotifier
}

func newTestEnv() *testEnv {
	env := &testEnv{
		payments:   newServicePaymentRepo(),
		passes:     newServicePassRepo(),
		teams:      newServiceTeamRepo(),
		events:     &serviceEventRepo{},
		deliveries: &serviceDeliveryRepo{},
		gateway:    &fakeGateway{orderStatus: provider.OrderStatusPaid, validSig: "good-sig"},
		notifier:   &fakeNotifier{},
	}
	env.payments.passes = env.passes
	env.svc = NewPaymentService(Dependencies{
		Payments:   env.payments,
		Passes:     env.passes,
		Teams:      env.teams,
		Events:     env.events,
		Deliveries: env.deliveries,
		Gateway:    env.gateway,
		Signer:     fakeSigner{},
		QR:         fakeQR{},
		Notifier:   env.notifier,
		Pricing: config.PricingConfig{
			DayPass:        500,
			Proshow:        800,
			SanaConcert:    1000,
			GroupPerMember: 250,
		},
		Jobs:   config.JobsConfig{ReconcileStaleAfter: 10 * time.Minute, JobBatchSize: 10},
		Orders: config.GatewayConfig{Currency: "INR"},
		Token:  config.TokenConfig{ExpiryDays: 30},
	})
	return env
}

func (env *testEnv) seedPayment(orderID, userID, passType string, teamID *string) {
	env.seedPaymentAt(orderID, userID, passType, teamID, time.Now().UTC().Add(-time.Hour))
}

func (env *testEnv) seedPaymentAt(orderID, userID, passType string, teamID *string, now time.Time) {
	_ = env.payments.Create(context.Background(), &entity.Payment{
		OrderID:   orderID,
		UserID:    userID,
		Amount:    500,
		Currency:  "INR",
		PassType:  passType,
		Status:    entity.PaymentStatusPending,
		TeamID:    teamID,
		Customer:  entity.CustomerDetails{Name: "Asha", Email: "asha@example.com", Phone: "9999999999"},
		CreatedAt: now,
		UpdatedAt: now,
	})
}

var errBoom = errors.New("boom")
