package notify

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-passes/app/entity"
	"github.com/vibast-solutions/ms-go-passes/app/metrics"
)

const defaultEmailTimeout = 15 * time.Second

const (
	channelEmail    = "email"
	channelRealtime = "realtime"
	channelEvent    = "event"
)

type userDirectory interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
}

type Mailer interface {
	Send(ctx context.Context, email *Email) error
}

type Email struct {
	To          string
	ToName      string
	Subject     string
	HTML        string
	Attachments []Attachment
}

type Attachment struct {
	Name    string
	Content []byte
}

type RealtimePublisher interface {
	Publish(ctx context.Context, channel string, message map[string]interface{}) error
}

type EventPublisher interface {
	PublishPassIssued(ctx context.Context, event *PassIssuedEvent) error
}

type PassIssuedNotification struct {
	Pass    *entity.Pass
	Payment *entity.Payment
}

type PassIssuedEvent struct {
	Type     string    `json:"type"`
	PassID   string    `json:"passId"`
	OrderID  string    `json:"orderId"`
	UserID   string    `json:"userId"`
	PassType string    `json:"passType"`
	Amount   int64     `json:"amount"`
	IssuedAt time.Time `json:"issuedAt"`
	TeamID   string    `json:"teamId,omitempty"`
	TeamName string    `json:"teamName,omitempty"`
}

// Dispatcher fans a pass issuance out to every configured channel. Channels
// left nil are skipped; failures are logged and counted, never returned.
type Dispatcher struct {
	users    userDirectory
	mailer   Mailer
	pdf      *PassRenderer
	realtime RealtimePublisher
	events   EventPublisher
	metrics  *metrics.Metrics
	logger   logrus.FieldLogger

	publicURL    string
	emailTimeout time.Duration
}

type DispatcherOptions struct {
	Users    userDirectory
	Mailer   Mailer
	PDF      *PassRenderer
	Realtime RealtimePublisher
	Events   EventPublisher
	Metrics  *metrics.Metrics
	Logger   logrus.FieldLogger

	// PublicURL, when set, adds a link to the pass page in the email.
	PublicURL    string
	// EmailTimeout bounds how long issuance waits on the mail server.
	EmailTimeout time.Duration
}

func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	emailTimeout := opts.EmailTimeout
	if emailTimeout <= 0 {
		emailTimeout = defaultEmailTimeout
	}
	return &Dispatcher{
		users:    opts.Users,
		mailer:   opts.Mailer,
		pdf:      opts.PDF,
		realtime: opts.Realtime,
		events:   opts.Events,
		metrics:  opts.Metrics,
		logger:   logger,

		publicURL:    strings.TrimRight(opts.PublicURL, "/"),
		emailTimeout: emailTimeout,
	}
}

func (d *Dispatcher) NotifyPassIssued(ctx context.Context, n PassIssuedNotification) {
	if n.Pass == nil {
		return
	}
	logger := d.logger.WithFields(logrus.Fields{
		"pass_id":  n.Pass.ID,
		"order_id": n.Pass.PaymentID,
	})

	d.sendEmail(ctx, logger, n)
	d.publishRealtime(ctx, logger, n)
	d.publishEvent(ctx, logger, n)
}

func (d *Dispatcher) sendEmail(ctx context.Context, logger logrus.FieldLogger, n PassIssuedNotification) {
	if d.mailer == nil {
		return
	}

	recipient, name := d.recipient(ctx, logger, n)
	if recipient == "" {
		logger.Info("no email address for pass owner, skipping email")
		return
	}

	html, err := renderConfirmation(confirmationData(n, name, d.passURL(n.Pass.ID)))
	if err != nil {
		logger.WithError(err).Error("render confirmation email failed")
		d.metrics.Notification(channelEmail, metrics.StatusFailed)
		return
	}

	email := &Email{
		To:      recipient,
		ToName:  name,
		Subject: "Your festival pass is confirmed",
		HTML:    html,
	}

	if d.pdf != nil {
		doc, err := d.pdf.Render(passDocument(n, name))
		if err != nil {
			logger.WithError(err).Warn("render pass pdf failed, sending without attachment")
		} else {
			email.Attachments = append(email.Attachments, Attachment{
				Name:    "pass-" + n.Pass.ID + ".pdf",
				Content: doc,
			})
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.emailTimeout)
	defer cancel()
	if err := d.mailer.Send(sendCtx, email); err != nil {
		logger.WithError(err).Error("send pass email failed")
		d.metrics.Notification(channelEmail, metrics.StatusFailed)
		return
	}
	d.metrics.Notification(channelEmail, metrics.StatusSent)
}

func (d *Dispatcher) recipient(ctx context.Context, logger logrus.FieldLogger, n PassIssuedNotification) (string, string) {
	if d.users != nil {
		user, err := d.users.FindByID(ctx, n.Pass.UserID)
		if err != nil {
			logger.WithError(err).Warn("user lookup failed, falling back to order customer details")
		} else if user != nil && user.Email != "" {
			return user.Email, user.Name
		}
	}
	if n.Payment != nil {
		return n.Payment.Customer.Email, n.Payment.Customer.Name
	}
	return "", ""
}

func (d *Dispatcher) publishRealtime(ctx context.Context, logger logrus.FieldLogger, n PassIssuedNotification) {
	if d.realtime == nil {
		return
	}

	message := map[string]interface{}{
		"type":    "pass_issued",
		"passId":  n.Pass.ID,
		"orderId": n.Pass.PaymentID,
	}
	if err := d.realtime.Publish(ctx, "user-"+n.Pass.UserID, message); err != nil {
		logger.WithError(err).Warn("realtime publish failed")
		d.metrics.Notification(channelRealtime, metrics.StatusFailed)
		return
	}
	d.metrics.Notification(channelRealtime, metrics.StatusSent)
}

func (d *Dispatcher) publishEvent(ctx context.Context, logger logrus.FieldLogger, n PassIssuedNotification) {
	if d.events == nil {
		return
	}

	event := &PassIssuedEvent{
		Type:     "pass.issued",
		PassID:   n.Pass.ID,
		OrderID:  n.Pass.PaymentID,
		UserID:   n.Pass.UserID,
		PassType: n.Pass.PassType,
		Amount:   n.Pass.Amount,
		IssuedAt: n.Pass.CreatedAt,
	}
	if n.Pass.TeamSnapshot != nil {
		event.TeamID = n.Pass.TeamSnapshot.TeamID
		event.TeamName = n.Pass.TeamSnapshot.TeamName
	}

	if err := d.events.PublishPassIssued(ctx, event); err != nil {
		logger.WithError(err).Warn("pass issued event publish failed")
		d.metrics.Notification(channelEvent, metrics.StatusFailed)
		return
	}
	d.metrics.Notification(channelEvent, metrics.StatusSent)
}

func (d *Dispatcher) passURL(passID string) string {
	if d.publicURL == "" {
		return ""
	}
	return d.publicURL + "/passes/" + passID
}
