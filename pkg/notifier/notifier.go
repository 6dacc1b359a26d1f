// Package notifier turns a finished build into SMS notifications: it asks
// the policy whether to notify, composes the message for every direct
// recipient and culprit, and dispatches each through the gateway.
//
// Notification is best effort. Perform never fails the build; everything
// that went wrong is written to the build log and returned in a Report.
package notifier

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kart-io/buildnotify/observability"
	"github.com/kart-io/buildnotify/pkg/build"
	"github.com/kart-io/buildnotify/pkg/config"
	"github.com/kart-io/buildnotify/pkg/culprit"
	"github.com/kart-io/buildnotify/pkg/errors"
	"github.com/kart-io/buildnotify/pkg/logger"
	"github.com/kart-io/buildnotify/pkg/platforms/shortener"
	"github.com/kart-io/buildnotify/pkg/platforms/sms"
	"github.com/kart-io/buildnotify/pkg/policy"
	"github.com/kart-io/buildnotify/pkg/template"
	"github.com/kart-io/buildnotify/pkg/users"
)

// Sender dispatches one text message.
type Sender interface {
	Send(ctx context.Context, creds sms.Credentials, recipient, message string) error
}

// Shortener shortens a URL.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) (string, error)
}

// GatewaySource supplies the current gateway configuration. *config.Store
// satisfies it.
type GatewaySource interface {
	Gateway() config.Gateway
}

// StaticGateway is a GatewaySource that never changes.
type StaticGateway config.Gateway

// Gateway returns g
func (g StaticGateway) Gateway() config.Gateway {
	return config.Gateway(g)
}

// Notifier is configured once per job and may run concurrently for
// several builds; every Perform works on its own copies.
type Notifier struct {
	cfg       config.Notifier
	users     users.Directory
	gateway   GatewaySource
	sender    Sender
	shortener Shortener
	telemetry *observability.TelemetryProvider
	logger    logger.Logger
}

// Option configures a Notifier
type Option func(*Notifier)

// WithSender replaces the gateway client
func WithSender(s Sender) Option {
	return func(n *Notifier) {
		n.sender = s
	}
}

// WithShortener replaces the URL shortener
func WithShortener(s Shortener) Option {
	return func(n *Notifier) {
		n.shortener = s
	}
}

// WithTelemetry sets the telemetry provider
func WithTelemetry(tp *observability.TelemetryProvider) Option {
	return func(n *Notifier) {
		n.telemetry = tp
	}
}

// WithLogger sets the process logger. Build-visible output goes to the
// writer passed to Perform.
func WithLogger(l logger.Logger) Option {
	return func(n *Notifier) {
		n.logger = logger.OrDiscard(l)
	}
}

// New creates a notifier. The user list is parsed once here. Default
// gateway and shortener clients take their endpoints, timeout and rate
// limit from the gateway configuration current at this point; credentials
// are read again on every Perform.
func New(cfg config.Notifier, gateway GatewaySource, opts ...Option) (*Notifier, error) {
	if gateway == nil {
		return nil, errors.New(errors.ErrInvalidConfig, "gateway configuration source is required")
	}

	n := &Notifier{
		cfg:     cfg,
		users:   users.ParseUserList(cfg.UserList),
		gateway: gateway,
		logger:  logger.Discard,
	}
	for _, opt := range opts {
		opt(n)
	}

	g := gateway.Gateway()
	if n.sender == nil {
		n.sender = sms.NewSender(
			sms.WithEndpoint(g.GatewayURL),
			sms.WithTimeout(g.Timeout),
			sms.WithRateLimit(g.RateLimit),
			sms.WithLogger(n.logger),
		)
	}
	if n.shortener == nil {
		n.shortener = shortener.New(
			shortener.WithEndpoint(g.ShortenerURL),
			shortener.WithTimeout(g.Timeout),
			shortener.WithLogger(n.logger),
		)
	}
	if n.telemetry == nil {
		tp, err := observability.NewTelemetryProvider(nil)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInternal, "init telemetry")
		}
		n.telemetry = tp
	}
	return n, nil
}

// Perform notifies about rec, writing progress to buildLog (may be nil).
// It always returns a report and never panics.
func (n *Notifier) Perform(ctx context.Context, rec build.Record, buildLog io.Writer) (report *Report) {
	report = newReport(uuid.NewString())
	log := logger.Multi(logger.NewBuildLogger(buildLog), n.logger)

	ctx, span := n.telemetry.TracePerform(ctx, report.InvocationID)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := errors.Newf(errors.ErrInternal, "notification aborted: %v", r)
			report.abort(err)
			log.Error("Failed to send notification", "invocation", report.InvocationID, "error", err)
		}
		report.finish()
		if err := report.Err(); err != nil {
			n.telemetry.SetSpanError(span, err)
		} else {
			n.telemetry.SetSpanSuccess(span)
		}
	}()

	if rec == nil {
		report.abort(errors.New(errors.ErrInvalidEvent, "no build record"))
		log.Error("Failed to send notification", "invocation", report.InvocationID, "error", report.Error)
		return report
	}
	report.Project = rec.ProjectName()
	report.Build = rec.DisplayName()
	n.telemetry.SetBuildAttributes(span, report.Project, report.Build)

	flag := n.cfg.OnlyOnFailureOrRecovery
	report.Reason = policy.Reason(flag, rec)
	if !policy.ShouldNotify(flag, rec) {
		log.Info("Not notifying", "build", rec.DisplayName(), "reason", report.Reason)
		n.telemetry.RecordBuildSkipped(ctx, report.Reason)
		return report
	}
	report.Notified = true

	vars := baseVars(rec)
	res := culprit.Resolve(rec, n.users)
	vars[template.Culprits] = res.Display
	for _, c := range res.Notifiable {
		report.Culprits = append(report.Culprits, c.ID)
	}
	log.Info("Resolved culprits",
		"source", res.Source,
		"count", len(res.Raw),
		"with_phone", len(res.Notifiable))

	g := n.gateway.Gateway()
	creds := sms.Credentials{APIKey: g.APIKey, Msisdn: g.Msisdn, Password: g.Password}
	var buildURL string
	if n.cfg.IncludeURL.IsEnabled() {
		buildURL = g.BaseURL + rec.URL()
	}

	for _, recipient := range n.cfg.RecipientList() {
		message := template.Substitute(n.cfg.Message, vars.Clone())
		n.deliver(ctx, log, report, creds, KindDirect, recipient, message, buildURL)
	}

	if n.cfg.SendToCulprits.IsEnabled() {
		tmpl := n.cfg.Message
		if n.cfg.CulpritMessage != "" {
			tmpl = n.cfg.CulpritMessage
		}
		for _, c := range res.Notifiable {
			message := template.Substitute(tmpl, vars.With(template.CulpritName, c.DisplayName))
			n.deliver(ctx, log, report, creds, KindCulprit, c.Phone, message, buildURL)
		}
	}

	log.Info("Notification finished",
		"invocation", report.InvocationID,
		"sent", report.Successful,
		"failed", report.Failed)
	return report
}

// deliver sends one message. Failures are recorded, never propagated, so
// the remaining recipients are still attempted.
func (n *Notifier) deliver(ctx context.Context, log logger.Logger, report *Report, creds sms.Credentials, kind Kind, recipient, message, buildURL string) {
	start := time.Now()
	ctx, span := n.telemetry.TraceDispatch(ctx, string(kind))
	defer span.End()

	d := Delivery{Recipient: recipient, Kind: kind, Message: message}
	d.err = func() error {
		if buildURL != "" {
			short, err := n.shortener.Shorten(ctx, buildURL)
			if err != nil {
				return err
			}
			d.Message = message + " " + short
		}
		return n.sender.Send(ctx, creds, recipient, d.Message)
	}()
	d.Duration = time.Since(start)

	if d.err != nil {
		d.Error = d.err.Error()
		n.telemetry.SetSpanError(span, d.err)
		n.telemetry.RecordMessageFailed(ctx, string(kind), d.Duration, string(errors.GetErrorCode(d.err)))
		log.Error("Failed to send notification", "recipient", recipient, "kind", kind, "error", d.err)
	} else {
		d.Success = true
		n.telemetry.SetSpanSuccess(span)
		n.telemetry.RecordMessageSent(ctx, string(kind), d.Duration)
		log.Info("Sent notification", "recipient", recipient, "kind", kind)
	}
	report.addDelivery(d)
}

// baseVars holds the per-build placeholders shared by every message.
func baseVars(rec build.Record) template.Vars {
	var artifacts strings.Builder
	for _, a := range rec.Artifacts() {
		fmt.Fprintf(&artifacts, "%s: %s\n", a.FileName, a.Href)
	}
	return template.Vars{
		template.Project:   rec.ProjectName(),
		template.Build:     rec.DisplayName(),
		template.Status:    rec.Result().String(),
		template.Artifacts: artifacts.String(),
	}
}
