// Package notification renders cost alerts and delivers them over every
// configured transport.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/costoptimizer/backend/internal/config"
	"github.com/costoptimizer/backend/internal/model"
)

// EventType represents the type of notification event.
type EventType string

const (
	EventAnomalyAlert EventType = "anomaly.alert"
	EventCostSpike    EventType = "cost.spike"
	EventDailyReport  EventType = "daily.report"
)

// Alert is one rendered notification.
type Alert struct {
	Event     EventType `json:"event_type"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	ChatText  string    `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// chatText returns the chat variant of the body.
func (a Alert) chatText() string {
	if a.ChatText != "" {
		return a.ChatText
	}
	return a.Body
}

// Transport delivers an alert over one channel.
type Transport interface {
	Name() string
	Send(ctx context.Context, alert Alert) error
}

// Result is the outcome of one transport attempt.
type Result struct {
	Transport string
	Err       error
}

// Dispatcher sends each alert through a fixed, ordered list of transports.
// Every attempt is isolated: a failing or panicking transport is logged and
// does not affect the others, and nothing is returned to the caller as an
// error.
type Dispatcher struct {
	transports []Transport
	logger     *slog.Logger
	now        func() time.Time
}

// NewDispatcher builds a dispatcher from the transports enabled in cfg. The
// archive client may be nil when no bucket is configured.
func NewDispatcher(cfg config.NotificationConfig, archive PutObjectAPI, logger *slog.Logger) *Dispatcher {
	var transports []Transport
	if cfg.SMTPServer != "" {
		transports = append(transports, NewEmailTransport(cfg))
	}
	if cfg.SlackWebhookURL != "" {
		transports = append(transports, NewSlackTransport(cfg.SlackWebhookURL, cfg.SlackChannel, cfg.Timeout))
	}
	if len(cfg.WebhookURLs) > 0 {
		transports = append(transports, NewWebhookTransport(cfg.WebhookURLs, cfg.Timeout))
	}
	if cfg.ArchiveBucket != "" && archive != nil {
		transports = append(transports, NewS3Transport(archive, cfg.ArchiveBucket))
	}
	return NewDispatcherWithTransports(logger, transports...)
}

// NewDispatcherWithTransports builds a dispatcher over the given transports.
func NewDispatcherWithTransports(logger *slog.Logger, transports ...Transport) *Dispatcher {
	names := make([]string, len(transports))
	for i, t := range transports {
		names[i] = t.Name()
	}
	logger.Info("notification transports configured", "transports", names)

	return &Dispatcher{
		transports: transports,
		logger:     logger,
		now:        time.Now,
	}
}

// Transports returns the configured transport names in dispatch order.
func (d *Dispatcher) Transports() []string {
	names := make([]string, len(d.transports))
	for i, t := range d.transports {
		names[i] = t.Name()
	}
	return names
}

// SendAnomalyAlerts renders and dispatches the recommendation set.
func (d *Dispatcher) SendAnomalyAlerts(ctx context.Context, set model.RecommendationSet) []Result {
	return d.dispatch(ctx, Alert{
		Event:   EventAnomalyAlert,
		Subject: "Cloud Cost Optimization Alert",
		Body:    FormatAnomalyAlert(set),
	})
}

// SendCostSpikeAlert dispatches the short single-service spike message.
func (d *Dispatcher) SendCostSpikeAlert(ctx context.Context, spike SpikeSummary) []Result {
	return d.dispatch(ctx, Alert{
		Event:   EventCostSpike,
		Subject: fmt.Sprintf("Cost Spike Alert: %s", spike.Service),
		Body:    FormatCostSpikeAlert(spike),
	})
}

// SendDailyReport dispatches the daily digest.
func (d *Dispatcher) SendDailyReport(ctx context.Context, dailyCost float64, recs []model.Recommendation) []Result {
	return d.dispatch(ctx, Alert{
		Event:    EventDailyReport,
		Subject:  fmt.Sprintf("Daily Cloud Cost Report - $%.2f", dailyCost),
		Body:     FormatDailyReport(dailyCost, recs),
		ChatText: formatDailyChat(dailyCost, recs),
	})
}

func (d *Dispatcher) dispatch(ctx context.Context, alert Alert) []Result {
	alert.Timestamp = d.now().UTC()

	if len(d.transports) == 0 {
		d.logger.Warn("no notification transports configured", "event", alert.Event)
		return nil
	}

	results := make([]Result, 0, len(d.transports))
	for _, t := range d.transports {
		err := d.attempt(ctx, t, alert)
		if err != nil {
			d.logger.Error("notification send failed", "transport", t.Name(), "event", alert.Event, "error", err)
		} else {
			d.logger.Info("notification sent", "transport", t.Name(), "event", alert.Event)
		}
		results = append(results, Result{Transport: t.Name(), Err: err})
	}
	return results
}

func (d *Dispatcher) attempt(ctx context.Context, t Transport, alert Alert) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transport panicked: %v", r)
		}
	}()
	return t.Send(ctx, alert)
}
