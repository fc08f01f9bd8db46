package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costoptimizer/backend/internal/config"
	"github.com/costoptimizer/backend/internal/model"
	"github.com/costoptimizer/backend/internal/testutil"
)

type recordingTransport struct {
	name   string
	err    error
	panics bool
	alerts []Alert
}

func (t *recordingTransport) Name() string { return t.name }

func (t *recordingTransport) Send(_ context.Context, alert Alert) error {
	if t.panics {
		panic("boom")
	}
	t.alerts = append(t.alerts, alert)
	return t.err
}

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies []string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func sampleSet() model.RecommendationSet {
	set := model.NewRecommendationSet()
	set[model.CategoryIdleInstances] = []model.Recommendation{
		{Type: model.RecommendationTypeIdleEC2, Suggestion: "Stop or resize this idle EC2 instance", PotentialSavings: 30},
	}
	set[model.CategoryCostSpikes] = []model.Recommendation{
		{Type: model.RecommendationTypeCostSpike, Suggestion: "Investigate Lambda cost increase of 30.0%"},
	}
	return set
}

func TestFormatAnomalyAlert_Empty(t *testing.T) {
	assert.Equal(t, "✅ No cost anomalies detected today.", FormatAnomalyAlert(model.NewRecommendationSet()))
}

func TestFormatAnomalyAlert(t *testing.T) {
	want := "🚨 Cost Optimization Alert: 2 issues found\n\n" +
		"**Idle Instances:**\n" +
		"• Stop or resize this idle EC2 instance\n" +
		"  💰 Potential savings: $30.00\n" +
		"\n" +
		"**Cost Spikes:**\n" +
		"• Investigate Lambda cost increase of 30.0%\n" +
		"\n" +
		"📊 Check the dashboard for full details."
	assert.Equal(t, want, FormatAnomalyAlert(sampleSet()))
}

func TestFormatAnomalyAlert_CapsPerCategory(t *testing.T) {
	set := model.NewRecommendationSet()
	for i := 0; i < 8; i++ {
		set[model.CategoryUnderusedRDS] = append(set[model.CategoryUnderusedRDS], model.Recommendation{Suggestion: "shrink"})
	}

	msg := FormatAnomalyAlert(set)
	assert.Contains(t, msg, "8 issues found")
	assert.Contains(t, msg, "**Underused Rds:**")
	assert.Equal(t, MaxPerCategory, strings.Count(msg, "• shrink"))
}

func TestFormatCostSpikeAlert(t *testing.T) {
	msg := FormatCostSpikeAlert(SpikeSummary{Service: "Lambda", IncreasePercent: 42.345, RecentCost: 130, PreviousCost: 91.5})
	assert.Equal(t, "⚠️ Cost Spike Alert\n\nService: Lambda\nCost increase: 42.3%\nRecent cost: $130.00\nPrevious cost: $91.50\n\nInvestigate immediately!", msg)
}

func TestFormatDailyReport(t *testing.T) {
	msg := FormatDailyReport(12.5, []model.Recommendation{{Suggestion: "Stop it", PotentialSavings: 3}})
	assert.Equal(t, "💰 Daily Cloud Cost Report\n\nToday's Total Cost: $12.50\n\n📋 Top Recommendations:\n• Stop it\n  💰 Potential savings: $3.00\n\nKeep optimizing your cloud costs! ☁️", msg)

	assert.Equal(t, "💰 Daily Cloud Cost Report\n\nToday's Total Cost: $0.00\n\nKeep optimizing your cloud costs! ☁️", FormatDailyReport(0, nil))
}

func TestDispatcher_IsolatesTransportFailures(t *testing.T) {
	// GIVEN a failing, a panicking and a healthy transport
	failing := &recordingTransport{name: "email", err: errors.New("smtp down")}
	panicking := &recordingTransport{name: "slack", panics: true}
	healthy := &recordingTransport{name: "webhook"}
	d := NewDispatcherWithTransports(testutil.Logger(), failing, panicking, healthy)

	// WHEN an alert is dispatched
	results := d.SendAnomalyAlerts(context.Background(), sampleSet())

	// THEN every transport is attempted in order and only the healthy one succeeds
	require.Len(t, results, 3)
	assert.Equal(t, "email", results[0].Transport)
	assert.EqualError(t, results[0].Err, "smtp down")
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)

	require.Len(t, healthy.alerts, 1)
	assert.Equal(t, "Cloud Cost Optimization Alert", healthy.alerts[0].Subject)
	assert.Equal(t, EventAnomalyAlert, healthy.alerts[0].Event)
	assert.False(t, healthy.alerts[0].Timestamp.IsZero())
}

func TestDispatcher_Subjects(t *testing.T) {
	rec := &recordingTransport{name: "webhook"}
	d := NewDispatcherWithTransports(testutil.Logger(), rec)

	d.SendCostSpikeAlert(context.Background(), SpikeSummary{Service: "S3", IncreasePercent: 50, RecentCost: 15, PreviousCost: 10})
	d.SendDailyReport(context.Background(), 42, nil)

	require.Len(t, rec.alerts, 2)
	assert.Equal(t, "Cost Spike Alert: S3", rec.alerts[0].Subject)
	assert.Equal(t, "Daily Cloud Cost Report - $42.00", rec.alerts[1].Subject)
	assert.Equal(t, "💰 Daily Cost Report: $42.00\n", rec.alerts[1].ChatText)
}

func TestDispatcher_NoTransports(t *testing.T) {
	d := NewDispatcher(config.NotificationConfig{ArchiveBucket: "bucket"}, nil, testutil.Logger())
	assert.Empty(t, d.Transports())
	assert.Empty(t, d.SendAnomalyAlerts(context.Background(), sampleSet()))
}

func TestNewDispatcher_TransportOrder(t *testing.T) {
	d := NewDispatcher(config.NotificationConfig{
		SMTPServer:      "smtp.example.com",
		SlackWebhookURL: "https://hooks.example.com/x",
		WebhookURLs:     []string{"https://example.com/hook"},
		ArchiveBucket:   "alerts",
		Timeout:         time.Second,
	}, &fakeS3{}, testutil.Logger())

	assert.Equal(t, []string{"email", "slack", "webhook", "s3-archive"}, d.Transports())
}

func TestEmailTransport(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	transport := NewEmailTransport(config.NotificationConfig{
		SMTPServer:   "smtp.example.com",
		SMTPPort:     587,
		SMTPUsername: "user",
		SMTPPassword: "pass",
		SMTPFrom:     "alerts@example.com",
		AlertEmails:  []string{"ops@example.com", "fin@example.com"},
	}).WithSendMail(func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	})

	err := transport.Send(context.Background(), Alert{Subject: "Cloud Cost Optimization Alert", Body: "line one\nline two"})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"ops@example.com", "fin@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Cloud Cost Optimization Alert\r\n")
	assert.Contains(t, gotMsg, "To: ops@example.com, fin@example.com\r\n")
	assert.Contains(t, gotMsg, "Content-Type: text/html; charset=UTF-8")
	assert.Contains(t, gotMsg, "line one<br>line two")
}

func TestEmailTransport_NoRecipients(t *testing.T) {
	transport := NewEmailTransport(config.NotificationConfig{SMTPServer: "smtp.example.com"})
	assert.Error(t, transport.Send(context.Background(), Alert{}))
}

func TestSlackTransport(t *testing.T) {
	var payload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewSlackTransport(srv.URL, "#cost-alerts", time.Second).
		Send(context.Background(), Alert{Body: "full body", ChatText: "short"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"text": "short", "channel": "#cost-alerts"}, payload)
}

func TestSlackTransport_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewSlackTransport(srv.URL, "#c", time.Second).Send(context.Background(), Alert{Body: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_payload")
}

func TestWebhookTransport(t *testing.T) {
	var events []string
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		events = append(events, r.Header.Get("X-CostOptimizer-Event"))
	}))
	defer ok.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	err := NewWebhookTransport([]string{ok.URL, broken.URL}, time.Second).
		Send(context.Background(), Alert{Event: EventCostSpike, Body: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.Equal(t, []string{"cost.spike"}, events)
}

func TestS3Transport(t *testing.T) {
	client := &fakeS3{}
	alert := Alert{
		Event:     EventDailyReport,
		Subject:   "Daily Cloud Cost Report - $1.00",
		Body:      "report",
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	require.NoError(t, NewS3Transport(client, "alerts").Send(context.Background(), alert))

	require.Len(t, client.inputs, 1)
	assert.Equal(t, "alerts", aws.ToString(client.inputs[0].Bucket))
	assert.Equal(t, "alerts/daily.report/2024-01-02T03-04-05.000Z.txt", aws.ToString(client.inputs[0].Key))
	assert.Equal(t, "report", client.bodies[0])
}
