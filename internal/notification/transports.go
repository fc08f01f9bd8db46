package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/costoptimizer/backend/internal/config"
)

// SendMailFunc matches smtp.SendMail.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailTransport sends alerts as HTML mail through an SMTP relay.
type EmailTransport struct {
	addr       string
	host       string
	username   string
	password   string
	from       string
	recipients []string
	sendMail   SendMailFunc
}

// NewEmailTransport creates an SMTP transport from cfg.
func NewEmailTransport(cfg config.NotificationConfig) *EmailTransport {
	return &EmailTransport{
		addr:       fmt.Sprintf("%s:%d", cfg.SMTPServer, cfg.SMTPPort),
		host:       cfg.SMTPServer,
		username:   cfg.SMTPUsername,
		password:   cfg.SMTPPassword,
		from:       cfg.SMTPFrom,
		recipients: cfg.AlertEmails,
		sendMail:   smtp.SendMail,
	}
}

// WithSendMail replaces the SMTP send function.
func (t *EmailTransport) WithSendMail(fn SendMailFunc) *EmailTransport {
	t.sendMail = fn
	return t
}

func (t *EmailTransport) Name() string { return "email" }

func (t *EmailTransport) Send(_ context.Context, alert Alert) error {
	if len(t.recipients) == 0 {
		return fmt.Errorf("no alert recipients configured")
	}

	var auth smtp.Auth
	if t.username != "" {
		auth = smtp.PlainAuth("", t.username, t.password, t.host)
	}

	if err := t.sendMail(t.addr, auth, t.from, t.recipients, t.message(alert)); err != nil {
		return fmt.Errorf("email send failed: %w", err)
	}
	return nil
}

func (t *EmailTransport) message(alert Alert) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", t.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(t.recipients, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", alert.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", alert.Timestamp.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(htmlBody(alert.Body))
	b.WriteString("\r\n")
	return b.Bytes()
}

// SlackTransport posts alerts to a chat incoming-webhook.
type SlackTransport struct {
	url        string
	channel    string
	httpClient *http.Client
}

// NewSlackTransport creates a chat webhook transport.
func NewSlackTransport(url, channel string, timeout time.Duration) *SlackTransport {
	return &SlackTransport{
		url:        url,
		channel:    channel,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (t *SlackTransport) Name() string { return "slack" }

func (t *SlackTransport) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(map[string]string{
		"text":    alert.chatText(),
		"channel": t.channel,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// WebhookTransport posts the alert as JSON to every configured URL.
type WebhookTransport struct {
	urls       []string
	httpClient *http.Client
}

// NewWebhookTransport creates a generic webhook transport.
func NewWebhookTransport(urls []string, timeout time.Duration) *WebhookTransport {
	return &WebhookTransport{
		urls:       urls,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (t *WebhookTransport) Name() string { return "webhook" }

func (t *WebhookTransport) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	var errs []string
	for _, webhookURL := range t.urls {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-CostOptimizer-Event", string(alert.Event))

		resp, err := t.httpClient.Do(req)
		if err != nil {
			errs = append(errs, fmt.Sprintf("webhook %s: %v", webhookURL, err))
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 300 {
			errs = append(errs, fmt.Sprintf("webhook %s: status %d", webhookURL, resp.StatusCode))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("webhook errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// PutObjectAPI is the subset of the S3 client used by the archive.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Transport archives every alert as a text object.
type S3Transport struct {
	client PutObjectAPI
	bucket string
}

// NewS3Transport creates an archive transport writing to bucket.
func NewS3Transport(client PutObjectAPI, bucket string) *S3Transport {
	return &S3Transport{client: client, bucket: bucket}
}

func (t *S3Transport) Name() string { return "s3-archive" }

func (t *S3Transport) Send(ctx context.Context, alert Alert) error {
	_, err := t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(t.bucket),
		Key:         aws.String(ArchiveKey(alert)),
		Body:        strings.NewReader(alert.Body),
		ContentType: aws.String("text/plain; charset=utf-8"),
		Metadata:    map[string]string{"subject": alert.Subject},
	})
	if err != nil {
		return fmt.Errorf("archive alert: %w", err)
	}
	return nil
}

// ArchiveKey returns the object key of an archived alert.
func ArchiveKey(alert Alert) string {
	return fmt.Sprintf("alerts/%s/%s.txt", alert.Event, alert.Timestamp.UTC().Format("2006-01-02T15-04-05.000Z"))
}
