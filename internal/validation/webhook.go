package validation

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tjfontaine/uda/internal/core/domain"
	"github.com/tjfontaine/uda/internal/core/ports"
	"github.com/tjfontaine/uda/internal/pkg/safehttp"
)

// OnError selects what Webhook does once every attempt has failed.
type OnError string

const (
	// OnErrorStub falls back to the stub verdict (default).
	OnErrorStub OnError = "stub"
	// OnErrorFail returns the error, failing the validator stage.
	OnErrorFail OnError = "fail"
)

// CheckUnavailable is appended to the stub checks when the webhook could not be reached.
const CheckUnavailable = "webhook_unavailable"

// DefaultTimeout bounds a single webhook attempt.
const DefaultTimeout = 5 * time.Second

// DefaultBackoff is the wait before the first retry; it doubles per attempt.
const DefaultBackoff = 100 * time.Millisecond

// statusError is a non-2xx webhook response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("webhook returned status %d: %s", e.code, e.body)
}

// retryable reports whether err may succeed on another attempt. Client errors
// other than timeouts and rate limits will not.
func retryable(err error) bool {
	var se *statusError
	if !errors.As(err, &se) {
		return true
	}
	if se.code == http.StatusRequestTimeout || se.code == http.StatusTooManyRequests {
		return true
	}
	return se.code < 400 || se.code >= 500
}

// Webhook asks an external NLI service whether a draft is faithful.
//
//	POST <url>
//	{"draft_answer": "...", "evidence": [ ... ]}
//
// The service answers with {"faithful": bool, "checks": [...]}.
type Webhook struct {
	url     string
	onError OnError
	retries int
	backoff time.Duration
	headers map[string]string
	client  *http.Client
	logger  *slog.Logger
}

// WebhookConfig configures a webhook checker.
type WebhookConfig struct {
	URL     string
	Timeout time.Duration
	OnError OnError // "stub" or "fail" (default: stub)
	Retries int
	// Backoff is the wait before the first retry (default DefaultBackoff).
	Backoff time.Duration
	Headers map[string]string
	// BlockPrivate refuses to connect to loopback and private addresses.
	BlockPrivate bool
	// Client overrides the HTTP client. Its Timeout is left untouched.
	Client *http.Client
	Logger *slog.Logger
}

type checkRequest struct {
	DraftAnswer string                `json:"draft_answer"`
	Evidence    []domain.EvidenceItem `json:"evidence"`
}

// NewWebhook creates a new webhook checker.
func NewWebhook(cfg WebhookConfig) (*Webhook, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("validation webhook url cannot be empty")
	}

	onError := cfg.OnError
	switch onError {
	case "":
		onError = OnErrorStub
	case OnErrorStub, OnErrorFail:
	default:
		return nil, fmt.Errorf("invalid on_error %q (must be 'stub' or 'fail')", cfg.OnError)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := cfg.Client
	switch {
	case client != nil:
	case cfg.BlockPrivate:
		client = safehttp.NewClient(timeout)
	default:
		client = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Webhook{
		url:     cfg.URL,
		onError: onError,
		retries: max(cfg.Retries, 0),
		backoff: cmp.Or(cfg.Backoff, DefaultBackoff),
		headers: cfg.Headers,
		client:  client,
		logger:  logger,
	}, nil
}

// NewChecker returns a Webhook when cfg.URL is set and the Stub otherwise.
func NewChecker(cfg WebhookConfig) (ports.FaithfulnessChecker, error) {
	if cfg.URL == "" {
		return Stub{}, nil
	}
	return NewWebhook(cfg)
}

// Check implements ports.FaithfulnessChecker.
func (w *Webhook) Check(ctx context.Context, draft string, evidence []domain.EvidenceItem) (domain.ValidationReport, error) {
	if evidence == nil {
		evidence = []domain.EvidenceItem{}
	}
	in := checkRequest{DraftAnswer: draft, Evidence: evidence}

	var lastErr error
	wait := w.backoff
	for attempt := 0; attempt <= w.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return w.handleError(ctx, evidence, lastErr)
			case <-time.After(wait):
			}
			wait *= 2
		}

		report, err := w.doRequest(ctx, in)
		if err == nil {
			return report, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) {
			break
		}
	}

	return w.handleError(ctx, evidence, lastErr)
}

func (w *Webhook) doRequest(ctx context.Context, in checkRequest) (domain.ValidationReport, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return domain.ValidationReport{}, fmt.Errorf("marshal check request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return domain.ValidationReport{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return domain.ValidationReport{}, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ValidationReport{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.ValidationReport{}, &statusError{code: resp.StatusCode, body: string(respBody)}
	}

	var out struct {
		Faithful *bool    `json:"faithful"`
		Checks   []string `json:"checks"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return domain.ValidationReport{}, fmt.Errorf("unmarshal check response: %w", err)
	}
	if out.Faithful == nil {
		return domain.ValidationReport{}, fmt.Errorf("webhook response missing faithful")
	}
	if out.Checks == nil {
		out.Checks = []string{}
	}

	return domain.ValidationReport{Faithful: *out.Faithful, Checks: out.Checks}, nil
}

func (w *Webhook) handleError(ctx context.Context, evidence []domain.EvidenceItem, err error) (domain.ValidationReport, error) {
	if w.onError == OnErrorFail {
		return domain.ValidationReport{}, fmt.Errorf("validation webhook %s failed: %w", w.url, err)
	}

	w.logger.WarnContext(ctx, "validation webhook failed, using stub verdict",
		slog.String("url", w.url),
		slog.String("error", err.Error()))

	report, _ := Stub{}.Check(ctx, "", evidence)
	report.Checks = append(report.Checks, CheckUnavailable)
	return report, nil
}

var _ ports.FaithfulnessChecker = (*Webhook)(nil)
