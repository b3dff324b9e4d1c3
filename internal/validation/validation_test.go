package validation

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tjfontaine/uda/internal/core/domain"
	"github.com/tjfontaine/uda/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var evidence = []domain.EvidenceItem{{DocID: "doc-1", Text: "grounding"}}

func TestStub_Check(t *testing.T) {
	tests := []struct {
		name     string
		evidence []domain.EvidenceItem
		want     domain.ValidationReport
	}{
		{name: "with evidence", evidence: evidence, want: domain.ValidationReport{Faithful: true, Checks: []string{"stub"}}},
		{name: "no evidence", evidence: nil, want: domain.ValidationReport{Faithful: false, Checks: []string{"stub"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Stub{}.Check(context.Background(), "draft", tt.evidence)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Check() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWebhook_Check(t *testing.T) {
	var got checkRequest
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Review-Queue")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"faithful":false,"checks":["nli:neutral"]}`))
	}))
	defer srv.Close()

	wh, err := NewWebhook(WebhookConfig{URL: srv.URL, Headers: map[string]string{"X-Review-Queue": "uda-ops"}})
	if err != nil {
		t.Fatalf("NewWebhook: %v", err)
	}

	report, err := wh.Check(context.Background(), "the draft", evidence)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(domain.ValidationReport{Faithful: false, Checks: []string{"nli:neutral"}}, report); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if got.DraftAnswer != "the draft" || len(got.Evidence) != 1 {
		t.Errorf("unexpected request body: %+v", got)
	}
	if gotHeader != "uda-ops" {
		t.Errorf("X-Review-Queue = %q, want uda-ops", gotHeader)
	}
}

func TestWebhook_Retries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"faithful":true}`))
	}))
	defer srv.Close()

	wh, err := NewWebhook(WebhookConfig{URL: srv.URL, Retries: 2, OnError: OnErrorFail})
	if err != nil {
		t.Fatalf("NewWebhook: %v", err)
	}

	report, err := wh.Check(context.Background(), "d", evidence)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Faithful || report.Checks == nil {
		t.Errorf("unexpected report: %+v", report)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestWebhook_RetryPolicy(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		{name: "bad request is final", status: http.StatusBadRequest, wantCalls: 1},
		{name: "unauthorized is final", status: http.StatusUnauthorized, wantCalls: 1},
		{name: "rate limited is retried", status: http.StatusTooManyRequests, wantCalls: 3},
		{name: "server error is retried", status: http.StatusBadGateway, wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				http.Error(w, "no", tt.status)
			}))
			defer srv.Close()

			wh, err := NewWebhook(WebhookConfig{URL: srv.URL, Retries: 2, Backoff: time.Millisecond, OnError: OnErrorFail})
			if err != nil {
				t.Fatalf("NewWebhook: %v", err)
			}
			if _, err := wh.Check(context.Background(), "d", evidence); err == nil {
				t.Error("expected error")
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestWebhook_BackoffBetweenAttempts(t *testing.T) {
	var (
		mu    sync.Mutex
		times []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		times = append(times, time.Now())
		mu.Unlock()
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	const backoff = 30 * time.Millisecond
	wh, err := NewWebhook(WebhookConfig{URL: srv.URL, Retries: 2, Backoff: backoff, OnError: OnErrorFail})
	if err != nil {
		t.Fatalf("NewWebhook: %v", err)
	}
	wh.Check(context.Background(), "d", evidence)

	mu.Lock()
	defer mu.Unlock()
	if len(times) != 3 {
		t.Fatalf("attempts = %d, want 3", len(times))
	}
	if gap := times[1].Sub(times[0]); gap < backoff {
		t.Errorf("first retry after %v, want >= %v", gap, backoff)
	}
	if gap := times[2].Sub(times[1]); gap < 2*backoff {
		t.Errorf("second retry after %v, want >= %v", gap, 2*backoff)
	}
}

func TestWebhook_BackoffHonoursCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	wh, err := NewWebhook(WebhookConfig{URL: srv.URL, Retries: 5, Backoff: time.Hour, OnError: OnErrorFail})
	if err != nil {
		t.Fatalf("NewWebhook: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := wh.Check(ctx, "d", evidence); err == nil {
		t.Error("expected error")
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("backoff ignored cancellation, took %v", time.Since(start))
	}
}

func TestWebhook_OnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	t.Run("stub fallback", func(t *testing.T) {
		wh, err := NewWebhook(WebhookConfig{URL: srv.URL, Logger: quietLogger()})
		if err != nil {
			t.Fatalf("NewWebhook: %v", err)
		}
		report, err := wh.Check(context.Background(), "d", evidence)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := domain.ValidationReport{Faithful: true, Checks: []string{CheckStub, CheckUnavailable}}
		if diff := cmp.Diff(want, report); diff != "" {
			t.Errorf("report mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("fail", func(t *testing.T) {
		wh, err := NewWebhook(WebhookConfig{URL: srv.URL, OnError: OnErrorFail})
		if err != nil {
			t.Fatalf("NewWebhook: %v", err)
		}
		if _, err := wh.Check(context.Background(), "d", evidence); err == nil {
			t.Error("expected error")
		}
	})
}

func TestWebhook_BlockPrivate(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"faithful":true,"checks":[]}`))
	}))
	defer srv.Close()

	wh, err := NewWebhook(WebhookConfig{URL: srv.URL, OnError: OnErrorFail, BlockPrivate: true})
	if err != nil {
		t.Fatalf("NewWebhook: %v", err)
	}
	if _, err := wh.Check(context.Background(), "d", evidence); err == nil {
		t.Error("expected loopback webhook to be refused")
	}
	if hits.Load() != 0 {
		t.Errorf("server saw %d requests, want 0", hits.Load())
	}
}

func TestWebhook_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"checks":["no verdict"]}`))
	}))
	defer srv.Close()

	wh, _ := NewWebhook(WebhookConfig{URL: srv.URL, OnError: OnErrorFail})
	if _, err := wh.Check(context.Background(), "d", evidence); err == nil {
		t.Error("expected error for missing faithful")
	}
}

func TestWebhook_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	wh, _ := NewWebhook(WebhookConfig{URL: srv.URL, Timeout: 50 * time.Millisecond, OnError: OnErrorFail})
	start := time.Now()
	if _, err := wh.Check(context.Background(), "d", evidence); err == nil {
		t.Error("expected timeout error")
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("timeout not enforced, took %v", time.Since(start))
	}
}

func TestNewWebhook_Validation(t *testing.T) {
	if _, err := NewWebhook(WebhookConfig{}); err == nil {
		t.Error("expected error for empty url")
	}
	if _, err := NewWebhook(WebhookConfig{URL: "http://x", OnError: "allow"}); err == nil {
		t.Error("expected error for invalid on_error")
	}
}

func TestNewChecker(t *testing.T) {
	c, err := NewChecker(WebhookConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.(Stub); !ok {
		t.Errorf("expected Stub, got %T", c)
	}

	c, err = NewChecker(WebhookConfig{URL: "http://nli"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.(*Webhook); !ok {
		t.Errorf("expected *Webhook, got %T", c)
	}
}

func TestWebhook_Replay(t *testing.T) {
	r := testutil.NewVCRRecorder(t, "nli_check")

	wh, err := NewWebhook(WebhookConfig{
		URL:     "http://nli.internal:8081/v1/faithfulness",
		Client:  testutil.VCRHTTPClient(r),
		OnError: OnErrorFail,
	})
	if err != nil {
		t.Fatalf("NewWebhook: %v", err)
	}

	grounded := []domain.EvidenceItem{{
		DocID:        "doc-1",
		Heading:      "UDA Overview",
		Text:         "Universal Data Assistant provides precise, cited answers using RAG.",
		SourceURI:    "internal://docs/uda/overview.md",
		SecurityTags: []string{"public"},
		Score:        1,
	}}
	draft := "Q: what is uda\nA (grounded):\n- Universal Data Assistant provides precise, cited answers using RAG."

	report, err := wh.Check(context.Background(), draft, grounded)
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	want := domain.ValidationReport{Faithful: true, Checks: []string{"nli:entailment", "coverage:1.00"}}
	if diff := cmp.Diff(want, report); diff != "" {
		t.Errorf("first report mismatch (-want +got):\n%s", diff)
	}

	report, err = wh.Check(context.Background(), "UDA was founded in 1887.", nil)
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	want = domain.ValidationReport{Faithful: false, Checks: []string{"nli:contradiction"}}
	if diff := cmp.Diff(want, report); diff != "" {
		t.Errorf("second report mismatch (-want +got):\n%s", diff)
	}
}
