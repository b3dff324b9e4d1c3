package dlq

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tjfontaine/uda/internal/core/domain"
)

func openTemp(t *testing.T) *Queue {
	t.Helper()
	q, err := Open(filepath.Join(t.TempDir(), "storage", DefaultFile))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { q.Close() })
	return q
}

func readAll(t *testing.T, q *Queue) []Record {
	t.Helper()
	var out []Record
	for rec, err := range q.Stream(context.Background()) {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		out = append(out, rec)
	}
	return out
}

func TestOpen_CreatesFile(t *testing.T) {
	q := openTemp(t)
	info, err := os.Stat(q.Path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("size = %d, want 0", info.Size())
	}
	if got := readAll(t, q); len(got) != 0 {
		t.Errorf("expected empty stream, got %v", got)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestEnqueue_Stream(t *testing.T) {
	q := openTemp(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := q.Enqueue(ctx, map[string]any{"n": i, "query": fmt.Sprintf("q%d", i)}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	want := []Record{
		{"n": float64(0), "query": "q0"},
		{"n": float64(1), "query": "q1"},
		{"n": float64(2), "query": "q2"},
	}
	if diff := cmp.Diff(want, readAll(t, q)); diff != "" {
		t.Errorf("stream mismatch (-want +got):\n%s", diff)
	}
	// restartable
	if diff := cmp.Diff(want, readAll(t, q)); diff != "" {
		t.Errorf("second stream mismatch (-want +got):\n%s", diff)
	}

	data, err := os.ReadFile(q.Path())
	if err != nil {
		t.Fatal(err)
	}
	if data[len(data)-1] != '\n' {
		t.Error("file must end with a newline")
	}
}

func TestEnqueue_RejectsNonObject(t *testing.T) {
	q := openTemp(t)
	for _, item := range []any{"text", 42, []int{1}} {
		if err := q.Enqueue(context.Background(), item); !errors.Is(err, ErrNotObject) {
			t.Errorf("Enqueue(%v) error = %v, want ErrNotObject", item, err)
		}
	}
	if err := q.Enqueue(context.Background(), make(chan int)); err == nil {
		t.Error("expected marshal error")
	}
}

func TestEnqueue_AfterClose(t *testing.T) {
	q := openTemp(t)
	q.Close()
	if err := q.Enqueue(context.Background(), map[string]any{"a": 1}); !errors.Is(err, os.ErrClosed) {
		t.Errorf("expected os.ErrClosed, got %v", err)
	}
}

func TestEnqueue_CanceledContext(t *testing.T) {
	q := openTemp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Enqueue(ctx, map[string]any{"a": 1}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStream_SkipsBlankAndPartialLines(t *testing.T) {
	q := openTemp(t)
	content := "{\"a\":1}\n\n   \n{\"a\":2}\n{\"a\":3"
	if err := os.WriteFile(q.Path(), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	want := []Record{{"a": float64(1)}, {"a": float64(2)}}
	if diff := cmp.Diff(want, readAll(t, q)); diff != "" {
		t.Errorf("stream mismatch (-want +got):\n%s", diff)
	}
}

func TestStream_MalformedLine(t *testing.T) {
	q := openTemp(t)
	if err := os.WriteFile(q.Path(), []byte("{\"a\":1}\nnot json\n{\"a\":2}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var recs []Record
	var errs int
	for rec, err := range q.Stream(context.Background()) {
		if err != nil {
			errs++
			continue
		}
		recs = append(recs, rec)
	}
	if errs != 1 || len(recs) != 2 {
		t.Errorf("got %d records and %d errors, want 2 and 1", len(recs), errs)
	}

	got, err := Collect(context.Background(), q, 0)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Collect returned %d records, want 2", len(got))
	}
}

func TestStream_EarlyBreak(t *testing.T) {
	q := openTemp(t)
	for i := 0; i < 5; i++ {
		q.Enqueue(context.Background(), map[string]any{"n": i})
	}

	got, err := Collect(context.Background(), q, 2)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestEnqueue_Concurrent(t *testing.T) {
	q := openTemp(t)
	const writers, perWriter = 8, 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if err := q.Enqueue(context.Background(), map[string]any{"w": w, "i": i, "pad": fmt.Sprintf("%0512d", i)}); err != nil {
					t.Errorf("Enqueue: %v", err)
				}
			}
		}(w)
	}

	// A reader running alongside the writers only ever sees whole records.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, err := range q.Stream(context.Background()) {
			if err != nil {
				t.Errorf("concurrent stream error: %v", err)
			}
		}
	}()

	wg.Wait()
	<-done

	if got := readAll(t, q); len(got) != writers*perWriter {
		t.Errorf("records = %d, want %d", len(got), writers*perWriter)
	}
}

func TestNewEnvelope(t *testing.T) {
	st := domain.State{
		UserQuery:         "unknown thing",
		DraftAnswer:       "I don't know",
		Uncertainty:       &domain.Uncertainty{Overall: 1.2, Spans: []domain.Span{{Start: 0, End: 3, Entropy: 1.2}}},
		ValidationReports: &domain.ValidationReport{Faithful: false, Checks: []string{"stub"}},
		Decision:          domain.DecisionDLQ,
		AuditTrail:        domain.AuditTrail{domain.NewAuditRecord("router", "intent", "lookup")},
	}

	env := NewEnvelope("run-1", st)
	if env.ID == "" || env.CreatedAt.IsZero() {
		t.Errorf("missing id or timestamp: %+v", env)
	}
	if env.ReasonCode != ReasonUnfaithful {
		t.Errorf("ReasonCode = %q, want %q", env.ReasonCode, ReasonUnfaithful)
	}
	if env.Query != "unknown thing" || env.Decision != domain.DecisionDLQ || env.RunID != "run-1" {
		t.Errorf("unexpected envelope: %+v", env)
	}
	if env.Artifacts.Citations == nil || len(env.Artifacts.AuditTrail) != 1 {
		t.Errorf("unexpected artifacts: %+v", env.Artifacts)
	}

	q := openTemp(t)
	if err := q.Enqueue(context.Background(), env); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	recs := readAll(t, q)
	if len(recs) != 1 || recs[0]["reason_code"] != ReasonUnfaithful || recs[0]["id"] != env.ID {
		t.Errorf("unexpected record: %v", recs)
	}
	art, _ := recs[0]["artifacts"].(map[string]any)
	trail, _ := art["audit_trail"].([]any)
	if len(trail) != 1 || trail[0].(map[string]any)["node"] != "router" {
		t.Errorf("audit trail not flattened: %v", art["audit_trail"])
	}
}

func TestReasonCode(t *testing.T) {
	faithful := domain.State{ValidationReports: &domain.ValidationReport{Faithful: true}}
	if got := ReasonCode(faithful); got != ReasonHighUncertainty {
		t.Errorf("ReasonCode = %q, want %q", got, ReasonHighUncertainty)
	}
	if got := ReasonCode(domain.State{}); got != ReasonUnfaithful {
		t.Errorf("ReasonCode = %q, want %q", got, ReasonUnfaithful)
	}
}
