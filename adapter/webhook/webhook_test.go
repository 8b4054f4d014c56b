package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/pithecene-io/joinery/adapter"
	"github.com/pithecene-io/joinery/iox"
)

func TestMain(m *testing.M) {
	adapter.BaseBackoff = 10 * time.Millisecond
	os.Exit(m.Run())
}

func parseEvent() *adapter.JoinCompletedEvent {
	return &adapter.JoinCompletedEvent{
		Version:     "0.3.0",
		EventType:   adapter.EventTypeJoinCompleted,
		Command:     "parse",
		JoinID:      "join-7f3a",
		Outcome:     adapter.OutcomeSuccess,
		StoragePath: "s3://decisions/datasets/joinery",
		Timestamp:   "2024-06-01T12:00:00Z",
		Examples:    1200,
		DurationMs:  830,
	}
}

// recorder captures the last request body and headers.
type recorder struct {
	mu      sync.Mutex
	body    []byte
	headers http.Header
	calls   atomic.Int32
}

func (r *recorder) handler(status func(n int32) int) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		n := r.calls.Add(1)
		body, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.body, r.headers = body, req.Header.Clone()
		r.mu.Unlock()
		w.WriteHeader(status(n))
	}
}

func always(code int) func(int32) int { return func(int32) int { return code } }

func newAdapter(t *testing.T, cfg Config) *Adapter {
	t.Helper()
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(iox.CloseFunc(a))
	return a
}

func TestPublish_BodyAndHeaders(t *testing.T) {
	rec := &recorder{}
	ts := httptest.NewServer(rec.handler(always(http.StatusAccepted)))
	defer ts.Close()

	a := newAdapter(t, Config{
		URL:     ts.URL,
		Headers: map[string]string{"Authorization": "Bearer tok"},
	})
	if err := a.Publish(t.Context(), parseEvent()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	var got adapter.JoinCompletedEvent
	if err := json.Unmarshal(rec.body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.JoinID != "join-7f3a" || got.Command != "parse" || got.Examples != 1200 {
		t.Errorf("body = %+v", got)
	}

	wantHeaders := map[string]string{
		"Content-Type":       "application/json",
		"Authorization":      "Bearer tok",
		HeaderEvent:          adapter.EventTypeJoinCompleted,
		HeaderIdempotencyKey: "parse:join-7f3a",
		HeaderSignature:      "",
	}
	for k, want := range wantHeaders {
		if got := rec.headers.Get(k); got != want {
			t.Errorf("header %s = %q, want %q", k, got, want)
		}
	}
}

func TestPublish_Signed(t *testing.T) {
	rec := &recorder{}
	ts := httptest.NewServer(rec.handler(always(http.StatusOK)))
	defer ts.Close()

	a := newAdapter(t, Config{URL: ts.URL, Secret: "s3cret"})
	if err := a.Publish(t.Context(), parseEvent()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if got, want := rec.headers.Get(HeaderSignature), Sign("s3cret", rec.body); got != want {
		t.Errorf("signature = %q, want %q", got, want)
	}
}

func TestSign(t *testing.T) {
	// HMAC-SHA256("key", "The quick brown fox jumps over the lazy dog")
	got := Sign("key", []byte("The quick brown fox jumps over the lazy dog"))
	want := "sha256=f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8"
	if got != want {
		t.Errorf("Sign() = %q, want %q", got, want)
	}
}

func TestPublish_StatusHandling(t *testing.T) {
	tests := []struct {
		name         string
		status       func(n int32) int
		retries      int
		wantErr      bool
		wantAttempts int32
	}{
		{"200", always(200), 3, false, 1},
		{"204", always(204), 3, false, 1},
		{"400 permanent", always(400), 3, true, 1},
		{"401 permanent", always(401), 3, true, 1},
		{"404 permanent", always(404), 3, true, 1},
		{"429 retried", always(429), 2, true, 3},
		{"500 retried", always(500), 2, true, 3},
		{"503 retried", always(503), 2, true, 3},
		{"recovers after 5xx", func(n int32) int {
			if n < 3 {
				return 502
			}
			return 200
		}, 3, false, 3},
		{"no retries", always(500), 0, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			ts := httptest.NewServer(rec.handler(tt.status))
			defer ts.Close()

			a := newAdapter(t, Config{URL: ts.URL, Retries: tt.retries, Timeout: 5 * time.Second})
			err := a.Publish(t.Context(), parseEvent())
			if (err != nil) != tt.wantErr {
				t.Errorf("Publish() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := rec.calls.Load(); got != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", got, tt.wantAttempts)
			}
		})
	}
}

func TestPublish_RetryAfter(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := newAdapter(t, Config{URL: ts.URL, Retries: 1})
	start := time.Now()
	if err := a.Publish(t.Context(), parseEvent()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("elapsed = %v, want at least the 1s Retry-After", elapsed)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"0", 0},
		{"-3", 0},
		{"3600", maxRetryAfter},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPublish_ContextCanceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := newAdapter(t, Config{URL: ts.URL, Timeout: 10 * time.Second})
	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	if err := a.Publish(ctx, parseEvent()); err == nil {
		t.Fatal("expected error on canceled context")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		wantErr     bool
		wantTimeout time.Duration
	}{
		{"missing url", Config{}, true, 0},
		{"negative retries", Config{URL: "http://example.com", Retries: -1}, true, 0},
		{"default timeout", Config{URL: "http://example.com"}, false, DefaultTimeout},
		{"explicit timeout", Config{URL: "http://example.com", Timeout: time.Second}, false, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && a.config.Timeout != tt.wantTimeout {
				t.Errorf("Timeout = %v, want %v", a.config.Timeout, tt.wantTimeout)
			}
		})
	}
}
