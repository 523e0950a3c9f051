package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
}

func newTestClient(baseURL string) (*Client, *sleepRecorder) {
	rec := &sleepRecorder{}
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		apiBaseURL: baseURL,
		sleep:      rec.sleep,
	}, rec
}

func TestDeliverNoChannelConfigured(t *testing.T) {
	c, _ := newTestClient("http://unused")
	result := c.Deliver(context.Background(), "hello", ChannelConfig{})
	if result.OK {
		t.Fatal("expected failure without any channel configuration")
	}
	if result.Err == nil {
		t.Fatal("expected an error")
	}
}

func TestDeliverTokenModeSuccess(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"ok": true, "ts": "1700000000.000100"}`))
	}))
	defer server.Close()

	c, rec := newTestClient(server.URL)
	result := c.Deliver(context.Background(), "status update", ChannelConfig{
		Token:     "xoxb-test",
		ChannelID: "C123",
		ThreadTS:  "1699.0001",
	})

	if !result.OK {
		t.Fatalf("deliver failed: %v", result.Err)
	}
	if result.Timestamp != "1700000000.000100" {
		t.Errorf("timestamp = %q", result.Timestamp)
	}
	if gotAuth != "Bearer xoxb-test" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotPath != "/chat.postMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody["channel"] != "C123" || gotBody["text"] != "status update" || gotBody["thread_ts"] != "1699.0001" {
		t.Errorf("request body = %v", gotBody)
	}
	if len(rec.delays) != 0 {
		t.Errorf("no backoff expected on first-attempt success, got %v", rec.delays)
	}
}

func TestDeliverWebhookModeSuccess(t *testing.T) {
	var gotAuth string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	c, _ := newTestClient("http://unused")
	result := c.Deliver(context.Background(), "status update", ChannelConfig{
		WebhookURL: server.URL,
		ThreadTS:   "1699.0001",
	})

	if !result.OK {
		t.Fatalf("deliver failed: %v", result.Err)
	}
	if result.Timestamp != "" {
		t.Errorf("webhook delivery has no timestamp, got %q", result.Timestamp)
	}
	if gotAuth != "" {
		t.Errorf("webhook mode must not send Authorization, got %q", gotAuth)
	}
	if gotBody["text"] != "status update" || gotBody["thread_ts"] != "1699.0001" {
		t.Errorf("request body = %v", gotBody)
	}
}

func TestDeliverHonorsRetryAfter(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok": true, "ts": "1700000000.000200"}`))
	}))
	defer server.Close()

	c, rec := newTestClient(server.URL)
	result := c.Deliver(context.Background(), "hello", ChannelConfig{Token: "xoxb-test", ChannelID: "C123"})

	if !result.OK {
		t.Fatalf("deliver failed: %v", result.Err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if len(rec.delays) != 1 || rec.delays[0] != 2*time.Second {
		t.Errorf("delays = %v, want exactly the server-provided 2s", rec.delays)
	}
}

func TestDeliverRetriesAPIRateLimitWithBackoff(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Write([]byte(`{"ok": false, "error": "ratelimited"}`))
			return
		}
		w.Write([]byte(`{"ok": true, "ts": "1700000000.000300"}`))
	}))
	defer server.Close()

	c, rec := newTestClient(server.URL)
	result := c.Deliver(context.Background(), "hello", ChannelConfig{Token: "xoxb-test", ChannelID: "C123"})

	if !result.OK {
		t.Fatalf("deliver failed: %v", result.Err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	// No Retry-After header: exponential backoff from 1s plus jitter.
	if len(rec.delays) != 1 {
		t.Fatalf("delays = %v, want one backoff", rec.delays)
	}
	if rec.delays[0] < baseBackoff || rec.delays[0] >= baseBackoff+maxJitter {
		t.Errorf("delay %s outside [1s, 1.3s)", rec.delays[0])
	}
}

func TestDeliverTerminalAPIErrorNoRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Write([]byte(`{"ok": false, "error": "channel_not_found"}`))
	}))
	defer server.Close()

	c, rec := newTestClient(server.URL)
	result := c.Deliver(context.Background(), "hello", ChannelConfig{Token: "xoxb-test", ChannelID: "C123"})

	if result.OK {
		t.Fatal("expected failure")
	}
	if attempts != 1 {
		t.Errorf("terminal errors must not retry, attempts = %d", attempts)
	}
	if len(rec.delays) != 0 {
		t.Errorf("no backoff for terminal errors, got %v", rec.delays)
	}
	if !strings.Contains(result.Err.Error(), "channel_not_found") {
		t.Errorf("error should carry the API code: %v", result.Err)
	}
}

func TestDeliverServerErrorRetriesExhausted(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c, rec := newTestClient(server.URL)
	result := c.Deliver(context.Background(), "hello", ChannelConfig{Token: "xoxb-test", ChannelID: "C123"})

	if result.OK {
		t.Fatal("expected failure")
	}
	if attempts != maxAttempts {
		t.Errorf("attempts = %d, want %d", attempts, maxAttempts)
	}
	if len(rec.delays) != maxAttempts-1 {
		t.Errorf("delays = %v, want %d backoffs", rec.delays, maxAttempts-1)
	}
	if !strings.Contains(result.Err.Error(), "after 3 attempts") {
		t.Errorf("error should report exhausted retries: %v", result.Err)
	}
}

func TestDeliverWebhookRejectionTerminal(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("invalid_payload"))
	}))
	defer server.Close()

	c, _ := newTestClient("http://unused")
	result := c.Deliver(context.Background(), "hello", ChannelConfig{WebhookURL: server.URL})

	if result.OK {
		t.Fatal("expected failure")
	}
	if attempts != 1 {
		t.Errorf("4xx webhook responses must not retry, attempts = %d", attempts)
	}
}

func TestDeliverNetworkErrorRetries(t *testing.T) {
	// Closed server: every attempt fails at the transport layer.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	c, rec := newTestClient(server.URL)
	result := c.Deliver(context.Background(), "hello", ChannelConfig{Token: "xoxb-test", ChannelID: "C123"})

	if result.OK {
		t.Fatal("expected failure")
	}
	if len(rec.delays) != maxAttempts-1 {
		t.Errorf("delays = %v, want %d backoffs", rec.delays, maxAttempts-1)
	}
}

func TestBackoffDelayBounds(t *testing.T) {
	for attempt := 0; attempt < 3; attempt++ {
		base := baseBackoff << uint(attempt)
		for i := 0; i < 20; i++ {
			d := backoffDelay(attempt)
			if d < base || d >= base+maxJitter {
				t.Fatalf("attempt %d: delay %s outside [%s, %s)", attempt, d, base, base+maxJitter)
			}
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"2", 2 * time.Second},
		{"30", 30 * time.Second},
		{"", 0},
		{"soon", 0},
		{"-1", 0},
	}
	for _, tt := range tests {
		resp := &http.Response{Header: http.Header{}}
		if tt.header != "" {
			resp.Header.Set("Retry-After", tt.header)
		}
		if got := parseRetryAfter(resp); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %s, want %s", tt.header, got, tt.want)
		}
	}
}
