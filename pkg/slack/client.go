package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultAPIBaseURL = "https://slack.com/api"
	maxAttempts       = 3
	baseBackoff       = 1 * time.Second
	maxJitter         = 300 * time.Millisecond
)

// ChannelConfig selects the delivery mode: webhook when WebhookURL is set,
// otherwise an authenticated chat.postMessage call to ChannelID.
type ChannelConfig struct {
	WebhookURL string
	Token      string
	ChannelID  string
	ThreadTS   string
}

// Result is the terminal outcome of a delivery attempt sequence. The client
// never panics or leaks errors past this contract; exhausted retries produce
// OK=false with Err set.
type Result struct {
	OK        bool
	Timestamp string
	Err       error
}

// Client posts composed report text to Slack
type Client struct {
	httpClient *http.Client
	apiBaseURL string
	sleep      func(time.Duration)
}

// NewClient creates a Slack delivery client
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		apiBaseURL: defaultAPIBaseURL,
		sleep:      time.Sleep,
	}
}

// Deliver posts text to the configured channel with up to three attempts.
// Rate-limit responses honor a server-provided Retry-After; other transient
// failures back off exponentially from a 1s base with random jitter.
func (c *Client) Deliver(ctx context.Context, text string, ch ChannelConfig) Result {
	if ch.WebhookURL == "" && (ch.Token == "" || ch.ChannelID == "") {
		return Result{Err: fmt.Errorf("no delivery channel configured")}
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			log.Printf("[Slack] Retry attempt %d/%d", attempt+1, maxAttempts)
		}

		var ts string
		var err error
		var retryAfter time.Duration
		var retryable bool

		if ch.WebhookURL != "" {
			err, retryAfter, retryable = c.postWebhook(ctx, ch, text)
		} else {
			ts, err, retryAfter, retryable = c.postMessage(ctx, ch, text)
		}

		if err == nil {
			return Result{OK: true, Timestamp: ts}
		}
		lastErr = err
		if !retryable {
			return Result{Err: err}
		}
		if attempt == maxAttempts-1 {
			break
		}

		delay := backoffDelay(attempt)
		if retryAfter > 0 {
			delay = retryAfter
		}
		log.Printf("[Slack] Transient delivery failure: %v (retrying in %s)", err, delay)
		c.sleep(delay)
	}

	return Result{Err: fmt.Errorf("delivery failed after %d attempts: %w", maxAttempts, lastErr)}
}

// postWebhook fires the message at an incoming-webhook URL. Slack answers a
// plain "ok" body with no timestamp.
func (c *Client) postWebhook(ctx context.Context, ch ChannelConfig, text string) (err error, retryAfter time.Duration, retryable bool) {
	payload := map[string]string{"text": text}
	if ch.ThreadTS != "" {
		payload["thread_ts"] = ch.ThreadTS
	}

	resp, body, err := c.post(ctx, ch.WebhookURL, "", payload)
	if err != nil {
		return err, 0, true
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil, 0, false
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("webhook rate limited (%d)", resp.StatusCode), parseRetryAfter(resp), true
	case resp.StatusCode >= 500:
		return fmt.Errorf("webhook server error (%d): %s", resp.StatusCode, body), 0, true
	default:
		return fmt.Errorf("webhook rejected (%d): %s", resp.StatusCode, body), 0, false
	}
}

// postMessage calls chat.postMessage with the bot token and returns the
// message timestamp on success.
func (c *Client) postMessage(ctx context.Context, ch ChannelConfig, text string) (ts string, err error, retryAfter time.Duration, retryable bool) {
	payload := map[string]string{
		"channel": ch.ChannelID,
		"text":    text,
	}
	if ch.ThreadTS != "" {
		payload["thread_ts"] = ch.ThreadTS
	}

	resp, body, err := c.post(ctx, c.apiBaseURL+"/chat.postMessage", ch.Token, payload)
	if err != nil {
		return "", err, 0, true
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("slack rate limited (%d)", resp.StatusCode), parseRetryAfter(resp), true
	}
	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("slack server error (%d): %s", resp.StatusCode, body), 0, true
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("slack API error (%d): %s", resp.StatusCode, body), 0, false
	}

	var result struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return "", fmt.Errorf("failed to parse slack response: %w", err), 0, false
	}
	if !result.OK {
		// rate_limited is the provider's retryable error code; everything
		// else (invalid_auth, channel_not_found, ...) is terminal.
		if result.Error == "rate_limited" || result.Error == "ratelimited" {
			return "", fmt.Errorf("slack rate limited: %s", result.Error), parseRetryAfter(resp), true
		}
		return "", fmt.Errorf("slack API error: %s", result.Error), 0, false
	}

	return result.TS, nil, 0, false
}

func (c *Client) post(ctx context.Context, url, token string, payload map[string]string) (*http.Response, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("slack request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}
	return resp, string(respBody), nil
}

func parseRetryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func backoffDelay(attempt int) time.Duration {
	delay := baseBackoff << uint(attempt)
	return delay + time.Duration(rand.Int63n(int64(maxJitter)))
}
