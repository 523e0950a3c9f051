package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// SchemaVersion tags the payload shape; bump when fields change meaning.
const SchemaVersion = "status-report/v1"

// MaxItems caps every human-readable list in the payload.
const MaxItems = 3

// DoneSummary summarizes recently completed work over the window.
type DoneSummary struct {
	Count    int      `json:"count"`
	Examples []string `json:"examples"`
}

// RiskItem is one overdue or due-soon task. DueInHours is set only for
// due-soon items.
type RiskItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Assignee   *string `json:"assignee"`
	Priority   string  `json:"priority"`
	DueInHours *int    `json:"due_in_hours,omitempty"`
}

// AtRisk holds the truncated overdue and due-soon lists.
type AtRisk struct {
	Overdue []RiskItem `json:"overdue"`
	DueSoon []RiskItem `json:"due_soon"`
}

// OpenCounts are aggregates over the untruncated candidate sets.
type OpenCounts struct {
	Open    int `json:"open"`
	Overdue int `json:"overdue"`
}

// OwnerSuggestion proposes a next owner for an at-risk task.
type OwnerSuggestion struct {
	TaskID string `json:"task_id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// BusinessCalendar carries the business-day gate decision.
type BusinessCalendar struct {
	SkipPostToday bool `json:"skip_post_today"`
}

// Sanitization records which scrubbing passes ran over payload text.
type Sanitization struct {
	StripMentions bool `json:"strip_mentions"`
	StripURLs     bool `json:"strip_urls"`
	StripMarkdown bool `json:"strip_markdown"`
	RedactTokens  bool `json:"redact_tokens"`
}

// StatusPayload is the immutable snapshot of project health for one
// generation attempt. PayloadHash is a pure function of every other field;
// the builder computes it last and nothing mutates the payload afterwards.
type StatusPayload struct {
	Project          string            `json:"project"`
	ProjectID        string            `json:"project_id"`
	WindowHours      int               `json:"window_hours"`
	WindowStart      time.Time         `json:"window_start"`
	WindowEnd        time.Time         `json:"window_end"`
	StatusModel      string            `json:"status_model"`
	MovedDone        DoneSummary       `json:"moved_done"`
	AtRisk           AtRisk            `json:"at_risk"`
	OpenCounts       OpenCounts        `json:"open_counts"`
	SuggestedOwners  []OwnerSuggestion `json:"suggested_owners"`
	BusinessCalendar BusinessCalendar  `json:"business_calendar"`
	MentionPolicy    string            `json:"mention_policy"`
	MaxItems         int               `json:"max_items"`
	AllowedTaskIDs   []string          `json:"allowed_task_ids"`
	Sanitization     Sanitization      `json:"sanitization"`
	PayloadHash      string            `json:"payload_hash"`
}

// ComputeHash returns the SHA-256 hex digest of the payload serialized with
// deterministic key ordering, excluding the hash field itself. Equal field
// values always produce the same digest.
func (p *StatusPayload) ComputeHash() (string, error) {
	clone := *p
	clone.PayloadHash = ""

	raw, err := json.Marshal(&clone)
	if err != nil {
		return "", fmt.Errorf("failed to serialize payload: %w", err)
	}

	// Round-trip through a generic map: encoding/json emits map keys in
	// sorted order, which fixes the key order regardless of struct layout.
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("failed to canonicalize payload: %w", err)
	}
	delete(generic, "payload_hash")

	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("failed to serialize canonical payload: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// AllowsTaskID reports whether the given id survived truncation and may be
// referenced by generated text.
func (p *StatusPayload) AllowsTaskID(id string) bool {
	for _, allowed := range p.AllowedTaskIDs {
		if allowed == id {
			return true
		}
	}
	return false
}
