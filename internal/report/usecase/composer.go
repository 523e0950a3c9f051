package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"unicode/utf8"

	projectdomain "statuspulse-backend/internal/project/domain"
	"statuspulse-backend/internal/report/domain"
	"statuspulse-backend/pkg/ai"
)

// Composer turns a StatusPayload into bounded report text. The LLM path is
// attempted first when a provider is configured and not disabled; any parse
// or guardrail failure discards the model output entirely and the
// deterministic template takes over. Compose never fails: the fallback is
// within bounds by construction.
type Composer struct {
	provider ai.Generator
	disabled bool
}

// NewComposer creates a new Composer. A nil provider means the LLM path is
// absent.
func NewComposer(provider ai.Generator, disabled bool) *Composer {
	return &Composer{
		provider: provider,
		disabled: disabled,
	}
}

// Compose produces the report post for the payload
func (c *Composer) Compose(ctx context.Context, payload *domain.StatusPayload) *domain.ComposedPost {
	if c.provider != nil && !c.disabled {
		if post, err := c.composeLLM(ctx, payload); err == nil {
			return post
		} else {
			log.Printf("[Composer] LLM path rejected for project %s: %v (using fallback)", payload.ProjectID, err)
		}
	}
	return c.composeFallback(payload)
}

// llmPost is the object the model is asked to return. Counts reported by
// the model are never trusted; everything is recomputed from post_text.
type llmPost struct {
	PostText        string   `json:"post_text"`
	IncludedTaskIDs []string `json:"included_task_ids"`
}

func (c *Composer) composeLLM(ctx context.Context, payload *domain.StatusPayload) (*domain.ComposedPost, error) {
	serialized, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload: %w", err)
	}

	raw, err := c.provider.Generate(ctx, buildPrompt(string(serialized)))
	if err != nil {
		return nil, fmt.Errorf("provider call failed: %w", err)
	}

	jsonText, ok := extractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	var parsed llmPost
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w", err)
	}

	if err := validateGuardrails(&parsed, payload); err != nil {
		return nil, err
	}

	included := parsed.IncludedTaskIDs
	if included == nil {
		included = []string{}
	}
	return &domain.ComposedPost{
		PostText:        parsed.PostText,
		IncludedTaskIDs: included,
		PolicyFlags: domain.PolicyFlags{
			MentionPolicy: payload.MentionPolicy,
			MaxLines:      domain.MaxPostLines,
			MaxBullets:    domain.MaxPostBullets,
		},
		Metrics: recomputeMetrics(parsed.PostText, domain.MethodLLM),
	}, nil
}

// validateGuardrails is the hard boundary against the model: id whitelist,
// recomputed length caps and no raw mentions. Any violation rejects the
// whole result; there is no partial acceptance.
func validateGuardrails(post *llmPost, payload *domain.StatusPayload) error {
	text := post.PostText
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("empty post text")
	}
	for _, id := range post.IncludedTaskIDs {
		if !payload.AllowsTaskID(id) {
			return fmt.Errorf("task id %q outside allowed set", id)
		}
	}
	if lines := countLines(text); lines > domain.MaxPostLines {
		return fmt.Errorf("line count %d exceeds %d", lines, domain.MaxPostLines)
	}
	if bullets := countBullets(text); bullets > domain.MaxPostBullets {
		return fmt.Errorf("bullet count %d exceeds %d", bullets, domain.MaxPostBullets)
	}
	if strings.Contains(text, "@") {
		return fmt.Errorf("post text contains a raw mention character")
	}
	return nil
}

// composeFallback renders the deterministic template: a completed-work line,
// an at-risk line, then up to three next-action bullets. Mechanically within
// every guardrail.
func (c *Composer) composeFallback(payload *domain.StatusPayload) *domain.ComposedPost {
	policy := projectdomain.MentionPolicy(payload.MentionPolicy)
	var lines []string
	included := []string{}

	// Line 1: completed work.
	if payload.MovedDone.Count == 0 {
		lines = append(lines, fmt.Sprintf("No completed tasks in the last %dh.", payload.WindowHours))
	} else {
		examples := payload.MovedDone.Examples
		if len(examples) > 2 {
			examples = examples[:2]
		}
		noun := "tasks"
		if payload.MovedDone.Count == 1 {
			noun = "task"
		}
		line := fmt.Sprintf("%d %s completed in the last %dh", payload.MovedDone.Count, noun, payload.WindowHours)
		if len(examples) > 0 {
			line += fmt.Sprintf(" (e.g. %s)", strings.Join(examples, "; "))
		}
		lines = append(lines, line+".")
	}

	// Line 2: at-risk items, overdue first.
	riskItems := append(append([]domain.RiskItem{}, payload.AtRisk.Overdue...), payload.AtRisk.DueSoon...)
	if len(riskItems) > domain.MaxItems {
		riskItems = riskItems[:domain.MaxItems]
	}
	if len(riskItems) == 0 {
		lines = append(lines, "At risk: None")
	} else {
		var parts []string
		for _, item := range riskItems {
			parts = append(parts, fmt.Sprintf("%s (%s)", item.Title, formatAssignee(item.Assignee, policy)))
			included = append(included, item.ID)
		}
		lines = append(lines, "At risk: "+strings.Join(parts, ", "))
	}

	// Next actions: suggestion bullets, or two generic ones.
	suggestions := payload.SuggestedOwners
	if len(suggestions) > domain.MaxPostBullets {
		suggestions = suggestions[:domain.MaxPostBullets]
	}
	if len(suggestions) == 0 {
		lines = append(lines,
			"- Review overdue items and confirm owners",
			"- Update due dates that are no longer realistic")
	} else {
		titles := riskTitlesByID(payload)
		for _, s := range suggestions {
			subject := titles[s.TaskID]
			if subject == "" {
				subject = "an at-risk task"
			}
			lines = append(lines, fmt.Sprintf("- Ask %s to pick up %s (%s)", formatName(s.Name, policy), subject, s.Reason))
			included = append(included, s.TaskID)
		}
	}

	text := strings.Join(lines, "\n")
	return &domain.ComposedPost{
		PostText:        text,
		IncludedTaskIDs: dedupeIDs(included),
		PolicyFlags: domain.PolicyFlags{
			MentionPolicy: payload.MentionPolicy,
			MaxLines:      domain.MaxPostLines,
			MaxBullets:    domain.MaxPostBullets,
		},
		Metrics: recomputeMetrics(text, domain.MethodFallback),
	}
}

func formatAssignee(name *string, policy projectdomain.MentionPolicy) string {
	if name == nil || *name == "" {
		return "unassigned"
	}
	return formatName(*name, policy)
}

func formatName(name string, policy projectdomain.MentionPolicy) string {
	if policy == projectdomain.MentionPolicyNamesBold {
		return "*" + name + "*"
	}
	return name
}

func riskTitlesByID(payload *domain.StatusPayload) map[string]string {
	titles := make(map[string]string)
	for _, item := range payload.AtRisk.Overdue {
		titles[item.ID] = item.Title
	}
	for _, item := range payload.AtRisk.DueSoon {
		titles[item.ID] = item.Title
	}
	return titles
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := []string{}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func recomputeMetrics(text, method string) domain.PostMetrics {
	return domain.PostMetrics{
		CompositionMethod: method,
		CharCount:         utf8.RuneCountInString(text),
		LineCount:         countLines(text),
		BulletCount:       countBullets(text),
	}
}

func countLines(text string) int {
	trimmed := strings.TrimRight(text, "\n")
	if trimmed == "" {
		return 0
	}
	return len(strings.Split(trimmed, "\n"))
}

func countBullets(text string) int {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "- ") || strings.HasPrefix(stripped, "* ") || strings.HasPrefix(stripped, "• ") {
			count++
		}
	}
	return count
}

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// extractJSON pulls a JSON object out of free-form model prose: a fenced
// block wins, otherwise the first balanced top-level object.
func extractJSON(text string) (string, bool) {
	if m := fencedJSONPattern.FindStringSubmatch(text); m != nil {
		return m[1], true
	}

	start := strings.Index(text, "{")
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func buildPrompt(payloadJSON string) string {
	return fmt.Sprintf(`You are a project status assistant. Write a short Slack status post from the JSON snapshot below.

RULES:
- Respond with ONLY a JSON object: {"post_text": "...", "included_task_ids": ["..."]}
- post_text: at most 8 lines and at most 3 bullet lines (bullets start with "- ")
- Line 1 summarizes completed work, line 2 lists at-risk items, then next-action bullets
- Mention a task only if its id is in allowed_task_ids, and list every id you used in included_task_ids
- Never use the @ character
- Honor mention_policy: wrap names in * for names_bold, plain names otherwise

SNAPSHOT:
%s

JSON OUTPUT:`, payloadJSON)
}
