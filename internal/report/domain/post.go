package domain

// Composition methods
const (
	MethodLLM      = "llm"
	MethodFallback = "fallback"
)

// Hard caps on generated report text. The fallback template satisfies them
// by construction; LLM output is rejected when it exceeds them.
const (
	MaxPostLines   = 8
	MaxPostBullets = 3
)

// PolicyFlags records the policy the post was generated under.
type PolicyFlags struct {
	MentionPolicy string `json:"mention_policy"`
	MaxLines      int    `json:"max_lines"`
	MaxBullets    int    `json:"max_bullets"`
}

// PostMetrics are always recomputed from the final text, never copied from a
// model response.
type PostMetrics struct {
	CompositionMethod string `json:"composition_method"`
	CharCount         int    `json:"char_count"`
	LineCount         int    `json:"line_count"`
	BulletCount       int    `json:"bullet_count"`
}

// ComposedPost is the bounded report text derived from a StatusPayload.
// IncludedTaskIDs is always a subset of the payload's allowed-id set.
type ComposedPost struct {
	PostText        string      `json:"post_text"`
	IncludedTaskIDs []string    `json:"included_task_ids"`
	PolicyFlags     PolicyFlags `json:"policy_flags"`
	Metrics         PostMetrics `json:"metrics"`
}
