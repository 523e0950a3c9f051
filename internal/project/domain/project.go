package domain

import "time"

// MentionPolicy controls how assignee names are rendered in delivered posts
type MentionPolicy string

const (
	MentionPolicyNone      MentionPolicy = "no_mentions"
	MentionPolicyNamesBold MentionPolicy = "names_bold"
)

// Project is the read model for a project eligible for status reporting.
// This service never creates or mutates projects; they are owned by the
// upstream project-management system.
type Project struct {
	ID               string        `json:"id" gorm:"primaryKey"`
	Name             string        `json:"name" gorm:"not null"`
	Timezone         string        `json:"timezone"` // IANA name, empty means UTC
	BusinessDaysOnly bool          `json:"business_days_only" gorm:"default:false"`
	ReportingEnabled bool          `json:"reporting_enabled" gorm:"default:false;index"`
	MentionPolicy    MentionPolicy `json:"mention_policy" gorm:"default:no_mentions"`
	SlackChannelID   string        `json:"slack_channel_id"`
	SlackWebhookURL  string        `json:"-"` // never serialized, may embed a secret
	SlackThreadTS    string        `json:"slack_thread_ts,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// ComponentOwner maps a project component to its default owner, used as the
// last owner-suggestion rule when neither assignee nor recent actor applies.
type ComponentOwner struct {
	ID        string `json:"id" gorm:"primaryKey"`
	ProjectID string `json:"project_id" gorm:"index:idx_component_owner,unique"`
	Component string `json:"component" gorm:"index:idx_component_owner,unique"`
	UserID    string `json:"user_id" gorm:"not null"`
}
