package domain

import (
	"time"

	"gorm.io/datatypes"
)

// DeliveryRecord is persisted once per successful delivery. It is the
// append-only join surface of the idempotency guard: the most recent record
// with the same (project_id, payload_hash) inside the dedupe window
// suppresses re-delivery.
type DeliveryRecord struct {
	ID          string         `json:"id" gorm:"primaryKey"`
	ProjectID   string         `json:"project_id" gorm:"index:idx_delivery_project_hash;not null"`
	PayloadHash string         `json:"payload_hash" gorm:"index:idx_delivery_project_hash;not null"`
	WindowStart time.Time      `json:"window_start"`
	WindowEnd   time.Time      `json:"window_end"`
	PostText    string         `json:"post_text" gorm:"type:text"`
	Payload     datatypes.JSON `json:"payload"`
	Method      string         `json:"method"`
	SlackTS     string         `json:"slack_ts,omitempty"`
	DeliveredAt time.Time      `json:"delivered_at" gorm:"index"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TableName specifies the table name for GORM
func (DeliveryRecord) TableName() string {
	return "delivery_records"
}
