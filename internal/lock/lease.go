package lock

import "time"

// Lease is one mutual-exclusion row. The lock key is the primary key: the
// insert's uniqueness violation is the only signal that somebody else holds
// the lease, which is what makes two racing acquirers distinguishable.
type Lease struct {
	Key       string    `json:"key" gorm:"primaryKey;column:lock_key"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Lease) TableName() string {
	return "report_leases"
}
