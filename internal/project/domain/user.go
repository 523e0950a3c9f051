package domain

import "time"

// User is the read model for a project member. Only name and active flag are
// consumed here (assignee rendering and owner suggestions).
type User struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	Active    bool      `json:"active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
}
