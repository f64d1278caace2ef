package models

import "time"

// WaitlistRecord is one accepted waitlist signup. Email is stored exactly as submitted.
type WaitlistRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"type:text;not null;uniqueIndex:waitlist_email_key" json:"email"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (WaitlistRecord) TableName() string {
	return "waitlist"
}
