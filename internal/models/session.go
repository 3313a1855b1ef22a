package models

import "time"

// Session is a named, ordered sequence of conversation turns. Deleting a
// session is a soft delete: IsActive flips to false and the rows stay.
type Session struct {
	ID                 uint      `gorm:"primaryKey;autoIncrement"`
	SessionID          string    `gorm:"size:100;uniqueIndex;not null"`
	Name               string    `gorm:"size:100"`
	MessageCount       int       `gorm:"not null;default:0"`
	TotalTokenEstimate int       `gorm:"not null;default:0"`
	IsActive           bool      `gorm:"not null;default:true;index"`
	CreatedAt          time.Time
	LastActivityAt     time.Time `gorm:"index"`
}
