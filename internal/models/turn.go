package models

import "time"

// Turn is one user/assistant exchange. The auto-increment ID defines
// chronological order within a session; wall-clock timestamps can collide
// at sub-millisecond granularity, IDs cannot. Turns are never mutated.
type Turn struct {
	ID                uint   `gorm:"primaryKey;autoIncrement"`
	SessionID         string `gorm:"size:100;not null;index"`
	UserMessage       string `gorm:"type:text;not null"`
	AssistantResponse string `gorm:"type:text;not null"`
	MessageLength     int    `gorm:"not null;default:0"`
	ResponseTimeMs    int    `gorm:"not null;default:0"`
	CreatedAt         time.Time
}
