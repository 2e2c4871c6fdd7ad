package models

import "time"

// TriageAnalysis is one image sent for injury triage and the model's answer
type TriageAnalysis struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    string    `json:"userId" gorm:"type:uuid;not null"`
	ImageKey  string    `json:"imageKey" gorm:"not null"`
	MimeType  string    `json:"mimeType" gorm:"not null"`
	SizeBytes int64     `json:"sizeBytes"`
	Model     string    `json:"model"`
	Analysis  string    `json:"analysis"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name for TriageAnalysis
func (TriageAnalysis) TableName() string {
	return "triage_analyses"
}
