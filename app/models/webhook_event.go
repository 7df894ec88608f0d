package models

import "time"

// WebhookEvent is the audit and deduplication record for one inbound provider
// notification. (provider, event_id) is unique.
type WebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;index:ux_webhook_events_provider_event,unique,priority:1;index" json:"provider"`
	EventID         string     `gorm:"type:varchar(191);not null;index:ux_webhook_events_provider_event,unique,priority:2" json:"eventId"`
	Topic           string     `gorm:"type:varchar(100);not null;index" json:"topic"`
	ResourceID      string     `gorm:"type:varchar(191);index" json:"resourceId"`
	SyntheticID     bool       `gorm:"default:false" json:"syntheticId"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"-"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processedAt,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processingError,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}
