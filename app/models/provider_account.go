package models

import "time"

const (
	OAUTH_PROVIDER_GOOGLE   = "google"
	OAUTH_PROVIDER_FACEBOOK = "facebook"
)

// ProviderAccount links a Google or Facebook identity to a local user.
type ProviderAccount struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"index" json:"user_id"`
	Provider       string    `gorm:"index:ux_provider_accounts_uid,unique,priority:1;type:varchar(50)" json:"provider"`
	ProviderUserID string    `gorm:"index:ux_provider_accounts_uid,unique,priority:2;type:varchar(191)" json:"provider_user_id"`
	Email          string    `gorm:"type:varchar(200)" json:"email"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsSupportedOAuthProvider reports whether a login provider is configured by the app.
func IsSupportedOAuthProvider(name string) bool {
	switch name {
	case OAUTH_PROVIDER_GOOGLE, OAUTH_PROVIDER_FACEBOOK:
		return true
	}
	return false
}
