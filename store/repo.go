package store

import (
	"time"

	"github.com/jinzhu/gorm"
)

// ProviderFind returns the first provider matching the given conditions.
func ProviderFind(db *gorm.DB, where ...interface{}) (*Provider, error) {
	var provider Provider

	err := db.First(&provider, where...).Error
	if err != nil {
		return nil, err
	}
	return &provider, nil
}

// ProvidersEnabled returns every enabled provider.
func ProvidersEnabled(db *gorm.DB) ([]Provider, error) {
	var providers []Provider

	err := db.Where("enabled = ?", true).Find(&providers).Error
	if err != nil {
		return nil, err
	}
	return providers, nil
}

// ProvidersEnabledByType returns every enabled provider with the given
// type tag.
func ProvidersEnabledByType(db *gorm.DB, providerType ProviderType) ([]Provider, error) {
	var providers []Provider

	err := db.Where("enabled = ? AND type = ?", true, providerType).Find(&providers).Error
	if err != nil {
		return nil, err
	}
	return providers, nil
}

// ProvidersWithPageToken returns enabled chained-token providers that
// currently hold a derived page access token.
func ProvidersWithPageToken(db *gorm.DB) ([]Provider, error) {
	var providers []Provider

	err := db.Where(
		"enabled = ? AND type IN (?) AND page_access_token <> ''",
		true, []ProviderType{ProviderFacebook, ProviderInstagram},
	).Find(&providers).Error
	if err != nil {
		return nil, err
	}
	return providers, nil
}

// ProviderSetError records a provider-level failure for administrators.
func ProviderSetError(db *gorm.DB, providerID uint, message string) error {
	return db.Exec(`
UPDATE social_feed_providers
SET last_feed_error = $2
WHERE id = $1
`, providerID, message).Error
}

// ProviderClearError clears the provider error slot after a successful
// fetch.
func ProviderClearError(db *gorm.DB, providerID uint) error {
	return ProviderSetError(db, providerID, "")
}

// ProviderSetTokens persists the long-lived user token and the derived
// page access token in a single write, superseding any previous derived
// token.
func ProviderSetTokens(
	db *gorm.DB,
	providerID uint,
	longLivedToken string,
	longLivedExpires *time.Time,
	pageToken string,
	pageTokenCreated time.Time,
) error {
	return db.Exec(`
UPDATE social_feed_providers
SET long_lived_token = $2,
    long_lived_token_expires = $3,
    page_access_token = $4,
    page_access_token_created = $5
WHERE id = $1
`, providerID, longLivedToken, longLivedExpires, pageToken, pageTokenCreated).Error
}

// ProviderSetPageTokenMeta updates the stored creation and expiry
// metadata of the derived page token. A nil expiry means the token never
// expires.
func ProviderSetPageTokenMeta(db *gorm.DB, providerID uint, created, expires *time.Time) error {
	return db.Exec(`
UPDATE social_feed_providers
SET page_access_token_created = $2,
    page_access_token_expires = $3
WHERE id = $1
`, providerID, created, expires).Error
}

// ProviderSetInstagramBusinessAccountID stores the resolved business
// account id for a Graph API instagram provider.
func ProviderSetInstagramBusinessAccountID(db *gorm.DB, providerID uint, accountID string) error {
	return db.Exec(`
UPDATE social_feed_providers
SET instagram_business_account_id = $2
WHERE id = $1
`, providerID, accountID).Error
}

// ProviderSetInstagramAccessToken stores the access token obtained from
// the basic display authorization-code exchange.
func ProviderSetInstagramAccessToken(db *gorm.DB, providerID uint, token string) error {
	return db.Exec(`
UPDATE social_feed_providers
SET instagram_access_token = $2
WHERE id = $1
`, providerID, token).Error
}
