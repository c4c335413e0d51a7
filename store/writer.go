package store

import (
	"time"

	"github.com/jinzhu/gorm"
)

// Writer exposes the provider mutations as methods, so consumers can
// declare small interfaces over it instead of passing the database
// handle around.
type Writer struct {
	DB *gorm.DB
}

func NewWriter(db *gorm.DB) *Writer {
	return &Writer{DB: db}
}

func (w *Writer) SetTokens(
	providerID uint,
	longLivedToken string,
	longLivedExpires *time.Time,
	pageToken string,
	pageTokenCreated time.Time,
) error {
	return ProviderSetTokens(w.DB, providerID, longLivedToken, longLivedExpires, pageToken, pageTokenCreated)
}

func (w *Writer) SetPageTokenMeta(providerID uint, created, expires *time.Time) error {
	return ProviderSetPageTokenMeta(w.DB, providerID, created, expires)
}

func (w *Writer) SetError(providerID uint, message string) error {
	return ProviderSetError(w.DB, providerID, message)
}

func (w *Writer) ClearError(providerID uint) error {
	return ProviderClearError(w.DB, providerID)
}
