package store

import (
	"github.com/jinzhu/gorm"
)

// Reader exposes the provider queries as methods, mirroring Writer.
type Reader struct {
	DB *gorm.DB
}

func NewReader(db *gorm.DB) *Reader {
	return &Reader{DB: db}
}

func (r *Reader) Enabled() ([]Provider, error) {
	return ProvidersEnabled(r.DB)
}

func (r *Reader) EnabledByType(providerType ProviderType) ([]Provider, error) {
	return ProvidersEnabledByType(r.DB, providerType)
}

func (r *Reader) Find(providerID uint) (*Provider, error) {
	return ProviderFind(r.DB, "id = ?", providerID)
}

func (r *Reader) WithPageToken() ([]Provider, error) {
	return ProvidersWithPageToken(r.DB)
}
