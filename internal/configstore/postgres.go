package configstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProviderCredential is the GORM model backing PostgresStore, grounded
// on the teacher's internal/models table-tag and uniqueIndex style
// (TenantLanguagePreference, UserLanguagePreference).
type ProviderCredential struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID       string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_provider_credential_tenant_provider"`
	ProviderID     string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_provider_credential_tenant_provider"`
	CredentialBlob string    `gorm:"type:text;not null"`
	Active         bool      `gorm:"default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ProviderCredential) TableName() string { return "provider_credentials" }

// PostgresStore is the production Config Store implementation.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates/updates the backing table. Credential encryption at
// rest is an external collaborator's concern (spec.md §1 Non-goals);
// CredentialBlob is stored exactly as supplied.
func (s *PostgresStore) Migrate() error {
	return s.db.AutoMigrate(&ProviderCredential{})
}

func (s *PostgresStore) GetCredentials(ctx context.Context, tenantID string) ([]CredentialRow, error) {
	var rows []ProviderCredential
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]CredentialRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, CredentialRow{
			ProviderID:     r.ProviderID,
			CredentialBlob: r.CredentialBlob,
			Active:         r.Active,
		})
	}
	return out, nil
}

var _ Store = (*PostgresStore)(nil)
