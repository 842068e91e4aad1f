package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompanyProfile is a trading brand the documents are issued under (multi-tenant scope)
type CompanyProfile struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Slug            string `gorm:"uniqueIndex;not null" json:"slug"` // selects the template variant, e.g. "acme"
	Name            string `gorm:"not null" json:"name"`
	Address         string `json:"address"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	TaxID           string `json:"tax_id"`
	BankDetails     string `gorm:"type:text" json:"bank_details"`
	DefaultCurrency string `gorm:"not null;default:USD" json:"default_currency"`
}

// BeforeCreate hook to generate UUID
func (c *CompanyProfile) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for CompanyProfile model
func (CompanyProfile) TableName() string {
	return "company_profiles"
}
