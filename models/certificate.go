package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Certificate is a certificate of conformity issued against delivered goods
type Certificate struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CompanyID string         `gorm:"type:uuid;not null;index" json:"company_id"`
	Company   CompanyProfile `gorm:"foreignKey:CompanyID" json:"company,omitempty"`

	Number string `gorm:"not null;uniqueIndex" json:"number"` // e.g., COC-2026-0031

	ClientID string `gorm:"type:uuid;not null;index" json:"client_id"`
	Client   Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	ClientPORef string    `json:"client_po_ref"`
	JobOrderRef string    `json:"job_order_ref"`
	IssuedAt    time.Time `gorm:"not null" json:"issued_at"`
	Statement   string    `gorm:"type:text" json:"statement"`
	Remarks     string    `gorm:"type:text" json:"remarks"`

	InspectorName  string `json:"inspector_name"`
	InspectorTitle string `json:"inspector_title"`

	Items []CertificateItem `gorm:"foreignKey:CertificateID" json:"items,omitempty"`
}

// BeforeCreate hook to generate UUID
func (c *Certificate) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// CertificateItem is one certified line of goods
type CertificateItem struct {
	ID            string `gorm:"type:uuid;primarykey" json:"id"`
	CertificateID string `gorm:"type:uuid;not null;index" json:"certificate_id"`

	Position     int     `gorm:"not null;default:0" json:"position"`
	Description  string  `gorm:"type:text;not null" json:"description"`
	Quantity     float64 `gorm:"not null;default:1" json:"quantity"`
	Unit         string  `json:"unit"`
	SerialNumber string  `json:"serial_number"`
	Standard     string  `json:"standard"` // specification the goods conform to
}

// BeforeCreate hook to generate UUID
func (i *CertificateItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}
