package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Quotation status constants
const (
	QuotationStatusDraft    = "DRAFT"
	QuotationStatusSent     = "SENT"
	QuotationStatusAccepted = "ACCEPTED"
	QuotationStatusRejected = "REJECTED"
)

// Quotation is a priced offer to a client
type Quotation struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Company relationship (multi-tenant scoping)
	CompanyID string         `gorm:"type:uuid;not null;index" json:"company_id"`
	Company   CompanyProfile `gorm:"foreignKey:CompanyID" json:"company,omitempty"`

	Number string `gorm:"not null;uniqueIndex" json:"number"` // e.g., Q-2026-0042

	ClientID string `gorm:"type:uuid;not null;index" json:"client_id"`
	Client   Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	Subject    string     `json:"subject"`
	Reference  string     `json:"reference"` // client's RFQ reference
	IssuedAt   time.Time  `gorm:"not null" json:"issued_at"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	Currency   string     `gorm:"not null;default:USD" json:"currency"`
	Status     string     `gorm:"not null;default:DRAFT" json:"status"`

	// Percentage discount applied to the subtotal (0-100)
	DiscountPercent float64 `gorm:"default:0" json:"discount_percent"`

	// Optional document sections
	PaymentTerms  string `gorm:"type:text" json:"payment_terms"`
	DeliveryTerms string `gorm:"type:text" json:"delivery_terms"`
	ScopeOfWork   string `gorm:"type:text" json:"scope_of_work"` // one bullet per line
	Notes         string `gorm:"type:text" json:"notes"`

	PreparedBy string `json:"prepared_by"`

	Items []QuotationItem `gorm:"foreignKey:QuotationID" json:"items,omitempty"`
}

// BeforeCreate hook to generate UUID
func (q *Quotation) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	return nil
}

// QuotationItem is one priced line of a quotation
type QuotationItem struct {
	ID          string `gorm:"type:uuid;primarykey" json:"id"`
	QuotationID string `gorm:"type:uuid;not null;index" json:"quotation_id"`

	Position    int     `gorm:"not null;default:0" json:"position"`
	Description string  `gorm:"type:text;not null" json:"description"`
	Quantity    float64 `gorm:"not null;default:1" json:"quantity"`
	Unit        string  `json:"unit"`
	UnitPrice   float64 `gorm:"not null;default:0" json:"unit_price"`

	// Consecutive items sharing a UnitGroup print one merged unit cell
	UnitGroup string `json:"unit_group"`
}

// BeforeCreate hook to generate UUID
func (i *QuotationItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}
