package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PurchaseOrder is an order placed with a supplier
type PurchaseOrder struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CompanyID string         `gorm:"type:uuid;not null;index" json:"company_id"`
	Company   CompanyProfile `gorm:"foreignKey:CompanyID" json:"company,omitempty"`

	Number string `gorm:"not null;uniqueIndex" json:"number"` // e.g., PO-2026-0107

	SupplierID string   `gorm:"type:uuid;not null;index" json:"supplier_id"`
	Supplier   Supplier `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`

	QuotationRef    string     `json:"quotation_ref"` // supplier's quotation number
	JobOrderRef     string     `json:"job_order_ref"`
	IssuedAt        time.Time  `gorm:"not null" json:"issued_at"`
	DeliveryDate    *time.Time `json:"delivery_date,omitempty"`
	DeliveryAddress string     `json:"delivery_address"`
	Currency        string     `gorm:"not null;default:USD" json:"currency"`

	PaymentTerms  string `gorm:"type:text" json:"payment_terms"`
	DeliveryTerms string `gorm:"type:text" json:"delivery_terms"`
	Notes         string `gorm:"type:text" json:"notes"`

	ApprovedBy string `json:"approved_by"`

	Items []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID" json:"items,omitempty"`
}

// BeforeCreate hook to generate UUID
func (po *PurchaseOrder) BeforeCreate(tx *gorm.DB) error {
	if po.ID == "" {
		po.ID = uuid.New().String()
	}
	return nil
}

// PurchaseOrderItem is one ordered line
type PurchaseOrderItem struct {
	ID              string `gorm:"type:uuid;primarykey" json:"id"`
	PurchaseOrderID string `gorm:"type:uuid;not null;index" json:"purchase_order_id"`

	Position    int     `gorm:"not null;default:0" json:"position"`
	Description string  `gorm:"type:text;not null" json:"description"`
	PartNumber  string  `json:"part_number"`
	Quantity    float64 `gorm:"not null;default:1" json:"quantity"`
	Unit        string  `json:"unit"`
	UnitPrice   float64 `gorm:"not null;default:0" json:"unit_price"`
	UnitGroup   string  `json:"unit_group"`
}

// BeforeCreate hook to generate UUID
func (i *PurchaseOrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}
