package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GeneratedDocument records a rendered document archived to storage
type GeneratedDocument struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CompanyID string `gorm:"type:uuid;not null;index" json:"company_id"`

	// Source entity
	Kind     string `gorm:"not null;index:idx_generated_entity" json:"kind"`
	EntityID string `gorm:"type:uuid;not null;index:idx_generated_entity" json:"entity_id"`

	Format      string `gorm:"not null" json:"format"`
	Template    string `gorm:"not null" json:"template"`
	FileName    string `gorm:"not null" json:"file_name"`
	FilePath    string `gorm:"not null" json:"file_path"` // storage key
	FileSize    int64  `json:"file_size"`
	MimeType    string `json:"mime_type"`
	Pages       int    `json:"pages"`
	GeneratedBy string `json:"generated_by"`
}

// BeforeCreate hook to generate UUID
func (d *GeneratedDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GeneratedDocument model
func (GeneratedDocument) TableName() string {
	return "generated_documents"
}
