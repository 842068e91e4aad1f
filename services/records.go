package services

import (
	"fmt"

	"tradeops_app_go/models"
	"tradeops_app_go/services/docgen"

	"gorm.io/gorm"
)

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// LoadCompanyProfile fetches a company by ID
func LoadCompanyProfile(db *gorm.DB, companyID string) (*models.CompanyProfile, error) {
	var company models.CompanyProfile
	if err := db.Where("id = ?", companyID).First(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

// LoadCompanyProfileBySlug fetches a company by its slug
func LoadCompanyProfileBySlug(db *gorm.DB, slug string) (*models.CompanyProfile, error) {
	var company models.CompanyProfile
	if err := db.Where("slug = ?", slug).First(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

// LoadQuotation fetches a quotation with company, client and ordered items
func LoadQuotation(db *gorm.DB, companyID, id string) (*models.Quotation, error) {
	var q models.Quotation
	err := db.Preload("Company").
		Preload("Client").
		Preload("Items", orderedItems).
		Where("company_id = ? AND id = ?", companyID, id).
		First(&q).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// LoadPurchaseOrder fetches a purchase order with company, supplier and ordered items
func LoadPurchaseOrder(db *gorm.DB, companyID, id string) (*models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	err := db.Preload("Company").
		Preload("Supplier").
		Preload("Items", orderedItems).
		Where("company_id = ? AND id = ?", companyID, id).
		First(&po).Error
	if err != nil {
		return nil, err
	}
	return &po, nil
}

// LoadCertificate fetches a certificate with company, client and ordered items
func LoadCertificate(db *gorm.DB, companyID, id string) (*models.Certificate, error) {
	var c models.Certificate
	err := db.Preload("Company").
		Preload("Client").
		Preload("Items", orderedItems).
		Where("company_id = ? AND id = ?", companyID, id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadRecord dispatches to the loader for kind
func LoadRecord(db *gorm.DB, kind docgen.Kind, companyID, id string) (any, error) {
	switch kind {
	case docgen.KindQuotation:
		return LoadQuotation(db, companyID, id)
	case docgen.KindPurchaseOrder:
		return LoadPurchaseOrder(db, companyID, id)
	case docgen.KindCertificate:
		return LoadCertificate(db, companyID, id)
	default:
		return nil, fmt.Errorf("no loader for kind %q", kind)
	}
}
