package models

// AllModels lists every persisted model in migration order
func AllModels() []interface{} {
	return []interface{}{
		&CompanyProfile{},
		&Client{},
		&Supplier{},
		&Quotation{},
		&QuotationItem{},
		&PurchaseOrder{},
		&PurchaseOrderItem{},
		&Certificate{},
		&CertificateItem{},
		&GeneratedDocument{},
	}
}
