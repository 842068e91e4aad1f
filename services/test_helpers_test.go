package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"tradeops_app_go/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// Unique shared memory name isolates tests
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, testDB.AutoMigrate(models.AllModels()...))
	return testDB
}

type fixtures struct {
	company     *models.CompanyProfile
	client      *models.Client
	supplier    *models.Supplier
	quotation   *models.Quotation
	order       *models.PurchaseOrder
	certificate *models.Certificate
}

func seedRecords(t *testing.T, db *gorm.DB) fixtures {
	t.Helper()
	issued := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	company := &models.CompanyProfile{Slug: "acme", Name: "Acme Industrial", DefaultCurrency: "PHP"}
	require.NoError(t, db.Create(company).Error)

	client := &models.Client{CompanyID: company.ID, Name: "Harbor Foods", Email: "buyer@harbor.test"}
	require.NoError(t, db.Create(client).Error)
	supplier := &models.Supplier{CompanyID: company.ID, Name: "Valve Works"}
	require.NoError(t, db.Create(supplier).Error)

	quotation := &models.Quotation{
		CompanyID: company.ID,
		Number:    "Q-2026-0001",
		ClientID:  client.ID,
		IssuedAt:  issued,
		Currency:  "PHP",
		Items: []models.QuotationItem{
			{Position: 2, Description: "Installation", Quantity: 1, Unit: "lot", UnitPrice: 500},
			{Position: 1, Description: "Pressure gauge", Quantity: 4, Unit: "pcs", UnitPrice: 125.25},
		},
	}
	require.NoError(t, db.Create(quotation).Error)

	order := &models.PurchaseOrder{
		CompanyID:  company.ID,
		Number:     "PO-2026-0001",
		SupplierID: supplier.ID,
		IssuedAt:   issued,
		Currency:   "USD",
		Items: []models.PurchaseOrderItem{
			{Position: 1, Description: "Gate valve", PartNumber: "GV-2", Quantity: 2, Unit: "pcs", UnitPrice: 40},
		},
	}
	require.NoError(t, db.Create(order).Error)

	certificate := &models.Certificate{
		CompanyID: company.ID,
		Number:    "COC-2026-0001",
		ClientID:  client.ID,
		IssuedAt:  issued,
		Items: []models.CertificateItem{
			{Position: 1, Description: "Pressure gauge", Quantity: 4, Unit: "pcs"},
		},
	}
	require.NoError(t, db.Create(certificate).Error)

	return fixtures{
		company:     company,
		client:      client,
		supplier:    supplier,
		quotation:   quotation,
		order:       order,
		certificate: certificate,
	}
}

type fakeConverter struct {
	mu    sync.Mutex
	calls int
	pdf   []byte
	err   error
}

func (f *fakeConverter) Convert(ctx context.Context, docx []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.pdf, nil
}
