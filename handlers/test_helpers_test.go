package handlers

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tradeops_app_go/config"
	"tradeops_app_go/middleware"
	"tradeops_app_go/models"
	"tradeops_app_go/services"
	"tradeops_app_go/services/docgen"
	"tradeops_app_go/services/docgen/docgentest"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// Use unique shared memory name to isolate tests
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, testDB.AutoMigrate(models.AllModels()...))
	return testDB
}

type testEnv struct {
	db        *gorm.DB
	echo      *echo.Echo
	service   *services.DocumentService
	company   *models.CompanyProfile
	quotation *models.Quotation
	order     *models.PurchaseOrder
	cert      *models.Certificate
	sent      []*services.Email
}

type stubConverter struct {
	pdf []byte
	err error
}

func (s stubConverter) Convert(ctx context.Context, docx []byte) ([]byte, error) {
	return s.pdf, s.err
}

func setupDocumentTest(t *testing.T, conv docgen.Converter) *testEnv {
	t.Helper()
	db := setupTestDB(t)

	templates := t.TempDir()
	for name, body := range map[string]string{
		"quotation.docx":      docgentest.Para("Quotation {number} for {client.name} total {currency} {total}"),
		"purchase_order.docx": docgentest.Para("{#items}"),
	} {
		require.NoError(t, os.WriteFile(filepath.Join(templates, name), docgentest.Docx(t, body), 0o644))
	}

	gen := docgen.NewGenerator(docgen.NewRegistry(docgen.DirStore{Root: templates}), conv, docgen.TaxPolicy{}, nil)
	svc := services.NewDocumentService(db, gen, services.NewLocalStorage(t.TempDir()), &config.Config{DefaultCurrency: "USD", EmailTestMode: true}, nil)

	env := &testEnv{db: db, service: svc}
	svc.Send = func(cfg *config.Config, email *services.Email) error {
		env.sent = append(env.sent, email)
		return nil
	}

	issued := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	env.company = &models.CompanyProfile{Slug: "acme", Name: "Acme Industrial"}
	require.NoError(t, db.Create(env.company).Error)
	client := &models.Client{CompanyID: env.company.ID, Name: "Harbor Foods", Email: "buyer@harbor.test"}
	require.NoError(t, db.Create(client).Error)
	supplier := &models.Supplier{CompanyID: env.company.ID, Name: "Valve Works"}
	require.NoError(t, db.Create(supplier).Error)

	env.quotation = &models.Quotation{
		CompanyID: env.company.ID, Number: "Q-7", ClientID: client.ID, IssuedAt: issued, Currency: "USD",
		Items: []models.QuotationItem{{Position: 1, Description: "Gauge", Quantity: 2, Unit: "pcs", UnitPrice: 10}},
	}
	require.NoError(t, db.Create(env.quotation).Error)
	env.order = &models.PurchaseOrder{
		CompanyID: env.company.ID, Number: "PO-7", SupplierID: supplier.ID, IssuedAt: issued, Currency: "USD",
		Items: []models.PurchaseOrderItem{{Position: 1, Description: "Valve", PartNumber: "V-1", Quantity: 1, Unit: "pcs", UnitPrice: 5}},
	}
	require.NoError(t, db.Create(env.order).Error)
	env.cert = &models.Certificate{CompanyID: env.company.ID, Number: "COC-7", ClientID: client.ID, IssuedAt: issued}
	require.NoError(t, db.Create(env.cert).Error)

	h := NewDocumentHandler(svc)
	passthrough := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	h.GenerateLimit, h.EmailLimit = passthrough, passthrough

	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler
	h.Register(e.Group("/api", middleware.RequireCompany(db)))
	env.echo = e
	return env
}

func (env *testEnv) do(t *testing.T, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set(middleware.HeaderCompany, "acme")
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}
