package docgen

import (
	"errors"
	"testing"
	"time"

	"tradeops_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func sampleQuotation() *models.Quotation {
	validUntil := time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC)
	return &models.Quotation{
		ID:         "q-1",
		Number:     "QT-2026-0042",
		Client:     models.Client{Name: "Acme Trading", ContactName: "Maria Santos", Email: "maria@acme.test"},
		Company:    models.CompanyProfile{ID: "c-1", Name: "Northwind Supply", BankDetails: "BDO <b>0012</b>"},
		Subject:    "<b>Pumps</b> &amp; valves",
		IssuedAt:   time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		ValidUntil: &validUntil,
		Currency:   "php",
		Items: []models.QuotationItem{
			{Position: 3, Description: "Commissioning", Quantity: 1, Unit: "lot", UnitPrice: 1000},
			{Position: 1, Description: "Centrifugal pump", Quantity: 2, Unit: "pcs", UnitPrice: 100, UnitGroup: "pump"},
			{Position: 2, Description: "Pump coupling", Quantity: 3, Unit: "pcs", UnitPrice: 50.5, UnitGroup: "pump"},
		},
	}
}

func TestBuildQuotationPayload(t *testing.T) {
	q := sampleQuotation()
	q.DiscountPercent = 10

	p, err := BuildQuotationPayload(q, Options{
		Now: fixedNow,
		Tax: TaxPolicy{Rate: 0.12, Currencies: []string{"PHP"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "QT-2026-0042", p["number"])
	assert.Equal(t, "PHP", p["currency"])
	assert.Equal(t, "March 10, 2026", p["date"])
	assert.Equal(t, "April 14, 2026", p["valid_until"])
	assert.Equal(t, "Pumps & valves", p["subject"])
	assert.Equal(t, map[string]any{"date": "2026-03-14", "date_long": "March 14, 2026", "year": "2026"}, p["today"])

	company := p["company"].(map[string]any)
	assert.Equal(t, "Northwind Supply", company["name"])
	assert.Equal(t, "BDO 0012", company["bank_details"])
	assert.Equal(t, "Acme Trading", p["client"].(map[string]any)["name"])

	items := p["items"].([]any)
	require.Len(t, items, 3)
	first := items[0].(map[string]any)
	assert.Equal(t, 1, first["no"])
	assert.Equal(t, "Centrifugal pump", first["description"])
	assert.Equal(t, UnitMergeStart+"pcs", first["unit"])
	assert.Equal(t, "200.00", first["amount"])
	assert.Equal(t, UnitMergeCont, items[1].(map[string]any)["unit"])
	assert.Equal(t, "151.50", items[1].(map[string]any)["amount"])
	assert.Equal(t, "lot", items[2].(map[string]any)["unit"])
	assert.Equal(t, 3, p["item_count"])

	assert.Equal(t, "1,351.50", p["subtotal"])
	assert.Equal(t, map[string]any{"percent": "10", "amount": "135.15"}, p["discount"])
	assert.Equal(t, map[string]any{"rate": "12", "amount": "145.96"}, p["vat"])
	assert.Equal(t, "1,362.31", p["total"])
}

func TestBuildQuotationPayloadOptionalSections(t *testing.T) {
	q := sampleQuotation()

	t.Run("Absent sections are omitted", func(t *testing.T) {
		p, err := BuildQuotationPayload(q, Options{Now: fixedNow})
		require.NoError(t, err)
		for _, key := range []string{"payment_terms", "delivery_terms", "scope_of_work", "notes", "discount", "vat"} {
			assert.NotContains(t, p, key)
		}
	})

	t.Run("Present sections are set", func(t *testing.T) {
		q.PaymentTerms = "30 days"
		q.ScopeOfWork = "- Supply of pumps\n\n* Installation\n"
		q.Notes = "  "

		p, err := BuildQuotationPayload(q, Options{Now: fixedNow})
		require.NoError(t, err)
		assert.Equal(t, "30 days", p["payment_terms"])
		assert.Equal(t, []any{
			map[string]any{"line": "Supply of pumps"},
			map[string]any{"line": "Installation"},
		}, p["scope_of_work"])
		assert.NotContains(t, p, "notes")
	})
}

func TestTaxPolicyApplies(t *testing.T) {
	tax := TaxPolicy{Rate: 0.12, Currencies: []string{"PHP", " usd "}}
	assert.True(t, tax.Applies("PHP"))
	assert.True(t, tax.Applies("USD"))
	assert.False(t, tax.Applies("EUR"))
	assert.False(t, TaxPolicy{Currencies: []string{"PHP"}}.Applies("PHP"))
}

func TestResolveCurrency(t *testing.T) {
	assert.Equal(t, "EUR", resolveCurrency(Options{Currency: "eur"}, "PHP"))
	assert.Equal(t, "PHP", resolveCurrency(Options{}, "php"))
	assert.Equal(t, "SGD", resolveCurrency(Options{Company: &models.CompanyProfile{DefaultCurrency: "sgd"}}, ""))
	assert.Equal(t, "USD", resolveCurrency(Options{}, ""))
}

func TestUnitCellRuns(t *testing.T) {
	lines := []pricedLine{
		{unit: "m", unitGroup: "a"},
		{unit: "m", unitGroup: "a"},
		{unit: "m", unitGroup: "a"},
		{unit: "kg", unitGroup: "b"},
		{unit: "pcs"},
		{unit: "set", unitGroup: "c"},
		{unit: "set", unitGroup: "c"},
	}
	expected := []string{
		UnitMergeStart + "m", UnitMergeCont, UnitMergeCont,
		"kg",
		"pcs",
		UnitMergeStart + "set", UnitMergeCont,
	}
	for i := range lines {
		assert.Equal(t, expected[i], unitCell(lines, i), "line %d", i)
	}
}

func TestBuildPurchaseOrderPayload(t *testing.T) {
	delivery := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	po := &models.PurchaseOrder{
		ID:           "po-1",
		Number:       "PO-2026-0107",
		Supplier:     models.Supplier{Name: "Valve Works"},
		QuotationRef: "VW-889",
		DeliveryDate: &delivery,
		Currency:     "USD",
		Items: []models.PurchaseOrderItem{
			{Position: 1, Description: "Gate valve", PartNumber: "GV-2", Quantity: 4, Unit: "pcs", UnitPrice: 25},
		},
	}

	p, err := BuildPurchaseOrderPayload(po, Options{Now: fixedNow, Tax: TaxPolicy{Rate: 0.12, Currencies: []string{"PHP"}}})
	require.NoError(t, err)

	assert.Equal(t, "Valve Works", p["supplier"].(map[string]any)["name"])
	assert.Equal(t, "May 1, 2026", p["delivery_date"])
	assert.Equal(t, "March 14, 2026", p["date"], "zero issue date falls back to today")
	assert.Equal(t, "GV-2", p["items"].([]any)[0].(map[string]any)["part_number"])
	assert.Equal(t, "100.00", p["total"])
	assert.NotContains(t, p, "vat")
	assert.NotContains(t, p, "company")
}

func TestBuildCertificatePayload(t *testing.T) {
	c := &models.Certificate{
		ID:            "coc-1",
		Number:        "COC-2026-0031",
		Client:        models.Client{Name: "Acme Trading"},
		ClientPORef:   "ACME-PO-77",
		Statement:     "We certify the goods below conform.",
		InspectorName: "R. Cruz",
		Items: []models.CertificateItem{
			{Position: 2, Description: "Flange", Quantity: 10, Unit: "pcs", Standard: "ASME B16.5"},
			{Position: 1, Description: "Pipe", Quantity: 6.5, Unit: "m", SerialNumber: "HT-4410"},
		},
	}

	p, err := BuildCertificatePayload(c, Options{Now: fixedNow})
	require.NoError(t, err)

	assert.NotContains(t, p, "currency")
	assert.NotContains(t, p, "remarks")
	assert.Equal(t, "ACME-PO-77", p["client_po_ref"])
	assert.Equal(t, "R. Cruz", p["inspector"].(map[string]any)["name"])

	items := p["items"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "Pipe", items[0].(map[string]any)["description"])
	assert.Equal(t, "6.5", items[0].(map[string]any)["quantity"])
	assert.Equal(t, "ASME B16.5", items[1].(map[string]any)["standard"])
}

func TestBuildPayloadValidation(t *testing.T) {
	tests := []struct {
		name   string
		kind   Kind
		entity any
		field  string
	}{
		{name: "Missing number", kind: KindQuotation, entity: &models.Quotation{Client: models.Client{Name: "A"}}, field: "number"},
		{name: "Missing client", kind: KindQuotation, entity: &models.Quotation{Number: "Q-1"}, field: "client.name"},
		{name: "Missing supplier", kind: KindPurchaseOrder, entity: &models.PurchaseOrder{Number: "PO-1"}, field: "supplier.name"},
		{name: "Missing certificate client", kind: KindCertificate, entity: &models.Certificate{Number: "C-1"}, field: "client.name"},
		{name: "Wrong entity type", kind: KindCertificate, entity: &models.Quotation{Number: "Q-1"}, field: "entity"},
		{name: "Nil entity", kind: KindQuotation, entity: nil, field: "entity"},
		{name: "Unknown kind", kind: Kind("invoice"), entity: &models.Quotation{}, field: "kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildPayload(tt.kind, tt.entity, Options{})
			require.Error(t, err)

			var validation *ValidationError
			require.True(t, errors.As(err, &validation))
			assert.Equal(t, tt.field, validation.Field)
			assert.True(t, IsInputError(err))
		})
	}
}

func TestParseKindAndFormat(t *testing.T) {
	for input, expected := range map[string]Kind{
		"quotations":      KindQuotation,
		"purchase-orders": KindPurchaseOrder,
		"purchase_order":  KindPurchaseOrder,
		"certificates":    KindCertificate,
		"coc":             KindCertificate,
	} {
		kind, err := ParseKind(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, kind)
	}
	_, err := ParseKind("invoices")
	assert.True(t, IsInputError(err))

	format, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatDOCX, format)
	assert.Equal(t, ContentTypePDF, FormatPDF.ContentType())
	_, err = ParseFormat("odt")
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	tests := []struct {
		kind     Kind
		number   string
		format   Format
		expected string
	}{
		{KindQuotation, "QT-2026-0042", FormatDOCX, "quotation_QT-2026-0042.docx"},
		{KindPurchaseOrder, "PO/2026 Café-01", FormatPDF, "purchase_order_PO-2026-Cafe-01.pdf"},
		{KindCertificate, "../../etc", FormatPDF, "certificate_etc.pdf"},
		{KindCertificate, "  ", FormatDOCX, "certificate_document.docx"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, Filename(tt.kind, tt.number, tt.format))
		})
	}
}
