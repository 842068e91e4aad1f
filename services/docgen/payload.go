package docgen

import (
	"encoding/json"
	"fmt"
	"html"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"tradeops_app_go/models"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Sentinel tokens marking table cells that must merge vertically
const (
	UnitMergeStart = "<UNIT_MERGE_START>"
	UnitMergeCont  = "<UNIT_MERGE_CONT>"
)

// Date formats used in documents
const (
	dateLong  = "January 2, 2006"
	dateShort = "2006-01-02"
)

// Payload maps merge-field names to scalars, nested objects or lists of row objects
type Payload map[string]any

// Validate fails when the payload holds values that cannot be serialized
func (p Payload) Validate() error {
	_, err := json.Marshal(p)
	return err
}

// normalized returns the payload as plain JSON values (maps, []any, float64, string, bool)
func (p Payload) normalized() (map[string]any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TaxPolicy applies VAT to totals for the listed currencies
type TaxPolicy struct {
	Rate       float64 // e.g. 0.12
	Currencies []string
}

// Applies reports whether totals in currency carry VAT
func (t TaxPolicy) Applies(currency string) bool {
	if t.Rate <= 0 {
		return false
	}
	for _, c := range t.Currencies {
		if strings.EqualFold(strings.TrimSpace(c), currency) {
			return true
		}
	}
	return false
}

// Options carries presentation choices for one generated document
type Options struct {
	Format         Format
	Currency       string
	CompanyProfile string
	Company        *models.CompanyProfile
	Tax            TaxPolicy
	Now            time.Time
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

var (
	textPolicy    = bluemonday.StrictPolicy()
	amountPrinter = message.NewPrinter(language.English)
)

// cleanText strips markup pasted into free-text fields
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

func formatAmount(v float64) string {
	return amountPrinter.Sprintf("%.2f", v)
}

func formatQuantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(dateLong)
}

// BuildPayload dispatches on the entity type expected for kind
func BuildPayload(kind Kind, entity any, opts Options) (Payload, error) {
	switch kind {
	case KindQuotation:
		q, ok := entity.(*models.Quotation)
		if !ok || q == nil {
			return nil, &ValidationError{Field: "entity", Reason: fmt.Sprintf("expected a quotation, got %T", entity)}
		}
		return BuildQuotationPayload(q, opts)
	case KindPurchaseOrder:
		po, ok := entity.(*models.PurchaseOrder)
		if !ok || po == nil {
			return nil, &ValidationError{Field: "entity", Reason: fmt.Sprintf("expected a purchase order, got %T", entity)}
		}
		return BuildPurchaseOrderPayload(po, opts)
	case KindCertificate:
		c, ok := entity.(*models.Certificate)
		if !ok || c == nil {
			return nil, &ValidationError{Field: "entity", Reason: fmt.Sprintf("expected a certificate, got %T", entity)}
		}
		return BuildCertificatePayload(c, opts)
	default:
		return nil, &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown document kind %q", kind)}
	}
}

// EntityIdentity returns the id and business number of a supported entity
func EntityIdentity(entity any) (id, number string) {
	switch e := entity.(type) {
	case *models.Quotation:
		if e != nil {
			return e.ID, e.Number
		}
	case *models.PurchaseOrder:
		if e != nil {
			return e.ID, e.Number
		}
	case *models.Certificate:
		if e != nil {
			return e.ID, e.Number
		}
	}
	return "", ""
}

func requireField(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "is required"}
	}
	return nil
}

// pricedLine is the common shape of quotation and purchase-order items
type pricedLine struct {
	position    int
	description string
	partNumber  string
	quantity    float64
	unit        string
	unitPrice   float64
	unitGroup   string
}

// buildLines numbers the lines, applies unit merge tokens and returns the subtotal
func buildLines(lines []pricedLine) ([]any, float64) {
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].position < lines[j].position })

	rows := make([]any, len(lines))
	subtotal := 0.0
	for i, line := range lines {
		amount := line.quantity * line.unitPrice
		subtotal += amount

		row := map[string]any{
			"no":          i + 1,
			"description": cleanText(line.description),
			"quantity":    formatQuantity(line.quantity),
			"unit":        unitCell(lines, i),
			"unit_price":  formatAmount(line.unitPrice),
			"amount":      formatAmount(amount),
		}
		if line.partNumber != "" {
			row["part_number"] = line.partNumber
		}
		rows[i] = row
	}
	return rows, subtotal
}

// unitCell prefixes the unit with a merge token when the line belongs to a run of
// consecutive lines sharing a unit group
func unitCell(lines []pricedLine, i int) string {
	group := lines[i].unitGroup
	if group == "" {
		return lines[i].unit
	}
	prevSame := i > 0 && lines[i-1].unitGroup == group
	nextSame := i+1 < len(lines) && lines[i+1].unitGroup == group
	switch {
	case prevSame:
		return UnitMergeCont
	case nextSame:
		return UnitMergeStart + lines[i].unit
	default:
		return lines[i].unit
	}
}

// totals computes discount, VAT and grand total blocks
func totals(p Payload, subtotal, discountPercent float64, currency string, tax TaxPolicy) {
	p["subtotal"] = formatAmount(subtotal)
	net := subtotal
	if discountPercent > 0 {
		discount := subtotal * discountPercent / 100
		net -= discount
		p["discount"] = map[string]any{
			"percent": formatQuantity(discountPercent),
			"amount":  formatAmount(discount),
		}
	}
	total := net
	if tax.Applies(currency) {
		vat := net * tax.Rate
		total += vat
		p["vat"] = map[string]any{
			"rate":   formatQuantity(math.Round(tax.Rate*10000) / 100),
			"amount": formatAmount(vat),
		}
	}
	p["total"] = formatAmount(total)
}

func companyBlock(opts Options, loaded models.CompanyProfile) map[string]any {
	company := opts.Company
	if company == nil && loaded.ID != "" {
		company = &loaded
	}
	if company == nil {
		return nil
	}
	return map[string]any{
		"name":         company.Name,
		"address":      company.Address,
		"phone":        company.Phone,
		"email":        company.Email,
		"tax_id":       company.TaxID,
		"bank_details": cleanText(company.BankDetails),
	}
}

func partyBlock(name, contact, email, phone, address, taxID string) map[string]any {
	return map[string]any{
		"name":         name,
		"contact_name": contact,
		"email":        email,
		"phone":        phone,
		"address":      address,
		"tax_id":       taxID,
	}
}

func resolveCurrency(opts Options, entityCurrency string) string {
	switch {
	case opts.Currency != "":
		return strings.ToUpper(opts.Currency)
	case entityCurrency != "":
		return strings.ToUpper(entityCurrency)
	case opts.Company != nil && opts.Company.DefaultCurrency != "":
		return strings.ToUpper(opts.Company.DefaultCurrency)
	default:
		return "USD"
	}
}

// setText adds an optional text section only when it has content
func setText(p Payload, key, value string) {
	if text := cleanText(value); text != "" {
		p[key] = text
	}
}

// setLines adds an optional bullet section, one row per non-blank line
func setLines(p Payload, key, value string) {
	var rows []any
	for _, line := range strings.Split(cleanText(value), "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
		if line != "" {
			rows = append(rows, map[string]any{"line": line})
		}
	}
	if len(rows) > 0 {
		p[key] = rows
	}
}

func basePayload(number string, issued time.Time, currency string, opts Options) Payload {
	now := opts.now()
	p := Payload{
		"number":   number,
		"date":     issued.Format(dateLong),
		"currency": currency,
		"today": map[string]any{
			"date":      now.Format(dateShort),
			"date_long": now.Format(dateLong),
			"year":      now.Format("2006"),
		},
	}
	if issued.IsZero() {
		p["date"] = now.Format(dateLong)
	}
	return p
}

// BuildQuotationPayload maps a quotation onto the quotation template vocabulary
func BuildQuotationPayload(q *models.Quotation, opts Options) (Payload, error) {
	if err := requireField("number", q.Number); err != nil {
		return nil, err
	}
	if err := requireField("client.name", q.Client.Name); err != nil {
		return nil, err
	}

	currency := resolveCurrency(opts, q.Currency)
	p := basePayload(q.Number, q.IssuedAt, currency, opts)
	p["subject"] = cleanText(q.Subject)
	p["reference"] = q.Reference
	p["valid_until"] = formatDate(q.ValidUntil)
	p["prepared_by"] = q.PreparedBy
	p["client"] = partyBlock(q.Client.Name, q.Client.ContactName, q.Client.Email, q.Client.Phone, q.Client.Address, q.Client.TaxID)
	if company := companyBlock(opts, q.Company); company != nil {
		p["company"] = company
	}

	lines := make([]pricedLine, len(q.Items))
	for i, item := range q.Items {
		lines[i] = pricedLine{
			position:    item.Position,
			description: item.Description,
			quantity:    item.Quantity,
			unit:        item.Unit,
			unitPrice:   item.UnitPrice,
			unitGroup:   item.UnitGroup,
		}
	}
	rows, subtotal := buildLines(lines)
	p["items"] = rows
	p["item_count"] = len(rows)
	totals(p, subtotal, q.DiscountPercent, currency, opts.Tax)

	setText(p, "payment_terms", q.PaymentTerms)
	setText(p, "delivery_terms", q.DeliveryTerms)
	setLines(p, "scope_of_work", q.ScopeOfWork)
	setText(p, "notes", q.Notes)
	return p, nil
}

// BuildPurchaseOrderPayload maps a purchase order onto the purchase order template vocabulary
func BuildPurchaseOrderPayload(po *models.PurchaseOrder, opts Options) (Payload, error) {
	if err := requireField("number", po.Number); err != nil {
		return nil, err
	}
	if err := requireField("supplier.name", po.Supplier.Name); err != nil {
		return nil, err
	}

	currency := resolveCurrency(opts, po.Currency)
	p := basePayload(po.Number, po.IssuedAt, currency, opts)
	p["quotation_ref"] = po.QuotationRef
	p["job_order_ref"] = po.JobOrderRef
	p["delivery_date"] = formatDate(po.DeliveryDate)
	p["delivery_address"] = po.DeliveryAddress
	p["approved_by"] = po.ApprovedBy
	p["supplier"] = partyBlock(po.Supplier.Name, po.Supplier.ContactName, po.Supplier.Email, po.Supplier.Phone, po.Supplier.Address, po.Supplier.TaxID)
	if company := companyBlock(opts, po.Company); company != nil {
		p["company"] = company
	}

	lines := make([]pricedLine, len(po.Items))
	for i, item := range po.Items {
		lines[i] = pricedLine{
			position:    item.Position,
			description: item.Description,
			partNumber:  item.PartNumber,
			quantity:    item.Quantity,
			unit:        item.Unit,
			unitPrice:   item.UnitPrice,
			unitGroup:   item.UnitGroup,
		}
	}
	rows, subtotal := buildLines(lines)
	p["items"] = rows
	p["item_count"] = len(rows)
	totals(p, subtotal, 0, currency, opts.Tax)

	setText(p, "payment_terms", po.PaymentTerms)
	setText(p, "delivery_terms", po.DeliveryTerms)
	setText(p, "notes", po.Notes)
	return p, nil
}

// BuildCertificatePayload maps a certificate of conformity onto its template vocabulary
func BuildCertificatePayload(c *models.Certificate, opts Options) (Payload, error) {
	if err := requireField("number", c.Number); err != nil {
		return nil, err
	}
	if err := requireField("client.name", c.Client.Name); err != nil {
		return nil, err
	}

	p := basePayload(c.Number, c.IssuedAt, resolveCurrency(opts, ""), opts)
	delete(p, "currency")
	p["client_po_ref"] = c.ClientPORef
	p["job_order_ref"] = c.JobOrderRef
	p["statement"] = cleanText(c.Statement)
	p["inspector"] = map[string]any{
		"name":  c.InspectorName,
		"title": c.InspectorTitle,
	}
	p["client"] = partyBlock(c.Client.Name, c.Client.ContactName, c.Client.Email, c.Client.Phone, c.Client.Address, c.Client.TaxID)
	if company := companyBlock(opts, c.Company); company != nil {
		p["company"] = company
	}

	items := append([]models.CertificateItem(nil), c.Items...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	rows := make([]any, len(items))
	for i, item := range items {
		rows[i] = map[string]any{
			"no":            i + 1,
			"description":   cleanText(item.Description),
			"quantity":      formatQuantity(item.Quantity),
			"unit":          item.Unit,
			"serial_number": item.SerialNumber,
			"standard":      item.Standard,
		}
	}
	p["items"] = rows
	p["item_count"] = len(rows)

	setText(p, "remarks", c.Remarks)
	return p, nil
}
