package services

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"tradeops_app_go/models"

	"github.com/xuri/excelize/v2"
)

// ContentTypeXLSX is the MIME type of exported spreadsheets
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const sheetLineItems = "Line Items"

type exportLine struct {
	position    int
	description string
	partNumber  string
	quantity    float64
	unit        string
	unitPrice   float64
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// ExportQuotationItems writes the quotation lines as an .xlsx schedule
func ExportQuotationItems(q *models.Quotation) (*bytes.Buffer, error) {
	lines := make([]exportLine, 0, len(q.Items))
	for _, it := range q.Items {
		lines = append(lines, exportLine{
			position:    it.Position,
			description: it.Description,
			quantity:    it.Quantity,
			unit:        it.Unit,
			unitPrice:   it.UnitPrice,
		})
	}
	title := fmt.Sprintf("Quotation %s - %s", q.Number, q.Client.Name)
	return writeLineItems(title, q.Currency, false, lines)
}

// ExportPurchaseOrderItems writes the purchase order lines, including part numbers
func ExportPurchaseOrderItems(po *models.PurchaseOrder) (*bytes.Buffer, error) {
	lines := make([]exportLine, 0, len(po.Items))
	for _, it := range po.Items {
		lines = append(lines, exportLine{
			position:    it.Position,
			description: it.Description,
			partNumber:  it.PartNumber,
			quantity:    it.Quantity,
			unit:        it.Unit,
			unitPrice:   it.UnitPrice,
		})
	}
	title := fmt.Sprintf("Purchase Order %s - %s", po.Number, po.Supplier.Name)
	return writeLineItems(title, po.Currency, true, lines)
}

func writeLineItems(title, currency string, withPartNumber bool, lines []exportLine) (*bytes.Buffer, error) {
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].position < lines[j].position })

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetLineItems); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headers := []string{"No", "Description"}
	if withPartNumber {
		headers = append(headers, "Part No")
	}
	headers = append(headers, "Qty", "Unit", "Unit Price ("+currency+")", "Amount ("+currency+")")
	lastCol, _ := excelize.ColumnNumberToName(len(headers))

	f.SetCellValue(sheetLineItems, "A1", title)
	titleStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	f.SetCellStyle(sheetLineItems, "A1", "A1", titleStyle)

	const headerRow = 3
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		f.SetCellValue(sheetLineItems, cell, header)
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "#000000", Style: 1}},
	})
	f.SetCellStyle(sheetLineItems, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("%s%d", lastCol, headerRow), headerStyle)

	moneyFormat := "#,##0.00"
	moneyStyle, _ := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFormat})

	var subtotal float64
	row := headerRow
	for i, line := range lines {
		row = headerRow + 1 + i
		amount := roundCents(line.quantity * line.unitPrice)
		subtotal += amount

		values := []any{i + 1, line.description}
		if withPartNumber {
			values = append(values, line.partNumber)
		}
		values = append(values, line.quantity, line.unit, line.unitPrice, amount)

		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetLineItems, start, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}
		priceCol, _ := excelize.ColumnNumberToName(len(headers) - 1)
		f.SetCellStyle(sheetLineItems, fmt.Sprintf("%s%d", priceCol, row), fmt.Sprintf("%s%d", lastCol, row), moneyStyle)
	}

	totalRow := row + 1
	labelCol, _ := excelize.ColumnNumberToName(len(headers) - 1)
	f.SetCellValue(sheetLineItems, fmt.Sprintf("%s%d", labelCol, totalRow), "Subtotal")
	f.SetCellValue(sheetLineItems, fmt.Sprintf("%s%d", lastCol, totalRow), roundCents(subtotal))
	totalStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, CustomNumFmt: &moneyFormat})
	f.SetCellStyle(sheetLineItems, fmt.Sprintf("%s%d", labelCol, totalRow), fmt.Sprintf("%s%d", lastCol, totalRow), totalStyle)

	f.SetColWidth(sheetLineItems, "A", "A", 6)
	f.SetColWidth(sheetLineItems, "B", "B", 48)
	f.SetColWidth(sheetLineItems, "C", lastCol, 16)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}
