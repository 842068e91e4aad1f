package docgen

import "fmt"

// Kind identifies a document template family
type Kind string

const (
	KindQuotation     Kind = "quotation"
	KindPurchaseOrder Kind = "purchase_order"
	KindCertificate   Kind = "certificate"
)

// ParseKind accepts both the canonical kind and its URL slug
func ParseKind(s string) (Kind, error) {
	switch s {
	case "quotation", "quotations":
		return KindQuotation, nil
	case "purchase_order", "purchase-order", "purchase-orders":
		return KindPurchaseOrder, nil
	case "certificate", "certificates", "coc":
		return KindCertificate, nil
	default:
		return "", &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown document kind %q", s)}
	}
}

// Format is the requested output format
type Format string

const (
	FormatDOCX Format = "docx"
	FormatPDF  Format = "pdf"
)

// Content types for generated output
const (
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypePDF  = "application/pdf"
)

// ParseFormat defaults to docx when s is empty
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "docx":
		return FormatDOCX, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", &ValidationError{Field: "format", Reason: fmt.Sprintf("unsupported format %q", s)}
	}
}

// ContentType returns the MIME type for the format
func (f Format) ContentType() string {
	if f == FormatPDF {
		return ContentTypePDF
	}
	return ContentTypeDOCX
}

// Stage names a step of the generation pipeline
type Stage string

const (
	StagePayload   Stage = "payload"
	StageTemplate  Stage = "template"
	StageRender    Stage = "render"
	StageNormalize Stage = "normalize"
	StageConvert   Stage = "convert"
)
