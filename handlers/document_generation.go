package handlers

import (
	"bytes"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradeops_app_go/middleware"
	"tradeops_app_go/services"
	"tradeops_app_go/services/docgen"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// downloadLinkTTL is how long redirect links to archived documents stay valid
const downloadLinkTTL = 15 * time.Minute

// DocumentHandler serves document generation, archiving and delivery
type DocumentHandler struct {
	Service *services.DocumentService

	// Applied to the generate/archive and email routes
	GenerateLimit echo.MiddlewareFunc
	EmailLimit    echo.MiddlewareFunc
}

// NewDocumentHandler creates a DocumentHandler with the default rate limiters
func NewDocumentHandler(svc *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		Service:       svc,
		GenerateLimit: middleware.ConversionRateLimiter.Middleware(),
		EmailLimit:    middleware.EmailRateLimiter.Middleware(),
	}
}

// Register mounts the document routes on a company scoped group
func (h *DocumentHandler) Register(g *echo.Group) {
	g.POST("/:kind/:id/document", h.GenerateDocument, h.GenerateLimit)
	g.POST("/:kind/:id/document/archive", h.ArchiveDocument, h.GenerateLimit)
	g.POST("/:kind/:id/document/email", h.EmailDocument, h.EmailLimit)
	g.GET("/:kind/:id/items.xlsx", h.ExportLineItems)
	g.GET("/documents/:docId/download", h.DownloadDocument)
}

func (h *DocumentHandler) documentRequest(c echo.Context) (services.DocumentRequest, error) {
	kind, err := docgen.ParseKind(c.Param("kind"))
	if err != nil {
		return services.DocumentRequest{}, err
	}
	format, err := docgen.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return services.DocumentRequest{}, err
	}
	return services.DocumentRequest{
		CompanyID: c.Get(middleware.ContextKeyCompanyID).(string),
		Kind:      kind,
		EntityID:  c.Param("id"),
		Format:    format,
		Currency:  c.QueryParam("currency"),
		Profile:   c.QueryParam("profile"),
		UserName:  c.Request().Header.Get("X-User"),
	}, nil
}

// GenerateDocument renders the record and returns it as an attachment
func (h *DocumentHandler) GenerateDocument(c echo.Context) error {
	req, err := h.documentRequest(c)
	if err != nil {
		return documentError(c, "", err)
	}

	doc, err := h.Service.Generate(c.Request().Context(), req)
	if err != nil {
		return documentError(c, req.Kind, err)
	}

	header := c.Response().Header()
	header.Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	header.Set("X-Document-Template", doc.Template)
	header.Set("X-Document-Warnings", strconv.Itoa(len(doc.Warnings)))
	if len(doc.Unresolved) > 0 {
		header.Set("X-Document-Unresolved", strings.Join(doc.Unresolved, ","))
	}
	if doc.Pages > 0 {
		header.Set("X-Document-Pages", strconv.Itoa(doc.Pages))
	}
	return c.Blob(http.StatusOK, doc.ContentType, doc.Bytes)
}

// ArchiveDocument renders the record, stores it and returns the archive entry
func (h *DocumentHandler) ArchiveDocument(c echo.Context) error {
	req, err := h.documentRequest(c)
	if err != nil {
		return documentError(c, "", err)
	}

	record, err := h.Service.Archive(c.Request().Context(), req)
	if err != nil {
		return documentError(c, req.Kind, err)
	}
	return c.JSON(http.StatusCreated, record)
}

// EmailDocument renders the record and mails it to the form's "to" addresses
func (h *DocumentHandler) EmailDocument(c echo.Context) error {
	req, err := h.documentRequest(c)
	if err != nil {
		return documentError(c, "", err)
	}
	if c.QueryParam("format") == "" {
		req.Format = docgen.FormatPDF
	}

	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form data")
	}

	if err := h.Service.Email(c.Request().Context(), req, form["to"]); err != nil {
		return documentError(c, req.Kind, err)
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "sent"})
}

// ExportLineItems returns the record's line items as a spreadsheet
func (h *DocumentHandler) ExportLineItems(c echo.Context) error {
	kind, err := docgen.ParseKind(c.Param("kind"))
	if err != nil {
		return documentError(c, "", err)
	}
	companyID := c.Get(middleware.ContextKeyCompanyID).(string)
	db := h.Service.DB.WithContext(c.Request().Context())

	var (
		filename string
		buf      *bytes.Buffer
	)
	switch kind {
	case docgen.KindQuotation:
		q, err := services.LoadQuotation(db, companyID, c.Param("id"))
		if err != nil {
			return documentError(c, kind, err)
		}
		if buf, err = services.ExportQuotationItems(q); err != nil {
			return documentError(c, kind, err)
		}
		filename = docgen.SafeFilenamePart(q.Number) + "_items.xlsx"
	case docgen.KindPurchaseOrder:
		po, err := services.LoadPurchaseOrder(db, companyID, c.Param("id"))
		if err != nil {
			return documentError(c, kind, err)
		}
		if buf, err = services.ExportPurchaseOrderItems(po); err != nil {
			return documentError(c, kind, err)
		}
		filename = docgen.SafeFilenamePart(po.Number) + "_items.xlsx"
	default:
		return documentError(c, kind, &docgen.ValidationError{Field: "kind", Reason: "line item export is available for quotations and purchase orders"})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	return c.Blob(http.StatusOK, services.ContentTypeXLSX, buf.Bytes())
}

// DownloadDocument streams a local archive or redirects to object storage
func (h *DocumentHandler) DownloadDocument(c echo.Context) error {
	companyID := c.Get(middleware.ContextKeyCompanyID).(string)
	doc, err := services.GetGeneratedDocument(h.Service.DB.WithContext(c.Request().Context()), companyID, c.Param("docId"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Document not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load document").SetInternal(err)
	}

	if _, local := h.Service.Storage.(*services.LocalStorage); !local {
		url, err := h.Service.DownloadURL(c.Request().Context(), doc, downloadLinkTTL)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadGateway, "Failed to create download link").SetInternal(err)
		}
		return c.Redirect(http.StatusFound, url)
	}

	reader, _, err := h.Service.Storage.Get(c.Request().Context(), doc.FilePath)
	if err != nil {
		if errors.Is(err, services.ErrObjectNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Document file is missing")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to open document").SetInternal(err)
	}
	defer reader.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	return c.Stream(http.StatusOK, doc.MimeType, reader)
}
