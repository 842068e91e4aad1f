package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"tradeops_app_go/config"
	"tradeops_app_go/models"
	"tradeops_app_go/services/docgen"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DocumentRequest identifies the record to render and how
type DocumentRequest struct {
	CompanyID string
	Kind      docgen.Kind
	EntityID  string
	Format    docgen.Format
	Currency  string // overrides the record currency
	Profile   string // overrides the company slug for template lookup
	UserName  string // recorded on archived documents
}

// DocumentService generates documents for stored records and delivers them
type DocumentService struct {
	DB        *gorm.DB
	Generator *docgen.Generator
	Storage   StorageProvider
	Config    *config.Config
	Logger    *zap.Logger

	// Send delivers email; defaults to SendEmail
	Send func(cfg *config.Config, email *Email) error
}

// NewDocumentService creates a DocumentService
func NewDocumentService(db *gorm.DB, generator *docgen.Generator, storage StorageProvider, cfg *config.Config, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		DB:        db,
		Generator: generator,
		Storage:   storage,
		Config:    cfg,
		Logger:    logger,
		Send:      SendEmail,
	}
}

// Generate loads the record and runs the document pipeline on it
func (s *DocumentService) Generate(ctx context.Context, req DocumentRequest) (*docgen.Document, error) {
	entity, err := LoadRecord(s.DB.WithContext(ctx), req.Kind, req.CompanyID, req.EntityID)
	if err != nil {
		return nil, err
	}
	return s.generateFor(ctx, req, entity)
}

// generateFor runs the pipeline on an already loaded record
func (s *DocumentService) generateFor(ctx context.Context, req DocumentRequest, entity any) (*docgen.Document, error) {
	company := companyOf(entity)
	if company.DefaultCurrency == "" && s.Config != nil {
		company.DefaultCurrency = s.Config.DefaultCurrency
	}
	profile := req.Profile
	if profile == "" {
		profile = company.Slug
	}

	opts := docgen.Options{
		Format:         req.Format,
		Currency:       req.Currency,
		CompanyProfile: profile,
	}
	if company.ID != "" {
		opts.Company = &company
	}
	return s.Generator.Generate(ctx, req.Kind, entity, opts)
}

// Archive generates the document, uploads it and records a GeneratedDocument row
func (s *DocumentService) Archive(ctx context.Context, req DocumentRequest) (*models.GeneratedDocument, error) {
	doc, err := s.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	key := GenerateGeneratedDocumentKey(req.CompanyID, req.Kind, doc.Filename)
	stored, err := s.Storage.UploadReader(ctx, bytes.NewReader(doc.Bytes), key, doc.ContentType, int64(len(doc.Bytes)))
	if err != nil {
		return nil, fmt.Errorf("failed to store generated document: %w", err)
	}

	format := req.Format
	if format == "" {
		format = docgen.FormatDOCX
	}
	record := &models.GeneratedDocument{
		CompanyID:   req.CompanyID,
		Kind:        string(req.Kind),
		EntityID:    req.EntityID,
		Format:      string(format),
		Template:    doc.Template,
		FileName:    doc.Filename,
		FilePath:    stored.Key,
		FileSize:    stored.FileSize,
		MimeType:    doc.ContentType,
		Pages:       doc.Pages,
		GeneratedBy: req.UserName,
	}
	if err := s.DB.WithContext(ctx).Create(record).Error; err != nil {
		// Don't leave an orphaned object behind
		if delErr := s.Storage.Delete(ctx, stored.Key); delErr != nil {
			s.Logger.Warn("failed to remove orphaned document", zap.String("key", stored.Key), zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to record generated document: %w", err)
	}

	s.Logger.Info("document archived",
		zap.String("company_id", req.CompanyID),
		zap.String("kind", string(req.Kind)),
		zap.String("entity_id", req.EntityID),
		zap.String("key", stored.Key),
	)
	return record, nil
}

// Email generates the document (PDF unless a format is given) and mails it as an attachment.
// With no recipients the record's client or supplier email is used.
func (s *DocumentService) Email(ctx context.Context, req DocumentRequest, to []string) error {
	if req.Format == "" {
		req.Format = docgen.FormatPDF
	}

	entity, err := LoadRecord(s.DB.WithContext(ctx), req.Kind, req.CompanyID, req.EntityID)
	if err != nil {
		return err
	}
	recipients := cleanRecipients(to)
	if len(recipients) == 0 {
		if addr := counterpartyEmail(entity); addr != "" {
			recipients = []string{addr}
		}
	}
	if len(recipients) == 0 {
		return &docgen.ValidationError{Field: "to", Reason: "no recipient given and the record has no contact email"}
	}

	doc, err := s.generateFor(ctx, req, entity)
	if err != nil {
		return err
	}

	_, number := docgen.EntityIdentity(entity)
	email := BuildDocumentEmail(recipients, companyOf(entity).Name, KindTitle(req.Kind), number, EmailAttachment{
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		Content:     doc.Bytes,
	})

	send := s.Send
	if send == nil {
		send = SendEmail
	}
	if err := send(s.Config, email); err != nil {
		return fmt.Errorf("failed to email document: %w", err)
	}
	return nil
}

// GetGeneratedDocument fetches an archived document scoped to a company
func GetGeneratedDocument(db *gorm.DB, companyID, id string) (*models.GeneratedDocument, error) {
	var doc models.GeneratedDocument
	if err := db.Where("company_id = ? AND id = ?", companyID, id).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// DownloadURL returns a link to an archived document valid for expiration
func (s *DocumentService) DownloadURL(ctx context.Context, doc *models.GeneratedDocument, expiration time.Duration) (string, error) {
	if url := s.Storage.GetPublicURL(doc.FilePath); url != "" {
		return url, nil
	}
	return s.Storage.GetSignedURL(ctx, doc.FilePath, expiration)
}

// KindTitle is the human readable name of a document kind
func KindTitle(kind docgen.Kind) string {
	switch kind {
	case docgen.KindQuotation:
		return "Quotation"
	case docgen.KindPurchaseOrder:
		return "Purchase Order"
	case docgen.KindCertificate:
		return "Certificate of Conformance"
	default:
		return "Document"
	}
}

func companyOf(entity any) models.CompanyProfile {
	switch e := entity.(type) {
	case *models.Quotation:
		return e.Company
	case *models.PurchaseOrder:
		return e.Company
	case *models.Certificate:
		return e.Company
	}
	return models.CompanyProfile{}
}

func counterpartyEmail(entity any) string {
	switch e := entity.(type) {
	case *models.Quotation:
		return e.Client.Email
	case *models.PurchaseOrder:
		return e.Supplier.Email
	case *models.Certificate:
		return e.Client.Email
	}
	return ""
}

func cleanRecipients(to []string) []string {
	var out []string
	for _, item := range to {
		for _, addr := range strings.Split(item, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				out = append(out, addr)
			}
		}
	}
	return out
}
