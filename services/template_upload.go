package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"tradeops_app_go/config"
	"tradeops_app_go/services/docgen"
)

const MaxTemplateSize = 10 * 1024 * 1024 // 10MB

// TemplateUploadResult describes a stored template
type TemplateUploadResult struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	FileSize int64  `json:"file_size"`
}

// ValidateTemplateName accepts plain .docx file names only
func ValidateTemplateName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return &docgen.ValidationError{Field: "name", Reason: "template name must be a plain file name"}
	}
	if strings.ToLower(filepath.Ext(name)) != ".docx" {
		return &docgen.ValidationError{Field: "name", Reason: "only .docx templates are allowed"}
	}
	return nil
}

// ReadTemplateUpload checks size and structure of an uploaded template and returns its bytes
func ReadTemplateUpload(fileHeader *multipart.FileHeader) ([]byte, error) {
	if fileHeader.Size > MaxTemplateSize {
		return nil, &docgen.ValidationError{Field: "file", Reason: "file size exceeds maximum allowed size of 10MB"}
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	b, err := io.ReadAll(io.LimitReader(file, MaxTemplateSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}
	if len(b) > MaxTemplateSize {
		return nil, &docgen.ValidationError{Field: "file", Reason: "file size exceeds maximum allowed size of 10MB"}
	}

	// Word packages are zip archives with a main document part
	if !bytes.HasPrefix(b, []byte("PK\x03\x04")) {
		return nil, &docgen.ValidationError{Field: "file", Reason: "file is not a valid .docx package"}
	}
	if _, err := docgen.OpenPackage(b); err != nil {
		return nil, &docgen.ValidationError{Field: "file", Reason: err.Error()}
	}
	return b, nil
}

// SaveTemplate writes template bytes to wherever the registry reads templates from
func SaveTemplate(ctx context.Context, cfg *config.Config, provider StorageProvider, name string, content []byte) (*TemplateUploadResult, error) {
	if err := ValidateTemplateName(name); err != nil {
		return nil, err
	}

	if cfg.TemplateSource == config.TemplateSourceStorage {
		if provider == nil {
			return nil, fmt.Errorf("storage is not configured")
		}
		result, err := provider.UploadReader(ctx, bytes.NewReader(content), TemplateKey(name), docgen.ContentTypeDOCX, int64(len(content)))
		if err != nil {
			return nil, err
		}
		return &TemplateUploadResult{Name: name, Location: result.Key, FileSize: result.FileSize}, nil
	}

	if err := os.MkdirAll(cfg.TemplateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create template directory: %w", err)
	}

	// Write then rename so concurrent renders never read a partial file
	target := filepath.Join(cfg.TemplateDir, name)
	tmp, err := os.CreateTemp(cfg.TemplateDir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	return &TemplateUploadResult{Name: name, Location: target, FileSize: int64(len(content))}, nil
}
