package handlers

import (
	"net/http"

	"tradeops_app_go/config"
	"tradeops_app_go/services"
	"tradeops_app_go/services/docgen"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// HealthHandler reports database reachability and whether PDF conversion is available
func HealthHandler(db *gorm.DB, conv *docgen.OfficeConverter) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp := map[string]string{"status": "ok", "database": "ok", "converter": "unavailable"}
		status := http.StatusOK

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request().Context()) != nil {
			resp["status"], resp["database"] = "degraded", "unreachable"
			status = http.StatusServiceUnavailable
		}
		if conv != nil {
			if path, err := conv.ResolveExecutable(); err == nil {
				resp["converter"] = path
			}
		}
		return c.JSON(status, resp)
	}
}

// ReloadTemplatesHandler drops cached templates so edited files are picked up
func ReloadTemplatesHandler(registry *docgen.Registry) echo.HandlerFunc {
	return func(c echo.Context) error {
		registry.Invalidate()
		return c.NoContent(http.StatusNoContent)
	}
}

// UploadTemplateHandler stores an uploaded .docx template and drops the cache.
// The form field "name" overrides the uploaded file name.
func UploadTemplateHandler(cfg *config.Config, storage services.StorageProvider, registry *docgen.Registry) echo.HandlerFunc {
	return func(c echo.Context) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file is required"})
		}
		name := c.FormValue("name")
		if name == "" {
			name = fileHeader.Filename
		}
		if err := services.ValidateTemplateName(name); err != nil {
			return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		}

		content, err := services.ReadTemplateUpload(fileHeader)
		if err != nil {
			return c.JSON(DocumentErrorStatus(err), ErrorResponse{Error: err.Error()})
		}

		result, err := services.SaveTemplate(c.Request().Context(), cfg, storage, name, content)
		if err != nil {
			return c.JSON(DocumentErrorStatus(err), ErrorResponse{Error: err.Error()})
		}
		registry.Invalidate()
		return c.JSON(http.StatusCreated, result)
	}
}
