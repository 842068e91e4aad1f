package middleware

import (
	"errors"
	"net/http"
	"strings"

	"tradeops_app_go/models"
	"tradeops_app_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const (
	// HeaderCompany selects the tenant by slug or ID
	HeaderCompany = "X-Company"
	// ContextKeyCompany is the context key for the resolved company
	ContextKeyCompany = "company"
	// ContextKeyCompanyID is the context key for the resolved company ID
	ContextKeyCompanyID = "company_id"
)

// RequireCompany resolves the tenant from the X-Company header
func RequireCompany(db *gorm.DB) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ref := strings.TrimSpace(c.Request().Header.Get(HeaderCompany))
			if ref == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "X-Company header is required")
			}

			company, err := services.LoadCompanyProfileBySlug(db, strings.ToLower(ref))
			if errors.Is(err, gorm.ErrRecordNotFound) {
				company, err = services.LoadCompanyProfile(db, ref)
			}
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return echo.NewHTTPError(http.StatusNotFound, "Company not found")
				}
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to resolve company").SetInternal(err)
			}

			c.Set(ContextKeyCompany, company)
			c.Set(ContextKeyCompanyID, company.ID)
			return next(c)
		}
	}
}

// GetCurrentCompany returns the company resolved by RequireCompany
func GetCurrentCompany(c echo.Context) *models.CompanyProfile {
	company, ok := c.Get(ContextKeyCompany).(*models.CompanyProfile)
	if !ok {
		return nil
	}
	return company
}

// GetCompanyScopedQuery returns a GORM query scoped to the current company
func GetCompanyScopedQuery(c echo.Context, db *gorm.DB) *gorm.DB {
	company := GetCurrentCompany(c)
	if company == nil {
		// Return query that matches nothing
		return db.Where("1 = 0")
	}
	return db.Where("company_id = ?", company.ID)
}
