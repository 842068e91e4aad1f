package handlers

import (
	"errors"
	"net/http"

	"tradeops_app_go/services/docgen"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrorResponse is the JSON body of every failed API request
type ErrorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// DocumentErrorStatus maps a generation failure to its HTTP status
func DocumentErrorStatus(err error) int {
	var (
		validation *docgen.ValidationError
		notFound   *docgen.TemplateNotFoundError
		render     *docgen.TemplateRenderError
		noEngine   *docgen.ConverterNotFoundError
		timeout    *docgen.ConversionTimeoutError
		failed     *docgen.ConversionFailedError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity
	case errors.As(err, &notFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.As(err, &render):
		return http.StatusInternalServerError
	case errors.As(err, &noEngine):
		return http.StatusServiceUnavailable
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &failed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func documentError(c echo.Context, kind docgen.Kind, err error) error {
	status := DocumentErrorStatus(err)
	resp := ErrorResponse{Error: err.Error(), Kind: string(kind)}

	var stageErr *docgen.StageError
	if errors.As(err, &stageErr) {
		resp.Stage = string(stageErr.Stage)
		if stageErr.Kind != "" {
			resp.Kind = string(stageErr.Kind)
		}
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		resp.Error = "record not found"
	}

	if status >= http.StatusInternalServerError {
		zap.L().Named("documents").Error("document request failed",
			zap.String("kind", resp.Kind),
			zap.String("stage", resp.Stage),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}
	return c.JSON(status, resp)
}

// HTTPErrorHandler renders echo errors as ErrorResponse JSON
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := http.StatusText(status)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if msg, ok := he.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(status)
		}
	}
	if status >= http.StatusInternalServerError {
		zap.L().Named("http").Error("request failed", zap.String("path", c.Request().URL.Path), zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, ErrorResponse{Error: message})
}
