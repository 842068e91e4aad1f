package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		Requests: 10,
		Window:   time.Minute,
	})

	assert.NotNil(t, rl)
	assert.Equal(t, 10, rl.config.Requests)
	assert.Equal(t, time.Minute, rl.config.Window)
	assert.NotNil(t, rl.config.KeyFunc)
	assert.Equal(t, "Too many requests. Please try again later.", rl.config.Message)
}

func TestRateLimiterMiddleware(t *testing.T) {
	e := echo.New()
	ok := func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	}

	t.Run("WithinLimit", func(t *testing.T) {
		handler := NewRateLimiter(RateLimitConfig{Requests: 2, Window: time.Second}).Middleware()(ok)

		for range 2 {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			assert.NoError(t, handler(c))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})

	t.Run("ExceededLimit", func(t *testing.T) {
		handler := NewRateLimiter(RateLimitConfig{Requests: 1, Window: time.Minute}).Middleware()(ok)

		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		assert.NoError(t, handler(c))

		rec := httptest.NewRecorder()
		c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		err := handler(c)

		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusTooManyRequests, he.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("CompaniesHaveSeparateBudgets", func(t *testing.T) {
		handler := NewRateLimiter(RateLimitConfig{Requests: 1, Window: time.Minute}).Middleware()(ok)

		for _, companyID := range []string{"c-1", "c-2"} {
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
			c.Set(ContextKeyCompanyID, companyID)
			assert.NoError(t, handler(c), companyID)
		}

		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.Set(ContextKeyCompanyID, "c-1")
		assert.Error(t, handler(c))
	})
}

func TestCompanyOrIPKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:5000"
	c := e.NewContext(req, httptest.NewRecorder())

	assert.Equal(t, "ip:203.0.113.7", CompanyOrIPKey(c))
	c.Set(ContextKeyCompanyID, "c-9")
	assert.Equal(t, "company:c-9", CompanyOrIPKey(c))
}
