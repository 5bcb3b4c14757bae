package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

func TestRespondErrorMapsKinds(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		err     error
		status  int
		code    apperror.Kind
		message string
	}{
		{"not found", apperror.ProductNotFound(7), http.StatusNotFound, apperror.KindProductNotFound, "product 7 not found"},
		{"stock", apperror.InsufficientStock("Mug", 1, 3), http.StatusBadRequest, apperror.KindInsufficientStock, "insufficient stock for Mug: 1 available, 3 requested"},
		{"conflict", apperror.New(apperror.KindConflict, "busy"), http.StatusConflict, apperror.KindConflict, "busy"},
		{"persistence hides detail", apperror.Persistence(errors.New("dial tcp: refused"), "create order"), http.StatusInternalServerError, apperror.KindPersistence, "Internal server error"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, apperror.KindPersistence, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)

			respondError(c, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(tt.code), body["code"])
			assert.Equal(t, tt.message, body["error"])
			if tt.status >= http.StatusInternalServerError {
				assert.Len(t, c.Errors, 1)
			}
		})
	}
}

func TestRespondErrorTagsStorageErrorClass(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	respondError(c, apperror.Persistence(&pgconn.PgError{Code: "40P01"}, "reserve stock"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "deadlock", c.GetString(middleware.ContextDBErrorClass))

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	respondError(c, apperror.ProductNotFound(3))
	assert.Empty(t, c.GetString(middleware.ContextDBErrorClass))
}

func TestParseID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, raw := range []string{"0", "-4", "abc", ""} {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Params = gin.Params{{Key: "id", Value: raw}}

		_, ok := parseID(c, "id")
		assert.False(t, ok, raw)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	id, ok := parseID(c, "id")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)
}
