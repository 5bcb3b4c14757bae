// internal/interfaces/http/handlers/response.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/your-org/storefront-backend/internal/infrastructure/database"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// respond writes the standard success envelope
func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{
		"message": message,
		"data":    data,
	})
}

// respondError maps a domain error onto the error envelope.
// Server-side failures keep their detail out of the body and attach it to the
// request for the access log.
func respondError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	kind := apperror.KindOf(err)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		c.Set(middleware.ContextDBErrorClass, database.ClassifyError(err).String())
		message = "Internal server error"
		if kind == apperror.KindDataInconsistency {
			message = "Request could not be completed consistently; please contact support"
		}
	}

	c.JSON(status, gin.H{
		"error": message,
		"code":  kind,
	})
}

// respondBindError reports malformed request bodies and query strings
func respondBindError(c *gin.Context, err error) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "Request body too large",
			"code":  apperror.KindValidation,
		})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request data",
		"code":    apperror.KindValidation,
		"details": err.Error(),
	})
}

// parseID reads a positive numeric path parameter
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name,
			"code":  apperror.KindValidation,
		})
		return 0, false
	}
	return uint(id), true
}

// currentUser returns the authenticated caller or writes 401
func currentUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
			"code":  apperror.KindUnauthorized,
		})
		return 0, false
	}
	return userID, true
}
