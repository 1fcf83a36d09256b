package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/skillupng/lms-server/internal/model"
)

// handleError maps service errors onto HTTP responses. Anything
// unrecognized becomes a generic 500 so internals never leak.
func handleError(c *gin.Context, err error) {
	_ = c.Error(err)

	var locked *model.AccountLockedError
	if errors.As(err, &locked) {
		c.JSON(http.StatusForbidden, gin.H{
			"message": fmt.Sprintf("Account locked due to too many attempts. Try again in %d minutes", locked.RetryAfterMinutes),
		})
		return
	}

	var notification *model.NotificationError
	if errors.As(err, &notification) {
		c.JSON(http.StatusBadGateway, gin.H{"message": "Failed to send email"})
		return
	}

	var fieldErrors validation.Errors
	if errors.As(err, &fieldErrors) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": fieldErrors})
		return
	}

	switch {
	case errors.Is(err, model.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
	case errors.Is(err, model.ErrTokenInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid token"})
	case errors.Is(err, model.ErrPasswordMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Passwords do not match"})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
	}
}
