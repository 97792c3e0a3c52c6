package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/torao/kazzla/internal/apperrors"
	"github.com/torao/kazzla/internal/schemas"
)

// WriteAndLogResponse writes the response object as JSON with the provided status code.
func WriteAndLogResponse(ctx *gin.Context, response interface{}, statusCode int) {
	LogMessageWithFields(ctx, "info", "Returning response")
	ctx.JSON(statusCode, response)
}

// WriteAndLogError logs the provided error and sends an error response with the specified status code and error details.
func WriteAndLogError(c *gin.Context, customErr *schemas.CustomError, statusCode int, err error) {
	LogMessageWithFieldsAndError(c, "error", "Error occurred", err)
	LogMessageWithFields(c, "error", "Returning "+customErr.Code+" / "+customErr.Message)
	errorDto := &schemas.ErrorDTO{
		Error: *customErr,
	}
	c.AbortWithStatusJSON(statusCode, errorDto)
}

// WriteAndLogServiceError maps an error returned by the service layer onto the public error catalog.
// Internal kinds stay in the log; the client only sees the generic message of the mapped entry.
func WriteAndLogServiceError(c *gin.Context, err error) {
	customErr, status := MapServiceError(err)
	WriteAndLogError(c, customErr, status, err)
}

// MapServiceError returns the catalog entry and HTTP status for err.
func MapServiceError(err error) (*schemas.CustomError, int) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		return schemas.BadRequest, http.StatusBadRequest
	case errors.Is(err, apperrors.ErrDuplicateName):
		return schemas.NameTaken, http.StatusConflict
	case errors.Is(err, apperrors.ErrDuplicateContact):
		return schemas.ContactTaken, http.StatusConflict
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return schemas.InvalidCredentials, http.StatusUnauthorized
	case apperrors.IsTicketFailure(err):
		return schemas.InvalidTicket, http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotAuthenticated):
		return schemas.Unauthorized, http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrConfirmationRequired):
		return schemas.ConfirmationRequired, http.StatusBadRequest
	case errors.Is(err, apperrors.ErrSessionMismatch):
		return schemas.SessionMismatch, http.StatusForbidden
	case errors.Is(err, apperrors.ErrPasswordChangeRequired):
		return schemas.PasswordChangeRequired, http.StatusForbidden
	case errors.Is(err, apperrors.ErrLastContact):
		return schemas.LastContact, http.StatusConflict
	case errors.Is(err, apperrors.ErrForbidden):
		return schemas.Forbidden, http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		return schemas.NotFound, http.StatusNotFound
	default:
		return schemas.DatabaseError, http.StatusInternalServerError
	}
}
