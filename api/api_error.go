package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log/level"
	"github.com/go-playground/validator/v10"
	"github.com/quresis/go-quresis-server/global"
	"github.com/quresis/go-quresis-server/types"
)

type ApiError struct {
	// Code is the HTTP status code
	Code int `json:"code"`
	// Message is the error message
	Message string `json:"message"`
	// Error is the error kind (e.g. IdentityFrozen)
	Error string `json:"error,omitempty"`
}

func ApiErrorf(c *gin.Context, code int, format string, args ...interface{}) ApiError {
	ar := ApiError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
	c.AbortWithStatusJSON(code, ar)
	return ar
}

// ApiServiceError aborts with the status and kind of a service error
func ApiServiceError(c *gin.Context, err error) ApiError {
	code := StatusFromError(err)
	ar := ApiError{
		Code:    code,
		Message: err.Error(),
		Error:   types.ErrorKind(err),
	}
	if code == http.StatusInternalServerError {
		level.Error(global.Logger).Log("msg", "request failed", "path", c.FullPath(), "err", err)
		ar.Message = "internal error"
	}
	c.AbortWithStatusJSON(code, ar)
	return ar
}

// StatusFromError maps the error kinds to HTTP status codes
func StatusFromError(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidKeyLength),
		errors.Is(err, types.ErrInvalidThreshold),
		errors.Is(err, types.ErrMessageTooLarge),
		errors.Is(err, types.ErrInvalidEnforcementMode),
		errors.Is(err, types.ErrInvalidPublicKey),
		errors.Is(err, types.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrInvalidQuantumSignature):
		return http.StatusUnauthorized
	case errors.Is(err, types.ErrUnauthorized),
		errors.Is(err, types.ErrQuantumSignatureRequired):
		return http.StatusForbidden
	case errors.Is(err, types.ErrIdentityFrozen):
		return http.StatusLocked
	case errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrHookNotInitialized):
		return http.StatusNotFound
	case errors.Is(err, types.ErrIdentityExists),
		errors.Is(err, types.ErrHookExists),
		errors.Is(err, types.ErrConflict),
		errors.Is(err, types.ErrSequenceMismatch):
		return http.StatusConflict
	case errors.Is(err, types.ErrInvalidIdentityData):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func ValidatorErrorToUser(err validator.ValidationErrors) string {
	var errorMessages []string
	for _, err := range err {
		switch err.Tag() {
		case "required":
			errorMessages = append(errorMessages, fmt.Sprintf("%s is required", err.Field()))
		case "gt", "min":
			errorMessages = append(errorMessages, fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param()))
		default:
			errorMessages = append(errorMessages, fmt.Sprintf("validation failed on field %s", err.Field()))
		}
	}
	return strings.Join(errorMessages, ". ")
}

// bindAndValidate decodes the JSON body into input and runs the struct validator
func bindAndValidate(c *gin.Context, validate *validator.Validate, input interface{}) bool {
	if err := c.ShouldBindJSON(input); err != nil {
		if errors.Is(err, types.ErrInvalidEnforcementMode) || errors.Is(err, types.ErrInvalidPublicKey) {
			ApiServiceError(c, err)
			return false
		}
		ApiErrorf(c, http.StatusBadRequest, "invalid input")
		return false
	}
	if err := validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			ApiErrorf(c, http.StatusBadRequest, "%s", ValidatorErrorToUser(verrs))
			return false
		}
		ApiErrorf(c, http.StatusBadRequest, "invalid input")
		return false
	}
	return true
}
