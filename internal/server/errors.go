package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	billingdomain "github.com/smallbiznis/dairyos/internal/billing/domain"
	consumptiondomain "github.com/smallbiznis/dairyos/internal/consumption/domain"
	paymentdomain "github.com/smallbiznis/dairyos/internal/payment/domain"
	pricedomain "github.com/smallbiznis/dairyos/internal/pricecatalog/domain"
	recondomain "github.com/smallbiznis/dairyos/internal/reconciliation/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrNotFound           = errors.New("not_found")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return ErrInvalidRequest
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: validationErrorMessage(err),
		}

	case errors.Is(err, consumptiondomain.ErrEntryLocked):
		message := "entry is outside the editable window"
		var locked *consumptiondomain.EntryLockedError
		if errors.As(err, &locked) {
			message = locked.Error()
		}
		return http.StatusConflict, errorPayload{
			Type:    "entry_locked",
			Message: message,
		}

	case errors.Is(err, billingdomain.ErrGenerationInProgress):
		return http.StatusConflict, errorPayload{
			Type:    "busy",
			Message: "generation already in progress, retry shortly",
		}
	case errors.Is(err, billingdomain.ErrConcurrentModification):
		return http.StatusConflict, errorPayload{
			Type:    "concurrent_modification",
			Message: "bill changed concurrently, retry",
		}

	case errors.Is(err, paymentdomain.ErrBillAlreadyPaid):
		return http.StatusConflict, errorPayload{
			Type:    "already_paid",
			Message: "bill is already paid",
		}

	// Security rejections return one generic shape: the caller learns
	// nothing about which gate failed.
	case errors.Is(err, paymentdomain.ErrInvalidSignature),
		errors.Is(err, paymentdomain.ErrMissingSignature),
		errors.Is(err, paymentdomain.ErrTimestampSkew),
		errors.Is(err, paymentdomain.ErrInvalidTimestamp),
		errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrInvalidEvent):
		return http.StatusBadRequest, errorPayload{
			Type:    "webhook_rejected",
			Message: "webhook rejected",
		}

	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}

	case errors.Is(err, paymentdomain.ErrProviderUnavailable),
		errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}

	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, pricedomain.ErrInvalidName),
		errors.Is(err, pricedomain.ErrInvalidID),
		errors.Is(err, pricedomain.ErrInvalidPrice),
		errors.Is(err, pricedomain.ErrInvalidDate),
		errors.Is(err, consumptiondomain.ErrInvalidID),
		errors.Is(err, consumptiondomain.ErrInvalidDate),
		errors.Is(err, consumptiondomain.ErrInvalidQuantity),
		errors.Is(err, consumptiondomain.ErrInvalidRange),
		errors.Is(err, billingdomain.ErrInvalidID),
		errors.Is(err, billingdomain.ErrInvalidMonth),
		errors.Is(err, paymentdomain.ErrInvalidID),
		errors.Is(err, recondomain.ErrInvalidDate):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, pricedomain.ErrCustomerNotFound),
		errors.Is(err, pricedomain.ErrNoPriceConfigured),
		errors.Is(err, consumptiondomain.ErrCustomerNotFound),
		errors.Is(err, billingdomain.ErrCustomerNotFound),
		errors.Is(err, billingdomain.ErrBillNotFound),
		errors.Is(err, paymentdomain.ErrBillNotFound),
		errors.Is(err, paymentdomain.ErrPaymentNotFound),
		errors.Is(err, paymentdomain.ErrProviderNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorMessage(err error) string {
	code := err.Error()
	if code == "invalid_request" {
		return "invalid request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return "invalid " + strings.TrimPrefix(code, "invalid_")
	}
	return "validation error"
}
