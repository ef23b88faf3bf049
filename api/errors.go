package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/Domenick1991/fareledger/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// statusFor maps business codes to HTTP statuses; anything else is a 500.
func statusFor(err error) int {
	switch domain.CodeOf(err) {
	case domain.CodeInvalidInput:
		return http.StatusBadRequest
	case domain.CodeFlightNotFound, domain.CodeBookingNotFound:
		return http.StatusNotFound
	case domain.CodeNoSeatsAvailable, domain.CodeSeatAlreadyTaken,
		domain.CodeAlreadyCancelled, domain.CodeCancellationWindowClosed:
		return http.StatusConflict
	case domain.CodePaymentDeclined:
		return http.StatusPaymentRequired
	case domain.CodeFlightNotBookable:
		return http.StatusUnprocessableEntity
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, errorResponse{Error: http.StatusText(status)})
		return
	}
	c.JSON(status, errorResponse{Error: err.Error(), Code: string(domain.CodeOf(err))})
}
