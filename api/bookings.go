package api

import (
	"net/http"

	"github.com/Domenick1991/fareledger/internal/domain"
	"github.com/Domenick1991/fareledger/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	FlightID      int64            `json:"flight_id" binding:"required"`
	Passenger     domain.Passenger `json:"passenger"`
	SeatNumber    string           `json:"seat_number" binding:"required"`
	PaymentMethod string           `json:"payment_method"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

// Register mounts the booking routes; writes go through the extra
// middleware (rate limiting).
func (h *BookingHandler) Register(router *gin.RouterGroup, writes ...gin.HandlerFunc) {
	chain := func(next gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, writes...), next)
	}
	router.POST("", chain(h.create)...)
	router.GET("/:pnr", h.get)
	router.DELETE("/:pnr", chain(h.cancel)...)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: string(domain.CodeInvalidInput)})
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		FlightID:      req.FlightID,
		Passenger:     req.Passenger,
		SeatNumber:    req.SeatNumber,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *BookingHandler) get(c *gin.Context) {
	details, err := h.service.GetBookingDetails(c.Request.Context(), c.Param("pnr"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	b, err := h.service.CancelBooking(c.Request.Context(), c.Param("pnr"), c.Query("reason"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
