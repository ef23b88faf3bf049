package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/fareledger/internal/domain"
	"github.com/Domenick1991/fareledger/internal/service/flights"
	"github.com/gin-gonic/gin"
)

type SeatMapper interface {
	GenerateSeatMap(ctx context.Context, flightID int64) (*domain.SeatMap, error)
}

type FlightHandler struct {
	service flights.FlightUseCase
	seats   SeatMapper
}

func NewFlightHandler(service flights.FlightUseCase, seats SeatMapper) *FlightHandler {
	return &FlightHandler{service: service, seats: seats}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/search", h.search)
	router.GET("/:id", h.get)
	router.GET("/:id/fare", h.fare)
	router.GET("/:id/fare/projection", h.projection)
	router.GET("/:id/fare/trends", h.trends)
	router.GET("/:id/seats", h.seatMap)
}

func (h *FlightHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// search answers /flights/search?from=&to=&date=YYYY-MM-DD[&max_price=cents][&sort=departure|fare].
func (h *FlightHandler) search(c *gin.Context) {
	date, err := time.Parse(time.DateOnly, c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "date must be YYYY-MM-DD", Code: string(domain.CodeInvalidInput)})
		return
	}
	var maxPrice int64
	if raw := c.Query("max_price"); raw != "" {
		maxPrice, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid max_price", Code: string(domain.CodeInvalidInput)})
			return
		}
	}

	offers, err := h.service.Search(c.Request.Context(), flights.SearchQuery{
		Origin:        c.Query("from"),
		Destination:   c.Query("to"),
		Date:          date,
		MaxPriceCents: maxPrice,
		SortBy:        c.Query("sort"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(offers), "results": offers})
}

func (h *FlightHandler) get(c *gin.Context) {
	id, ok := flightID(c)
	if !ok {
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) fare(c *gin.Context) {
	id, ok := flightID(c)
	if !ok {
		return
	}
	quote, err := h.service.QuoteFare(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *FlightHandler) projection(c *gin.Context) {
	id, ok := flightID(c)
	if !ok {
		return
	}
	hours, ok := intQuery(c, "hours")
	if !ok {
		return
	}
	points, err := h.service.ProjectFares(c.Request.Context(), id, hours)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flight_id": id, "projections": points})
}

func (h *FlightHandler) trends(c *gin.Context) {
	id, ok := flightID(c)
	if !ok {
		return
	}
	days, ok := intQuery(c, "days")
	if !ok {
		return
	}
	trend, err := h.service.FareTrends(c.Request.Context(), id, days)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flight_id": id, "fare_trends": trend})
}

func (h *FlightHandler) seatMap(c *gin.Context) {
	id, ok := flightID(c)
	if !ok {
		return
	}
	m, err := h.seats.GenerateSeatMap(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func flightID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid id", Code: string(domain.CodeInvalidInput)})
		return 0, false
	}
	return id, true
}

// intQuery reads an optional integer parameter; absent means 0.
func intQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid " + name, Code: string(domain.CodeInvalidInput)})
		return 0, false
	}
	return v, true
}
