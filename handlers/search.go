package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"travelagent/services"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

var invalidDate = ErrorResponse{
	Error:   "Invalid date format",
	Message: "Invalid date format. Use YYYY-MM-DD format",
}

var invalidAirport = ErrorResponse{
	Error:   "Invalid airport code",
	Message: "Airport codes must be exactly 3 letters (e.g. LHR, JFK)",
}

// ─── Flights ──────────────────────────────────────────────────────────────────

type FlightRequest struct {
	Origin        string `form:"origin" binding:"required,len=3,alpha"`
	Destination   string `form:"destination" binding:"required,len=3,alpha"`
	DepartureDate string `form:"departure_date" binding:"required,datetime=2006-01-02"`
	ReturnDate    string `form:"return_date" binding:"omitempty,datetime=2006-01-02"`
	Adults        int    `form:"adults,default=1" binding:"min=1,max=9"`
	Currency      string `form:"currency" binding:"omitempty,len=3,alpha"`
	Max           int    `form:"max" binding:"omitempty,min=1,max=250"`
}

var flightParams = paramRules{
	required: []string{"origin", "destination", "departure_date"},
	optional: []string{"adults", "return_date", "currency", "max"},
	hint:     "Please provide origin and destination airport codes and a departure_date in YYYY-MM-DD format.",
	invalid: map[string]ErrorResponse{
		"origin":         invalidAirport,
		"destination":    invalidAirport,
		"departure_date": invalidDate,
		"return_date":    invalidDate,
		"currency": {
			Error:   "Invalid currency code",
			Message: "Currency must be a 3-letter ISO 4217 code (e.g. USD, EUR)",
		},
	},
}

func (h *Handler) Flights(c *gin.Context) {
	var req FlightRequest
	if !h.bindQuery(c, &req, flightParams) {
		return
	}

	if req.ReturnDate != "" {
		dep, _ := time.Parse(dateLayout, req.DepartureDate)
		ret, _ := time.Parse(dateLayout, req.ReturnDate)
		if ret.Before(dep) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Invalid return date",
				Message: "return_date cannot be before departure_date",
			})
			return
		}
	}

	q := services.FlightQuery{
		Origin:        strings.ToUpper(req.Origin),
		Destination:   strings.ToUpper(req.Destination),
		DepartureDate: req.DepartureDate,
		ReturnDate:    req.ReturnDate,
		Adults:        req.Adults,
		Currency:      strings.ToUpper(req.Currency),
		Max:           req.Max,
	}

	cl := h.begin(c, services.KindFlights, compactParams(
		"origin", q.Origin,
		"destination", q.Destination,
		"departure_date", q.DepartureDate,
		"return_date", q.ReturnDate,
		"adults", strconv.Itoa(q.Adults),
		"currency", q.Currency,
		"max", optionalInt(q.Max),
	))

	offers, err := h.travel.SearchFlights(c.Request.Context(), q)
	if err != nil {
		h.failProvider(c, cl, "amadeus", err)
		return
	}
	if len(offers) == 0 {
		h.fail(c, cl, http.StatusNotFound, ErrorResponse{
			Error:   "Could not retrieve flight offers",
			Message: "No flights available for the specified route and date. Try different dates or nearby airports.",
		})
		return
	}

	h.succeed(c, cl, offers, len(offers))
}

// ─── Hotels ───────────────────────────────────────────────────────────────────

type HotelRequest struct {
	CityCode string `form:"city_code" binding:"required,len=3,alpha"`
	CheckIn  string `form:"check_in" binding:"omitempty,datetime=2006-01-02"`
	CheckOut string `form:"check_out" binding:"omitempty,datetime=2006-01-02"`
	Adults   *int   `form:"adults" binding:"omitempty,min=1,max=9"`
}

var hotelParams = paramRules{
	required: []string{"city_code"},
	optional: []string{"check_in", "check_out", "adults"},
	hint:     "Please provide a city_code (e.g., PAR for Paris, NYC for New York).",
	invalid: map[string]ErrorResponse{
		"city_code": {
			Error:   "Invalid city code",
			Message: "City codes must be exactly 3 letters (e.g., PAR, LON, NYC)",
		},
		"check_in":  invalidDate,
		"check_out": invalidDate,
	},
}

func (h *Handler) Hotels(c *gin.Context) {
	var req HotelRequest
	if !h.bindQuery(c, &req, hotelParams) {
		return
	}

	if req.CheckIn != "" && req.CheckOut != "" {
		in, _ := time.Parse(dateLayout, req.CheckIn)
		out, _ := time.Parse(dateLayout, req.CheckOut)
		if !out.After(in) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Invalid check-out date",
				Message: "check_out must be after check_in",
			})
			return
		}
	}

	q := services.HotelQuery{
		CityCode: strings.ToUpper(req.CityCode),
		CheckIn:  req.CheckIn,
		CheckOut: req.CheckOut,
	}
	// Absent means provider default; a present value is range checked above.
	if req.Adults != nil {
		q.Adults = *req.Adults
	}

	cl := h.begin(c, services.KindHotels, compactParams(
		"city_code", q.CityCode,
		"check_in", q.CheckIn,
		"check_out", q.CheckOut,
		"adults", optionalInt(q.Adults),
	))

	offers, err := h.travel.SearchHotels(c.Request.Context(), q)
	if err != nil {
		h.failProvider(c, cl, "amadeus", err)
		return
	}
	if len(offers) == 0 {
		h.fail(c, cl, http.StatusNotFound, ErrorResponse{
			Error:   "Could not retrieve hotel offers",
			Message: fmt.Sprintf("No hotels found for city code %q. Try a different city code.", q.CityCode),
		})
		return
	}

	h.succeed(c, cl, offers, len(offers))
}

// ─── Cars ─────────────────────────────────────────────────────────────────────

type CarRequest struct {
	CityCode string `form:"city_code" binding:"required"`
}

var carParams = paramRules{
	required: []string{"city_code"},
	hint:     "Please provide a city_code (e.g., PAR for Paris, NYC for New York).",
}

// Cars validates its input and reports that no provider backs it yet.
func (h *Handler) Cars(c *gin.Context) {
	var req CarRequest
	if !h.bindQuery(c, &req, carParams) {
		return
	}
	c.JSON(http.StatusNotImplemented, ErrorResponse{
		Error:   "Car search not yet available",
		Message: "Car rental search is not supported by the current provider integration.",
	})
}

func optionalInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
