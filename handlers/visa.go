package handlers

import (
	"bytes"
	"net/http"
	"strings"

	"travelagent/services"

	"github.com/gin-gonic/gin"
)

type VisaRequest struct {
	Origin      string `form:"origin" binding:"required,len=2,alpha"`
	Destination string `form:"destination" binding:"required,len=2,alpha"`
	Nationality string `form:"nationality" binding:"required,len=2,alpha"`
}

var invalidCountry = ErrorResponse{
	Error:   "Invalid country code format",
	Message: "Country codes must be 2-letter ISO codes (e.g., US, FR, GB)",
}

var visaParams = paramRules{
	required: []string{"origin", "destination", "nationality"},
	hint:     "Please provide origin, destination, and nationality as 2-letter country codes.",
	invalid: map[string]ErrorResponse{
		"origin":      invalidCountry,
		"destination": invalidCountry,
		"nationality": invalidCountry,
	},
}

func (h *Handler) VisaRequirements(c *gin.Context) {
	var req VisaRequest
	if !h.bindQuery(c, &req, visaParams) {
		return
	}

	q := services.VisaQuery{
		Origin:      strings.ToUpper(req.Origin),
		Destination: strings.ToUpper(req.Destination),
		Nationality: strings.ToUpper(req.Nationality),
	}
	cl := h.begin(c, services.KindVisa, compactParams(
		"origin", q.Origin,
		"destination", q.Destination,
		"nationality", q.Nationality,
	))

	doc, err := h.visa.VisaRequirements(c.Request.Context(), q)
	if err != nil {
		h.failProvider(c, cl, "sherpa", err)
		return
	}
	if isEmptyDocument(doc) {
		h.fail(c, cl, http.StatusNotFound, ErrorResponse{
			Error:   "Could not retrieve visa information",
			Message: "No visa requirement data is available for this trip.",
		})
		return
	}

	h.succeed(c, cl, doc, 1)
}

func isEmptyDocument(doc []byte) bool {
	trimmed := bytes.TrimSpace(doc)
	switch string(trimmed) {
	case "", "null", "{}", "[]":
		return true
	}
	return false
}
