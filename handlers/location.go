package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"travelagent/services"

	"github.com/gin-gonic/gin"
)

type KeywordRequest struct {
	Keyword string `form:"keyword" binding:"required,max=100"`
}

var keywordParams = paramRules{
	required: []string{"keyword"},
	hint:     "Please provide a city or airport name as keyword (e.g., Paris, London, JFK).",
}

// NearestAirports resolves the keyword to coordinates and lists airports around them.
func (h *Handler) NearestAirports(c *gin.Context) {
	var req KeywordRequest
	if !h.bindQuery(c, &req, keywordParams) {
		return
	}

	cl := h.begin(c, services.KindAirports, compactParams("keyword", req.Keyword))
	geo, ok := h.resolve(c, cl, req.Keyword)
	if !ok {
		return
	}

	airports, err := h.travel.NearestAirports(c.Request.Context(), geo)
	if err != nil {
		h.failProvider(c, cl, "amadeus", err)
		return
	}
	if len(airports) == 0 {
		h.fail(c, cl, http.StatusNotFound, ErrorResponse{
			Error:   "Could not retrieve nearest airports",
			Message: fmt.Sprintf("No airports found near %q.", req.Keyword),
		})
		return
	}

	h.succeed(c, cl, airports, len(airports))
}

// Activities resolves the keyword to coordinates and lists tours and activities there.
func (h *Handler) Activities(c *gin.Context) {
	var req KeywordRequest
	if !h.bindQuery(c, &req, keywordParams) {
		return
	}

	cl := h.begin(c, services.KindActivities, compactParams("keyword", req.Keyword))
	geo, ok := h.resolve(c, cl, req.Keyword)
	if !ok {
		return
	}

	activities, err := h.travel.SearchActivities(c.Request.Context(), geo)
	if err != nil {
		h.failProvider(c, cl, "amadeus", err)
		return
	}
	if len(activities) == 0 {
		h.fail(c, cl, http.StatusNotFound, ErrorResponse{
			Error:   "Could not retrieve activities",
			Message: fmt.Sprintf("No activities found near %q. Try a different location.", req.Keyword),
		})
		return
	}

	h.succeed(c, cl, activities, len(activities))
}

func (h *Handler) resolve(c *gin.Context, cl *call, keyword string) (services.GeoCode, bool) {
	geo, err := h.travel.ResolveLocation(c.Request.Context(), keyword)
	switch {
	case err == nil:
		return geo, true

	case errors.Is(err, services.ErrLocationNotFound):
		h.fail(c, cl, http.StatusNotFound, ErrorResponse{
			Error:   "Could not find location",
			Message: fmt.Sprintf("No location found matching %q. Try a different search term.", keyword),
		})

	case errors.Is(err, services.ErrNoCoordinates):
		h.fail(c, cl, http.StatusNotFound, ErrorResponse{
			Error:   "Location found but no coordinates available",
			Message: fmt.Sprintf("The location %q has no geographic coordinates.", keyword),
		})

	default:
		h.failProvider(c, cl, "amadeus", err)
	}
	return services.GeoCode{}, false
}
