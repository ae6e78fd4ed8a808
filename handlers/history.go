package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"travelagent/database"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type HistoryRequest struct {
	Kind  string `form:"kind" binding:"omitempty,oneof=flights visa-requirements nearest-airports hotels activities"`
	Limit int    `form:"limit,default=20" binding:"min=1,max=100"`
}

var historyParams = paramRules{
	optional: []string{"kind", "limit"},
}

// SearchDetail is a history record with the provider payload it returned.
type SearchDetail struct {
	database.Search
	Results json.RawMessage `json:"results,omitempty"`
}

func (h *Handler) ListSearches(c *gin.Context) {
	if !h.historyEnabled(c) {
		return
	}

	var req HistoryRequest
	if !h.bindQuery(c, &req, historyParams) {
		return
	}

	searches, err := h.history.RecentSearches(c.Request.Context(), req.Kind, req.Limit)
	if err != nil {
		h.logger.Error("failed to list searches", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Internal server error",
			Message: "Could not load search history.",
		})
		return
	}
	c.JSON(http.StatusOK, searches)
}

func (h *Handler) GetSearch(c *gin.Context) {
	search, ok := h.loadSearch(c)
	if !ok {
		return
	}

	detail := SearchDetail{Search: *search}
	if json.Valid(search.Payload) {
		detail.Results = search.Payload
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) historyEnabled(c *gin.Context) bool {
	if h.history != nil {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{
		Error:   "Search history not enabled",
		Message: "Set DATABASE_URL to record and browse searches.",
	})
	return false
}

// loadSearch fetches the record named by the :id path parameter. On failure
// the envelope has already been written.
func (h *Handler) loadSearch(c *gin.Context) (*database.Search, bool) {
	if !h.historyEnabled(c) {
		return nil, false
	}

	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid search ID",
			Message: "Search IDs are UUIDs as returned in the X-Search-ID header.",
		})
		return nil, false
	}

	search, err := h.history.GetSearch(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Search not found",
			Message: "No recorded search has ID " + id + ".",
		})
		return nil, false
	}
	if err != nil {
		h.logger.Error("failed to load search", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Internal server error",
			Message: "Could not load the search.",
		})
		return nil, false
	}
	return search, true
}
