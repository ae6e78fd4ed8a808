package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"travelagent/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const reportRows = 25

// DownloadReport renders a recorded search as a PDF.
func (h *Handler) DownloadReport(c *gin.Context) {
	search, ok := h.loadSearch(c)
	if !ok {
		return
	}

	pdfBytes, err := services.GenerateReportPDF(services.ReportData{
		ID:          search.ID,
		Kind:        search.Kind,
		Params:      search.Params,
		Status:      search.Status,
		ResultCount: search.ResultCount,
		Error:       search.Error,
		CreatedAt:   search.CreatedAt,
		Rows:        services.Summarize(search.Kind, search.Payload, reportRows),
	})
	if err != nil {
		h.logger.Error("PDF generation failed", zap.String("id", search.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Internal server error",
			Message: "Failed to generate PDF",
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=travel-%s-%s.pdf", search.Kind, search.ID[:8]))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// Status is the root status document.
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "active",
		"message": "Travel Agent Assistant API",
		"version": h.version,
	})
}

type configurable interface {
	Configured() bool
}

type breakerReporter interface {
	BreakerState() string
}

func providerStatus(p any) gin.H {
	status := gin.H{"configured": true}
	if cfg, ok := p.(configurable); ok {
		status["configured"] = cfg.Configured()
	}
	if b, ok := p.(breakerReporter); ok {
		status["breaker"] = b.BreakerState()
	}
	return status
}

func pingStatus(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

func (h *Handler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	var db Pinger
	if h.history != nil {
		db = h.history
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "Travel Agent Assistant API",
		"providers": gin.H{
			"amadeus": providerStatus(h.travel),
			"sherpa":  providerStatus(h.visa),
		},
		"database": pingStatus(ctx, db),
		"cache":    pingStatus(ctx, h.cache),
	})
}
