package handlers

import (
	"net/http"
	"strings"
	"time"

	"travelagent/web"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

var defaultOrigins = []string{"http://localhost:5173", "http://localhost:3000", "http://localhost:5000"}

// NewRouter wires middleware, the API routes, metrics and the frontend.
// frontendURLs are extra CORS origins.
func NewRouter(h *Handler, logger *zap.Logger, frontendURLs []string) *gin.Engine {
	r := gin.New()

	r.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(logger, true))
	r.Use(otelgin.Middleware("travelagent"))

	allowedOrigins := append([]string{}, defaultOrigins...)
	for _, u := range frontendURLs {
		if u = strings.TrimSpace(u); u != "" {
			allowedOrigins = append(allowedOrigins, u)
		}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Search-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// The agent UI owns "/"; the status document lives at /api/status.
	web.Register(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/status", h.Status)
		api.GET("/health", h.Health)

		api.GET("/flights", h.Flights)
		api.GET("/visa-requirements", h.VisaRequirements)
		api.GET("/nearest-airports", h.NearestAirports)
		api.GET("/hotels", h.Hotels)
		api.GET("/activities", h.Activities)
		api.GET("/cars", h.Cars)

		api.GET("/searches", h.ListSearches)
		api.GET("/searches/:id", h.GetSearch)
		api.GET("/searches/:id/pdf", h.DownloadReport)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Not found",
			Message: "No route for " + c.Request.Method + " " + c.Request.URL.Path,
		})
	})

	return r
}
