package handlers

import (
	"context"
	"encoding/json"

	"travelagent/database"
	"travelagent/services"

	"go.uber.org/zap"
)

// TravelProvider is the Amadeus side of the API.
type TravelProvider interface {
	SearchFlights(ctx context.Context, q services.FlightQuery) ([]json.RawMessage, error)
	ResolveLocation(ctx context.Context, keyword string) (services.GeoCode, error)
	NearestAirports(ctx context.Context, geo services.GeoCode) ([]json.RawMessage, error)
	SearchHotels(ctx context.Context, q services.HotelQuery) ([]json.RawMessage, error)
	SearchActivities(ctx context.Context, geo services.GeoCode) ([]json.RawMessage, error)
}

// VisaProvider is the Sherpa side of the API.
type VisaProvider interface {
	VisaRequirements(ctx context.Context, q services.VisaQuery) (json.RawMessage, error)
}

// HistoryStore records proxied searches. Optional.
type HistoryStore interface {
	SaveSearch(ctx context.Context, s *database.Search) error
	GetSearch(ctx context.Context, id string) (*database.Search, error)
	RecentSearches(ctx context.Context, kind string, limit int) ([]database.Search, error)
	Ping(ctx context.Context) error
}

// Pinger is anything whose liveness the health check reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Travel  TravelProvider
	Visa    VisaProvider
	History HistoryStore
	Cache   Pinger
	Logger  *zap.Logger
	Version string
}

// Handler serves the API routes.
type Handler struct {
	travel  TravelProvider
	visa    VisaProvider
	history HistoryStore
	cache   Pinger
	logger  *zap.Logger
	version string
}

func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	version := d.Version
	if version == "" {
		version = "1.0.0"
	}
	return &Handler{
		travel:  d.Travel,
		visa:    d.Visa,
		history: d.History,
		cache:   d.Cache,
		logger:  logger,
		version: version,
	}
}
