package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ─── Types ────────────────────────────────────────────────────────────────────

// FlightQuery is a validated flight offers search.
type FlightQuery struct {
	Origin        string
	Destination   string
	DepartureDate string
	ReturnDate    string
	Adults        int
	Currency      string
	Max           int
}

// HotelQuery is a validated hotel search. Dates are optional; the provider
// defaults check-in to today and stays to one night.
type HotelQuery struct {
	CityCode string
	CheckIn  string
	CheckOut string
	Adults   int
}

type GeoCode struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ─── Amadeus Client ───────────────────────────────────────────────────────────

const (
	amadeusProvider = "amadeus"
	maxHotelIDs     = 20
	maxBodyBytes    = 8 << 20
)

type AmadeusConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	HTTP         HTTPConfig
	Breaker      BreakerSettings

	// Optional keyword -> coordinates cache.
	Cache    Cache
	CacheTTL time.Duration
}

// AmadeusClient talks to the Amadeus Self-Service APIs. The OAuth2 token is
// obtained with the client-credentials grant and refreshed before expiry.
type AmadeusClient struct {
	baseURL     string
	configured  bool
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
	upstream    *upstream
	cache       Cache
	cacheTTL    time.Duration
	logger      *zap.Logger
}

func NewAmadeusClient(cfg AmadeusConfig, logger *zap.Logger) *AmadeusClient {
	base := NewHTTPClient(cfg.HTTP)

	c := &AmadeusClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		configured: cfg.ClientID != "" && cfg.ClientSecret != "",
		httpClient: base,
		upstream:   newUpstream(amadeusProvider, cfg.Breaker, logger),
		cache:      cfg.Cache,
		cacheTTL:   cfg.CacheTTL,
		logger:     logger.Named(amadeusProvider),
	}

	if !c.configured {
		return c
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     c.baseURL + "/v1/security/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	c.tokenSource = cc.TokenSource(tokenCtx)
	c.httpClient = &http.Client{
		Transport: &oauth2.Transport{Source: c.tokenSource, Base: base.Transport},
		Timeout:   base.Timeout,
	}
	return c
}

// Configured reports whether credentials were supplied.
func (c *AmadeusClient) Configured() bool {
	return c.configured
}

// BreakerState is the breaker's current state name.
func (c *AmadeusClient) BreakerState() string {
	return c.upstream.state()
}

// Warm fetches the first token so credential problems show up at startup.
func (c *AmadeusClient) Warm() error {
	if !c.configured {
		return ErrNotConfigured
	}
	if _, err := c.tokenSource.Token(); err != nil {
		return c.transportError("authenticate", err)
	}
	return nil
}

type amadeusEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type amadeusErrorBody struct {
	Errors []struct {
		Status json.Number `json:"status"`
		Code   int         `json:"code"`
		Title  string      `json:"title"`
		Detail string      `json:"detail"`
	} `json:"errors"`
}

// get performs a GET and returns the elements of the response's data array.
func (c *AmadeusClient) get(ctx context.Context, op, path string, params url.Values) ([]json.RawMessage, error) {
	if !c.configured {
		return nil, fmt.Errorf("%s %s: %w", amadeusProvider, op, ErrNotConfigured)
	}

	var items []json.RawMessage
	err := c.upstream.do(ctx, op, func(ctx context.Context) error {
		endpoint := c.baseURL + path
		if len(params) > 0 {
			endpoint += "?" + params.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return c.transportError(op, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return &ProviderError{Provider: amadeusProvider, Op: op, Status: resp.StatusCode, Err: err}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return parseAmadeusError(op, resp.StatusCode, body)
		}

		var env amadeusEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return &ProviderError{Provider: amadeusProvider, Op: op, Status: resp.StatusCode,
				Err: fmt.Errorf("failed to parse response: %w", err)}
		}
		if len(env.Data) == 0 || string(env.Data) == "null" {
			items = []json.RawMessage{}
			return nil
		}
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return &ProviderError{Provider: amadeusProvider, Op: op, Status: resp.StatusCode,
				Err: fmt.Errorf("data is not a list: %w", err)}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("amadeus call finished", zap.String("op", op), zap.Int("results", len(items)))
	return items, nil
}

func (c *AmadeusClient) transportError(op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		// The token endpoint status says nothing about the agent's query.
		pe := &ProviderError{Provider: amadeusProvider, Op: "authenticate", Err: errors.Join(ErrAuthentication, err)}
		if re.Response != nil {
			pe.Status = re.Response.StatusCode
		}
		pe.Detail = re.ErrorDescription
		return pe
	}
	return &ProviderError{Provider: amadeusProvider, Op: op, Err: err}
}

func parseAmadeusError(op string, status int, body []byte) error {
	pe := &ProviderError{Provider: amadeusProvider, Op: op, Status: status}

	var eb amadeusErrorBody
	if err := json.Unmarshal(body, &eb); err == nil && len(eb.Errors) > 0 {
		first := eb.Errors[0]
		pe.Code = first.Code
		pe.Title = first.Title
		pe.Detail = first.Detail
		return pe
	}

	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 300 {
		pe.Detail = text
	}
	return pe
}

// ─── Flight Search ────────────────────────────────────────────────────────────

// SearchFlights queries the Flight Offers Search API and returns its offers as-is.
func (c *AmadeusClient) SearchFlights(ctx context.Context, q FlightQuery) ([]json.RawMessage, error) {
	params := url.Values{}
	params.Set("originLocationCode", strings.ToUpper(q.Origin))
	params.Set("destinationLocationCode", strings.ToUpper(q.Destination))
	params.Set("departureDate", q.DepartureDate)
	adults := q.Adults
	if adults <= 0 {
		adults = 1
	}
	params.Set("adults", strconv.Itoa(adults))
	if q.ReturnDate != "" {
		params.Set("returnDate", q.ReturnDate)
	}
	if q.Currency != "" {
		params.Set("currencyCode", strings.ToUpper(q.Currency))
	}
	if q.Max > 0 {
		params.Set("max", strconv.Itoa(q.Max))
	}

	return c.get(ctx, "flight search", "/v2/shopping/flight-offers", params)
}

// ─── Locations & Airports ─────────────────────────────────────────────────────

// SearchLocations looks up cities and airports matching keyword.
func (c *AmadeusClient) SearchLocations(ctx context.Context, keyword string) ([]json.RawMessage, error) {
	params := url.Values{}
	params.Set("keyword", keyword)
	params.Set("subType", "CITY,AIRPORT")
	return c.get(ctx, "location search", "/v1/reference-data/locations", params)
}

type locationGeo struct {
	GeoCode *struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"geoCode"`
}

// ResolveLocation returns the coordinates of the best match for keyword.
func (c *AmadeusClient) ResolveLocation(ctx context.Context, keyword string) (GeoCode, error) {
	key := "location:" + strings.ToLower(strings.TrimSpace(keyword))
	if geo, ok := c.cachedLocation(ctx, key); ok {
		return geo, nil
	}

	locations, err := c.SearchLocations(ctx, keyword)
	if err != nil {
		return GeoCode{}, err
	}
	if len(locations) == 0 {
		return GeoCode{}, fmt.Errorf("%q: %w", keyword, ErrLocationNotFound)
	}

	var first locationGeo
	if err := json.Unmarshal(locations[0], &first); err != nil || first.GeoCode == nil {
		return GeoCode{}, fmt.Errorf("%q: %w", keyword, ErrNoCoordinates)
	}
	if first.GeoCode.Latitude == nil || first.GeoCode.Longitude == nil {
		return GeoCode{}, fmt.Errorf("%q: %w", keyword, ErrNoCoordinates)
	}

	geo := GeoCode{Latitude: *first.GeoCode.Latitude, Longitude: *first.GeoCode.Longitude}
	c.storeLocation(ctx, key, geo)
	return geo, nil
}

func (c *AmadeusClient) cachedLocation(ctx context.Context, key string) (GeoCode, bool) {
	if c.cache == nil {
		return GeoCode{}, false
	}

	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("location cache read failed", zap.String("key", key), zap.Error(err))
		locationCacheLookups.WithLabelValues("error").Inc()
		return GeoCode{}, false
	}
	if !ok {
		locationCacheLookups.WithLabelValues("miss").Inc()
		return GeoCode{}, false
	}

	var geo GeoCode
	if err := json.Unmarshal(raw, &geo); err != nil {
		locationCacheLookups.WithLabelValues("error").Inc()
		return GeoCode{}, false
	}
	locationCacheLookups.WithLabelValues("hit").Inc()
	return geo, true
}

func (c *AmadeusClient) storeLocation(ctx context.Context, key string, geo GeoCode) {
	if c.cache == nil {
		return
	}
	raw, _ := json.Marshal(geo)
	if err := c.cache.Set(ctx, key, raw, c.cacheTTL); err != nil {
		c.logger.Warn("location cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// NearestAirports lists relevant airports around a point.
func (c *AmadeusClient) NearestAirports(ctx context.Context, geo GeoCode) ([]json.RawMessage, error) {
	return c.get(ctx, "nearest airports", "/v1/reference-data/locations/airports", geoParams(geo))
}

// ─── Activities ───────────────────────────────────────────────────────────────

// SearchActivities lists tours and activities around a point.
func (c *AmadeusClient) SearchActivities(ctx context.Context, geo GeoCode) ([]json.RawMessage, error) {
	return c.get(ctx, "activity search", "/v1/shopping/activities", geoParams(geo))
}

func geoParams(geo GeoCode) url.Values {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(geo.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(geo.Longitude, 'f', -1, 64))
	return params
}

// ─── Hotel Search ─────────────────────────────────────────────────────────────

// SearchHotels searches hotels via the Hotel List and Hotel Search APIs:
// the city's hotel ids first, then offers for the first batch of them.
func (c *AmadeusClient) SearchHotels(ctx context.Context, q HotelQuery) ([]json.RawMessage, error) {
	hotelIDs, err := c.hotelIDsByCity(ctx, q.CityCode)
	if err != nil {
		return nil, err
	}
	if len(hotelIDs) == 0 {
		return []json.RawMessage{}, nil
	}

	// Keep the offers request within the provider's id limit
	if len(hotelIDs) > maxHotelIDs {
		hotelIDs = hotelIDs[:maxHotelIDs]
	}

	params := url.Values{}
	params.Set("hotelIds", strings.Join(hotelIDs, ","))
	if q.CheckIn != "" {
		params.Set("checkInDate", q.CheckIn)
	}
	if q.CheckOut != "" {
		params.Set("checkOutDate", q.CheckOut)
	}
	if q.Adults > 0 {
		params.Set("adults", strconv.Itoa(q.Adults))
	}
	params.Set("bestRateOnly", "true")

	return c.get(ctx, "hotel offers", "/v3/shopping/hotel-offers", params)
}

func (c *AmadeusClient) hotelIDsByCity(ctx context.Context, cityCode string) ([]string, error) {
	params := url.Values{}
	params.Set("cityCode", airportToCity(strings.ToUpper(cityCode)))

	hotels, err := c.get(ctx, "hotel list", "/v1/reference-data/locations/hotels/by-city", params)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(hotels))
	for _, raw := range hotels {
		var h struct {
			HotelID string `json:"hotelId"`
		}
		if err := json.Unmarshal(raw, &h); err == nil && h.HotelID != "" {
			ids = append(ids, h.HotelID)
		}
	}
	return ids, nil
}

// airportToCity maps airport IATA codes to city codes for hotel search.
// Codes it does not know are returned unchanged.
func airportToCity(airport string) string {
	mapping := map[string]string{
		"LHR": "LON", "LGW": "LON", "STN": "LON", "LTN": "LON",
		"CDG": "PAR", "ORY": "PAR",
		"JFK": "NYC", "LGA": "NYC", "EWR": "NYC",
		"SXF": "BER",
		"FCO": "ROM", "CIA": "ROM",
		"NRT": "TYO", "HND": "TYO",
		"MXP": "MIL", "LIN": "MIL",
		"IAD": "WAS", "DCA": "WAS",
		"ORD": "CHI", "MDW": "CHI",
	}
	if city, ok := mapping[airport]; ok {
		return city
	}
	return airport
}
