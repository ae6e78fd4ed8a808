package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAmadeus serves the token endpoint and canned responses keyed by path.
type fakeAmadeus struct {
	*httptest.Server

	mu         sync.Mutex
	responses  map[string]fakeResponse
	queries    map[string]url.Values
	tokenCalls atomic.Int32
	authHeader string
}

type fakeResponse struct {
	status int
	body   string
}

func newFakeAmadeus(t *testing.T) *fakeAmadeus {
	f := &fakeAmadeus{
		responses: map[string]fakeResponse{},
		queries:   map[string]url.Values{},
	}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/security/oauth2/token" {
			f.tokenCalls.Add(1)
			_ = r.ParseForm()
			if r.PostForm.Get("client_id") == "revoked" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"The access grant has been revoked"}`))
				return
			}
			if r.PostForm.Get("grant_type") != "client_credentials" || r.PostForm.Get("client_id") != "id" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid_client","error_description":"Client credentials are invalid"}`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"type":"amadeusOAuth2Token","access_token":"tok","token_type":"Bearer","expires_in":1799}`))
			return
		}

		f.mu.Lock()
		f.queries[r.URL.Path] = r.URL.Query()
		f.authHeader = r.Header.Get("Authorization")
		resp, ok := f.responses[r.URL.Path]
		f.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.status)
		_, _ = w.Write([]byte(resp.body))
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeAmadeus) respond(path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[path] = fakeResponse{status: status, body: body}
}

func (f *fakeAmadeus) query(path string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[path]
}

func (f *fakeAmadeus) auth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authHeader
}

func newTestAmadeus(f *fakeAmadeus, cache Cache) *AmadeusClient {
	return NewAmadeusClient(AmadeusConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		BaseURL:      f.URL,
		HTTP:         DefaultHTTPConfig(),
		Breaker:      BreakerSettings{Failures: 3, Timeout: time.Minute},
		Cache:        cache,
		CacheTTL:     time.Hour,
	}, zap.NewNop())
}

// memCache is an in-process Cache for tests.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[key] = value
	m.sets++
	return nil
}

func TestSearchFlightsForwardsParameters(t *testing.T) {
	f := newFakeAmadeus(t)
	f.respond("/v2/shopping/flight-offers", http.StatusOK,
		`{"meta":{"count":1},"data":[{"id":"1","price":{"grandTotal":"500.00","currency":"USD"}}]}`)
	c := newTestAmadeus(f, nil)

	offers, err := c.SearchFlights(context.Background(), FlightQuery{
		Origin: "jfk", Destination: "LHR", DepartureDate: "2025-06-15", Adults: 2, ReturnDate: "2025-06-22",
	})
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.JSONEq(t, `{"id":"1","price":{"grandTotal":"500.00","currency":"USD"}}`, string(offers[0]))

	q := f.query("/v2/shopping/flight-offers")
	assert.Equal(t, "JFK", q.Get("originLocationCode"))
	assert.Equal(t, "LHR", q.Get("destinationLocationCode"))
	assert.Equal(t, "2025-06-15", q.Get("departureDate"))
	assert.Equal(t, "2025-06-22", q.Get("returnDate"))
	assert.Equal(t, "2", q.Get("adults"))
	assert.Empty(t, q.Get("max"))
	assert.Equal(t, "Bearer tok", f.auth())
}

func TestSearchFlightsDefaultsAdults(t *testing.T) {
	f := newFakeAmadeus(t)
	f.respond("/v2/shopping/flight-offers", http.StatusOK, `{"data":[]}`)
	c := newTestAmadeus(f, nil)

	offers, err := c.SearchFlights(context.Background(), FlightQuery{Origin: "JFK", Destination: "LHR", DepartureDate: "2025-06-15"})
	require.NoError(t, err)
	assert.Empty(t, offers)
	assert.Equal(t, "1", f.query("/v2/shopping/flight-offers").Get("adults"))
}

func TestTokenIsReused(t *testing.T) {
	f := newFakeAmadeus(t)
	f.respond("/v2/shopping/flight-offers", http.StatusOK, `{"data":[]}`)
	c := newTestAmadeus(f, nil)

	for i := 0; i < 3; i++ {
		_, err := c.SearchFlights(context.Background(), FlightQuery{Origin: "JFK", Destination: "LHR", DepartureDate: "2025-06-15"})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), f.tokenCalls.Load())
}

func TestAmadeusErrorBodyIsParsed(t *testing.T) {
	f := newFakeAmadeus(t)
	f.respond("/v2/shopping/flight-offers", http.StatusBadRequest,
		`{"errors":[{"status":400,"code":477,"title":"INVALID FORMAT","detail":"invalid query parameter format","source":{"parameter":"departureDate"}}]}`)
	c := newTestAmadeus(f, nil)

	_, err := c.SearchFlights(context.Background(), FlightQuery{Origin: "JFK", Destination: "LHR", DepartureDate: "2025-06-15"})
	require.Error(t, err)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusBadRequest, pe.Status)
	assert.Equal(t, 477, pe.Code)
	assert.Equal(t, "invalid query parameter format", pe.Message())
	assert.False(t, serverSide(err))
}

func TestInvalidCredentialsSurfaceAsAuthFailure(t *testing.T) {
	f := newFakeAmadeus(t)
	c := NewAmadeusClient(AmadeusConfig{
		ClientID: "wrong", ClientSecret: "secret", BaseURL: f.URL,
		HTTP: DefaultHTTPConfig(), Breaker: DefaultBreakerSettings(),
	}, zap.NewNop())

	err := c.Warm()
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusUnauthorized, pe.Status)
	assert.Equal(t, "authenticate", pe.Op)
	assert.Equal(t, "Client credentials are invalid", pe.Message())
}

func TestTokenEndpointClientErrorIsAuthFailure(t *testing.T) {
	f := newFakeAmadeus(t)
	f.respond("/v2/shopping/flight-offers", http.StatusOK, `{"data":[]}`)
	c := NewAmadeusClient(AmadeusConfig{
		ClientID: "revoked", ClientSecret: "secret", BaseURL: f.URL,
		HTTP: DefaultHTTPConfig(), Breaker: DefaultBreakerSettings(),
	}, zap.NewNop())

	_, err := c.SearchFlights(context.Background(), FlightQuery{Origin: "JFK", Destination: "LHR", DepartureDate: "2025-06-01"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusBadRequest, pe.Status)
	assert.Equal(t, "authenticate", pe.Op)
	assert.Equal(t, "The access grant has been revoked", pe.Message())
	assert.True(t, serverSide(err))
}

func TestNotConfigured(t *testing.T) {
	c := NewAmadeusClient(AmadeusConfig{BaseURL: "http://127.0.0.1:1"}, zap.NewNop())

	assert.False(t, c.Configured())
	_, err := c.SearchFlights(context.Background(), FlightQuery{Origin: "JFK", Destination: "LHR", DepartureDate: "2025-06-15"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, c.Warm(), ErrNotConfigured)
}

func TestResolveLocation(t *testing.T) {
	f := newFakeAmadeus(t)
	f.respond("/v1/reference-data/locations", http.StatusOK,
		`{"data":[{"name":"PARIS","iataCode":"PAR","geoCode":{"latitude":48.85341,"longitude":2.3488}}]}`)
	cache := &memCache{}
	c := newTestAmadeus(f, cache)

	geo, err := c.ResolveLocation(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, GeoCode{Latitude: 48.85341, Longitude: 2.3488}, geo)

	q := f.query("/v1/reference-data/locations")
	assert.Equal(t, "Paris", q.Get("keyword"))
	assert.Equal(t, "CITY,AIRPORT", q.Get("subType"))
	assert.Equal(t, 1, cache.sets)

	// second lookup is served from the cache
	f.respond("/v1/reference-data/locations", http.StatusInternalServerError, `{}`)
	geo, err = c.ResolveLocation(context.Background(), " paris ")
	require.NoError(t, err)
	assert.Equal(t, 48.85341, geo.Latitude)
}

func TestResolveLocationEdgeCases(t *testing.T) {
	cases := map[string]struct {
		body string
		want error
	}{
		"no match":        {`{"data":[]}`, ErrLocationNotFound},
		"no geoCode":      {`{"data":[{"name":"Somewhere"}]}`, ErrNoCoordinates},
		"partial geoCode": {`{"data":[{"geoCode":{"latitude":1.5}}]}`, ErrNoCoordinates},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFakeAmadeus(t)
			f.respond("/v1/reference-data/locations", http.StatusOK, tc.body)
			c := newTestAmadeus(f, nil)

			_, err := c.ResolveLocation(context.Background(), "nowhere")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestNearestAirportsAndActivitiesSendCoordinates(t *testing.T) {
	f := newFakeAmadeus(t)
	f.respond("/v1/reference-data/locations/airports", http.StatusOK,
		`{"data":[{"name":"CHARLES DE GAULLE","iataCode":"CDG","distance":{"value":25,"unit":"KM"}}]}`)
	f.respond("/v1/shopping/activities", http.StatusOK, `{"data":[{"name":"Eiffel Tower Tour"},{"name":"Louvre"}]}`)
	c := newTestAmadeus(f, nil)
	geo := GeoCode{Latitude: 48.8566, Longitude: 2.3522}

	airports, err := c.NearestAirports(context.Background(), geo)
	require.NoError(t, err)
	assert.Len(t, airports, 1)
	q := f.query("/v1/reference-data/locations/airports")
	assert.Equal(t, "48.8566", q.Get("latitude"))
	assert.Equal(t, "2.3522", q.Get("longitude"))

	activities, err := c.SearchActivities(context.Background(), geo)
	require.NoError(t, err)
	assert.Len(t, activities, 2)
	assert.Equal(t, "48.8566", f.query("/v1/shopping/activities").Get("latitude"))
}

func TestSearchHotelsListsThenPrices(t *testing.T) {
	f := newFakeAmadeus(t)

	list := struct {
		Data []map[string]string `json:"data"`
	}{}
	for i := 0; i < 25; i++ {
		list.Data = append(list.Data, map[string]string{"hotelId": "HTL" + string(rune('A'+i))})
	}
	listBody, _ := json.Marshal(list)
	f.respond("/v1/reference-data/locations/hotels/by-city", http.StatusOK, string(listBody))
	f.respond("/v3/shopping/hotel-offers", http.StatusOK,
		`{"data":[{"hotel":{"name":"Test Hotel"},"offers":[{"price":{"total":"100.00"}}]}]}`)
	c := newTestAmadeus(f, nil)

	hotels, err := c.SearchHotels(context.Background(), HotelQuery{CityCode: "lhr", CheckIn: "2025-06-15"})
	require.NoError(t, err)
	assert.Len(t, hotels, 1)

	assert.Equal(t, "LON", f.query("/v1/reference-data/locations/hotels/by-city").Get("cityCode"))
	offers := f.query("/v3/shopping/hotel-offers")
	assert.Len(t, splitComma(offers.Get("hotelIds")), maxHotelIDs)
	assert.Equal(t, "2025-06-15", offers.Get("checkInDate"))
	assert.Empty(t, offers.Get("checkOutDate"))
	assert.Equal(t, "true", offers.Get("bestRateOnly"))
}

func TestSearchHotelsEmptyCity(t *testing.T) {
	f := newFakeAmadeus(t)
	f.respond("/v1/reference-data/locations/hotels/by-city", http.StatusOK, `{"data":[]}`)
	c := newTestAmadeus(f, nil)

	hotels, err := c.SearchHotels(context.Background(), HotelQuery{CityCode: "NYC"})
	require.NoError(t, err)
	assert.Empty(t, hotels)
	assert.Equal(t, "NYC", f.query("/v1/reference-data/locations/hotels/by-city").Get("cityCode"))
	assert.Nil(t, f.query("/v3/shopping/hotel-offers"))
}

func TestBreakerOpensAfterServerFailures(t *testing.T) {
	f := newFakeAmadeus(t)
	f.respond("/v1/shopping/activities", http.StatusInternalServerError, `{"errors":[{"status":500,"code":141,"title":"SYSTEM ERROR HAS OCCURRED"}]}`)
	c := newTestAmadeus(f, nil)
	geo := GeoCode{Latitude: 1, Longitude: 2}

	for i := 0; i < 3; i++ {
		_, err := c.SearchActivities(context.Background(), geo)
		var pe *ProviderError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, http.StatusInternalServerError, pe.Status)
	}

	_, err := c.SearchActivities(context.Background(), geo)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "open", c.BreakerState())
}

func TestClientErrorsDoNotOpenBreaker(t *testing.T) {
	f := newFakeAmadeus(t)
	f.respond("/v1/shopping/activities", http.StatusBadRequest, `{"errors":[{"status":400,"code":32171,"title":"MANDATORY DATA MISSING"}]}`)
	c := newTestAmadeus(f, nil)

	for i := 0; i < 5; i++ {
		_, err := c.SearchActivities(context.Background(), GeoCode{})
		assert.NotErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, "closed", c.BreakerState())
}

func TestAirportToCity(t *testing.T) {
	assert.Equal(t, "LON", airportToCity("LHR"))
	assert.Equal(t, "PAR", airportToCity("ORY"))
	assert.Equal(t, "BCN", airportToCity("BCN"))
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}
