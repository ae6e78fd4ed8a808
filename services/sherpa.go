package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const sherpaProvider = "sherpa"

// VisaQuery is a validated visa requirement lookup. All codes are ISO 3166-1 alpha-2.
type VisaQuery struct {
	Origin      string
	Destination string
	Nationality string
}

type SherpaConfig struct {
	APIKey  string
	BaseURL string
	HTTP    HTTPConfig
	Breaker BreakerSettings
}

// SherpaClient fetches entry requirements from the Sherpa trips API.
type SherpaClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	upstream   *upstream
	logger     *zap.Logger
}

func NewSherpaClient(cfg SherpaConfig, logger *zap.Logger) *SherpaClient {
	return &SherpaClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: NewHTTPClient(cfg.HTTP),
		upstream:   newUpstream(sherpaProvider, cfg.Breaker, logger),
		logger:     logger.Named(sherpaProvider),
	}
}

func (c *SherpaClient) Configured() bool {
	return c.apiKey != ""
}

func (c *SherpaClient) BreakerState() string {
	return c.upstream.state()
}

type sherpaCountry struct {
	CountryCode string `json:"countryCode"`
}

type sherpaTripRequest struct {
	Trip struct {
		Origin      sherpaCountry `json:"origin"`
		Destination sherpaCountry `json:"destination"`
		Nationality sherpaCountry `json:"nationality"`
	} `json:"trip"`
}

// VisaRequirements posts the trip and returns Sherpa's response document unmodified.
func (c *SherpaClient) VisaRequirements(ctx context.Context, q VisaQuery) (json.RawMessage, error) {
	const op = "visa requirements"
	if !c.Configured() {
		return nil, fmt.Errorf("%s %s: %w", sherpaProvider, op, ErrNotConfigured)
	}

	var payload sherpaTripRequest
	payload.Trip.Origin.CountryCode = strings.ToUpper(q.Origin)
	payload.Trip.Destination.CountryCode = strings.ToUpper(q.Destination)
	payload.Trip.Nationality.CountryCode = strings.ToUpper(q.Nationality)

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	var result json.RawMessage
	err = c.upstream.do(ctx, op, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/trips", bytes.NewReader(jsonBody))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &ProviderError{Provider: sherpaProvider, Op: op, Err: err}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return &ProviderError{Provider: sherpaProvider, Op: op, Status: resp.StatusCode, Err: err}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return parseSherpaError(op, resp.StatusCode, body)
		}
		if !json.Valid(body) {
			return &ProviderError{Provider: sherpaProvider, Op: op, Status: resp.StatusCode,
				Err: fmt.Errorf("response is not valid JSON")}
		}
		result = json.RawMessage(body)
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("sherpa call finished", zap.Int("bytes", len(result)))
	return result, nil
}

// Sherpa reports failures either as JSON:API errors or as a flat message.
func parseSherpaError(op string, status int, body []byte) error {
	pe := &ProviderError{Provider: sherpaProvider, Op: op, Status: status}

	var eb struct {
		Errors []struct {
			Code   string `json:"code"`
			Title  string `json:"title"`
			Detail string `json:"detail"`
		} `json:"errors"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &eb); err == nil {
		if len(eb.Errors) > 0 {
			pe.Title = eb.Errors[0].Title
			pe.Detail = eb.Errors[0].Detail
			return pe
		}
		if eb.Message != "" {
			pe.Detail = eb.Message
			return pe
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 300 {
		pe.Detail = text
	}
	return pe
}
