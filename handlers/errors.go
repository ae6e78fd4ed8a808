package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"travelagent/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ErrorResponse is the envelope every failed call returns.
type ErrorResponse struct {
	Error    string   `json:"error"`
	Message  string   `json:"message"`
	Required []string `json:"required,omitempty"`
	Optional []string `json:"optional,omitempty"`
}

// paramRules describes a route's query parameters for error reporting.
type paramRules struct {
	required []string
	optional []string
	hint     string
	// invalid overrides the envelope for a malformed parameter, keyed by name.
	invalid map[string]ErrorResponse
}

var registerTagNames sync.Once

// useFormNames makes validation errors report query parameter names
// instead of Go field names.
func useFormNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
}

// bindQuery binds and validates the query string into dst. On failure the
// envelope has already been written.
func (h *Handler) bindQuery(c *gin.Context, dst any, rules paramRules) bool {
	useFormNames()
	normalizeQuery(c.Request)

	err := c.ShouldBindQuery(dst)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		h.logger.Warn("unparseable query parameters", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid parameters",
			Message: "One or more parameters have the wrong type: " + err.Error(),
		})
		return false
	}

	for _, fe := range verrs {
		if fe.Tag() == "required" {
			h.missing(c, rules)
			return false
		}
	}

	fe := verrs[0]
	h.logger.Warn("invalid query parameter",
		zap.String("path", c.FullPath()),
		zap.String("param", fe.Field()),
		zap.String("rule", fe.Tag()))

	if resp, ok := rules.invalid[fe.Field()]; ok {
		c.JSON(http.StatusBadRequest, resp)
		return false
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "Invalid parameter: " + fe.Field(),
		Message: describeRule(fe),
	})
	return false
}

// normalizeQuery trims every value and drops blank ones, so "?origin=%20"
// counts as missing and "?adults=" falls back to the default.
func normalizeQuery(r *http.Request) {
	q := r.URL.Query()
	for key, values := range q {
		kept := values[:0]
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				kept = append(kept, v)
			}
		}
		if len(kept) == 0 {
			delete(q, key)
			continue
		}
		q[key] = kept
	}
	r.URL.RawQuery = q.Encode()
}

func (h *Handler) missing(c *gin.Context, rules paramRules) {
	h.logger.Warn("missing query parameters", zap.String("path", c.FullPath()), zap.Strings("required", rules.required))

	title := "Missing required parameters"
	if len(rules.required) == 1 {
		title = "Missing required parameter: " + rules.required[0]
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:    title,
		Message:  rules.hint,
		Required: rules.required,
		Optional: rules.optional,
	})
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", fe.Field())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", fe.Field(), fe.Param())
	case "alpha":
		return fmt.Sprintf("%s must contain letters only", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// providerFailure maps a provider error to an HTTP status and envelope.
func providerFailure(provider string, err error) (int, ErrorResponse) {
	var pe *services.ProviderError

	switch {
	case errors.Is(err, services.ErrNotConfigured):
		return http.StatusInternalServerError, ErrorResponse{
			Error:   "Configuration error",
			Message: configHint(provider),
		}

	case errors.Is(err, services.ErrUnavailable):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error:   "Provider unavailable",
			Message: fmt.Sprintf("The %s service is failing repeatedly. Please try again in a moment.", providerName(provider)),
		}

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, timeoutResponse(provider)

	case errors.Is(err, services.ErrAuthentication):
		return http.StatusBadGateway, authResponse(provider)

	case errors.As(err, &pe):
		switch {
		case pe.Timeout():
			return http.StatusGatewayTimeout, timeoutResponse(provider)
		case pe.Status == http.StatusTooManyRequests:
			return http.StatusTooManyRequests, ErrorResponse{
				Error:   "Rate limit exceeded",
				Message: fmt.Sprintf("The %s API is rate limiting requests. Please wait and try again.", providerName(provider)),
			}
		case pe.Status == http.StatusUnauthorized || pe.Status == http.StatusForbidden:
			return http.StatusBadGateway, authResponse(provider)
		case pe.Status >= 400 && pe.Status < 500:
			msg := pe.Message()
			if msg == "" {
				msg = "The provider rejected the request parameters."
			}
			return http.StatusBadRequest, ErrorResponse{Error: "Request rejected by provider", Message: msg}
		default:
			return http.StatusBadGateway, ErrorResponse{
				Error:   "Provider error",
				Message: fmt.Sprintf("The %s API could not complete the request. Please try again later.", providerName(provider)),
			}
		}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Error:   "Internal server error",
		Message: "An unexpected error occurred. Please try again later.",
	}
}

func authResponse(provider string) ErrorResponse {
	return ErrorResponse{
		Error:   "Provider authentication failed",
		Message: fmt.Sprintf("The %s API rejected our credentials. Please check your API key and try again.", providerName(provider)),
	}
}

func timeoutResponse(provider string) ErrorResponse {
	return ErrorResponse{
		Error:   "Provider timeout",
		Message: fmt.Sprintf("The %s API did not answer in time. Please try again.", providerName(provider)),
	}
}

func configHint(provider string) string {
	switch provider {
	case "sherpa":
		return "Sherpa API key is not configured. Please set SHERPA_API_KEY in your environment variables."
	case "amadeus":
		return "Amadeus API credentials are not configured. Please set AMADEUS_CLIENT_ID and AMADEUS_CLIENT_SECRET in your environment variables."
	}
	return "A provider is not configured."
}

func providerName(provider string) string {
	switch provider {
	case "sherpa":
		return "Sherpa"
	case "amadeus":
		return "Amadeus"
	}
	return provider
}
