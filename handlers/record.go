package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"travelagent/database"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const recordTimeout = 3 * time.Second

// call tracks one proxied request from validation to response.
type call struct {
	id     string
	kind   string
	params map[string]string
	start  time.Time
}

// begin starts a proxied call. When history is enabled the record id is
// announced in the X-Search-ID header.
func (h *Handler) begin(c *gin.Context, kind string, params map[string]string) *call {
	cl := &call{kind: kind, params: params, start: time.Now()}
	if h.history != nil {
		cl.id = uuid.NewString()
		c.Header("X-Search-ID", cl.id)
	}
	return cl
}

func (h *Handler) succeed(c *gin.Context, cl *call, body any, count int) {
	payload, err := json.Marshal(body)
	if err != nil {
		h.logger.Error("failed to encode provider payload", zap.String("kind", cl.kind), zap.Error(err))
		h.fail(c, cl, http.StatusInternalServerError, ErrorResponse{
			Error:   "Internal server error",
			Message: "An unexpected error occurred. Please try again later.",
		})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
	h.logger.Info("search completed",
		zap.String("kind", cl.kind),
		zap.Int("results", count),
		zap.Duration("took", time.Since(cl.start)))
	h.record(c, cl, http.StatusOK, count, payload, "")
}

func (h *Handler) fail(c *gin.Context, cl *call, status int, resp ErrorResponse) {
	c.JSON(status, resp)
	h.record(c, cl, status, 0, nil, resp.Message)
}

// failProvider logs a provider error once and writes its envelope.
func (h *Handler) failProvider(c *gin.Context, cl *call, provider string, err error) {
	status, resp := providerFailure(provider, err)

	fields := []zap.Field{
		zap.String("kind", cl.kind),
		zap.String("provider", provider),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("provider call failed", fields...)
	} else {
		h.logger.Warn("provider call failed", fields...)
	}
	h.fail(c, cl, status, resp)
}

// record saves the call to history after the response has been flushed to
// the client. Failures are logged, never surfaced.
func (h *Handler) record(c *gin.Context, cl *call, status, count int, payload []byte, errMsg string) {
	if h.history == nil || cl.id == "" {
		return
	}
	c.Writer.Flush()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), recordTimeout)
	defer cancel()

	err := h.history.SaveSearch(ctx, &database.Search{
		ID:          cl.id,
		Kind:        cl.kind,
		Params:      cl.params,
		Status:      status,
		ResultCount: count,
		Payload:     payload,
		Error:       errMsg,
		DurationMS:  time.Since(cl.start).Milliseconds(),
	})
	if err != nil {
		h.logger.Error("failed to record search", zap.String("id", cl.id), zap.String("kind", cl.kind), zap.Error(err))
	}
}

// compactParams drops empty values.
func compactParams(kv ...string) map[string]string {
	params := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			params[kv[i]] = kv[i+1]
		}
	}
	return params
}
