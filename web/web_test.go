package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterServesFrontend(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	Register(r)

	tests := []struct {
		path        string
		contentType string
		contains    string
	}{
		{"/", "text/html", "Travel Agent Assistant"},
		{"/static/app.js", "javascript", "form.dataset.endpoint"},
		{"/static/style.css", "text/css", ".card"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), tt.contentType)
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}
}

func TestEveryFormHasAnEndpoint(t *testing.T) {
	page, err := assets.ReadFile("static/index.html")
	require.NoError(t, err)

	for _, endpoint := range []string{
		"/api/flights",
		"/api/visa-requirements",
		"/api/nearest-airports",
		"/api/hotels",
		"/api/activities",
	} {
		assert.Contains(t, string(page), `data-endpoint="`+endpoint+`"`)
	}
}
