package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func corsRouter(origins ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(origins...))
	r.GET("/api/image", func(c *gin.Context) {
		c.Header("X-Cache", "HIT")
		c.Status(http.StatusOK)
	})
	return r
}

func TestCORS(t *testing.T) {
	cases := []struct {
		name        string
		origins     []string
		method      string
		origin      string
		wantStatus  int
		wantAllow   string
		wantVary    string
		wantMaxAge  string
		wantExposes bool
	}{
		{name: "preflight any origin", method: http.MethodOptions, wantStatus: http.StatusNoContent, wantAllow: "*", wantMaxAge: corsMaxAge},
		{name: "get any origin", method: http.MethodGet, origin: "https://a.example", wantStatus: http.StatusOK, wantAllow: "*", wantExposes: true},
		{name: "wildcard in list", origins: []string{"https://x.example", "*"}, method: http.MethodGet, origin: "https://a.example", wantStatus: http.StatusOK, wantAllow: "*", wantExposes: true},
		{name: "listed origin", origins: []string{"https://gallery.example.com/"}, method: http.MethodGet, origin: "https://gallery.example.com", wantStatus: http.StatusOK, wantAllow: "https://gallery.example.com", wantVary: "Origin", wantExposes: true},
		{name: "unlisted origin", origins: []string{"https://gallery.example.com"}, method: http.MethodGet, origin: "https://evil.example.com", wantStatus: http.StatusOK, wantVary: "Origin", wantExposes: true},
		{name: "unlisted preflight", origins: []string{"https://gallery.example.com"}, method: http.MethodOptions, origin: "https://evil.example.com", wantStatus: http.StatusNoContent, wantVary: "Origin", wantMaxAge: corsMaxAge},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/image", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			w := httptest.NewRecorder()
			corsRouter(tc.origins...).ServeHTTP(w, req)

			require.Equal(t, tc.wantStatus, w.Code)
			require.Equal(t, tc.wantAllow, w.Header().Get("Access-Control-Allow-Origin"))
			require.Equal(t, tc.wantVary, w.Header().Get("Vary"))
			require.Equal(t, tc.wantMaxAge, w.Header().Get("Access-Control-Max-Age"))
			require.Equal(t, corsAllowMethods, w.Header().Get("Access-Control-Allow-Methods"))
			if tc.wantExposes {
				require.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Cache")
				require.Equal(t, "HIT", w.Header().Get("X-Cache"))
			}
		})
	}
}
