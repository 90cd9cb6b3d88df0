package middlewares

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestOriginGuard(t *testing.T) {
	r := gin.New()
	r.Use(OriginGuard([]string{"http://localhost:5173/"}))
	r.POST("/api/logout", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/auth/me", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name        string
		method      string
		contentType string
		origin      string
		wantStatus  int
	}{
		{name: "json_cross_origin_passes", method: http.MethodPost, contentType: "application/json", origin: "https://evil.test", wantStatus: http.StatusOK},
		{name: "form_cross_origin_blocked", method: http.MethodPost, contentType: "application/x-www-form-urlencoded", origin: "https://evil.test", wantStatus: http.StatusForbidden},
		{name: "text_plain_without_origin_blocked", method: http.MethodPost, contentType: "text/plain;charset=UTF-8", wantStatus: http.StatusForbidden},
		{name: "multipart_allowed_origin", method: http.MethodPost, contentType: "multipart/form-data; boundary=x", origin: "http://localhost:5173", wantStatus: http.StatusOK},
		{name: "form_same_host", method: http.MethodPost, contentType: "application/x-www-form-urlencoded", origin: "http://example.com", wantStatus: http.StatusOK},
		{name: "no_body_no_content_type", method: http.MethodPost, wantStatus: http.StatusOK},
		{name: "safe_method", method: http.MethodGet, contentType: "text/plain", origin: "https://evil.test", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := "/api/logout"
			if tt.method == http.MethodGet {
				path = "/api/auth/me"
			}

			req := httptest.NewRequest(tt.method, path, strings.NewReader(""))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestSecurityHeaders_NoStoreOnAPI(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/api/auth/me", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("expected no-store on api route, got %q", w.Header().Get("Cache-Control"))
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Header().Get("Cache-Control") != "" {
		t.Fatalf("unexpected Cache-Control on health route")
	}
}

func TestRequestID_EchoesOrGenerates(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) {
		id, _ := c.Get(CtxRequestID)
		c.String(http.StatusOK, id.(string))
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != "abc-123" || w.Header().Get("X-Request-Id") != "abc-123" {
		t.Fatalf("request id not echoed: body=%q header=%q", w.Body.String(), w.Header().Get("X-Request-Id"))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if len(w.Body.String()) != 36 {
		t.Fatalf("expected generated uuid, got %q", w.Body.String())
	}
}
