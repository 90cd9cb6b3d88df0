package middlewares

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

var formContentTypes = []string{
	"application/x-www-form-urlencoded",
	"multipart/form-data",
	"text/plain",
}

// OriginGuard rejects cross-site form posts. Browsers send those without a
// CORS preflight, so an unsafe request with a form-like Content-Type must come
// from the same host or from one of allowedOrigins.
func OriginGuard(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[strings.TrimSuffix(origin, "/")] = struct{}{}
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		if !isFormContentType(c.GetHeader("Content-Type")) {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		if _, ok := allowed[origin]; ok || sameHost(origin, c.Request.Host) {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	}
}

func isFormContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	for _, form := range formContentTypes {
		if strings.HasPrefix(ct, form) {
			return true
		}
	}
	return false
}

func sameHost(origin, host string) bool {
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host != "" && strings.EqualFold(u.Host, host)
}
